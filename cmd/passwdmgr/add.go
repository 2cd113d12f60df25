package main

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/laurinneff/passwd.mgr/internal/models"
	"github.com/laurinneff/passwd.mgr/internal/services/store"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or replace a site",
	Long: `Add stores the credentials for a site. A site that already exists is
replaced unless --no-overwrite is given.`,
	Example: `  passwdmgr add -s example.com -u Me -m me@example.com -P myPassword
  passwdmgr add -s example.com -P newPassword --no-overwrite`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var (
	addSite        string
	addUsername    string
	addEmail       string
	addPassword    string
	addNoOverwrite bool
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addSite, "site", "s", "",
		"Site name (required)")
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "",
		"Username on the site")
	addCmd.Flags().StringVarP(&addEmail, "email", "m", "",
		"E-mail address on the site")
	addCmd.Flags().StringVarP(&addPassword, "site-password", "P", "",
		"Password for the site (will prompt if not provided)")
	addCmd.Flags().BoolVar(&addNoOverwrite, "no-overwrite", false,
		"Fail if the site already exists")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(addSite) == "" {
		return usageErrorf("--site is required")
	}
	ctx := commandContext(cmd)

	password, err := masterPassword(cmd, "Master password: ", false)
	if err != nil {
		return err
	}

	sitePassword := addPassword
	if !cmd.Flags().Changed("site-password") {
		sitePassword, err = readSecret(cmd, "Password for "+addSite+": ", true)
		if errors.Is(err, io.EOF) {
			// Nothing piped in: store the site without a password.
			sitePassword, err = "", nil
		}
		if err != nil {
			return err
		}
	}

	site := models.NewSite(addUsername, addEmail, sitePassword)
	opts := store.AddOptions{
		NoOverwrite: addNoOverwrite,
		Algorithm:   saveAlgorithm(cmd),
	}

	err = withSpinner("Saving database...", func() error {
		return storeService.AddSite(ctx, cfg.Database.Path, password, addSite, site, opts)
	})
	if err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "Added the site '%s'", addSite)
	return nil
}
