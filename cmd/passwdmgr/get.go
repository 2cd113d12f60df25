package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/laurinneff/passwd.mgr/internal/models"
)

var getCmd = &cobra.Command{
	Use:     "get",
	Short:   "Show the credentials stored for a site",
	Example: `  passwdmgr get -s example.com`,
	Args:    cobra.NoArgs,
	RunE:    runGet,
}

var getSite string

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getSite, "site", "s", "",
		"Site name (required)")
}

func runGet(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(getSite) == "" {
		return usageErrorf("--site is required")
	}
	ctx := commandContext(cmd)

	password, err := masterPassword(cmd, "Master password: ", false)
	if err != nil {
		return err
	}

	var site models.Site
	err = withSpinner("Unlocking database...", func() error {
		var err error
		site, err = storeService.GetSite(ctx, cfg.Database.Path, password, getSite)
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]interface{}{
			"site":     getSite,
			"username": site.Username(),
			"email":    site.Email(),
			"password": site.Password(),
		})
	}

	fmt.Fprintf(out, "Username: %s\nE-Mail: %s\nPassword: %s\n",
		site.Username(), site.Email(), site.Password())
	return nil
}
