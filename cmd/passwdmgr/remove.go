package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm"},
	Short:   "Remove a site from the database",
	Example: `  passwdmgr remove -s example.com`,
	Args:    cobra.NoArgs,
	RunE:    runRemove,
}

var removeSite string

func init() {
	rootCmd.AddCommand(removeCmd)

	removeCmd.Flags().StringVarP(&removeSite, "site", "s", "",
		"Site name (required)")
}

func runRemove(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(removeSite) == "" {
		return usageErrorf("--site is required")
	}
	ctx := commandContext(cmd)

	password, err := masterPassword(cmd, "Master password: ", false)
	if err != nil {
		return err
	}

	err = withSpinner("Saving database...", func() error {
		return storeService.RemoveSite(ctx, cfg.Database.Path, password, removeSite, saveAlgorithm(cmd))
	})
	if err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "Removed the site '%s'", removeSite)
	return nil
}
