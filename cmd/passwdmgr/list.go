package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the sites stored in the database",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	password, err := masterPassword(cmd, "Master password: ", false)
	if err != nil {
		return err
	}

	var names []string
	err = withSpinner("Unlocking database...", func() error {
		var err error
		names, err = storeService.ListSites(ctx, cfg.Database.Path, password)
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]interface{}{
			"sites": names,
		})
	}

	if len(names) == 0 {
		fmt.Fprintln(out, "No sites found in the database")
		return nil
	}
	fmt.Fprintln(out, strings.Join(names, ",\n"))
	return nil
}
