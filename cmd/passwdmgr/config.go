package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/laurinneff/passwd.mgr/internal/config"
)

// configCmd replaces the root setup so a broken config file can still be
// rewritten.
var configCmd = &cobra.Command{
	Use:               "config",
	Short:             "Manage the configuration file",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Long: `Init writes a configuration file holding every default setting. The
master password is never written to it.`,
	Example: `  passwdmgr config init
  passwdmgr config init ~/.config/passwdmgr/passwdmgr.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false,
		"Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "passwdmgr.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if !configInitForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
	}

	if err := config.SaveExample(path); err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "Wrote an example configuration to %s", path)
	return nil
}
