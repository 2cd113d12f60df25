package main

import (
	"os"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new, empty password database",
	Long: `Create writes an empty database encrypted with the master password.
An existing file is left alone unless --force is given.`,
	Example: `  passwdmgr -d db.passwddb create
  passwdmgr -d db.passwddb -e chacha20-poly1305 create --force`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

var createForce bool

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().BoolVar(&createForce, "force", false,
		"Overwrite an existing database")
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	path := cfg.Database.Path

	password, err := masterPassword(cmd, "Master password: ", true)
	if err != nil {
		return err
	}

	if createForce {
		if _, err := os.Stat(path); err == nil {
			printWarning(cmd.ErrOrStderr(), "Overwriting the existing database at %s", path)
		}
	}

	algorithm := cfg.Crypto.Algorithm
	err = withSpinner("Deriving key...", func() error {
		return storeService.Create(ctx, path, password, algorithm, createForce)
	})
	if err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "Created a %s-encrypted password database at %s", algorithm, path)
	return nil
}
