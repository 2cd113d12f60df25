package main

import (
	"github.com/spf13/cobra"
)

var rekeyCmd = &cobra.Command{
	Use:   "rekey",
	Short: "Re-encrypt the database under a new master password",
	Long: `Rekey decrypts the database with the current master password and writes
it again under a new one with a fresh salt. Pass --encryption to switch the
cipher at the same time.`,
	Example: `  passwdmgr rekey
  passwdmgr -p oldPassword rekey --new-password newPassword -e xchacha20-poly1305`,
	Args: cobra.NoArgs,
	RunE: runRekey,
}

var rekeyNewPassword string

func init() {
	rootCmd.AddCommand(rekeyCmd)

	rekeyCmd.Flags().StringVar(&rekeyNewPassword, "new-password", "",
		"New master password (will prompt if not provided)")
}

func runRekey(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	path := cfg.Database.Path

	oldPassword, err := masterPassword(cmd, "Current master password: ", false)
	if err != nil {
		return err
	}

	newPassword := rekeyNewPassword
	if !cmd.Flags().Changed("new-password") {
		newPassword, err = readSecret(cmd, "New master password: ", true)
		if err != nil {
			return err
		}
	}

	err = withSpinner("Re-encrypting database...", func() error {
		return storeService.Rekey(ctx, path, oldPassword, newPassword, saveAlgorithm(cmd))
	})
	if err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "Re-encrypted the password database at %s", path)
	return nil
}
