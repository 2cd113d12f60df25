package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/laurinneff/passwd.mgr/internal/config"
	"github.com/laurinneff/passwd.mgr/internal/events"
	"github.com/laurinneff/passwd.mgr/internal/services/store"
	"github.com/laurinneff/passwd.mgr/internal/storage"
	"github.com/laurinneff/passwd.mgr/internal/vault"
)

var (
	cfgFile    string
	jsonOutput bool

	loader       *config.Loader
	cfg          *config.Config
	logger       *events.Logger
	storeService *store.Service
)

var rootCmd = &cobra.Command{
	Use:   "passwdmgr",
	Short: "A local, encrypted password database",
	Long: `passwdmgr keeps usernames, e-mail addresses and passwords for your sites
in a single file encrypted with a master password.`,
	Example: `  passwdmgr -d db.passwddb -p superSecurePassword -e aes256 create
  passwdmgr -d db.passwddb -p superSecurePassword list
  passwdmgr -d db.passwddb -p superSecurePassword add -s example.com -u Me -m me@example.com -P myPassword
  passwdmgr -d db.passwddb -p superSecurePassword get -s example.com`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("database", "d", "", "Database file (default from config: db.passwddb)")
	flags.StringP("password", "p", "", "Master password (will prompt if not provided)")
	flags.StringP("encryption", "e", "", "Encryption algorithm, see 'passwdmgr algorithms' (default from config: aes256)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./passwdmgr.yaml or ~/.config/passwdmgr/passwdmgr.yaml)")
	flags.BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})
}

var flagBindings = map[string]string{
	"database.path":    "database",
	"crypto.algorithm": "encryption",
	"log.level":        "log-level",
	"password":         "password",
}

// setup loads configuration and wires the services every command uses.
func setup(cmd *cobra.Command, args []string) error {
	loader = config.NewLoader(cfgFile)
	for key, name := range flagBindings {
		if err := loader.BindFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return err
		}
	}

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	events.SetDefault(logger)

	if used := loader.ConfigFileUsed(); used != "" {
		logger.WithField("file", used).Debug("Loaded config file")
	}

	blobs := storage.NewLocalStore(logger)
	blobs.SetMaxFileSize(cfg.Database.MaxSize)

	codec := vault.NewCodec(vault.WithKDF(cfg.Crypto.KDFParams()))

	storeService = store.NewService(blobs, codec, logger)
	storeService.SetFileMode(cfg.Database.FileMode)
	storeService.SetDefaultAlgorithm(cfg.Crypto.Algorithm)

	return nil
}

// commandContext returns a context carrying the logger and database path.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = events.WithLogger(ctx, logger)
	return events.WithDatabase(ctx, cfg.Database.Path)
}

// saveAlgorithm returns the cipher to re-seal with: the --encryption value
// when given, otherwise "" so the file keeps its current cipher.
func saveAlgorithm(cmd *cobra.Command) string {
	if cmd.Flags().Changed("encryption") {
		return cfg.Crypto.Algorithm
	}
	return ""
}
