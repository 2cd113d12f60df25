package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// passwordKey is read from flags and the environment only. It has no
// default and no Config field, so SaveExample never writes it.
const passwordKey = "password"

// Loader handles configuration loading from multiple sources.
// Precedence, highest first: bound flags, environment, config file, defaults.
type Loader struct {
	configPath string
	envPrefix  string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty configPath searches the
// default locations and tolerates a missing file.
func NewLoader(configPath string) *Loader {
	l := &Loader{
		configPath: configPath,
		envPrefix:  "PASSWDMGR",
		v:          viper.New(),
	}
	l.setDefaults()
	return l
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("database.path", d.Database.Path)
	l.v.SetDefault("database.file_mode", uint32(d.Database.FileMode))
	l.v.SetDefault("database.max_size", d.Database.MaxSize)

	l.v.SetDefault("crypto.algorithm", d.Crypto.Algorithm)
	l.v.SetDefault("crypto.kdf", d.Crypto.KDF)
	l.v.SetDefault("crypto.pbkdf2_iterations", d.Crypto.PBKDF2Iterations)
	l.v.SetDefault("crypto.scrypt_n", d.Crypto.ScryptN)
	l.v.SetDefault("crypto.scrypt_r", d.Crypto.ScryptR)
	l.v.SetDefault("crypto.scrypt_p", d.Crypto.ScryptP)
	l.v.SetDefault("crypto.argon2_time", d.Crypto.Argon2Time)
	l.v.SetDefault("crypto.argon2_memory_kib", d.Crypto.Argon2MemoryKiB)
	l.v.SetDefault("crypto.argon2_threads", d.Crypto.Argon2Threads)

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("log.format", d.Log.Format)
	l.v.SetDefault("log.file", d.Log.File)
}

// BindFlag lets a command-line flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	if err := l.readFile(); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ConfigFileUsed returns the file Load read, or "" when none was found.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Passphrase returns the master passphrase from --password or
// PASSWDMGR_PASSWORD, or "" when neither is set.
func (l *Loader) Passphrase() string {
	return l.v.GetString(passwordKey)
}

func (l *Loader) readFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		return l.v.ReadInConfig()
	}

	l.v.SetConfigName("passwdmgr")
	for _, dir := range l.defaultPaths() {
		l.v.AddConfigPath(dir)
	}

	err := l.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "passwdmgr"))
	}

	return paths
}

// SaveExample writes the default configuration to path. The format follows
// the file extension (.yaml, .toml or .json).
func SaveExample(path string) error {
	l := NewLoader("")
	if err := l.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("chmod config: %w", err)
	}
	return nil
}
