package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/laurinneff/passwd.mgr/internal/crypto"
)

// Config holds all application configuration.
type Config struct {
	// Database file location and limits
	Database DatabaseConfig `mapstructure:"database"`

	// Cipher and key derivation used when sealing
	Crypto CryptoConfig `mapstructure:"crypto"`

	// Logging
	Log LogConfig `mapstructure:"log"`
}

// DatabaseConfig for the encrypted database file.
type DatabaseConfig struct {
	Path     string      `mapstructure:"path"`
	FileMode os.FileMode `mapstructure:"file_mode"`
	MaxSize  int64       `mapstructure:"max_size"` // bytes
}

// CryptoConfig selects the algorithm and work factor for new containers.
// Existing containers are always opened with the parameters they record.
type CryptoConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	KDF       string `mapstructure:"kdf"`

	PBKDF2Iterations int `mapstructure:"pbkdf2_iterations"`

	ScryptN int `mapstructure:"scrypt_n"`
	ScryptR int `mapstructure:"scrypt_r"`
	ScryptP int `mapstructure:"scrypt_p"`

	Argon2Time      uint32 `mapstructure:"argon2_time"`
	Argon2MemoryKiB uint32 `mapstructure:"argon2_memory_kib"`
	Argon2Threads   uint8  `mapstructure:"argon2_threads"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
	File   string `mapstructure:"file"`   // Log file path (empty = stderr)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:     "db.passwddb",
			FileMode: 0600,
			MaxSize:  64 * 1024 * 1024,
		},
		Crypto: CryptoConfig{
			Algorithm:        "aes256",
			KDF:              crypto.KDFPBKDF2,
			PBKDF2Iterations: crypto.DefaultIterations,
			ScryptN:          crypto.ScryptN,
			ScryptR:          crypto.ScryptR,
			ScryptP:          crypto.ScryptP,
			Argon2Time:       crypto.Argon2Time,
			Argon2MemoryKiB:  crypto.Argon2MemoryKiB,
			Argon2Threads:    crypto.Argon2Threads,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// KDFParams builds the key derivation parameters for the configured KDF.
func (c CryptoConfig) KDFParams() crypto.KDFParams {
	switch c.KDF {
	case crypto.KDFScrypt:
		return crypto.KDFParams{Name: c.KDF, N: c.ScryptN, R: c.ScryptR, P: c.ScryptP}
	case crypto.KDFArgon2id:
		return crypto.KDFParams{
			Name:      c.KDF,
			Time:      c.Argon2Time,
			MemoryKiB: c.Argon2MemoryKiB,
			Threads:   c.Argon2Threads,
		}
	default:
		return crypto.KDFParams{Name: c.KDF, Iterations: c.PBKDF2Iterations}
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}

	if c.Database.MaxSize <= 0 {
		return errors.New("database.max_size must be positive")
	}

	if c.Database.FileMode&0400 == 0 || c.Database.FileMode&^os.ModePerm != 0 {
		return fmt.Errorf("invalid database.file_mode: %#o", c.Database.FileMode)
	}

	if _, err := crypto.NewProvider().Cipher(c.Crypto.Algorithm); err != nil {
		return fmt.Errorf("crypto.algorithm: %w", err)
	}

	if err := c.Crypto.KDFParams().Validate(); err != nil {
		return fmt.Errorf("crypto.kdf: %w", err)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates the parent directories of the database and log
// files.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Database.Path)}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
