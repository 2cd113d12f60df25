// Package store ties file storage, the vault codec and logging together for
// the operations the CLI offers. Every call reads the file, works on the
// decrypted database and, when it changed anything, writes it back.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/laurinneff/passwd.mgr/internal/crypto"
	"github.com/laurinneff/passwd.mgr/internal/database"
	"github.com/laurinneff/passwd.mgr/internal/events"
	"github.com/laurinneff/passwd.mgr/internal/models"
	"github.com/laurinneff/passwd.mgr/internal/storage"
	"github.com/laurinneff/passwd.mgr/internal/vault"
)

// ErrDatabaseExists is returned by Create when the file is already there.
var ErrDatabaseExists = errors.New("database already exists")

// Service manages database files.
type Service struct {
	blobs    storage.BlobStore
	codec    *vault.Codec
	logger   *events.Logger
	fileMode os.FileMode

	defaultAlgorithm string
}

// NewService creates a store service.
func NewService(blobs storage.BlobStore, codec *vault.Codec, logger *events.Logger) *Service {
	return &Service{
		blobs:            blobs,
		codec:            codec,
		logger:           logger.WithField("service", "store"),
		fileMode:         0600,
		defaultAlgorithm: crypto.DefaultAlgorithm,
	}
}

// SetFileMode sets the permissions of written database files.
func (s *Service) SetFileMode(mode os.FileMode) {
	s.fileMode = mode
}

// SetDefaultAlgorithm sets the cipher Create uses when none is given.
func (s *Service) SetDefaultAlgorithm(algorithm string) {
	s.defaultAlgorithm = algorithm
}

// log returns the logger for one call. A logger attached to ctx with
// events.WithLogger wins over the one the service was built with.
func (s *Service) log(ctx context.Context) *events.Logger {
	if l, ok := events.LoggerFrom(ctx); ok {
		return l.WithField("service", "store")
	}
	return s.logger
}

// Create writes a new, empty database. An existing file is only replaced
// when force is set.
func (s *Service) Create(ctx context.Context, path, passphrase, algorithm string, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if algorithm == "" {
		algorithm = s.defaultAlgorithm
	}

	if !force {
		exists, err := s.blobs.Exists(path)
		if err != nil {
			return fmt.Errorf("check database: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDatabaseExists, path)
		}
	}

	raw, err := s.codec.Seal(vault.CreateDatabase(), passphrase, algorithm)
	if err != nil {
		return err
	}

	if force {
		err = s.blobs.Write(path, raw, s.fileMode)
	} else {
		err = s.blobs.Create(path, raw, s.fileMode)
	}
	if errors.Is(err, storage.ErrFileExists) {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, path)
	}
	if err != nil {
		return fmt.Errorf("write database: %w", err)
	}

	s.log(ctx).WithFields(map[string]interface{}{
		"database":  path,
		"algorithm": algorithm,
		"kdf":       s.codec.KDF().Name,
		"overwrite": force,
	}).Info("Created database")

	return nil
}

// Open reads and unseals the database at path.
func (s *Service) Open(ctx context.Context, path, passphrase string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := s.blobs.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}

	header, err := s.codec.Inspect(raw)
	if err != nil {
		return nil, err
	}

	logger := s.log(ctx).WithFields(map[string]interface{}{
		"database":  path,
		"algorithm": header.Algorithm,
		"kdf":       header.KDF.Name,
	})
	logger.Debug("Unsealing database")

	db, err := s.codec.Unseal(raw, passphrase)
	if err != nil {
		logger.Debug("Unseal failed")
		return nil, err
	}

	s.checkPermissions(logger, path)
	logger.WithField("sites", db.Len()).Debug("Database opened")

	return &Session{
		service: s,
		path:    path,
		header:  header,
		db:      db,
	}, nil
}

func (s *Service) checkPermissions(logger *events.Logger, path string) {
	info, err := s.blobs.Stat(path)
	if err != nil {
		return
	}
	if info.Mode.Perm()&0077 != 0 {
		logger.WithField("mode", fmt.Sprintf("%#o", info.Mode.Perm())).
			Warn("Database file is accessible by other users")
	}
}

// ListSites returns the site names stored at path.
func (s *Service) ListSites(ctx context.Context, path, passphrase string) ([]string, error) {
	sess, err := s.Open(ctx, path, passphrase)
	if err != nil {
		return nil, err
	}
	return sess.DB().ListSites(), nil
}

// GetSite returns one site record.
func (s *Service) GetSite(ctx context.Context, path, passphrase, name string) (models.Site, error) {
	sess, err := s.Open(ctx, path, passphrase)
	if err != nil {
		return models.Site{}, err
	}
	return sess.DB().GetSite(name)
}

// AddOptions controls AddSite.
type AddOptions struct {
	// NoOverwrite fails with models.ErrSiteExists instead of replacing.
	NoOverwrite bool

	// Algorithm re-seals with a different cipher. Empty keeps the current one.
	Algorithm string
}

// AddSite stores site under name and saves the database.
func (s *Service) AddSite(ctx context.Context, path, passphrase, name string, site models.Site, opts AddOptions) error {
	sess, err := s.Open(ctx, path, passphrase)
	if err != nil {
		return err
	}

	if opts.NoOverwrite && sess.DB().HasSite(name) {
		return &models.SiteError{Name: name, Err: models.ErrSiteExists}
	}
	if err := sess.DB().AddSite(name, site); err != nil {
		return err
	}

	return sess.Save(ctx, passphrase, opts.Algorithm)
}

// RemoveSite deletes the site stored under name and saves the database.
func (s *Service) RemoveSite(ctx context.Context, path, passphrase, name, algorithm string) error {
	sess, err := s.Open(ctx, path, passphrase)
	if err != nil {
		return err
	}

	if err := sess.DB().RemoveSite(name); err != nil {
		return err
	}

	return sess.Save(ctx, passphrase, algorithm)
}

// Rekey re-encrypts the database under newPassphrase with a fresh salt,
// optionally switching the cipher.
func (s *Service) Rekey(ctx context.Context, path, oldPassphrase, newPassphrase, algorithm string) error {
	if err := crypto.CheckPassphrase(newPassphrase); err != nil {
		return err
	}

	sess, err := s.Open(ctx, path, oldPassphrase)
	if err != nil {
		return err
	}

	if err := sess.Save(ctx, newPassphrase, algorithm); err != nil {
		return err
	}

	s.log(ctx).WithFields(map[string]interface{}{
		"database":  path,
		"algorithm": sess.Header().Algorithm,
	}).Info("Re-encrypted database")

	return nil
}

// Session is an unsealed database together with the header it was read
// with.
type Session struct {
	service *Service
	path    string
	header  vault.Header
	db      *database.Database
}

// DB returns the decrypted database.
func (s *Session) DB() *database.Database {
	return s.db
}

// Header returns the header of the last container read or written.
func (s *Session) Header() vault.Header {
	return s.header
}

// Path returns the database file path.
func (s *Session) Path() string {
	return s.path
}

// Save seals the database and atomically replaces the file. An empty
// algorithm keeps the cipher the file was opened with. The key derivation
// always follows the service's codec, so saving upgrades the work factor.
func (s *Session) Save(ctx context.Context, passphrase, algorithm string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if algorithm == "" {
		algorithm = s.header.Algorithm
	}

	svc := s.service
	raw, err := svc.codec.Seal(s.db, passphrase, algorithm)
	if err != nil {
		return err
	}

	header, err := svc.codec.Inspect(raw)
	if err != nil {
		return fmt.Errorf("inspect sealed database: %w", err)
	}

	if err := svc.blobs.Write(s.path, raw, svc.fileMode); err != nil {
		return fmt.Errorf("write database: %w", err)
	}
	s.header = header

	svc.log(ctx).WithFields(map[string]interface{}{
		"database":  s.path,
		"algorithm": header.Algorithm,
		"kdf":       header.KDF.Name,
		"sites":     s.db.Len(),
	}).Info("Saved database")

	return nil
}
