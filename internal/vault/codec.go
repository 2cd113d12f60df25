// Package vault seals a database into a passphrase-protected container and
// opens it again.
package vault

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/awnumar/memguard"

	"github.com/laurinneff/passwd.mgr/internal/crypto"
	"github.com/laurinneff/passwd.mgr/internal/database"
	"github.com/laurinneff/passwd.mgr/internal/models"
)

// Codec converts between a Database and its sealed container bytes.
type Codec struct {
	provider crypto.Provider
	kdf      crypto.KDFParams
	random   io.Reader
}

// Option configures a Codec.
type Option func(*Codec)

// WithKDF sets the key derivation used by Seal. Unseal always uses the
// parameters recorded in the container.
func WithKDF(params crypto.KDFParams) Option {
	return func(c *Codec) {
		c.kdf = params
	}
}

// WithRandom replaces crypto/rand as the source of salts and nonces.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// WithProvider replaces the default cipher provider.
func WithProvider(p crypto.Provider) Option {
	return func(c *Codec) {
		c.provider = p
	}
}

// NewCodec creates a codec using PBKDF2-SHA256 and crypto/rand by default.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		provider: crypto.NewProvider(),
		kdf:      crypto.DefaultKDFParams(),
		random:   rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KDF returns the key derivation parameters used by Seal.
func (c *Codec) KDF() crypto.KDFParams {
	return c.kdf
}

// Seal encrypts db under passphrase with a fresh salt and nonce.
func (c *Codec) Seal(db *database.Database, passphrase, algorithm string) ([]byte, error) {
	if err := crypto.CheckPassphrase(passphrase); err != nil {
		return nil, err
	}
	cipher, err := c.provider.Cipher(algorithm)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("seal: nil database")
	}

	salt, err := crypto.RandomBytes(c.random, crypto.SaltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.RandomBytes(c.random, cipher.NonceSize())
	if err != nil {
		return nil, err
	}

	key, err := c.provider.DeriveKey(passphrase, salt, c.kdf, cipher.KeySize())
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(key)

	plaintext, err := db.Serialize()
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plaintext)

	header := Header{
		Version:   ContainerVersion,
		Algorithm: cipher.Name(),
		KDF:       c.kdf,
		Salt:      salt,
	}
	ad, err := header.associatedData()
	if err != nil {
		return nil, err
	}

	ciphertext, tag, err := cipher.Seal(key, nonce, plaintext, ad)
	if err != nil {
		return nil, err
	}

	container := &Container{
		Header:     header,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		AuthTag:    tag,
	}
	return container.marshal()
}

// Unseal decrypts a container. An empty passphrase fails with
// models.ErrWeakPassphrase; every other failure, whatever its cause, is the
// bare models.ErrUnsealFailed.
func (c *Codec) Unseal(raw []byte, passphrase string) (*database.Database, error) {
	if err := crypto.CheckPassphrase(passphrase); err != nil {
		return nil, err
	}

	container, err := parseContainer(raw)
	if err != nil {
		return nil, models.ErrUnsealFailed
	}
	cipher, err := c.provider.Cipher(container.Algorithm)
	if err != nil {
		return nil, models.ErrUnsealFailed
	}
	if !sizesMatch(cipher, container) {
		return nil, models.ErrUnsealFailed
	}

	key, err := c.provider.DeriveKey(passphrase, container.Salt, container.KDF, cipher.KeySize())
	if err != nil {
		return nil, models.ErrUnsealFailed
	}
	defer memguard.WipeBytes(key)

	ad, err := container.Header.associatedData()
	if err != nil {
		return nil, models.ErrUnsealFailed
	}

	plaintext, err := cipher.Open(key, container.Nonce, container.Ciphertext, container.AuthTag, ad)
	if err != nil {
		return nil, models.ErrUnsealFailed
	}
	defer memguard.WipeBytes(plaintext)

	db, err := database.Deserialize(plaintext)
	if err != nil {
		return nil, models.ErrUnsealFailed
	}
	return db, nil
}

// Inspect returns the header of a container without deriving a key.
func (c *Codec) Inspect(raw []byte) (Header, error) {
	container, err := parseContainer(raw)
	if err != nil {
		return Header{}, models.ErrUnsealFailed
	}
	cipher, err := c.provider.Cipher(container.Algorithm)
	if err != nil || !sizesMatch(cipher, container) {
		return Header{}, models.ErrUnsealFailed
	}
	if err := container.KDF.Validate(); err != nil {
		return Header{}, models.ErrUnsealFailed
	}
	return container.Header, nil
}

func sizesMatch(cipher crypto.Cipher, container *Container) bool {
	if len(container.Salt) < crypto.MinSaltSize || len(container.Nonce) != cipher.NonceSize() {
		return false
	}
	if cipher.SelfAuthenticating() {
		return len(container.AuthTag) == 0
	}
	return len(container.AuthTag) == cipher.TagSize()
}

var defaultCodec = NewCodec()

// CreateDatabase returns an empty database.
func CreateDatabase() *database.Database {
	return database.New()
}

// LoadDatabase unseals raw with the default codec.
func LoadDatabase(raw []byte, passphrase string) (*database.Database, error) {
	return defaultCodec.Unseal(raw, passphrase)
}

// SaveDatabase seals db with the default codec.
func SaveDatabase(db *database.Database, passphrase, algorithm string) ([]byte, error) {
	return defaultCodec.Seal(db, passphrase, algorithm)
}
