package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/laurinneff/passwd.mgr/internal/models"
)

// Canonical algorithm identifiers.
const (
	AES128GCM           = "aes-128-gcm"
	AES192GCM           = "aes-192-gcm"
	AES256GCM           = "aes-256-gcm"
	ChaCha20Poly1305    = "chacha20-poly1305"
	XChaCha20Poly1305   = "xchacha20-poly1305"
	AES256CBCHMACSHA256 = "aes-256-cbc-hmac-sha256"
	AES256CTRHMACSHA256 = "aes-256-ctr-hmac-sha256"

	// DefaultAlgorithm is used when the caller does not choose one.
	DefaultAlgorithm = AES256GCM
)

const (
	// SaltSize is the salt length generated for every seal.
	SaltSize = 32

	// MinSaltSize is the shortest salt DeriveKey accepts.
	MinSaltSize = 16

	// GCMTagSize is the tag length of every AEAD mode offered.
	GCMTagSize = 16
)

// Errors
var (
	ErrInvalidKey           = errors.New("invalid key size")
	ErrInvalidNonce         = errors.New("invalid nonce size")
	ErrInvalidSalt          = errors.New("invalid salt")
	ErrInvalidKDFParams     = errors.New("invalid key derivation parameters")
	ErrAuthenticationFailed = errors.New("message authentication failed")
)

var aliases = map[string]string{
	"aes128":    AES128GCM,
	"aes192":    AES192GCM,
	"aes256":    AES256GCM,
	"chacha20":  ChaCha20Poly1305,
	"xchacha20": XChaCha20Poly1305,
}

// CryptoProvider handles all cryptographic operations.
type CryptoProvider struct {
	ciphers map[string]Cipher
	aliases map[string]string
}

// NewProvider creates a crypto provider with every supported cipher registered.
func NewProvider() *CryptoProvider {
	p := &CryptoProvider{
		ciphers: make(map[string]Cipher),
		aliases: aliases,
	}

	p.register(newAEADCipher(AES128GCM, 16, 12, newGCM))
	p.register(newAEADCipher(AES192GCM, 24, 12, newGCM))
	p.register(newAEADCipher(AES256GCM, 32, 12, newGCM))
	p.register(newAEADCipher(ChaCha20Poly1305, chacha20poly1305.KeySize,
		chacha20poly1305.NonceSize, chacha20poly1305.New))
	p.register(newAEADCipher(XChaCha20Poly1305, chacha20poly1305.KeySize,
		chacha20poly1305.NonceSizeX, chacha20poly1305.NewX))
	p.register(newETMCipher(AES256CBCHMACSHA256, modeCBC))
	p.register(newETMCipher(AES256CTRHMACSHA256, modeCTR))

	return p
}

func (p *CryptoProvider) register(c Cipher) {
	if _, ok := p.ciphers[c.Name()]; ok {
		panic(fmt.Sprintf("cipher %s registered twice", c.Name()))
	}
	p.ciphers[c.Name()] = c
}

// Cipher resolves an algorithm identifier or alias, case-insensitively.
func (p *CryptoProvider) Cipher(algorithm string) (Cipher, error) {
	id := strings.ToLower(strings.TrimSpace(algorithm))
	if canonical, ok := p.aliases[id]; ok {
		id = canonical
	}

	c, ok := p.ciphers[id]
	if !ok {
		return nil, &models.AlgorithmError{Algorithm: algorithm}
	}
	return c, nil
}

// Algorithms lists the canonical identifiers in sorted order.
func (p *CryptoProvider) Algorithms() []string {
	names := make([]string, 0, len(p.ciphers))
	for name := range p.ciphers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aliases returns a copy of the alias table.
func (p *CryptoProvider) Aliases() map[string]string {
	out := make(map[string]string, len(p.aliases))
	for k, v := range p.aliases {
		out[k] = v
	}
	return out
}

// DeriveKey derives a key from the passphrase. See deriveKey for the rules.
func (p *CryptoProvider) DeriveKey(passphrase string, salt []byte, params KDFParams, keyLen int) ([]byte, error) {
	return deriveKey(passphrase, salt, params, keyLen)
}

// RandomBytes reads n bytes from r.
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}
