package crypto

import (
	"crypto/cipher"
)

// aeadCipher wraps a cipher.AEAD constructor. The tag travels at the end of
// the ciphertext.
type aeadCipher struct {
	name      string
	keySize   int
	nonceSize int
	newAEAD   func(key []byte) (cipher.AEAD, error)
}

func newAEADCipher(name string, keySize, nonceSize int, newAEAD func([]byte) (cipher.AEAD, error)) *aeadCipher {
	return &aeadCipher{
		name:      name,
		keySize:   keySize,
		nonceSize: nonceSize,
		newAEAD:   newAEAD,
	}
}

func (c *aeadCipher) Name() string             { return c.name }
func (c *aeadCipher) KeySize() int             { return c.keySize }
func (c *aeadCipher) NonceSize() int           { return c.nonceSize }
func (c *aeadCipher) TagSize() int             { return GCMTagSize }
func (c *aeadCipher) SelfAuthenticating() bool { return true }

// Seal encrypts plaintext. Returns: ciphertext || tag, nil.
func (c *aeadCipher) Seal(key, nonce, plaintext, additionalData []byte) ([]byte, []byte, error) {
	if len(key) != c.keySize {
		return nil, nil, ErrInvalidKey
	}
	if len(nonce) != c.nonceSize {
		return nil, nil, ErrInvalidNonce
	}

	aead, err := c.newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	return aead.Seal(nil, nonce, plaintext, additionalData), nil, nil
}

// Open decrypts ciphertext || tag. A separate tag is never valid here.
func (c *aeadCipher) Open(key, nonce, ciphertext, tag, additionalData []byte) ([]byte, error) {
	if len(key) != c.keySize {
		return nil, ErrInvalidKey
	}
	if len(nonce) != c.nonceSize || len(tag) != 0 || len(ciphertext) < GCMTagSize {
		return nil, ErrAuthenticationFailed
	}

	aead, err := c.newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
