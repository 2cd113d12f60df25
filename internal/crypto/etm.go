package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

type etmMode int

const (
	modeCBC etmMode = iota
	modeCTR
)

const (
	etmKeyHalf = 32 // AES-256 key, then HMAC-SHA256 key
	etmKeySize = 2 * etmKeyHalf
)

// etmCipher is AES-256 in CBC or CTR mode followed by HMAC-SHA256 over the
// algorithm name, the additional data, the IV and the ciphertext. The MAC is
// checked before anything is decrypted.
type etmCipher struct {
	name string
	mode etmMode
}

func newETMCipher(name string, mode etmMode) *etmCipher {
	return &etmCipher{name: name, mode: mode}
}

func (c *etmCipher) Name() string             { return c.name }
func (c *etmCipher) KeySize() int             { return etmKeySize }
func (c *etmCipher) NonceSize() int           { return aes.BlockSize }
func (c *etmCipher) TagSize() int             { return sha256.Size }
func (c *etmCipher) SelfAuthenticating() bool { return false }

// Seal encrypts plaintext and returns the HMAC tag separately.
func (c *etmCipher) Seal(key, iv, plaintext, additionalData []byte) ([]byte, []byte, error) {
	if len(key) != etmKeySize {
		return nil, nil, ErrInvalidKey
	}
	if len(iv) != aes.BlockSize {
		return nil, nil, ErrInvalidNonce
	}

	block, err := aes.NewCipher(key[:etmKeyHalf])
	if err != nil {
		return nil, nil, fmt.Errorf("create cipher: %w", err)
	}

	var ciphertext []byte
	switch c.mode {
	case modeCBC:
		padded := pkcs7Pad(plaintext, aes.BlockSize)
		ciphertext = make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	case modeCTR:
		ciphertext = make([]byte, len(plaintext))
		cipher.NewCTR(block, iv).XORKeyStream(ciphertext, plaintext)
	}

	tag := c.mac(key[etmKeyHalf:], iv, ciphertext, additionalData)
	return ciphertext, tag, nil
}

// Open verifies the tag in constant time, then decrypts.
func (c *etmCipher) Open(key, iv, ciphertext, tag, additionalData []byte) ([]byte, error) {
	if len(key) != etmKeySize {
		return nil, ErrInvalidKey
	}
	if len(iv) != aes.BlockSize || len(tag) != sha256.Size {
		return nil, ErrAuthenticationFailed
	}

	expected := c.mac(key[etmKeyHalf:], iv, ciphertext, additionalData)
	if !hmac.Equal(expected, tag) {
		return nil, ErrAuthenticationFailed
	}

	block, err := aes.NewCipher(key[:etmKeyHalf])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	switch c.mode {
	case modeCBC:
		if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
			return nil, ErrAuthenticationFailed
		}
		padded := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
		plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
		if err != nil {
			return nil, ErrAuthenticationFailed
		}
		return plaintext, nil
	default:
		plaintext := make([]byte, len(ciphertext))
		cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)
		return plaintext, nil
	}
}

// mac lengths-prefixes every variable part so no two inputs share an encoding.
func (c *etmCipher) mac(macKey, iv, ciphertext, additionalData []byte) []byte {
	h := hmac.New(sha256.New, macKey)
	h.Write([]byte(c.name))
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(additionalData))))
	h.Write(additionalData)
	h.Write(iv)
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(ciphertext))))
	h.Write(ciphertext)
	return h.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrAuthenticationFailed
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrAuthenticationFailed
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrAuthenticationFailed
		}
	}
	return data[:len(data)-n], nil
}
