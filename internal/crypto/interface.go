package crypto

// Cipher is a symmetric cipher with integrity protection. AEAD modes carry
// their tag inside the ciphertext; encrypt-then-MAC modes return it
// separately.
type Cipher interface {
	// Name returns the canonical algorithm identifier.
	Name() string

	// KeySize is the exact key length Seal and Open expect.
	KeySize() int

	// NonceSize is the exact nonce (IV) length Seal and Open expect.
	NonceSize() int

	// TagSize is the length of the authentication tag.
	TagSize() int

	// SelfAuthenticating reports whether the tag is embedded in the ciphertext.
	SelfAuthenticating() bool

	// Seal encrypts and authenticates plaintext and additionalData.
	// tag is nil for self-authenticating ciphers.
	Seal(key, nonce, plaintext, additionalData []byte) (ciphertext, tag []byte, err error)

	// Open verifies and decrypts. Any rejection is ErrAuthenticationFailed.
	Open(key, nonce, ciphertext, tag, additionalData []byte) ([]byte, error)
}

// Provider defines the interface for cryptographic operations.
type Provider interface {
	// Cipher resolves an algorithm identifier or alias.
	Cipher(algorithm string) (Cipher, error)

	// Algorithms lists the canonical identifiers in sorted order.
	Algorithms() []string

	// Aliases maps each accepted alias to its canonical identifier.
	Aliases() map[string]string

	// DeriveKey stretches a passphrase into a key of keyLen bytes.
	DeriveKey(passphrase string, salt []byte, params KDFParams, keyLen int) ([]byte, error)
}
