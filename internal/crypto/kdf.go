package crypto

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/laurinneff/passwd.mgr/internal/models"
)

// Key derivation function names.
const (
	KDFPBKDF2   = "pbkdf2-sha256"
	KDFScrypt   = "scrypt"
	KDFArgon2id = "argon2id"
)

// PBKDF2 parameters
const (
	DefaultIterations   = 600000
	MinPBKDF2Iterations = 1000
	MaxPBKDF2Iterations = 10000000
)

// Scrypt parameters
const (
	ScryptN      = 32768 // CPU/memory cost parameter
	ScryptR      = 8     // block size parameter
	ScryptP      = 1     // parallelization parameter
	MinScryptN   = 1 << 4
	MaxScryptN   = 1 << 20
	maxScryptR   = 32
	maxScryptP   = 16
	maxScryptMem = 1 << 30
)

// Argon2id parameters
const (
	Argon2Time       = 3
	Argon2MemoryKiB  = 64 * 1024
	Argon2Threads    = 4
	maxArgon2Time    = 16
	maxArgon2Memory  = 1 << 20 // 1 GiB in KiB
	maxArgon2Threads = 64
)

// KDFParams names a key derivation function and its work factor. It is
// stored next to the salt in every sealed container.
type KDFParams struct {
	Name       string `json:"name"`
	Iterations int    `json:"iterations,omitempty"`
	N          int    `json:"n,omitempty"`
	R          int    `json:"r,omitempty"`
	P          int    `json:"p,omitempty"`
	Time       uint32 `json:"time,omitempty"`
	MemoryKiB  uint32 `json:"memory_kib,omitempty"`
	Threads    uint8  `json:"threads,omitempty"`
}

// DefaultKDFParams returns PBKDF2-SHA256 with the default iteration count.
func DefaultKDFParams() KDFParams {
	return KDFParams{Name: KDFPBKDF2, Iterations: DefaultIterations}
}

// DefaultScryptParams returns scrypt with N=32768, r=8, p=1.
func DefaultScryptParams() KDFParams {
	return KDFParams{Name: KDFScrypt, N: ScryptN, R: ScryptR, P: ScryptP}
}

// DefaultArgon2idParams returns argon2id with 3 passes over 64 MiB.
func DefaultArgon2idParams() KDFParams {
	return KDFParams{Name: KDFArgon2id, Time: Argon2Time, MemoryKiB: Argon2MemoryKiB, Threads: Argon2Threads}
}

// Validate checks the work factor against hard bounds. The upper bounds keep
// a crafted container from pinning the CPU or exhausting memory.
func (p KDFParams) Validate() error {
	switch p.Name {
	case KDFPBKDF2:
		if p.Iterations < MinPBKDF2Iterations || p.Iterations > MaxPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 iterations %d outside [%d, %d]",
				ErrInvalidKDFParams, p.Iterations, MinPBKDF2Iterations, MaxPBKDF2Iterations)
		}
	case KDFScrypt:
		if p.N < MinScryptN || p.N > MaxScryptN || p.N&(p.N-1) != 0 {
			return fmt.Errorf("%w: scrypt N must be a power of two in [%d, %d]",
				ErrInvalidKDFParams, MinScryptN, MaxScryptN)
		}
		if p.R < 1 || p.R > maxScryptR || p.P < 1 || p.P > maxScryptP {
			return fmt.Errorf("%w: scrypt r=%d p=%d", ErrInvalidKDFParams, p.R, p.P)
		}
		if 128*p.N*p.R > maxScryptMem {
			return fmt.Errorf("%w: scrypt memory exceeds 1 GiB", ErrInvalidKDFParams)
		}
	case KDFArgon2id:
		if p.Time < 1 || p.Time > maxArgon2Time {
			return fmt.Errorf("%w: argon2id time %d", ErrInvalidKDFParams, p.Time)
		}
		if p.Threads < 1 || p.Threads > maxArgon2Threads {
			return fmt.Errorf("%w: argon2id threads %d", ErrInvalidKDFParams, p.Threads)
		}
		if p.MemoryKiB < 8*uint32(p.Threads) || p.MemoryKiB > maxArgon2Memory {
			return fmt.Errorf("%w: argon2id memory %d KiB", ErrInvalidKDFParams, p.MemoryKiB)
		}
	default:
		return &models.AlgorithmError{Algorithm: p.Name}
	}
	return nil
}

// CheckPassphrase rejects passphrases that are empty or only whitespace.
func CheckPassphrase(passphrase string) error {
	if strings.TrimSpace(passphrase) == "" {
		return models.ErrWeakPassphrase
	}
	return nil
}

// normalizePassphrase maps the passphrase to Unicode NFKC so the same
// characters typed on different platforms give the same key.
func normalizePassphrase(s string) []byte {
	return []byte(norm.NFKC.String(s))
}

func deriveKey(passphrase string, salt []byte, params KDFParams, keyLen int) ([]byte, error) {
	if err := CheckPassphrase(passphrase); err != nil {
		return nil, err
	}
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSalt, len(salt))
	}
	if keyLen <= 0 {
		return nil, ErrInvalidKey
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	secret := normalizePassphrase(passphrase)

	switch params.Name {
	case KDFScrypt:
		key, err := scrypt.Key(secret, salt, params.N, params.R, params.P, keyLen)
		if err != nil {
			return nil, fmt.Errorf("scrypt key derivation: %w", err)
		}
		return key, nil
	case KDFArgon2id:
		return argon2.IDKey(secret, salt, params.Time, params.MemoryKiB, params.Threads, uint32(keyLen)), nil
	default:
		return pbkdf2.Key(secret, salt, params.Iterations, keyLen, sha256.New), nil
	}
}
