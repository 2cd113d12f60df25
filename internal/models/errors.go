package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeMalformedRecord      = "MALFORMED_RECORD"
	ErrCodeUnsupportedAlgorithm = "UNSUPPORTED_ALGORITHM"
	ErrCodeWeakPassphrase       = "WEAK_PASSPHRASE"
	ErrCodeUnsealFailed         = "UNSEAL_FAILED"
	ErrCodeSiteExists           = "SITE_EXISTS"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// Sentinel errors
var (
	ErrNotFound             = errors.New("site not found")
	ErrMalformedRecord      = errors.New("malformed record")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrWeakPassphrase       = errors.New("passphrase must not be empty")
	ErrSiteExists           = errors.New("site already exists")

	// ErrUnsealFailed covers a wrong passphrase, a tampered file and a
	// payload that decrypts but does not parse. It never wraps a cause.
	ErrUnsealFailed = errors.New("wrong password or damaged database")
)

// SiteError reports a failure tied to a named site.
type SiteError struct {
	Name string
	Err  error
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("site %q: %v", e.Name, e.Err)
}

func (e *SiteError) Unwrap() error {
	return e.Err
}

// RecordError describes why a serialized database was rejected.
type RecordError struct {
	Index  int // -1 when the failure is not tied to an entry
	Reason string
}

func (e *RecordError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("malformed record: entry %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("malformed record: %s", e.Reason)
}

func (e *RecordError) Unwrap() error {
	return ErrMalformedRecord
}

// AlgorithmError is returned when a cipher or KDF identifier cannot be resolved.
type AlgorithmError struct {
	Algorithm string
}

func (e *AlgorithmError) Error() string {
	return fmt.Sprintf("unsupported algorithm %q", e.Algorithm)
}

func (e *AlgorithmError) Unwrap() error {
	return ErrUnsupportedAlgorithm
}

// Code maps an error to its error code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsealFailed):
		return ErrCodeUnsealFailed
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrMalformedRecord):
		return ErrCodeMalformedRecord
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return ErrCodeUnsupportedAlgorithm
	case errors.Is(err, ErrWeakPassphrase):
		return ErrCodeWeakPassphrase
	case errors.Is(err, ErrSiteExists):
		return ErrCodeSiteExists
	default:
		return ErrCodeInternal
	}
}
