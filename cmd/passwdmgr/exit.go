package main

import (
	"errors"
	"fmt"

	"github.com/laurinneff/passwd.mgr/internal/models"
	"github.com/laurinneff/passwd.mgr/internal/services/store"
	"github.com/laurinneff/passwd.mgr/internal/storage"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitUnsealed    = 2
	exitNotFound    = 3
	exitInvalidArgs = 4
)

// usageError marks a problem with the command line itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var usage *usageError
	if errors.As(err, &usage) {
		return exitInvalidArgs
	}

	switch models.Code(err) {
	case models.ErrCodeUnsealFailed:
		return exitUnsealed
	case models.ErrCodeNotFound:
		return exitNotFound
	case models.ErrCodeUnsupportedAlgorithm, models.ErrCodeWeakPassphrase:
		return exitInvalidArgs
	}

	if errors.Is(err, storage.ErrFileNotFound) {
		return exitNotFound
	}
	return exitFailure
}

// errorMessage is the single line printed for err. Unseal failures always
// print the same text, whatever went wrong.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrUnsealFailed):
		return models.ErrUnsealFailed.Error()
	case errors.Is(err, store.ErrDatabaseExists):
		return err.Error() + " (use --force to overwrite)"
	case errors.Is(err, storage.ErrFileNotFound):
		return err.Error() + " (create it with 'passwdmgr create')"
	}
	return err.Error()
}
