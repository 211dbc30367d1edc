// Package util maps errors from the credential store to process exit codes
// and user-facing messages.
package util

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vault-cli/credman/internal/batch"
	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
)

// Exit codes
const (
	ExitOK           = 0
	ExitError        = 1
	ExitInvalidInput = 2
	ExitStoreLocked  = 3
	ExitIntegrityErr = 4
	ExitAuthFailed   = 5
)

// ErrInvalidInput marks errors caused by bad user input
var ErrInvalidInput = errors.New("invalid input")

// ExitCode returns the process exit code for err
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, store.ErrAuthenticationFailed):
		return ExitAuthFailed
	case errors.Is(err, store.ErrStoreLocked):
		return ExitStoreLocked
	case errors.Is(err, store.ErrCorrupted), errors.Is(err, store.ErrStorage):
		return ExitIntegrityErr
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, store.ErrEmptyPassword),
		errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrReservedName),
		errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrInvalidField),
		errors.Is(err, domain.ErrUnrecognizedKind),
		errors.Is(err, batch.ErrFieldCountMismatch):
		return ExitInvalidInput
	default:
		return ExitError
	}
}

// Report writes err to w and returns its exit code
func Report(w io.Writer, err error) int {
	code := ExitCode(err)
	if code == ExitOK {
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	if errors.Is(err, store.ErrCorrupted) {
		fmt.Fprintln(w, "The store file may be damaged. Restore it from a backup or export.")
	}
	return code
}

// ExitWithCode exits the program with the specified code and message
func ExitWithCode(code int, format string, args ...interface{}) {
	if format != "" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	os.Exit(code)
}

// HandleError reports err on stderr and exits with the matching code
func HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(Report(os.Stderr, err))
}

// WrapError wraps an error with additional context
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
