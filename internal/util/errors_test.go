package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vault-cli/credman/internal/batch"
	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic", errors.New("boom"), ExitError},
		{"not found", store.ErrRecordNotFound, ExitError},
		{"auth failed", fmt.Errorf("open: %w", store.ErrAuthenticationFailed), ExitAuthFailed},
		{"locked", fmt.Errorf("%w: %w", store.ErrStorage, store.ErrStoreLocked), ExitStoreLocked},
		{"corrupted", fmt.Errorf("%w: %w", store.ErrStorage, store.ErrCorrupted), ExitIntegrityErr},
		{"storage", fmt.Errorf("%w: disk", store.ErrStorage), ExitIntegrityErr},
		{"duplicate", domain.ErrDuplicateName, ExitInvalidInput},
		{"reserved", domain.ErrReservedName, ExitInvalidInput},
		{"field", domain.ErrInvalidField, ExitInvalidInput},
		{"field count", batch.ErrFieldCountMismatch, ExitInvalidInput},
		{"input", fmt.Errorf("%w: entries do not match", ErrInvalidInput), ExitInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ExitOK, Report(&buf, nil))
	assert.Empty(t, buf.String())

	code := Report(&buf, fmt.Errorf("%w: %w: missing bucket", store.ErrStorage, store.ErrCorrupted))
	assert.Equal(t, ExitIntegrityErr, code)
	assert.Contains(t, buf.String(), "Error: storage error: store data is corrupted: missing bucket")
	assert.Contains(t, buf.String(), "backup")
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ctx"))

	err := WrapError(store.ErrRecordNotFound, "get")
	assert.EqualError(t, err, "get: secret not found")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}
