package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/vault"
)

const testPassword = "correct horse battery staple"

var fastParams = vault.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}

func newTestStore(opts ...Option) *BoltStore {
	return NewBoltStore(append([]Option{WithKDFParams(fastParams)}, opts...)...)
}

// createTestStore creates an open store in a temp dir and closes it when the
// test ends.
func createTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "creds.db")
	bs := newTestStore()
	require.NoError(t, bs.CreateStore(path, testPassword))
	t.Cleanup(func() { _ = bs.CloseStore() })
	return bs, path
}

func login(name, username, password string) domain.LoginCredential {
	return domain.LoginCredential{Name: name, Username: username, Password: password}
}

func apiKey(name, username, description, key string) domain.APIKey {
	return domain.APIKey{Name: name, Username: username, Description: description, Key: key}
}
