package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vault-cli/credman/internal/domain"
)

// ExportedSecret is one secret in a plaintext export.
type ExportedSecret struct {
	ID        string        `json:"id"`
	Secret    domain.Secret `json:"secret"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot is the plaintext export of a whole store.
type Snapshot struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Logins     []ExportedSecret `json:"logins"`
	APIKeys    []ExportedSecret `json:"api_keys"`
}

// Snapshot decrypts every record of the store.
func (bs *BoltStore) Snapshot() (*Snapshot, error) {
	if !bs.IsOpen() {
		return nil, ErrStoreClosed
	}

	snap := &Snapshot{
		Version:    storeVersion,
		ExportedAt: bs.now(),
		Logins:     []ExportedSecret{},
		APIKeys:    []ExportedSecret{},
	}

	for _, kind := range domain.Kinds() {
		err := bs.forEachRecord(kind, func(rec *record) error {
			secret, err := rec.secret()
			if err != nil {
				return err
			}
			exported := ExportedSecret{
				ID:        rec.ID,
				Secret:    secret,
				CreatedAt: rec.CreatedAt,
				UpdatedAt: rec.UpdatedAt,
			}
			if kind == domain.KindLogin {
				snap.Logins = append(snap.Logins, exported)
			} else {
				snap.APIKeys = append(snap.APIKeys, exported)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Export writes a plaintext JSON snapshot of the store to path. The file is
// written atomically and readable by the owner only.
func (bs *BoltStore) Export(path string) error {
	snap, err := bs.Snapshot()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	if err := AtomicWriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	bs.logger.Info("store exported",
		zap.String("path", path),
		zap.Int("logins", len(snap.Logins)),
		zap.Int("api_keys", len(snap.APIKeys)))
	return nil
}
