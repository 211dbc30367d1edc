package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/vault"
)

// record is the plaintext payload sealed under each bucket key. Exactly one of
// Login and API is set, matching Kind.
type record struct {
	ID        string                  `json:"id"`
	Kind      domain.Kind             `json:"kind"`
	Login     *domain.LoginCredential `json:"login,omitempty"`
	API       *domain.APIKey          `json:"api,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func newRecord(secret domain.Secret, now time.Time) (*record, error) {
	rec := &record{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := rec.set(secret); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *record) set(secret domain.Secret) error {
	secret, err := domain.Concrete(secret)
	if err != nil {
		return err
	}

	r.Kind = secret.Kind()
	r.Login, r.API = nil, nil
	switch s := secret.(type) {
	case domain.LoginCredential:
		r.Login = &s
	case domain.APIKey:
		r.API = &s
	}
	return nil
}

func (r *record) secret() (domain.Secret, error) {
	switch {
	case r.Kind == domain.KindLogin && r.Login != nil:
		return *r.Login, nil
	case r.Kind == domain.KindAPI && r.API != nil:
		return *r.API, nil
	default:
		return nil, corrupted(fmt.Sprintf("record %s has no %s payload", r.ID, r.Kind))
	}
}

// Exists reports whether a secret of kind named name is stored.
func (bs *BoltStore) Exists(kind domain.Kind, name string) (bool, error) {
	if !bs.IsOpen() {
		return false, ErrStoreClosed
	}

	var found bool
	err := bs.db.View(func(tx *bbolt.Tx) error {
		bucket, err := kindBucket(tx, kind)
		if err != nil {
			return err
		}
		found = bucket.Get([]byte(name)) != nil
		return nil
	})
	return found, err
}

// Insert stores a new secret. The name must be non-empty, must not be the
// reserved name and must be unused among secrets of the same kind.
func (bs *BoltStore) Insert(secret domain.Secret) error {
	if !bs.IsOpen() {
		return ErrStoreClosed
	}
	secret, err := domain.Concrete(secret)
	if err != nil {
		return err
	}

	kind, name := secret.Kind(), secret.GetName()
	if err := domain.ValidateName(name); err != nil {
		return err
	}

	err = bs.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := kindBucket(tx, kind)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(name)) != nil {
			return duplicate(kind, name)
		}

		rec, err := newRecord(secret, bs.now())
		if err != nil {
			return err
		}
		data, err := bs.sealRecord(kind, name, rec, bs.key)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(name), data); err != nil {
			return storageError("failed to store secret", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	bs.logger.Debug("secret added", zap.Stringer("kind", kind), zap.String("name", name))
	return nil
}

// UpdateField replaces one field of a stored secret. Renaming is subject to
// the same naming rules as Insert; renaming a secret to its current name is a
// no-op.
func (bs *BoltStore) UpdateField(kind domain.Kind, name string, field domain.Field, value string) error {
	if !bs.IsOpen() {
		return ErrStoreClosed
	}

	err := bs.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := kindBucket(tx, kind)
		if err != nil {
			return err
		}

		data := bucket.Get([]byte(name))
		if data == nil {
			return notFound(kind, name)
		}
		if !domain.HasField(kind, field) {
			return fmt.Errorf("%w: %q is not a field of %s", domain.ErrInvalidField, field, kind.Label())
		}

		newName := name
		if field == domain.FieldName {
			if value == name {
				return nil
			}
			if err := domain.ValidateName(value); err != nil {
				return err
			}
			if bucket.Get([]byte(value)) != nil {
				return duplicate(kind, value)
			}
			newName = value
		}

		rec, err := bs.openRecord(kind, name, data, bs.key)
		if err != nil {
			return err
		}
		current, err := rec.secret()
		if err != nil {
			return err
		}
		updated, err := current.With(field, value)
		if err != nil {
			return err
		}
		if err := rec.set(updated); err != nil {
			return err
		}
		rec.UpdatedAt = bs.now()

		sealed, err := bs.sealRecord(kind, newName, rec, bs.key)
		if err != nil {
			return err
		}
		if newName != name {
			if err := bucket.Delete([]byte(name)); err != nil {
				return storageError("failed to remove renamed secret", err)
			}
		}
		if err := bucket.Put([]byte(newName), sealed); err != nil {
			return storageError("failed to store secret", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	bs.logger.Debug("secret updated",
		zap.Stringer("kind", kind),
		zap.String("name", name),
		zap.String("field", string(field)))
	return nil
}

// Delete removes the secret of kind named name
func (bs *BoltStore) Delete(kind domain.Kind, name string) error {
	if !bs.IsOpen() {
		return ErrStoreClosed
	}

	err := bs.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := kindBucket(tx, kind)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(name)) == nil {
			return notFound(kind, name)
		}
		if err := bucket.Delete([]byte(name)); err != nil {
			return storageError("failed to delete secret", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	bs.logger.Debug("secret deleted", zap.Stringer("kind", kind), zap.String("name", name))
	return nil
}

// Get returns the secret of kind named name
func (bs *BoltStore) Get(kind domain.Kind, name string) (domain.Secret, error) {
	if !bs.IsOpen() {
		return nil, ErrStoreClosed
	}

	var secret domain.Secret
	err := bs.db.View(func(tx *bbolt.Tx) error {
		bucket, err := kindBucket(tx, kind)
		if err != nil {
			return err
		}
		data := bucket.Get([]byte(name))
		if data == nil {
			return notFound(kind, name)
		}

		rec, err := bs.openRecord(kind, name, data, bs.key)
		if err != nil {
			return err
		}
		secret, err = rec.secret()
		return err
	})
	return secret, err
}

// List returns every secret of kind that passes filter, ordered by name.
// A nil filter returns all of them.
func (bs *BoltStore) List(kind domain.Kind, filter *domain.Filter) ([]domain.Secret, error) {
	if !bs.IsOpen() {
		return nil, ErrStoreClosed
	}

	secrets := []domain.Secret{}
	err := bs.forEachRecord(kind, func(rec *record) error {
		secret, err := rec.secret()
		if err != nil {
			return err
		}
		if vault.MatchesFilter(secret, filter) {
			secrets = append(secrets, secret)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return secrets, nil
}

// forEachRecord decrypts every record of kind in key order.
func (bs *BoltStore) forEachRecord(kind domain.Kind, fn func(rec *record) error) error {
	return bs.db.View(func(tx *bbolt.Tx) error {
		bucket, err := kindBucket(tx, kind)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			rec, err := bs.openRecord(kind, string(k), v, bs.key)
			if err != nil {
				return err
			}
			return fn(rec)
		})
	})
}

func (bs *BoltStore) sealRecord(kind domain.Kind, name string, rec *record, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal secret: %w", err)
	}
	defer vault.Zeroize(plaintext)

	env, err := bs.crypto.Seal(plaintext, key, recordAAD(kind, name))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}
	return vault.EnvelopeToBytes(env), nil
}

func (bs *BoltStore) openRecord(kind domain.Kind, name string, data, key []byte) (*record, error) {
	env, err := vault.EnvelopeFromBytes(data)
	if err != nil {
		return nil, corrupted(fmt.Sprintf("%s %q: %v", kind.Label(), name, err))
	}

	plaintext, err := bs.crypto.Open(env, key, recordAAD(kind, name))
	if err != nil {
		if errors.Is(err, vault.ErrDecryptionFailed) {
			return nil, ErrAuthenticationFailed
		}
		return nil, corrupted(fmt.Sprintf("%s %q: %v", kind.Label(), name, err))
	}
	defer vault.Zeroize(plaintext)

	var rec record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return nil, corrupted(fmt.Sprintf("%s %q: %v", kind.Label(), name, err))
	}
	if rec.Kind != kind {
		return nil, corrupted(fmt.Sprintf("%s %q is stored as %s", kind.Label(), name, rec.Kind))
	}
	return &rec, nil
}

// recordAAD binds a sealed record to its bucket and key, so a ciphertext
// moved to another name or kind fails to open.
func recordAAD(kind domain.Kind, name string) []byte {
	return []byte(string(kind) + "/" + name)
}

func kindBucket(tx *bbolt.Tx, kind domain.Kind) (*bbolt.Bucket, error) {
	var name []byte
	switch kind {
	case domain.KindLogin:
		name = LoginsBucket
	case domain.KindAPI:
		name = APIKeysBucket
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnrecognizedKind, kind)
	}

	bucket := tx.Bucket(name)
	if bucket == nil {
		return nil, corrupted(fmt.Sprintf("missing required bucket: %s", name))
	}
	return bucket, nil
}

func notFound(kind domain.Kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrRecordNotFound, kind.Label(), name)
}

func duplicate(kind domain.Kind, name string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrDuplicateName, kind.Label(), name)
}
