package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/vault"
)

// Bucket names
var (
	MetadataBucket = []byte("meta")
	LoginsBucket   = []byte("logins")
	APIKeysBucket  = []byte("api_keys")

	storeInfoKey = []byte("store_info")
)

const (
	storeVersion       = "1.0.0"
	defaultOpenTimeout = 5 * time.Second
)

// BoltStore implements SecretStore on a single bbolt file. Records are sealed
// individually with a key derived from the master password.
type BoltStore struct {
	db      *bbolt.DB
	path    string
	key     []byte
	crypto  *vault.CryptoEngine
	params  vault.Argon2Params
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a BoltStore
type Option func(*BoltStore)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(bs *BoltStore) {
		if logger != nil {
			bs.logger = logger
		}
	}
}

// WithKDFParams sets the Argon2id parameters used when creating or rekeying a store.
func WithKDFParams(params vault.Argon2Params) Option {
	return func(bs *BoltStore) {
		bs.params = params
	}
}

// WithOpenTimeout bounds how long opening waits for another process to release the file.
func WithOpenTimeout(d time.Duration) Option {
	return func(bs *BoltStore) {
		if d > 0 {
			bs.timeout = d
		}
	}
}

// NewBoltStore creates a new, closed store
func NewBoltStore(opts ...Option) *BoltStore {
	bs := &BoltStore{
		params:  vault.DefaultArgon2Params(),
		timeout: defaultOpenTimeout,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(bs)
	}
	bs.crypto = vault.NewCryptoEngine(bs.params, bs.logger)
	return bs
}

// CreateStore creates a new store file protected by password and leaves it open.
func (bs *BoltStore) CreateStore(path, password string) error {
	if bs.IsOpen() {
		return ErrStoreOpen
	}
	if password == "" {
		return ErrEmptyPassword
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w at path: %s", ErrStoreExists, path)
	} else if !os.IsNotExist(err) {
		return storageError("failed to check store path", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return storageError("failed to create store directory", err)
	}

	salt, err := vault.GenerateSalt()
	if err != nil {
		return err
	}
	key, err := bs.crypto.DeriveKey(password, salt)
	if err != nil {
		return fmt.Errorf("failed to derive master key: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: bs.timeout})
	if err != nil {
		vault.Zeroize(key)
		return openError(err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{MetadataBucket, LoginsBucket, APIKeysBucket} {
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return bs.writeMetadata(tx, &domain.StoreMetadata{
			Version:   storeVersion,
			CreatedAt: bs.now(),
		}, salt, key)
	})
	if err != nil {
		vault.Zeroize(key)
		_ = db.Close()
		_ = os.Remove(path)
		return storageError("failed to initialise store", err)
	}

	if err := EnsureFilePermissions(path); err != nil {
		bs.logger.Warn("failed to restrict store permissions", zap.String("path", path), zap.Error(err))
	}

	bs.db = db
	bs.path = path
	bs.key = key
	bs.logger.Info("store created", zap.String("path", path))
	return nil
}

// OpenStore opens an existing store and verifies password against it. A wrong
// password fails with ErrAuthenticationFailed and leaves the file untouched.
func (bs *BoltStore) OpenStore(path, password string) error {
	if bs.IsOpen() {
		return ErrStoreOpen
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w at path: %s", ErrStoreNotFound, path)
	} else if err != nil {
		return storageError("failed to check store path", err)
	}

	if err := EnsureFilePermissions(path); err != nil {
		return storageError("failed to verify store permissions", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: bs.timeout})
	if err != nil {
		return openError(err)
	}

	var key []byte
	err = db.View(func(tx *bbolt.Tx) error {
		metadata, err := readMetadata(tx)
		if err != nil {
			return err
		}

		params, salt, err := vault.DecodeKDFParams(metadata.KDFParams)
		if err != nil {
			return corrupted(err.Error())
		}

		derived, err := vault.NewCryptoEngine(params, bs.logger).DeriveKey(password, salt)
		if err != nil {
			return err
		}

		if err := bs.crypto.CheckVerifier(metadata.Verifier, derived); err != nil {
			vault.Zeroize(derived)
			if errors.Is(err, vault.ErrDecryptionFailed) {
				return ErrAuthenticationFailed
			}
			return corrupted(fmt.Sprintf("invalid verifier: %v", err))
		}

		key = derived
		return nil
	})
	if err != nil {
		_ = db.Close()
		if errors.Is(err, ErrAuthenticationFailed) {
			bs.logger.Warn("master password rejected", zap.String("path", path))
		}
		return err
	}

	bs.db = db
	bs.path = path
	bs.key = key
	bs.logger.Info("store opened", zap.String("path", path))
	return nil
}

// CloseStore closes the store and clears the key material
func (bs *BoltStore) CloseStore() error {
	if !bs.IsOpen() {
		return nil
	}

	vault.Zeroize(bs.key)
	bs.key = nil

	err := bs.db.Close()
	bs.db = nil
	bs.logger.Debug("store closed", zap.String("path", bs.path))
	if err != nil {
		return storageError("failed to close store", err)
	}
	return nil
}

// IsOpen returns true if the store is currently open
func (bs *BoltStore) IsOpen() bool {
	return bs.db != nil
}

// Path returns the path of the last opened or created store file.
func (bs *BoltStore) Path() string {
	return bs.path
}

// Metadata returns the store metadata
func (bs *BoltStore) Metadata() (*domain.StoreMetadata, error) {
	if !bs.IsOpen() {
		return nil, ErrStoreClosed
	}

	var metadata *domain.StoreMetadata
	err := bs.db.View(func(tx *bbolt.Tx) error {
		var err error
		metadata, err = readMetadata(tx)
		return err
	})
	return metadata, err
}

// RekeyStore re-encrypts every record and the verifier under newPassword. The
// whole rewrite happens in one bbolt transaction: either it commits and the
// new password is in effect, or nothing changes and the old one stays valid.
func (bs *BoltStore) RekeyStore(newPassword string) error {
	if !bs.IsOpen() {
		return ErrStoreClosed
	}
	if newPassword == "" {
		return ErrEmptyPassword
	}

	newSalt, err := vault.GenerateSalt()
	if err != nil {
		return err
	}
	newKey, err := bs.crypto.DeriveKey(newPassword, newSalt)
	if err != nil {
		return fmt.Errorf("failed to derive new master key: %w", err)
	}

	err = bs.db.Update(func(tx *bbolt.Tx) error {
		for _, kind := range domain.Kinds() {
			if err := bs.reencryptBucket(tx, kind, newKey); err != nil {
				return err
			}
		}

		metadata, err := readMetadata(tx)
		if err != nil {
			return err
		}
		metadata.UpdatedAt = bs.now()
		return bs.writeMetadata(tx, metadata, newSalt, newKey)
	})
	if err != nil {
		vault.Zeroize(newKey)
		if errors.Is(err, ErrStorage) {
			return err
		}
		return storageError("failed to rekey store", err)
	}

	vault.Zeroize(bs.key)
	bs.key = newKey
	bs.logger.Info("store rekeyed", zap.String("path", bs.path))
	return nil
}

// Rekey opens the store at path with oldPassword, changes it to newPassword and
// closes the store again.
func Rekey(path, oldPassword, newPassword string, opts ...Option) (err error) {
	bs := NewBoltStore(opts...)
	if err := bs.OpenStore(path, oldPassword); err != nil {
		return err
	}
	defer func() {
		if closeErr := bs.CloseStore(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return bs.RekeyStore(newPassword)
}

func (bs *BoltStore) reencryptBucket(tx *bbolt.Tx, kind domain.Kind, newKey []byte) error {
	bucket, err := kindBucket(tx, kind)
	if err != nil {
		return err
	}

	// Collect first: bbolt does not allow mutating a bucket while iterating it.
	type sealed struct {
		name string
		data []byte
	}
	var rewritten []sealed

	err = bucket.ForEach(func(k, v []byte) error {
		rec, err := bs.openRecord(kind, string(k), v, bs.key)
		if err != nil {
			return err
		}
		data, err := bs.sealRecord(kind, string(k), rec, newKey)
		if err != nil {
			return err
		}
		rewritten = append(rewritten, sealed{name: string(k), data: data})
		return nil
	})
	if err != nil {
		return err
	}

	for _, s := range rewritten {
		if err := bucket.Put([]byte(s.name), s.data); err != nil {
			return storageError(fmt.Sprintf("failed to store rekeyed %s %q", kind.Label(), s.name), err)
		}
	}
	return nil
}

func (bs *BoltStore) writeMetadata(tx *bbolt.Tx, metadata *domain.StoreMetadata, salt, key []byte) error {
	verifier, err := bs.crypto.NewVerifier(key)
	if err != nil {
		return err
	}

	metadata.KDFParams = vault.EncodeKDFParams(bs.crypto.Params(), salt)
	metadata.Verifier = verifier

	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	bucket := tx.Bucket(MetadataBucket)
	if bucket == nil {
		return corrupted("missing metadata bucket")
	}
	return bucket.Put(storeInfoKey, data)
}

func readMetadata(tx *bbolt.Tx) (*domain.StoreMetadata, error) {
	for _, name := range [][]byte{MetadataBucket, LoginsBucket, APIKeysBucket} {
		if tx.Bucket(name) == nil {
			return nil, corrupted(fmt.Sprintf("missing required bucket: %s", name))
		}
	}

	data := tx.Bucket(MetadataBucket).Get(storeInfoKey)
	if data == nil {
		return nil, corrupted("missing store metadata")
	}

	var metadata domain.StoreMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, corrupted(fmt.Sprintf("invalid store metadata: %v", err))
	}
	return &metadata, nil
}

func openError(err error) error {
	if errors.Is(err, bbolt.ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrStorage, ErrStoreLocked)
	}
	return storageError("failed to open store database", err)
}

func storageError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, msg, err)
}

func corrupted(detail string) error {
	return fmt.Errorf("%w: %w: %s", ErrStorage, ErrCorrupted, detail)
}
