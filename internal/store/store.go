package store

import (
	"errors"

	"github.com/vault-cli/credman/internal/domain"
)

// Error variables for store operations
var (
	// ErrStoreNotFound is returned when the specified store file does not exist
	ErrStoreNotFound = errors.New("store not found")
	// ErrStoreExists is returned when attempting to create a store over an existing file
	ErrStoreExists = errors.New("store already exists")
	// ErrStoreClosed is returned when an operation needs an open store
	ErrStoreClosed = errors.New("store is not open")
	// ErrStoreOpen is returned when creating or opening an already open store
	ErrStoreOpen = errors.New("store is already open")
	// ErrStoreLocked is returned when another process holds the store file
	ErrStoreLocked = errors.New("store is locked by another process")
	// ErrAuthenticationFailed is returned when the master password does not decrypt the store
	ErrAuthenticationFailed = errors.New("could not decrypt store, check the master password and try again")
	// ErrEmptyPassword is returned when a master password is empty
	ErrEmptyPassword = errors.New("master password cannot be empty")
	// ErrRecordNotFound is returned when no secret of the kind has the name
	ErrRecordNotFound = errors.New("secret not found")
	// ErrStorage wraps every failure of the underlying storage engine
	ErrStorage = errors.New("storage error")
	// ErrCorrupted is returned, together with ErrStorage, when the file layout is invalid
	ErrCorrupted = errors.New("store data is corrupted")
)

// Records is the set of record operations available on an open store
type Records interface {
	Exists(kind domain.Kind, name string) (bool, error)
	Insert(secret domain.Secret) error
	UpdateField(kind domain.Kind, name string, field domain.Field, value string) error
	Delete(kind domain.Kind, name string) error
	Get(kind domain.Kind, name string) (domain.Secret, error)
	List(kind domain.Kind, filter *domain.Filter) ([]domain.Secret, error)
}

// SecretStore defines the encrypted store lifecycle plus record operations
type SecretStore interface {
	Records

	CreateStore(path, password string) error
	OpenStore(path, password string) error
	CloseStore() error
	IsOpen() bool
	RekeyStore(newPassword string) error
	Export(path string) error
}

var _ SecretStore = (*BoltStore)(nil)
