// Package domain defines the core data structures of the credential store.
// It models the two secret kinds, their mutable fields and the naming rules
// shared by every component that creates or renames a secret.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReservedName is the secret name kept for the master password.
const ReservedName = "master"

// Validation errors shared across the store and the batch importer
var (
	// ErrDuplicateName is returned when a secret of the same kind already uses the name
	ErrDuplicateName = errors.New("name already exists")
	// ErrReservedName is returned when a secret would be named "master"
	ErrReservedName = errors.New("name is reserved for the master password")
	// ErrEmptyName is returned when a secret would have an empty name
	ErrEmptyName = errors.New("name cannot be empty")
	// ErrInvalidField is returned when a field is not part of a kind's mutable field set
	ErrInvalidField = errors.New("invalid field for this kind of secret")
	// ErrUnrecognizedKind is returned for an unknown kind discriminator
	ErrUnrecognizedKind = errors.New("kind should be 'login' or 'api'")
)

// Kind discriminates login credentials from API keys. Each kind has its own
// name namespace.
type Kind string

const (
	// KindLogin identifies a LoginCredential
	KindLogin Kind = "login"
	// KindAPI identifies an APIKey
	KindAPI Kind = "api"
)

// Kinds lists every kind in a fixed order.
func Kinds() []Kind {
	return []Kind{KindLogin, KindAPI}
}

// ParseKind converts a textual discriminator into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLogin:
		return KindLogin, nil
	case KindAPI:
		return KindAPI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedKind, s)
	}
}

func (k Kind) String() string {
	return string(k)
}

// Label returns the human readable name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindLogin:
		return "Account"
	case KindAPI:
		return "API Key"
	default:
		return string(k)
	}
}

// Field names a mutable attribute of a secret.
type Field string

const (
	FieldName        Field = "name"
	FieldUsername    Field = "username"
	FieldPassword    Field = "password"
	FieldDescription Field = "description"
	FieldKey         Field = "key"
)

var fieldAliases = map[string]Field{
	"name":        FieldName,
	"secname":     FieldName,
	"username":    FieldUsername,
	"user":        FieldUsername,
	"password":    FieldPassword,
	"pass":        FieldPassword,
	"description": FieldDescription,
	"desc":        FieldDescription,
	"key":         FieldKey,
	"apikey":      FieldKey,
}

// ParseField resolves a field name or one of its short aliases.
func ParseField(s string) (Field, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	return f, nil
}

// FieldsOf returns the mutable field set of a kind.
func FieldsOf(kind Kind) []Field {
	switch kind {
	case KindLogin:
		return []Field{FieldUsername, FieldName, FieldPassword}
	case KindAPI:
		return []Field{FieldUsername, FieldName, FieldDescription, FieldKey}
	default:
		return nil
	}
}

// HasField reports whether field belongs to the mutable field set of kind.
func HasField(kind Kind, field Field) bool {
	for _, f := range FieldsOf(kind) {
		if f == field {
			return true
		}
	}
	return false
}

// ValidateName checks the naming rules every secret must satisfy.
func ValidateName(name string) error {
	if name == ReservedName {
		return ErrReservedName
	}
	if name == "" {
		return ErrEmptyName
	}
	return nil
}

// Filter represents list filtering options
type Filter struct {
	Search       string   `json:"search"`
	SearchTokens []string `json:"search_tokens"`
}

// StoreMetadata is persisted in the metadata bucket of every store file
type StoreMetadata struct {
	Version   string                 `json:"version"`
	KDFParams map[string]interface{} `json:"kdf_params"`
	Verifier  string                 `json:"verifier"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
}
