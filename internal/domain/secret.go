package domain

import "fmt"

// Secret is either a LoginCredential or an APIKey. Only the two record shapes
// of this package implement it; pointers to them do too, and Concrete turns
// those back into values.
type Secret interface {
	Kind() Kind
	GetName() string
	// Get returns the value of a field from the kind's field set.
	Get(field Field) (string, error)
	// With returns a copy of the secret with one field replaced.
	With(field Field, value string) (Secret, error)
	isSecret()
}

// LoginCredential represents a stored account login
type LoginCredential struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIKey represents a stored API key
type APIKey struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Description string `json:"description"`
	Key         string `json:"key"`
}

func (LoginCredential) isSecret() {}
func (APIKey) isSecret()          {}

// Kind implements Secret.
func (LoginCredential) Kind() Kind { return KindLogin }

// Kind implements Secret.
func (APIKey) Kind() Kind { return KindAPI }

// GetName implements Secret.
func (l LoginCredential) GetName() string { return l.Name }

// GetName implements Secret.
func (a APIKey) GetName() string { return a.Name }

func (l LoginCredential) String() string { return l.Name }
func (a APIKey) String() string          { return a.Name }

// Get implements Secret.
func (l LoginCredential) Get(field Field) (string, error) {
	switch field {
	case FieldName:
		return l.Name, nil
	case FieldUsername:
		return l.Username, nil
	case FieldPassword:
		return l.Password, nil
	default:
		return "", invalidField(KindLogin, field)
	}
}

// With implements Secret.
func (l LoginCredential) With(field Field, value string) (Secret, error) {
	switch field {
	case FieldName:
		l.Name = value
	case FieldUsername:
		l.Username = value
	case FieldPassword:
		l.Password = value
	default:
		return nil, invalidField(KindLogin, field)
	}
	return l, nil
}

// Get implements Secret.
func (a APIKey) Get(field Field) (string, error) {
	switch field {
	case FieldName:
		return a.Name, nil
	case FieldUsername:
		return a.Username, nil
	case FieldDescription:
		return a.Description, nil
	case FieldKey:
		return a.Key, nil
	default:
		return "", invalidField(KindAPI, field)
	}
}

// With implements Secret.
func (a APIKey) With(field Field, value string) (Secret, error) {
	switch field {
	case FieldName:
		a.Name = value
	case FieldUsername:
		a.Username = value
	case FieldDescription:
		a.Description = value
	case FieldKey:
		a.Key = value
	default:
		return nil, invalidField(KindAPI, field)
	}
	return a, nil
}

// Concrete returns secret as a LoginCredential or APIKey value, dereferencing
// pointers. A nil secret or nil pointer is an error.
func Concrete(secret Secret) (Secret, error) {
	switch s := secret.(type) {
	case LoginCredential, APIKey:
		return s, nil
	case *LoginCredential:
		if s != nil {
			return *s, nil
		}
	case *APIKey:
		if s != nil {
			return *s, nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported secret %T", ErrUnrecognizedKind, secret)
}

func invalidField(kind Kind, field Field) error {
	return fmt.Errorf("%w: %q is not a field of %s", ErrInvalidField, field, kind.Label())
}

// Names extracts the names of secrets in order.
func Names(secrets []Secret) []string {
	names := make([]string, 0, len(secrets))
	for _, s := range secrets {
		names = append(names, s.GetName())
	}
	return names
}
