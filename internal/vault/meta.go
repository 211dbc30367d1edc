package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// verifierPlaintext is sealed at creation and rekey time; opening it proves
// that a derived key matches the store's master password.
var (
	verifierPlaintext = []byte("credman-store-verifier-v1")
	verifierAAD       = []byte("meta/verifier")
)

// EncodeKDFParams builds the KDF parameter map stored in the store metadata.
func EncodeKDFParams(params Argon2Params, salt []byte) map[string]interface{} {
	return map[string]interface{}{
		"memory":      params.Memory,
		"iterations":  params.Iterations,
		"parallelism": params.Parallelism,
		"salt":        base64.StdEncoding.EncodeToString(salt),
	}
}

// DecodeKDFParams extracts the Argon2id parameters and salt from stored metadata.
func DecodeKDFParams(raw map[string]interface{}) (Argon2Params, []byte, error) {
	if raw == nil {
		return Argon2Params{}, nil, fmt.Errorf("missing KDF parameters")
	}

	// Round-trip through JSON to handle float64 map values.
	serialized, err := json.Marshal(raw)
	if err != nil {
		return Argon2Params{}, nil, fmt.Errorf("failed to marshal KDF params: %w", err)
	}

	var decoded struct {
		Argon2Params
		Salt string `json:"salt"`
	}
	if err := json.Unmarshal(serialized, &decoded); err != nil {
		return Argon2Params{}, nil, fmt.Errorf("failed to decode KDF params: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(decoded.Salt)
	if err != nil {
		return Argon2Params{}, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	if len(salt) != SaltSize {
		return Argon2Params{}, nil, fmt.Errorf("invalid salt size: %d", len(salt))
	}
	if err := ValidateArgon2Params(decoded.Argon2Params); err != nil {
		return Argon2Params{}, nil, err
	}

	return decoded.Argon2Params, salt, nil
}

// NewVerifier seals the verifier plaintext under key and returns it base64 encoded.
func (ce *CryptoEngine) NewVerifier(key []byte) (string, error) {
	env, err := ce.Seal(verifierPlaintext, key, verifierAAD)
	if err != nil {
		return "", fmt.Errorf("failed to seal verifier: %w", err)
	}
	return base64.StdEncoding.EncodeToString(EnvelopeToBytes(env)), nil
}

// CheckVerifier opens a stored verifier with key. A key that does not match
// yields ErrDecryptionFailed; a malformed verifier yields ErrInvalidEnvelope.
func (ce *CryptoEngine) CheckVerifier(verifier string, key []byte) error {
	data, err := base64.StdEncoding.DecodeString(verifier)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	env, err := EnvelopeFromBytes(data)
	if err != nil {
		return err
	}

	plaintext, err := ce.Open(env, key, verifierAAD)
	if err != nil {
		return err
	}
	defer Zeroize(plaintext)

	if string(plaintext) != string(verifierPlaintext) {
		return ErrDecryptionFailed
	}
	return nil
}
