package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

const (
	KeySize   = 32
	SaltSize  = 32
	nonceSize = 12
	tagSize   = 16

	EnvelopeVersion = 2

	// slowDerivation is logged as a hint to lower the KDF cost.
	slowDerivation = time.Second
)

var (
	ErrInvalidEnvelope  = errors.New("invalid envelope format")
	ErrInvalidVersion   = errors.New("unsupported envelope version")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidKeySize   = errors.New("invalid key size")
)

// Argon2Params are the Argon2id cost parameters of a store. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32 `json:"memory" yaml:"memory"`
	Iterations  uint32 `json:"iterations" yaml:"iterations"`
	Parallelism uint8  `json:"parallelism" yaml:"parallelism"`
}

// DefaultArgon2Params returns 64 MiB, 3 passes, 4 lanes.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

var paramBounds = []struct {
	name     string
	value    func(Argon2Params) uint64
	min, max uint64
}{
	{"memory", func(p Argon2Params) uint64 { return uint64(p.Memory) }, 1024, 1024 * 1024},
	{"iterations", func(p Argon2Params) uint64 { return uint64(p.Iterations) }, 1, 100},
	{"parallelism", func(p Argon2Params) uint64 { return uint64(p.Parallelism) }, 1, 254},
}

// ValidateArgon2Params checks every parameter against its allowed range.
func ValidateArgon2Params(params Argon2Params) error {
	for _, b := range paramBounds {
		if v := b.value(params); v < b.min || v > b.max {
			return fmt.Errorf("%s parameter %d out of range [%d, %d]", b.name, v, b.min, b.max)
		}
	}
	return nil
}

// Envelope is one sealed value.
type Envelope struct {
	Version    uint8
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// CryptoEngine derives store keys and seals record payloads.
type CryptoEngine struct {
	params Argon2Params
	logger *zap.Logger
}

// NewCryptoEngine creates an engine deriving keys with params. A nil logger
// disables logging.
func NewCryptoEngine(params Argon2Params, logger *zap.Logger) *CryptoEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CryptoEngine{params: params, logger: logger}
}

// Params returns the KDF parameters used by the engine.
func (ce *CryptoEngine) Params() Argon2Params {
	return ce.params
}

// GenerateSalt returns a fresh per-store salt.
func GenerateSalt() ([]byte, error) {
	return randomBytes(SaltSize, "salt")
}

func randomBytes(n int, what string) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", what, err)
	}
	return b, nil
}

// DeriveKey derives the store key from the master password.
func (ce *CryptoEngine) DeriveKey(password string, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("invalid salt size: expected %d, got %d", SaltSize, len(salt))
	}

	start := time.Now()
	p := ce.params
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, KeySize)

	took := time.Since(start)
	if took > slowDerivation {
		ce.logger.Warn("slow key derivation, consider lowering the kdf settings", zap.Duration("took", took))
	} else {
		ce.logger.Debug("key derived", zap.Duration("took", took))
	}
	return key, nil
}

func aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-256-GCM. aad binds the envelope to where
// it is stored and must be passed again to Open.
func (ce *CryptoEngine) Seal(plaintext, key, aad []byte) (*Envelope, error) {
	gcm, err := aead(key)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(nonceSize, "nonce")
	if err != nil {
		return nil, err
	}

	out := gcm.Seal(nil, nonce, plaintext, aad)
	split := len(out) - tagSize
	return &Envelope{
		Version:    EnvelopeVersion,
		Nonce:      nonce,
		Ciphertext: out[:split],
		Tag:        out[split:],
	}, nil
}

// Open decrypts env. A wrong key, a different aad and tampered bytes all
// yield ErrDecryptionFailed.
func (ce *CryptoEngine) Open(env *Envelope, key, aad []byte) ([]byte, error) {
	if env.Version != EnvelopeVersion {
		return nil, ErrInvalidVersion
	}
	if len(env.Nonce) != nonceSize || len(env.Tag) != tagSize {
		return nil, fmt.Errorf("%w: nonce %d bytes, tag %d bytes", ErrInvalidEnvelope, len(env.Nonce), len(env.Tag))
	}

	gcm, err := aead(key)
	if err != nil {
		return nil, err
	}

	sealed := append(append(make([]byte, 0, len(env.Ciphertext)+tagSize), env.Ciphertext...), env.Tag...)
	plaintext, err := gcm.Open(nil, env.Nonce, sealed, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Zeroize overwrites key material in place.
func Zeroize(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// EnvelopeToBytes serializes an envelope as version(1) followed by the
// length-prefixed nonce, ciphertext and tag.
func EnvelopeToBytes(envelope *Envelope) []byte {
	buf := make([]byte, 0, 1+3*4+len(envelope.Nonce)+len(envelope.Ciphertext)+len(envelope.Tag))
	buf = append(buf, envelope.Version)
	buf = appendChunk(buf, envelope.Nonce)
	buf = appendChunk(buf, envelope.Ciphertext)
	buf = appendChunk(buf, envelope.Tag)
	return buf
}

// EnvelopeFromBytes deserializes an envelope from bytes
func EnvelopeFromBytes(data []byte) (*Envelope, error) {
	if len(data) < 1+3*4 {
		return nil, ErrInvalidEnvelope
	}
	if data[0] != EnvelopeVersion {
		return nil, ErrInvalidVersion
	}

	env := &Envelope{Version: data[0]}
	rest := data[1:]

	var err error
	if env.Nonce, rest, err = readChunk(rest); err != nil {
		return nil, err
	}
	if env.Ciphertext, rest, err = readChunk(rest); err != nil {
		return nil, err
	}
	if env.Tag, rest, err = readChunk(rest); err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrInvalidEnvelope
	}
	return env, nil
}

func appendChunk(buf, chunk []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(chunk)))
	return append(buf, chunk...)
}

func readChunk(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, ErrInvalidEnvelope
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(n) > uint64(len(data)) {
		return nil, nil, ErrInvalidEnvelope
	}
	chunk := make([]byte, n)
	copy(chunk, data[:n])
	return chunk, data[n:], nil
}
