package vault

import (
	"bytes"
	"errors"
	"testing"
)

func testEngine() *CryptoEngine {
	return NewCryptoEngine(Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}, nil)
}

func testKey(t *testing.T, engine *CryptoEngine, passphrase string) []byte {
	t.Helper()
	salt := make([]byte, SaltSize)
	for i := range salt {
		salt[i] = byte(i)
	}
	key, err := engine.DeriveKey(passphrase, salt)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	return key
}

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	if len(salt1) != SaltSize {
		t.Errorf("Expected salt size %d, got %d", SaltSize, len(salt1))
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate second salt: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("Generated salts should be different")
	}
}

func TestDeriveKey(t *testing.T) {
	engine := testEngine()

	key1 := testKey(t, engine, "test-passphrase-123")
	if len(key1) != KeySize {
		t.Errorf("Expected key size %d, got %d", KeySize, len(key1))
	}

	key2 := testKey(t, engine, "test-passphrase-123")
	if !bytes.Equal(key1, key2) {
		t.Error("Same inputs should produce same key")
	}

	key3 := testKey(t, engine, "different-passphrase")
	if bytes.Equal(key1, key3) {
		t.Error("Different passphrases should produce different keys")
	}

	if _, err := engine.DeriveKey("x", []byte("short")); err == nil {
		t.Error("Expected error for invalid salt size")
	}
}

func TestSealOpen(t *testing.T) {
	engine := testEngine()
	key := testKey(t, engine, "passphrase")
	aad := []byte("logins/github")

	plaintext := []byte(`{"name":"github","password":"hunter2"}`)
	env, err := engine.Seal(plaintext, key, aad)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(env.Ciphertext, []byte("hunter2")) {
		t.Fatal("Ciphertext should not contain plaintext")
	}

	got, err := engine.Open(env, key, aad)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Expected %q, got %q", plaintext, got)
	}
}

func TestOpenFailures(t *testing.T) {
	engine := testEngine()
	key := testKey(t, engine, "passphrase")
	wrongKey := testKey(t, engine, "other")
	aad := []byte("logins/a")

	env, err := engine.Seal([]byte("secret"), key, aad)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := engine.Open(env, wrongKey, aad); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Expected ErrDecryptionFailed for wrong key, got %v", err)
	}
	if _, err := engine.Open(env, key, []byte("logins/b")); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Expected ErrDecryptionFailed for moved envelope, got %v", err)
	}

	tampered := *env
	tampered.Ciphertext = append([]byte(nil), env.Ciphertext...)
	tampered.Ciphertext[0] ^= 0xff
	if _, err := engine.Open(&tampered, key, aad); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Expected ErrDecryptionFailed for tampered data, got %v", err)
	}

	if _, err := engine.Open(env, key[:16], aad); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("Expected ErrInvalidKeySize, got %v", err)
	}

	short := *env
	short.Tag = env.Tag[:8]
	if _, err := engine.Open(&short, key, aad); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("Expected ErrInvalidEnvelope for short tag, got %v", err)
	}
}

func TestEnvelopeSerialization(t *testing.T) {
	engine := testEngine()
	key := testKey(t, engine, "passphrase")

	env, err := engine.Seal([]byte("payload"), key, nil)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	decoded, err := EnvelopeFromBytes(EnvelopeToBytes(env))
	if err != nil {
		t.Fatalf("EnvelopeFromBytes failed: %v", err)
	}
	if !bytes.Equal(decoded.Nonce, env.Nonce) || !bytes.Equal(decoded.Ciphertext, env.Ciphertext) || !bytes.Equal(decoded.Tag, env.Tag) {
		t.Fatal("Decoded envelope does not match original")
	}

	data := EnvelopeToBytes(env)
	if _, err := EnvelopeFromBytes(data[:len(data)-1]); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("Expected ErrInvalidEnvelope for truncated data, got %v", err)
	}
	if _, err := EnvelopeFromBytes(append(data, 0)); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("Expected ErrInvalidEnvelope for trailing data, got %v", err)
	}

	data[0] = 9
	if _, err := EnvelopeFromBytes(data); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("Expected ErrInvalidVersion, got %v", err)
	}
}

func TestZeroize(t *testing.T) {
	data := []byte("sensitive")
	Zeroize(data)
	for i, b := range data {
		if b != 0 {
			t.Errorf("Byte %d not zeroized", i)
		}
	}
}

func TestValidateArgon2Params(t *testing.T) {
	tests := []struct {
		name    string
		params  Argon2Params
		wantErr bool
	}{
		{"defaults", DefaultArgon2Params(), false},
		{"minimum", Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}, false},
		{"memory too low", Argon2Params{Memory: 512, Iterations: 1, Parallelism: 1}, true},
		{"no iterations", Argon2Params{Memory: 1024, Iterations: 0, Parallelism: 1}, true},
		{"no parallelism", Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgon2Params(tt.params)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArgon2Params() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func BenchmarkSeal512B(b *testing.B) {
	engine := testEngine()
	key := make([]byte, KeySize)
	payload := make([]byte, 512)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Seal(payload, key, nil); err != nil {
			b.Fatal(err)
		}
	}
}
