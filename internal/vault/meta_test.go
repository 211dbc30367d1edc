package vault

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKDFParamsRoundTripThroughJSON(t *testing.T) {
	params := Argon2Params{Memory: 2048, Iterations: 2, Parallelism: 1}
	salt, err := GenerateSalt()
	require.NoError(t, err)

	// Simulate the metadata being persisted and read back.
	raw, err := json.Marshal(EncodeKDFParams(params, salt))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	gotParams, gotSalt, err := DecodeKDFParams(decoded)
	require.NoError(t, err)
	assert.Equal(t, params, gotParams)
	assert.Equal(t, salt, gotSalt)
}

func TestDecodeKDFParamsRejectsBadInput(t *testing.T) {
	_, _, err := DecodeKDFParams(nil)
	assert.Error(t, err)

	_, _, err = DecodeKDFParams(map[string]interface{}{
		"memory": 1024, "iterations": 1, "parallelism": 1, "salt": "c2hvcnQ=",
	})
	assert.Error(t, err, "short salt must be rejected")
}

func TestVerifier(t *testing.T) {
	engine := testEngine()
	key := testKey(t, engine, "right")
	wrong := testKey(t, engine, "wrong")

	verifier, err := engine.NewVerifier(key)
	require.NoError(t, err)

	assert.NoError(t, engine.CheckVerifier(verifier, key))
	assert.True(t, errors.Is(engine.CheckVerifier(verifier, wrong), ErrDecryptionFailed))
	assert.True(t, errors.Is(engine.CheckVerifier("!!not-base64", key), ErrInvalidEnvelope))
}
