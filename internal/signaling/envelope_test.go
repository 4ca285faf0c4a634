package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelopeNormalizesTargetAlias(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"offer","peerId":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "offer", env.Type)
	assert.Equal(t, "bob", env.Target)

	env, err = ParseEnvelope([]byte(`{"type":"offer","target":"carol"}`))
	require.NoError(t, err)
	assert.Equal(t, "carol", env.Target)

	// When both spellings appear, target wins.
	env, err = ParseEnvelope([]byte(`{"type":"offer","target":"carol","peerId":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "carol", env.Target)
}

func TestParseEnvelopeHeaderFields(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"request-peer-connection","peerId":"bob","name":"Alice","autoAccept":true}`))
	require.NoError(t, err)
	assert.Equal(t, "Alice", env.Name)
	assert.True(t, env.AutoAccept)

	env, err = ParseEnvelope([]byte(`{"type":"request-peer-connection","peerId":"bob"}`))
	require.NoError(t, err)
	assert.Empty(t, env.Name)
	assert.False(t, env.AutoAccept)
}

func TestParseEnvelopeMalformed(t *testing.T) {
	for _, frame := range []string{
		"not json at all",
		`[1,2,3]`,
		`"just a string"`,
		``,
	} {
		_, err := ParseEnvelope([]byte(frame))
		assert.Error(t, err, "frame %q should not parse", frame)
	}
}

func TestParseEnvelopeMissingType(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"target":"bob"}`))
	require.NoError(t, err)
	assert.Empty(t, env.Type)
	assert.Equal(t, "bob", env.Target)
}

func TestStampSourcePreservesPayload(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"offer","target":"bob","sdp":"v=0 o=- 46117...","extra":{"nested":true}}`))
	require.NoError(t, err)

	env.StampSource("alice")
	data, err := env.Encode()
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "alice", out["source"])
	assert.Equal(t, "v=0 o=- 46117...", out["sdp"])
	assert.Equal(t, map[string]any{"nested": true}, out["extra"])
	assert.Equal(t, "bob", out["target"])
}

func TestStampSourceOverwritesSpoofedOrigin(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"offer","target":"bob","source":"mallory"}`))
	require.NoError(t, err)

	env.StampSource("alice")
	data, err := env.Encode()
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "alice", out["source"])
}

func TestStampSourceIfAbsent(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"custom","target":"bob","source":"carol"}`))
	require.NoError(t, err)
	env.StampSourceIfAbsent("alice")
	data, _ := env.Encode()

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "carol", out["source"])

	env, err = ParseEnvelope([]byte(`{"type":"custom","target":"bob"}`))
	require.NoError(t, err)
	env.StampSourceIfAbsent("alice")
	data, _ = env.Encode()

	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "alice", out["source"])
}
