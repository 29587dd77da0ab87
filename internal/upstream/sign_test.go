package upstream_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/presetworks/overseer/internal/upstream"
	"github.com/stretchr/testify/assert"
)

func TestSignFixedShape(t *testing.T) {
	t.Parallel()

	// Absent fields are substituted with empty strings, keeping the message
	// fixed-shape for the verifying side.
	full := upstream.Sign(1700000000, "123", "alice", "secret")
	noActor := upstream.Sign(1700000000, "", "", "secret")

	assert.NotEqual(t, full, noActor)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("1700000000:123:alice"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), full)

	mac = hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("1700000000::"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), noActor)
}

func TestSignDeterministic(t *testing.T) {
	t.Parallel()

	a := upstream.Sign(1700000000, "123", "alice", "secret")
	b := upstream.Sign(1700000000, "123", "alice", "secret")
	assert.Equal(t, a, b)

	// Lowercase hex rendering.
	assert.Equal(t, strings.ToLower(a), a)
	assert.Len(t, a, sha256.Size*2)
}
