// Package codec is the reversible transform between in-memory values and the
// durable string tokens kept in local storage and shipped to the sync store.
//
// The transform is obfuscation against casual inspection, not encryption:
// JSON serialize, rolling-XOR the bytes, base64, prefix tag. Tokens without
// the prefix are treated as legacy plain JSON.
package codec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

// TokenPrefix marks tokens produced by this codec.
const TokenPrefix = "TLZ1:"

var xorKey = []byte("tlz-obfuscate")

type Codec struct {
	logg *logger.Logger
}

func New(logg *logger.Logger) *Codec {
	return &Codec{logg: logg}
}

// Encode serializes v into a prefix-tagged token. It never fails: a value
// that cannot be serialized yields an empty token and a logged warning.
func (c *Codec) Encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		if c.logg != nil {
			c.logg.Error(context.Background(), "codec encode failed", err)
		}
		return ""
	}
	return TokenPrefix + base64.StdEncoding.EncodeToString(rollingXOR(raw))
}

// DecodeInto deserializes token into target. It accepts prefix-tagged tokens,
// legacy plain JSON, and reports false for anything else so the caller can
// fall back to a default value.
func (c *Codec) DecodeInto(token string, target any) bool {
	if trimmed, ok := strings.CutPrefix(token, TokenPrefix); ok {
		raw, err := base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			return false
		}
		return json.Unmarshal(rollingXOR(raw), target) == nil
	}
	// Legacy compatibility: values stored before the codec existed are plain JSON.
	return token != "" && json.Unmarshal([]byte(token), target) == nil
}

// Decode returns the decoded value or fallback when the token is unreadable.
func Decode[T any](c *Codec, token string, fallback T) T {
	var out T
	if c.DecodeInto(token, &out) {
		return out
	}
	return fallback
}

// rollingXOR is its own inverse.
func rollingXOR(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ xorKey[i%len(xorKey)]
	}
	return out
}
