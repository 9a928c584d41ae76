package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// RFC 6238 parameters: SHA-1, 6 digits, 30-second steps, the standard
// authenticator-app profile.
const (
	totpDigits = 6
	totpStep   = 30 * time.Second
	totpSkew   = 1
)

// TOTPCode computes the code for the given secret at the given instant.
func TOTPCode(secret string, at time.Time) (string, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).
		DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}
	counter := uint64(at.Unix() / int64(totpStep.Seconds()))

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226 §5.3.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", totpDigits, code%1000000), nil
}

// VerifyTOTP checks a submitted code against the secret with a tolerance of
// one time step in either direction.
func VerifyTOTP(secret, code string, at time.Time) bool {
	submitted := strings.TrimSpace(code)
	if len(submitted) != totpDigits {
		return false
	}
	for skew := -totpSkew; skew <= totpSkew; skew++ {
		expected, err := TOTPCode(secret, at.Add(time.Duration(skew)*totpStep))
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1 {
			return true
		}
	}
	return false
}
