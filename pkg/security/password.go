package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/pbkdf2"

	"github.com/anvargas/tiendaluz-core/pkg/config"
)

var inviteCharset = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// MinPasswordLength is enforced on every account-facing password.
const MinPasswordLength = 12

// GenerateSalt returns a fresh random salt, base64 encoded. Salts are never
// reused across password changes.
func GenerateSalt(cfg config.SecurityConfig) (string, error) {
	length := cfg.SaltLen
	if length <= 0 {
		length = 16
	}
	salt := make([]byte, length)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(salt), nil
}

// HashPassword derives a PBKDF2-HMAC-SHA256 key from the password and salt.
func HashPassword(password, salt string, cfg config.SecurityConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}

	iterations := cfg.PBKDF2Iterations
	if iterations <= 0 {
		iterations = 310000
	}
	keyLen := cfg.KeyLen
	if keyLen <= 0 {
		keyLen = 32
	}

	key := pbkdf2.Key([]byte(password), rawSalt, iterations, keyLen, sha256.New)
	return base64.RawStdEncoding.EncodeToString(key), nil
}

// VerifyPassword recomputes the hash with the stored salt and compares in
// constant time.
func VerifyPassword(password, salt, encodedHash string, cfg config.SecurityConfig) bool {
	computed, err := HashPassword(password, salt, cfg)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(encodedHash)) == 1
}

// HashAnswer hashes a security-question answer after normalization (trim,
// lower-case) so casing and stray whitespace do not lock users out.
func HashAnswer(answer, salt string, cfg config.SecurityConfig) (string, error) {
	return HashPassword(NormalizeAnswer(answer), salt, cfg)
}

// NormalizeAnswer applies the canonical form used for answer hashing.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// ValidatePasswordPolicy enforces the account password strength rules.
func ValidatePasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return fmt.Errorf("password needs upper and lower case letters, a digit and a symbol")
	}
	return nil
}

// GenerateCode produces a random alphanumeric code for invites and recovery.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	result := make([]rune, length)
	for i := 0; i < length; i++ {
		idx, err := randInt(len(inviteCharset))
		if err != nil {
			return "", err
		}
		result[i] = inviteCharset[idx]
	}
	return string(result), nil
}

// GenerateTOTPSecret returns a base32 secret suitable for authenticator apps.
func GenerateTOTPSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// randInt draws uniformly in [0, max); a plain byte modulo would skew
// toward the low end of the charset.
func randInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("invalid max %d", max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
