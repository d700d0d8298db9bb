package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Alphabets for generated secrets.
const (
	// PasswordAlphabet is printable ASCII without quotes, backslash or space,
	// so generated passwords survive copy/paste from a terminal.
	PasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!#$%&*+-=?@^_~"

	// KeyAlphabet is used for API keys and device secrets.
	KeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// tokenBytes is the entropy of a session token.
const tokenBytes = 32

// RandomString returns n characters drawn uniformly from alphabet.
func RandomString(n int, alphabet string) (string, error) {
	if n <= 0 || alphabet == "" {
		return "", fmt.Errorf("random string: invalid length %d or empty alphabet", n)
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("reading random index: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// RandomToken returns a hex-encoded 256-bit random identifier.
func RandomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ConstantTimeEqual compares two secrets without leaking where they differ.
// Length differences still return early, which reveals only the length.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
