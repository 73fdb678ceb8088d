package ledger

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// MaxInviteCodeAttempts bounds the generate-probe-insert loop during
	// group creation. 36^6 codes make collisions rare; hitting this budget
	// means the code space is saturated or the store is misbehaving.
	MaxInviteCodeAttempts = 20
)

// NewInviteCode returns a 6-character code drawn uniformly at random from
// [A-Z0-9]. The generator is stateless and may collide; uniqueness is the
// caller's responsibility.
func NewInviteCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to read randomness: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// NormalizeInviteCode uppercases a user-supplied code and validates its
// shape. Codes are case-insensitive on input but stored uppercase.
func NormalizeInviteCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return "", fmt.Errorf("%w: invite code must be %d characters", ErrValidation, codeLength)
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return "", fmt.Errorf("%w: invite code contains invalid character", ErrValidation)
		}
	}
	return code, nil
}
