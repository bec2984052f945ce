package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

const twoFactorCodeDigits = 6

var twoFactorCodeSpace = big.NewInt(1_000_000)

// generateTwoFactorCode produces a 6-digit numeric challenge code and
// its expiry. Codes are zero-padded so the length is always exactly 6.
func generateTwoFactorCode(ttl time.Duration) (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, twoFactorCodeSpace)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate two-factor code: %w", err)
	}

	code := fmt.Sprintf("%0*d", twoFactorCodeDigits, n.Int64())
	return code, time.Now().UTC().Add(ttl), nil
}

// newRefreshTokenValue returns an opaque 256-bit token. Refresh tokens
// carry no claims; they are only valid against the server-side store.
func newRefreshTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
