package auth

import (
	"crypto/rand"
	"encoding/hex"

	"courier/errors"
)

// NewVerificationToken returns a one-time opaque token for email
// verification: 16 random bytes, hex-encoded.
func NewVerificationToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(errors.KindInternal, err, "generating verification token")
	}
	return hex.EncodeToString(buf), nil
}
