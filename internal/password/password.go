// Package password wraps bcrypt hashing for account credentials.
package password

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// Hash produces a salted bcrypt digest of plaintext. Each call salts
// independently, so hashing the same input twice yields different digests.
func Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. It returns false for
// any mismatch or malformed digest, never an error.
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Placeholder returns a digest of random bytes for accounts that must not
// be able to log in with a password (Google-federated signups). The
// plaintext is discarded, so no input can verify against the result.
func Placeholder() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return Hash(base64.StdEncoding.EncodeToString(buf[:]))
}
