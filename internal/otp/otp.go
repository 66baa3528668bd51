// Package otp generates the numeric codes used to authorize password resets.
package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

// Validity is how long a generated code stays accepted. Expiry is the only
// defense against guessing a 6-digit code, so the window must stay short;
// rate limiting attempts is the gateway's job.
const Validity = 10 * time.Minute

const (
	codeMin   = 100000
	codeRange = 900000
)

// Generate returns a 6-digit code sampled uniformly from
// [100000, 999999], so it never has a leading zero.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}
