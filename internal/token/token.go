// Package token issues and verifies the signed bearer tokens used for
// sessions and password resets. Tokens are stateless: validity is decided
// solely by signature and expiry at verification time.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionTTL bounds session tokens issued at signup and login.
	SessionTTL = time.Hour

	// ResetTTL bounds reset tokens issued after OTP verification.
	ResetTTL = 15 * time.Minute

	// PurposeReset marks a token usable only for password reset. Session
	// tokens carry no purpose claim.
	PurposeReset = "password-reset"
)

// ErrInvalid is returned for any token that fails verification: bad
// signature, malformed, or expired. No partial claims are returned.
var ErrInvalid = errors.New("invalid token")

// Claims are the signed contents of an issued token. Subject holds the
// account ID.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// IssueSession returns a session token for the given account, valid for
// SessionTTL.
func (i *Issuer) IssueSession(userID, email string) (string, error) {
	return i.issue(userID, email, "", SessionTTL)
}

// IssueReset returns a purpose-scoped reset token, valid for ResetTTL.
// Callers accepting it for password reset must also check
// Claims.Purpose == PurposeReset; the issuer does not enforce where a
// token is presented.
func (i *Issuer) IssueReset(userID, email string) (string, error) {
	return i.issue(userID, email, PurposeReset, ResetTTL)
}

func (i *Issuer) issue(userID, email, purpose string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates a token, returning its claims. Any failure
// yields ErrInvalid.
func (i *Issuer) Verify(tokenString string) (Claims, error) {
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}
