package types

import "time"

// AuthProvider identifies how an account proves its identity.
type AuthProvider string

const (
	// ProviderLocal accounts authenticate with an email/password pair.
	ProviderLocal AuthProvider = "local"

	// ProviderGoogle accounts were created through Google sign-up and carry
	// an unusable placeholder password hash.
	ProviderGoogle AuthProvider = "google"
)

// User represents an account in the system.
// It contains identity, credentials, fitness profile attributes,
// password-reset state, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, assigned by the store.
	ID string `json:"id" db:"id"`

	// Email is the user's email address, stored lowercased and trimmed.
	// It is unique across all accounts.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Provider records whether the account is local or Google-federated.
	Provider AuthProvider `json:"authProvider" db:"auth_provider"`

	// GoogleID is the Google subject identifier for federated accounts.
	GoogleID string `json:"googleId,omitempty" db:"google_id"`

	// Fitness profile attributes collected at signup. The capitalized JSON
	// keys match the mobile client's payloads.
	Gender        string `json:"Gender" db:"gender"`
	Age           int    `json:"Age" db:"age"`
	Height        string `json:"Height" db:"height"`
	Goal          string `json:"Goal" db:"goal"`
	ActivityLevel string `json:"ActivityLevel" db:"activity_level"`
	Weight        string `json:"Weight" db:"weight"`

	// IsPro marks a paid subscription.
	IsPro bool `json:"isPro" db:"is_pro"`

	// ResetOTP and ResetOTPExpires hold the active password-reset code.
	// Either both are set or both are zero. An expiry in the past means
	// the code is dead even if not yet cleared.
	ResetOTP        string    `json:"-" db:"reset_otp"`
	ResetOTPExpires time.Time `json:"-" db:"reset_otp_expires"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasActiveResetCode reports whether a reset code is stored and not yet
// expired as of now.
func (u User) HasActiveResetCode(now time.Time) bool {
	return u.ResetOTP != "" && u.ResetOTPExpires.After(now)
}
