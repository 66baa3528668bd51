package services

import "errors"

// Failure taxonomy surfaced by AuthService. The handler layer maps each
// sentinel to a status code and message; nothing else leaks outward.
var (
	// ErrInvalidInput covers missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken is returned when signup hits an already-registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password, so responses do not reveal which check failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotFound is returned when an operation requires an existing account.
	ErrNotFound = errors.New("account not found")

	// ErrOTPInvalid covers wrong email, wrong code, and expired code alike.
	ErrOTPInvalid = errors.New("invalid or expired otp")

	// ErrResetTokenInvalid covers bad signature, expiry, and wrong purpose.
	ErrResetTokenInvalid = errors.New("invalid reset token")

	// ErrPasswordTooShort is returned when a new password is under 6 characters.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	// ErrDeliveryFailed is returned when the reset code could not be handed
	// to the notification backend. The stored code stands; retrying
	// ForgotPassword overwrites it with a fresh one.
	ErrDeliveryFailed = errors.New("failed to send otp email")
)
