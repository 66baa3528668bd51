package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fitkit/authserver/internal/notify"
	"github.com/fitkit/authserver/internal/otp"
	"github.com/fitkit/authserver/internal/password"
	"github.com/fitkit/authserver/internal/store"
	"github.com/fitkit/authserver/internal/token"
	"github.com/fitkit/authserver/types"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// Profile carries the fitness attributes collected at signup.
// All fields are required; Age must be positive.
type Profile struct {
	Gender        string
	Age           int
	Height        string
	Goal          string
	ActivityLevel string
	Weight        string
}

func (p Profile) validate() error {
	if p.Gender == "" || p.Height == "" || p.Goal == "" || p.ActivityLevel == "" || p.Weight == "" {
		return ErrInvalidInput
	}
	if p.Age <= 0 {
		return ErrInvalidInput
	}
	return nil
}

// AuthService is the credential-lifecycle state machine: it owns signup,
// login, the OTP reset cycle, and Google-federated sign-in/up. All
// cross-request state lives in the repository or inside signed tokens;
// the service itself holds none.
type AuthService struct {
	users  UserRepository
	tokens *token.Issuer
	sender notify.Sender
	log    *slog.Logger
	now    func() time.Time
}

func NewAuthService(users UserRepository, tokens *token.Issuer, sender notify.Sender, log *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		sender: sender,
		log:    log,
		now:    time.Now,
	}
}

// NormalizeEmail lowercases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a local account and issues a session token.
func (s *AuthService) SignUp(ctx context.Context, email, plaintext string, profile Profile) (types.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || plaintext == "" {
		return types.User{}, "", ErrInvalidInput
	}
	if err := profile.validate(); err != nil {
		return types.User{}, "", err
	}
	if len(plaintext) < minPasswordLength {
		return types.User{}, "", ErrPasswordTooShort
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return types.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return types.User{}, "", ErrEmailTaken
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return types.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Email:         email,
		PasswordHash:  hash,
		Provider:      types.ProviderLocal,
		Gender:        profile.Gender,
		Age:           profile.Age,
		Height:        profile.Height,
		Goal:          profile.Goal,
		ActivityLevel: profile.ActivityLevel,
		Weight:        profile.Weight,
	})
	if err != nil {
		// The existence check above races with concurrent signups; the
		// unique index is the authority.
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, "", ErrEmailTaken
		}
		return types.User{}, "", fmt.Errorf("create user: %w", err)
	}

	sessionToken, err := s.tokens.IssueSession(user.ID, user.Email)
	if err != nil {
		return types.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("user signed up", "email", user.Email)
	return user, sessionToken, nil
}

// LogIn verifies credentials and issues a session token. Unknown email and
// wrong password fail identically.
func (s *AuthService) LogIn(ctx context.Context, email, plaintext string) (types.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || plaintext == "" {
		return types.User{}, "", ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrInvalidCredentials
		}
		return types.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	if !password.Verify(plaintext, user.PasswordHash) {
		return types.User{}, "", ErrInvalidCredentials
	}

	sessionToken, err := s.tokens.IssueSession(user.ID, user.Email)
	if err != nil {
		return types.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, sessionToken, nil
}

// CheckEmail reports whether an account exists for the address. Pure
// lookup, no side effects.
func (s *AuthService) CheckEmail(ctx context.Context, email string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, ErrInvalidInput
	}
	return s.users.EmailExists(ctx, email)
}

// ForgotPassword stores a fresh OTP on the account and dispatches it.
// The code is persisted before dispatch and is not rolled back on delivery
// failure; a retry simply overwrites it, which is safe.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	user.ResetOTP = code
	user.ResetOTPExpires = s.now().Add(otp.Validity)
	if _, err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.sender.SendResetCode(ctx, user.Email, code); err != nil {
		s.log.Error("otp dispatch failed", "email", user.Email, "error", err)
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	s.log.Info("otp dispatched", "email", user.Email)
	return nil
}

// VerifyOTP checks the supplied code against the stored one and, on match,
// issues a purpose-scoped reset token. Wrong email, wrong code, and
// expired code all fail the same way. The stored code is NOT cleared here;
// it stays valid for re-verification until it expires or a password reset
// consumes it.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || code == "" {
		return "", ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrOTPInvalid
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if !user.HasActiveResetCode(s.now()) || user.ResetOTP != code {
		return "", ErrOTPInvalid
	}

	resetToken, err := s.tokens.IssueReset(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}
	return resetToken, nil
}

// ResetPassword verifies a reset token, sets the new password, and clears
// the stored OTP. This is the only operation that clears reset state. The
// token itself stays verifiable until its 15-minute expiry, so a leaked
// token can be replayed within that window; stateless tokens cannot be
// revoked individually.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return ErrInvalidInput
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	claims, err := s.tokens.Verify(resetToken)
	if err != nil || claims.Purpose != token.PurposeReset {
		return ErrResetTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hash
	user.ResetOTP = ""
	user.ResetOTPExpires = time.Time{}
	if _, err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info("password reset", "email", user.Email)
	return nil
}

// GoogleSignIn issues a session token for an existing account. The
// supplied Google ID is not compared against the stored one — real
// deployments must verify the provider token with Google before trusting
// this path.
func (s *AuthService) GoogleSignIn(ctx context.Context, email, googleID string) (types.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || googleID == "" {
		return types.User{}, "", ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrNotFound
		}
		return types.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	sessionToken, err := s.tokens.IssueSession(user.ID, user.Email)
	if err != nil {
		return types.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, sessionToken, nil
}

// GoogleSignUp creates a Google-federated account. The stored password
// hash is a digest of discarded random bytes, so plaintext login is
// impossible for these accounts.
func (s *AuthService) GoogleSignUp(ctx context.Context, email, googleID string, profile Profile) (types.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || googleID == "" {
		return types.User{}, "", ErrInvalidInput
	}
	if err := profile.validate(); err != nil {
		return types.User{}, "", err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return types.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return types.User{}, "", ErrEmailTaken
	}

	hash, err := password.Placeholder()
	if err != nil {
		return types.User{}, "", fmt.Errorf("placeholder hash: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Email:         email,
		PasswordHash:  hash,
		Provider:      types.ProviderGoogle,
		GoogleID:      googleID,
		Gender:        profile.Gender,
		Age:           profile.Age,
		Height:        profile.Height,
		Goal:          profile.Goal,
		ActivityLevel: profile.ActivityLevel,
		Weight:        profile.Weight,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, "", ErrEmailTaken
		}
		return types.User{}, "", fmt.Errorf("create user: %w", err)
	}

	sessionToken, err := s.tokens.IssueSession(user.ID, user.Email)
	if err != nil {
		return types.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("google user signed up", "email", user.Email)
	return user, sessionToken, nil
}

// GetByID loads an account by its token subject. Used by the /me endpoint.
func (s *AuthService) GetByID(ctx context.Context, id string) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
