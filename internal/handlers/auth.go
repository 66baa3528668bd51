package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fitkit/authserver/internal/services"
	"github.com/fitkit/authserver/internal/token"
	"github.com/fitkit/authserver/types"
	"github.com/go-chi/chi/v5"
)

const internalErrorMessage = "Internal Server Error"

// AuthHandler exposes the /api/auth HTTP surface over AuthService.
type AuthHandler struct {
	auth   *services.AuthService
	tokens *token.Issuer
}

func NewAuthHandler(auth *services.AuthService, tokens *token.Issuer) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService, tokens *token.Issuer) {
	handler := NewAuthHandler(auth, tokens)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Post("/checkEmail", handler.CheckEmail)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/verify-otp", handler.VerifyOTP)
	r.Post("/reset-password", handler.ResetPassword)
	r.Post("/google-signin", handler.GoogleSignIn)
	r.Post("/google-signup", handler.GoogleSignUp)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces a valid session token and injects the subject into
// the request context. Reset tokens are rejected here: their purpose scopes
// them to the reset-password operation only.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := h.tokens.Verify(tokenString)
		if err != nil || claims.Purpose != "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Gender        string `json:"Gender"`
	Age           int    `json:"Age"`
	Height        string `json:"Height"`
	Goal          string `json:"Goal"`
	ActivityLevel string `json:"ActivityLevel"`
	Weight        string `json:"Weight"`
}

func (req SignupRequest) profile() services.Profile {
	return services.Profile{
		Gender:        strings.TrimSpace(req.Gender),
		Age:           req.Age,
		Height:        strings.TrimSpace(req.Height),
		Goal:          strings.TrimSpace(req.Goal),
		ActivityLevel: strings.TrimSpace(req.ActivityLevel),
		Weight:        strings.TrimSpace(req.Weight),
	}
}

func (req SignupRequest) complete() bool {
	return req.Email != "" && req.Gender != "" && req.Age > 0 && req.Height != "" &&
		req.Goal != "" && req.ActivityLevel != "" && req.Weight != ""
}

// AuthResponse is the success body for signup, login, and the Google paths.
type AuthResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
	Token   string     `json:"token"`
}

// Signup creates a local account.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if !req.complete() || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, sessionToken, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.profile())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "User already exists")
		case errors.Is(err, services.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "All fields are required")
		default:
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "User created successfully",
		User:    user,
		Token:   sessionToken,
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, sessionToken, err := h.auth.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "All fields are required")
		default:
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: "Login successful",
		User:    user,
		Token:   sessionToken,
	})
}

type CheckEmailRequest struct {
	Email string `json:"email"`
}

type CheckEmailResponse struct {
	Exists bool `json:"exists"`
}

// CheckEmail reports whether an account exists for the address.
func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	exists, err := h.auth.CheckEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Email is required")
			return
		}
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, CheckEmailResponse{Exists: exists})
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// ForgotPassword generates an OTP, stores it, and emails it to the user.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "User with this email does not exist")
		case errors.Is(err, services.ErrDeliveryFailed):
			writeError(w, http.StatusInternalServerError, "Failed to send OTP email")
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Email is required")
		default:
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusOK, ForgotPasswordResponse{
		Message: "OTP sent to your email successfully",
		Email:   services.NormalizeEmail(req.Email),
	})
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VerifyOTPResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

// VerifyOTP exchanges a valid reset code for a reset token.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.OTP == "" {
		writeError(w, http.StatusBadRequest, "Email and OTP are required")
		return
	}

	resetToken, err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOTPInvalid):
			writeError(w, http.StatusBadRequest, "Invalid or expired OTP")
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Email and OTP are required")
		default:
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusOK, VerifyOTPResponse{
		Message:    "OTP verified successfully",
		ResetToken: resetToken,
	})
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ResetPassword sets a new password using a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ResetToken == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Reset token and new password are required")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		case errors.Is(err, services.ErrResetTokenInvalid):
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Reset token and new password are required")
		default:
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

type GoogleSignInRequest struct {
	Email    string `json:"email"`
	GoogleID string `json:"googleId"`
	Name     string `json:"name"`
}

// GoogleSignIn issues a session token for an existing Google user.
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req GoogleSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.GoogleID == "" {
		writeError(w, http.StatusBadRequest, "Email and Google ID are required")
		return
	}

	user, sessionToken, err := h.auth.GoogleSignIn(r.Context(), req.Email, req.GoogleID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found. Please sign up first.")
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Email and Google ID are required")
		default:
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: "Google sign-in successful",
		User:    user,
		Token:   sessionToken,
	})
}

type GoogleSignUpRequest struct {
	Email         string `json:"email"`
	GoogleID      string `json:"googleId"`
	Name          string `json:"name"`
	Gender        string `json:"Gender"`
	Age           int    `json:"Age"`
	Height        string `json:"Height"`
	Goal          string `json:"Goal"`
	ActivityLevel string `json:"ActivityLevel"`
	Weight        string `json:"Weight"`
}

// GoogleSignUp creates a Google-federated account.
func (h *AuthHandler) GoogleSignUp(w http.ResponseWriter, r *http.Request) {
	var req GoogleSignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if req.Email == "" || req.GoogleID == "" || req.Gender == "" || req.Age <= 0 ||
		req.Height == "" || req.Goal == "" || req.ActivityLevel == "" || req.Weight == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	profile := services.Profile{
		Gender:        strings.TrimSpace(req.Gender),
		Age:           req.Age,
		Height:        strings.TrimSpace(req.Height),
		Goal:          strings.TrimSpace(req.Goal),
		ActivityLevel: strings.TrimSpace(req.ActivityLevel),
		Weight:        strings.TrimSpace(req.Weight),
	}

	user, sessionToken, err := h.auth.GoogleSignUp(r.Context(), req.Email, req.GoogleID, profile)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "User already exists. Please sign in instead.")
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "All fields are required")
		default:
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "Google sign-up successful",
		User:    user,
		Token:   sessionToken,
	})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.auth.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errors.New("invalid authorization")
	}
	return tokenString, nil
}
