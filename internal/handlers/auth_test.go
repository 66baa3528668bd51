package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitkit/authserver/internal/services"
	"github.com/fitkit/authserver/internal/store"
	"github.com/fitkit/authserver/internal/token"
	"github.com/fitkit/authserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	users  map[string]types.User
	nextID int
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memoryRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if exists, _ := r.EmailExists(ctx, user.Email); exists {
		return types.User{}, store.ErrConflict
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepo) Update(_ context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

type recordingSender struct {
	lastEmail string
	lastCode  string
}

func (s *recordingSender) SendResetCode(_ context.Context, email, code string) error {
	s.lastEmail = email
	s.lastCode = code
	return nil
}

func (s *recordingSender) Close() error { return nil }

func newTestRouter(t *testing.T) (*chi.Mux, *recordingSender) {
	t.Helper()
	repo := &memoryRepo{users: map[string]types.User{}}
	sender := &recordingSender{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := token.NewIssuer("test-secret")
	auth := services.NewAuthService(repo, issuer, sender, log)

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, auth, issuer)
	})
	return router, sender
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func signupBody(email string) map[string]any {
	return map[string]any{
		"email":         email,
		"password":      "secret1",
		"Gender":        "female",
		"Age":           30,
		"Height":        "170cm",
		"Goal":          "maintain",
		"ActivityLevel": "moderate",
		"Weight":        "65kg",
	}
}

func TestSignupEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "User created successfully", body["message"])
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, false, user["isPro"])

	// The password hash must never appear in responses.
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, user, "password_hash")
}

func TestSignupMissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	body := signupBody("alice@example.com")
	delete(body, "Goal")
	rec := postJSON(t, router, "/api/auth/signup", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", decodeBody(t, rec)["message"])
}

func TestSignupDuplicateEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decodeBody(t, rec)["message"])
}

func TestLoginEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))

	rec := postJSON(t, router, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", decodeBody(t, rec)["message"])

	// Wrong password and unknown user produce identical bodies.
	badPassword := postJSON(t, router, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	unknownUser := postJSON(t, router, "/api/auth/login", map[string]any{
		"email":    "bob@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, badPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, badPassword.Body.String(), unknownUser.Body.String())
}

func TestCheckEmailEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))

	rec := postJSON(t, router, "/api/auth/checkEmail", map[string]any{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["exists"])

	rec = postJSON(t, router, "/api/auth/checkEmail", map[string]any{"email": "bob@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["exists"])

	rec = postJSON(t, router, "/api/auth/checkEmail", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is required", decodeBody(t, rec)["message"])
}

func TestPasswordResetFlow(t *testing.T) {
	router, sender := newTestRouter(t)
	postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))

	rec := postJSON(t, router, "/api/auth/forgot-password", map[string]any{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "OTP sent to your email successfully", body["message"])
	assert.Equal(t, "alice@example.com", body["email"])
	require.Len(t, sender.lastCode, 6)

	rec = postJSON(t, router, "/api/auth/verify-otp", map[string]any{
		"email": "alice@example.com",
		"otp":   sender.lastCode,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "OTP verified successfully", body["message"])
	resetToken, ok := body["resetToken"].(string)
	require.True(t, ok)
	require.NotEmpty(t, resetToken)

	rec = postJSON(t, router, "/api/auth/reset-password", map[string]any{
		"resetToken":  resetToken,
		"newPassword": "newpass2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successfully", decodeBody(t, rec)["message"])

	// Old password is dead, new one works.
	rec = postJSON(t, router, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, router, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "newpass2",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/auth/forgot-password", map[string]any{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User with this email does not exist", decodeBody(t, rec)["message"])
}

func TestVerifyOTPRejectsWrongCode(t *testing.T) {
	router, _ := newTestRouter(t)
	postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))
	postJSON(t, router, "/api/auth/forgot-password", map[string]any{"email": "alice@example.com"})

	rec := postJSON(t, router, "/api/auth/verify-otp", map[string]any{
		"email": "alice@example.com",
		"otp":   "000000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired OTP", decodeBody(t, rec)["message"])
}

func TestResetPasswordValidation(t *testing.T) {
	router, sender := newTestRouter(t)
	postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))
	postJSON(t, router, "/api/auth/forgot-password", map[string]any{"email": "alice@example.com"})

	verify := postJSON(t, router, "/api/auth/verify-otp", map[string]any{
		"email": "alice@example.com",
		"otp":   sender.lastCode,
	})
	resetToken := decodeBody(t, verify)["resetToken"].(string)

	rec := postJSON(t, router, "/api/auth/reset-password", map[string]any{
		"resetToken":  resetToken,
		"newPassword": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at least 6 characters long", decodeBody(t, rec)["message"])

	rec = postJSON(t, router, "/api/auth/reset-password", map[string]any{
		"resetToken":  "garbage",
		"newPassword": "newpass2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired reset token", decodeBody(t, rec)["message"])
}

func TestGoogleEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/auth/google-signin", map[string]any{
		"email":    "alice@example.com",
		"googleId": "google-123",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found. Please sign up first.", decodeBody(t, rec)["message"])

	body := signupBody("alice@example.com")
	delete(body, "password")
	body["googleId"] = "google-123"
	body["name"] = "Alice"
	rec = postJSON(t, router, "/api/auth/google-signup", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Google sign-up successful", decodeBody(t, rec)["message"])

	rec = postJSON(t, router, "/api/auth/google-signup", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists. Please sign in instead.", decodeBody(t, rec)["message"])

	rec = postJSON(t, router, "/api/auth/google-signin", map[string]any{
		"email":    "alice@example.com",
		"googleId": "google-123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Google sign-in successful", decodeBody(t, rec)["message"])
}

func TestMeEndpoint(t *testing.T) {
	router, sender := newTestRouter(t)

	signup := postJSON(t, router, "/api/auth/signup", signupBody("alice@example.com"))
	sessionToken := decodeBody(t, signup)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", decodeBody(t, rec)["email"])

	// A reset token must not pass session auth: purpose scopes it to
	// reset-password only.
	postJSON(t, router, "/api/auth/forgot-password", map[string]any{"email": "alice@example.com"})
	verify := postJSON(t, router, "/api/auth/verify-otp", map[string]any{
		"email": "alice@example.com",
		"otp":   sender.lastCode,
	})
	resetToken := decodeBody(t, verify)["resetToken"].(string)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resetToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
