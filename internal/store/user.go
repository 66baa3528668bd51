package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fitkit/authserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, email, password_hash, auth_provider, google_id,
	gender, age, height, goal, activity_level, weight,
	is_pro, reset_otp, reset_otp_expires, created_at, updated_at`

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// EmailExists reports whether any account uses the given email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a new account and assigns its ID.
// Returns ErrConflict when the email is already registered.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (
			id, email, password_hash, auth_provider, google_id,
			gender, age, height, goal, activity_level, weight,
			is_pro, reset_otp, reset_otp_expires, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Provider,
		nullString(user.GoogleID),
		user.Gender,
		user.Age,
		user.Height,
		user.Goal,
		user.ActivityLevel,
		user.Weight,
		user.IsPro,
		nullString(user.ResetOTP),
		nullTime(user.ResetOTPExpires),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// Update persists mutations to an existing account (password hash,
// reset-code state, profile, pro flag).
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET email = $1,
			password_hash = $2,
			auth_provider = $3,
			google_id = $4,
			gender = $5,
			age = $6,
			height = $7,
			goal = $8,
			activity_level = $9,
			weight = $10,
			is_pro = $11,
			reset_otp = $12,
			reset_otp_expires = $13,
			updated_at = $14
		WHERE id = $15`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.Provider,
		nullString(user.GoogleID),
		user.Gender,
		user.Age,
		user.Height,
		user.Goal,
		user.ActivityLevel,
		user.Weight,
		user.IsPro,
		nullString(user.ResetOTP),
		nullTime(user.ResetOTPExpires),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var googleID, resetOTP sql.NullString
	var resetExpires sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Provider,
		&googleID,
		&user.Gender,
		&user.Age,
		&user.Height,
		&user.Goal,
		&user.ActivityLevel,
		&user.Weight,
		&user.IsPro,
		&resetOTP,
		&resetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.GoogleID = googleID.String
	user.ResetOTP = resetOTP.String
	if resetExpires.Valid {
		user.ResetOTPExpires = resetExpires.Time
	}
	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
