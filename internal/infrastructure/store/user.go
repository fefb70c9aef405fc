package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmasource/backend/internal/domain"
)

// Compile-time interface guards.
var (
	_ domain.UserRepository     = (*UserRepository)(nil)
	_ domain.SettingsRepository = (*SettingsRepository)(nil)
)

// UserRepository implements domain.UserRepository on the users table
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a UserRepository on the store's database
func NewUserRepository(s *SQLiteStore) *UserRepository {
	return &UserRepository{db: s.DB()}
}

// userColumns is the shared SELECT column list for user queries
const userColumns = `id, email, username, password_hash, role, status,
	email_verified, ai_request_count, last_request_date, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var role, status string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &status,
		&u.EmailVerified, &u.AIRequestCount, &u.LastRequestDate, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.AccountStatus(status)
	return &u, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user %q: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email %q: %w", email, err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create inserts a new user. If user.ID is empty, a UUID is generated.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = strings.ToLower(user.Email)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, role, status,
			email_verified, ai_request_count, last_request_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.PasswordHash, string(user.Role), string(user.Status),
		user.EmailVerified, user.AIRequestCount, user.LastRequestDate, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailInUse
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update writes the profile, role and approval fields of a user
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = ?, role = ?, status = ?, email_verified = ? WHERE id = ?`,
		user.Username, string(user.Role), string(user.Status), user.EmailVerified, user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res)
}

// ConsumeRequest increments the assistant request counter in a single
// conditional UPDATE so concurrent requests cannot overshoot the limit.
func (r *UserRepository) ConsumeRequest(ctx context.Context, id, date string, limit int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			ai_request_count = CASE WHEN last_request_date = ? THEN ai_request_count + 1 ELSE 1 END,
			last_request_date = ?
		WHERE id = ? AND (? <= 0 OR last_request_date <> ? OR ai_request_count < ?)
		RETURNING ai_request_count`,
		date, date, id, limit, date, limit,
	).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("consume request: %w", err)
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, domain.ErrNotFound
	case err != nil:
		return 0, fmt.Errorf("consume request: %w", err)
	}
	return 0, domain.ErrQuotaExceeded
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// isUniqueViolation matches SQLite's constraint error text
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SettingsRepository keeps the single application settings row
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a SettingsRepository on the store's database
func NewSettingsRepository(s *SQLiteStore) *SettingsRepository {
	return &SettingsRepository{db: s.DB()}
}

// GetSettings returns the saved settings, or the defaults when none were saved
func (r *SettingsRepository) GetSettings(ctx context.Context) (domain.AppSettings, error) {
	var settings domain.AppSettings
	err := r.db.QueryRowContext(ctx,
		`SELECT ai_request_limit, ai_enabled FROM settings WHERE id = 1`,
	).Scan(&settings.AIRequestLimit, &settings.AIEnabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(), nil
		}
		return domain.AppSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// SaveSettings upserts the settings row
func (r *SettingsRepository) SaveSettings(ctx context.Context, settings domain.AppSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, ai_request_limit, ai_enabled) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ai_request_limit = excluded.ai_request_limit, ai_enabled = excluded.ai_enabled`,
		settings.AIRequestLimit, settings.AIEnabled,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
