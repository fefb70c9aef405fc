package domain

import "time"

// Role controls which operations a signed-in user may perform
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePremium Role = "premium"
)

// AccountStatus tracks approval of premium accounts
type AccountStatus string

const (
	StatusPending AccountStatus = "pending"
	StatusActive  AccountStatus = "active"
)

// User is a registered account together with its assistant usage counters
type User struct {
	ID              string        `json:"id"`
	Email           string        `json:"email"`
	Username        string        `json:"username"`
	PasswordHash    string        `json:"-"`
	Role            Role          `json:"role"`
	Status          AccountStatus `json:"status"`
	EmailVerified   bool          `json:"emailVerified"`
	AIRequestCount  int           `json:"aiRequestCount"`
	LastRequestDate string        `json:"lastRequestDate"` // YYYY-MM-DD, UTC
	CreatedAt       time.Time     `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AppSettings are the application-wide switches editable by admins
type AppSettings struct {
	AIRequestLimit int  `json:"aiRequestLimit"`
	AIEnabled      bool `json:"isAiEnabled"`
}

// DefaultSettings are used until an admin saves settings
func DefaultSettings() AppSettings {
	return AppSettings{AIRequestLimit: 10, AIEnabled: true}
}

// Session is the identity value threaded through every authenticated call.
// It is created at sign-in and discarded at sign-out.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
