package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pharmasource/backend/internal/domain"
)

// SessionServiceConfig holds configuration for the session service
type SessionServiceConfig struct {
	SessionTTL         time.Duration
	DefaultEmailDomain string
	MinPasswordLength  int
}

// SessionService signs users in and out and owns the per-session view state.
type SessionService struct {
	users    domain.UserRepository
	settings domain.SettingsRepository
	sessions domain.CacheRepository
	catalog  *CatalogService
	logger   *zap.Logger

	sessionTTL   time.Duration
	emailDomain  string
	minPassword  int
	now          func() time.Time
	hashPassword func(password string) (string, error)

	// live session tokens by user id
	mu     sync.Mutex
	tokens map[string]map[string]struct{}
}

// sessionState is what the session cache holds for one token
type sessionState struct {
	mu      sync.Mutex
	session domain.Session
	compare map[domain.CatalogKind]*ComparisonSet
}

// Comparison is a resolved comparison set for one catalog
type Comparison struct {
	Catalog domain.CatalogKind `json:"catalog"`
	IDs     []string           `json:"ids"`
	Items   []domain.Item      `json:"items"`
	Ready   bool               `json:"ready"`
}

// NewSessionService creates a new session service with dependencies
func NewSessionService(
	users domain.UserRepository,
	settings domain.SettingsRepository,
	sessions domain.CacheRepository,
	catalog *CatalogService,
	config SessionServiceConfig,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl := config.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	domainName := strings.TrimPrefix(strings.TrimSpace(config.DefaultEmailDomain), "@")
	if domainName == "" {
		domainName = "medai.sa"
	}
	minPassword := config.MinPasswordLength
	if minPassword <= 0 {
		minPassword = 6
	}

	return &SessionService{
		users:        users,
		settings:     settings,
		sessions:     sessions,
		catalog:      catalog,
		logger:       logger,
		sessionTTL:   ttl,
		emailDomain:  domainName,
		minPassword:  minPassword,
		now:          time.Now,
		hashPassword: bcryptHash,
		tokens:       make(map[string]map[string]struct{}),
	}
}

func bcryptHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NormalizeLogin lower-cases a login and turns a bare username into an
// address on the default e-mail domain.
func (s *SessionService) NormalizeLogin(login string) string {
	email := strings.ToLower(strings.TrimSpace(login))
	if email != "" && !strings.Contains(email, "@") {
		email = email + "@" + s.emailDomain
	}
	return email
}

// Register creates a premium account awaiting approval and signs it in
func (s *SessionService) Register(ctx context.Context, firstName, lastName, email, password string) (*domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrInvalidRequest)
	}
	if len(password) < s.minPassword {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidRequest, s.minPassword)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailInUse
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up %q: %w", email, err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:              uuid.New().String(),
		Email:           email,
		Username:        strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName)),
		PasswordHash:    hash,
		Role:            domain.RolePremium,
		Status:          domain.StatusPending,
		EmailVerified:   false,
		AIRequestCount:  0,
		LastRequestDate: s.today(),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.startSession(ctx, *user)
}

// EnsureAdmin creates an active, verified admin account for email unless an
// account with that e-mail already exists.
func (s *SessionService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = s.NormalizeLogin(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("look up %q: %w", email, err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:              uuid.New().String(),
		Email:           email,
		Username:        "Administrator",
		PasswordHash:    hash,
		Role:            domain.RoleAdmin,
		Status:          domain.StatusActive,
		EmailVerified:   true,
		LastRequestDate: s.today(),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("admin account created", zap.String("user_id", user.ID))
	return nil
}

// SignIn checks credentials and starts a session
func (s *SessionService) SignIn(ctx context.Context, login, password string) (*domain.Session, error) {
	email := s.NormalizeLogin(login)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up %q: %w", email, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.startSession(ctx, *user)
}

func (s *SessionService) startSession(ctx context.Context, user domain.User) (*domain.Session, error) {
	now := s.now().UTC()
	state := &sessionState{
		session: domain.Session{
			Token:     uuid.New().String(),
			User:      user,
			IssuedAt:  now,
			ExpiresAt: now.Add(s.sessionTTL),
		},
		compare: make(map[domain.CatalogKind]*ComparisonSet),
	}

	if err := s.sessions.Set(ctx, sessionKey(state.session.Token), state, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	s.track(user.ID, state.session.Token)

	s.logger.Info("session started", zap.String("user_id", user.ID))
	session := state.session
	return &session, nil
}

// SignOut tears the session down together with its view state.
// Signing out an unknown token is not an error.
func (s *SessionService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if state, err := s.state(ctx, token); err == nil {
		state.mu.Lock()
		id := state.session.User.ID
		state.mu.Unlock()
		s.untrack(id, token)
	}
	if err := s.sessions.Delete(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	return nil
}

func (s *SessionService) track(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tokens[userID]
	if !ok {
		set = make(map[string]struct{})
		s.tokens[userID] = set
	}
	set[token] = struct{}{}
}

func (s *SessionService) untrack(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens[userID], token)
	if len(s.tokens[userID]) == 0 {
		delete(s.tokens, userID)
	}
}

// userTokens returns the tokens of userID whose sessions are still cached.
// Expired entries are dropped from the index on the way.
func (s *SessionService) userTokens(ctx context.Context, userID string) []string {
	s.mu.Lock()
	candidates := make([]string, 0, len(s.tokens[userID]))
	for token := range s.tokens[userID] {
		candidates = append(candidates, token)
	}
	s.mu.Unlock()

	live := candidates[:0]
	for _, token := range candidates {
		if _, err := s.state(ctx, token); err != nil {
			s.untrack(userID, token)
			continue
		}
		live = append(live, token)
	}
	return live
}

// revokeUser signs out every session of userID
func (s *SessionService) revokeUser(ctx context.Context, userID string) int {
	tokens := s.userTokens(ctx, userID)
	for _, token := range tokens {
		if err := s.SignOut(ctx, token); err != nil {
			s.logger.Warn("failed to revoke session", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return len(tokens)
}

// syncUser pushes user into every live session of that account
func (s *SessionService) syncUser(ctx context.Context, user domain.User) {
	for _, token := range s.userTokens(ctx, user.ID) {
		state, err := s.state(ctx, token)
		if err != nil {
			continue
		}
		state.mu.Lock()
		state.session.User = user
		state.mu.Unlock()
	}
}

// Resolve returns the live session for token
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	state, err := s.state(ctx, token)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	session := state.session
	return &session, nil
}

// Refresh re-reads the session user from the repository
func (s *SessionService) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	state, err := s.state(ctx, token)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	id := state.session.User.ID
	state.mu.Unlock()

	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.revokeUser(ctx, id)
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("reload user %q: %w", id, err)
	}

	s.syncUser(ctx, *user)

	state.mu.Lock()
	defer state.mu.Unlock()
	state.session.User = *user
	session := state.session
	return &session, nil
}

func (s *SessionService) state(ctx context.Context, token string) (*sessionState, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	value, err := s.sessions.Get(ctx, sessionKey(token))
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	state, ok := value.(*sessionState)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state, nil
}

func sessionKey(token string) string {
	return "session:" + token
}

func (s *SessionService) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// ToggleCompare flips id in the session's comparison set for kind
func (s *SessionService) ToggleCompare(ctx context.Context, token string, kind domain.CatalogKind, id string) (*Comparison, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: item id is required", domain.ErrInvalidRequest)
	}
	return s.withComparison(ctx, token, kind, func(set *ComparisonSet) {
		set.Toggle(id)
	})
}

// ClearCompare empties the session's comparison set for kind
func (s *SessionService) ClearCompare(ctx context.Context, token string, kind domain.CatalogKind) (*Comparison, error) {
	return s.withComparison(ctx, token, kind, func(set *ComparisonSet) {
		set.Clear()
	})
}

// Comparison resolves the session's comparison set for kind against the catalog
func (s *SessionService) Comparison(ctx context.Context, token string, kind domain.CatalogKind) (*Comparison, error) {
	return s.withComparison(ctx, token, kind, func(*ComparisonSet) {})
}

func (s *SessionService) withComparison(ctx context.Context, token string, kind domain.CatalogKind, fn func(*ComparisonSet)) (*Comparison, error) {
	items, err := s.catalog.Items(ctx, kind)
	if err != nil {
		return nil, err
	}

	state, err := s.state(ctx, token)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	set, ok := state.compare[kind]
	if !ok {
		set = &ComparisonSet{}
		state.compare[kind] = set
	}
	fn(set)

	return &Comparison{
		Catalog: kind,
		IDs:     set.IDs(),
		Items:   Resolve(set, items),
		Ready:   set.Ready(),
	}, nil
}

// ListUsers returns every account; admin only
func (s *SessionService) ListUsers(ctx context.Context, session *domain.Session) ([]domain.User, error) {
	if _, err := s.requireAdmin(ctx, session); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// UserUpdate carries the admin-editable fields of an account.
// Nil fields are left unchanged.
type UserUpdate struct {
	Username      *string               `json:"username"`
	Role          *domain.Role          `json:"role"`
	Status        *domain.AccountStatus `json:"status"`
	EmailVerified *bool                 `json:"emailVerified"`
}

// UpdateUser applies an admin edit to an account
func (s *SessionService) UpdateUser(ctx context.Context, session *domain.Session, id string, update UserUpdate) (*domain.User, error) {
	actor, err := s.requireAdmin(ctx, session)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		user.Username = strings.TrimSpace(*update.Username)
	}
	if update.Role != nil {
		switch *update.Role {
		case domain.RoleAdmin, domain.RolePremium:
			user.Role = *update.Role
		default:
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRequest, *update.Role)
		}
	}
	if update.Status != nil {
		switch *update.Status {
		case domain.StatusPending, domain.StatusActive:
			user.Status = *update.Status
		default:
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, *update.Status)
		}
	}
	if update.EmailVerified != nil {
		user.EmailVerified = *update.EmailVerified
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.syncUser(ctx, *user)
	s.logger.Info("user updated", zap.String("user_id", user.ID), zap.String("by", actor.ID))
	return user, nil
}

// DeleteUser removes an account and signs out all of its sessions; admin
// only. Admins cannot delete themselves.
func (s *SessionService) DeleteUser(ctx context.Context, session *domain.Session, id string) error {
	actor, err := s.requireAdmin(ctx, session)
	if err != nil {
		return err
	}
	if id == actor.ID {
		return fmt.Errorf("%w: cannot delete the signed-in account", domain.ErrInvalidRequest)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	revoked := s.revokeUser(ctx, id)
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", actor.ID), zap.Int("sessions_revoked", revoked))
	return nil
}

// Settings returns the application settings; admin only
func (s *SessionService) Settings(ctx context.Context, session *domain.Session) (domain.AppSettings, error) {
	if _, err := s.requireAdmin(ctx, session); err != nil {
		return domain.AppSettings{}, err
	}
	return s.settings.GetSettings(ctx)
}

// UpdateSettings saves the application settings; admin only
func (s *SessionService) UpdateSettings(ctx context.Context, session *domain.Session, settings domain.AppSettings) error {
	if _, err := s.requireAdmin(ctx, session); err != nil {
		return err
	}
	if settings.AIRequestLimit < 0 {
		return fmt.Errorf("%w: aiRequestLimit must not be negative", domain.ErrInvalidRequest)
	}
	return s.settings.SaveSettings(ctx, settings)
}

// requireAdmin checks the live session behind session.Token, not the
// caller's copy, so revoked and demoted accounts are refused.
func (s *SessionService) requireAdmin(ctx context.Context, session *domain.Session) (*domain.User, error) {
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	live, err := s.Resolve(ctx, session.Token)
	if err != nil {
		return nil, err
	}
	if !live.User.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return &live.User, nil
}
