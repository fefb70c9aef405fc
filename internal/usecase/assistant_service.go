package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pharmasource/backend/internal/domain"
)

// DefaultSystemInstruction frames the assistant as a pharmacy product helper
const DefaultSystemInstruction = "You are a pharmacy assistant helping staff find cosmetics and infant milk formulas. " +
	"Use the search_catalog tool to look products up before answering questions about availability. " +
	"Answer briefly and never give a medical diagnosis."

// maxToolResults caps how many items a single catalog lookup hands to the model
const maxToolResults = 10

// AssistantServiceConfig holds configuration for the assistant service
type AssistantServiceConfig struct {
	SystemInstruction  string
	EnableDebugLogging bool
}

// AssistantService gates access to the AI assistant and answers its catalog lookups
type AssistantService struct {
	assistant domain.Assistant
	users     domain.UserRepository
	settings  domain.SettingsRepository
	catalog   *CatalogService
	sessions  *SessionService
	cleaner   *QueryCleaner
	logger    *zap.Logger

	systemInstruction string
	now               func() time.Time
}

// NewAssistantService creates a new assistant service. A nil assistant means
// no AI backend is configured; Ask then reports ErrAssistantUnavailable.
func NewAssistantService(
	assistant domain.Assistant,
	users domain.UserRepository,
	settings domain.SettingsRepository,
	catalog *CatalogService,
	sessions *SessionService,
	config AssistantServiceConfig,
	logger *zap.Logger,
) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	instruction := strings.TrimSpace(config.SystemInstruction)
	if instruction == "" {
		instruction = DefaultSystemInstruction
	}

	return &AssistantService{
		assistant:         assistant,
		users:             users,
		settings:          settings,
		catalog:           catalog,
		sessions:          sessions,
		cleaner:           NewQueryCleaner(config.EnableDebugLogging, logger),
		logger:            logger,
		systemInstruction: instruction,
		now:               time.Now,
	}
}

// Available reports whether an AI backend is configured
func (s *AssistantService) Available() bool {
	return s.assistant != nil
}

// Ask checks the caller may use the assistant, counts the request against
// the daily quota and forwards the prompt.
func (s *AssistantService) Ask(ctx context.Context, session *domain.Session, prompt string, history []domain.AssistantMessage) (*domain.AssistantReply, error) {
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrInvalidRequest)
	}
	if s.assistant == nil {
		return nil, domain.ErrAssistantUnavailable
	}

	remaining, err := s.authorize(ctx, session)
	if err != nil {
		return nil, err
	}

	reply, err := s.assistant.Ask(ctx, domain.AssistantRequest{
		History:           history,
		Prompt:            prompt,
		SystemInstruction: s.systemInstruction,
	}, s.Lookup)
	if err != nil {
		return nil, err
	}
	reply.Remaining = remaining
	return reply, nil
}

// authorize applies the access rules and consumes one unit of quota.
// It returns the requests left today, or -1 for unlimited.
func (s *AssistantService) authorize(ctx context.Context, session *domain.Session) (int, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("using default settings", zap.Error(err))
		settings = domain.DefaultSettings()
	}

	// Access rules use the stored account; the session copy may be stale
	stored, err := s.users.Get(ctx, session.User.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if s.sessions != nil {
				s.sessions.revokeUser(ctx, session.User.ID)
			}
			return 0, domain.ErrSessionNotFound
		}
		return 0, fmt.Errorf("load user %q: %w", session.User.ID, err)
	}
	user := *stored

	if user.IsAdmin() {
		s.syncSessions(ctx, user)
		return -1, nil
	}
	if !settings.AIEnabled {
		return 0, domain.ErrAssistantDisabled
	}
	if !user.EmailVerified {
		return 0, domain.ErrEmailNotVerified
	}
	if user.Status == domain.StatusPending {
		return 0, domain.ErrAccessPending
	}

	today := s.now().UTC().Format("2006-01-02")
	if user.LastRequestDate != today {
		user.AIRequestCount = 0
		user.LastRequestDate = today
	}

	limit := settings.AIRequestLimit
	if limit > 0 && user.AIRequestCount >= limit {
		return 0, domain.ErrQuotaExceeded
	}

	count, err := s.users.ConsumeRequest(ctx, user.ID, today, limit)
	switch {
	case err == nil:
		user.AIRequestCount = count
	case errors.Is(err, domain.ErrQuotaExceeded):
		return 0, err
	case errors.Is(err, domain.ErrNotFound):
		return 0, domain.ErrSessionNotFound
	default:
		// Usage tracking must not block the request
		s.logger.Warn("failed to update usage stats", zap.String("user_id", user.ID), zap.Error(err))
		user.AIRequestCount++
	}
	s.syncSessions(ctx, user)

	if limit <= 0 {
		return -1, nil
	}
	return limit - user.AIRequestCount, nil
}

func (s *AssistantService) syncSessions(ctx context.Context, user domain.User) {
	if s.sessions != nil {
		s.sessions.syncUser(ctx, user)
	}
}

// Lookup answers the assistant's search_catalog tool with a projection of
// the requested catalog.
func (s *AssistantService) Lookup(ctx context.Context, q domain.CatalogQuery) map[string]any {
	text := s.cleaner.Clean(q.Text)
	query := Query{Text: text, Brand: strings.TrimSpace(q.Brand)}

	result := map[string]any{
		"catalog": string(q.Catalog),
		"query":   text,
	}

	var (
		state DisplayState
		items []map[string]any
		err   error
	)
	switch q.Catalog {
	case domain.KindCosmetics:
		var p Projection[domain.Cosmetic]
		p, err = s.catalog.SearchCosmetics(ctx, query)
		state = p.State
		for i, c := range p.Items {
			if i == maxToolResults {
				break
			}
			items = append(items, map[string]any{
				"id":      c.ID,
				"brand":   c.BrandName,
				"name":    c.SpecificName,
				"name_ar": c.SpecificNameAr,
			})
		}
		result["count"] = p.Count()
	case domain.KindMilk:
		var p Projection[domain.MilkFormula]
		p, err = s.catalog.SearchMilk(ctx, query)
		state = p.State
		for i, m := range p.Items {
			if i == maxToolResults {
				break
			}
			items = append(items, milkToolItem(m))
		}
		result["count"] = p.Count()
	default:
		result["error"] = fmt.Sprintf("unknown catalog %q, use cosmetics or milk", q.Catalog)
		return result
	}

	if err != nil {
		s.logger.Warn("catalog lookup failed", zap.String("catalog", string(q.Catalog)), zap.Error(err))
		result["error"] = "catalog unavailable"
		return result
	}

	result["state"] = string(state)
	result["items"] = items
	if state == StateGated {
		result["hint"] = fmt.Sprintf("query must have at least %d characters or a brand", s.catalog.Projector().MinQueryLength())
	}
	return result
}

func milkToolItem(m domain.MilkFormula) map[string]any {
	item := map[string]any{
		"id":       m.ID,
		"brand":    m.BrandName,
		"name":     m.ProductName,
		"features": m.KeyFeatures,
		"type":     string(m.Type),
	}
	switch m.Type {
	case domain.FormulaStandard:
		if m.Standard != nil {
			item["stage"] = m.Standard.Stage
			item["age_range"] = m.Standard.AgeRange
		}
	case domain.FormulaSpecial:
		if m.Special != nil {
			item["special_type"] = m.Special.SpecialType
			item["indication"] = m.Special.Indication
		}
	}
	return item
}
