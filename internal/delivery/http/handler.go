package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pharmasource/backend/internal/domain"
	"github.com/pharmasource/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog    *usecase.CatalogService
	sessions   *usecase.SessionService
	assistant  *usecase.AssistantService
	brandLimit int
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *usecase.CatalogService,
	sessions *usecase.SessionService,
	assistant *usecase.AssistantService,
	brandLimit int,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		catalog:    catalog,
		sessions:   sessions,
		assistant:  assistant,
		brandLimit: brandLimit,
		logger:     logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "pharmasource-backend",
		"version":   "1.0.0",
		"assistant": h.assistant != nil && h.assistant.Available(),
	})
}

// searchResponse is the body of both catalog search endpoints
type searchResponse[T domain.Item] struct {
	State          usecase.DisplayState `json:"state"`
	Count          int                  `json:"count"`
	Items          []T                  `json:"items"`
	MinQueryLength int                  `json:"minQueryLength"`
}

func newSearchResponse[T domain.Item](p usecase.Projection[T], minLen int) searchResponse[T] {
	return searchResponse[T]{
		State:          p.State,
		Count:          p.Count(),
		Items:          p.Items,
		MinQueryLength: minLen,
	}
}

// SearchCosmetics handles GET /api/v1/cosmetics/search?q=&brand=
func (h *Handler) SearchCosmetics(c *gin.Context) {
	q := usecase.Query{
		Text:  c.Query("q"),
		Brand: c.Query("brand"),
	}

	p, err := h.catalog.SearchCosmetics(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSearchResponse(p, h.catalog.Projector().MinQueryLength()))
}

// SearchMilk handles GET /api/v1/milk/search?q=&brand=&type=
func (h *Handler) SearchMilk(c *gin.Context) {
	formula, err := domain.ParseFormulaType(c.Query("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	q := usecase.Query{
		Text:    c.Query("q"),
		Brand:   c.Query("brand"),
		Formula: formula,
	}

	p, err := h.catalog.SearchMilk(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSearchResponse(p, h.catalog.Projector().MinQueryLength()))
}

// Brands returns the brand dropdown handler for a catalog; ?q= narrows it
func (h *Handler) Brands(kind domain.CatalogKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		brands, err := h.catalog.SuggestBrands(c.Request.Context(), kind, c.Query("q"), h.brandLimit)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"catalog": kind, "brands": brands})
	}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"` // e-mail or bare username
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: s.User}
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	session, err := h.sessions.Register(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(session))
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	session, err := h.sessions.SignIn(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session))
}

// Logout handles POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, toSessionResponse(currentSession(c)))
}

// Refresh handles POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	session, err := h.sessions.Refresh(c.Request.Context(), currentSession(c).Token)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session))
}

type toggleRequest struct {
	ID string `json:"id" binding:"required"`
}

// GetComparison handles GET /api/v1/compare/:catalog
func (h *Handler) GetComparison(c *gin.Context) {
	kind, err := domain.ParseCatalogKind(c.Param("catalog"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	cmp, err := h.sessions.Comparison(c.Request.Context(), currentSession(c).Token, kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// ToggleCompare handles POST /api/v1/compare/:catalog/toggle
func (h *Handler) ToggleCompare(c *gin.Context) {
	kind, err := domain.ParseCatalogKind(c.Param("catalog"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	cmp, err := h.sessions.ToggleCompare(c.Request.Context(), currentSession(c).Token, kind, req.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// ClearCompare handles DELETE /api/v1/compare/:catalog
func (h *Handler) ClearCompare(c *gin.Context) {
	kind, err := domain.ParseCatalogKind(c.Param("catalog"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	cmp, err := h.sessions.ClearCompare(c.Request.Context(), currentSession(c).Token, kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

type askRequest struct {
	Prompt  string                    `json:"prompt" binding:"required"`
	History []domain.AssistantMessage `json:"history"`
}

// Ask handles POST /api/v1/assistant/ask
func (h *Handler) Ask(c *gin.Context) {
	if h.assistant == nil {
		h.respondError(c, domain.ErrAssistantUnavailable)
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	reply, err := h.assistant.Ask(c.Request.Context(), currentSession(c), req.Prompt, req.History)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ListUsers handles GET /api/v1/admin/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.sessions.ListUsers(c.Request.Context(), currentSession(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateUser handles PUT /api/v1/admin/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	var update usecase.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.sessions.UpdateUser(c.Request.Context(), currentSession(c), c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.sessions.DeleteUser(c.Request.Context(), currentSession(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSettings handles GET /api/v1/admin/settings
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.sessions.Settings(c.Request.Context(), currentSession(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/v1/admin/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var settings domain.AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.sessions.UpdateSettings(c.Request.Context(), currentSession(c), settings); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": "invalid request body: " + err.Error(),
		"code":  "invalid_request",
	})
}
