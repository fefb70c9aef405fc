package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidCatalog is returned when loaded catalog data breaks an invariant
	ErrInvalidCatalog = errors.New("invalid catalog data")

	// ErrCatalogUnavailable is returned when the catalog source cannot be read
	ErrCatalogUnavailable = errors.New("catalog source unavailable")

	// ErrProductNotFound is returned when an item id is not in the catalog
	ErrProductNotFound = errors.New("product not found in catalog")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrNotFound is returned by repositories for missing records
	ErrNotFound = errors.New("record not found")

	// ErrEmailInUse is returned when registering an address that already has an account
	ErrEmailInUse = errors.New("email address already registered")

	// ErrInvalidCredentials is returned for an unknown login or wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSessionNotFound is returned for unknown, expired or signed-out session tokens
	ErrSessionNotFound = errors.New("session not found")

	// ErrForbidden is returned when the session user lacks the required role
	ErrForbidden = errors.New("operation not permitted for this user")

	// ErrEmailNotVerified is returned when a non-admin user asks the assistant before verifying
	ErrEmailNotVerified = errors.New("email verification required")

	// ErrAccessPending is returned while a premium account awaits approval
	ErrAccessPending = errors.New("assistant access pending approval")

	// ErrQuotaExceeded is returned when the daily assistant request limit is used up
	ErrQuotaExceeded = errors.New("daily assistant request limit reached")

	// ErrAssistantDisabled is returned when the assistant is switched off in settings
	ErrAssistantDisabled = errors.New("assistant disabled")

	// ErrAssistantUnavailable is returned when no assistant backend is configured
	ErrAssistantUnavailable = errors.New("assistant service is not available")

	// ErrAssistantFailure is returned when the generative AI API request fails
	ErrAssistantFailure = errors.New("assistant request failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
