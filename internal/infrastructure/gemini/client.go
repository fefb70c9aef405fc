package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/pharmasource/backend/internal/domain"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = "gemini-2.0-flash"

	// SearchCatalogTool is the function the model calls to look products up
	SearchCatalogTool = "search_catalog"

	maxAttempts      = 3
	maxToolCalls     = 4
	defaultTimeout   = 30 * time.Second
	defaultPerMinute = 60
)

// generator is the slice of the genai models service the client needs
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini client settings
type Config struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	Debug             bool
}

// Client answers assistant prompts with the Gemini API. It lets the model
// call the catalog lookup tool for one round before producing its answer.
type Client struct {
	models      generator
	model       string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", domain.ErrAssistantUnavailable)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newClient(gc.Models, config, logger), nil
}

func newClient(models generator, config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	perMinute := config.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}

	return &Client{
		models:      models,
		model:       model,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), 5),
		backoff:     exponentialBackoff,
		logger:      logger.Named("gemini"),
		debug:       config.Debug,
	}
}

// SetDebug enables or disables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Ask sends the conversation to the model. When the model asks for catalog
// lookups they are answered through lookup and the model is called again
// for the final text.
func (c *Client) Ask(ctx context.Context, req domain.AssistantRequest, lookup domain.CatalogLookup) (*domain.AssistantReply, error) {
	contents := toContents(req.History)
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{catalogTool()},
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}

	resp, err := c.generate(ctx, contents, config)
	if err != nil {
		return nil, err
	}

	reply := &domain.AssistantReply{}
	calls := resp.FunctionCalls()
	if len(calls) == 0 || lookup == nil {
		return c.finish(reply, resp)
	}
	if len(calls) > maxToolCalls {
		calls = calls[:maxToolCalls]
	}

	callParts := make([]*genai.Part, 0, len(calls))
	resultParts := make([]*genai.Part, 0, len(calls))
	for _, call := range calls {
		callParts = append(callParts, &genai.Part{FunctionCall: call})

		var result map[string]any
		if call.Name != SearchCatalogTool {
			result = map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
		} else {
			q := parseCatalogQuery(call.Args)
			reply.ToolCalls = append(reply.ToolCalls, q)
			result = lookup(ctx, q)
		}
		if c.debug {
			c.logger.Debug("tool call", zap.String("name", call.Name), zap.Any("args", call.Args))
		}

		resultParts = append(resultParts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: result,
		}})
	}

	contents = append(contents,
		&genai.Content{Role: string(genai.RoleModel), Parts: callParts},
		&genai.Content{Role: string(genai.RoleUser), Parts: resultParts},
	)

	// One tool round only; the follow-up may not call tools again
	config.Tools = nil
	resp, err = c.generate(ctx, contents, config)
	if err != nil {
		return nil, err
	}
	return c.finish(reply, resp)
}

func (c *Client) finish(reply *domain.AssistantReply, resp *genai.GenerateContentResponse) (*domain.AssistantReply, error) {
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrAssistantFailure)
	}
	reply.Text = text
	return reply, nil
}

// generate calls the model, retrying rate limits and server errors
func (c *Client) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrAssistantFailure, err)
		}

		started := time.Now()
		resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
		if err == nil {
			if c.debug {
				c.logger.Debug("generated content",
					zap.String("model", c.model),
					zap.Int("attempt", attempt),
					zap.Duration("took", time.Since(started)))
			}
			return resp, nil
		}

		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}

		c.logger.Warn("gemini request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrAssistantFailure, ctx.Err())
		case <-time.After(c.backoff(attempt)):
		}
	}

	c.logger.Error("gemini request failed", zap.Error(lastErr))
	return nil, fmt.Errorf("%w: %v", domain.ErrAssistantFailure, lastErr)
}

// retryable reports whether err is a rate limit or server side failure
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}
	// Transport errors carry no status; treat them as transient
	return true
}
