package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/pharmasource/backend/internal/domain"
)

// fakeModels replays canned responses and records every request
type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     [][]*genai.Content
	configs   []*genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := len(f.calls)
	f.calls = append(f.calls, contents)
	cfg := *config
	f.configs = append(f.configs, &cfg)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("unexpected call")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func callResponse(calls ...*genai.FunctionCall) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, &genai.Part{FunctionCall: c})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: parts},
		}},
	}
}

func newTestClient(t *testing.T, models *fakeModels) *Client {
	t.Helper()
	c := newClient(models, Config{RequestsPerMinute: 6000}, zaptest.NewLogger(t))
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	client, err := NewClient(context.Background(), Config{}, nil)

	assert.Nil(t, client)
	assert.ErrorIs(t, err, domain.ErrAssistantUnavailable)
}

func TestNewClient_Defaults(t *testing.T) {
	c := newClient(&fakeModels{}, Config{}, nil)

	assert.Equal(t, DefaultModel, c.model)
	assert.NotNil(t, c.rateLimiter)
	assert.False(t, c.debug)

	c.SetDebug(true)
	assert.True(t, c.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestAsk_PlainAnswer(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("  Hello there  ")}}
	c := newTestClient(t, models)

	reply, err := c.Ask(context.Background(), domain.AssistantRequest{
		History: []domain.AssistantMessage{
			{Role: "user", Text: "hi"},
			{Role: "assistant", Text: "hello"},
			{Role: "user", Text: "   "},
		},
		Prompt:            "what do you sell?",
		SystemInstruction: "be brief",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply.Text)
	assert.Empty(t, reply.ToolCalls)

	require.Len(t, models.calls, 1)
	sent := models.calls[0]
	require.Len(t, sent, 3)
	assert.Equal(t, "user", sent[0].Role)
	assert.Equal(t, "model", sent[1].Role)
	assert.Equal(t, "what do you sell?", sent[2].Parts[0].Text)
	require.NotNil(t, models.configs[0].SystemInstruction)
	assert.Equal(t, "be brief", models.configs[0].SystemInstruction.Parts[0].Text)
	assert.Len(t, models.configs[0].Tools, 1)
}

func TestAsk_ToolRound(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{
		callResponse(&genai.FunctionCall{
			ID:   "call-1",
			Name: SearchCatalogTool,
			Args: map[string]any{"catalog": "Milk", "query": " aptamil ", "brand": "Aptamil"},
		}),
		textResponse("We carry Aptamil 1."),
	}}
	c := newTestClient(t, models)

	var got []domain.CatalogQuery
	lookup := func(ctx context.Context, q domain.CatalogQuery) map[string]any {
		got = append(got, q)
		return map[string]any{"count": 1}
	}

	reply, err := c.Ask(context.Background(), domain.AssistantRequest{Prompt: "any aptamil?"}, lookup)

	require.NoError(t, err)
	assert.Equal(t, "We carry Aptamil 1.", reply.Text)

	want := domain.CatalogQuery{Catalog: domain.KindMilk, Text: "aptamil", Brand: "Aptamil"}
	assert.Equal(t, []domain.CatalogQuery{want}, got)
	assert.Equal(t, []domain.CatalogQuery{want}, reply.ToolCalls)

	require.Len(t, models.calls, 2)
	followUp := models.calls[1]
	require.Len(t, followUp, 3)
	resp := followUp[2].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, "call-1", resp.ID)
	assert.Equal(t, map[string]any{"count": 1}, resp.Response)
	assert.Nil(t, models.configs[1].Tools)
}

func TestAsk_UnknownToolIsReportedToModel(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{
		callResponse(&genai.FunctionCall{Name: "delete_everything"}),
		textResponse("I cannot do that."),
	}}
	c := newTestClient(t, models)

	called := false
	reply, err := c.Ask(context.Background(), domain.AssistantRequest{Prompt: "x"}, func(context.Context, domain.CatalogQuery) map[string]any {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, reply.ToolCalls)
	assert.Contains(t, models.calls[1][2].Parts[0].FunctionResponse.Response["error"], "unknown tool")
}

func TestAsk_EmptyAnswer(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("")}}
	c := newTestClient(t, models)

	reply, err := c.Ask(context.Background(), domain.AssistantRequest{Prompt: "x"}, nil)

	assert.Nil(t, reply)
	assert.ErrorIs(t, err, domain.ErrAssistantFailure)
}

func TestAsk_ServerError_Retries(t *testing.T) {
	models := &fakeModels{
		errs:      []error{genai.APIError{Code: 503}, genai.APIError{Code: 500}},
		responses: []*genai.GenerateContentResponse{nil, nil, textResponse("ok")},
	}
	c := newTestClient(t, models)

	reply, err := c.Ask(context.Background(), domain.AssistantRequest{Prompt: "x"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
	assert.Len(t, models.calls, 3)
}

func TestAsk_ClientError_NoRetry(t *testing.T) {
	models := &fakeModels{errs: []error{genai.APIError{Code: 400, Message: "bad request"}}}
	c := newTestClient(t, models)

	reply, err := c.Ask(context.Background(), domain.AssistantRequest{Prompt: "x"}, nil)

	assert.Nil(t, reply)
	assert.ErrorIs(t, err, domain.ErrAssistantFailure)
	assert.Len(t, models.calls, 1)
}

func TestAsk_AllRetriesFail(t *testing.T) {
	boom := errors.New("connection reset")
	models := &fakeModels{errs: []error{boom, boom, boom}}
	c := newTestClient(t, models)

	_, err := c.Ask(context.Background(), domain.AssistantRequest{Prompt: "x"}, nil)

	assert.ErrorIs(t, err, domain.ErrAssistantFailure)
	assert.Len(t, models.calls, maxAttempts)
}

func TestAsk_ContextCancelled(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("late")}}
	c := newTestClient(t, models)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := c.Ask(ctx, domain.AssistantRequest{Prompt: "x"}, nil)

	assert.Nil(t, reply)
	assert.ErrorIs(t, err, domain.ErrAssistantFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, models.calls)
}

func TestAsk_RateLimiterDeadline(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("late")}}
	c := newTestClient(t, models)
	c.rateLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, c.rateLimiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	reply, err := c.Ask(ctx, domain.AssistantRequest{Prompt: "x"}, nil)

	assert.Nil(t, reply)
	assert.ErrorIs(t, err, domain.ErrAssistantFailure)
	assert.Empty(t, models.calls)
}

func TestParseCatalogQuery(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want domain.CatalogQuery
	}{
		{
			name: "all fields",
			args: map[string]any{"catalog": "COSMETICS", "query": "cera%", "brand": "CeraVe"},
			want: domain.CatalogQuery{Catalog: domain.KindCosmetics, Text: "cera%", Brand: "CeraVe"},
		},
		{
			name: "missing fields",
			args: map[string]any{},
			want: domain.CatalogQuery{},
		},
		{
			name: "non string values",
			args: map[string]any{"catalog": "milk", "query": 123.0, "brand": nil},
			want: domain.CatalogQuery{Catalog: domain.KindMilk, Text: "123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCatalogQuery(tt.args))
		})
	}
}

func TestCatalogToolDeclaration(t *testing.T) {
	tool := catalogTool()

	require.Len(t, tool.FunctionDeclarations, 1)
	decl := tool.FunctionDeclarations[0]
	assert.Equal(t, SearchCatalogTool, decl.Name)
	assert.Equal(t, []string{"catalog"}, decl.Parameters.Required)
	assert.Contains(t, decl.Parameters.Properties, "query")
	assert.Contains(t, decl.Parameters.Properties, "brand")
}
