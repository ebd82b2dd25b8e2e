package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/observability"
)

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIMaxTokens  = 1024
	defaultOpenAIRetryDelay = 2 * time.Second
)

// chatRequest represents the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat specifies the output format for the API response.
type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse represents the OpenAI Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage contains token usage information.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// summaryResponse is the JSON shape requested from the summarize prompt.
type summaryResponse struct {
	Summary string `json:"summary"`
}

// Compile-time interface verification.
var _ Enricher = (*OpenAIEnricher)(nil)

// OpenAIEnricher implements Enricher using the OpenAI Chat Completions API.
type OpenAIEnricher struct {
	httpClient  *http.Client
	metrics     *observability.Metrics
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// OpenAIConfig holds the parameters needed to create an OpenAI enricher.
// Defined here to avoid importing the config package.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the model identifier (e.g., "gpt-4o-mini").
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
	// Temperature is the sampling temperature.
	Temperature float64
	// Timeout is the per-call timeout.
	Timeout time.Duration
	// MaxRetries bounds retries of transient failures.
	MaxRetries int
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration
}

// NewOpenAIEnricher creates an enricher backed by the OpenAI Chat
// Completions API with JSON response format. Transient API errors are
// retried. Metrics may be nil.
func NewOpenAIEnricher(cfg OpenAIConfig, metrics *observability.Metrics) *OpenAIEnricher {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultOpenAIRetryDelay
	}

	return &OpenAIEnricher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		metrics:     metrics,
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
	}
}

// Model returns the model identifier being used.
func (p *OpenAIEnricher) Model() string {
	return p.model
}

// Categorize assigns subject areas and keywords to the article via the
// Chat Completions API.
func (p *OpenAIEnricher) Categorize(ctx context.Context, article *domain.Article) (*Enrichment, error) {
	system, user := buildCategorizePrompt(article)

	content, err := p.complete(ctx, "categorize", system, user)
	if err != nil {
		return nil, err
	}

	var enrichment Enrichment
	if err := json.Unmarshal([]byte(content), &enrichment); err != nil {
		return nil, fmt.Errorf("openai: failed to parse categorization response: %w", err)
	}
	if enrichment.PrimaryArea == "" {
		return nil, fmt.Errorf("openai: categorization returned no primary area")
	}

	return &enrichment, nil
}

// Summarize produces a short summary of the article. On any failure
// the extractive fallback summary is returned instead of an error, so
// a broken AI upstream never blocks the endpoint.
func (p *OpenAIEnricher) Summarize(ctx context.Context, article *domain.Article) (string, error) {
	system, user := buildSummarizePrompt(article)

	content, err := p.complete(ctx, "summarize", system, user)
	if err != nil {
		return FallbackSummary(article), nil
	}

	var resp summaryResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil || strings.TrimSpace(resp.Summary) == "" {
		return FallbackSummary(article), nil
	}

	return strings.TrimSpace(resp.Summary), nil
}

// complete runs one prompt through the retry loop and returns the
// model's message content.
func (p *OpenAIEnricher) complete(ctx context.Context, operation, system, user string) (string, error) {
	chatReq := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: p.temperature,
		MaxTokens:   defaultOpenAIMaxTokens,
		ResponseFormat: &responseFormat{
			Type: "json_object",
		},
	}

	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		content, err := p.doRequest(ctx, chatReq)
		if err == nil {
			if p.metrics != nil {
				p.metrics.RecordEnrichment(operation, p.model, time.Since(start).Seconds())
			}
			return content, nil
		}

		// Only retry on transient errors (5xx, 429).
		if !isTransientError(err) {
			p.recordFailure(operation, err)
			return "", err
		}
		lastErr = err
	}

	p.recordFailure(operation, lastErr)
	return "", fmt.Errorf("openai: exhausted %d retries: %w", p.maxRetries, lastErr)
}

func (p *OpenAIEnricher) recordFailure(operation string, err error) {
	if p.metrics == nil {
		return
	}
	errorType := "request"
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		errorType = "api"
		if apiErr.IsTransient() {
			errorType = "transient"
		}
	}
	p.metrics.RecordEnrichmentFailed(operation, p.model, errorType)
}

// doRequest performs a single API request to the Chat Completions endpoint.
func (p *OpenAIEnricher) doRequest(ctx context.Context, chatReq chatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("openai: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseOpenAIAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// parseOpenAIAPIError parses an OpenAI API error from the response status code and body.
func parseOpenAIAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "openai",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
