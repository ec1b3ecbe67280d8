// Package openai is a thin REST client for the OpenAI embeddings and chat
// completion endpoints; the pipeline uses it as its embedding provider and
// text-generation provider.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blendwise/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxAttempts = 3

// Client handles communication with the OpenAI API
type Client struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	embeddingModel string
	chatModel      string
	rateLimiter    *rate.Limiter
	log            *zap.Logger
}

// NewClient creates a new OpenAI API client. timeout bounds each HTTP
// request so a hung upstream surfaces as a timeout instead of blocking
// the calling request indefinitely.
func NewClient(apiKey, baseURL, embeddingModel, chatModel string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Stay well under the account tier's request-per-minute ceiling;
	// bursts cover a handful of in-flight requests.
	limiter := rate.NewLimiter(rate.Limit(5), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:         apiKey,
		baseURL:        baseURL,
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
		rateLimiter:    limiter,
		log:            log,
	}
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// CreateEmbedding converts text to a fixed-dimension vector.
func (c *Client) CreateEmbedding(ctx context.Context, text string, dimensions int) ([]float32, error) {
	reqBody := embeddingRequest{
		Input:      text,
		Model:      c.embeddingModel,
		Dimensions: dimensions,
	}

	body, err := c.post(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode embedding response: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmbeddingUnavailable, embResp.Error.Message)
	}
	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector", domain.ErrEmbeddingUnavailable)
	}

	return embResp.Data[0].Embedding, nil
}

// ChatCompletion generates prose from a message sequence.
func (c *Client) ChatCompletion(ctx context.Context, messages []domain.ChatMessage, temperature float64, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	body, err := c.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("chat completion failed: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", domain.ErrComposerEmpty
	}

	return chatResp.Choices[0].Message.Content, nil
}

// post executes a JSON POST with throttling and bounded retry on
// transient failures.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamTimeout, path)
			}
			c.log.Warn("openai request failed",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			lastErr = err
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		// Retry server-side errors; client errors won't improve with retry.
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			c.log.Warn("openai API error",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode))
			lastErr = fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, lastErr
}
