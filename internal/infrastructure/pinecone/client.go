// Package pinecone is a REST client for the Pinecone index query endpoint
// and the hosted rerank endpoint; the pipeline uses it as its record store
// and relevance reranker.
package pinecone

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

const apiVersion = "2025-01"

// Client handles communication with Pinecone. indexHost is the data-plane
// host of one index; rerankBaseURL is the shared inference API.
type Client struct {
	httpClient    *http.Client
	apiKey        string
	indexHost     string
	rerankBaseURL string
	rerankModel   string
	rateLimiter   *rate.Limiter
	log           *zap.Logger
}

// NewClient creates a new Pinecone client.
func NewClient(apiKey, indexHost, rerankBaseURL, rerankModel string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:        apiKey,
		indexHost:     indexHost,
		rerankBaseURL: rerankBaseURL,
		rerankModel:   rerankModel,
		rateLimiter:   limiter,
		log:           log,
	}
}

type queryRequest struct {
	Vector          []float32              `json:"vector"`
	TopK            int                    `json:"topK"`
	IncludeMetadata bool                   `json:"includeMetadata"`
	Filter          map[string]interface{} `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

type rerankRequest struct {
	Model           string                  `json:"model"`
	Query           string                  `json:"query"`
	Documents       []domain.RerankDocument `json:"documents"`
	TopN            int                     `json:"top_n"`
	RankFields      []string                `json:"rank_fields"`
	ReturnDocuments bool                    `json:"return_documents"`
}

type rerankResponse struct {
	Data []struct {
		Index    int                   `json:"index"`
		Score    float64               `json:"score"`
		Document domain.RerankDocument `json:"document"`
	} `json:"data"`
}

// Query runs an approximate nearest-neighbor search against the index.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool, filter map[string]interface{}) ([]domain.RetrievalMatch, error) {
	reqBody := queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: includeMetadata,
		Filter:          filter,
	}

	body, err := c.post(ctx, c.indexHost+"/query", reqBody, domain.ErrRetrievalUnavailable)
	if err != nil {
		return nil, err
	}

	var queryResp queryResponse
	if err := json.Unmarshal(body, &queryResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode query response: %v", domain.ErrRetrievalUnavailable, err)
	}

	matches := make([]domain.RetrievalMatch, 0, len(queryResp.Matches))
	for _, m := range queryResp.Matches {
		matches = append(matches, domain.RetrievalMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: MapToMenuItem(m.ID, m.Metadata),
		})
	}
	return matches, nil
}

// Rerank scores the candidate documents against the query and returns the
// topN most relevant, best first.
func (c *Client) Rerank(ctx context.Context, query string, documents []domain.RerankDocument, topN int) ([]domain.RerankResult, error) {
	reqBody := rerankRequest{
		Model:           c.rerankModel,
		Query:           query,
		Documents:       documents,
		TopN:            topN,
		RankFields:      []string{"text"},
		ReturnDocuments: true,
	}

	body, err := c.post(ctx, c.rerankBaseURL+"/rerank", reqBody, domain.ErrRerankUnavailable)
	if err != nil {
		return nil, err
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode rerank response: %v", domain.ErrRerankUnavailable, err)
	}

	results := make([]domain.RerankResult, 0, len(rerankResp.Data))
	for _, d := range rerankResp.Data {
		id := d.Document.ID
		if id == "" && d.Index >= 0 && d.Index < len(documents) {
			id = documents[d.Index].ID
		}
		results = append(results, domain.RerankResult{ID: id, Score: d.Score})
	}
	return results, nil
}

// post executes a JSON POST against a Pinecone endpoint. Failures wrap
// sentinel so callers can classify the failing stage with errors.Is.
func (c *Client) post(ctx context.Context, url string, payload interface{}, sentinel error) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamTimeout, url)
		}
		return nil, fmt.Errorf("%w: %v", sentinel, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", sentinel, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("pinecone API error",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", sentinel, resp.StatusCode)
	}

	return body, nil
}
