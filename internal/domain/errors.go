package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when the admission-control limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrEmbeddingUnavailable is returned when the embedding provider fails
	// or returns no vector
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrRetrievalUnavailable is returned when the vector record store fails
	ErrRetrievalUnavailable = errors.New("record store unavailable")

	// ErrRerankUnavailable is returned when the reranker fails. Reranking is
	// required precision, so there is no fallback to raw retrieval order.
	ErrRerankUnavailable = errors.New("reranker unavailable")

	// ErrComposerEmpty is returned when the text-generation provider returns
	// an empty explanation
	ErrComposerEmpty = errors.New("composer returned empty response")

	// ErrUpstreamTimeout is returned when an upstream call exceeds its deadline
	ErrUpstreamTimeout = errors.New("upstream call timed out")

	// ErrProductNotFound is returned by the rule engine when no base record
	// is available for rule application
	ErrProductNotFound = errors.New("product not found")
)
