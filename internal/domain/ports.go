package domain

import "context"

// EmbeddingProvider converts free text to a fixed-dimension vector.
type EmbeddingProvider interface {
	CreateEmbedding(ctx context.Context, text string, dimensions int) ([]float32, error)
}

// RecordStore is the vector database holding menu-item embeddings and
// flattened metadata, queryable by approximate nearest-neighbor search
// with optional metadata filters.
type RecordStore interface {
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool, filter map[string]interface{}) ([]RetrievalMatch, error)
}

// RerankDocument is one candidate handed to the reranker: the retrieval id
// plus a rich text summary of the item.
type RerankDocument struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RerankResult is the reranker's verdict on one document.
type RerankResult struct {
	ID    string
	Score float64
}

// Reranker reorders candidate documents by relevance to the full query,
// returning at most topN results, best first.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []RerankDocument, topN int) ([]RerankResult, error)
}

// ChatMessage is a single turn handed to the text-generation provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatProvider generates prose from a message sequence. The pipeline treats
// its output as opaque text.
type ChatProvider interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error)
}

// IngredientCatalog resolves add-on ingredient names to their per-serving
// nutrition profiles. Lookup is case-insensitive; a miss returns
// ErrProductNotFound.
type IngredientCatalog interface {
	Lookup(name string) (*NutritionProfile, error)
}
