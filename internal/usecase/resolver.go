package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blendwise/backend/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultTopK is the result count used when the caller does not ask
	// for one.
	DefaultTopK = 10

	// shortlistSize is how many reranked results are surfaced as the
	// shortlist; the first of them is the top recommendation.
	shortlistSize = 5

	// overFetchFactor widens the retrieval pool handed to the reranker.
	overFetchFactor = 3
)

// ResolveRequest is one nutrition query against the catalog.
type ResolveRequest struct {
	Query    string
	TopK     int
	Category domain.CategoryFilter
}

// ResolverConfig holds configuration for the resolver
type ResolverConfig struct {
	EmbeddingDimensions int
}

// Resolver coordinates embedding, retrieval, reranking, rule application,
// and response assembly for nutrition queries.
type Resolver struct {
	embedder   domain.EmbeddingProvider
	store      domain.RecordStore
	reranker   domain.Reranker
	intents    *IntentExtractor
	rules      *RuleEngine
	composer   *Composer
	dimensions int
	log        *zap.Logger
}

// NewResolver creates a resolver with its collaborators.
func NewResolver(
	embedder domain.EmbeddingProvider,
	store domain.RecordStore,
	reranker domain.Reranker,
	rules *RuleEngine,
	composer *Composer,
	config ResolverConfig,
	log *zap.Logger,
) *Resolver {
	dimensions := config.EmbeddingDimensions
	if dimensions == 0 {
		dimensions = 512
	}

	return &Resolver{
		embedder:   embedder,
		store:      store,
		reranker:   reranker,
		intents:    NewIntentExtractor(),
		rules:      rules,
		composer:   composer,
		dimensions: dimensions,
		log:        log,
	}
}

// Resolve runs the full pipeline: embed query → filtered over-fetch →
// rerank to topK → re-join with metadata → rule application on the
// shortlist → explanation. Zero retrieval matches is a valid outcome, not
// an error; the composer is then skipped.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*domain.ResolvedAnswer, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}

	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be at least 1", domain.ErrInvalidRequest)
	}

	category := req.Category
	if category == "" {
		category = domain.CategoryAll
	}

	answer := &domain.ResolvedAnswer{
		Query:    query,
		Category: string(category),
		TopFive:  []domain.RankedResult{},
		Reranked: true,
	}

	vector, err := r.embedder.CreateEmbedding(ctx, query, r.dimensions)
	if err != nil {
		return nil, classify(err, domain.ErrEmbeddingUnavailable)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector", domain.ErrEmbeddingUnavailable)
	}

	// Over-fetch to give the reranker a useful candidate pool.
	matches, err := r.store.Query(ctx, vector, topK*overFetchFactor, true, category.StoreFilter())
	if err != nil {
		return nil, classify(err, domain.ErrRetrievalUnavailable)
	}
	if len(matches) == 0 {
		answer.AllResults = []domain.RankedResult{}
		return answer, nil
	}

	documents := make([]domain.RerankDocument, 0, len(matches))
	byID := make(map[string]*domain.RetrievalMatch, len(matches))
	for i := range matches {
		m := &matches[i]
		byID[m.ID] = m
		documents = append(documents, domain.RerankDocument{
			ID:   m.ID,
			Text: buildCandidateText(&m.Metadata),
		})
	}

	// Reranking is required precision: a reranker failure fails the
	// request rather than silently degrading to retrieval order.
	reranked, err := r.reranker.Rerank(ctx, query, documents, topK)
	if err != nil {
		return nil, classify(err, domain.ErrRerankUnavailable)
	}

	ranked := make([]domain.RankedResult, 0, len(reranked))
	dropped := 0
	for _, rr := range reranked {
		original, ok := byID[rr.ID]
		if !ok {
			// A reranked id with no original candidate cannot be the
			// same document; it is dropped.
			dropped++
			continue
		}
		ranked = append(ranked, toRankedResult(original, rr.Score))
	}
	if dropped > 0 {
		r.log.Warn("reranked documents had no matching retrieval candidate",
			zap.Int("dropped", dropped),
			zap.String("query", query))
	}

	answer.AllResults = ranked
	answer.Total = len(ranked)
	if len(ranked) == 0 {
		return answer, nil
	}

	shortlistLen := len(ranked)
	if shortlistLen > shortlistSize {
		shortlistLen = shortlistSize
	}

	// The query's size hint and add-ons drive rule application for the
	// shortlist's rule-bearing products.
	intent := r.intents.Extract(query)
	r.log.Debug("query intent",
		zap.String("productNameHint", intent.ProductNameHint),
		zap.String("sizeHint", intent.SizeHint),
		zap.Strings("addOns", intent.AddOns),
		zap.Strings("infoRequested", intent.InfoRequested))
	for i := 0; i < shortlistLen; i++ {
		if ranked[i].RuleFamily == domain.RuleFamilyNone {
			continue
		}
		original := byID[ranked[i].ID]
		adjusted, err := r.rules.Apply(&original.Metadata, intent.SizeHint, intent.AddOns)
		if err != nil {
			// A failed rule lookup falls back to the standard figures
			// already on the result; it never aborts the request.
			r.log.Warn("rule application failed, using standard figures",
				zap.String("id", ranked[i].ID),
				zap.Error(err))
			continue
		}
		applyAdjustment(&ranked[i], adjusted)
	}

	answer.TopRecommendation = &ranked[0]
	answer.TopFive = ranked[:shortlistLen]

	explanation, err := r.composer.Compose(ctx, query, category.DisplayName(), answer.TopFive)
	if err != nil {
		return nil, err
	}
	answer.AIResponse = explanation

	return answer, nil
}

// BasicAnswer is the response of the rerank-free search path.
type BasicAnswer struct {
	Query     string                `json:"query"`
	Documents []domain.RankedResult `json:"documents"`
	Total     int                   `json:"total"`
}

// ResolveBasic runs embedding and vector retrieval only: no reranking,
// no rule application, no explanation.
func (r *Resolver) ResolveBasic(ctx context.Context, query string, topK int) (*BasicAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be at least 1", domain.ErrInvalidRequest)
	}

	vector, err := r.embedder.CreateEmbedding(ctx, query, r.dimensions)
	if err != nil {
		return nil, classify(err, domain.ErrEmbeddingUnavailable)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector", domain.ErrEmbeddingUnavailable)
	}

	matches, err := r.store.Query(ctx, vector, topK, true, nil)
	if err != nil {
		return nil, classify(err, domain.ErrRetrievalUnavailable)
	}

	documents := make([]domain.RankedResult, 0, len(matches))
	for i := range matches {
		documents = append(documents, toRankedResult(&matches[i], 0))
	}

	return &BasicAnswer{Query: query, Documents: documents, Total: len(documents)}, nil
}

// buildCandidateText renders one retrieval candidate as the rich summary
// the reranker scores: name, category, serving, sizes, default-size
// nutrition line, ingredients, allergens. Empty fields are omitted.
func buildCandidateText(item *domain.MenuItem) string {
	parts := make([]string, 0, 13)
	if item.Name != "" {
		parts = append(parts, item.Name)
	}
	parts = append(parts, "Category: "+item.Category)
	if item.ServingSize != "" {
		parts = append(parts, "Serving: "+item.ServingSize)
	}
	if len(item.AvailableSizes) > 0 {
		parts = append(parts, "Sizes: "+strings.Join(item.AvailableSizes, ", "))
	}
	if item.NutritionSize != "" {
		parts = append(parts, "Nutrition based on: "+item.NutritionSize)
	}
	parts = append(parts,
		fmt.Sprintf("Calories: %g", item.Nutrition.Calories),
		fmt.Sprintf("Protein: %gg", item.Nutrition.Protein),
		fmt.Sprintf("Carbs: %gg", item.Nutrition.Carbs),
		fmt.Sprintf("Fat: %gg", item.Nutrition.Fat),
		fmt.Sprintf("Sugar: %gg", item.Nutrition.Sugar),
		fmt.Sprintf("Fiber: %gg", item.Nutrition.Fiber),
	)
	if len(item.Ingredients) > 0 {
		parts = append(parts, "Ingredients: "+strings.Join(item.Ingredients, ", "))
	}
	if len(item.Allergens) > 0 {
		parts = append(parts, "Allergens: "+strings.Join(item.Allergens, ", "))
	}
	return strings.Join(parts, " | ")
}

// toRankedResult joins a retrieval match with its rerank score.
func toRankedResult(m *domain.RetrievalMatch, rerankScore float64) domain.RankedResult {
	item := &m.Metadata
	return domain.RankedResult{
		ID:             m.ID,
		Score:          m.Score,
		RerankScore:    rerankScore,
		Name:           item.Name,
		Category:       item.Category,
		ServingSize:    item.ServingSize,
		Allergens:      item.Allergens,
		Ingredients:    item.Ingredients,
		AvailableSizes: item.AvailableSizes,
		NutritionSize:  item.NutritionSize,
		Calories:       item.Nutrition.Calories,
		Protein:        item.Nutrition.Protein,
		Carbs:          item.Nutrition.Carbs,
		Fat:            item.Nutrition.Fat,
		Sugar:          item.Nutrition.Sugar,
		Fiber:          item.Nutrition.Fiber,
		RuleFamily:     item.RuleFamily,
	}
}

// applyAdjustment copies the rule engine's output onto a ranked result.
// The adjusted size becomes the size the exposed figures describe.
func applyAdjustment(result *domain.RankedResult, adjusted *domain.AdjustedNutrition) {
	result.NutritionSize = adjusted.Size
	result.Calories = adjusted.Nutrition.Calories
	result.Protein = adjusted.Nutrition.Protein
	result.Carbs = adjusted.Nutrition.Carbs
	result.Fat = adjusted.Nutrition.Fat
	result.Sugar = adjusted.Nutrition.Sugar
	result.Fiber = adjusted.Nutrition.Fiber
	result.AppliedRules = adjusted.AppliedRules
}

// classify wraps err in the stage's sentinel unless it already carries a
// pipeline classification.
func classify(err error, sentinel error) error {
	if errors.Is(err, sentinel) || errors.Is(err, domain.ErrUpstreamTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
