package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/blendwise/backend/internal/domain"
	"go.uber.org/zap"
)

// MockEmbeddingProvider is a mock implementation of domain.EmbeddingProvider
type MockEmbeddingProvider struct {
	vector   []float32
	err      error
	lastText string
	lastDims int
}

func (m *MockEmbeddingProvider) CreateEmbedding(ctx context.Context, text string, dimensions int) ([]float32, error) {
	m.lastText = text
	m.lastDims = dimensions
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

// MockRecordStore is a mock implementation of domain.RecordStore
type MockRecordStore struct {
	matches    []domain.RetrievalMatch
	err        error
	lastTopK   int
	lastFilter map[string]interface{}
}

func (m *MockRecordStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool, filter map[string]interface{}) ([]domain.RetrievalMatch, error) {
	m.lastTopK = topK
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.matches, nil
}

// MockReranker is a mock implementation of domain.Reranker
type MockReranker struct {
	results   []domain.RerankResult
	err       error
	lastQuery string
	lastDocs  []domain.RerankDocument
	lastTopN  int
	called    bool
}

func (m *MockReranker) Rerank(ctx context.Context, query string, documents []domain.RerankDocument, topN int) ([]domain.RerankResult, error) {
	m.called = true
	m.lastQuery = query
	m.lastDocs = documents
	m.lastTopN = topN
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func match(id, name, category string, score float64) domain.RetrievalMatch {
	return domain.RetrievalMatch{
		ID:    id,
		Score: score,
		Metadata: domain.MenuItem{
			ID:        id,
			Name:      name,
			Category:  category,
			Nutrition: domain.Nutrition{Calories: 200, Protein: 20},
		},
	}
}

type resolverFixture struct {
	embedder *MockEmbeddingProvider
	store    *MockRecordStore
	reranker *MockReranker
	chat     *MockChatProvider
	resolver *Resolver
}

func newResolverFixture(catalog domain.IngredientCatalog) *resolverFixture {
	if catalog == nil {
		catalog = mapCatalog{}
	}
	f := &resolverFixture{
		embedder: &MockEmbeddingProvider{vector: []float32{0.1, 0.2, 0.3}},
		store:    &MockRecordStore{},
		reranker: &MockReranker{},
		chat:     &MockChatProvider{response: "Here are your best matches."},
	}
	rules := NewRuleEngine(DefaultRules(), catalog, zap.NewNop())
	f.resolver = NewResolver(
		f.embedder, f.store, f.reranker,
		rules, NewComposer(f.chat),
		ResolverConfig{EmbeddingDimensions: 512},
		zap.NewNop(),
	)
	return f
}

func TestResolve_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query", func(t *testing.T) {
		f := newResolverFixture(nil)
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "   "})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("negative topK", func(t *testing.T) {
		f := newResolverFixture(nil)
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie", TopK: -1})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})
}

func TestResolve_UpstreamFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("embedding failure", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.embedder.err = errors.New("connection refused")
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			t.Errorf("error = %v, want ErrEmbeddingUnavailable", err)
		}
	})

	t.Run("empty vector", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.embedder.vector = nil
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			t.Errorf("error = %v, want ErrEmbeddingUnavailable", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.err = errors.New("index unreachable")
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if !errors.Is(err, domain.ErrRetrievalUnavailable) {
			t.Errorf("error = %v, want ErrRetrievalUnavailable", err)
		}
	})

	t.Run("reranker failure is not silently degraded", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{match("a", "Angel Food", "Slim Blends", 0.9)}
		f.reranker.err = errors.New("model overloaded")
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if !errors.Is(err, domain.ErrRerankUnavailable) {
			t.Errorf("error = %v, want ErrRerankUnavailable", err)
		}
	})

	t.Run("timeout classification is preserved", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.embedder.err = context.DeadlineExceeded
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if !errors.Is(err, domain.ErrUpstreamTimeout) {
			t.Errorf("error = %v, want ErrUpstreamTimeout", err)
		}
	})

	t.Run("empty composer output", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{match("a", "Angel Food", "Slim Blends", 0.9)}
		f.reranker.results = []domain.RerankResult{{ID: "a", Score: 0.8}}
		f.chat.response = ""
		_, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if !errors.Is(err, domain.ErrComposerEmpty) {
			t.Errorf("error = %v, want ErrComposerEmpty", err)
		}
	})
}

func TestResolve_ZeroMatchesIsNotAnError(t *testing.T) {
	f := newResolverFixture(nil)
	f.store.matches = nil

	answer, err := f.resolver.Resolve(context.Background(), ResolveRequest{Query: "unobtainium shake"})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}

	if answer.Total != 0 {
		t.Errorf("Total = %d, want 0", answer.Total)
	}
	if answer.TopRecommendation != nil {
		t.Errorf("TopRecommendation = %v, want nil", answer.TopRecommendation)
	}
	if len(answer.TopFive) != 0 {
		t.Errorf("TopFive = %v, want empty", answer.TopFive)
	}
	if answer.AIResponse != "" {
		t.Errorf("AIResponse = %q, want empty", answer.AIResponse)
	}
	if f.reranker.called {
		t.Error("reranker called for an empty candidate pool")
	}
	if f.chat.lastMessages != nil {
		t.Error("composer invoked for an empty result set")
	}
}

func TestResolve_PipelineAssembly(t *testing.T) {
	ctx := context.Background()

	t.Run("over-fetches topK times three with metadata", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{match("a", "Angel Food", "Slim Blends", 0.9)}
		f.reranker.results = []domain.RerankResult{{ID: "a", Score: 0.7}}

		if _, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie", TopK: 4}); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if f.store.lastTopK != 12 {
			t.Errorf("store topK = %d, want 12", f.store.lastTopK)
		}
		if f.reranker.lastTopN != 4 {
			t.Errorf("rerank topN = %d, want 4", f.reranker.lastTopN)
		}
	})

	t.Run("defaults topK to 10", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{match("a", "Angel Food", "Slim Blends", 0.9)}
		f.reranker.results = []domain.RerankResult{{ID: "a", Score: 0.7}}

		if _, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"}); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if f.store.lastTopK != 30 {
			t.Errorf("store topK = %d, want 30", f.store.lastTopK)
		}
	})

	t.Run("final order is the reranker's order", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{
			match("a", "Angel Food", "Slim Blends", 0.91),
			match("b", "Gladiator Chocolate", "High Protein", 0.88),
			match("c", "Lean1 Vanilla", "Get Fit Blends", 0.85),
		}
		f.reranker.results = []domain.RerankResult{
			{ID: "c", Score: 0.95},
			{ID: "a", Score: 0.60},
			{ID: "b", Score: 0.40},
		}

		answer, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "lean vanilla smoothie"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		wantOrder := []string{"c", "a", "b"}
		for i, want := range wantOrder {
			if answer.AllResults[i].ID != want {
				t.Errorf("AllResults[%d].ID = %s, want %s", i, answer.AllResults[i].ID, want)
			}
		}
		// Rerank score and original retrieval score are both carried.
		if answer.AllResults[0].RerankScore != 0.95 {
			t.Errorf("RerankScore = %v, want 0.95", answer.AllResults[0].RerankScore)
		}
		if answer.AllResults[0].Score != 0.85 {
			t.Errorf("Score = %v, want original 0.85", answer.AllResults[0].Score)
		}
		if answer.TopRecommendation == nil || answer.TopRecommendation.ID != "c" {
			t.Errorf("TopRecommendation = %v, want c", answer.TopRecommendation)
		}
	})

	t.Run("reranked ids without originals are dropped", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{match("a", "Angel Food", "Slim Blends", 0.9)}
		f.reranker.results = []domain.RerankResult{
			{ID: "ghost", Score: 0.99},
			{ID: "a", Score: 0.80},
		}

		answer, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if answer.Total != 1 {
			t.Errorf("Total = %d, want 1", answer.Total)
		}
		if answer.AllResults[0].ID != "a" {
			t.Errorf("AllResults[0].ID = %s, want a", answer.AllResults[0].ID)
		}
	})

	t.Run("shortlist is at most five and headed by the top recommendation", func(t *testing.T) {
		f := newResolverFixture(nil)
		ids := []string{"a", "b", "c", "d", "e", "f", "g"}
		for _, id := range ids {
			f.store.matches = append(f.store.matches, match(id, "Item "+id, "Slim Blends", 0.8))
			f.reranker.results = append(f.reranker.results, domain.RerankResult{ID: id, Score: 0.5})
		}

		answer, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "smoothie"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(answer.TopFive) != 5 {
			t.Errorf("len(TopFive) = %d, want 5", len(answer.TopFive))
		}
		if answer.Total != 7 {
			t.Errorf("Total = %d, want 7", answer.Total)
		}
		if answer.TopFive[0].ID != answer.TopRecommendation.ID {
			t.Errorf("TopFive[0] = %s, TopRecommendation = %s", answer.TopFive[0].ID, answer.TopRecommendation.ID)
		}
	})

	t.Run("smoothies category excludes bowls and power eats", func(t *testing.T) {
		f := newResolverFixture(nil)
		// The store honors the filter, so only smoothie categories come back.
		f.store.matches = []domain.RetrievalMatch{
			match("a", "The Hulk Strawberry", "Get Fit Blends", 0.9),
			match("b", "Gladiator Vanilla", "High Protein", 0.85),
		}
		f.reranker.results = []domain.RerankResult{
			{ID: "a", Score: 0.9},
			{ID: "b", Score: 0.8},
		}

		answer, err := f.resolver.Resolve(ctx, ResolveRequest{
			Query:    "high protein smoothie with strawberries",
			Category: domain.CategorySmoothies,
		})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		if f.store.lastFilter == nil {
			t.Fatal("store filter = nil, want smoothies exclusion filter")
		}
		if _, ok := f.store.lastFilter["$and"]; !ok {
			t.Errorf("store filter = %v, want $and exclusion", f.store.lastFilter)
		}
		for _, result := range answer.AllResults {
			if !domain.CategorySmoothies.Matches(result.Category) {
				t.Errorf("result %q category %q violates smoothies filter", result.ID, result.Category)
			}
		}
	})

	t.Run("composer receives the shortlist and category wording", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{match("a", "Acai Bowl", "Smoothie Bowl", 0.9)}
		f.reranker.results = []domain.RerankResult{{ID: "a", Score: 0.9}}

		answer, err := f.resolver.Resolve(ctx, ResolveRequest{Query: "acai bowl", Category: domain.CategoryBowls})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if answer.AIResponse != "Here are your best matches." {
			t.Errorf("AIResponse = %q", answer.AIResponse)
		}
		if len(f.chat.lastMessages) == 0 {
			t.Fatal("composer never invoked")
		}
	})
}

func TestResolve_RuleApplication(t *testing.T) {
	catalog := mapCatalog{"whey protein": wheyProfile()}

	f := newResolverFixture(catalog)
	gladiator := match("g", "Gladiator Chocolate", "High Protein", 0.9)
	gladiator.Metadata.RuleFamily = domain.RuleFamilyGladiator
	gladiator.Metadata.AvailableSizes = []string{"small(20 oz)", "medium(32 oz)", "large(44 oz)"}
	gladiator.Metadata.NutritionSize = "small(20 oz)"
	gladiator.Metadata.Nutrition = domain.Nutrition{Calories: 220, Protein: 45}

	standard := match("s", "Angel Food", "Slim Blends", 0.8)

	f.store.matches = []domain.RetrievalMatch{gladiator, standard}
	f.reranker.results = []domain.RerankResult{
		{ID: "g", Score: 0.95},
		{ID: "s", Score: 0.70},
	}

	answer, err := f.resolver.Resolve(context.Background(), ResolveRequest{
		Query: "large gladiator chocolate with whey protein",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	top := answer.TopRecommendation
	if top.AppliedRules == "" {
		t.Fatal("AppliedRules empty, want gladiator policy label")
	}
	// Large cup: add-on protein 20g scales 2.0x on top of the
	// size-invariant base 45g.
	if top.Protein != 85 {
		t.Errorf("Protein = %v, want 85", top.Protein)
	}
	if top.NutritionSize != "large(44 oz)" {
		t.Errorf("NutritionSize = %q, want large(44 oz)", top.NutritionSize)
	}

	// The standard product in the shortlist is untouched.
	if answer.TopFive[1].AppliedRules != "" {
		t.Errorf("standard item AppliedRules = %q, want empty", answer.TopFive[1].AppliedRules)
	}
	if answer.TopFive[1].Protein != 20 {
		t.Errorf("standard item Protein = %v, want 20", answer.TopFive[1].Protein)
	}
}

func TestResolveBasic(t *testing.T) {
	ctx := context.Background()

	t.Run("returns raw retrieval order without reranking", func(t *testing.T) {
		f := newResolverFixture(nil)
		f.store.matches = []domain.RetrievalMatch{
			match("a", "Angel Food", "Slim Blends", 0.92),
			match("b", "Acai Bowl", "Smoothie Bowl", 0.88),
		}

		answer, err := f.resolver.ResolveBasic(ctx, "fruity smoothie", 0)
		if err != nil {
			t.Fatalf("ResolveBasic() error = %v", err)
		}
		if answer.Total != 2 {
			t.Errorf("Total = %d, want 2", answer.Total)
		}
		if answer.Documents[0].ID != "a" || answer.Documents[0].Score != 0.92 {
			t.Errorf("Documents[0] = %+v, want retrieval order preserved", answer.Documents[0])
		}
		if f.reranker.called {
			t.Error("reranker invoked on the basic path")
		}
		if f.store.lastTopK != DefaultTopK {
			t.Errorf("store topK = %d, want %d", f.store.lastTopK, DefaultTopK)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		f := newResolverFixture(nil)
		if _, err := f.resolver.ResolveBasic(ctx, "", 5); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})
}

func TestBuildCandidateText(t *testing.T) {
	item := &domain.MenuItem{
		Name:           "Gladiator Vanilla",
		Category:       "High Protein",
		ServingSize:    "20 oz",
		AvailableSizes: []string{"small(20 oz)", "large(44 oz)"},
		NutritionSize:  "small(20 oz)",
		Ingredients:    []string{"whey protein", "vanilla"},
		Allergens:      []string{"milk"},
		Nutrition:      domain.Nutrition{Calories: 220, Protein: 45, Carbs: 8, Fat: 2, Sugar: 1, Fiber: 0},
	}

	text := buildCandidateText(item)

	for _, fragment := range []string{
		"Gladiator Vanilla",
		"Category: High Protein",
		"Serving: 20 oz",
		"Sizes: small(20 oz), large(44 oz)",
		"Nutrition based on: small(20 oz)",
		"Calories: 220",
		"Protein: 45g",
		"Ingredients: whey protein, vanilla",
		"Allergens: milk",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("candidate text missing %q in %q", fragment, text)
		}
	}

	t.Run("empty fields are omitted", func(t *testing.T) {
		bare := buildCandidateText(&domain.MenuItem{Name: "Plain", Category: "Snacks"})
		if strings.Contains(bare, "Sizes:") || strings.Contains(bare, "Allergens:") {
			t.Errorf("bare candidate text carries empty sections: %q", bare)
		}
	})
}
