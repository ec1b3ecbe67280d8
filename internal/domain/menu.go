package domain

// RuleFamily identifies a group of products sharing a customization policy.
// Resolved once when store metadata is decoded, so the rule engine never
// re-parses product names per request.
type RuleFamily string

const (
	// RuleFamilyNone means the product gets the standard calculation
	RuleFamilyNone RuleFamily = ""

	// RuleFamilyGladiator covers the Gladiator smoothie line, whose base
	// protein does not scale with cup size while add-ons do
	RuleFamilyGladiator RuleFamily = "gladiator"
)

// Nutrition holds the flattened nutrition scalars carried in vector-store
// metadata. These are the figures for the item's default size.
type Nutrition struct {
	Calories float64 `json:"nutrition_calories"`
	Protein  float64 `json:"nutrition_protein"`
	Carbs    float64 `json:"nutrition_carbs"`
	Fat      float64 `json:"nutrition_fat"`
	Sugar    float64 `json:"nutrition_sugar"`
	Fiber    float64 `json:"nutrition_fiber"`
}

// NutritionAmount is a single nutrient figure with its unit, as scraped
// from the source catalog.
type NutritionAmount struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// NutritionProfile is the full per-serving nutrient breakdown used by the
// ingredient catalog. Caffeine is absent for most items.
type NutritionProfile struct {
	Calories     float64          `json:"calories"`
	Fat          NutritionAmount  `json:"fat"`
	Carbs        NutritionAmount  `json:"carbs"`
	Protein      NutritionAmount  `json:"protein"`
	SaturatedFat NutritionAmount  `json:"saturated_fat"`
	Cholesterol  NutritionAmount  `json:"cholesterol"`
	Fiber        NutritionAmount  `json:"fiber"`
	Sugar        NutritionAmount  `json:"sugar"`
	AddedSugar   NutritionAmount  `json:"added_sugar"`
	Sodium       NutritionAmount  `json:"sodium"`
	Caffeine     *NutritionAmount `json:"caffeine,omitempty"`
}

// MenuItem is the catalog record shape carried in vector-store metadata.
// Immutable once ingested; the pipeline never writes it back.
type MenuItem struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	RuleFamily     RuleFamily `json:"-"`
	ServingSize    string     `json:"servingSize,omitempty"`
	Allergens      []string   `json:"allergens"`
	Ingredients    []string   `json:"ingredients"`
	AvailableSizes []string   `json:"availableSizes"`
	// NutritionSize is the size label the flattened nutrition figures
	// were taken from (the default size chosen at ingestion)
	NutritionSize string    `json:"nutritionSize,omitempty"`
	Nutrition     Nutrition `json:"-"`
}

// QueryIntent is the structured reading of a free-text query: what product
// the customer seems to want, at which size, with which add-ons, and which
// figures they asked about. Ephemeral, never persisted.
type QueryIntent struct {
	ProductNameHint string
	SizeHint        string
	AddOns          []string
	InfoRequested   []string
}

// RetrievalMatch is a single approximate-nearest-neighbor hit from the
// record store, with its similarity score and decoded metadata.
type RetrievalMatch struct {
	ID       string
	Score    float64
	Metadata MenuItem
}

// RankedResult is a retrieval match after reranking: the reranker's score
// joined back with the original retrieval score and full metadata.
type RankedResult struct {
	ID             string     `json:"id"`
	Score          float64    `json:"score"`
	RerankScore    float64    `json:"rerankScore"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	ServingSize    string     `json:"servingSize,omitempty"`
	Allergens      []string   `json:"allergens"`
	Ingredients    []string   `json:"ingredients"`
	AvailableSizes []string   `json:"availableSizes"`
	NutritionSize  string     `json:"nutritionSize,omitempty"`
	Calories       float64    `json:"nutrition_calories"`
	Protein        float64    `json:"nutrition_protein"`
	Carbs          float64    `json:"nutrition_carbs"`
	Fat            float64    `json:"nutrition_fat"`
	Sugar          float64    `json:"nutrition_sugar"`
	Fiber          float64    `json:"nutrition_fiber"`
	RuleFamily     RuleFamily `json:"-"`
	// AppliedRules names the customization policy path the rule engine
	// took for this item, empty for items it did not touch
	AppliedRules string `json:"appliedRules,omitempty"`
}

// AdjustedNutrition is the rule engine's output for one product: the
// resolved size, the add-ons actually counted, and the adjusted figures.
type AdjustedNutrition struct {
	Name         string    `json:"name"`
	Size         string    `json:"size"`
	AddOns       []string  `json:"addOns"`
	Nutrition    Nutrition `json:"nutrition"`
	AppliedRules string    `json:"appliedRules"`
}

// ResolvedAnswer is the orchestrator's result for one query.
type ResolvedAnswer struct {
	Query             string         `json:"query"`
	Category          string         `json:"category"`
	TopRecommendation *RankedResult  `json:"topRecommendation,omitempty"`
	TopFive           []RankedResult `json:"topFive"`
	AllResults        []RankedResult `json:"allResults"`
	Total             int            `json:"total"`
	AIResponse        string         `json:"aiResponse,omitempty"`
	Reranked          bool           `json:"reranked"`
}
