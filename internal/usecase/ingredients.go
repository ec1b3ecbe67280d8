package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/blendwise/backend/internal/domain"
	"go.uber.org/zap"
)

var ingredientKeyPattern = regexp.MustCompile(`[^a-z0-9 ]`)

// ingredientRecord is the on-disk shape of one scraped ingredient.
type ingredientRecord struct {
	Name        string                  `json:"name"`
	ServingSize string                  `json:"servingSize"`
	Allergens   []string                `json:"allergens"`
	Nutrition   domain.NutritionProfile `json:"nutrition"`
}

// IngredientIndex is an in-memory ingredient catalog loaded once at
// startup from the scraped ingredient file. Lookup keys are normalized
// (lowercased, punctuation stripped) so "Whey Protein" and "whey protein"
// resolve to the same record. Read-only after construction, safe for
// concurrent use.
type IngredientIndex struct {
	byName map[string]*domain.NutritionProfile
}

// NewIngredientIndex loads the ingredient catalog from path. An empty
// path yields an empty catalog: the rule engine then treats every add-on
// as unknown, which degrades add-on scaling but never fails a request.
func NewIngredientIndex(path string, log *zap.Logger) (*IngredientIndex, error) {
	idx := &IngredientIndex{byName: make(map[string]*domain.NutritionProfile)}

	if path == "" {
		log.Warn("no ingredients file configured, add-on nutrition lookup disabled")
		return idx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingredients file: %w", err)
	}

	var records []ingredientRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse ingredients file: %w", err)
	}

	for i := range records {
		key := normalizeIngredientKey(records[i].Name)
		if key == "" {
			continue
		}
		idx.byName[key] = &records[i].Nutrition
	}

	log.Info("ingredient catalog loaded",
		zap.String("path", path),
		zap.Int("count", len(idx.byName)))
	return idx, nil
}

// Lookup resolves an add-on name to its per-serving nutrition profile.
func (idx *IngredientIndex) Lookup(name string) (*domain.NutritionProfile, error) {
	profile, ok := idx.byName[normalizeIngredientKey(name)]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return profile, nil
}

// Size returns the number of indexed ingredients.
func (idx *IngredientIndex) Size() int {
	return len(idx.byName)
}

func normalizeIngredientKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = ingredientKeyPattern.ReplaceAllString(key, "")
	return strings.Join(strings.Fields(key), " ")
}
