package pinecone

import (
	"strings"

	"github.com/blendwise/backend/internal/domain"
)

// ruleFamilyTokens maps a product-name token to the customization family
// it marks. The discriminant is resolved here, once per decoded record,
// so downstream code dispatches on MenuItem.RuleFamily instead of
// re-parsing names per request.
var ruleFamilyTokens = map[string]domain.RuleFamily{
	"gladiator": domain.RuleFamilyGladiator,
}

// ResolveRuleFamily returns the customization family for a product name,
// or RuleFamilyNone for products with standard calculation.
func ResolveRuleFamily(name string) domain.RuleFamily {
	lower := strings.ToLower(name)
	for token, family := range ruleFamilyTokens {
		if strings.Contains(lower, token) {
			return family
		}
	}
	return domain.RuleFamilyNone
}

// MapToMenuItem decodes raw vector-store metadata into the domain record.
// The store stores flattened scalars and string lists; anything missing or
// of an unexpected type decodes to its zero value rather than failing the
// match.
func MapToMenuItem(id string, metadata map[string]interface{}) domain.MenuItem {
	item := domain.MenuItem{
		ID:             id,
		Name:           stringValue(metadata, "name"),
		Category:       stringValue(metadata, "category"),
		ServingSize:    stringValue(metadata, "servingSize"),
		Allergens:      stringSlice(metadata, "allergens"),
		Ingredients:    stringSlice(metadata, "ingredients"),
		AvailableSizes: stringSlice(metadata, "availableSizes"),
		NutritionSize:  stringValue(metadata, "nutritionSize"),
		Nutrition: domain.Nutrition{
			Calories: floatValue(metadata, "nutrition_calories"),
			Protein:  floatValue(metadata, "nutrition_protein"),
			Carbs:    floatValue(metadata, "nutrition_carbs"),
			Fat:      floatValue(metadata, "nutrition_fat"),
			Sugar:    floatValue(metadata, "nutrition_sugar"),
			Fiber:    floatValue(metadata, "nutrition_fiber"),
		},
	}
	item.RuleFamily = ResolveRuleFamily(item.Name)
	return item
}

func stringValue(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatValue(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func stringSlice(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		// Already-typed slices appear when metadata comes from tests
		// rather than JSON decoding.
		if typed, ok := m[key].([]string); ok {
			return typed
		}
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
