package domain

import "strings"

// CategoryFilter narrows retrieval to one slice of the menu.
type CategoryFilter string

const (
	CategoryAll       CategoryFilter = "all"
	CategorySmoothies CategoryFilter = "smoothies"
	CategoryBowls     CategoryFilter = "bowls"
	CategoryPowerEats CategoryFilter = "power-eats"
)

// powerEatsLabel is the catalog's category label for the Power Eats line.
const powerEatsLabel = "power eats"

// ParseCategory validates a request-supplied category value. An empty
// string means no preference and maps to CategoryAll.
func ParseCategory(s string) (CategoryFilter, error) {
	switch CategoryFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return CategoryAll, nil
	case CategoryAll:
		return CategoryAll, nil
	case CategorySmoothies:
		return CategorySmoothies, nil
	case CategoryBowls:
		return CategoryBowls, nil
	case CategoryPowerEats:
		return CategoryPowerEats, nil
	}
	return "", ErrInvalidRequest
}

// Matches reports whether a catalog category label satisfies the filter.
// Bowls match any label containing "bowl"; power-eats matches exactly
// "Power Eats"; smoothies is everything that is neither. All comparisons
// are case-insensitive.
func (c CategoryFilter) Matches(label string) bool {
	l := strings.ToLower(label)
	switch c {
	case CategoryBowls:
		return strings.Contains(l, "bowl")
	case CategoryPowerEats:
		return l == powerEatsLabel
	case CategorySmoothies:
		return !strings.Contains(l, "bowl") && l != powerEatsLabel
	default:
		return true
	}
}

// DisplayName is the human wording used when the composer talks about the
// filtered slice of the menu.
func (c CategoryFilter) DisplayName() string {
	switch c {
	case CategorySmoothies:
		return "smoothies"
	case CategoryBowls:
		return "smoothie bowls"
	case CategoryPowerEats:
		return "power eats"
	default:
		return "items"
	}
}

// StoreFilter translates the category into a record-store metadata filter.
// The store matches stored label values literally, so the bowl variants
// are listed in both casings the catalog is known to contain. Returns nil
// for CategoryAll (no filter).
func (c CategoryFilter) StoreFilter() map[string]interface{} {
	switch c {
	case CategoryBowls:
		return map[string]interface{}{
			"category": map[string]interface{}{"$in": []string{"Smoothie Bowl", "smoothie bowl"}},
		}
	case CategoryPowerEats:
		return map[string]interface{}{
			"category": "Power Eats",
		}
	case CategorySmoothies:
		return map[string]interface{}{
			"$and": []map[string]interface{}{
				{"category": map[string]interface{}{"$nin": []string{"Smoothie Bowl", "smoothie bowl"}}},
				{"category": map[string]interface{}{"$ne": "Power Eats"}},
			},
		}
	default:
		return nil
	}
}
