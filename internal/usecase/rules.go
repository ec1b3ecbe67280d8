package usecase

import (
	"fmt"
	"strings"

	"github.com/blendwise/backend/internal/domain"
	"go.uber.org/zap"
)

// Applied-rules labels exposed on adjusted results, useful for audit and
// tests.
const (
	appliedRulesGladiator = "Gladiator custom scaling rules"
	appliedRulesStandard  = "Standard nutrition calculation"
)

// AddOnRule governs how add-on ingredients contribute to the result.
type AddOnRule struct {
	AffectedByMultiplier bool
	MaxAddOns            int
}

// CustomizationRule is the static per-family nutrition-scaling policy.
type CustomizationRule struct {
	BaseMaxIngredients              int
	SizeMultipliers                 map[string]float64
	BaseProteinAffectedByMultiplier bool
	AddOns                          AddOnRule
}

// RuleSet maps rule families to their policies. Loaded once at startup
// and never mutated by the pipeline.
type RuleSet map[domain.RuleFamily]CustomizationRule

// DefaultRules returns the shipped customization policy table. Gladiator
// is currently the only family with special treatment; additional
// families follow the same shape.
func DefaultRules() RuleSet {
	return RuleSet{
		domain.RuleFamilyGladiator: {
			BaseMaxIngredients:              2,
			BaseProteinAffectedByMultiplier: false,
			SizeMultipliers: map[string]float64{
				"small(20 oz)":  1.0,
				"medium(32 oz)": 1.5,
				"large(44 oz)":  2.0,
			},
			AddOns: AddOnRule{
				AffectedByMultiplier: true,
				MaxAddOns:            2,
			},
		},
	}
}

// RuleEngine applies product-family customization policy to a retrieved
// base record. Stateless between calls: the same record, size, and add-on
// list always yields the same output.
type RuleEngine struct {
	rules       RuleSet
	ingredients domain.IngredientCatalog
	log         *zap.Logger
}

// NewRuleEngine creates a rule engine over a static policy table and an
// ingredient catalog for add-on lookups.
func NewRuleEngine(rules RuleSet, ingredients domain.IngredientCatalog, log *zap.Logger) *RuleEngine {
	return &RuleEngine{
		rules:       rules,
		ingredients: ingredients,
		log:         log,
	}
}

// Apply adjusts the record's nutrition figures for the requested size and
// add-ons according to its family policy. Products without a family get
// the standard calculation: nutrition of the selected size, unchanged.
func (e *RuleEngine) Apply(item *domain.MenuItem, requestedSize string, addOns []string) (*domain.AdjustedNutrition, error) {
	if item == nil {
		return nil, domain.ErrProductNotFound
	}

	size := ResolveSize(item.AvailableSizes, requestedSize, item.NutritionSize)

	rule, ok := e.rules[item.RuleFamily]
	if !ok {
		return &domain.AdjustedNutrition{
			Name:         item.Name,
			Size:         size,
			AddOns:       append([]string{}, addOns...),
			Nutrition:    item.Nutrition,
			AppliedRules: appliedRulesStandard,
		}, nil
	}

	label := appliedRulesGladiator

	// Over-limit add-on lists are truncated to the cap, first ones kept;
	// the label records that the cap fired.
	counted := addOns
	if rule.AddOns.MaxAddOns > 0 && len(addOns) > rule.AddOns.MaxAddOns {
		counted = addOns[:rule.AddOns.MaxAddOns]
		label = fmt.Sprintf("%s (add-ons capped at %d)", label, rule.AddOns.MaxAddOns)
	}

	multiplier := sizeMultiplier(rule.SizeMultipliers, size)

	// The base figures are the catalog's own size-specific data and are
	// not rescaled here. BaseProteinAffectedByMultiplier documents that
	// base protein stays at its catalog value across sizes.
	nutrition := item.Nutrition

	for _, addOn := range counted {
		profile, err := e.ingredients.Lookup(addOn)
		if err != nil {
			// An unknown add-on must not abort an otherwise-successful
			// retrieval; it simply contributes nothing.
			e.log.Warn("add-on not found in ingredient catalog",
				zap.String("addOn", addOn),
				zap.String("product", item.Name))
			continue
		}

		factor := 1.0
		if rule.AddOns.AffectedByMultiplier {
			factor = multiplier
		}

		nutrition.Calories += profile.Calories * factor
		nutrition.Protein += profile.Protein.Amount * factor
		nutrition.Carbs += profile.Carbs.Amount * factor
		nutrition.Fat += profile.Fat.Amount * factor
		nutrition.Sugar += profile.Sugar.Amount * factor
		nutrition.Fiber += profile.Fiber.Amount * factor
	}

	return &domain.AdjustedNutrition{
		Name:         item.Name,
		Size:         size,
		AddOns:       append([]string{}, counted...),
		Nutrition:    nutrition,
		AppliedRules: label,
	}, nil
}

// ResolveSize picks "the" size for a record by an ordered list of
// fallback predicates: first available label containing the requested
// size (case-insensitive), then the record's ingestion default, then the
// first available size. Records without sizes fall through to the
// default label, possibly empty.
func ResolveSize(availableSizes []string, requested, defaultSize string) string {
	if requested != "" {
		want := strings.ToLower(requested)
		for _, s := range availableSizes {
			if strings.Contains(strings.ToLower(s), want) {
				return s
			}
		}
	}
	if defaultSize != "" {
		for _, s := range availableSizes {
			if s == defaultSize {
				return s
			}
		}
	}
	if len(availableSizes) > 0 {
		return availableSizes[0]
	}
	return defaultSize
}

// sizeMultiplier looks up the factor for a size label: exact key first,
// then a match on the shared small/medium/large token. Unknown sizes
// scale by 1.0.
func sizeMultiplier(multipliers map[string]float64, size string) float64 {
	if m, ok := multipliers[size]; ok {
		return m
	}
	token := sizeToken(size)
	if token != "" {
		for key, m := range multipliers {
			if sizeToken(key) == token {
				return m
			}
		}
	}
	return 1.0
}

func sizeToken(label string) string {
	l := strings.ToLower(label)
	for _, token := range []string{"small", "medium", "large"} {
		if strings.Contains(l, token) {
			return token
		}
	}
	return ""
}
