package usecase

import (
	"regexp"
	"strings"

	"github.com/blendwise/backend/internal/domain"
)

// Package-level compiled regex patterns for intent extraction
var (
	// Matches size words anywhere in the query
	sizeWordPattern = regexp.MustCompile(`(?i)\b(small|medium|large)\b`)

	// Matches explicit ounce sizes like "20 oz", "44oz", "32 ounce"
	ounceSizePattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:fl\s*)?(?:oz|ounces?)\b`)

	// Matches the start of an add-on clause
	addOnClausePattern = regexp.MustCompile(`(?i)\b(?:with|plus|add(?:ed)?)\s+(.+)$`)

	// Splits an add-on clause into individual ingredients
	addOnSplitPattern = regexp.MustCompile(`(?i)\s*(?:,|\band\b)\s*`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// nutrientKeywords maps query words to the canonical nutrition fields a
// customer can ask about.
var nutrientKeywords = map[string]string{
	"calories":      "calories",
	"calorie":       "calories",
	"protein":       "protein",
	"carbs":         "carbs",
	"carb":          "carbs",
	"carbohydrates": "carbs",
	"fat":           "fat",
	"sugar":         "sugar",
	"sugars":        "sugar",
	"fiber":         "fiber",
	"sodium":        "sodium",
	"caffeine":      "caffeine",
}

// intentFillerWords are question scaffolding that carries no product
// signal and is stripped from the product-name hint.
var intentFillerWords = map[string]bool{
	"how": true, "many": true, "much": true, "what": true, "whats": true,
	"is": true, "are": true, "the": true, "a": true, "an": true,
	"in": true, "of": true, "for": true, "does": true, "do": true,
	"have": true, "has": true, "there": true, "me": true, "show": true,
	"tell": true, "about": true, "give": true, "i": true, "want": true,
	"please": true,
}

// IntentExtractor derives a structured QueryIntent from a free-text query.
// Extraction is deterministic (regex and keyword tables) so it cannot add
// an upstream failure mode to the request path.
type IntentExtractor struct{}

// NewIntentExtractor creates a new intent extractor
func NewIntentExtractor() *IntentExtractor {
	return &IntentExtractor{}
}

// Extract parses size hints, add-on ingredients, and requested nutrition
// figures out of the query, leaving a cleaned product-name hint.
func (e *IntentExtractor) Extract(query string) domain.QueryIntent {
	intent := domain.QueryIntent{}
	working := strings.TrimSpace(query)

	// Add-on clause first, so its ingredients don't leak into the name hint
	if m := addOnClausePattern.FindStringSubmatchIndex(working); m != nil {
		clause := working[m[2]:m[3]]
		intent.AddOns = splitAddOns(clause)
		working = working[:m[0]]
	}

	// Size hint: an explicit ounce figure wins over a size word
	if m := ounceSizePattern.FindStringSubmatch(working); m != nil {
		intent.SizeHint = m[1] + " oz"
		working = ounceSizePattern.ReplaceAllString(working, " ")
	} else if m := sizeWordPattern.FindStringSubmatch(working); m != nil {
		intent.SizeHint = strings.ToLower(m[1])
		working = sizeWordPattern.ReplaceAllString(working, " ")
	}

	// Requested figures
	intent.InfoRequested = extractNutrients(query)

	intent.ProductNameHint = cleanNameHint(working)
	return intent
}

// splitAddOns breaks "whey protein, spinach and kale" into its parts.
func splitAddOns(clause string) []string {
	parts := addOnSplitPattern.Split(clause, -1)
	addOns := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(p, ".!?"))
		if p != "" {
			addOns = append(addOns, p)
		}
	}
	return addOns
}

// extractNutrients collects the canonical nutrition fields named in the
// query, in query order, without duplicates.
func extractNutrients(query string) []string {
	var requested []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ",.!?;:")
		if canonical, ok := nutrientKeywords[word]; ok && !seen[canonical] {
			seen[canonical] = true
			requested = append(requested, canonical)
		}
	}
	return requested
}

// cleanNameHint strips question filler and normalizes whitespace.
func cleanNameHint(s string) string {
	words := strings.Fields(strings.ToLower(s))
	var kept []string
	for _, word := range words {
		cleaned := strings.Trim(word, ",.!?;:-'\"")
		if cleaned == "" || intentFillerWords[cleaned] {
			continue
		}
		if _, isNutrient := nutrientKeywords[cleaned]; isNutrient {
			continue
		}
		kept = append(kept, cleaned)
	}
	return multiSpacePattern.ReplaceAllString(strings.Join(kept, " "), " ")
}
