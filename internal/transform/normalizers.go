package transform

import (
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	parenSpaceRe  = regexp.MustCompile(`(\w)\(`)
	nonWordRe     = regexp.MustCompile(`[^\w]+`)
	currencyStrip = strings.NewReplacer("$", "", ",", "")
)

// NormalizeHeaderForLookup canonicalizes a scraped family-configuration
// header so case, spacing, and separator variants all resolve to the same
// familyConfigMap key.
func NormalizeHeaderForLookup(header string) string {
	normalized := strings.ToLower(header)

	// Remove the separator between adult config and child count.
	normalized = strings.ReplaceAll(normalized, " - ", " ")

	// "2 adults(1 working)" -> "2 adults (1 working)"
	normalized = parenSpaceRe.ReplaceAllString(normalized, "$1 (")

	normalized = strings.Join(strings.Fields(normalized), " ")

	// "Both working" is the two-working-adults default.
	normalized = strings.TrimSpace(strings.ReplaceAll(normalized, "(both working)", ""))

	// Zero children is implied by the bare configuration.
	normalized = strings.ReplaceAll(normalized, " 0 children", "")
	normalized = strings.TrimSpace(strings.ReplaceAll(normalized, " 0 child", ""))

	return strings.Join(strings.Fields(normalized), " ")
}

// FamilyConfigFor looks up the household composition for a scraped header.
func FamilyConfigFor(header string) (FamilyConfig, bool) {
	cfg, ok := familyConfigMap[NormalizeHeaderForLookup(header)]
	return cfg, ok
}

// NormalizeCategoryKey reduces raw category text to a lookup key: lowercase
// with punctuation collapsed to single spaces.
func NormalizeCategoryKey(text string) string {
	raw := strings.ToLower(strings.TrimSpace(text))
	return strings.TrimSpace(nonWordRe.ReplaceAllString(raw, " "))
}

// LookupCategoryValue maps a raw category label to its canonical value.
// Unknown labels fall back to a slug of the normalized key rather than
// failing, so new upstream categories surface downstream instead of being
// dropped here.
func LookupCategoryValue(text string) string {
	key := NormalizeCategoryKey(text)
	if value, ok := categoryMap[key]; ok {
		return value
	}
	return strings.ReplaceAll(key, " ", "_")
}

// CleanCurrency strips currency formatting and parses the value. Anything
// unparseable becomes 0 rather than an error.
func CleanCurrency(raw string) float64 {
	cleaned := strings.TrimSpace(currencyStrip.Replace(raw))
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		log.WithField("value", raw).Warn("Unparseable currency value, coercing to 0")
		return 0
	}
	return value
}
