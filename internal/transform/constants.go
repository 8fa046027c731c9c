// Package transform converts raw wide-format table rows into validated
// long-format wage and expense records.
package transform

// FamilyConfig is the household composition behind one table column.
type FamilyConfig struct {
	Adults        int
	WorkingAdults int
	Children      int
}

// familyConfigMap holds the 12 canonical household compositions, keyed by
// normalized header text (see NormalizeHeaderForLookup).
var familyConfigMap = map[string]FamilyConfig{
	"1 adult":                         {Adults: 1, WorkingAdults: 1, Children: 0},
	"1 adult 1 child":                 {Adults: 1, WorkingAdults: 1, Children: 1},
	"1 adult 2 children":              {Adults: 1, WorkingAdults: 1, Children: 2},
	"1 adult 3 children":              {Adults: 1, WorkingAdults: 1, Children: 3},
	"2 adults (1 working)":            {Adults: 2, WorkingAdults: 1, Children: 0},
	"2 adults (1 working) 1 child":    {Adults: 2, WorkingAdults: 1, Children: 1},
	"2 adults (1 working) 2 children": {Adults: 2, WorkingAdults: 1, Children: 2},
	"2 adults (1 working) 3 children": {Adults: 2, WorkingAdults: 1, Children: 3},
	"2 adults":                        {Adults: 2, WorkingAdults: 2, Children: 0},
	"2 adults 1 child":                {Adults: 2, WorkingAdults: 2, Children: 1},
	"2 adults 2 children":             {Adults: 2, WorkingAdults: 2, Children: 2},
	"2 adults 3 children":             {Adults: 2, WorkingAdults: 2, Children: 3},
}

// categoryMap maps normalized raw category labels (see NormalizeCategoryKey)
// to canonical wage types and expense categories.
var categoryMap = map[string]string{
	// Wage types
	"living wage":  "living",
	"poverty wage": "poverty",
	"minimum wage": "minimum",

	// Expense categories
	"food":            "food",
	"child care":      "childcare",
	"childcare":       "childcare",
	"housing":         "housing",
	"transportation":  "transportation",
	"medical":         "healthcare",
	"health care":     "healthcare",
	"healthcare":      "healthcare",
	"other":           "other",
	"civic":           "civic",
	"internet mobile": "internet_mobile",
	"broadband":       "internet_mobile",

	// Derived income/tax rows
	"required annual income after taxes":  "required_after_tax",
	"annual taxes":                        "annual_taxes",
	"required annual income before taxes": "required_before_tax",
}
