package transform

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// WageRecord is one validated long-format wage fact. The natural key is
// (CountyFIPS, Adults, WorkingAdults, Children, WageType).
type WageRecord struct {
	CountyFIPS    string    `json:"county_fips" validate:"required,len=5,number"`
	PageUpdatedAt time.Time `json:"page_updated_at" validate:"required"`
	Adults        int       `json:"adults" validate:"min=1,max=2"`
	WorkingAdults int       `json:"working_adults" validate:"min=1,ltefield=Adults"`
	Children      int       `json:"children" validate:"min=0,max=3"`
	WageType      string    `json:"wage_type" validate:"oneof=living poverty minimum"`
	HourlyWage    float64   `json:"hourly_wage" validate:"gte=0"`
}

// Validate checks the record against the schema rules.
func (r WageRecord) Validate() error {
	return validate.Struct(r)
}

// County returns the record's 5-digit county FIPS.
func (r WageRecord) County() string {
	return r.CountyFIPS
}

// ExpenseRecord is one validated long-format expense fact. The natural key is
// (CountyFIPS, Adults, WorkingAdults, Children, ExpenseCategory).
type ExpenseRecord struct {
	CountyFIPS      string    `json:"county_fips" validate:"required,len=5,number"`
	PageUpdatedAt   time.Time `json:"page_updated_at" validate:"required"`
	Adults          int       `json:"adults" validate:"min=1,max=2"`
	WorkingAdults   int       `json:"working_adults" validate:"min=1,ltefield=Adults"`
	Children        int       `json:"children" validate:"min=0,max=3"`
	ExpenseCategory string    `json:"expense_category" validate:"oneof=food childcare housing transportation healthcare other civic internet_mobile required_after_tax annual_taxes required_before_tax"`
	AnnualAmount    float64   `json:"annual_amount" validate:"gte=0"`
}

// Validate checks the record against the schema rules.
func (r ExpenseRecord) Validate() error {
	return validate.Struct(r)
}

// County returns the record's 5-digit county FIPS.
func (r ExpenseRecord) County() string {
	return r.CountyFIPS
}

// Reject captures a record that failed validation, keeping its raw payload
// and the reason for audit.
type Reject struct {
	RawData map[string]any
	Reason  string
}
