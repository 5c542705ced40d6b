package model

import (
	"regexp"
)

// FieldRule is the validation rule set for one field. Zero values mean the
// check is not configured.
type FieldRule struct {
	Required   bool     `json:"required" yaml:"required" mapstructure:"required"`
	MinLength  int      `json:"min_length,omitempty" yaml:"min_length" mapstructure:"min_length"`
	MaxLength  int      `json:"max_length,omitempty" yaml:"max_length" mapstructure:"max_length"`
	Pattern    string   `json:"pattern,omitempty" yaml:"pattern" mapstructure:"pattern"`
	MinValue   *float64 `json:"min_value,omitempty" yaml:"min_value" mapstructure:"min_value"`
	MaxValue   *float64 `json:"max_value,omitempty" yaml:"max_value" mapstructure:"max_value"`
	ValidCodes []string `json:"valid_codes,omitempty" yaml:"valid_codes" mapstructure:"valid_codes"`
	Format     string   `json:"format,omitempty" yaml:"format" mapstructure:"format"` // "date" enables the date checks
	NotFuture  bool     `json:"not_future,omitempty" yaml:"not_future" mapstructure:"not_future"`
	MaxAgeDays int      `json:"max_age_days,omitempty" yaml:"max_age_days" mapstructure:"max_age_days"`
}

// RuleSet is an immutable, indexed rule table with pre-compiled patterns.
// One instance is shared by all concurrent pipeline runs.
type RuleSet struct {
	rules    map[string]FieldRule
	compiled map[string]*regexp.Regexp
}

// NewRuleSet builds a RuleSet, compiling each rule's pattern. Patterns that
// fail to compile are ignored (the rule's other checks still apply).
func NewRuleSet(rules map[string]FieldRule) *RuleSet {
	rs := &RuleSet{
		rules:    make(map[string]FieldRule, len(rules)),
		compiled: make(map[string]*regexp.Regexp),
	}
	for field, rule := range rules {
		rs.rules[field] = rule
		if rule.Pattern != "" {
			if re, err := regexp.Compile(rule.Pattern); err == nil {
				rs.compiled[field] = re
			}
		}
	}
	return rs
}

// Rule returns the rule for a field, if configured.
func (rs *RuleSet) Rule(field string) (FieldRule, bool) {
	r, ok := rs.rules[field]
	return r, ok
}

// Pattern returns the compiled pattern for a field, or nil.
func (rs *RuleSet) Pattern(field string) *regexp.Regexp {
	return rs.compiled[field]
}

// Fields returns all field names with configured rules.
func (rs *RuleSet) Fields() []string {
	out := make([]string, 0, len(rs.rules))
	for f := range rs.rules {
		out = append(out, f)
	}
	return out
}

// Len returns the number of configured rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

func f64(v float64) *float64 { return &v }

// DefaultRules is the stock rule table for invoice validation.
func DefaultRules() map[string]FieldRule {
	return map[string]FieldRule{
		FieldInvoiceNumber: {
			Required:  true,
			MinLength: 1,
			MaxLength: 50,
			Pattern:   `^[A-Za-z0-9\-\_\/]+$`,
		},
		FieldTotalAmount: {
			Required: true,
			MinValue: f64(0),
			MaxValue: f64(1000000),
		},
		FieldInvoiceDate: {
			Required:   true,
			Format:     "date",
			NotFuture:  true,
			MaxAgeDays: 1095,
		},
		FieldVendorName: {
			Required:  true,
			MinLength: 2,
			MaxLength: 200,
		},
		FieldCurrency: {
			Required:   true,
			ValidCodes: []string{"USD", "EUR", "GBP", "CAD", "AUD", "JPY"},
		},
	}
}

// FieldSets defines which fields count as required vs optional for the
// confidence score. Immutable once constructed.
type FieldSets struct {
	Required []string `yaml:"required" mapstructure:"required"`
	Optional []string `yaml:"optional" mapstructure:"optional"`
}

// DefaultFieldSets returns the stock required/optional field split.
func DefaultFieldSets() FieldSets {
	return FieldSets{
		Required: []string{
			FieldInvoiceNumber, FieldVendorName, FieldInvoiceDate,
			FieldTotalAmount, FieldCurrency,
		},
		Optional: []string{
			FieldVendorAddress, FieldBillingAddress, FieldDueDate,
			FieldPaymentTerms, FieldPONumber, FieldTaxAmount,
			FieldSubtotal, FieldLineItems, FieldPaymentMethod,
		},
	}
}
