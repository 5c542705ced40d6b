// Package validate applies the configurable business-rule set to a
// normalized invoice record. Check failures are recorded, never raised: a
// low-quality extraction is still useful data, flagged for human review via
// the validation score.
package validate

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/currency"

	"github.com/sells-group/invoice-cli/internal/model"
)

// amountTolerance is the absolute tolerance for cross-field arithmetic
// checks, allowing for rounding differences. The epsilon absorbs float64
// representation error so a difference of exactly one cent is still within
// tolerance (108.01 − 108 evaluates to slightly more than 0.01).
const (
	amountTolerance  = 0.01
	toleranceEpsilon = 1e-9
)

func withinTolerance(a, b float64) bool {
	return math.Abs(a-b) <= amountTolerance+toleranceEpsilon
}

// Validator evaluates records against an immutable compiled rule set. One
// instance is safely shared by concurrent pipeline runs.
type Validator struct {
	rules *model.RuleSet
	now   func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source used by date rules.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New creates a Validator for the given rule set.
func New(rules *model.RuleSet, opts ...Option) *Validator {
	v := &Validator{rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every configured per-field rule plus the business-logic
// checks and returns the full report. It never fails.
func (v *Validator) Validate(rec *model.InvoiceRecord) model.ValidationReport {
	report := make(model.ValidationReport)

	for _, field := range v.rules.Fields() {
		rule, _ := v.rules.Rule(field)
		value := rec.Field(field)
		if value == nil || value == "" {
			if rule.Required {
				report[field] = model.CheckResult{
					Passed:  false,
					Message: fmt.Sprintf("required field %s is missing", field),
				}
			} else {
				report[field] = model.CheckResult{Passed: true, Message: "optional field is empty"}
			}
			continue
		}
		report[field] = v.checkField(field, value, rule)
	}

	v.businessChecks(rec, report)
	return report
}

// checkField dispatches on the value's type: strings get length, pattern,
// code-list, and date checks; numerics get range checks. Other types pass
// trivially.
func (v *Validator) checkField(field string, value any, rule model.FieldRule) model.CheckResult {
	switch t := value.(type) {
	case string:
		return v.checkString(field, t, rule)
	case float64:
		return checkNumeric(t, rule)
	default:
		return model.CheckResult{Passed: true, Message: "field validation passed"}
	}
}

func (v *Validator) checkString(field, value string, rule model.FieldRule) model.CheckResult {
	if rule.MinLength > 0 && len(value) < rule.MinLength {
		return fail("value too short (min: %d)", rule.MinLength)
	}
	if rule.MaxLength > 0 && len(value) > rule.MaxLength {
		return fail("value too long (max: %d)", rule.MaxLength)
	}
	if re := v.rules.Pattern(field); re != nil && !re.MatchString(value) {
		return model.CheckResult{Passed: false, Message: "value format is invalid"}
	}
	if len(rule.ValidCodes) > 0 || field == model.FieldCurrency {
		if res, done := checkCode(value, rule.ValidCodes); done {
			return res
		}
	}
	if rule.Format == "date" {
		if res, done := v.checkDate(value, rule); done {
			return res
		}
	}
	return model.CheckResult{Passed: true, Message: "string validation passed"}
}

// checkCode validates against the configured code list, falling back to
// ISO 4217 recognition when no list is configured. done is false when the
// value passed and later checks should continue.
func checkCode(value string, codes []string) (model.CheckResult, bool) {
	if len(codes) > 0 {
		for _, c := range codes {
			if value == c {
				return model.CheckResult{}, false
			}
		}
		return fail("code %s is not in the accepted list", value), true
	}
	if _, err := currency.ParseISO(value); err != nil {
		return model.CheckResult{Passed: false, Message: fmt.Sprintf("%s is not a recognized ISO 4217 code", value)}, true
	}
	return model.CheckResult{}, false
}

func (v *Validator) checkDate(value string, rule model.FieldRule) (model.CheckResult, bool) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return model.CheckResult{Passed: false, Message: "date is not in YYYY-MM-DD format"}, true
	}
	now := v.now()
	if rule.NotFuture && t.After(now) {
		return model.CheckResult{Passed: false, Message: "date is in the future"}, true
	}
	if rule.MaxAgeDays > 0 {
		cutoff := now.AddDate(0, 0, -rule.MaxAgeDays)
		if t.Before(cutoff) {
			return fail("date is older than %d days", rule.MaxAgeDays), true
		}
	}
	return model.CheckResult{}, false
}

func checkNumeric(value float64, rule model.FieldRule) model.CheckResult {
	if rule.MinValue != nil && value < *rule.MinValue {
		return fail("value too small (min: %g)", *rule.MinValue)
	}
	if rule.MaxValue != nil && value > *rule.MaxValue {
		return fail("value too large (max: %g)", *rule.MaxValue)
	}
	return model.CheckResult{Passed: true, Message: "numeric validation passed"}
}

// businessChecks adds the cross-field arithmetic checks. Each is only
// evaluated when all of its inputs are present.
func (v *Validator) businessChecks(rec *model.InvoiceRecord, report model.ValidationReport) {
	if len(rec.LineItems) > 0 && rec.Subtotal != nil {
		lineTotal := rec.LineItemTotal()
		subtotal := *rec.Subtotal
		if !withinTolerance(lineTotal, subtotal) {
			report["line_items_sum"] = fail("line items sum (%g) does not match subtotal (%g)", lineTotal, subtotal)
		} else {
			report["line_items_sum"] = model.CheckResult{Passed: true, Message: "line items sum matches subtotal"}
		}
	}

	if rec.Subtotal != nil && rec.TaxAmount != nil && rec.TotalAmount != nil {
		calculated := *rec.Subtotal + *rec.TaxAmount
		actual := *rec.TotalAmount
		if !withinTolerance(calculated, actual) {
			report["total_calculation"] = fail("calculated total (%g) does not match stated total (%g)", calculated, actual)
		} else {
			report["total_calculation"] = model.CheckResult{Passed: true, Message: "total calculation is correct"}
		}
	}
}

// Score returns the fraction of checks that passed. ok is false when zero
// checks were evaluated — deliberately distinguishable from "every check
// failed", which scores 0.0 with ok true.
func Score(report model.ValidationReport) (float64, bool) {
	if len(report) == 0 {
		return 0, false
	}
	passed := 0
	for _, res := range report {
		if res.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(report)), true
}

func fail(format string, args ...any) model.CheckResult {
	return model.CheckResult{Passed: false, Message: fmt.Sprintf(format, args...)}
}
