// Package scorer computes the extraction confidence score: a heuristic
// measure of completeness and quality, independent of business-rule
// correctness.
package scorer

import (
	"time"

	"github.com/sells-group/invoice-cli/internal/model"
)

const (
	requiredWeight = 0.7
	optionalWeight = 0.3
	qualityBonus   = 0.05
)

// Scorer computes confidence scores against an immutable field-set
// configuration. One instance is safely shared by concurrent pipeline runs.
type Scorer struct {
	fields model.FieldSets
}

// New creates a Scorer for the given field sets.
func New(fields model.FieldSets) *Scorer {
	return &Scorer{fields: fields}
}

// Score returns a value in [0,1]: weighted required/optional coverage plus
// flat bonuses for a genuine numeric total and a valid calendar invoice
// date — the two fields most prone to AI misreads. Adding a missing required
// field never decreases the score.
func (s *Scorer) Score(rec *model.InvoiceRecord) float64 {
	score := requiredWeight*coverage(rec, s.fields.Required) +
		optionalWeight*coverage(rec, s.fields.Optional)

	if rec.TotalAmount != nil {
		score += qualityBonus
	}
	if rec.InvoiceDate != nil && validCalendarDate(*rec.InvoiceDate) {
		score += qualityBonus
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func coverage(rec *model.InvoiceRecord, fields []string) float64 {
	if len(fields) == 0 {
		return 0
	}
	filled := 0
	for _, f := range fields {
		if rec.HasField(f) {
			filled++
		}
	}
	return float64(filled) / float64(len(fields))
}

func validCalendarDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
