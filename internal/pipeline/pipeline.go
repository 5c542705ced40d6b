// Package pipeline orchestrates extraction: parse the raw model text,
// normalize fields, then score and validate the result. Each call processes
// exactly one document; the only shared state is immutable configuration, so
// concurrent calls need no coordination.
package pipeline

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/normalize"
	"github.com/sells-group/invoice-cli/internal/parser"
	"github.com/sells-group/invoice-cli/internal/scorer"
	"github.com/sells-group/invoice-cli/internal/validate"
)

// Stats are cumulative processing counters for one Pipeline instance.
type Stats struct {
	TotalProcessed        int     `json:"total_processed"`
	SuccessfulExtractions int     `json:"successful_extractions"`
	FailedExtractions     int     `json:"failed_extractions"`
	AverageProcessingTime float64 `json:"average_processing_time"` // seconds
	TotalProcessingTime   float64 `json:"total_processing_time"`   // seconds
}

// Pipeline converts raw AI text into a validated, confidence-scored invoice
// record. The scorer and validator read the same normalized record without
// mutating it.
type Pipeline struct {
	scorer    *scorer.Scorer
	validator *validate.Validator
	aiModel   string
	now       func() time.Time

	mu    sync.Mutex
	stats Stats
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithModelID records the AI model identifier on each produced record.
func WithModelID(id string) Option {
	return func(p *Pipeline) { p.aiModel = id }
}

// WithClock overrides the pipeline's time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. The field sets and rule set are read-only
// configuration shared across all invocations.
func New(fields model.FieldSets, rules *model.RuleSet, opts ...Option) *Pipeline {
	p := &Pipeline{
		scorer:    scorer.New(fields),
		validator: validate.New(rules),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full extraction sequence for one document. A parse
// failure is terminal for the invocation (no retries here — the caller
// decides whether to retry the upstream AI call); every later problem
// degrades into lower scores and report entries instead of an error.
func (p *Pipeline) Process(rawText string, fileMeta model.FileMetadata) (*model.InvoiceRecord, error) {
	start := p.now()
	log := zap.L().With(zap.String("file", fileMeta.FileName))

	raw, err := parser.Parse(rawText)
	if err != nil {
		p.record(start, false)
		log.Warn("pipeline: response parse failed", zap.Error(err))
		return nil, eris.Wrap(err, "pipeline: parse AI response")
	}

	res := normalize.Normalize(raw)
	rec := &res.Record
	rec.DegradedFields = res.Degraded

	rec.ProcessingMetadata = model.ProcessingMetadata{
		FileMetadata:   fileMeta,
		ProcessedAt:    p.now().UTC(),
		ProcessingTime: p.now().Sub(start).Seconds(),
		AIModel:        p.aiModel,
	}

	rec.Confidence = p.scorer.Score(rec)
	rec.ValidationResults = p.validator.Validate(rec)
	if score, ok := validate.Score(rec.ValidationResults); ok {
		rec.ValidationScore = &score
	}

	p.record(start, true)
	log.Info("pipeline: extraction complete",
		zap.Float64("confidence", rec.Confidence),
		zap.Int("degraded_fields", len(rec.DegradedFields)),
	)
	return rec, nil
}

// Stats returns a snapshot of cumulative processing counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pipeline) record(start time.Time, success bool) {
	elapsed := p.now().Sub(start).Seconds()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.TotalProcessed++
	p.stats.TotalProcessingTime += elapsed
	if success {
		p.stats.SuccessfulExtractions++
	} else {
		p.stats.FailedExtractions++
	}
	p.stats.AverageProcessingTime = p.stats.TotalProcessingTime / float64(p.stats.TotalProcessed)
}
