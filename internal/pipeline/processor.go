package pipeline

import (
	"fmt"

	"newsmask/internal/masking"
	"newsmask/internal/models"
)

// Processor validates a record and augments it with a masked example.
type Processor struct {
	validator *Validator
	engine    *masking.Engine
}

// NewProcessor creates a processor around engine.
func NewProcessor(engine *masking.Engine) *Processor {
	return &Processor{
		validator: NewValidator(),
		engine:    engine,
	}
}

// Process returns rec with masked_article and answer set, plus the example that
// produced them.
func (p *Processor) Process(rng masking.Rand, rec models.Record) (models.Record, models.MaskedExample, error) {
	// 1. Validate the input record
	if err := p.validator.Validate(&rec); err != nil {
		return models.Record{}, models.MaskedExample{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	// 2. Mask the article
	ex, err := p.engine.Mask(rng, rec.Article)
	if err != nil {
		return models.Record{}, models.MaskedExample{}, fmt.Errorf("masking failed: %w", err)
	}

	return rec.WithExample(ex), ex, nil
}
