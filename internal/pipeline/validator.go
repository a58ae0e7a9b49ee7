// Package pipeline drives the batch pass: load each split, mask every record,
// summarize, and persist the augmented split with its manifest.
package pipeline

import (
	"errors"

	"newsmask/internal/models"
)

// Validation errors.
var (
	ErrInvalidRecord = errors.New("invalid record")
	ErrMissingID     = errors.New("record missing id")
	ErrNoArticle     = errors.New("record has no article field")
)

// Validator checks that a record can be masked.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks if a record meets requirements. An empty article is valid and
// masks to a degenerate example; only a record without an article is rejected.
func (v *Validator) Validate(rec *models.Record) error {
	if rec.ID == "" {
		return ErrMissingID
	}

	if rec.Article == "" && !rec.HasArticle {
		return ErrNoArticle
	}

	return nil
}
