// Package models defines data structures shared by the loader, the masking engine and the sinks.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// Reserved record keys.
const (
	KeyID            = "id"
	KeyArticle       = "article"
	KeyMaskedArticle = "masked_article"
	KeyAnswer        = "answer"
)

// ErrArticleNotString is returned when a record's article field has a non-string value.
var ErrArticleNotString = errors.New("article field is not a string")

// Record represents a news article as read from a dataset split. Fields holds every
// source key other than the reserved ones so that records round-trip unchanged.
type Record struct {
	Fields        map[string]any `json:"-"`
	ID            string         `json:"id"`
	Article       string         `json:"article"`
	MaskedArticle string         `json:"masked_article,omitempty"`
	Answer        string         `json:"answer,omitempty"`

	// HasArticle is set when the source carried an article key, even an empty one.
	HasArticle bool `json:"-"`
}

// Masked reports whether the record has been through the masking engine.
func (r *Record) Masked() bool {
	return r.MaskedArticle != "" || r.Answer != ""
}

// WithExample returns a copy of the record augmented with the example's texts.
func (r Record) WithExample(ex MaskedExample) Record {
	r.MaskedArticle = ex.Masked
	r.Answer = ex.Answer
	r.Fields = maps.Clone(r.Fields)

	return r
}

// MarshalJSON flattens Fields next to the reserved keys.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+4)
	maps.Copy(out, r.Fields)

	out[KeyID] = r.ID
	out[KeyArticle] = r.Article

	if r.Masked() {
		out[KeyMaskedArticle] = r.MaskedArticle
		out[KeyAnswer] = r.Answer
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads a flat JSON object. A missing article is left empty with
// HasArticle unset; the pipeline validator decides what to do with it. Numbers are
// kept as json.Number so large ids and integer fields survive a round trip.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	rec, err := RecordFromMap(raw)
	if err != nil {
		return err
	}

	*r = rec

	return nil
}

// RecordFromMap builds a record from a decoded JSON object.
func RecordFromMap(raw map[string]any) (Record, error) {
	var rec Record

	if v, ok := raw[KeyArticle]; ok && v != nil {
		s, isStr := v.(string)
		if !isStr {
			return Record{}, fmt.Errorf("%w: got %T", ErrArticleNotString, v)
		}

		rec.Article = s
		rec.HasArticle = true
	}

	if v, ok := raw[KeyID]; ok && v != nil {
		switch id := v.(type) {
		case string:
			rec.ID = id
		case json.Number:
			rec.ID = id.String()
		case float64:
			rec.ID = fmt.Sprintf("%.0f", id)
		default:
			rec.ID = fmt.Sprint(id)
		}
	}

	if s, ok := raw[KeyMaskedArticle].(string); ok {
		rec.MaskedArticle = s
	}

	if s, ok := raw[KeyAnswer].(string); ok {
		rec.Answer = s
	}

	for k, v := range raw {
		switch k {
		case KeyID, KeyArticle, KeyMaskedArticle, KeyAnswer:
			continue
		}

		if rec.Fields == nil {
			rec.Fields = make(map[string]any, len(raw))
		}

		rec.Fields[k] = v
	}

	return rec, nil
}
