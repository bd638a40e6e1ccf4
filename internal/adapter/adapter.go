// Package adapter defines the contract external sync sources must satisfy to
// feed commits into the engine. The engine never calls out to a source; it
// only consumes the field updates a source produced.
package adapter

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// SyncResult is the only shape a sync source must produce: a flag, the field
// names it touched, updates consumable by Commit, and an error description
// when the fetch failed upstream.
type SyncResult struct {
	Success       bool                 `json:"success"`
	FieldsUpdated []string             `json:"fields_updated"`
	Updates       []engine.FieldUpdate `json:"updates"`
	Error         string               `json:"error,omitempty"`
}

// Source is an external sync source (social metrics, CRM, generic webhook).
// Fetch produces a SyncResult; it must not write to the store itself.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*SyncResult, error)
}

// MapPayload converts a flat JSON object into typed field updates, inferring
// each field's type tag from its JSON shape. Used by webhook-style sources
// that receive untyped payloads. Updates come back sorted by field name.
func MapPayload(payload json.RawMessage, source state.Source) ([]engine.FieldUpdate, error) {
	if source == "" {
		source = state.SourceWebhook
	}
	if !source.Valid() {
		return nil, errors.NewValidation("unknown source tag")
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(payload, &object); err != nil {
		return nil, errors.NewValidation("payload must be a JSON object")
	}

	updates := make([]engine.FieldUpdate, 0, len(object))
	for name, raw := range object {
		if name == "" {
			return nil, errors.NewValidation("payload contains an empty field name")
		}
		v, err := state.DecodeValue(raw)
		if err != nil {
			return nil, errors.NewValidation("payload value is not valid JSON")
		}
		updates = append(updates, engine.FieldUpdate{
			Name:   name,
			Value:  raw,
			Type:   state.InferType(v),
			Source: source,
		})
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })
	return updates, nil
}
