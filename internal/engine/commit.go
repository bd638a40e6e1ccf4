package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// FieldUpdate is one field mutation inside a commit. Delete drops the field
// from the new snapshot instead of setting a value.
type FieldUpdate struct {
	Name   string          `json:"field_name"`
	Value  json.RawMessage `json:"field_value,omitempty"`
	Type   state.FieldType `json:"field_type,omitempty"`
	Source state.Source    `json:"source,omitempty"`
	Delete bool            `json:"delete,omitempty"`
}

// CommitInput contains parameters for the Commit operation.
type CommitInput struct {
	Owner   string
	Message string
	Updates []FieldUpdate
	Tags    []string
	Author  string // default: "user"
}

// CommitOutput contains the result of the Commit operation.
type CommitOutput struct {
	Version state.Version  `json:"version"`
	Changes []state.Change `json:"changes"`
}

// Commit creates a new version: the updates applied on top of the current
// snapshot, with every untouched parent field copied forward unchanged. The
// new version carries a complete field set and becomes current atomically.
// Change rows are written only for fields whose value actually changed.
func Commit(ctx context.Context, store Store, cfg *config.Config, input CommitInput) (*CommitOutput, error) {
	ownerNorm, err := normalizeOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if input.Message == "" {
		return nil, errors.NewValidation("message must not be empty")
	}
	if len(input.Updates) == 0 {
		return nil, errors.NewValidation("updates must not be empty")
	}
	if input.Author == "" {
		input.Author = "user"
	}

	updates, err := validateUpdates(cfg, input.Updates)
	if err != nil {
		return nil, err
	}

	// The current version, if any, becomes the parent.
	var parent *state.Version
	var parentSnapshot state.Snapshot
	current, err := store.Current(ctx, ownerNorm)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if current != nil {
		parent = current
		parentSnapshot, err = store.Snapshot(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
	}

	for _, u := range updates {
		if u.Delete {
			if _, ok := parentSnapshot[u.Name]; !ok {
				return nil, errors.NewValidation(fmt.Sprintf("cannot delete field %q: not present in current state", u.Name))
			}
		}
	}

	createdAt := nowMillis()
	if parent != nil && createdAt < parent.CreatedAt {
		// Timestamps are non-decreasing per owner even if the wall clock
		// steps backwards.
		createdAt = parent.CreatedAt
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	contentHash := state.ContentHash(ownerNorm, input.Message, createdAt)
	version := &state.Version{
		ID:          id,
		OwnerRaw:    input.Owner,
		OwnerNorm:   ownerNorm,
		ContentHash: contentHash,
		ShortHash:   state.ShortHash(contentHash),
		Message:     input.Message,
		Author:      input.Author,
		Tags:        input.Tags,
		CreatedAt:   createdAt,
	}
	if parent != nil {
		parentID := parent.ID
		version.ParentID = &parentID
	}

	fields, changes := buildSnapshot(version, parentSnapshot, updates)

	if err := store.InsertCommit(ctx, version, fields, changes); err != nil {
		return nil, err
	}

	return &CommitOutput{Version: *version, Changes: changes}, nil
}

// validateUpdates rejects empty names, duplicates, unknown tags, oversized
// values, and malformed JSON, and fills in defaults (source: manual, type
// inferred from the JSON shape).
func validateUpdates(cfg *config.Config, updates []FieldUpdate) ([]FieldUpdate, error) {
	seen := make(map[string]bool, len(updates))
	result := make([]FieldUpdate, 0, len(updates))

	for _, u := range updates {
		if u.Name == "" {
			return nil, errors.NewValidation("field_name must not be empty")
		}
		if seen[u.Name] {
			return nil, errors.NewValidation(fmt.Sprintf("duplicate field %q in updates", u.Name))
		}
		seen[u.Name] = true

		if u.Source == "" {
			u.Source = state.SourceManual
		}
		if !u.Source.Valid() {
			return nil, errors.NewValidation(fmt.Sprintf("unknown source %q for field %q", u.Source, u.Name))
		}

		if u.Delete {
			if u.Value != nil {
				return nil, errors.NewValidation(fmt.Sprintf("field %q: delete must not carry a value", u.Name))
			}
			result = append(result, u)
			continue
		}

		if u.Value == nil {
			return nil, errors.NewValidation(fmt.Sprintf("field %q: field_value is required", u.Name))
		}
		if cfg != nil && cfg.FieldValueMaxBytes > 0 && len(u.Value) > cfg.FieldValueMaxBytes {
			return nil, errors.NewValidation(fmt.Sprintf("field %q: value exceeds %d bytes", u.Name, cfg.FieldValueMaxBytes))
		}

		normalized, err := state.NormalizeValue(u.Value)
		if err != nil {
			return nil, errors.NewValidation(fmt.Sprintf("field %q: value is not valid JSON", u.Name))
		}
		u.Value = normalized

		if u.Type == "" {
			v, _ := state.DecodeValue(u.Value)
			u.Type = state.InferType(v)
		}
		if !u.Type.Valid() {
			return nil, errors.NewValidation(fmt.Sprintf("unknown field_type %q for field %q", u.Type, u.Name))
		}

		result = append(result, u)
	}

	return result, nil
}

// buildSnapshot computes the new version's complete field set and the change
// rows it produces relative to the parent snapshot.
//
// Rules: an updated field takes the new value and is re-stamped; a parent
// field absent from the updates is copied forward verbatim (value, type,
// source, updated_at all preserved) with no change row; an update whose
// value structurally equals the parent's is treated as copy-forward; a
// delete update drops the field and records a delete change.
func buildSnapshot(v *state.Version, parent state.Snapshot, updates []FieldUpdate) ([]state.Field, []state.Change) {
	updated := make(map[string]bool, len(updates))
	fields := make([]state.Field, 0, len(parent)+len(updates))
	changes := make([]state.Change, 0, len(updates))

	for _, u := range updates {
		updated[u.Name] = true
		prev, existed := parent[u.Name]

		if u.Delete {
			changes = append(changes, state.Change{
				VersionID: v.ID,
				OwnerNorm: v.OwnerNorm,
				FieldName: u.Name,
				OldValue:  prev.Value,
				Type:      state.ChangeDelete,
				Source:    u.Source,
				CreatedAt: v.CreatedAt,
			})
			continue
		}

		if existed && state.ValuesEqual(prev.Value, u.Value) {
			// No actual transition: carry the parent's field forward
			// without re-stamping and without an audit row.
			prev.VersionID = v.ID
			fields = append(fields, prev)
			continue
		}

		fields = append(fields, state.Field{
			VersionID: v.ID,
			Name:      u.Name,
			Value:     u.Value,
			Type:      u.Type,
			Source:    u.Source,
			UpdatedAt: v.CreatedAt,
		})

		changeType := state.ChangeCreate
		var oldValue json.RawMessage
		if existed {
			changeType = state.ChangeUpdate
			oldValue = prev.Value
		}
		changes = append(changes, state.Change{
			VersionID: v.ID,
			OwnerNorm: v.OwnerNorm,
			FieldName: u.Name,
			OldValue:  oldValue,
			NewValue:  u.Value,
			Type:      changeType,
			Source:    u.Source,
			CreatedAt: v.CreatedAt,
		})
	}

	// Copy-forward: every parent field the updates did not touch.
	for name, f := range parent {
		if updated[name] {
			continue
		}
		f.VersionID = v.ID
		fields = append(fields, f)
	}

	return fields, changes
}
