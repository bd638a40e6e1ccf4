package engine

import (
	"context"

	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// DiffInput contains parameters for the Diff operation.
type DiffInput struct {
	From string
	To   string

	// IncludeUnchanged keeps fields equal on both sides in the result.
	// Off by default; completeness checks turn it on.
	IncludeUnchanged bool
}

// DiffOutput contains the result of the Diff operation.
type DiffOutput struct {
	From    state.Version     `json:"from"`
	To      state.Version     `json:"to"`
	Entries []state.DiffEntry `json:"entries"`
}

// Diff compares two versions' snapshots as a full outer join keyed by field
// name, with deep structural equality on values. Both versions must exist;
// nothing is written.
func Diff(ctx context.Context, store Store, input DiffInput) (*DiffOutput, error) {
	if input.From == "" || input.To == "" {
		return nil, errors.NewValidation("both version ids are required")
	}

	fromVersion, err := store.Version(ctx, input.From)
	if err != nil {
		return nil, err
	}
	toVersion, err := store.Version(ctx, input.To)
	if err != nil {
		return nil, err
	}

	fromSnapshot, err := store.Snapshot(ctx, fromVersion.ID)
	if err != nil {
		return nil, err
	}
	toSnapshot, err := store.Snapshot(ctx, toVersion.ID)
	if err != nil {
		return nil, err
	}

	entries := state.Diff(fromSnapshot, toSnapshot)
	if !input.IncludeUnchanged {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Type != state.DiffUnchanged {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return &DiffOutput{
		From:    *fromVersion,
		To:      *toVersion,
		Entries: entries,
	}, nil
}
