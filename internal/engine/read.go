package engine

import (
	"context"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// StateOutput is a version together with its complete field set.
type StateOutput struct {
	Version state.Version  `json:"version"`
	Fields  state.Snapshot `json:"fields"`
}

// Current returns the owner's current version and snapshot. A store that
// reports more than one current version surfaces as a consistency error,
// distinct from not-found.
func Current(ctx context.Context, store Store, owner string) (*StateOutput, error) {
	ownerNorm, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	version, err := store.Current(ctx, ownerNorm)
	if err != nil {
		return nil, err
	}

	fields, err := store.Snapshot(ctx, version.ID)
	if err != nil {
		return nil, err
	}

	return &StateOutput{Version: *version, Fields: fields}, nil
}

// State returns a version's full snapshot by id. Every version is
// self-contained, so no ancestor walk happens.
func State(ctx context.Context, store Store, versionID string) (*StateOutput, error) {
	if versionID == "" {
		return nil, errors.NewValidation("version id is required")
	}

	version, err := store.Version(ctx, versionID)
	if err != nil {
		return nil, err
	}

	fields, err := store.Snapshot(ctx, version.ID)
	if err != nil {
		return nil, err
	}

	return &StateOutput{Version: *version, Fields: fields}, nil
}

// StateAt reconstructs the owner's state as of ts (Unix milliseconds): the
// version with the greatest created_at <= ts, read directly. Because every
// version carries its full snapshot, this single lookup is equivalent to
// per-field reconstruction across all versions.
func StateAt(ctx context.Context, store Store, owner string, ts int64) (*StateOutput, error) {
	ownerNorm, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	if ts <= 0 {
		return nil, errors.NewValidation("timestamp must be positive Unix milliseconds")
	}

	version, err := store.VersionAt(ctx, ownerNorm, ts)
	if err != nil {
		return nil, err
	}

	fields, err := store.Snapshot(ctx, version.ID)
	if err != nil {
		return nil, err
	}

	return &StateOutput{Version: *version, Fields: fields}, nil
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Owner  string
	Limit  int
	Offset int
}

// HistoryOutput is one page of an owner's versions, newest first.
type HistoryOutput struct {
	Versions   []state.Version `json:"versions"`
	Pagination Pagination      `json:"pagination"`
}

// History lists an owner's versions ordered by creation time. Racing commits
// can leave stray branches in the parent graph, so history is defined over
// created_at, not the ancestor chain of the current version.
func History(ctx context.Context, store Store, cfg *config.Config, input HistoryInput) (*HistoryOutput, error) {
	ownerNorm, err := normalizeOwner(input.Owner)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = cfg.HistoryPageSize
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	versions, total, err := store.Versions(ctx, ownerNorm, limit, offset)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		Versions:   versions,
		Pagination: Pagination{Total: total, Limit: limit, Offset: offset},
	}, nil
}
