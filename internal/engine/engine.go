// Package engine implements the versioned state operations: commit,
// current-version tracking, temporal reconstruction, diff, rollback, field
// history, and derived statistics. It holds no in-process mutable state; all
// durability goes through the Store interface.
package engine

import (
	"context"
	"crypto/rand"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// Store is the narrow persistence surface the engine depends on. InsertCommit
// must persist the version, its full field set, and its change rows, and flip
// the owner's current flag, atomically: either everything is durable and the
// version is current, or nothing happened.
type Store interface {
	InsertCommit(ctx context.Context, v *state.Version, fields []state.Field, changes []state.Change) error
	Current(ctx context.Context, ownerNorm string) (*state.Version, error)
	Version(ctx context.Context, id string) (*state.Version, error)
	VersionAt(ctx context.Context, ownerNorm string, ts int64) (*state.Version, error)
	Versions(ctx context.Context, ownerNorm string, limit, offset int) ([]state.Version, int, error)
	Snapshot(ctx context.Context, versionID string) (state.Snapshot, error)
	Changes(ctx context.Context, versionID string) ([]state.Change, error)
	FieldChanges(ctx context.Context, ownerNorm, fieldName string, from, to int64, limit int) ([]state.Change, error)
	UpdateTags(ctx context.Context, versionID string, tags []string) error
	VersionCount(ctx context.Context, ownerNorm string) (int, error)
	ChangeCount(ctx context.Context, ownerNorm string) (int, error)
	TopFields(ctx context.Context, ownerNorm string, n int) ([]state.FieldFrequency, error)
	DailyCommits(ctx context.Context, ownerNorm string, since int64) ([]state.DailyCount, error)
}

// Pagination describes a page of a listing.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// now is stubbed in tests that need deterministic timestamps.
var now = time.Now

// nowMillis returns the current time in Unix milliseconds.
func nowMillis() int64 {
	return now().UnixMilli()
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// normalizeOwner validates and normalizes an owner identifier.
func normalizeOwner(owner string) (string, error) {
	norm := state.NormalizeOwner(owner)
	if norm == "" {
		return "", errors.NewValidation("owner must not be empty")
	}
	return norm, nil
}

// ParseTimestamp parses a caller-supplied point in time as either RFC 3339 or
// Unix milliseconds. Malformed input is a validation error, rejected before
// any store access.
func ParseTimestamp(s string) (int64, error) {
	if s == "" {
		return 0, errors.NewValidation("timestamp is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	if millis, err := strconv.ParseInt(s, 10, 64); err == nil && millis > 0 {
		return millis, nil
	}
	return 0, errors.NewValidation("timestamp must be RFC 3339 or Unix milliseconds")
}
