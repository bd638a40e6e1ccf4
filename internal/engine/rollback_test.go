package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

func TestRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	v1, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "good state",
		Updates: []FieldUpdate{
			{Name: "revenue", Value: json.RawMessage(`100`)},
			{Name: "ceo", Value: json.RawMessage(`"Jane"`)},
		},
	})
	if err != nil {
		t.Fatalf("Commit(v1) error = %v", err)
	}

	// Drift: revenue changes, ceo removed, a new field appears
	v2, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "bad state",
		Updates: []FieldUpdate{
			{Name: "revenue", Value: json.RawMessage(`999`)},
			{Name: "ceo", Delete: true},
			{Name: "mistake", Value: json.RawMessage(`true`)},
		},
	})
	if err != nil {
		t.Fatalf("Commit(v2) error = %v", err)
	}

	out, err := Rollback(ctx, store, cfg, RollbackInput{
		Owner:     "acme",
		VersionID: v1.Version.ID,
		Reason:    "bad import",
	})
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	// New commit, not a rewind: three versions exist, target still superseded
	history, err := History(ctx, store, cfg, HistoryInput{Owner: "acme"})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if history.Pagination.Total != 3 {
		t.Errorf("total versions = %d, want 3 (append-only)", history.Pagination.Total)
	}
	target, err := store.Version(ctx, v1.Version.ID)
	if err != nil {
		t.Fatalf("Version(target) error = %v", err)
	}
	if target.IsCurrent {
		t.Error("rollback target became current; a new commit was expected instead")
	}

	// Rollback commit metadata
	if out.Version.Author != "system" {
		t.Errorf("author = %q, want system", out.Version.Author)
	}
	if len(out.Version.Tags) != 1 || out.Version.Tags[0] != "rollback" {
		t.Errorf("tags = %v, want [rollback]", out.Version.Tags)
	}
	wantPrefix := "Rollback to " + v1.Version.ShortHash
	if !strings.HasPrefix(out.Version.Message, wantPrefix) {
		t.Errorf("message = %q, want prefix %q", out.Version.Message, wantPrefix)
	}
	if !strings.Contains(out.Version.Message, "bad import") {
		t.Errorf("message = %q, want the reason included", out.Version.Message)
	}
	if out.Version.ParentID == nil || *out.Version.ParentID != v2.Version.ID {
		t.Errorf("parent = %v, want %q (the version that was current)", out.Version.ParentID, v2.Version.ID)
	}

	// Content equals the target snapshot
	rolled, err := store.Snapshot(ctx, out.Version.ID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	targetSnap, err := store.Snapshot(ctx, v1.Version.ID)
	if err != nil {
		t.Fatalf("Snapshot(target) error = %v", err)
	}
	entries := state.Diff(targetSnap, rolled)
	for _, e := range entries {
		if e.Type != state.DiffUnchanged {
			t.Errorf("field %q differs from target after rollback: %q", e.FieldName, e.Type)
		}
	}
	if _, ok := rolled["mistake"]; ok {
		t.Error("field added after target survived the rollback")
	}
}

func TestRollback_DefaultReason(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	v1, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "baseline quarter",
		Updates: []FieldUpdate{{Name: "a", Value: json.RawMessage(`1`)}},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "drift",
		Updates: []FieldUpdate{{Name: "a", Value: json.RawMessage(`2`)}},
	}); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	out, err := Rollback(ctx, store, cfg, RollbackInput{Owner: "acme", VersionID: v1.Version.ID})
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	// Reason falls back to the target's message
	if !strings.Contains(out.Version.Message, "baseline quarter") {
		t.Errorf("message = %q, want target message as reason", out.Version.Message)
	}
}

func TestRollback_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	acme, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "acme v1",
		Updates: []FieldUpdate{{Name: "a", Value: json.RawMessage(`1`)}},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	t.Run("missing version id", func(t *testing.T) {
		_, err := Rollback(ctx, store, cfg, RollbackInput{Owner: "acme"})
		if !errors.Is(err, errors.ErrValidation) {
			t.Errorf("error = %v, want VALIDATION", err)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := Rollback(ctx, store, cfg, RollbackInput{Owner: "acme", VersionID: "missing"})
		if !errors.Is(err, errors.ErrNotFound) {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("version of another owner", func(t *testing.T) {
		_, err := Rollback(ctx, store, cfg, RollbackInput{Owner: "globex", VersionID: acme.Version.ID})
		if !errors.Is(err, errors.ErrValidation) {
			t.Errorf("error = %v, want VALIDATION", err)
		}
	})
}
