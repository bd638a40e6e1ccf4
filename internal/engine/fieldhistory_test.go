package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

func TestFieldHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	// revenue changes at t=1000 and t=3000; the middle commit only touches ceo,
	// so revenue is copied forward and must not appear in its history.
	stubNow(t, time.UnixMilli(1000))
	if _, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "v1",
		Updates: []FieldUpdate{{Name: "revenue", Value: json.RawMessage(`100`)}},
	}); err != nil {
		t.Fatalf("Commit(v1) error = %v", err)
	}

	stubNow(t, time.UnixMilli(2000))
	if _, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "v2",
		Updates: []FieldUpdate{{Name: "ceo", Value: json.RawMessage(`"Jane"`)}},
	}); err != nil {
		t.Fatalf("Commit(v2) error = %v", err)
	}

	stubNow(t, time.UnixMilli(3000))
	if _, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "v3",
		Updates: []FieldUpdate{{Name: "revenue", Value: json.RawMessage(`200`)}},
	}); err != nil {
		t.Fatalf("Commit(v3) error = %v", err)
	}

	out, err := FieldHistory(ctx, store, cfg, FieldHistoryInput{Owner: "acme", FieldName: "revenue"})
	if err != nil {
		t.Fatalf("FieldHistory() error = %v", err)
	}
	if len(out.Changes) != 2 {
		t.Fatalf("len(changes) = %d, want 2 (transitions only, not carried versions)", len(out.Changes))
	}
	// Newest first
	if out.Changes[0].CreatedAt != 3000 || out.Changes[1].CreatedAt != 1000 {
		t.Errorf("order = %d, %d, want 3000, 1000", out.Changes[0].CreatedAt, out.Changes[1].CreatedAt)
	}
	if out.Changes[0].Type != state.ChangeUpdate || out.Changes[1].Type != state.ChangeCreate {
		t.Errorf("types = %q, %q, want update, create", out.Changes[0].Type, out.Changes[1].Type)
	}

	t.Run("bounded range", func(t *testing.T) {
		out, err := FieldHistory(ctx, store, cfg, FieldHistoryInput{
			Owner: "acme", FieldName: "revenue", From: 500, To: 1500,
		})
		if err != nil {
			t.Fatalf("FieldHistory() error = %v", err)
		}
		if len(out.Changes) != 1 || out.Changes[0].CreatedAt != 1000 {
			t.Errorf("changes = %v, want only the t=1000 transition", out.Changes)
		}
	})

	t.Run("unknown field is empty, not an error", func(t *testing.T) {
		out, err := FieldHistory(ctx, store, cfg, FieldHistoryInput{Owner: "acme", FieldName: "ghost"})
		if err != nil {
			t.Fatalf("FieldHistory() error = %v", err)
		}
		if len(out.Changes) != 0 {
			t.Errorf("len(changes) = %d, want 0", len(out.Changes))
		}
	})
}

func TestFieldHistory_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	if _, err := FieldHistory(ctx, store, cfg, FieldHistoryInput{Owner: "acme"}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("missing field name error = %v, want VALIDATION", err)
	}

	_, err := FieldHistory(ctx, store, cfg, FieldHistoryInput{
		Owner: "acme", FieldName: "revenue", From: 2000, To: 1000,
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("inverted range error = %v, want VALIDATION", err)
	}
}
