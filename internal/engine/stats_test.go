package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/versokit/verso/internal/errors"
)

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Three commits across two days; revenue changes three times, ceo once.
	stubNow(t, base)
	if _, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "v1",
		Updates: []FieldUpdate{
			{Name: "revenue", Value: json.RawMessage(`100`)},
			{Name: "ceo", Value: json.RawMessage(`"Jane"`)},
		},
	}); err != nil {
		t.Fatalf("Commit(v1) error = %v", err)
	}

	stubNow(t, base.Add(time.Hour))
	if _, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "v2",
		Updates: []FieldUpdate{{Name: "revenue", Value: json.RawMessage(`150`)}},
	}); err != nil {
		t.Fatalf("Commit(v2) error = %v", err)
	}

	stubNow(t, base.AddDate(0, 0, 1))
	if _, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   "acme",
		Message: "v3",
		Updates: []FieldUpdate{{Name: "revenue", Value: json.RawMessage(`200`)}},
	}); err != nil {
		t.Fatalf("Commit(v3) error = %v", err)
	}

	// Query a day later, well within the default window
	stubNow(t, base.AddDate(0, 0, 2))
	out, err := Stats(ctx, store, cfg, StatsInput{Owner: "acme"})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if out.VersionCount != 3 {
		t.Errorf("version count = %d, want 3", out.VersionCount)
	}
	if out.ChangeCount != 4 {
		t.Errorf("change count = %d, want 4", out.ChangeCount)
	}
	if out.WindowDays != cfg.StatsWindowDays {
		t.Errorf("window days = %d, want %d", out.WindowDays, cfg.StatsWindowDays)
	}

	if len(out.TopFields) != 2 {
		t.Fatalf("len(top fields) = %d, want 2", len(out.TopFields))
	}
	if out.TopFields[0].FieldName != "revenue" || out.TopFields[0].Changes != 3 {
		t.Errorf("top field = %+v, want revenue with 3 changes", out.TopFields[0])
	}

	if len(out.DailyCommits) != 2 {
		t.Fatalf("len(daily) = %d, want 2", len(out.DailyCommits))
	}
	if out.DailyCommits[0].Day != "2024-06-01" || out.DailyCommits[0].Commits != 2 {
		t.Errorf("daily[0] = %+v, want 2024-06-01 with 2 commits", out.DailyCommits[0])
	}

	t.Run("top-n cap", func(t *testing.T) {
		out, err := Stats(ctx, store, cfg, StatsInput{Owner: "acme", TopN: 1})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(out.TopFields) != 1 {
			t.Errorf("len(top fields) = %d, want 1", len(out.TopFields))
		}
	})

	t.Run("window excludes old commits", func(t *testing.T) {
		// A 1-day window from two days after base covers only nothing before
		// the cutoff; day one falls outside.
		out, err := Stats(ctx, store, cfg, StatsInput{Owner: "acme", WindowDays: 1})
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		for _, d := range out.DailyCommits {
			if d.Day == "2024-06-01" {
				t.Error("daily commits include a day outside the window")
			}
		}
		// Totals stay all-time regardless of the window
		if out.VersionCount != 3 {
			t.Errorf("version count = %d, want 3 (window bounds daily only)", out.VersionCount)
		}
	})
}

func TestStats_EmptyOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()

	// No versions: stats are zero, not an error
	out, err := Stats(ctx, store, cfg, StatsInput{Owner: "nobody"})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if out.VersionCount != 0 || out.ChangeCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", out.VersionCount, out.ChangeCount)
	}
	if len(out.TopFields) != 0 || len(out.DailyCommits) != 0 {
		t.Errorf("aggregates = %v / %v, want empty", out.TopFields, out.DailyCommits)
	}

	if _, err := Stats(ctx, store, cfg, StatsInput{Owner: "  "}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Stats(blank owner) error = %v, want VALIDATION", err)
	}
}
