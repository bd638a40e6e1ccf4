package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versokit/verso/internal/state"
)

// TestWorkflow_BusinessStateLifecycle walks one owner through the full
// lifecycle: initial commit, incremental updates, temporal reads, diff,
// rollback, tagging, and stats, checking the cross-operation guarantees.
func TestWorkflow_BusinessStateLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cfg := testConfig()
	owner := "Acme Corp"

	// Day 1: initial state
	stubNow(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	v1, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   owner,
		Message: "Initial company profile",
		Updates: []FieldUpdate{
			{Name: "revenue", Value: json.RawMessage(`1250000`)},
			{Name: "employee_count", Value: json.RawMessage(`37`)},
			{Name: "ceo", Value: json.RawMessage(`"Jane Smith"`)},
		},
	})
	require.NoError(t, err)
	require.True(t, v1.Version.IsCurrent)
	require.Len(t, v1.Changes, 3)

	// Day 2: CRM sync updates one field
	stubNow(t, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	v2, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   owner,
		Message: "CRM sync",
		Updates: []FieldUpdate{
			{Name: "employee_count", Value: json.RawMessage(`41`), Source: state.SourceCRM},
		},
		Author: "system",
	})
	require.NoError(t, err)
	assert.Len(t, v2.Changes, 1, "copy-forward must not produce change rows")

	// Day 3: a bad manual edit
	stubNow(t, time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC))
	v3, err := Commit(ctx, store, cfg, CommitInput{
		Owner:   owner,
		Message: "Fat-fingered revenue",
		Updates: []FieldUpdate{{Name: "revenue", Value: json.RawMessage(`12500000000`)}},
	})
	require.NoError(t, err)

	// Current resolves to v3
	current, err := Current(ctx, store, owner)
	require.NoError(t, err)
	assert.Equal(t, v3.Version.ID, current.Version.ID)
	assert.JSONEq(t, `12500000000`, string(current.Fields["revenue"].Value))

	// Temporal read: state as of day 2 afternoon sees v2's full snapshot
	asOf := time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC).UnixMilli()
	dayTwo, err := StateAt(ctx, store, owner, asOf)
	require.NoError(t, err)
	assert.Equal(t, v2.Version.ID, dayTwo.Version.ID)
	assert.JSONEq(t, `1250000`, string(dayTwo.Fields["revenue"].Value))
	assert.JSONEq(t, `41`, string(dayTwo.Fields["employee_count"].Value))
	assert.JSONEq(t, `"Jane Smith"`, string(dayTwo.Fields["ceo"].Value))

	// Diff v1 -> v3 shows both accumulated changes
	diff, err := Diff(ctx, store, DiffInput{From: v1.Version.ID, To: v3.Version.ID})
	require.NoError(t, err)
	require.Len(t, diff.Entries, 2)
	byName := map[string]state.DiffEntry{}
	for _, e := range diff.Entries {
		byName[e.FieldName] = e
	}
	assert.Equal(t, state.DiffModified, byName["revenue"].Type)
	assert.Equal(t, state.DiffModified, byName["employee_count"].Type)

	// Rollback to v2 undoes the bad edit as a new commit
	stubNow(t, time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC))
	rolled, err := Rollback(ctx, store, cfg, RollbackInput{
		Owner:     owner,
		VersionID: v2.Version.ID,
		Reason:    "revenue typo",
	})
	require.NoError(t, err)
	assert.Equal(t, "system", rolled.Version.Author)
	assert.Contains(t, rolled.Version.Tags, "rollback")

	current, err = Current(ctx, store, owner)
	require.NoError(t, err)
	assert.Equal(t, rolled.Version.ID, current.Version.ID)
	assert.JSONEq(t, `1250000`, string(current.Fields["revenue"].Value))

	// History is append-only: four versions, newest first
	history, err := History(ctx, store, cfg, HistoryInput{Owner: owner})
	require.NoError(t, err)
	assert.Equal(t, 4, history.Pagination.Total)
	assert.Equal(t, rolled.Version.ID, history.Versions[0].ID)
	for i := 1; i < len(history.Versions); i++ {
		assert.GreaterOrEqual(t, history.Versions[i-1].CreatedAt, history.Versions[i].CreatedAt)
	}

	// Tag the rollback as the audited baseline
	tagged, err := Tag(ctx, store, TagInput{
		VersionID: rolled.Version.ID,
		Tags:      []string{"baseline", "audited"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"baseline", "audited"}, tagged.Version.Tags)

	// Field history for revenue: create, bad edit, rollback correction
	fh, err := FieldHistory(ctx, store, cfg, FieldHistoryInput{Owner: owner, FieldName: "revenue"})
	require.NoError(t, err)
	require.Len(t, fh.Changes, 3)
	assert.Equal(t, state.ChangeUpdate, fh.Changes[0].Type)
	assert.Equal(t, state.ChangeCreate, fh.Changes[2].Type)

	// Stats over the whole window
	stats, err := Stats(ctx, store, cfg, StatsInput{Owner: owner})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.VersionCount)
	assert.Equal(t, "revenue", stats.TopFields[0].FieldName)
}
