package adapter

import (
	"encoding/json"
	"testing"

	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/state"
)

func snapWith(name, value string) state.Snapshot {
	return state.Snapshot{
		name: state.Field{Name: name, Value: json.RawMessage(value)},
	}
}

func TestPolicy_ShouldCommit(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		current state.Snapshot
		updates []engine.FieldUpdate
		want    bool
	}{
		{
			name:    "new field always commits",
			policy:  Policy{MinNumericDelta: 100},
			current: state.Snapshot{},
			updates: []engine.FieldUpdate{{Name: "n", Value: json.RawMessage(`1`)}},
			want:    true,
		},
		{
			name:    "nil snapshot counts as new",
			policy:  Policy{},
			current: nil,
			updates: []engine.FieldUpdate{{Name: "n", Value: json.RawMessage(`1`)}},
			want:    true,
		},
		{
			name:    "unchanged value skips",
			policy:  Policy{},
			current: snapWith("n", `5`),
			updates: []engine.FieldUpdate{{Name: "n", Value: json.RawMessage(`5`)}},
			want:    false,
		},
		{
			name:    "any change commits with zero threshold",
			policy:  Policy{},
			current: snapWith("n", `5`),
			updates: []engine.FieldUpdate{{Name: "n", Value: json.RawMessage(`6`)}},
			want:    true,
		},
		{
			name:    "below numeric threshold skips",
			policy:  Policy{MinNumericDelta: 10},
			current: snapWith("followers", `1500`),
			updates: []engine.FieldUpdate{{Name: "followers", Value: json.RawMessage(`1505`)}},
			want:    false,
		},
		{
			name:    "at threshold commits",
			policy:  Policy{MinNumericDelta: 10},
			current: snapWith("followers", `1500`),
			updates: []engine.FieldUpdate{{Name: "followers", Value: json.RawMessage(`1510`)}},
			want:    true,
		},
		{
			name:    "negative delta measured absolutely",
			policy:  Policy{MinNumericDelta: 10},
			current: snapWith("followers", `1500`),
			updates: []engine.FieldUpdate{{Name: "followers", Value: json.RawMessage(`1480`)}},
			want:    true,
		},
		{
			name:    "threshold ignores non-numeric values",
			policy:  Policy{MinNumericDelta: 10},
			current: snapWith("name", `"old"`),
			updates: []engine.FieldUpdate{{Name: "name", Value: json.RawMessage(`"new"`)}},
			want:    true,
		},
		{
			name:    "always-commit field bypasses threshold",
			policy:  Policy{MinNumericDelta: 1000, AlwaysCommitFields: []string{"followers"}},
			current: snapWith("followers", `1500`),
			updates: []engine.FieldUpdate{{Name: "followers", Value: json.RawMessage(`1501`)}},
			want:    true,
		},
		{
			name:    "delete always commits",
			policy:  Policy{MinNumericDelta: 1000},
			current: snapWith("n", `5`),
			updates: []engine.FieldUpdate{{Name: "n", Delete: true}},
			want:    true,
		},
		{
			name:    "one qualifying field among skips is enough",
			policy:  Policy{MinNumericDelta: 10},
			current: snapWith("a", `100`),
			updates: []engine.FieldUpdate{
				{Name: "a", Value: json.RawMessage(`101`)},
				{Name: "b", Value: json.RawMessage(`1`)},
			},
			want: true,
		},
		{
			name:    "no updates",
			policy:  Policy{},
			current: snapWith("a", `1`),
			updates: nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.ShouldCommit(tt.current, tt.updates); got != tt.want {
				t.Errorf("ShouldCommit() = %v, want %v", got, tt.want)
			}
		})
	}
}
