package adapter

import (
	"encoding/json"

	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/state"
)

// Policy is the caller-side threshold decision for auto-commits: sync sources
// often report unchanged or barely-moved counters, and committing every poll
// would flood the history. The engine itself has no opinion here.
type Policy struct {
	// MinNumericDelta is the smallest absolute change in a numeric field
	// that justifies a commit. Zero commits on any change.
	MinNumericDelta float64

	// AlwaysCommitFields bypass the threshold entirely.
	AlwaysCommitFields []string
}

// ShouldCommit reports whether the updates warrant a commit against the given
// current snapshot (nil when the owner has no versions yet).
func (p Policy) ShouldCommit(current state.Snapshot, updates []engine.FieldUpdate) bool {
	always := make(map[string]bool, len(p.AlwaysCommitFields))
	for _, name := range p.AlwaysCommitFields {
		always[name] = true
	}

	for _, u := range updates {
		if always[u.Name] || u.Delete {
			return true
		}

		prev, ok := current[u.Name]
		if !ok {
			// New field: always worth a commit.
			return true
		}
		if state.ValuesEqual(prev.Value, u.Value) {
			continue
		}

		if p.MinNumericDelta > 0 {
			if oldN, newN, numeric := numericPair(prev.Value, u.Value); numeric {
				delta := newN - oldN
				if delta < 0 {
					delta = -delta
				}
				if delta < p.MinNumericDelta {
					continue
				}
			}
		}
		return true
	}
	return false
}

// numericPair decodes both values as numbers, reporting whether both parsed.
func numericPair(a, b json.RawMessage) (float64, float64, bool) {
	var oldN, newN float64
	if err := json.Unmarshal(a, &oldN); err != nil {
		return 0, 0, false
	}
	if err := json.Unmarshal(b, &newN); err != nil {
		return 0, 0, false
	}
	return oldN, newN, true
}
