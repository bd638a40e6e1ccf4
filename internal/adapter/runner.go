package adapter

import (
	"context"
	"fmt"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// Runner fetches from a source, applies the commit policy, and feeds the
// result into the engine. No retries: a failed sync is reported and the next
// scheduled run tries again.
type Runner struct {
	Store  engine.Store
	Cfg    *config.Config
	Policy Policy
}

// SyncOutput contains the result of one sync run.
type SyncOutput struct {
	Source        string         `json:"source"`
	Committed     bool           `json:"committed"`
	FieldsUpdated []string       `json:"fields_updated,omitempty"`
	Version       *state.Version `json:"version,omitempty"`
}

// Sync runs one fetch-decide-commit cycle for the owner against the source.
// A fetch that reports failure, or updates below the policy threshold,
// produce no commit.
func (r *Runner) Sync(ctx context.Context, owner string, source Source) (*SyncOutput, error) {
	result, err := source.Fetch(ctx)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("sync source %q: %w", source.Name(), err))
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "source reported failure"
		}
		return nil, errors.NewInternal(fmt.Errorf("sync source %q: %s", source.Name(), msg))
	}

	out := &SyncOutput{Source: source.Name()}
	if len(result.Updates) == 0 {
		return out, nil
	}

	// Current snapshot for the threshold decision; absent is fine.
	var current state.Snapshot
	if cur, err := engine.Current(ctx, r.Store, owner); err == nil {
		current = cur.Fields
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	if !r.Policy.ShouldCommit(current, result.Updates) {
		return out, nil
	}

	committed, err := engine.Commit(ctx, r.Store, r.Cfg, engine.CommitInput{
		Owner:   owner,
		Message: fmt.Sprintf("Sync from %s", source.Name()),
		Updates: result.Updates,
		Author:  "system",
	})
	if err != nil {
		return nil, err
	}

	out.Committed = true
	out.Version = &committed.Version
	for _, c := range committed.Changes {
		out.FieldsUpdated = append(out.FieldsUpdated, c.FieldName)
	}
	return out, nil
}
