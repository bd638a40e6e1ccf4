package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/errors"
)

// RollbackInput contains parameters for the Rollback operation.
type RollbackInput struct {
	Owner     string
	VersionID string
	Reason    string // defaults to the target's message
}

// Rollback authors a new commit whose content equals the target version's
// snapshot. Every target field goes in as an explicit update, and fields
// present now but absent from the target go in as deletes, so the resulting
// current state is structurally equal to the target's. History stays
// append-only: no version is rewound, mutated, or removed, and the target
// itself stays superseded.
func Rollback(ctx context.Context, store Store, cfg *config.Config, input RollbackInput) (*CommitOutput, error) {
	ownerNorm, err := normalizeOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if input.VersionID == "" {
		return nil, errors.NewValidation("target version id is required")
	}

	target, err := store.Version(ctx, input.VersionID)
	if err != nil {
		return nil, err
	}
	if target.OwnerNorm != ownerNorm {
		return nil, errors.NewValidation(fmt.Sprintf("version %s does not belong to owner %q", input.VersionID, input.Owner))
	}

	targetSnapshot, err := store.Snapshot(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	if len(targetSnapshot) == 0 {
		return nil, errors.NewValidation(fmt.Sprintf("version %s has no fields to roll back to", input.VersionID))
	}

	updates := make([]FieldUpdate, 0, len(targetSnapshot))
	for _, f := range targetSnapshot {
		updates = append(updates, FieldUpdate{
			Name:   f.Name,
			Value:  f.Value,
			Type:   f.Type,
			Source: f.Source,
		})
	}

	// Fields added since the target must be removed to make the new state
	// equal the target's.
	current, err := store.Current(ctx, ownerNorm)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if current != nil {
		currentSnapshot, err := store.Snapshot(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		for name, f := range currentSnapshot {
			if _, ok := targetSnapshot[name]; !ok {
				updates = append(updates, FieldUpdate{
					Name:   name,
					Source: f.Source,
					Delete: true,
				})
			}
		}
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })

	reason := input.Reason
	if reason == "" {
		reason = target.Message
	}

	return Commit(ctx, store, cfg, CommitInput{
		Owner:   input.Owner,
		Message: fmt.Sprintf("Rollback to %s: %s", target.ShortHash, reason),
		Updates: updates,
		Tags:    []string{"rollback"},
		Author:  "system",
	})
}
