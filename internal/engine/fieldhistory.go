package engine

import (
	"context"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// FieldHistoryInput contains parameters for the FieldHistory operation.
// From and To bound created_at in Unix milliseconds; zero means unbounded.
type FieldHistoryInput struct {
	Owner     string
	FieldName string
	From      int64
	To        int64
	Limit     int
}

// FieldHistoryOutput contains the result of the FieldHistory operation.
type FieldHistoryOutput struct {
	FieldName string         `json:"field_name"`
	Changes   []state.Change `json:"changes"`
}

// FieldHistory lists one field's value transitions, newest first. Because
// copy-forward writes no change rows, the list reflects actual transitions
// only, not every version that happened to carry the field.
func FieldHistory(ctx context.Context, store Store, cfg *config.Config, input FieldHistoryInput) (*FieldHistoryOutput, error) {
	ownerNorm, err := normalizeOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if input.FieldName == "" {
		return nil, errors.NewValidation("field_name is required")
	}
	if input.From > 0 && input.To > 0 && input.From > input.To {
		return nil, errors.NewValidation("time range is inverted")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = cfg.HistoryPageSize
	}

	changes, err := store.FieldChanges(ctx, ownerNorm, input.FieldName, input.From, input.To, limit)
	if err != nil {
		return nil, err
	}

	return &FieldHistoryOutput{
		FieldName: input.FieldName,
		Changes:   changes,
	}, nil
}
