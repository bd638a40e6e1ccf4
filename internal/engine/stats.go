package engine

import (
	"context"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/state"
)

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	Owner      string
	TopN       int // default 5
	WindowDays int // default cfg.StatsWindowDays
}

// StatsOutput is the derived read-only view over an owner's version set and
// change log.
type StatsOutput struct {
	Owner        string                 `json:"owner"`
	VersionCount int                    `json:"version_count"`
	ChangeCount  int                    `json:"change_count"`
	TopFields    []state.FieldFrequency `json:"top_fields"`
	DailyCommits []state.DailyCount     `json:"daily_commits"`
	WindowDays   int                    `json:"window_days"`
}

// Stats aggregates existing data; it holds no invariants of its own and
// writes nothing.
func Stats(ctx context.Context, store Store, cfg *config.Config, input StatsInput) (*StatsOutput, error) {
	ownerNorm, err := normalizeOwner(input.Owner)
	if err != nil {
		return nil, err
	}

	topN := input.TopN
	if topN <= 0 {
		topN = 5
	}
	windowDays := input.WindowDays
	if windowDays <= 0 {
		windowDays = cfg.StatsWindowDays
	}

	versionCount, err := store.VersionCount(ctx, ownerNorm)
	if err != nil {
		return nil, err
	}
	changeCount, err := store.ChangeCount(ctx, ownerNorm)
	if err != nil {
		return nil, err
	}
	topFields, err := store.TopFields(ctx, ownerNorm, topN)
	if err != nil {
		return nil, err
	}

	since := now().AddDate(0, 0, -windowDays).UnixMilli()
	daily, err := store.DailyCommits(ctx, ownerNorm, since)
	if err != nil {
		return nil, err
	}

	return &StatsOutput{
		Owner:        input.Owner,
		VersionCount: versionCount,
		ChangeCount:  changeCount,
		TopFields:    topFields,
		DailyCommits: daily,
		WindowDays:   windowDays,
	}, nil
}
