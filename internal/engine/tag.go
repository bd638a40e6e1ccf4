package engine

import (
	"context"
	"strings"

	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// TagInput contains parameters for the Tag operation.
type TagInput struct {
	VersionID string
	Tags      []string
}

// TagOutput contains the result of the Tag operation.
type TagOutput struct {
	Version state.Version `json:"version"`
}

// Tag replaces a version's tag set. Tags are metadata, not content: no
// change rows are written and the version's hash is untouched. An empty
// list clears the tags.
func Tag(ctx context.Context, store Store, input TagInput) (*TagOutput, error) {
	if input.VersionID == "" {
		return nil, errors.NewValidation("version id is required")
	}

	tags := make([]string, 0, len(input.Tags))
	seen := make(map[string]bool, len(input.Tags))
	for _, t := range input.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}

	if err := store.UpdateTags(ctx, input.VersionID, tags); err != nil {
		return nil, err
	}

	version, err := store.Version(ctx, input.VersionID)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Version: *version}, nil
}
