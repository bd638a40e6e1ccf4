package state

import (
	"encoding/json"
	"sort"
)

// DiffType classifies one field's difference between two snapshots.
type DiffType string

const (
	DiffAdded     DiffType = "added"
	DiffRemoved   DiffType = "removed"
	DiffModified  DiffType = "modified"
	DiffUnchanged DiffType = "unchanged"
)

// DiffEntry is one field's comparison result between two snapshots.
type DiffEntry struct {
	FieldName string          `json:"field_name"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value,omitempty"`
	Type      DiffType        `json:"change_type"`
}

// Diff computes the full outer join of two snapshots keyed by field name,
// using deep structural equality on values. Entries come back sorted by
// field name for deterministic output. Unchanged entries are included;
// callers filter them when they only care about differences.
func Diff(from, to Snapshot) []DiffEntry {
	names := make(map[string]bool, len(from)+len(to))
	for name := range from {
		names[name] = true
	}
	for name := range to {
		names[name] = true
	}

	entries := make([]DiffEntry, 0, len(names))
	for name := range names {
		oldField, inFrom := from[name]
		newField, inTo := to[name]

		switch {
		case !inFrom:
			entries = append(entries, DiffEntry{
				FieldName: name,
				NewValue:  newField.Value,
				Type:      DiffAdded,
			})
		case !inTo:
			entries = append(entries, DiffEntry{
				FieldName: name,
				OldValue:  oldField.Value,
				Type:      DiffRemoved,
			})
		case !ValuesEqual(oldField.Value, newField.Value):
			entries = append(entries, DiffEntry{
				FieldName: name,
				OldValue:  oldField.Value,
				NewValue:  newField.Value,
				Type:      DiffModified,
			})
		default:
			entries = append(entries, DiffEntry{
				FieldName: name,
				OldValue:  oldField.Value,
				NewValue:  newField.Value,
				Type:      DiffUnchanged,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FieldName < entries[j].FieldName
	})
	return entries
}
