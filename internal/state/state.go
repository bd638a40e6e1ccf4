package state

import "encoding/json"

// Version represents one immutable snapshot (commit) of an owner's state.
type Version struct {
	// ID is a ULID that uniquely identifies this version
	ID string `json:"id"`

	// OwnerRaw is the original owner string as provided by the caller
	OwnerRaw string `json:"owner"`

	// OwnerNorm is the normalized owner (lowercased, trimmed, collapsed spaces)
	OwnerNorm string `json:"-"`

	// ContentHash is derived from owner, message, and creation time.
	// Collision-tolerant; used for human-friendly display, not integrity.
	ContentHash string `json:"content_hash"`

	// ShortHash is the 8-char display form of ContentHash
	ShortHash string `json:"short_hash"`

	// Message is the commit message
	Message string `json:"message"`

	// Author is who authored the commit ("user" by default, "system" for
	// rollbacks and sync commits)
	Author string `json:"author"`

	// Tags is a replaceable set of labels (stored as JSON in DB)
	Tags []string `json:"tags,omitempty"`

	// ParentID references the version that was current at commit time
	// (nullable; lineage only, never ownership). Under racing commits the
	// parent graph may contain stray branches, so history is defined as
	// "all versions ordered by created_at", not the parent chain.
	ParentID *string `json:"parent_id,omitempty"`

	// IsCurrent marks the single version an owner's reads resolve to
	IsCurrent bool `json:"is_current"`

	// CreatedAt is the Unix-millisecond creation timestamp, non-decreasing
	// per owner
	CreatedAt int64 `json:"created_at"`
}

// Field is a named value within a version.
type Field struct {
	VersionID string `json:"-"`

	Name string `json:"field_name"`

	// Value is the normalized JSON encoding of the field value
	Value json.RawMessage `json:"field_value"`

	// Type tags the value shape so equality and formatting can dispatch
	// without runtime inspection
	Type FieldType `json:"field_type"`

	// Source tags where the value came from
	Source Source `json:"source"`

	// UpdatedAt is when this value was last written. Copy-forward preserves
	// it verbatim; only actual updates re-stamp it.
	UpdatedAt int64 `json:"updated_at"`
}

// ChangeType classifies a field transition in the audit log.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is an immutable audit record of one field's value transition.
// Rows exist only for fields that actually changed relative to the parent;
// copy-forward produces none.
type Change struct {
	ID        int64           `json:"-"`
	VersionID string          `json:"version_id"`
	OwnerNorm string          `json:"-"`
	FieldName string          `json:"field_name"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value,omitempty"`
	Type      ChangeType      `json:"change_type"`
	Source    Source          `json:"source"`
	CreatedAt int64           `json:"created_at"`
}

// Snapshot is a version's complete field set keyed by field name. Every
// version owns a full snapshot and is readable without walking ancestors.
type Snapshot map[string]Field
