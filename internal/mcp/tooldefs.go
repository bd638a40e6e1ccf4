package mcp

import "github.com/mark3labs/mcp-go/mcp"

// updateItemSchema describes one field update in a commit.
var updateItemSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"field_name":  map[string]any{"type": "string", "description": "Field name, unique within one commit"},
		"field_value": map[string]any{"description": "JSON value; omit when delete is true"},
		"field_type":  map[string]any{"type": "string", "enum": []string{"text", "number", "json", "array", "boolean", "date"}},
		"source":      map[string]any{"type": "string", "enum": []string{"manual", "api_twitter", "api_crm", "api_webhook", "chat"}},
		"delete":      map[string]any{"type": "boolean", "description": "Remove the field from the new snapshot"},
	},
	"required": []string{"field_name"},
}

var commitToolDef = mcp.NewTool("state_commit",
	mcp.WithDescription("Commit a set of field updates as a new immutable version of the owner's state. Untouched fields carry forward unchanged."),
	mcp.WithString("owner", mcp.Description("Owner identifier (defaults to configured owner)")),
	mcp.WithString("message", mcp.Required(), mcp.Description("Commit message")),
	mcp.WithArray("updates", mcp.Required(), mcp.Description("Field updates to apply"), mcp.Items(updateItemSchema)),
	mcp.WithArray("tags", mcp.Description("Tags for the new version"), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithString("author", mcp.Description("Commit author (default: user)")),
)

var currentToolDef = mcp.NewTool("state_current",
	mcp.WithDescription("Get the owner's current version and its complete field set."),
	mcp.WithString("owner", mcp.Description("Owner identifier")),
)

var atToolDef = mcp.NewTool("state_at",
	mcp.WithDescription("Reconstruct the owner's state as it existed at a point in time."),
	mcp.WithString("owner", mcp.Description("Owner identifier")),
	mcp.WithString("timestamp", mcp.Required(), mcp.Description("RFC 3339 or Unix milliseconds")),
)

var logToolDef = mcp.NewTool("state_log",
	mcp.WithDescription("List the owner's versions, newest first."),
	mcp.WithString("owner", mcp.Description("Owner identifier")),
	mcp.WithNumber("limit", mcp.Description("Page size")),
	mcp.WithNumber("offset", mcp.Description("Page offset")),
)

var diffToolDef = mcp.NewTool("state_diff",
	mcp.WithDescription("Compare two versions' field sets: added, removed, and modified fields."),
	mcp.WithString("from", mcp.Required(), mcp.Description("Older version id")),
	mcp.WithString("to", mcp.Required(), mcp.Description("Newer version id")),
	mcp.WithBoolean("include_unchanged", mcp.Description("Also report fields equal on both sides")),
)

var rollbackToolDef = mcp.NewTool("state_rollback",
	mcp.WithDescription("Author a new commit whose content equals a past version's snapshot. History stays append-only."),
	mcp.WithString("owner", mcp.Description("Owner identifier")),
	mcp.WithString("version_id", mcp.Required(), mcp.Description("Target version id")),
	mcp.WithString("reason", mcp.Description("Why the rollback happened")),
)

var fieldHistoryToolDef = mcp.NewTool("state_field_history",
	mcp.WithDescription("List one field's value transitions, newest first."),
	mcp.WithString("owner", mcp.Description("Owner identifier")),
	mcp.WithString("field_name", mcp.Required(), mcp.Description("Field to trace")),
	mcp.WithString("from", mcp.Description("Range start (RFC 3339 or Unix milliseconds)")),
	mcp.WithString("to", mcp.Description("Range end (RFC 3339 or Unix milliseconds)")),
	mcp.WithNumber("limit", mcp.Description("Maximum entries")),
)

var tagToolDef = mcp.NewTool("state_tag",
	mcp.WithDescription("Replace a version's tag set."),
	mcp.WithString("version_id", mcp.Required(), mcp.Description("Version to tag")),
	mcp.WithArray("tags", mcp.Required(), mcp.Description("New tag set (empty clears)"), mcp.Items(map[string]any{"type": "string"})),
)

var statsToolDef = mcp.NewTool("state_stats",
	mcp.WithDescription("Aggregate statistics: version and change counts, most-changed fields, daily commit counts."),
	mcp.WithString("owner", mcp.Description("Owner identifier")),
	mcp.WithNumber("top_n", mcp.Description("How many top fields to report (default 5)")),
	mcp.WithNumber("window_days", mcp.Description("Trailing window for daily counts (default 30)")),
)
