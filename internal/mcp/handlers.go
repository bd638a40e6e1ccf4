package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/errors"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store engine.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store engine.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: store, cfg: cfg}
}

// owner applies the configured default when a request omits the owner.
func (h *Handlers) owner(requested string) string {
	if requested != "" {
		return requested
	}
	return h.cfg.DefaultOwner
}

// Request types for each tool

// CommitRequest represents the arguments for state_commit.
type CommitRequest struct {
	Owner   string               `json:"owner,omitempty"`
	Message string               `json:"message"`
	Updates []engine.FieldUpdate `json:"updates"`
	Tags    []string             `json:"tags,omitempty"`
	Author  string               `json:"author,omitempty"`
}

// CurrentRequest represents the arguments for state_current.
type CurrentRequest struct {
	Owner string `json:"owner,omitempty"`
}

// AtRequest represents the arguments for state_at.
type AtRequest struct {
	Owner     string `json:"owner,omitempty"`
	Timestamp string `json:"timestamp"`
}

// LogRequest represents the arguments for state_log.
type LogRequest struct {
	Owner  string `json:"owner,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// DiffRequest represents the arguments for state_diff.
type DiffRequest struct {
	From             string `json:"from"`
	To               string `json:"to"`
	IncludeUnchanged bool   `json:"include_unchanged,omitempty"`
}

// RollbackRequest represents the arguments for state_rollback.
type RollbackRequest struct {
	Owner     string `json:"owner,omitempty"`
	VersionID string `json:"version_id"`
	Reason    string `json:"reason,omitempty"`
}

// FieldHistoryRequest represents the arguments for state_field_history.
type FieldHistoryRequest struct {
	Owner     string `json:"owner,omitempty"`
	FieldName string `json:"field_name"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// TagRequest represents the arguments for state_tag.
type TagRequest struct {
	VersionID string   `json:"version_id"`
	Tags      []string `json:"tags"`
}

// StatsRequest represents the arguments for state_stats.
type StatsRequest struct {
	Owner      string `json:"owner,omitempty"`
	TopN       int    `json:"top_n,omitempty"`
	WindowDays int    `json:"window_days,omitempty"`
}

// Handler implementations

// HandleCommit handles the state_commit tool call.
func (h *Handlers) HandleCommit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CommitRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := engine.Commit(ctx, h.store, h.cfg, engine.CommitInput{
		Owner:   h.owner(input.Owner),
		Message: input.Message,
		Updates: input.Updates,
		Tags:    input.Tags,
		Author:  input.Author,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCurrent handles the state_current tool call.
func (h *Handlers) HandleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CurrentRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := engine.Current(ctx, h.store, h.owner(input.Owner))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleAt handles the state_at tool call.
func (h *Handlers) HandleAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AtRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	ts, err := engine.ParseTimestamp(input.Timestamp)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := engine.StateAt(ctx, h.store, h.owner(input.Owner), ts)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLog handles the state_log tool call.
func (h *Handlers) HandleLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LogRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := engine.History(ctx, h.store, h.cfg, engine.HistoryInput{
		Owner:  h.owner(input.Owner),
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDiff handles the state_diff tool call.
func (h *Handlers) HandleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiffRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := engine.Diff(ctx, h.store, engine.DiffInput{
		From:             input.From,
		To:               input.To,
		IncludeUnchanged: input.IncludeUnchanged,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRollback handles the state_rollback tool call.
func (h *Handlers) HandleRollback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RollbackRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := engine.Rollback(ctx, h.store, h.cfg, engine.RollbackInput{
		Owner:     h.owner(input.Owner),
		VersionID: input.VersionID,
		Reason:    input.Reason,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFieldHistory handles the state_field_history tool call.
func (h *Handlers) HandleFieldHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FieldHistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	var from, to int64
	if input.From != "" {
		if from, err = engine.ParseTimestamp(input.From); err != nil {
			return errorResult(err), nil
		}
	}
	if input.To != "" {
		if to, err = engine.ParseTimestamp(input.To); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := engine.FieldHistory(ctx, h.store, h.cfg, engine.FieldHistoryInput{
		Owner:     h.owner(input.Owner),
		FieldName: input.FieldName,
		From:      from,
		To:        to,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTag handles the state_tag tool call.
func (h *Handlers) HandleTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TagRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := engine.Tag(ctx, h.store, engine.TagInput{
		VersionID: input.VersionID,
		Tags:      input.Tags,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the state_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatsRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := engine.Stats(ctx, h.store, h.cfg, engine.StatsInput{
		Owner:      h.owner(input.Owner),
		TopN:       input.TopN,
		WindowDays: input.WindowDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vErr, ok := err.(*errors.VersoError); ok {
		// STORE and INTERNAL messages carry driver detail (SQL text, file
		// paths); clients get the generic form
		message := vErr.Message
		switch vErr.Code {
		case errors.ErrStore:
			message = "store failure"
		case errors.ErrInternal:
			message = "internal error"
		}
		errorObj := map[string]any{
			"code":    vErr.Code,
			"message": message,
			"status":  vErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if vErr.Code != errors.ErrInternal && vErr.Code != errors.ErrStore && vErr.Details != nil {
			errorObj["details"] = vErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
