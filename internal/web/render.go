package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "versions", "stats"
	Owner   string
}

// LogPageData is the template data for the version log page.
type LogPageData struct {
	PageData
	Versions   []state.Version
	Pagination engine.Pagination
}

// FieldView is one field prepared for display: text values render as
// markdown, everything else as pretty-printed JSON.
type FieldView struct {
	Name      string
	Type      state.FieldType
	Source    state.Source
	UpdatedAt int64
	HTML      template.HTML
	Raw       string
}

// DetailPageData is the template data for the version detail page.
type DetailPageData struct {
	PageData
	State       *engine.StateOutput
	Fields      []FieldView
	MessageHTML template.HTML
}

// DiffPageData is the template data for the diff page.
type DiffPageData struct {
	PageData
	Diff *engine.DiffOutput
}

// FieldHistoryPageData is the template data for the field history page.
type FieldHistoryPageData struct {
	PageData
	History *engine.FieldHistoryOutput
}

// StatsPageData is the template data for the stats page.
type StatsPageData struct {
	PageData
	Stats *engine.StatsOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"formatTime": formatTime,
		"prettyJSON": prettyJSON,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"log":          "log.html",
		"detail":       "detail.html",
		"diff":         "diff.html",
		"fieldhistory": "fieldhistory.html",
		"stats":        "stats.html",
		"error":        "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var vErr *errors.VersoError
	if !stderrors.As(err, &vErr) {
		vErr = errors.NewInternal(err)
	}

	status := vErr.Status
	message := vErr.Message
	// STORE and INTERNAL messages carry driver detail; show the generic form
	switch vErr.Code {
	case errors.ErrStore:
		message = "store failure"
	case errors.ErrInternal:
		message = "internal error"
	}

	// JSON request
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    string(vErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	// Full error page
	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// fieldView prepares a field for display. Text values are rendered as
// markdown; everything else as indented JSON.
func fieldView(f state.Field) FieldView {
	view := FieldView{
		Name:      f.Name,
		Type:      f.Type,
		Source:    f.Source,
		UpdatedAt: f.UpdatedAt,
		Raw:       prettyJSON(f.Value),
	}

	if f.Type == state.TypeText {
		var text string
		if err := json.Unmarshal(f.Value, &text); err == nil {
			view.HTML = renderMarkdown(text)
		}
	}
	return view
}

// prettyJSON indents raw JSON for display, falling back to the raw bytes.
func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// formatTime formats a Unix-millisecond timestamp as "2006-01-02 15:04:05" UTC.
func formatTime(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02 15:04:05")
}
