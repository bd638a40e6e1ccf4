package web

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/engine"
	"github.com/versokit/verso/internal/errors"
)

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	store    engine.Store
	cfg      *config.Config
	renderer *Renderer
}

// owner resolves the owner query parameter, falling back to the configured default.
func (h *Handlers) owner(r *http.Request) string {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = h.cfg.DefaultOwner
	}
	return owner
}

// HandleLog handles GET /versions — the owner's commit log.
func (h *Handlers) HandleLog(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)

	result, err := engine.History(r.Context(), h.store, h.cfg, engine.HistoryInput{
		Owner:  owner,
		Limit:  parseIntParam(r, "limit", h.cfg.HistoryPageSize),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "log", LogPageData{
		PageData: PageData{
			Title:   "Versions",
			Version: h.renderer.version,
			Nav:     "versions",
			Owner:   owner,
		},
		Versions:   result.Versions,
		Pagination: result.Pagination,
	})
}

// HandleDetail handles GET /versions/{id} — one version's full snapshot.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := engine.State(r.Context(), h.store, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	fields := make([]FieldView, 0, len(result.Fields))
	for _, f := range result.Fields {
		fields = append(fields, fieldView(f))
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   result.Version.ShortHash,
			Version: h.renderer.version,
			Nav:     "versions",
			Owner:   result.Version.OwnerRaw,
		},
		State:       result,
		Fields:      fields,
		MessageHTML: renderMarkdown(result.Version.Message),
	})
}

// HandleDiff handles GET /versions/{id}/diff?to= — compare two versions.
func (h *Handlers) HandleDiff(w http.ResponseWriter, r *http.Request) {
	from := r.PathValue("id")
	to := r.URL.Query().Get("to")
	if to == "" {
		h.renderer.renderError(w, r, errors.NewValidation("query parameter \"to\" is required"))
		return
	}

	result, err := engine.Diff(r.Context(), h.store, engine.DiffInput{
		From:             from,
		To:               to,
		IncludeUnchanged: parseBoolParam(r, "include_unchanged"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "diff", DiffPageData{
		PageData: PageData{
			Title:   "Diff",
			Version: h.renderer.version,
			Nav:     "versions",
			Owner:   result.From.OwnerRaw,
		},
		Diff: result,
	})
}

// HandleFieldHistory handles GET /fields/{name} — one field's transitions.
func (h *Handlers) HandleFieldHistory(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)

	result, err := engine.FieldHistory(r.Context(), h.store, h.cfg, engine.FieldHistoryInput{
		Owner:     owner,
		FieldName: r.PathValue("name"),
		Limit:     parseIntParam(r, "limit", h.cfg.HistoryPageSize),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "fieldhistory", FieldHistoryPageData{
		PageData: PageData{
			Title:   "Field history",
			Version: h.renderer.version,
			Nav:     "versions",
			Owner:   owner,
		},
		History: result,
	})
}

// HandleStats handles GET /stats — aggregate views over the change log.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)

	result, err := engine.Stats(r.Context(), h.store, h.cfg, engine.StatsInput{
		Owner:      owner,
		TopN:       parseIntParam(r, "top_n", 0),
		WindowDays: parseIntParam(r, "window_days", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "stats", StatsPageData{
		PageData: PageData{
			Title:   "Statistics",
			Version: h.renderer.version,
			Nav:     "stats",
			Owner:   owner,
		},
		Stats: result,
	})
}

// parseIntParam parses an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// parseBoolParam parses a boolean query parameter (absent means false).
func parseBoolParam(r *http.Request, name string) bool {
	raw := r.URL.Query().Get(name)
	return raw == "true" || raw == "1"
}
