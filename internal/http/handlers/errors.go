package handlers

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"

	"errortracker/internal/store"
)

// ListErrorsAPI serves GET /api/errors: filtered, paginated groups plus
// current stats and the category map, for the dashboard's polling loop.
func ListErrorsAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		categoryKey := string(ctx.QueryArgs().Peek("category"))
		if categoryKey == "all" {
			categoryKey = ""
		}
		includeResolved := queryBool(ctx, "include_resolved")
		limit := queryInt(ctx, "limit", 100)
		offset := queryInt(ctx, "offset", 0)

		groups, err := st.ListErrors(categoryKey, includeResolved, limit, offset)
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to load errors")
			return
		}
		stats, err := st.Stats()
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to load stats")
			return
		}

		jsonResponse(ctx, map[string]any{
			"success":    true,
			"errors":     groups,
			"stats":      stats,
			"categories": st.Categories().Labels(),
		})
	}
}

// ErrorDetailAPI serves GET /api/errors/{id}.
func ErrorDetailAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx)
		if !ok {
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid error id")
			return
		}
		detail, err := st.GetErrorDetail(id)
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to load error")
			return
		}
		if detail == nil {
			jsonError(ctx, fasthttp.StatusNotFound, "Error not found")
			return
		}
		jsonResponse(ctx, map[string]any{"success": true, "error": detail})
	}
}

// DebugReportAPI serves GET /api/errors/{id}/debug-report. The optional
// occurrence_id query parameter selects a specific occurrence.
func DebugReportAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx)
		if !ok {
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid error id")
			return
		}
		occurrenceID := int64(queryInt(ctx, "occurrence_id", 0))

		report, found, err := st.GenerateReport(id, occurrenceID)
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to generate report")
			return
		}
		if !found {
			jsonError(ctx, fasthttp.StatusNotFound, "Error not found")
			return
		}
		jsonResponse(ctx, map[string]any{"success": true, "debug_code": report})
	}
}

// AddNoteAPI serves POST /api/errors/{id}/note with body {"note": "..."}.
func AddNoteAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx)
		if !ok {
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid error id")
			return
		}
		var body struct {
			Note string `json:"note"`
		}
		_ = json.Unmarshal(ctx.PostBody(), &body)
		note := strings.TrimSpace(body.Note)
		if note == "" {
			jsonError(ctx, fasthttp.StatusBadRequest, "Note is required")
			return
		}
		added, err := st.AddNote(id, note)
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to add note")
			return
		}
		jsonResponse(ctx, map[string]any{"success": added})
	}
}

// ResolveAPI serves POST /api/errors/{id}/resolve with body {"notes": "..."}.
func ResolveAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx)
		if !ok {
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid error id")
			return
		}
		var body struct {
			Notes string `json:"notes"`
		}
		_ = json.Unmarshal(ctx.PostBody(), &body)

		resolved, err := st.MarkResolved(id, body.Notes)
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to resolve error")
			return
		}
		jsonResponse(ctx, map[string]any{"success": resolved})
	}
}

// DeleteErrorAPI serves DELETE /api/errors/{id}.
func DeleteErrorAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx)
		if !ok {
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid error id")
			return
		}
		deleted, err := st.DeleteError(id)
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to delete error")
			return
		}
		jsonResponse(ctx, map[string]any{"success": deleted})
	}
}

// ClearResolvedAPI serves POST /api/errors/clear-resolved.
func ClearResolvedAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		cleared, err := st.ClearResolved()
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to clear resolved errors")
			return
		}
		jsonResponse(ctx, map[string]any{"success": true, "cleared": cleared})
	}
}

// StatsAPI serves GET /api/errors/stats, the raw aggregate view used by
// the dashboard's polling loop.
func StatsAPI(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		stats, err := st.Stats()
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to load stats")
			return
		}
		ctx.SetContentType("application/json")
		body, _ := json.Marshal(stats)
		ctx.SetBody(body)
	}
}
