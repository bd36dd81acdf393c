package handlers

import (
	"bytes"

	"github.com/valyala/fasthttp"

	"errortracker/internal/store"
	ui "errortracker/web"
)

// PageData feeds the error_log.html template.
type PageData struct {
	Title  string
	Stats  *store.Stats
	Errors []store.ErrorGroup
}

// ErrorLogPage renders the dashboard: headline stats plus the first
// hundred unresolved groups. Live updates go through /api/errors.
func ErrorLogPage(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		stats, err := st.Stats()
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to load stats")
			return
		}
		categoryKey := string(ctx.QueryArgs().Peek("category"))
		if categoryKey == "all" {
			categoryKey = ""
		}
		groups, err := st.ListErrors(categoryKey, queryBool(ctx, "include_resolved"), 100, 0)
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to load errors")
			return
		}

		data := PageData{Title: "Error Log", Stats: stats, Errors: groups}
		var buf bytes.Buffer
		if err := ui.Templates().ExecuteTemplate(&buf, "error_log.html", data); err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("render error")
			return
		}
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBody(buf.Bytes())
	}
}

// IndexRedirect sends / to the dashboard.
func IndexRedirect() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Redirect("/error-log", fasthttp.StatusSeeOther)
	}
}
