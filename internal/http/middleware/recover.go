package middleware

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/valyala/fasthttp"

	"errortracker/internal/store"
)

// ErrorBoundary catches panics at the request boundary, records them in
// the store as server-category errors and answers a generic 500. The
// store call runs behind its own recover: a broken store must never
// mask the original failure.
func ErrorBoundary(st *store.Store) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				stack := string(debug.Stack())
				recordPanic(st, ctx, r, stack)

				ctx.ResetBody()
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetContentType("application/json")
				ctx.SetBodyString(`{"error":"Internal server error"}`)
			}()
			next(ctx)
		}
	}
}

func recordPanic(st *store.Store, ctx *fasthttp.RequestCtx, r any, stack string) {
	defer func() {
		if r2 := recover(); r2 != nil {
			log.Printf("error boundary: store panicked while recording: %v", r2)
		}
	}()

	method := string(ctx.Method())
	path := string(ctx.Path())
	args := map[string]any{}
	ctx.QueryArgs().VisitAll(func(k, v []byte) {
		args[string(k)] = string(v)
	})

	_, err := st.LogError(store.Report{
		Category:     "server",
		ErrorType:    fmt.Sprintf("%T", r),
		ErrorMessage: fmt.Sprint(r),
		Context:      method + " " + path,
		StackTrace:   stack,
		RequestURL:   ctx.URI().String(),
		HTTPStatus:   fasthttp.StatusInternalServerError,
		ExtraData: map[string]any{
			"method":      method,
			"args":        args,
			"remote_addr": ctx.RemoteAddr().String(),
		},
	})
	if err != nil {
		log.Printf("error boundary: failed to record panic: %v", err)
	}
}
