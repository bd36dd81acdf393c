package handlers

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
)

// RequestLogger logs one line per request with status and duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		log.Printf("%s %s -> %d (%s) ip=%s", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start), ctx.RemoteAddr())
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data map[string]any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

// jsonError sends the uniform failure envelope. Internal details never
// reach the caller; msg is a short generic description.
func jsonError(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	jsonResponse(ctx, map[string]any{"success": false, "error": msg})
}

// pathID extracts the {id} route parameter as an int64.
func pathID(ctx *fasthttp.RequestCtx) (int64, bool) {
	v := ctx.UserValue("id")
	if v == nil {
		return 0, false
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(ctx *fasthttp.RequestCtx, key string, def int) int {
	v := ctx.QueryArgs().Peek(key)
	if len(v) == 0 {
		return def
	}
	n, err := strconv.Atoi(string(v))
	if err != nil {
		return def
	}
	return n
}

func queryBool(ctx *fasthttp.RequestCtx, key string) bool {
	b, err := strconv.ParseBool(string(ctx.QueryArgs().Peek(key)))
	return err == nil && b
}
