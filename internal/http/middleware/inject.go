package middleware

import (
	"bytes"

	"github.com/valyala/fasthttp"

	"errortracker/internal/config"
)

var closeBody = []byte("</body>")

// DebugButton injects the browser error collector and the floating
// debug button into successful HTML responses, right before the closing
// body tag. The inline config controls whether the button is always
// visible or only appears once the collector sees a JS error. Disabled
// mode returns the chain unchanged.
func DebugButton(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if cfg.DebugButton == config.DebugButtonOff {
		return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
			return next
		}
	}

	alwaysVisible := "false"
	if cfg.DebugButton == config.DebugButtonAlways {
		alwaysVisible = "true"
	}
	snippet := []byte("\n<script>window.DEBUG_BUTTON_CONFIG={alwaysVisible:" + alwaysVisible + `,errorLogUrl:"/error-log"};</script>` +
		"\n<script src=\"/static/error-collector.js\"></script>" +
		"\n<script src=\"/static/debug-button.js\"></script>\n")

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			next(ctx)

			if ctx.Response.StatusCode() >= 400 {
				return
			}
			if !bytes.Contains(ctx.Response.Header.ContentType(), []byte("text/html")) {
				return
			}
			body := ctx.Response.Body()
			idx := bytes.Index(body, closeBody)
			if idx < 0 {
				return
			}

			out := make([]byte, 0, len(body)+len(snippet))
			out = append(out, body[:idx]...)
			out = append(out, snippet...)
			out = append(out, body[idx:]...)
			ctx.Response.SetBody(out)
		}
	}
}
