package handlers

import (
	"bytes"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

// MetricsHandler serves the Prometheus text exposition. An optional
// "prefix" query parameter restricts output to matching metric families
// (e.g. ?prefix=errortracker to drop the Go runtime noise).
func MetricsHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to gather metrics")
			return
		}

		prefix := string(ctx.QueryArgs().Peek("prefix"))
		filtered := metricFamilies
		if prefix != "" {
			filtered = make([]*dto.MetricFamily, 0, len(metricFamilies))
			for _, mf := range metricFamilies {
				if strings.HasPrefix(mf.GetName(), prefix) {
					filtered = append(filtered, mf)
				}
			}
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range filtered {
			if err := encoder.Encode(mf); err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.FmtText))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}
