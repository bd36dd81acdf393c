package handlers

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"errortracker/internal/store"
)

var (
	metricsOnce    sync.Once
	reportsTotal   *prometheus.CounterVec
	reportsDropped *prometheus.CounterVec
)

// InitPrometheusMetrics registers the ingest counters. Idempotent so
// tests can call it freely.
func InitPrometheusMetrics() {
	metricsOnce.Do(func() {
		reportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "errortracker",
				Name:      "reports_total",
				Help:      "Total number of stored error reports.",
			},
			[]string{"category", "endpoint"},
		)
		reportsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "errortracker",
				Name:      "reports_dropped_total",
				Help:      "Error reports dropped because their category is disabled.",
			},
			[]string{"category"},
		)
		prometheus.MustRegister(reportsTotal, reportsDropped)
	})
}

func countReport(category, endpoint string, id int64) {
	if reportsTotal == nil {
		return
	}
	if id == store.DisabledID {
		reportsDropped.WithLabelValues(category).Inc()
		return
	}
	reportsTotal.WithLabelValues(category, endpoint).Inc()
}

// errorReport is the ingest contract shared by the backend and
// frontend endpoints. Only category/error_type/error_message matter
// for dedup; everything else is optional occurrence context.
type errorReport struct {
	Category     string `json:"category"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`

	Source     string `json:"source"`
	Context    string `json:"context"`
	StackTrace string `json:"stack_trace"`

	PageURL        string                  `json:"page_url"`
	ScreenshotPath string                  `json:"screenshot_path"`
	ConsoleLogs    []store.ConsoleLogEntry `json:"console_logs"`
	NetworkErrors  []map[string]any        `json:"network_errors"`

	RequestURL    string         `json:"request_url"`
	RequestParams map[string]any `json:"request_params"`
	HTTPStatus    int            `json:"http_status"`
	ResponseBody  string         `json:"response_body"`

	Domain string `json:"domain"`
	JobID  int64  `json:"job_id"`

	RunID    string `json:"run_id"`
	Suite    string `json:"suite"`
	TestID   string `json:"test_id"`
	TestName string `json:"test_name"`

	ExtraData map[string]any `json:"extra_data"`

	// Sent by the browser collector, folded into extra_data.
	UserAgent string `json:"user_agent"`
	Viewport  any    `json:"viewport"`
}

func (r *errorReport) toReport() store.Report {
	return store.Report{
		Category:       r.Category,
		ErrorType:      r.ErrorType,
		ErrorMessage:   r.ErrorMessage,
		Source:         r.Source,
		Context:        r.Context,
		StackTrace:     r.StackTrace,
		PageURL:        r.PageURL,
		ScreenshotPath: r.ScreenshotPath,
		ConsoleLogs:    r.ConsoleLogs,
		NetworkErrors:  r.NetworkErrors,
		RequestURL:     r.RequestURL,
		RequestParams:  r.RequestParams,
		HTTPStatus:     r.HTTPStatus,
		ResponseBody:   r.ResponseBody,
		Domain:         r.Domain,
		JobID:          r.JobID,
		RunID:          r.RunID,
		Suite:          r.Suite,
		TestID:         r.TestID,
		TestName:       r.TestName,
		ExtraData:      r.ExtraData,
	}
}

// LogErrorHandler serves POST /api/log-error: one backend error report.
// Missing required fields fall back to generic server-error values, so
// a top-level exception handler can always hand its failure off here.
func LogErrorHandler(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload errorReport
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.Category == "" {
			payload.Category = "server"
		}
		if payload.ErrorType == "" {
			payload.ErrorType = "Error"
		}
		if payload.ErrorMessage == "" {
			payload.ErrorMessage = "Unknown error"
		}

		rep := payload.toReport()
		// Convenience for callers that only fill extra_data.
		if rep.RequestURL == "" {
			if url, ok := payload.ExtraData["url"].(string); ok {
				rep.RequestURL = url
			}
		}
		if rep.HTTPStatus == 0 {
			if status, ok := payload.ExtraData["status"].(float64); ok {
				rep.HTTPStatus = int(status)
			}
		}

		id, err := st.LogError(rep)
		if err != nil {
			jsonError(ctx, fasthttp.StatusInternalServerError, "failed to store error")
			return
		}
		countReport(rep.Category, "backend", id)
		jsonResponse(ctx, map[string]any{"success": true, "error_id": id})
	}
}

// FrontendErrorsHandler serves POST /api/log-frontend-error: a batch of
// browser-collected errors. Individual failures are skipped so one bad
// entry cannot sink the batch.
func FrontendErrorsHandler(st *store.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload struct {
			Errors []errorReport `json:"errors"`
		}
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			jsonError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		logged := 0
		for _, fe := range payload.Errors {
			rep := fe.toReport()
			rep.Category = "frontend"
			if rep.ErrorType == "" {
				rep.ErrorType = "FrontendError"
			}
			if rep.ErrorMessage == "" {
				rep.ErrorMessage = "Unknown error"
			}

			extra := map[string]any{}
			if fe.UserAgent != "" {
				extra["user_agent"] = fe.UserAgent
			}
			if fe.Viewport != nil {
				extra["viewport"] = fe.Viewport
			}
			if stack, ok := fe.ExtraData["stack"]; ok {
				extra["stack"] = stack
			}
			if len(extra) > 0 {
				rep.ExtraData = extra
			}

			id, err := st.LogError(rep)
			if err != nil {
				continue
			}
			countReport(rep.Category, "frontend", id)
			if id != store.DisabledID {
				logged++
			}
		}
		jsonResponse(ctx, map[string]any{"success": true, "logged": logged})
	}
}
