package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"errortracker/internal/config"
	"errortracker/internal/http/handlers"
	appmw "errortracker/internal/http/middleware"
	"errortracker/internal/store"
	ui "errortracker/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open error store: %v", err)
	}

	handlers.InitPrometheusMetrics()

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/", handlers.IndexRedirect())
	r.GET("/error-log", handlers.ErrorLogPage(st))

	r.GET("/api/errors", handlers.ListErrorsAPI(st))
	r.GET("/api/errors/stats", handlers.StatsAPI(st))
	r.POST("/api/errors/clear-resolved", handlers.ClearResolvedAPI(st))
	r.GET("/api/errors/{id}", handlers.ErrorDetailAPI(st))
	r.DELETE("/api/errors/{id}", handlers.DeleteErrorAPI(st))
	r.GET("/api/errors/{id}/debug-report", handlers.DebugReportAPI(st))
	r.POST("/api/errors/{id}/note", handlers.AddNoteAPI(st))
	r.POST("/api/errors/{id}/resolve", handlers.ResolveAPI(st))

	r.POST("/api/log-error", handlers.LogErrorHandler(st))
	r.POST("/api/log-frontend-error", handlers.FrontendErrorsHandler(st))

	r.GET("/metrics", handlers.MetricsHandler())

	// Global middleware chain: request logger, then the panic boundary,
	// then debug-button injection, then the router.
	handler := handlers.RequestLogger(appmw.ErrorBoundary(st)(appmw.DebugButton(cfg)(r.Handler)))

	log.Printf("error tracker listening on %s (db=%s)", cfg.ListenAddr, cfg.DatabasePath)
	log.Printf("dashboard: http://localhost%s/error-log", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
