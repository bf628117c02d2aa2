package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hls-relay-go/internal/config"
	"hls-relay-go/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, relay *RelayHandler, health *HealthHandler, stale *StaleHandler, m *metrics.Metrics, cfg *config.Config) {
	e.GET("/health", health.Health)

	// Root serves the health payload when called bare, and the relay
	// pipeline when a query is present (missing url is then a 400).
	root := func(c echo.Context) error {
		if c.Request().URL.RawQuery == "" {
			return health.Health(c)
		}
		return relay.Fetch(c)
	}
	e.GET("/", root)
	e.HEAD("/", root)

	e.GET("/fetch", relay.Fetch)
	e.HEAD("/fetch", relay.Fetch)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		))
	}

	// Everything else: stale media paths get graceful recovery, the rest a
	// JSON 404.
	e.RouteNotFound("/*", stale.Handle)
}
