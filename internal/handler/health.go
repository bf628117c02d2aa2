package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// serviceName identifies the relay in health payloads.
const serviceName = "hls-relay"

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(v Version) *HealthHandler {
	return &HealthHandler{version: v}
}

// Health returns the static status payload, served on /health and on the
// bare root path.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   serviceName,
		"version":   string(h.version),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
