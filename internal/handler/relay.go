// Package handler wires the HTTP surface: the relay entry point, health
// probes and stale-resource recovery.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"hls-relay-go/internal/config"
	"hls-relay-go/internal/model"
	"hls-relay-go/internal/service"
)

const usageHint = "/fetch?url=<encoded-url>"

// RelayHandler serves the /fetch entry point.
type RelayHandler struct {
	service *service.RelayService
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(svc *service.RelayService, cfg *config.Config, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		service: svc,
		cfg:     cfg,
		logger:  logger.With("component", "relay_handler"),
	}
}

// Fetch validates the target URL, runs the relay pipeline and writes the
// assembled response. Only the url parameter is hard-validated; malformed
// optional inputs degrade to defaults.
func (h *RelayHandler) Fetch(c echo.Context) error {
	req := c.Request()

	target := c.QueryParam("url")
	if target == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "No URL provided",
			"usage":   usageHint,
			"example": "/fetch?url=" + url.QueryEscape("https://example.com/video.m3u8"),
		})
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":    "Invalid target URL",
			"provided": target,
		})
	}

	rr := &model.RelayRequest{
		Ctx:         req.Context(),
		Method:      req.Method,
		TargetURL:   target,
		RangeHeader: req.Header.Get("Range"),
		Overrides:   parseOverrides(c.QueryParam("headers")),
	}

	result, err := h.service.Relay(rr, relayBase(h.cfg, c))
	if err != nil {
		return h.mapError(c, err, target)
	}
	defer func() { _ = result.Body.Close() }()

	header := c.Response().Header()
	for key, vals := range result.Header {
		for _, v := range vals {
			header.Add(key, v)
		}
	}

	c.Response().WriteHeader(result.StatusCode)

	// Stream the body directly to the client. If io.Copy fails mid-stream
	// (e.g. client disconnect, network error), the status code has already
	// been sent, so the client receives a truncated response with the
	// original status. This is an inherent trade-off of streaming relays —
	// we log the error for observability.
	if _, err := io.Copy(c.Response(), result.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"url", target,
		)
	}

	return nil
}

// parseOverrides decodes the optional headers query parameter. Malformed
// JSON is silently ignored and defaults are kept.
func parseOverrides(raw string) *model.HeaderOverrides {
	if raw == "" {
		return nil
	}
	var ov model.HeaderOverrides
	if err := json.Unmarshal([]byte(raw), &ov); err != nil {
		return nil
	}
	return &ov
}

// relayBase returns the base URL clients should call back into: the
// configured public URL when set, otherwise the scheme and host of the
// inbound request.
func relayBase(cfg *config.Config, c echo.Context) string {
	if cfg.Relay.PublicURL != "" {
		return strings.TrimRight(cfg.Relay.PublicURL, "/")
	}
	return c.Scheme() + "://" + c.Request().Host
}

// mapError converts pipeline failures into JSON responses. Nothing
// propagates as an unstructured fault: every failure kind maps to a status
// code and a short {message, error, url} body.
func (h *RelayHandler) mapError(c echo.Context, err error, target string) error {
	h.logger.Error("relay error",
		"err", err,
		"url", target,
	)

	if errors.Is(err, service.ErrAccessDenied) {
		return c.JSON(http.StatusForbidden, map[string]string{
			"message": "Access denied by target server",
			"error":   "The streaming server returned a 403 Forbidden error",
			"url":     target,
		})
	}

	var statusErr *service.UpstreamStatusError
	if errors.As(err, &statusErr) {
		return c.JSON(statusErr.StatusCode, map[string]any{
			"message":    "Upstream request failed",
			"status":     statusErr.StatusCode,
			"statusText": statusErr.Status,
			"url":        target,
		})
	}

	if isTimeout(err) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"message": "Request failed",
			"error":   "Request timed out",
			"url":     target,
		})
	}

	var dnsErr *net.DNSError
	var urlErr *url.Error
	if errors.As(err, &dnsErr) || errors.As(err, &urlErr) || errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"message": "Request failed",
			"error":   "Network error when trying to fetch resource",
			"url":     target,
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"message": "Request failed",
		"error":   "Unknown error",
		"url":     target,
	})
}

// isTimeout reports whether the failure was the upstream timeout budget
// expiring, as opposed to a lower-level network failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
