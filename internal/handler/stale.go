package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"hls-relay-go/internal/config"
	"hls-relay-go/internal/metrics"
	"hls-relay-go/internal/rewrite"
)

// mediaSuffixes are the path endings recognized as bare stale media
// references.
var mediaSuffixes = []string{".ts", ".m3u8", ".vtt", ".key", ".mp4"}

// mediaMarkers are segment/index naming fragments recognized anywhere in a
// bare path.
var mediaMarkers = []string{"seg-", "index-"}

// emptyPlaylist is a minimal valid playlist signalling end of stream.
const emptyPlaylist = "#EXTM3U\n#EXT-X-ENDLIST\n"

// emptySubtitle is a minimal valid WebVTT document.
const emptySubtitle = "WEBVTT\n\n"

// StaleHandler recovers bare media-path requests issued by players holding
// stale references after a source switch, and serves the JSON 404 for
// everything else.
type StaleHandler struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStaleHandler creates a StaleHandler. The metrics parameter is optional;
// pass nil to disable recovery counters.
func NewStaleHandler(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *StaleHandler {
	return &StaleHandler{
		cfg:     cfg,
		logger:  logger.With("component", "stale_handler"),
		metrics: m,
	}
}

// Handle is the catch-all for unmatched paths. A bare media path without a
// url parameter gets stale-resource recovery; anything else gets the JSON
// 404 with usage hint.
func (h *StaleHandler) Handle(c echo.Context) error {
	req := c.Request()
	path := req.URL.Path

	if (req.Method == http.MethodGet || req.Method == http.MethodHead) &&
		isStaleMediaPath(path) && c.QueryParam("url") == "" {
		return h.recover(c, path)
	}

	return c.JSON(http.StatusNotFound, map[string]string{
		"error": "Not found",
		"usage": usageHint,
	})
}

// recover reconstructs the full resource URL from the Referer's own url
// parameter when possible and redirects through the relay entry point.
// Without a usable referer it serves an empty-but-valid placeholder: a hard
// error here breaks player state machines mid-switch, while an empty
// resource lets the player treat the stream as finished and move on.
func (h *StaleHandler) recover(c echo.Context, path string) error {
	if full, ok := reconstructFromReferer(c.Request().Header.Get("Referer"), path); ok {
		h.logger.Debug("stale resource redirect",
			"path", path,
			"reconstructed", full,
		)
		if h.metrics != nil {
			h.metrics.StaleRecoveries.WithLabelValues("redirect").Inc()
		}
		location := relayBase(h.cfg, c) + "/fetch?url=" + url.QueryEscape(full)
		return c.Redirect(http.StatusFound, location)
	}

	if h.metrics != nil {
		h.metrics.StaleRecoveries.WithLabelValues("placeholder").Inc()
	}

	switch {
	case strings.HasSuffix(path, ".m3u8"):
		return c.Blob(http.StatusOK, rewrite.PlaylistMIME, []byte(emptyPlaylist))
	case strings.HasSuffix(path, ".ts"):
		return c.NoContent(http.StatusNoContent)
	case strings.HasSuffix(path, ".vtt"):
		return c.Blob(http.StatusOK, rewrite.SubtitleMIME, []byte(emptySubtitle))
	default:
		return c.NoContent(http.StatusNoContent)
	}
}

// reconstructFromReferer derives the resource's true URL: the referer is
// expected to be a relay callback URL whose url parameter points at the
// previously played resource; its directory plus the bare path is the
// stale resource's origin location.
func reconstructFromReferer(referer, barePath string) (string, bool) {
	if referer == "" {
		return "", false
	}
	refererURL, err := url.Parse(referer)
	if err != nil {
		return "", false
	}
	target := refererURL.Query().Get("url")
	if target == "" {
		return "", false
	}
	targetURL, err := url.Parse(target)
	if err != nil || targetURL.Host == "" || (targetURL.Scheme != "http" && targetURL.Scheme != "https") {
		return "", false
	}

	href := targetURL.String()
	idx := strings.LastIndexByte(href, '/')
	if idx < 0 {
		return "", false
	}
	return href[:idx] + barePath, true
}

// isStaleMediaPath reports whether a bare path looks like a streaming
// resource reference.
func isStaleMediaPath(path string) bool {
	for _, suffix := range mediaSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	for _, marker := range mediaMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}
