// Package client provides the upstream HTTP client that fetches media
// resources from their origin with browser-mimicking headers.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hls-relay-go/internal/config"
	"hls-relay-go/internal/metrics"
	"hls-relay-go/internal/model"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// browserHeaders is the fixed header set sent with every upstream request,
// mimicking a real browser session. Media hosts allow-list on Referer and
// Origin, so these defeat direct-access blocking.
var browserHeaders = map[string]string{
	"Accept":             "*/*",
	"Accept-Language":    "en-US,en;q=0.5",
	"Sec-Ch-Ua":          `"Chromium";v="134", "Not:A-Brand";v="24", "Brave";v="134"`,
	"Sec-Ch-Ua-Mobile":   "?0",
	"Sec-Ch-Ua-Platform": `"Windows"`,
	"Sec-Fetch-Dest":     "empty",
	"Sec-Fetch-Mode":     "cors",
	"Sec-Fetch-Site":     "cross-site",
	"Sec-Gpc":            "1",
	"User-Agent":         userAgent,
}

// OriginClient fetches resources from upstream media origins.
type OriginClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics

	referer string
	origin  string
}

// NewOriginClient creates an OriginClient with connection pooling and the
// configured hard timeout. The metrics parameter is optional; pass nil to
// disable upstream metrics recording.
func NewOriginClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *OriginClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Relay.IdleConnections,
		MaxIdleConnsPerHost: cfg.Relay.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	referer := cfg.Relay.Referer
	origin := originOf(referer)

	return &OriginClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Relay.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "origin_client"),
		metrics: m,
		referer: referer,
		origin:  origin,
	}
}

// Fetch issues exactly one upstream request for the relay request and
// returns the raw upstream response. Redirects are followed automatically.
// The caller is responsible for closing the response body.
func (c *OriginClient) Fetch(rr *model.RelayRequest) (*model.UpstreamResponse, error) {
	method := http.MethodGet
	if rr.Method == http.MethodHead {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(rr.Ctx, method, rr.TargetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = c.buildHeaders(rr)

	c.logger.Debug("upstream request",
		"method", method,
		"url", rr.TargetURL,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via UpstreamResponse
	duration := time.Since(start).Seconds()

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(metrics.NormalizeMethod(method)).Observe(duration)
	}

	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(
			metrics.NormalizeMethod(method),
			strconv.Itoa(resp.StatusCode),
		).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// buildHeaders assembles the spoofed browser header set for one request.
// A referer override replaces both Referer and Origin; a malformed override
// referer is ignored and the defaults kept. The inbound Range header is
// forwarded verbatim to enable seek/partial-content end to end.
func (c *OriginClient) buildHeaders(rr *model.RelayRequest) http.Header {
	h := make(http.Header, len(browserHeaders)+3)
	for key, value := range browserHeaders {
		h.Set(key, value)
	}

	referer, origin := c.referer, c.origin
	if rr.Overrides != nil && rr.Overrides.Referer != "" {
		if o := originOf(rr.Overrides.Referer); o != "" {
			referer = rr.Overrides.Referer
			origin = o
		}
	}
	h.Set("Referer", referer)
	if origin != "" {
		h.Set("Origin", origin)
	}

	if rr.RangeHeader != "" {
		h.Set("Range", rr.RangeHeader)
	}

	return h
}

// originOf returns the scheme+host origin of a URL, or empty string when the
// URL is not absolute http/https.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
