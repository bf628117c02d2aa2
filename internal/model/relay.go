// Package model defines shared types for the relay.
package model

import (
	"context"
	"io"
	"net/http"
)

// HeaderOverrides carries the optional per-request header overrides
// supplied by the player via the "headers" query parameter.
type HeaderOverrides struct {
	Referer string `json:"referer"`
}

// RelayRequest represents one validated client request to be relayed upstream.
type RelayRequest struct {
	Ctx         context.Context
	Method      string // GET or HEAD
	TargetURL   string // absolute http/https URL
	RangeHeader string // inbound Range header, forwarded verbatim when set
	Overrides   *HeaderOverrides
}

// UpstreamResponse is the raw upstream response. Its body is consumed exactly
// once: either buffered for rewriting or streamed through to the client.
type UpstreamResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}

// RelayResult is the assembled outbound response. Header is built fresh per
// request and never aliases the upstream header map.
type RelayResult struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
