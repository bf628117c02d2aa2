// Package service implements the core relay pipeline: fetch the target,
// classify the upstream outcome and content kind, then rewrite text or pass
// the byte stream through.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"hls-relay-go/internal/client"
	"hls-relay-go/internal/metrics"
	"hls-relay-go/internal/model"
	"hls-relay-go/internal/rewrite"
)

// ErrAccessDenied is returned when the upstream origin answers 403. It is
// surfaced distinctly because it usually indicates a Referer/Origin mismatch
// on the media host rather than a generic failure.
var ErrAccessDenied = errors.New("access denied by target server")

// UpstreamStatusError reports a non-success upstream status other than 403.
// Partial content (206) is a success.
type UpstreamStatusError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned %s", e.Status)
}

// segmentMIME is the default content type for binary segments whose origin
// declared something other than a video/transport-stream type.
const segmentMIME = "video/mp2t"

// RelayService runs the relay pipeline for one request at a time; it holds
// no per-request state and is safe for concurrent use.
type RelayService struct {
	client  *client.OriginClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayService creates a RelayService. The metrics parameter is optional;
// pass nil to disable rewrite counters.
func NewRelayService(c *client.OriginClient, logger *slog.Logger, m *metrics.Metrics) *RelayService {
	return &RelayService{
		client:  c,
		logger:  logger.With("component", "relay_service"),
		metrics: m,
	}
}

// Relay fetches the target URL and returns the assembled outbound response.
// relayBase is the scheme+host the client should call back into; it becomes
// the prefix of every rewritten resource reference. The caller is
// responsible for closing the result body.
func (s *RelayService) Relay(rr *model.RelayRequest, relayBase string) (*model.RelayResult, error) {
	upstream, err := s.client.Fetch(rr)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rr.TargetURL, err)
	}

	if err := classifyOutcome(upstream); err != nil {
		_ = upstream.Body.Close()
		return nil, err
	}

	contentType := upstream.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	kind := rewrite.DetectKind(contentType, rr.TargetURL)

	s.logger.Debug("relaying",
		"url", rr.TargetURL,
		"status", upstream.StatusCode,
		"kind", kindName(kind),
	)

	switch kind {
	case rewrite.Playlist:
		return s.relayPlaylist(rr, upstream, relayBase)
	case rewrite.Subtitle:
		return s.relaySubtitle(rr, upstream, relayBase)
	case rewrite.BinarySegment:
		return s.relayStream(upstream, segmentContentType(contentType)), nil
	default:
		return s.relayStream(upstream, contentType), nil
	}
}

// classifyOutcome turns non-success upstream statuses into typed failures.
func classifyOutcome(upstream *model.UpstreamResponse) error {
	if upstream.StatusCode == http.StatusForbidden {
		return ErrAccessDenied
	}
	ok := upstream.StatusCode >= 200 && upstream.StatusCode < 300
	if !ok && upstream.StatusCode != http.StatusPartialContent {
		return &UpstreamStatusError{
			StatusCode: upstream.StatusCode,
			Status:     upstream.Status,
		}
	}
	return nil
}

// relayPlaylist buffers the playlist text and rewrites its references.
// Playlists are always small text documents, so buffering is bounded.
func (s *RelayService) relayPlaylist(rr *model.RelayRequest, upstream *model.UpstreamResponse, relayBase string) (*model.RelayResult, error) {
	body, err := readBody(upstream)
	if err != nil {
		return nil, err
	}

	rewritten := rewrite.RewritePlaylist(body, rr.TargetURL, relayBase)
	if s.metrics != nil && rewritten != body {
		s.metrics.PlaylistsRewritten.Inc()
	}

	return s.relayText(upstream, rewritten, rewrite.PlaylistMIME), nil
}

// relaySubtitle buffers the subtitle text and rewrites its sprite references.
func (s *RelayService) relaySubtitle(rr *model.RelayRequest, upstream *model.UpstreamResponse, relayBase string) (*model.RelayResult, error) {
	body, err := readBody(upstream)
	if err != nil {
		return nil, err
	}

	rewritten := rewrite.RewriteSubtitle(body, rr.TargetURL, relayBase)
	if s.metrics != nil && rewritten != body {
		s.metrics.SubtitlesRewritten.Inc()
	}

	return s.relayText(upstream, rewritten, rewrite.SubtitleMIME), nil
}

// relayText assembles a buffered-text result. The upstream Content-Length is
// not propagated: the rewrite changed the body length and net/http enforces
// whatever value is set.
func (s *RelayService) relayText(upstream *model.UpstreamResponse, body, contentType string) *model.RelayResult {
	header := baseHeader(upstream, contentType)
	header.Del("Content-Length")

	return &model.RelayResult{
		StatusCode: upstream.StatusCode,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// relayStream assembles a streamed result: the upstream body is handed over
// unread, so large segments flow to the client without buffering.
func (s *RelayService) relayStream(upstream *model.UpstreamResponse, contentType string) *model.RelayResult {
	return &model.RelayResult{
		StatusCode: upstream.StatusCode,
		Header:     baseHeader(upstream, contentType),
		Body:       upstream.Body,
	}
}

// baseHeader builds a fresh outbound header set; the upstream header map is
// never mutated or aliased, so upstream-only headers cannot leak through.
func baseHeader(upstream *model.UpstreamResponse, contentType string) http.Header {
	header := make(http.Header, 4)
	header.Set("Content-Type", contentType)

	if v := upstream.Header.Get("Content-Length"); v != "" {
		header.Set("Content-Length", v)
	}
	if v := upstream.Header.Get("Content-Range"); v != "" {
		header.Set("Content-Range", v)
	}
	if v := upstream.Header.Get("Accept-Ranges"); v != "" {
		header.Set("Accept-Ranges", v)
	} else {
		header.Set("Accept-Ranges", "bytes")
	}

	return header
}

// segmentContentType keeps a declared video/transport-stream type and
// defaults everything else to the canonical segment type, since origins
// frequently serve segments as octet-stream.
func segmentContentType(declared string) string {
	lower := strings.ToLower(declared)
	if strings.Contains(lower, "video") || strings.Contains(lower, "audio") || strings.Contains(lower, "mp2t") {
		return declared
	}
	return segmentMIME
}

// readBody drains and closes the upstream body.
func readBody(upstream *model.UpstreamResponse) (string, error) {
	defer func() { _ = upstream.Body.Close() }()

	data, err := io.ReadAll(upstream.Body)
	if err != nil {
		return "", fmt.Errorf("read upstream body: %w", err)
	}
	return string(data), nil
}

// kindName maps a content kind to its log label.
func kindName(k rewrite.Kind) string {
	switch k {
	case rewrite.Playlist:
		return "playlist"
	case rewrite.BinarySegment:
		return "segment"
	case rewrite.Subtitle:
		return "subtitle"
	default:
		return "opaque"
	}
}
