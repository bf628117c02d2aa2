// Package rewrite classifies upstream content and rewrites resource
// references in HLS playlists and WebVTT subtitles so that every nested
// resource is re-requested through the relay.
package rewrite

import "strings"

// Kind is the content classification driving the response strategy.
type Kind int

const (
	// Opaque content is streamed through with its declared content type.
	Opaque Kind = iota
	// Playlist content is buffered and its resource references rewritten.
	Playlist
	// BinarySegment content is streamed through without buffering.
	BinarySegment
	// Subtitle content is buffered and its sprite references rewritten.
	Subtitle
)

// playlistMIMEs are the content-type fragments identifying the M3U8 family.
var playlistMIMEs = []string{
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"audio/mpegurl",
	"audio/x-mpegurl",
}

// binaryMIMEs are the content-type fragments identifying streamable media.
var binaryMIMEs = []string{
	"video/",
	"audio/",
	"application/octet-stream",
	"video/mp2t",
}

// DetectKind classifies an upstream response from its declared content type
// and the target URL. A URL-based segment match takes precedence over
// everything, and a URL-based playlist match overrides a binary content
// type, because origins sometimes mislabel playlist responses as video.
func DetectKind(contentType, rawURL string) Kind {
	lowerURL := strings.ToLower(rawURL)
	lowerType := strings.ToLower(contentType)

	// Transport-stream segments are never playlists, whatever the origin claims.
	if hasSuffixMarker(lowerURL, ".ts") {
		return BinarySegment
	}

	for _, mime := range playlistMIMEs {
		if strings.Contains(lowerType, mime) {
			return Playlist
		}
	}
	if hasSuffixMarker(lowerURL, ".m3u8") {
		return Playlist
	}

	for _, mime := range binaryMIMEs {
		if strings.Contains(lowerType, mime) {
			return BinarySegment
		}
	}

	if strings.Contains(lowerType, "text/vtt") {
		return Subtitle
	}

	return Opaque
}

// hasSuffixMarker reports whether the URL ends with the suffix or carries it
// immediately before a query string.
func hasSuffixMarker(lowerURL, suffix string) bool {
	return strings.HasSuffix(lowerURL, suffix) || strings.Contains(lowerURL, suffix+"?")
}
