package rewrite

import "strings"

// playlistHeader is the required first bytes of a valid M3U8 document.
const playlistHeader = "#EXTM3U"

// PlaylistMIME is the canonical content type for rewritten playlists.
const PlaylistMIME = "application/vnd.apple.mpegurl"

// uriAttr marks a quoted URI attribute inside a tag line, as used by
// EXT-X-KEY, EXT-X-MAP and EXT-X-MEDIA.
const uriAttr = `URI="`

// RewritePlaylist rewrites every resource reference in an M3U8 document into
// a relay callback URL, so that sub-playlists, segments and encryption keys
// are all re-requested through the relay. Master and media playlists are
// handled identically; the relay is transparent at every nesting level.
//
// A body that does not start with the #EXTM3U header is returned unmodified:
// it is not a valid playlist, and rewriting would corrupt it.
func RewritePlaylist(body, targetURL, relayBase string) string {
	if !strings.HasPrefix(body, playlistHeader) {
		return body
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(line, "#") {
			if strings.Contains(line, uriAttr) {
				lines[i] = rewriteTagURIs(line, targetURL, relayBase)
			}
			continue
		}

		lines[i] = rewriteReference(trimmed, targetURL, relayBase)
	}

	return strings.Join(lines, "\n")
}

// rewriteReference turns one media reference into a relay callback URL,
// resolving it against the target URL's directory first when relative.
func rewriteReference(ref, targetURL, relayBase string) string {
	return CallbackURL(relayBase, resolveReference(targetURL, ref))
}

// rewriteTagURIs rewrites every quoted URI="..." attribute on a tag line.
// The quoted values are located by scanning, not pattern matching, so that
// malformed input is handled explicitly: an unterminated quote leaves the
// remainder of the line untouched.
func rewriteTagURIs(line, targetURL, relayBase string) string {
	var b strings.Builder
	rest := line

	for {
		start := strings.Index(rest, uriAttr)
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}

		valueStart := start + len(uriAttr)
		end := strings.IndexByte(rest[valueStart:], '"')
		if end < 0 {
			// Unterminated quote: keep the tail as-is.
			b.WriteString(rest)
			return b.String()
		}

		value := rest[valueStart : valueStart+end]
		b.WriteString(rest[:start])
		b.WriteString(uriAttr)
		b.WriteString(rewriteReference(value, targetURL, relayBase))
		b.WriteByte('"')

		rest = rest[valueStart+end+1:]
	}
}
