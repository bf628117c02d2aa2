package rewrite

import (
	"net/url"
	"strings"
)

// CallbackURL builds a relay callback URL that re-enters the relay's /fetch
// entry point carrying the absolute target URL as an encoded parameter.
func CallbackURL(relayBase, absoluteURL string) string {
	return relayBase + "/fetch?url=" + url.QueryEscape(absoluteURL)
}

// isAbsoluteURL reports whether the reference already carries an http or
// https scheme. Anything else (including protocol-relative references) is
// resolved against the target URL's directory, since the relay itself only
// accepts http/https targets.
func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// resolveReference resolves a playlist or subtitle reference against the
// directory of the target URL: everything after the target's last slash is
// replaced by the reference, with a slash prefixed when the reference lacks
// one. This intentionally mirrors the upstream players' expectations rather
// than RFC 3986 resolution: "../" segments are not collapsed and a
// "/"-prefixed reference is anchored at the target's directory, not at the
// host root.
func resolveReference(targetURL, ref string) string {
	if isAbsoluteURL(ref) {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	idx := strings.LastIndexByte(targetURL, '/')
	if idx < 0 {
		return targetURL + ref
	}
	return targetURL[:idx] + ref
}
