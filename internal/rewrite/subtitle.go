package rewrite

import "strings"

// SubtitleMIME is the canonical content type for rewritten subtitles.
const SubtitleMIME = "text/vtt"

// spriteSuffix is the image suffix used by thumbnail-sprite references
// inside WebVTT documents.
const spriteSuffix = ".jpg"

// RewriteSubtitle rewrites thumbnail-sprite image references in a WebVTT
// document into relay callback URLs. Each distinct reference is resolved
// against the target URL's directory and every literal occurrence is
// replaced.
func RewriteSubtitle(body, targetURL, relayBase string) string {
	names := spriteReferences(body)
	for _, name := range names {
		absolute := resolveReference(targetURL, name)
		body = strings.ReplaceAll(body, name, CallbackURL(relayBase, absolute))
	}
	return body
}

// spriteReferences collects the distinct sprite-image tokens in the
// document, in order of first appearance. A token is the run of characters
// on one line from the end of the previous token (or the line start) up to
// and including the sprite suffix.
func spriteReferences(body string) []string {
	var names []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(body, "\n") {
		rest := line
		for {
			idx := strings.Index(rest, spriteSuffix)
			if idx < 0 {
				break
			}
			token := rest[:idx+len(spriteSuffix)]
			if token != spriteSuffix && !seen[token] {
				seen[token] = true
				names = append(names, token)
			}
			rest = rest[idx+len(spriteSuffix):]
		}
	}

	return names
}
