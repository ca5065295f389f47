package tavern

import "strings"

// isSessionCookie is the heuristic selecting session-identifying cookies out
// of a Set-Cookie header: names containing "session-" (case-insensitive) or
// carrying the ".sig" signature suffix.
func isSessionCookie(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "session-") || strings.HasSuffix(lower, ".sig")
}

// ExtractSessionCredential filters Set-Cookie header values down to the
// session credential: the name=value pairs of session-identifying cookies,
// deduplicated preserving order and joined into a single Cookie header value.
// Returns "" when no session cookie is present.
func ExtractSessionCredential(headerValues []string) string {
	var pairs []string
	seen := make(map[string]bool)

	for _, header := range headerValues {
		pair, _, _ := strings.Cut(header, ";")
		pair = strings.TrimSpace(pair)

		name, _, ok := strings.Cut(pair, "=")
		if !ok || !isSessionCookie(strings.TrimSpace(name)) {
			continue
		}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		pairs = append(pairs, pair)
	}

	return strings.Join(pairs, "; ")
}
