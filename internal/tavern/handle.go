package tavern

import "strings"

// maxHandleLength caps handles at the remote service's identifier limit.
const maxHandleLength = 64

// NormalizeHandle converts user input into the remote service's accepted
// identifier format: lowercase, runs of non-alphanumerics collapsed to a
// single "-", trimmed of leading and trailing separators, length-capped.
// Returns "" for input with no usable characters.
func NormalizeHandle(handle string) string {
	var b strings.Builder
	pendingSep := false

	for _, r := range strings.ToLower(handle) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	normalized := b.String()
	if len(normalized) > maxHandleLength {
		normalized = strings.TrimRight(normalized[:maxHandleLength], "-")
	}
	return normalized
}
