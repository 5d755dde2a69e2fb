package chat

import "strings"

const (
	// MaxContentChars is the maximum message content length, in runes, after sanitization.
	MaxContentChars = 2000

	// FilePlaceholderContent replaces empty content when a file is attached,
	// so every persisted row is non-empty-or-attached.
	FilePlaceholderContent = "Shared a file"
)

// SanitizeContent strips all C0/C1 control characters and angle brackets from
// the content, then trims surrounding whitespace. Angle brackets are removed
// because content is rendered client-side. The function is idempotent.
func SanitizeContent(content string) string {
	stripped := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case r >= 0x80 && r <= 0x9f:
			return -1
		case r == '<', r == '>':
			return -1
		default:
			return r
		}
	}, content)

	return strings.TrimSpace(stripped)
}
