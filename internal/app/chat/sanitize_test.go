package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"c0 controls stripped", "he\x00llo\x1f wor\x07ld", "hello world"},
		{"delete char stripped", "he\x7fllo", "hello"},
		{"c1 controls stripped", "he\u0085llo\u009f", "hello"},
		{"angle brackets stripped", "<script>alert(1)</script>", "scriptalert(1)/script"},
		{"surrounding whitespace trimmed", "  hi there  ", "hi there"},
		{"newlines and tabs removed", "a\nb\tc", "abc"},
		{"only controls becomes empty", "\x00\x01\n\t", ""},
		{"unicode preserved", "héllo wörld ☺", "héllo wörld ☺"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeContent(tt.in))
		})
	}
}

func TestSanitizeContentIdempotent(t *testing.T) {
	inputs := []string{
		"hello world",
		"  <b>bold</b>\x00  ",
		"\x1b[31mred\x1b[0m",
		"a < b > c",
		"",
	}

	for _, in := range inputs {
		once := SanitizeContent(in)
		assert.Equal(t, once, SanitizeContent(once), "sanitize must be a no-op on sanitized input %q", in)
	}
}
