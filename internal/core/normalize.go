package core

import (
	"strings"
	"unicode"
)

// Discord caps message content at 4000 characters for nitro users; leave
// headroom for anything weird coming off the wire.
const MaxContentLen = 8_000

// Normalize trims and collapses whitespace runs to single spaces so that
// trivially different copies of the same message fingerprint identically.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}

	out := b.String()
	if len(out) > MaxContentLen {
		out = out[:MaxContentLen]
	}
	return out
}
