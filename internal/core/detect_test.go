package core

import "testing"

func TestDetectKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"just a message", KindText},
		{"https://example.com/thing", KindURL},
		{"$ ls -la", KindCommand},
		{"git log --oneline | head", KindCommand},
		{"```go\nfunc main() {}\n```", KindCode},
		{"x = 1; y = 2;", KindCode},
		{"", KindText},
	}

	for _, c := range cases {
		if got := DetectKind(c.in); got != c.want {
			t.Errorf("DetectKind(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
