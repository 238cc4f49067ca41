package core

import "testing"

func TestIgnoreFilter_Substring(t *testing.T) {
	f, err := NewIgnoreFilter([]string{"token=", "password="}, false)
	if err != nil {
		t.Fatal(err)
	}

	if !f.ShouldIgnore("here is my TOKEN=abc123") {
		t.Fatalf("expected substring match (case-insensitive)")
	}
	if f.ShouldIgnore("a perfectly fine pin") {
		t.Fatalf("expected no match")
	}
}

func TestIgnoreFilter_Regex(t *testing.T) {
	f, err := NewIgnoreFilter([]string{`(?i)bearer\s+[a-z0-9._-]+`}, true)
	if err != nil {
		t.Fatal(err)
	}

	if !f.ShouldIgnore("Authorization: Bearer abc.def") {
		t.Fatalf("expected regex match")
	}
}

func TestIgnoreFilter_BadRegex(t *testing.T) {
	if _, err := NewIgnoreFilter([]string{"("}, true); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestIgnoreFilter_Nil(t *testing.T) {
	var f *IgnoreFilter
	if f.ShouldIgnore("anything") {
		t.Fatalf("nil filter ignores nothing")
	}
}
