package core

import (
	"regexp"
	"strings"
)

// IgnoreFilter skips messages that should never land in the archive,
// e.g. pins that contain credentials pasted by accident.
type IgnoreFilter struct {
	// If true, patterns are treated as regex. If false, simple substring match.
	UseRegex bool

	// Patterns to ignore (e.g. "token=", "password=", "Authorization: Bearer")
	Patterns []string

	compiled []*regexp.Regexp
}

func NewIgnoreFilter(patterns []string, useRegex bool) (*IgnoreFilter, error) {
	f := &IgnoreFilter{
		UseRegex: useRegex,
		Patterns: patterns,
	}
	if useRegex {
		f.compiled = make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			if strings.TrimSpace(p) == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, err
			}
			f.compiled = append(f.compiled, re)
		}
	}
	return f, nil
}

func (f *IgnoreFilter) ShouldIgnore(content string) bool {
	if f == nil {
		return false
	}
	s := strings.TrimSpace(content)
	if s == "" {
		return false
	}

	if f.UseRegex {
		for _, re := range f.compiled {
			if re.MatchString(s) {
				return true
			}
		}
		return false
	}

	low := strings.ToLower(s)
	for _, p := range f.Patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.Contains(low, p) {
			return true
		}
	}
	return false
}
