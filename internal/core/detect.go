package core

import (
	"net/url"
	"strings"
)

// DetectKind classifies archived content so magpiectl listings can be
// filtered. Heuristics only; text is the fallback.
func DetectKind(content string) Kind {
	s := strings.TrimSpace(content)
	if s == "" {
		return KindText
	}

	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		return KindURL
	}

	if looksLikeCommand(s) {
		return KindCommand
	}

	if looksLikeCode(s) {
		return KindCode
	}

	return KindText
}

func looksLikeCommand(s string) bool {
	if strings.HasPrefix(s, "$ ") || strings.HasPrefix(s, "sudo ") {
		return true
	}
	if strings.Contains(s, " --") || strings.Contains(s, " | ") || strings.Contains(s, " && ") {
		return true
	}
	return false
}

func looksLikeCode(s string) bool {
	// Pins of code usually arrive inside markdown fences.
	if strings.Contains(s, "```") {
		return true
	}
	if strings.Contains(s, "{") && strings.Contains(s, "}") {
		return true
	}
	if strings.Contains(s, "func ") || strings.Contains(s, "package ") || strings.Contains(s, "import ") {
		return true
	}
	if strings.Contains(s, ";") && strings.Contains(s, "=") {
		return true
	}
	return false
}
