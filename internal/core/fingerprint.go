package core

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes normalized content plus attachment URLs into the dedup
// key for a pin. A message with no content and no attachments has no
// fingerprint and is never archived.
func Fingerprint(normalized string, attachments []string) string {
	if normalized == "" && len(attachments) == 0 {
		return ""
	}

	d := xxhash.New()
	_, _ = d.WriteString(normalized)
	for _, a := range attachments {
		_, _ = d.WriteString("\n")
		_, _ = d.WriteString(a)
	}

	var buf [8]byte
	sum := d.Sum(buf[:0])
	return hex.EncodeToString(sum)
}
