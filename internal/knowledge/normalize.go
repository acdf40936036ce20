package knowledge

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ")

// Normalize maps a breed or life-stage name onto the shared lookup key space:
// NFKC folded, lowercased, underscores and hyphens turned into spaces, trimmed.
// Classifier labels, user text and reference-data keys all pass through here.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	key := strings.ToLower(norm.NFKC.String(name))
	key = separatorReplacer.Replace(key)
	return strings.TrimSpace(key)
}
