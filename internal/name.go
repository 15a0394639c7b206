package internal

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ContainerName derives a globally unique Docker container name from a
// bot's display name. The name is generated once at bot creation time and
// stored; it is never regenerated, even if the display name changes.
func ContainerName(displayName string) string {
	return fmt.Sprintf("botdock-%s-%s", Slugify(displayName), uuid.NewString()[:8])
}

// Slugify lowercases the name and collapses every run of characters outside
// [a-z0-9] into a single hyphen, producing a string safe for use in a
// container name.
func Slugify(name string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "bot"
	}
	return slug
}
