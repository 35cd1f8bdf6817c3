package upload

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeBase strips every character outside [a-zA-Z0-9.-] from name.
func SanitizeBase(name string) string {
	return unsafeChars.ReplaceAllString(name, "")
}

// GenerateFilename builds {prefix}-{unix ms}-{suffix}-{sanitized base}{ext}.
// The extension keeps its case; only separators and other unsafe
// characters are removed from it.
func GenerateFilename(prefix, original string, now time.Time, suffix int64) string {
	// clients on Windows send backslash paths
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%d-%d-%s%s", prefix, now.UnixMilli(), suffix, SanitizeBase(name), SanitizeBase(ext))
}

// NewFilename is GenerateFilename with the current time and a random
// suffix below 1e9.
func NewFilename(prefix, original string) string {
	return GenerateFilename(prefix, original, time.Now(), rand.Int63n(1e9))
}
