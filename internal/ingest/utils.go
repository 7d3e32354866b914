package ingest

import (
	"path/filepath"
	"strings"
)

const outputSuffix = ".out.json"

// requestExts are the inbox file extensions treated as transformation requests.
var requestExts = map[string]struct{}{"json": {}}

// IsRequestFile reports whether path looks like an inbox request: a .json file
// that is not one of our own outputs.
func IsRequestFile(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, outputSuffix) {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(lower), ".")
	_, ok := requestExts[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// OutputPath is where the result for an inbox file is written.
func OutputPath(outboxDir, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outboxDir, base+outputSuffix)
}
