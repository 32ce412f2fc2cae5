package formatter

import (
	"path/filepath"
	"strings"
)

// OutputPath resolves the file a formatter writes to. An empty directory
// part means ".", an empty file part means defaultName, and ext is
// appended unless the name already ends with it (ignoring case).
func OutputPath(configured, defaultName, ext string) string {
	dir, file := filepath.Split(configured)
	if dir == "" {
		dir = "."
	}
	if file == "" {
		file = defaultName
	}
	if ext != "" && !strings.HasSuffix(strings.ToLower(file), strings.ToLower(ext)) {
		file += ext
	}
	return filepath.Join(dir, file)
}
