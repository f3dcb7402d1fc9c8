package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CacheDir is where downloaded audio lives
const CacheDir = "cache"

// AudioFilePath returns the cache path for a track identifier
func AudioFilePath(trackID string) string {
	return filepath.Join(CacheDir, fmt.Sprintf("%s.opus", trackID))
}

// AudioFileID recovers the track identifier from a cache path
func AudioFileID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".opus")
}
