package utils

import (
	"fmt"
	"strings"
)

// FormatSongDuration renders whole seconds as MM:SS, or HH:MM:SS past an hour
func FormatSongDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// ProgressBar renders elapsed/total as a fixed-width text bar with a cursor
func ProgressBar(elapsed, total, width int) string {
	if width <= 0 {
		width = 20
	}
	if total <= 0 {
		return strings.Repeat("▬", width)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}

	cursor := elapsed * (width - 1) / total
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == cursor {
			b.WriteString("🔘")
			continue
		}
		b.WriteString("▬")
	}
	return b.String()
}
