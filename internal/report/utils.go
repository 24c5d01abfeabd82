package report

import (
	"fmt"
	"strings"
)

// sanitizeFilename replaces dots and special characters for safe filenames
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		".", "_",
		":", "_",
		"/", "_",
		"\\", "_",
		" ", "_",
	)
	return replacer.Replace(s)
}

// FormatSpeed renders Mbps for humans; below 1 Mbps it switches to Kbps
func FormatSpeed(mbps float64) string {
	if mbps < 1 {
		return fmt.Sprintf("%.0f Kbps", mbps*1000)
	}
	return fmt.Sprintf("%.1f Mbps", mbps)
}

// FormatMilliseconds renders a latency value
func FormatMilliseconds(ms float64) string {
	return fmt.Sprintf("%.1f ms", ms)
}

// Rating classifies a throughput figure
type Rating struct {
	Label       string `json:"rating"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

var ratings = []struct {
	below  float64
	rating Rating
}{
	{1, Rating{"Very Slow", "#ef4444", "Unsuitable for most online activities"}},
	{5, Rating{"Slow", "#f97316", "Basic web browsing only"}},
	{25, Rating{"Moderate", "#eab308", "SD video streaming, online gaming with high latency"}},
	{100, Rating{"Fast", "#22c55e", "HD video streaming, responsive online gaming"}},
}

var topRating = Rating{"Very Fast", "#3b82f6", "4K video streaming, large file downloads, multiple users"}

// Rate returns the rating for a speed in Mbps
func Rate(mbps float64) Rating {
	for _, r := range ratings {
		if mbps < r.below {
			return r.rating
		}
	}
	return topRating
}
