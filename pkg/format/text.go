package format

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Boolean word pairs accepted by FormatBool.
const (
	FormatYesNo            = "yes/no"
	FormatEnabledDisabled  = "enabled/disabled"
	FormatIncludedExcluded = "included/excluded"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders a byte count with binary units up to GB and one decimal
// place: 1536 is "1.5 KB", 1048576 is "1.0 MB".
func FormatSize(bytes int64) string {
	return scaleBytes(float64(bytes))
}

// FormatRate renders a throughput in bytes per second, e.g. "1.5 KB/s".
func FormatRate(bytesPerSecond float64) string {
	return scaleBytes(bytesPerSecond) + "/s"
}

func scaleBytes(size float64) string {
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}

// FormatDuration renders milliseconds with the two largest units starting at
// the largest nonzero one: "2d 3h", "45m 12s", "1m 0s". Under a minute only
// seconds are shown.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatElapsed is FormatDuration for a time.Duration.
func FormatElapsed(d time.Duration) string {
	return FormatDuration(d.Milliseconds())
}

// FormatTimeAgo describes how long before now t happened, using the largest
// whole unit. Anything under a minute, including future times, is "just now".
func FormatTimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < time.Minute {
		return "just now"
	}
	if days := int64(diff / (24 * time.Hour)); days > 0 {
		return plural(days, "day") + " ago"
	}
	if hours := int64(diff / time.Hour); hours > 0 {
		return plural(hours, "hour") + " ago"
	}
	return plural(int64(diff/time.Minute), "minute") + " ago"
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatBool picks the true or false word from a "true/false" pair and
// capitalises it. A format without exactly one separator falls back to
// "True" or "False".
func FormatBool(value bool, format string) string {
	words := strings.Split(format, "/")
	if len(words) != 2 || words[0] == "" || words[1] == "" {
		words = []string{"true", "false"}
	}
	if value {
		return capitalize(words[0])
	}
	return capitalize(words[1])
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// FormatPercentage renders a percentage value (45.5 means 45.5%).
func FormatPercentage(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, value)
}

// FormatNumber groups digits: 1234567 is "1,234,567".
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatDate renders t as "2006-01-02 15:04:05" in its own location. The
// zero time renders as "unknown".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.DateTime)
}
