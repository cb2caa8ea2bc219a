package app

import (
	"fmt"
	"strings"
	"time"
)

var uptimeUnits = []struct {
	suffix string
	d      time.Duration
}{
	{"w", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// FormatUptime renders d as at most parts non-zero units, largest first,
// e.g. "1h, 2m, 3s".
func FormatUptime(d time.Duration, parts int) string {
	var out []string
	for _, u := range uptimeUnits {
		if d >= u.d {
			out = append(out, fmt.Sprintf("%d%s", d/u.d, u.suffix))
			d %= u.d
		}
	}
	if len(out) == 0 {
		return "0s"
	}
	if parts > 0 && len(out) > parts {
		out = out[:parts]
	}
	return strings.Join(out, ", ")
}

// StatusLine is the compact line logged every loop iteration.
func StatusLine(textLen, msgLen int, freeBytes uint64, uptime time.Duration) string {
	return fmt.Sprintf("text:%03d msg:%03d | free %4d KiB | up %s",
		textLen, msgLen, freeBytes/1024, FormatUptime(uptime, 3))
}
