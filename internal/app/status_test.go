package app

import (
	"strings"
	"testing"
	"time"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{500 * time.Millisecond, "0s"},
		{59 * time.Second, "59s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h, 2m, 3s"},
		{8*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second, "1w, 1d, 3h"},
		{2 * time.Hour, "2h"},
		{24*time.Hour + 5*time.Second, "1d, 5s"},
	}
	for _, tt := range tests {
		if got := FormatUptime(tt.d, 3); got != tt.want {
			t.Errorf("FormatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatusLine(t *testing.T) {
	got := StatusLine(3, 12, 150*1024, 65*time.Second)
	want := "text:003 msg:012 | free  150 KiB | up 1m, 5s"
	if got != want {
		t.Fatalf("StatusLine = %q, want %q", got, want)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name, value, want string
	}{
		{"named command", `{"name":"greeting","elements":[]}`, "greeting"},
		{"unnamed command", `{"elements":[]}`, "Unnamed"},
		{"short text", "Hello", "Hello"},
		{"long text", strings.Repeat("x", 40), strings.Repeat("x", 25)},
		{"json scalar", "12345", "12345"},
		{"multibyte", strings.Repeat("é", 30), strings.Repeat("é", 25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.value); got != tt.want {
				t.Errorf("Preview(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
