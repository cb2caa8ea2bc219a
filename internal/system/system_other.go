//go:build !linux

package system

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("not supported on this platform")

type Watchdog struct{}

func OpenWatchdog() (*Watchdog, error) { return nil, errUnsupported }

func (*Watchdog) Feed()        {}
func (*Watchdog) Close() error { return nil }

// FreeMemory reports memory the Go runtime has obtained but not in use.
func FreeMemory() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapIdle - m.HeapReleased
}

func SetGraphicsMode() error { return errUnsupported }

func RestoreTextMode() error { return errUnsupported }

func HideCursor() error { return errUnsupported }

func ShowCursor() error { return errUnsupported }
