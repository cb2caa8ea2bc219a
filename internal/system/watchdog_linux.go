package system

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	watchdogDevice = "/dev/watchdog"
	// Magic close character; the kernel disarms the watchdog when it is
	// written right before close.
	watchdogMagicClose = 'V'
)

// Watchdog feeds the kernel hardware watchdog device.
type Watchdog struct {
	mu sync.Mutex
	fd int
}

// OpenWatchdog arms the hardware watchdog. The board resets if Feed is not
// called within the device timeout.
func OpenWatchdog() (*Watchdog, error) {
	fd, err := unix.Open(watchdogDevice, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", watchdogDevice, err)
	}
	return &Watchdog{fd: fd}, nil
}

func (w *Watchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fd < 0 {
		return
	}
	_, _ = unix.Write(w.fd, []byte{0})
}

// Close disarms and closes the device.
func (w *Watchdog) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fd < 0 {
		return nil
	}
	_, _ = unix.Write(w.fd, []byte{watchdogMagicClose})
	err := unix.Close(w.fd)
	w.fd = -1
	return err
}
