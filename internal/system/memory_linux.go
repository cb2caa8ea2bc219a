package system

import "golang.org/x/sys/unix"

// FreeMemory returns free system memory in bytes.
func FreeMemory() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Freeram) * uint64(info.Unit)
}
