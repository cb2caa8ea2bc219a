package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errColorRange = errors.New("color out of range")

// ParseColor reads a 24-bit RGB value. Strings are hex with an optional
// "#" or "0x" prefix; numeric values (from JSON numbers) are decimal.
func ParseColor(value string, numeric bool) (uint32, error) {
	s := strings.TrimSpace(value)
	base := 16
	if numeric {
		base = 10
	} else {
		s = strings.TrimPrefix(s, "#")
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s = s[2:]
		}
	}
	if s == "" {
		return 0, fmt.Errorf("empty color")
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFFFF {
		return 0, errColorRange
	}
	return uint32(v), nil
}
