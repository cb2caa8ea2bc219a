package payload

// IconSource says how icon data should be loaded.
type IconSource int

const (
	// IconFile means the data names an image file.
	IconFile IconSource = iota
	// IconInline means the data is an encoded image blob.
	IconInline
)

func (s IconSource) String() string {
	if s == IconInline {
		return "inline"
	}
	return "file"
}

const (
	inlineMinLength = 100
	base64Alphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
)

// ClassifyIcon guesses whether data is an inline base64 blob or a file
// reference. This is a heuristic, not a format check: data is inline when it
// has at least 100 characters and at least 80% of them are in the base64
// alphabet.
func ClassifyIcon(data string) IconSource {
	var total, matching int
	for _, r := range data {
		total++
		if r < 128 && isBase64Byte(byte(r)) {
			matching++
		}
	}
	if total < inlineMinLength {
		return IconFile
	}
	if matching*5 >= total*4 {
		return IconInline
	}
	return IconFile
}

func isBase64Byte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+', c == '/', c == '=':
		return true
	}
	return false
}
