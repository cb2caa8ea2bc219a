package render

import "image/color"

const (
	DefaultWidth     = 128
	DefaultHeight    = 32
	DefaultFont      = "lemon"
	DefaultColor     = 0xFFFFFF
	DefaultMaskColor = 0xE127F9
)

// DefaultFonts maps font ids to files under FontDir.
var DefaultFonts = map[string]string{
	"bmilk":    "bmilk.ttf",
	"comic8":   "comic8.ttf",
	"coolv":    "coolv.ttf",
	"handv":    "handv.ttf",
	"lemon":    "lemon.ttf",
	"showcard": "showcard.ttf",
}

// Config describes the panel and where its assets live.
type Config struct {
	Device string
	// Width and Height are the logical panel size; frames are scaled to the
	// framebuffer.
	Width  int
	Height int
	// AssetDir is the root that image paths are resolved against.
	AssetDir string
	FontDir  string
	Fonts    map[string]string
	FontSize float64
	// FrameRate is frames per second for animations.
	FrameRate int
	// ScrollSpeed is in logical pixels per second.
	ScrollSpeed int
	// MaskColor pixels in images are drawn transparent.
	MaskColor uint32
}

func DefaultConfig() Config {
	return Config{
		Device:      "/dev/fb0",
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		AssetDir:    ".",
		FontDir:     "fonts",
		Fonts:       DefaultFonts,
		FontSize:    12,
		FrameRate:   30,
		ScrollSpeed: 48,
		MaskColor:   DefaultMaskColor,
	}
}

// RGB converts a 24-bit 0xRRGGBB value.
func RGB(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}
