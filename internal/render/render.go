// Package render is the display collaborator: it owns fonts, backgrounds and
// the physical screen, and plays animations of composed messages.
package render

import (
	"io"
)

// Font is a loaded typeface handle.
type Font interface {
	ID() string
}

// Params are animation arguments such as duration (seconds) or count.
type Params map[string]float64

func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Animation classes.
const (
	ClassScroll = "Scroll"
	ClassStatic = "Static"
)

// Display draws messages onto the board.
type Display interface {
	// FindFont returns the named font, or the default font when unknown.
	FindFont(id string) Font
	NewMessage(f Font) Message
	// SetBackground loads the image at path as the backdrop.
	SetBackground(path string) error
	// Animate plays one animation of msg and returns when it is finished.
	Animate(msg Message, class, name string, params Params) error
}

// Message is a composition of text runs and images drawn left to right.
type Message interface {
	AddText(text string, rgb uint32)
	// AddImage reads a BMP image. The reader is not retained.
	AddImage(r io.Reader) error
	Clear()
}
