package display

import (
	"github.com/rook-computer/msgboard/internal/render"
)

// Primitive is one animation call on the display.
type Primitive struct {
	Class  string
	Name   string
	Params render.Params
}

// Step is a primitive reference followed by a pause in seconds.
type Step struct {
	Primitive string
	Delay     float64
}

// EffectTable maps effect ids to step sequences and primitive ids to
// animation calls. It is built once and never modified.
type EffectTable struct {
	sequences  map[string][]Step
	primitives map[string]Primitive
}

const DefaultEffect = "left-to-right"

// DefaultEffects is the board's built-in effect table.
var DefaultEffects = newDefaultEffects()

func newDefaultEffects() *EffectTable {
	scroll := func(name string, params render.Params) Primitive {
		return Primitive{Class: render.ClassScroll, Name: name, Params: params}
	}
	static := func(name string, params render.Params) Primitive {
		return Primitive{Class: render.ClassStatic, Name: name, Params: params}
	}
	vertical := render.Params{"duration": 2}

	primitives := map[string]Primitive{
		"in_from_right":  scroll("in_from_right", nil),
		"in_from_left":   scroll("in_from_left", nil),
		"out_to_right":   scroll("out_to_right", nil),
		"out_to_left":    scroll("out_to_left", nil),
		"in_from_top":    scroll("in_from_top", vertical),
		"in_from_bottom": scroll("in_from_bottom", vertical),
		"out_to_top":     scroll("out_to_top", vertical),
		"out_to_bottom":  scroll("out_to_bottom", vertical),
		"flash":          static("flash", render.Params{"count": 3, "duration": 1.5}),
		"blink":          static("blink", render.Params{"count": 3, "duration": 1.5}),
		"fade":           static("fade_in_out", render.Params{"duration": 3}),
	}

	through := func(in string, hold float64, out string) []Step {
		return []Step{{Primitive: in, Delay: hold}, {Primitive: out}}
	}
	sequences := map[string][]Step{
		"none":             through("in_from_right", 0, "out_to_left"),
		"left-to-right":    through("in_from_right", 0, "out_to_left"),
		"right-to-left":    through("in_from_right", 0, "out_to_left"),
		"left-to-left":     through("in_from_left", 0, "out_to_left"),
		"right-to-right":   through("in_from_right", 0, "out_to_right"),
		"top-to-top":       through("in_from_top", 2, "out_to_top"),
		"bottom-to-bottom": through("in_from_bottom", 2, "out_to_bottom"),
		"top-to-bottom":    through("in_from_top", 2, "out_to_bottom"),
		"bottom-to-top":    through("in_from_bottom", 2, "out_to_top"),
	}
	// Older dashboards send the compact spellings.
	for _, alias := range [][2]string{
		{"left2right", "left-to-right"},
		{"right2left", "right-to-left"},
		{"left2left", "left-to-left"},
		{"right2right", "right-to-right"},
		{"top2top", "top-to-top"},
		{"bottom2bottom", "bottom-to-bottom"},
		{"top2bottom", "top-to-bottom"},
		{"bottom2top", "bottom-to-top"},
	} {
		sequences[alias[0]] = sequences[alias[1]]
	}

	return &EffectTable{sequences: sequences, primitives: primitives}
}

// Steps resolves an effect id. Unknown ids are a single step naming the id
// itself with no delay.
func (t *EffectTable) Steps(effect string) []Step {
	if steps, ok := t.sequences[effect]; ok {
		out := make([]Step, len(steps))
		copy(out, steps)
		return out
	}
	return []Step{{Primitive: effect}}
}

// Primitive looks up an animation call by id.
func (t *EffectTable) Primitive(id string) (Primitive, bool) {
	p, ok := t.primitives[id]
	return p, ok
}
