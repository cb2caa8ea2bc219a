package render

import (
	"fmt"
	"image"
	"math"

	"github.com/rook-computer/msgboard/internal/render/layout"
)

// frame is one step of an animation: where the message strip sits on the
// panel and how opaque it is.
type frame struct {
	At    image.Point
	Alpha float64
}

// planner turns an animation request into frames. It is pure so both
// renderers share it and tests can inspect it.
type planner struct {
	panel image.Point
	fps   int
	speed int
}

func (p planner) step() int {
	s := p.speed / p.fps
	if s < 1 {
		s = 1
	}
	return s
}

func (p planner) frameCount(seconds float64) int {
	n := int(math.Round(seconds * float64(p.fps)))
	if n < 1 {
		n = 1
	}
	return n
}

// plan returns the frames for class/name given the strip size and the
// strip's current position.
func (p planner) plan(class, name string, params Params, strip, from image.Point) ([]frame, error) {
	w, h := p.panel.X, p.panel.Y
	switch class {
	case ClassScroll:
		dur := params.Get("duration", 1)
		switch name {
		case "in_from_right":
			return p.slide(image.Pt(w, 0), image.Pt(0, 0)), nil
		case "in_from_left":
			return p.slide(image.Pt(-strip.X, 0), image.Pt(0, 0)), nil
		case "out_to_left":
			return p.slide(from, image.Pt(-strip.X, from.Y)), nil
		case "out_to_right":
			return p.slide(from, image.Pt(w, from.Y)), nil
		case "in_from_top":
			return p.timed(image.Pt(0, -h), image.Pt(0, 0), dur), nil
		case "in_from_bottom":
			return p.timed(image.Pt(0, h), image.Pt(0, 0), dur), nil
		case "out_to_top":
			return p.timed(from, image.Pt(from.X, -h), dur), nil
		case "out_to_bottom":
			return p.timed(from, image.Pt(from.X, h), dur), nil
		}
	case ClassStatic:
		at := layout.Center(image.Rect(0, 0, w, h), strip.X, strip.Y).Min
		switch name {
		case "show":
			return []frame{{At: at, Alpha: 1}}, nil
		case "hide":
			return []frame{{At: at, Alpha: 0}}, nil
		case "flash":
			return p.toggle(at, params, true), nil
		case "blink":
			return p.toggle(at, params, false), nil
		case "fade_in_out":
			return p.fade(at, params.Get("duration", 1)), nil
		}
	}
	return nil, fmt.Errorf("unknown animation %s.%s", class, name)
}

// slide moves at scroll speed from a to b, inclusive of b.
func (p planner) slide(a, b image.Point) []frame {
	dist := b.Sub(a)
	steps := int(math.Ceil(math.Max(math.Abs(float64(dist.X)), math.Abs(float64(dist.Y))) / float64(p.step())))
	if steps < 1 {
		return []frame{{At: b, Alpha: 1}}
	}
	return p.lerp(a, b, steps)
}

// timed moves from a to b over seconds.
func (p planner) timed(a, b image.Point, seconds float64) []frame {
	return p.lerp(a, b, p.frameCount(seconds))
}

func (p planner) lerp(a, b image.Point, steps int) []frame {
	frames := make([]frame, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		frames = append(frames, frame{
			At:    image.Pt(a.X+int(math.Round(float64(b.X-a.X)*t)), a.Y+int(math.Round(float64(b.Y-a.Y)*t))),
			Alpha: 1,
		})
	}
	return frames
}

// toggle alternates visibility count times over duration. Flash ends
// visible, blink ends hidden.
func (p planner) toggle(at image.Point, params Params, endVisible bool) []frame {
	count := int(params.Get("count", 3))
	if count < 1 {
		count = 1
	}
	half := p.frameCount(params.Get("duration", 1) / float64(count) / 2)
	first, second := 0.0, 1.0
	if !endVisible {
		first, second = 1, 0
	}
	frames := make([]frame, 0, count*half*2)
	for c := 0; c < count; c++ {
		for i := 0; i < half; i++ {
			frames = append(frames, frame{At: at, Alpha: first})
		}
		for i := 0; i < half; i++ {
			frames = append(frames, frame{At: at, Alpha: second})
		}
	}
	return frames
}

func (p planner) fade(at image.Point, seconds float64) []frame {
	n := p.frameCount(seconds)
	frames := make([]frame, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		alpha := 1 - math.Abs(2*t-1)
		frames = append(frames, frame{At: at, Alpha: alpha})
	}
	return frames
}
