package render

import (
	"fmt"
	"image"

	"github.com/rook-computer/msgboard/internal/logging"
)

// Headless is a Display without a screen. It composes messages and plans
// frames like the framebuffer renderer but only logs what would be shown.
type Headless struct {
	Logger logging.Logger

	cfg     Config
	fonts   *fontSet
	planner planner
	pos     image.Point
}

func NewHeadless(cfg Config, log logging.Logger) *Headless {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.ScrollSpeed <= 0 {
		cfg.ScrollSpeed = def.ScrollSpeed
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = def.FontSize
	}
	return &Headless{
		Logger:  log,
		cfg:     cfg,
		fonts:   loadFonts(cfg, log),
		planner: planner{panel: image.Pt(cfg.Width, cfg.Height), fps: cfg.FrameRate, speed: cfg.ScrollSpeed},
	}
}

func (h *Headless) FindFont(id string) Font { return h.fonts.find(id) }

func (h *Headless) NewMessage(f Font) Message {
	return newMessage(f, h.fonts, h.cfg.MaskColor)
}

func (h *Headless) SetBackground(path string) error {
	logging.OrNoop(h.Logger).Debugf("display", "background %s", path)
	return nil
}

func (h *Headless) Animate(msg Message, class, name string, params Params) error {
	m, ok := msg.(*message)
	if !ok {
		return fmt.Errorf("animate: foreign message type %T", msg)
	}
	strip := m.compose(h.cfg.Height)
	frames, err := h.planner.plan(class, name, params, strip.Bounds().Size(), h.pos)
	if err != nil {
		return err
	}
	if n := len(frames); n > 0 {
		h.pos = frames[n-1].At
	}
	logging.OrNoop(h.Logger).Infof("display", "%s.%s font=%s images=%d frames=%d %q",
		class, name, m.font.ID(), m.Images(), len(frames), m.Text())
	return nil
}
