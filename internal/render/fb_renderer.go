package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"sync"
	"time"

	fb "github.com/gonutz/framebuffer"
	"golang.org/x/image/bmp"

	"github.com/rook-computer/msgboard/internal/logging"
)

// FBRenderer renders to the Linux framebuffer using an offscreen canvas the
// size of the LED panel.
type FBRenderer struct {
	cfg    Config
	Logger logging.Logger

	mu         sync.Mutex
	fbDev      *fb.Device
	canvas     *image.RGBA
	background image.Image
	fonts      *fontSet
	planner    planner
	// pos is where the last shown message strip sits on the panel.
	pos image.Point
}

func NewFBRenderer(cfg Config) *FBRenderer {
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
	if cfg.Fonts == nil {
		cfg.Fonts = def.Fonts
	}
	if cfg.Device == "" {
		cfg.Device = def.Device
	}
	return &FBRenderer{
		cfg:     cfg,
		planner: planner{panel: image.Pt(cfg.Width, cfg.Height), fps: cfg.FrameRate, speed: cfg.ScrollSpeed},
	}
}

func (r *FBRenderer) Start(ctx context.Context) error {
	log := logging.OrNoop(r.Logger)
	dev, err := fb.Open(r.cfg.Device)
	if err != nil {
		return err
	}
	r.fbDev = dev
	bounds := dev.Bounds()
	log.Infof("fb", "framebuffer open, bounds=%dx%d panel=%dx%d", bounds.Dx(), bounds.Dy(), r.cfg.Width, r.cfg.Height)

	r.canvas = image.NewRGBA(image.Rect(0, 0, r.cfg.Width, r.cfg.Height))
	r.fonts = loadFonts(r.cfg, r.Logger)
	r.fillBackground()
	return blitToFB(r.fbDev, r.canvas)
}

func (r *FBRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fbDev != nil {
		r.fbDev.Close()
		r.fbDev = nil
	}
	return nil
}

func (r *FBRenderer) FindFont(id string) Font { return r.fonts.find(id) }

func (r *FBRenderer) NewMessage(f Font) Message {
	return newMessage(f, r.fonts, r.cfg.MaskColor)
}

// SetBackground loads a BMP relative to the asset directory and redraws.
func (r *FBRenderer) SetBackground(path string) error {
	img, err := loadBMP(r.cfg.AssetDir, path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = img
	r.fillBackground()
	return blitToFB(r.fbDev, r.canvas)
}

func loadBMP(root, path string) (image.Image, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Animate plays the animation frame by frame at the configured frame rate.
func (r *FBRenderer) Animate(msg Message, class, name string, params Params) error {
	m, ok := msg.(*message)
	if !ok {
		return fmt.Errorf("animate: foreign message type %T", msg)
	}
	strip := m.compose(r.cfg.Height)
	frames, err := r.planner.plan(class, name, params, strip.Bounds().Size(), r.pos)
	if err != nil {
		return err
	}

	interval := time.Second / time.Duration(r.cfg.FrameRate)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range frames {
		r.fillBackground()
		drawStrip(r.canvas, strip, f)
		if err := blitToFB(r.fbDev, r.canvas); err != nil {
			return err
		}
		time.Sleep(interval)
	}
	if n := len(frames); n > 0 {
		r.pos = frames[n-1].At
	}
	return nil
}

func drawStrip(canvas *image.RGBA, strip *image.RGBA, f frame) {
	if f.Alpha <= 0 {
		return
	}
	dst := strip.Bounds().Add(f.At)
	if f.Alpha >= 1 {
		draw.Draw(canvas, dst, strip, image.Point{}, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(f.Alpha * 0xFF)})
	draw.DrawMask(canvas, dst, strip, image.Point{}, mask, image.Point{}, draw.Over)
}

func (r *FBRenderer) fillBackground() {
	if r.canvas == nil {
		return
	}
	if r.background == nil {
		draw.Draw(r.canvas, r.canvas.Bounds(), image.Black, image.Point{}, draw.Src)
		return
	}
	nnScale(r.canvas, r.canvas.Bounds(), r.background)
}

// Helper: nearest-neighbor scale of src into dst rectangle on canvas.
func nnScale(dst draw.Image, rect image.Rectangle, src image.Image) {
	srcWidth := src.Bounds().Dx()
	srcHeight := src.Bounds().Dy()
	dstWidth := rect.Dx()
	dstHeight := rect.Dy()
	if srcWidth == 0 || srcHeight == 0 {
		return
	}
	for y := 0; y < dstHeight; y++ {
		sy := src.Bounds().Min.Y + (y*srcHeight)/dstHeight
		for x := 0; x < dstWidth; x++ {
			sx := src.Bounds().Min.X + (x*srcWidth)/dstWidth
			dst.Set(rect.Min.X+x, rect.Min.Y+y, src.At(sx, sy))
		}
	}
}

// Helper: blit canvas to framebuffer via nearest-neighbor scaling.
func blitToFB(dev *fb.Device, canvas *image.RGBA) error {
	if dev == nil || canvas == nil {
		return nil
	}
	nnScale(dev, dev.Bounds(), canvas)
	return nil
}
