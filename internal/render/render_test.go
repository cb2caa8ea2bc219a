package render

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"
)

func testPlanner() planner {
	return planner{panel: image.Pt(128, 32), fps: 10, speed: 40}
}

func TestPlanScrollInFromRight(t *testing.T) {
	frames, err := testPlanner().plan(ClassScroll, "in_from_right", nil, image.Pt(60, 32), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 32 {
		t.Fatalf("frames = %d, want 128px at 4px/frame", len(frames))
	}
	if first := frames[0].At; first.X >= 128 || first.X < 120 {
		t.Errorf("first frame at %v, want just inside the right edge", first)
	}
	if last := frames[len(frames)-1].At; last != (image.Point{}) {
		t.Errorf("last frame at %v, want origin", last)
	}
}

func TestPlanScrollOutToLeftStartsFromCurrent(t *testing.T) {
	frames, err := testPlanner().plan(ClassScroll, "out_to_left", nil, image.Pt(60, 32), image.Pt(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if last := frames[len(frames)-1].At; last != image.Pt(-60, 0) {
		t.Fatalf("last frame at %v, want fully off the left edge", last)
	}
}

func TestPlanVerticalUsesDuration(t *testing.T) {
	frames, err := testPlanner().plan(ClassScroll, "in_from_top", Params{"duration": 2}, image.Pt(60, 32), image.Point{})
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 20 {
		t.Fatalf("frames = %d, want 2s at 10fps", len(frames))
	}
	if frames[0].At.Y >= 0 || frames[len(frames)-1].At != (image.Point{}) {
		t.Fatalf("unexpected path %v .. %v", frames[0].At, frames[len(frames)-1].At)
	}
}

func TestPlanStatic(t *testing.T) {
	p := testPlanner()
	show, _ := p.plan(ClassStatic, "show", nil, image.Pt(28, 32), image.Point{})
	if len(show) != 1 || show[0].Alpha != 1 || show[0].At != image.Pt(50, 0) {
		t.Fatalf("show = %+v", show)
	}

	flash, _ := p.plan(ClassStatic, "flash", Params{"count": 3, "duration": 1.5}, image.Pt(28, 32), image.Point{})
	if flash[len(flash)-1].Alpha != 1 {
		t.Error("flash should end visible")
	}
	blink, _ := p.plan(ClassStatic, "blink", Params{"count": 3, "duration": 1.5}, image.Pt(28, 32), image.Point{})
	if blink[len(blink)-1].Alpha != 0 {
		t.Error("blink should end hidden")
	}

	fade, _ := p.plan(ClassStatic, "fade_in_out", Params{"duration": 3}, image.Pt(28, 32), image.Point{})
	if fade[0].Alpha != 0 || fade[len(fade)-1].Alpha != 0 || fade[len(fade)/2].Alpha != 1 {
		t.Errorf("fade alpha %v .. %v .. %v", fade[0].Alpha, fade[len(fade)/2].Alpha, fade[len(fade)-1].Alpha)
	}
}

func TestPlanUnknown(t *testing.T) {
	if _, err := testPlanner().plan(ClassScroll, "sideways", nil, image.Pt(1, 1), image.Point{}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := testPlanner().plan("Spin", "show", nil, image.Pt(1, 1), image.Point{}); err == nil {
		t.Fatal("expected error")
	}
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestMessageMaskAndCompose(t *testing.T) {
	h := NewHeadless(Config{Fonts: map[string]string{}}, nil)
	msg := h.NewMessage(h.FindFont("lemon")).(*message)

	icon := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			icon.Set(x, y, RGB(DefaultMaskColor))
		}
	}
	icon.Set(1, 1, color.RGBA{R: 0xFF, A: 0xFF})
	if err := msg.AddImage(bytes.NewReader(encodeBMP(t, icon))); err != nil {
		t.Fatal(err)
	}
	msg.AddText("Hi", 0x00FF00)

	if msg.Text() != "Hi" || msg.Images() != 1 {
		t.Fatalf("text=%q images=%d", msg.Text(), msg.Images())
	}
	masked := msg.parts[0].img.(*image.NRGBA)
	if masked.NRGBAAt(0, 0).A != 0 {
		t.Error("mask color should be transparent")
	}
	if masked.NRGBAAt(1, 1).A == 0 {
		t.Error("non-mask pixel should stay opaque")
	}

	strip := msg.compose(32)
	if strip.Bounds().Dy() != 32 || strip.Bounds().Dx() <= 4+partGap {
		t.Fatalf("strip bounds %v", strip.Bounds())
	}

	msg.Clear()
	if msg.Text() != "" || msg.Images() != 0 {
		t.Fatal("Clear should drop all parts")
	}
}

func TestAddImageRejectsNonBMP(t *testing.T) {
	h := NewHeadless(Config{Fonts: map[string]string{}}, nil)
	msg := h.NewMessage(h.FindFont(""))
	if err := msg.AddImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFindFontFallsBack(t *testing.T) {
	h := NewHeadless(Config{Fonts: map[string]string{"lemon": "/nonexistent/lemon.ttf"}}, nil)
	if got := h.FindFont("lemon").ID(); got != "goregular" {
		t.Fatalf("font = %s, want fallback", got)
	}
}

func TestQRCodeBMPDecodes(t *testing.T) {
	data, err := QRCodeBMP("http://board.local:8080/api/v1/status", 32)
	if err != nil {
		t.Fatal(err)
	}
	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() == 0 {
		t.Fatal("empty QR image")
	}
	if b, _ := QRCodeBMP("", 32); b != nil {
		t.Fatal("empty payload should produce no image")
	}
}

func TestHeadlessAnimateTracksPosition(t *testing.T) {
	h := NewHeadless(Config{Fonts: map[string]string{}}, nil)
	msg := h.NewMessage(h.FindFont(""))
	msg.AddText("Hello", DefaultColor)

	if err := h.Animate(msg, ClassScroll, "in_from_right", nil); err != nil {
		t.Fatal(err)
	}
	if h.pos != (image.Point{}) {
		t.Fatalf("pos after in_from_right = %v", h.pos)
	}
	if err := h.Animate(msg, ClassScroll, "out_to_top", Params{"duration": 2}); err != nil {
		t.Fatal(err)
	}
	if h.pos.Y != -DefaultHeight {
		t.Fatalf("pos after out_to_top = %v", h.pos)
	}
}
