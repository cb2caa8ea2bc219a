// Package display turns text items, structured commands and remote settings
// into calls on the render collaborator, keeping the board's persistent
// render state between them.
package display

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rook-computer/msgboard/internal/icon"
	"github.com/rook-computer/msgboard/internal/logging"
	"github.com/rook-computer/msgboard/internal/payload"
	"github.com/rook-computer/msgboard/internal/render"
	"github.com/rook-computer/msgboard/internal/system"
)

// State is the persistent render state. It only changes through commands
// and settings; nothing resets it.
type State struct {
	Font              string
	Color             uint32
	Background        string
	Wallpaper         string
	Effect            string
	BackgroundEnabled bool
}

// Interpreter owns State and drives a render.Display. Not safe for
// concurrent use.
type Interpreter struct {
	Effects  *EffectTable
	Images   fs.FS
	Lifeline system.Lifeline
	Logger   logging.Logger
	// Group is the settings key prefix stripped by ApplyGroupSettings.
	Group string
	// Sleep pauses between effect steps. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration)

	display render.Display
	icons   *icon.Cache
	width   int
	state   State
	splash  render.Message
}

// New returns an interpreter in the power-on state: default font and
// color, the screen-off image as background and wallpaper.
func New(d render.Display, icons *icon.Cache, width int) *Interpreter {
	if width <= 0 {
		width = render.DefaultWidth
	}
	in := &Interpreter{
		Effects: DefaultEffects,
		Group:   "scroller",
		display: d,
		icons:   icons,
		width:   width,
	}
	off := in.ScreenOffPath()
	in.state = State{
		Font:              render.DefaultFont,
		Color:             render.DefaultColor,
		Background:        off,
		Wallpaper:         off,
		Effect:            DefaultEffect,
		BackgroundEnabled: true,
	}
	return in
}

// State returns a copy of the current render state.
func (in *Interpreter) State() State { return in.state }

func (in *Interpreter) ScreenOffPath() string {
	return fmt.Sprintf("images/%d/ledbg00.bmp", in.width)
}

// ImagePath resolves a background or wallpaper name for this panel width.
func (in *Interpreter) ImagePath(name string) string {
	return fmt.Sprintf("images/%d/%s.bmp", in.width, name)
}

func IconPath(name string) string { return "images/" + name + ".bmp" }

func (in *Interpreter) log() logging.Logger { return logging.OrNoop(in.Logger) }

// RenderText shows text in rgb with the current font, icon and effect.
func (in *Interpreter) RenderText(ctx context.Context, text string, rgb uint32) {
	msg := in.display.NewMessage(in.display.FindFont(in.state.Font))
	in.icons.Attach(msg)
	msg.AddText(text, rgb)

	in.updateBackground(in.state.Background)
	in.runEffect(ctx, msg, in.state.Effect)
	msg.Clear()
}

// RenderStructured applies cmd's elements in order and shows the result.
// Bad elements are logged and skipped; the rest of the command still renders.
func (in *Interpreter) RenderStructured(ctx context.Context, cmd payload.Command) {
	msg := in.display.NewMessage(in.display.FindFont(in.state.Font))
	fontChanged := false

	for _, el := range cmd.Elements {
		switch e := el.(type) {
		case payload.Font:
			in.state.Font = e.ID
			// Only the first font element rebuilds the message; later ones
			// just update state.
			if !fontChanged {
				msg = in.display.NewMessage(in.display.FindFont(in.state.Font))
				fontChanged = true
			}
		case payload.Background:
			in.state.Background = in.ImagePath(e.Image)
		case payload.Color:
			c, err := ParseColor(e.Value, e.Numeric)
			if err != nil {
				in.log().Errorf("display", "invalid color %q: %v", e.Value, err)
				continue
			}
			in.state.Color = c
		case payload.Icon:
			in.addIcon(msg, e.Data)
		case payload.Text:
			msg.AddText(e.Text, in.state.Color)
		case payload.Effect:
			in.state.Effect = e.ID
		}
	}

	in.updateBackground(in.state.Background)
	in.runEffect(ctx, msg, in.state.Effect)
	in.updateBackground(in.state.Wallpaper)
	msg.Clear()
}

func (in *Interpreter) addIcon(msg render.Message, data string) {
	if payload.ClassifyIcon(data) == payload.IconInline {
		if in.icons.SetFromEncoded(data) {
			in.icons.Attach(msg)
		} else {
			in.log().Errorf("display", "invalid inline icon (%d chars)", len(data))
		}
		return
	}
	if err := in.addImageFile(msg, IconPath(data)); err != nil {
		in.log().Errorf("display", "failed to load icon %s: %v", data, err)
	}
}

func (in *Interpreter) addImageFile(msg render.Message, path string) error {
	images := in.Images
	if images == nil {
		images = os.DirFS(".")
	}
	f, err := images.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return msg.AddImage(f)
}

// updateBackground shows path, or the screen-off image while backgrounds
// are disabled.
func (in *Interpreter) updateBackground(path string) {
	if !in.state.BackgroundEnabled {
		path = in.ScreenOffPath()
	}
	if err := in.display.SetBackground(path); err != nil {
		in.log().Errorf("display", "set background %s: %v", path, err)
	}
}

// runEffect plays the steps of effect. Unknown primitives are skipped; an
// animation failure abandons the rest of the sequence.
func (in *Interpreter) runEffect(ctx context.Context, msg render.Message, effect string) {
	for _, step := range in.Effects.Steps(effect) {
		prim, ok := in.Effects.Primitive(step.Primitive)
		if !ok {
			continue
		}
		if err := in.display.Animate(msg, prim.Class, prim.Name, prim.Params); err != nil {
			in.log().Errorf("display", "animation error for fx '%s': %v", effect, err)
			return
		}
		if step.Delay > 0 {
			in.sleep(ctx, time.Duration(step.Delay*float64(time.Second)))
			if in.Lifeline != nil {
				in.Lifeline.Feed()
			}
		}
	}
}

func (in *Interpreter) sleep(ctx context.Context, d time.Duration) {
	if in.Sleep != nil {
		in.Sleep(ctx, d)
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Setting keys understood by ApplyGroupSettings and the coordinator.
const (
	SettingFont              = "font"
	SettingBackground        = "background"
	SettingWallpaper         = "wallpaper"
	SettingColor             = "color"
	SettingBackgroundEnabled = "background-enabled"
	SettingIcon              = "icon"
	SettingSystemEnabled     = "system-enabled"
)

var settingAliases = map[string]string{
	"background-on": SettingBackgroundEnabled,
	"system-on":     SettingSystemEnabled,
}

// SettingKey strips the group prefix from a remote key and maps legacy
// names to their current form.
func SettingKey(group, key string) string {
	key = strings.TrimPrefix(key, group+".")
	if alias, ok := settingAliases[key]; ok {
		return alias
	}
	return key
}

// ApplyGroupSettings updates render state from remote settings. Each key is
// handled on its own; a bad value is logged and the others still apply.
// The icon and system-enabled keys belong to the coordinator and are
// ignored here.
func (in *Interpreter) ApplyGroupSettings(settings map[string]string) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		if err := in.applySetting(SettingKey(in.Group, raw), settings[raw]); err != nil {
			in.log().Errorf("display", "failed to apply setting %s=%s: %v", raw, settings[raw], err)
		}
	}
}

func (in *Interpreter) applySetting(key, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch key {
	case SettingFont:
		in.state.Font = value
	case SettingBackground:
		in.state.Background = in.ImagePath(value)
	case SettingWallpaper:
		in.state.Wallpaper = in.ImagePath(value)
		in.updateBackground(in.state.Wallpaper)
	case SettingColor:
		c, err := ParseColor(value, false)
		if err != nil {
			return err
		}
		in.state.Color = c
	case SettingBackgroundEnabled:
		in.state.BackgroundEnabled = IsTrue(value)
	case SettingIcon, SettingSystemEnabled:
	default:
		in.log().Debugf("display", "ignoring unknown setting %s", key)
	}
	return nil
}

// IsTrue reports whether a remote flag value means on.
func IsTrue(value string) bool { return strings.ToLower(value) == "true" }

// ShowSplash displays a static system message, optionally with an image.
func (in *Interpreter) ShowSplash(ctx context.Context, text string, img io.Reader) {
	if in.splash == nil {
		in.splash = in.display.NewMessage(in.display.FindFont(render.DefaultFont))
	}
	in.splash.Clear()
	if img != nil {
		if err := in.splash.AddImage(img); err != nil {
			in.log().Errorf("display", "splash image: %v", err)
		}
	}
	in.splash.AddText(text, render.DefaultColor)
	if err := in.display.Animate(in.splash, render.ClassStatic, "show", nil); err != nil {
		in.log().Errorf("display", "show splash: %v", err)
	}
}

func (in *Interpreter) HideSplash(ctx context.Context) {
	if in.splash == nil {
		return
	}
	if err := in.display.Animate(in.splash, render.ClassStatic, "hide", nil); err != nil {
		in.log().Errorf("display", "hide splash: %v", err)
	}
}
