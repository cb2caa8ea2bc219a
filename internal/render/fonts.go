package render

import (
	"os"
	"path/filepath"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/rook-computer/msgboard/internal/logging"
)

// face is the Font implementation handed out by the renderers.
type face struct {
	id   string
	face font.Face
}

func (f *face) ID() string { return f.id }

// fontSet is the pool of loaded fonts plus the default.
type fontSet struct {
	byID     map[string]*face
	fallback *face
}

func (s *fontSet) find(id string) *face {
	if f, ok := s.byID[id]; ok {
		return f
	}
	if f, ok := s.byID[DefaultFont]; ok {
		return f
	}
	return s.fallback
}

// loadFonts parses every configured font file with freetype. Fonts that fail
// to load are logged and skipped; the Go regular face is the fallback.
func loadFonts(cfg Config, log logging.Logger) *fontSet {
	log = logging.OrNoop(log)
	set := &fontSet{byID: make(map[string]*face), fallback: fallbackFace(cfg.FontSize, log)}

	for id, file := range cfg.Fonts {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.FontDir, file)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("fonts", "failed to load font %s: %v", id, err)
			continue
		}
		tt, err := truetype.Parse(data)
		if err != nil {
			log.Errorf("fonts", "failed to parse font %s: %v", id, err)
			continue
		}
		set.byID[id] = &face{id: id, face: truetype.NewFace(tt, &truetype.Options{
			Size:    cfg.FontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})}
		log.Debugf("fonts", "loaded font: %s", id)
	}
	return set
}

func fallbackFace(size float64, log logging.Logger) *face {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Errorf("fonts", "fallback font parse failed, using basicfont: %v", err)
		return &face{id: "basic", face: basicfont.Face7x13}
	}
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Errorf("fonts", "fallback face create failed, using basicfont: %v", err)
		return &face{id: "basic", face: basicfont.Face7x13}
	}
	return &face{id: "goregular", face: f}
}
