package imagegen

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"

	"bible-podcaster/config"
	"bible-podcaster/pipeline"
)

const maxSubtitleChars = 220

// CardGenerator renders a typographic title card with the topic and
// summary. Pure local rendering, no external service.
type CardGenerator struct {
	cfg *config.Config
}

// New creates a CardGenerator
func New(cfg *config.Config) *CardGenerator {
	return &CardGenerator{cfg: cfg}
}

// Run writes cover.<format> into the item's output directory
func (g *CardGenerator) Run(ctx context.Context, item *pipeline.TextItem) (*pipeline.ImageItem, error) {
	log := logrus.WithField("stage", "image")

	if item.OutputDir == "" {
		return nil, fmt.Errorf("text item has no output directory (analyzer must run first)")
	}
	target := filepath.Join(item.OutputDir, "cover."+g.cfg.Image.Format)

	title := "Bible Podcaster"
	subtitle := item.Content
	if item.Analysis != nil {
		title = item.Analysis.Topic
		if item.Analysis.Summary != "" {
			subtitle = item.Analysis.Summary
		}
	}
	if len(subtitle) > maxSubtitleChars {
		subtitle = subtitle[:maxSubtitleChars-3] + "..."
	}

	w, h := g.cfg.Image.Width, g.cfg.Image.Height
	dc := gg.NewContext(w, h)
	dc.SetRGB255(18, 18, 18)
	dc.Clear()

	margin := 80.0
	y := margin

	dc.SetFontFace(g.loadFace(72))
	dc.SetRGB255(240, 240, 240)
	dc.DrawStringAnchored(title, margin, y+36, 0, 0.5)
	y += 120

	dc.SetFontFace(g.loadFace(36))
	dc.SetRGB255(200, 200, 200)
	dc.DrawStringWrapped(subtitle, margin, y, 0, 0, float64(w)-margin*2, 1.5, gg.AlignLeft)

	if err := save(dc, target, g.cfg.Image.Format); err != nil {
		return nil, fmt.Errorf("save cover image: %w", err)
	}

	log.Infof("Cover image ready: %s", target)
	return &pipeline.ImageItem{ID: uuid.NewString(), Path: target}, nil
}

// loadFace picks the best available font at the given size: a configured
// TTF file, the embedded Go Regular face, and as a last resort the
// fixed-size basicfont.
func (g *CardGenerator) loadFace(points float64) font.Face {
	if path := g.cfg.Image.FontPath; path != "" {
		face, err := gg.LoadFontFace(path, points)
		if err == nil {
			return face
		}
		logrus.WithField("stage", "image").
			Warnf("Could not load font %s: %v, using built-in font", path, err)
	}
	if f, err := truetype.Parse(goregular.TTF); err == nil {
		return truetype.NewFace(f, &truetype.Options{Size: points})
	}
	return basicfont.Face7x13
}

func save(dc *gg.Context, path, format string) error {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return gg.SaveJPG(path, dc.Image(), 90)
	default:
		return dc.SavePNG(path)
	}
}
