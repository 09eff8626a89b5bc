package avatar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

const renderSize = 512

// defaultPalette is used when AVATAR_COLORS_JSON_PATH is unset. Muted tones
// that keep white initials readable.
var defaultPalette = []color.NRGBA{
	{R: 0x2F, G: 0x6F, B: 0x8F, A: 0xFF},
	{R: 0x8F, G: 0x4F, B: 0x2F, A: 0xFF},
	{R: 0x3F, G: 0x7F, B: 0x4F, A: 0xFF},
	{R: 0x6F, G: 0x3F, B: 0x8F, A: 0xFF},
	{R: 0x8F, G: 0x2F, B: 0x5F, A: 0xFF},
	{R: 0x2F, G: 0x5F, B: 0x7F, A: 0xFF},
	{R: 0x7F, G: 0x6F, B: 0x2F, A: 0xFF},
}

// Renderer draws the fallback initials avatar new accounts get.
type Renderer struct {
	log      *logger.Logger
	palette  []color.NRGBA
	fontFace font.Face
}

func NewRenderer(logg *logger.Logger) (*Renderer, error) {
	log := logg.With("component", "AvatarRenderer")

	palette := defaultPalette
	if path := strings.TrimSpace(os.Getenv("AVATAR_COLORS_JSON_PATH")); path != "" {
		loaded, err := loadPalette(path)
		if err != nil {
			return nil, fmt.Errorf("load avatar palette: %w", err)
		}
		if len(loaded) > 0 {
			palette = loaded
		}
	}

	var face font.Face = basicfont.Face7x13
	if path := strings.TrimSpace(os.Getenv("AVATAR_FONT_PATH")); path != "" {
		loaded, err := loadFontFace(path, 206)
		if err != nil {
			return nil, fmt.Errorf("load avatar font: %w", err)
		}
		face = loaded
	} else {
		log.Warn("AVATAR_FONT_PATH not set; using builtin bitmap font")
	}

	return &Renderer{log: log, palette: palette, fontFace: face}, nil
}

// ColorFor picks the background for a user. Derived from the id so the same
// user always renders the same color without storing a choice.
func (r *Renderer) ColorFor(userID uuid.UUID) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write(userID[:])
	return r.palette[int(h.Sum32())%len(r.palette)]
}

// Render produces a circular PNG with the user's initials centered on their
// background color.
func (r *Renderer) Render(userID uuid.UUID, initials string) (bytes.Buffer, error) {
	var buf bytes.Buffer

	initials = strings.TrimSpace(initials)
	if initials == "" {
		initials = "?"
	}

	dc := gg.NewContext(renderSize, renderSize)

	dc.DrawCircle(float64(renderSize)/2, float64(renderSize)/2, float64(renderSize)/2)
	dc.Clip()

	dc.SetColor(r.ColorFor(userID))
	dc.DrawRectangle(0, 0, float64(renderSize), float64(renderSize))
	dc.Fill()

	dc.SetFontFace(r.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(renderSize)/2, float64(renderSize)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2), cy+(th/2))

	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("encode avatar png: %w", err)
	}
	return buf, nil
}

func loadPalette(jsonPath string) ([]color.NRGBA, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read file error: %w", err)
	}
	var colors []color.NRGBA
	if err := json.Unmarshal(data, &colors); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}
	return colors, nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
