// Package render draws a computed layout as SVG or PNG.
package render

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"epictree/internal/layout"
	"epictree/internal/models"
)

// Format is an output image format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" or "png" in any case.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatSVG, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use svg or png)", raw)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer format from %q", path)
	}
	return ParseFormat(ext)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Options decorates the drawing.
type Options struct {
	Title   string
	Legend  bool
	Minimap *layout.Minimap
}

// Write renders l in the given format.
func Write(w io.Writer, format Format, l layout.Layout, opts Options) error {
	switch format {
	case FormatSVG:
		return SVG(w, l, opts)
	case FormatPNG:
		return PNG(w, l, opts)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

var (
	colorBackdrop = color.RGBA{R: 0xFA, G: 0xFB, B: 0xFC, A: 0xFF}
	colorLink     = color.RGBA{R: 0xA5, G: 0xAD, B: 0xBA, A: 0xFF}
	colorTitle    = color.RGBA{R: 0x17, G: 0x2B, B: 0x4D, A: 0xFF}
	colorSubtle   = color.RGBA{R: 0x6B, G: 0x77, B: 0x8C, A: 0xFF}
	colorPanel    = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	colorViewport = color.RGBA{R: 0x00, G: 0x52, B: 0xCC, A: 0xFF}
	colorMiniBox  = color.RGBA{R: 0x97, G: 0xA0, B: 0xAF, A: 0xFF}
)

type legendRow struct {
	fill  string
	label string
}

var legendRows = []legendRow{
	{fill: layout.StyleFor(withCategory("new")).Fill, label: "To Do"},
	{fill: layout.StyleFor(withCategory("indeterminate")).Fill, label: "In Progress"},
	{fill: layout.StyleFor(withCategory("done")).Fill, label: "Done"},
}

func withCategory(key string) models.TreeNode {
	return models.TreeNode{Status: &models.Status{CategoryKey: key}}
}

const (
	legendWidth   = 150
	legendHeight  = 100
	minimapMargin = 16
	labelChars    = 18
)

// nodeLabel returns the two text lines drawn inside a node.
func nodeLabel(n layout.Node) (string, string) {
	first := n.Key
	if first == "" {
		first = truncate(n.Name, labelChars)
		return first, ""
	}
	if n.Data.StoryPoints > 0 {
		first += " (" + strconv.FormatFloat(n.Data.StoryPoints, 'f', -1, 64) + " sp)"
	}
	return first, truncate(n.Name, labelChars)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// parseHex reads "#rrggbb"; anything else is black.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{A: 0xFF}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{A: 0xFF}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// withAlpha scales c's opacity; gg expects premultiplied colors.
func withAlpha(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	if opacity < 0 {
		opacity = 0
	}
	scale := func(v uint8) uint8 { return uint8(float64(v) * opacity) }
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: scale(c.A)}
}

// minimapOrigin places the minimap in the bottom-right corner.
func minimapOrigin(l layout.Layout, m *layout.Minimap) (float64, float64) {
	return l.Width - m.Width - minimapMargin, l.Height - m.Height - minimapMargin
}
