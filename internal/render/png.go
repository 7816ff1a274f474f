package render

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"epictree/internal/layout"
)

const (
	arcSteps = 24

	// maxRasterPixels keeps one RGBA canvas under 256 MiB.
	maxRasterPixels = 64 << 20
)

// ErrCanvasTooLarge is returned by PNG when the layout cannot be rasterized.
var ErrCanvasTooLarge = errors.New("canvas too large for png, render svg instead")

// PNG writes l as a PNG image.
func PNG(w io.Writer, l layout.Layout, opts Options) error {
	if !rasterizable(l.Width, l.Height) {
		return fmt.Errorf("%w: %gx%g", ErrCanvasTooLarge, l.Width, l.Height)
	}
	width, height := int(math.Ceil(l.Width)), int(math.Ceil(l.Height))
	dc := gg.NewContext(width, height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorLink)
	dc.SetLineWidth(1.5)
	for _, link := range l.Links {
		drawSegments(dc, link.Segments)
		dc.Stroke()
	}

	for i, n := range l.Nodes {
		drawNode(dc, l.NodeBox(i), n)
	}

	if opts.Title != "" {
		dc.SetColor(colorTitle)
		dc.DrawStringAnchored(opts.Title, 16, 20, 0, 0.5)
	}
	if opts.Legend {
		drawLegend(dc, float64(width))
	}
	if opts.Minimap != nil && opts.Minimap.Visible {
		drawMinimap(dc, l, opts.Minimap)
	}

	return png.Encode(w, dc.Image())
}

func drawSegments(dc *gg.Context, segments []layout.Segment) {
	for _, seg := range segments {
		switch seg.Op {
		case 'M':
			dc.MoveTo(seg.Points[0].X, seg.Points[0].Y)
		case 'L':
			dc.LineTo(seg.Points[0].X, seg.Points[0].Y)
		case 'C':
			c1, c2, p := seg.Points[0], seg.Points[1], seg.Points[2]
			dc.CubicTo(c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y)
		case 'A':
			for _, p := range arcPoints(seg) {
				dc.LineTo(p.X, p.Y)
			}
		}
	}
}

// arcPoints flattens an arc segment into a polyline.
func arcPoints(seg layout.Segment) []layout.Point {
	from, to := seg.From, seg.To
	if seg.Sweep && to < from {
		to += 2 * math.Pi
	}
	if !seg.Sweep && to > from {
		to -= 2 * math.Pi
	}
	out := make([]layout.Point, 0, arcSteps)
	for i := 1; i <= arcSteps; i++ {
		a := from + (to-from)*float64(i)/arcSteps
		out = append(out, layout.Point{
			X: seg.Center.X + seg.Radius*math.Cos(a),
			Y: seg.Center.Y + seg.Radius*math.Sin(a),
		})
	}
	return out
}

func drawNode(dc *gg.Context, box layout.Rect, n layout.Node) {
	opacity := n.Style.Opacity
	dc.SetColor(withAlpha(parseHex(n.Style.Fill), opacity))
	dc.DrawRoundedRectangle(box.X, box.Y, box.Width, box.Height, 8)
	dc.Fill()

	dc.SetColor(withAlpha(parseHex(n.Style.Stroke), opacity))
	dc.SetLineWidth(n.Style.StrokeWidth)
	if n.Style.Dashed {
		dc.SetDash(4, 3)
	}
	dc.DrawRoundedRectangle(box.X, box.Y, box.Width, box.Height, 8)
	dc.Stroke()
	dc.SetDash()

	dc.SetColor(withAlpha(parseHex(n.Style.TextColor), opacity))
	first, second := nodeLabel(n)
	cx, cy := box.X+box.Width/2, box.Y+box.Height/2
	if second == "" {
		dc.DrawStringAnchored(first, cx, cy, 0.5, 0.5)
		return
	}
	dc.DrawStringAnchored(first, cx, cy-7, 0.5, 0.5)
	dc.DrawStringAnchored(second, cx, cy+8, 0.5, 0.5)
}

func drawLegend(dc *gg.Context, width float64) {
	x, y := width-legendWidth-16, 16.0
	dc.SetColor(colorPanel)
	dc.DrawRoundedRectangle(x, y, legendWidth, legendHeight, 10)
	dc.Fill()
	dc.SetColor(colorSubtle)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, legendWidth, legendHeight, 10)
	dc.Stroke()

	dc.SetColor(colorTitle)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	for i, row := range legendRows {
		ry := y + 36 + float64(i)*16
		dc.SetColor(parseHex(row.fill))
		dc.DrawRoundedRectangle(x+12, ry-6, 12, 12, 3)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(row.label, x+30, ry, 0, 0.5)
	}
	ry := y + 36 + float64(len(legendRows))*16
	dc.SetColor(parseHex("#DE350B"))
	dc.SetLineWidth(3)
	dc.DrawLine(x+12, ry, x+24, ry)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored("Blocked", x+30, ry, 0, 0.5)
}

func drawMinimap(dc *gg.Context, l layout.Layout, m *layout.Minimap) {
	ox, oy := minimapOrigin(l, m)
	dc.SetColor(colorPanel)
	dc.DrawRectangle(ox, oy, m.Width, m.Height)
	dc.Fill()
	dc.SetColor(colorSubtle)
	dc.SetLineWidth(1)
	dc.DrawRectangle(ox, oy, m.Width, m.Height)
	dc.Stroke()

	dc.SetColor(colorMiniBox)
	for _, box := range m.Boxes {
		dc.DrawRectangle(ox+box.X, oy+box.Y, math.Max(box.Width, 1), math.Max(box.Height, 1))
		dc.Fill()
	}

	v := m.Viewport
	dc.SetColor(colorViewport)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(ox+v.X, oy+v.Y, v.Width, v.Height)
	dc.Stroke()
}

func rasterizable(width, height float64) bool {
	if math.IsNaN(width) || math.IsNaN(height) || width < 1 || height < 1 {
		return false
	}
	if width > layout.MaxCanvasSize*4 || height > layout.MaxCanvasSize*4 {
		return false
	}
	return math.Ceil(width)*math.Ceil(height) <= maxRasterPixels
}
