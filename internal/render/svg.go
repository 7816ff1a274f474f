package render

import (
	"fmt"
	"io"
	"math"

	"github.com/ajstarks/svgo"

	"epictree/internal/layout"
)

// SVG writes l as an SVG document.
func SVG(w io.Writer, l layout.Layout, opts Options) error {
	width, height := int(math.Ceil(l.Width)), int(math.Ceil(l.Height))
	canvas := svg.New(w)
	canvas.Start(width, height)
	if opts.Title != "" {
		canvas.Title(opts.Title)
	}
	canvas.Rect(0, 0, width, height, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	canvas.Gstyle(fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorLink)))
	for _, link := range l.Links {
		canvas.Path(link.Path)
	}
	canvas.Gend()

	nw, nh := int(l.Options.NodeWidth), int(l.Options.NodeHeight)
	for i, n := range l.Nodes {
		box := l.NodeBox(i)
		x, y := int(math.Round(box.X)), int(math.Round(box.Y))
		style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g;opacity:%g", n.Style.Fill, n.Style.Stroke, n.Style.StrokeWidth, n.Style.Opacity)
		if n.Style.Dashed {
			style += ";stroke-dasharray:4,3"
		}
		canvas.Roundrect(x, y, nw, nh, 8, 8, style)

		first, second := nodeLabel(n)
		textStyle := fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:middle;opacity:%g", n.Style.TextColor, n.Style.Opacity)
		cx := int(math.Round(n.X))
		if second == "" {
			canvas.Text(cx, y+nh/2+4, first, textStyle+";font-weight:bold")
			continue
		}
		canvas.Text(cx, y+nh/2-3, first, textStyle+";font-weight:bold")
		canvas.Text(cx, y+nh/2+12, second, textStyle)
	}

	if opts.Title != "" {
		canvas.Text(16, 24, opts.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorTitle)))
	}
	if opts.Legend {
		drawLegendSVG(canvas, width)
	}
	if opts.Minimap != nil && opts.Minimap.Visible {
		drawMinimapSVG(canvas, l, opts.Minimap)
	}

	canvas.End()
	return nil
}

func drawLegendSVG(canvas *svg.SVG, width int) {
	x, y := width-legendWidth-16, 16
	canvas.Roundrect(x, y, legendWidth, legendHeight, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorPanel), css(colorSubtle)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorTitle)))
	for i, row := range legendRows {
		ry := y + 36 + i*16
		canvas.Roundrect(x+12, ry-8, 12, 12, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", row.fill, css(colorSubtle)))
		canvas.Text(x+30, ry+2, row.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	ry := y + 36 + len(legendRows)*16
	canvas.Line(x+12, ry-2, x+24, ry-2, "stroke:#DE350B;stroke-width:3")
	canvas.Text(x+30, ry+2, "Blocked", fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

func drawMinimapSVG(canvas *svg.SVG, l layout.Layout, m *layout.Minimap) {
	ox, oy := minimapOrigin(l, m)
	canvas.Rect(int(ox), int(oy), int(math.Ceil(m.Width)), int(math.Ceil(m.Height)),
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorPanel), css(colorSubtle)))
	for _, box := range m.Boxes {
		canvas.Rect(int(ox+box.X), int(oy+box.Y), max(int(box.Width), 1), max(int(box.Height), 1),
			fmt.Sprintf("fill:%s", css(colorMiniBox)))
	}
	v := m.Viewport
	canvas.Rect(int(ox+v.X), int(oy+v.Y), int(v.Width), int(v.Height),
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorViewport)))
}
