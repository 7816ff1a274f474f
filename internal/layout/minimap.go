package layout

import "math"

// overflowRatio is how far the diagram must exceed the container before the
// minimap is shown.
const overflowRatio = 1.1

// Viewport is the visible part of the diagram inside its scroll container.
type Viewport struct {
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Minimap is a scaled overview of a layout.
type Minimap struct {
	Scale    float64 `json:"scale"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Boxes    []Rect  `json:"boxes"`
	Viewport Rect    `json:"viewport"`
	Visible  bool    `json:"visible"`

	ContentWidth  float64 `json:"contentWidth"`
	ContentHeight float64 `json:"contentHeight"`
}

// ComputeMinimap scales the layout into a box of at most maxWidth by
// maxHeight and maps the viewport into minimap coordinates.
func ComputeMinimap(l Layout, view Viewport, maxWidth, maxHeight float64) Minimap {
	m := Minimap{Boxes: []Rect{}, ContentWidth: l.Width, ContentHeight: l.Height}
	if l.Width <= 0 || l.Height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return m
	}

	m.Scale = math.Min(maxWidth/l.Width, maxHeight/l.Height)
	m.Width = l.Width * m.Scale
	m.Height = l.Height * m.Scale
	for i := range l.Nodes {
		m.Boxes = append(m.Boxes, scaleRect(l.NodeBox(i), m.Scale))
	}
	m.Viewport = scaleRect(Rect{X: view.ScrollX, Y: view.ScrollY, Width: view.Width, Height: view.Height}, m.Scale)
	m.Visible = l.Width > view.Width*overflowRatio || l.Height > view.Height*overflowRatio
	return m
}

// ScrollFor maps a point clicked on the minimap to the scroll offsets that
// centre the viewport on it, clamped to the content.
func (m Minimap) ScrollFor(p Point, view Viewport) (x, y float64) {
	if m.Scale <= 0 {
		return 0, 0
	}
	x = clamp(p.X/m.Scale-view.Width/2, 0, math.Max(m.ContentWidth-view.Width, 0))
	y = clamp(p.Y/m.Scale-view.Height/2, 0, math.Max(m.ContentHeight-view.Height, 0))
	return x, y
}

func scaleRect(r Rect, s float64) Rect {
	return Rect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
