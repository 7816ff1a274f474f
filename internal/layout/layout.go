// Package layout positions a tree for drawing: tidy-tree placement in
// cartesian or polar coordinates, link paths, node styles and the minimap.
package layout

import (
	"fmt"
	"math"
	"strings"

	"epictree/internal/models"
)

// Mode selects the coordinate system.
type Mode string

const (
	ModeCartesian Mode = "cartesian"
	ModePolar     Mode = "polar"
)

// Orientation is the direction branches grow in cartesian mode.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// LinkStyle is the shape of parent-child links.
type LinkStyle string

const (
	LinkDiagonal LinkStyle = "diagonal"
	LinkStep     LinkStyle = "step"
	LinkCurve    LinkStyle = "curve"
	LinkLine     LinkStyle = "line"
)

const (
	defaultStepPercent  = 0.5
	curvePercent        = 0.2
	defaultNodeWidth    = 140
	defaultNodeHeight   = 40
	defaultLevelSpacing = 150
	defaultLeafSpacing  = 170
)

// MaxCanvasSize bounds a requested Width or Height.
const MaxCanvasSize = 16384

// Margin is the padding around the drawing area.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Options controls Compute. Zero values pick defaults; a zero Width or
// Height sizes the canvas from the tree.
type Options struct {
	Mode        Mode        `json:"mode"`
	Orientation Orientation `json:"orientation"`
	Link        LinkStyle   `json:"link"`
	StepPercent float64     `json:"stepPercent"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Margin      Margin      `json:"margin"`
	NodeWidth   float64     `json:"nodeWidth"`
	NodeHeight  float64     `json:"nodeHeight"`
}

// DefaultMargin is the padding used when Options.Margin is zero.
var DefaultMargin = Margin{Top: 40, Right: 80, Bottom: 40, Left: 80}

// Normalize fills defaults and validates the enumerations.
func (o Options) Normalize() (Options, error) {
	switch o.Mode {
	case "":
		o.Mode = ModeCartesian
	case ModeCartesian, ModePolar:
	default:
		return o, fmt.Errorf("invalid layout mode: %s", o.Mode)
	}
	switch o.Orientation {
	case "":
		o.Orientation = Vertical
	case Vertical, Horizontal:
	default:
		return o, fmt.Errorf("invalid orientation: %s", o.Orientation)
	}
	switch o.Link {
	case "":
		o.Link = LinkDiagonal
	case LinkDiagonal, LinkStep, LinkCurve, LinkLine:
	default:
		return o, fmt.Errorf("invalid link style: %s", o.Link)
	}
	for _, v := range []float64{o.StepPercent, o.Width, o.Height, o.NodeWidth, o.NodeHeight,
		o.Margin.Top, o.Margin.Right, o.Margin.Bottom, o.Margin.Left} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return o, fmt.Errorf("layout sizes must be finite numbers")
		}
	}
	if o.StepPercent <= 0 || o.StepPercent > 1 {
		o.StepPercent = defaultStepPercent
	}
	if o.Width < 0 || o.Height < 0 {
		return o, fmt.Errorf("width and height must not be negative")
	}
	if o.Width > MaxCanvasSize || o.Height > MaxCanvasSize {
		return o, fmt.Errorf("width and height must not exceed %d", MaxCanvasSize)
	}
	if o.Margin == (Margin{}) {
		o.Margin = DefaultMargin
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = defaultNodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = defaultNodeHeight
	}
	return o, nil
}

// ParseMode parses a layout mode name.
func ParseMode(raw string) (Mode, error) {
	o, err := Options{Mode: Mode(strings.ToLower(strings.TrimSpace(raw)))}.Normalize()
	return o.Mode, err
}

// ParseOrientation parses an orientation name.
func ParseOrientation(raw string) (Orientation, error) {
	o, err := Options{Orientation: Orientation(strings.ToLower(strings.TrimSpace(raw)))}.Normalize()
	return o.Orientation, err
}

// ParseLinkStyle parses a link style name.
func ParseLinkStyle(raw string) (LinkStyle, error) {
	o, err := Options{Link: LinkStyle(strings.ToLower(strings.TrimSpace(raw)))}.Normalize()
	return o.Link, err
}

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a positioned tree node. Data carries the node's fields without
// its children.
type Node struct {
	Key    string          `json:"key,omitempty"`
	Name   string          `json:"name"`
	Depth  int             `json:"depth"`
	Parent int             `json:"parent"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Angle  float64         `json:"angle,omitempty"`
	Radius float64         `json:"radius,omitempty"`
	Style  Style           `json:"style"`
	Data   models.TreeNode `json:"data"`
}

// Link joins two nodes by index. Path is SVG path data; Segments holds the
// same geometry for raster renderers.
type Link struct {
	Source   int       `json:"source"`
	Target   int       `json:"target"`
	Path     string    `json:"path"`
	Segments []Segment `json:"-"`
}

// Layout is a positioned tree. Nodes are in depth-first order; the root is
// Nodes[0] with Parent -1.
type Layout struct {
	Nodes   []Node  `json:"nodes"`
	Links   []Link  `json:"links"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Options Options `json:"options"`
}

// Compute positions root according to opts.
func Compute(root models.TreeNode, opts Options) (Layout, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return Layout{}, err
	}

	var nodes []Node
	var order []*tidy
	var build func(n models.TreeNode, parent *tidy, parentIndex, depth, i int) *tidy
	build = func(n models.TreeNode, parent *tidy, parentIndex, depth, i int) *tidy {
		t := &tidy{index: len(nodes), depth: depth, parent: parent, i: i}
		t.a = t
		nodes = append(nodes, Node{
			Key:    n.Key,
			Name:   n.Name,
			Depth:  depth,
			Parent: parentIndex,
			Style:  StyleFor(n),
			Data:   n.WithoutChildren(),
		})
		order = append(order, t)
		for ci, child := range n.Children {
			t.children = append(t.children, build(child, t, t.index, depth+1, ci))
		}
		return t
	}
	rootTidy := build(root, nil, -1, 0, 0)

	leaves, maxDepth := 0, 0
	for _, t := range order {
		if len(t.children) == 0 {
			leaves++
		}
		if t.depth > maxDepth {
			maxDepth = t.depth
		}
	}

	width, height := opts.Width, opts.Height
	breadthExtent := float64(leaves) * defaultLeafSpacing
	depthExtent := float64(maxDepth) * defaultLevelSpacing
	switch {
	case opts.Mode == ModePolar:
		side := 2*depthExtent + opts.NodeWidth
		if width == 0 {
			width = side + opts.Margin.Left + opts.Margin.Right
		}
		if height == 0 {
			height = side + opts.Margin.Top + opts.Margin.Bottom
		}
	case opts.Orientation == Horizontal:
		if width == 0 {
			width = depthExtent + opts.Margin.Left + opts.Margin.Right
		}
		if height == 0 {
			height = breadthExtent + opts.Margin.Top + opts.Margin.Bottom
		}
	default:
		if width == 0 {
			width = breadthExtent + opts.Margin.Left + opts.Margin.Right
		}
		if height == 0 {
			height = depthExtent + opts.Margin.Top + opts.Margin.Bottom
		}
	}
	innerW := math.Max(width-opts.Margin.Left-opts.Margin.Right, 1)
	innerH := math.Max(height-opts.Margin.Top-opts.Margin.Bottom, 1)

	var origin Point
	var breadth, depth float64
	switch {
	case opts.Mode == ModePolar:
		breadth = 2 * math.Pi
		depth = math.Min(innerW, innerH)/2 - opts.NodeWidth/2
		if depth < 1 {
			depth = math.Min(innerW, innerH) / 2
		}
		origin = Point{X: opts.Margin.Left + innerW/2, Y: opts.Margin.Top + innerH/2}
	case opts.Orientation == Horizontal:
		breadth, depth = innerH, innerW
		origin = Point{X: opts.Margin.Left, Y: opts.Margin.Top}
	default:
		breadth, depth = innerW, innerH
		origin = Point{X: opts.Margin.Left, Y: opts.Margin.Top}
	}

	xs, ys := tidyPositions(rootTidy, breadth, depth)
	for _, t := range order {
		n := &nodes[t.index]
		bx, dy := xs[t], ys[t]
		switch {
		case opts.Mode == ModePolar:
			n.Angle, n.Radius = bx, dy
			p := pointRadial(bx, dy)
			n.X, n.Y = origin.X+p.X, origin.Y+p.Y
		case opts.Orientation == Horizontal:
			n.X, n.Y = origin.X+dy, origin.Y+bx
		default:
			n.X, n.Y = origin.X+bx, origin.Y+dy
		}
	}

	links := make([]Link, 0, len(nodes)-1)
	for i, n := range nodes {
		if n.Parent < 0 {
			continue
		}
		path, segments := linkPath(nodes[n.Parent], n, origin, opts)
		links = append(links, Link{
			Source:   n.Parent,
			Target:   i,
			Path:     path,
			Segments: segments,
		})
	}

	return Layout{Nodes: nodes, Links: links, Width: width, Height: height, Options: opts}, nil
}

// pointRadial converts an angle (0 at twelve o'clock, clockwise) and radius
// to offsets from the centre.
func pointRadial(angle, radius float64) Point {
	a := angle - math.Pi/2
	return Point{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
}

// NodeBox returns the drawn rectangle of a node.
func (l Layout) NodeBox(i int) Rect {
	n := l.Nodes[i]
	w, h := l.Options.NodeWidth, l.Options.NodeHeight
	return Rect{X: n.X - w/2, Y: n.Y - h/2, Width: w, Height: h}
}
