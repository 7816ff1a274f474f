package layout

import (
	"math"
	"strconv"
	"strings"
)

// linkPath returns the SVG path data and drawing segments joining parent s
// to child t.
func linkPath(s, t Node, origin Point, opts Options) (string, []Segment) {
	if opts.Mode == ModePolar {
		return radialPath(s, t, origin, opts.Link)
	}
	src, dst := Point{X: s.X, Y: s.Y}, Point{X: t.X, Y: t.Y}
	horizontal := opts.Orientation == Horizontal

	switch opts.Link {
	case LinkStep:
		return stepPath(src, dst, opts.StepPercent, horizontal)
	case LinkCurve:
		return curvePath(src, dst, curvePercent)
	case LinkLine:
		return linePath(src, dst)
	default:
		return diagonalPath(src, dst, horizontal)
	}
}

func diagonalPath(s, t Point, horizontal bool) (string, []Segment) {
	var b pathBuilder
	b.move(s)
	if horizontal {
		mx := (s.X + t.X) / 2
		b.cubic(Point{X: mx, Y: s.Y}, Point{X: mx, Y: t.Y}, t)
	} else {
		my := (s.Y + t.Y) / 2
		b.cubic(Point{X: s.X, Y: my}, Point{X: t.X, Y: my}, t)
	}
	return b.done()
}

// stepPath leaves the parent along the growth axis, turns at percent of the
// way, runs across, then turns again into the child.
func stepPath(s, t Point, percent float64, horizontal bool) (string, []Segment) {
	var b pathBuilder
	b.move(s)
	if horizontal {
		b.horizontal(s.X + (t.X-s.X)*percent)
		b.vertical(t.Y)
		b.horizontal(t.X)
	} else {
		b.vertical(s.Y + (t.Y-s.Y)*percent)
		b.horizontal(t.X)
		b.vertical(t.Y)
	}
	return b.done()
}

func curvePath(s, t Point, percent float64) (string, []Segment) {
	dx, dy := t.X-s.X, t.Y-s.Y
	ix := percent * (dx + dy)
	iy := percent * (dy - dx)
	var b pathBuilder
	b.move(s)
	b.cubic(Point{X: s.X + ix, Y: s.Y + iy}, Point{X: t.X + iy, Y: t.Y - ix}, t)
	return b.done()
}

func linePath(s, t Point) (string, []Segment) {
	var b pathBuilder
	b.move(s)
	b.line(t)
	return b.done()
}

func radialPath(s, t Node, origin Point, style LinkStyle) (string, []Segment) {
	at := func(angle, radius float64) Point {
		p := pointRadial(angle, radius)
		return Point{X: origin.X + p.X, Y: origin.Y + p.Y}
	}
	src, dst := at(s.Angle, s.Radius), at(t.Angle, t.Radius)

	switch style {
	case LinkStep:
		// Arc along the parent's radius to the child's angle, then out.
		sa, ta := s.Angle-math.Pi/2, t.Angle-math.Pi/2
		sweep := ta > sa
		if math.Abs(ta-sa) > math.Pi {
			sweep = ta <= sa
		}
		var b pathBuilder
		b.move(src)
		b.arc(origin, s.Radius, sa, ta, sweep, at(t.Angle, s.Radius))
		b.line(dst)
		return b.done()
	case LinkCurve:
		return curvePath(src, dst, curvePercent)
	case LinkLine:
		return linePath(src, dst)
	default:
		mid := (s.Radius + t.Radius) / 2
		var b pathBuilder
		b.move(src)
		b.cubic(at(s.Angle, mid), at(t.Angle, mid), dst)
		return b.done()
	}
}

// Segment is one drawing command of a link path, in absolute coordinates.
// Op is 'M', 'L', 'C' or 'A'. Arcs run around Center at Radius from angle
// From to To; Sweep selects the increasing-angle direction.
type Segment struct {
	Op     byte
	Points []Point
	Center Point
	Radius float64
	From   float64
	To     float64
	Sweep  bool
}

type pathBuilder struct {
	sb   strings.Builder
	segs []Segment
	cur  Point
}

func (b *pathBuilder) move(p Point) {
	b.sb.WriteByte('M')
	b.point(p)
	b.segs = append(b.segs, Segment{Op: 'M', Points: []Point{p}})
	b.cur = p
}

func (b *pathBuilder) line(p Point) {
	b.sb.WriteByte('L')
	b.point(p)
	b.lineTo(p)
}

func (b *pathBuilder) lineTo(p Point) {
	b.segs = append(b.segs, Segment{Op: 'L', Points: []Point{p}})
	b.cur = p
}

func (b *pathBuilder) horizontal(x float64) {
	b.sb.WriteByte('H')
	b.sb.WriteString(num(x))
	b.lineTo(Point{X: x, Y: b.cur.Y})
}

func (b *pathBuilder) vertical(y float64) {
	b.sb.WriteByte('V')
	b.sb.WriteString(num(y))
	b.lineTo(Point{X: b.cur.X, Y: y})
}

func (b *pathBuilder) cubic(c1, c2, p Point) {
	b.sb.WriteByte('C')
	b.point(c1)
	b.sb.WriteByte(' ')
	b.point(c2)
	b.sb.WriteByte(' ')
	b.point(p)
	b.segs = append(b.segs, Segment{Op: 'C', Points: []Point{c1, c2, p}})
	b.cur = p
}

func (b *pathBuilder) arc(center Point, r, from, to float64, sweep bool, p Point) {
	b.sb.WriteByte('A')
	b.sb.WriteString(num(r))
	b.sb.WriteByte(',')
	b.sb.WriteString(num(r))
	b.sb.WriteString(",0,0,")
	if sweep {
		b.sb.WriteByte('1')
	} else {
		b.sb.WriteByte('0')
	}
	b.sb.WriteByte(',')
	b.point(p)
	b.segs = append(b.segs, Segment{Op: 'A', Points: []Point{p}, Center: center, Radius: r, From: from, To: to, Sweep: sweep})
	b.cur = p
}

func (b *pathBuilder) point(p Point) {
	b.sb.WriteString(num(p.X))
	b.sb.WriteByte(',')
	b.sb.WriteString(num(p.Y))
}

func (b *pathBuilder) done() (string, []Segment) {
	return b.sb.String(), b.segs
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
