package symbol

import (
	"math"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// Point is an x/y coordinate in millimeters.
type Point struct {
	X, Y float64
}

// PointMil builds a point from mil coordinates.
func PointMil(x, y float64) Point {
	return Point{X: MilToMM(x), Y: MilToMM(y)}
}

func (p Point) ToNode() *sexp.Node {
	return sexp.Key("xy", sexp.Float(p.X), sexp.Float(p.Y))
}

// Stroke carries the outline style shared by all graphic items.
type Stroke struct {
	Width float64
	Style string // default, solid, dash, dot, ...
	Color *Color
}

// DefaultStroke is the 10mil default outline.
func DefaultStroke() Stroke {
	return Stroke{Width: 0.254, Style: "default"}
}

func (s Stroke) toNode(withStyle bool) *sexp.Node {
	n := sexp.Key("stroke", sexp.Key("width", sexp.Float(s.Width)))
	if withStyle {
		n.Append(sexp.Key("type", sexp.Atom(s.Style)))
	}
	if s.Color != nil {
		n.Append(s.Color.ToNode())
	}
	return n
}

func strokeFromNode(parent *sexp.Node) Stroke {
	s := DefaultStroke()
	stroke, ok := sexp.Find(parent, "stroke")
	if !ok {
		return s
	}
	s.Width = sexp.ChildFloat(stroke, "width", s.Width)
	if style := sexp.ChildString(stroke, "type"); style != "" {
		s.Style = style
	}
	if c, ok := sexp.Find(stroke, "color"); ok {
		s.Color = colorFromNode(c)
	}
	return s
}

// Fill carries the fill style shared by all graphic items.
type Fill struct {
	Type  string // none, outline, background
	Color *Color
}

func (f Fill) toNode() *sexp.Node {
	n := sexp.Key("fill", sexp.Key("type", sexp.Atom(f.Type)))
	if f.Color != nil {
		n.Append(f.Color.ToNode())
	}
	return n
}

func fillFromNode(parent *sexp.Node, fallback string) Fill {
	f := Fill{Type: fallback}
	fill, ok := sexp.Find(parent, "fill")
	if !ok {
		return f
	}
	if t := sexp.ChildString(fill, "type"); t != "" {
		f.Type = t
	}
	if c, ok := sexp.Find(fill, "color"); ok {
		f.Color = colorFromNode(c)
	}
	return f
}

// Circle is a circular graphic item.
type Circle struct {
	CenterX  float64
	CenterY  float64
	Radius   float64
	Stroke   Stroke
	Fill     Fill
	Unit     int
	DeMorgan int
}

func (c *Circle) ToNode() *sexp.Node {
	return sexp.Key("circle",
		sexp.Key("center", sexp.Float(c.CenterX), sexp.Float(c.CenterY)),
		sexp.Key("radius", sexp.Float(c.Radius)),
		c.Stroke.toNode(false),
		c.Fill.toNode(),
	)
}

func circleFromNode(n *sexp.Node, unit, demorgan int) (*Circle, error) {
	c := &Circle{Unit: unit, DeMorgan: demorgan}
	center, ok := sexp.Find(n, "center")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "circle", Msg: "missing (center ...)"}
	}
	var err error
	if c.CenterX, err = sexp.GetFloat(center, 1); err != nil {
		return nil, err
	}
	if c.CenterY, err = sexp.GetFloat(center, 2); err != nil {
		return nil, err
	}
	c.Radius = sexp.ChildFloat(n, "radius", 0)
	c.Stroke = strokeFromNode(n)
	c.Fill = fillFromNode(n, "none")
	return c, nil
}

// Arc is a three-point arc (start, mid, end).
type Arc struct {
	StartX, StartY float64
	EndX, EndY     float64
	MidX, MidY     float64
	Stroke         Stroke
	Fill           Fill
	Unit           int
	DeMorgan       int
}

func (a *Arc) ToNode() *sexp.Node {
	return sexp.Key("arc",
		sexp.Key("start", sexp.Float(a.StartX), sexp.Float(a.StartY)),
		sexp.Key("mid", sexp.Float(a.MidX), sexp.Float(a.MidY)),
		sexp.Key("end", sexp.Float(a.EndX), sexp.Float(a.EndY)),
		a.Stroke.toNode(true),
		a.Fill.toNode(),
	)
}

// Degenerate reports whether the arc collapses to a point.
func (a *Arc) Degenerate() bool {
	return a.StartX == a.EndX && a.StartY == a.EndY &&
		a.StartX == a.MidX && a.StartY == a.MidY
}

func arcFromNode(n *sexp.Node, unit, demorgan int) (*Arc, error) {
	a := &Arc{Unit: unit, DeMorgan: demorgan}
	var err error
	if a.StartX, a.StartY, err = xyOf(n, "start"); err != nil {
		return nil, err
	}
	if a.MidX, a.MidY, err = xyOf(n, "mid"); err != nil {
		return nil, err
	}
	if a.EndX, a.EndY, err = xyOf(n, "end"); err != nil {
		return nil, err
	}
	a.Stroke = strokeFromNode(n)
	a.Fill = fillFromNode(n, "none")
	return a, nil
}

// Polyline is a connected sequence of line segments.
type Polyline struct {
	Points   []Point
	Stroke   Stroke
	Fill     Fill
	Unit     int
	DeMorgan int
}

func (p *Polyline) ToNode() *sexp.Node {
	pts := sexp.Key("pts")
	for _, pt := range p.Points {
		pts.Append(pt.ToNode())
	}
	return sexp.Key("polyline", pts, p.Stroke.toNode(true), p.Fill.toNode())
}

// Closed reports whether the last point returns to the first. A closed
// triangle stores four points (A-B-C-A).
func (p *Polyline) Closed() bool {
	if len(p.Points) <= 3 {
		return false
	}
	return p.Points[0] == p.Points[len(p.Points)-1]
}

// IsRectangle reports whether the polyline traces an axis-aligned
// rectangle: five points, closed, every segment horizontal or vertical.
func (p *Polyline) IsRectangle() bool {
	if len(p.Points) != 5 || !p.Closed() {
		return false
	}
	prev := p.Points[0]
	for _, pt := range p.Points[1:] {
		dx := pt.X - prev.X
		dy := pt.Y - prev.Y
		if dx != 0 && dy != 0 {
			return false
		}
		prev = pt
	}
	return true
}

// BoundingBox returns minx, miny, maxx, maxy of the points.
func (p *Polyline) BoundingBox() (minX, minY, maxX, maxY float64) {
	if len(p.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points[1:] {
		minX = math.Min(minX, pt.X)
		maxX = math.Max(maxX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}
	return minX, minY, maxX, maxY
}

// Center returns the center of the bounding box.
func (p *Polyline) Center() (float64, float64) {
	minX, minY, maxX, maxY := p.BoundingBox()
	return (minX + maxX) / 2, (minY + maxY) / 2
}

func polylineFromNode(n *sexp.Node, unit, demorgan int) (*Polyline, error) {
	p := &Polyline{Unit: unit, DeMorgan: demorgan}
	var err error
	if p.Points, err = pointsOf(n); err != nil {
		return nil, err
	}
	p.Stroke = strokeFromNode(n)
	p.Fill = fillFromNode(n, "none")
	return p, nil
}

// Bezier is a cubic bezier curve given by four control points.
type Bezier struct {
	Points   []Point
	Stroke   Stroke
	Fill     Fill
	Unit     int
	DeMorgan int
}

func (b *Bezier) ToNode() *sexp.Node {
	pts := sexp.Key("pts")
	for _, pt := range b.Points {
		pts.Append(pt.ToNode())
	}
	return sexp.Key("bezier", pts, b.Stroke.toNode(true), b.Fill.toNode())
}

func bezierFromNode(n *sexp.Node, unit, demorgan int) (*Bezier, error) {
	b := &Bezier{Unit: unit, DeMorgan: demorgan}
	var err error
	if b.Points, err = pointsOf(n); err != nil {
		return nil, err
	}
	b.Stroke = strokeFromNode(n)
	b.Fill = fillFromNode(n, "none")
	return b, nil
}

// Rectangle is the legacy rectangle item. Current KiCad encodes symbol
// outlines as polylines but v6 files still carry these.
type Rectangle struct {
	StartX, StartY float64
	EndX, EndY     float64
	Stroke         Stroke
	Fill           Fill
	Unit           int
	DeMorgan       int
}

// RectangleMil builds a rectangle from mil coordinates with the
// standard background fill.
func RectangleMil(sx, sy, ex, ey float64) *Rectangle {
	return &Rectangle{
		StartX: MilToMM(sx), StartY: MilToMM(sy),
		EndX: MilToMM(ex), EndY: MilToMM(ey),
		Stroke: DefaultStroke(),
		Fill:   Fill{Type: "background"},
	}
}

func (r *Rectangle) ToNode() *sexp.Node {
	return sexp.Key("rectangle",
		sexp.Key("start", sexp.Float(r.StartX), sexp.Float(r.StartY)),
		sexp.Key("end", sexp.Float(r.EndX), sexp.Float(r.EndY)),
		r.Stroke.toNode(true),
		r.Fill.toNode(),
	)
}

// Area returns the rectangle area.
func (r *Rectangle) Area() float64 {
	return math.Abs(r.StartX-r.EndX) * math.Abs(r.StartY-r.EndY)
}

// Center returns the rectangle center.
func (r *Rectangle) Center() (float64, float64) {
	return (r.StartX + r.EndX) / 2, (r.StartY + r.EndY) / 2
}

// AsPolyline converts the rectangle to its closed polyline form.
func (r *Rectangle) AsPolyline() *Polyline {
	return &Polyline{
		Points: []Point{
			{r.StartX, r.StartY},
			{r.EndX, r.StartY},
			{r.EndX, r.EndY},
			{r.StartX, r.EndY},
			{r.StartX, r.StartY},
		},
		Stroke:   r.Stroke,
		Fill:     r.Fill,
		Unit:     r.Unit,
		DeMorgan: r.DeMorgan,
	}
}

func rectangleFromNode(n *sexp.Node, unit, demorgan int) (*Rectangle, error) {
	r := &Rectangle{Unit: unit, DeMorgan: demorgan}
	var err error
	if r.StartX, r.StartY, err = xyOf(n, "start"); err != nil {
		return nil, err
	}
	if r.EndX, r.EndY, err = xyOf(n, "end"); err != nil {
		return nil, err
	}
	r.Stroke = strokeFromNode(n)
	r.Fill = fillFromNode(n, "background")
	return r, nil
}

// Text is a free text item inside a symbol body.
type Text struct {
	Text     string
	PosX     float64
	PosY     float64
	Rotation float64
	Effect   *TextEffect
	Hidden   bool
	Unit     int
	DeMorgan int
}

func (t *Text) ToNode() *sexp.Node {
	hide := "no"
	if t.Hidden {
		hide = "yes"
	}
	return sexp.Key("text",
		sexp.Str(t.Text),
		sexp.Key("at", sexp.Float(t.PosX), sexp.Float(t.PosY), sexp.Float(t.Rotation)),
		sexp.Key("hide", sexp.Atom(hide)),
		t.Effect.ToNode(),
	)
}

func textFromNode(n *sexp.Node, unit, demorgan int) (*Text, error) {
	t := &Text{Unit: unit, DeMorgan: demorgan}
	var err error
	if t.Text, err = sexp.GetString(n, 1); err != nil {
		return nil, err
	}
	at, ok := sexp.Find(n, "at")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "text", Msg: "missing (at ...)"}
	}
	if t.PosX, err = sexp.GetFloat(at, 1); err != nil {
		return nil, err
	}
	if t.PosY, err = sexp.GetFloat(at, 2); err != nil {
		return nil, err
	}
	t.Rotation, _ = sexp.GetFloat(at, 3)
	t.Hidden = sexp.BoolFlag(n, "hide", false)
	eff, ok := sexp.Find(n, "effects")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "text", Msg: "missing (effects ...)"}
	}
	if t.Effect, err = effectFromNode(eff); err != nil {
		return nil, err
	}
	return t, nil
}

func xyOf(n *sexp.Node, key string) (float64, float64, error) {
	child, ok := sexp.Find(n, key)
	if !ok {
		return 0, 0, &sexp.SchemaError{Keyword: n.Keyword(), Msg: "missing (" + key + " ...)"}
	}
	x, err := sexp.GetFloat(child, 1)
	if err != nil {
		return 0, 0, err
	}
	y, err := sexp.GetFloat(child, 2)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func pointsOf(n *sexp.Node) ([]Point, error) {
	pts, ok := sexp.Find(n, "pts")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: n.Keyword(), Msg: "missing (pts ...)"}
	}
	var points []Point
	for _, xy := range sexp.FindAll(pts, "xy") {
		x, err := sexp.GetFloat(xy, 1)
		if err != nil {
			return nil, err
		}
		y, err := sexp.GetFloat(xy, 2)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}

func (c *Circle) onUnit(unit, demorgan int) bool {
	return c.Unit == unit && c.DeMorgan == demorgan
}

func (a *Arc) onUnit(unit, demorgan int) bool {
	return a.Unit == unit && a.DeMorgan == demorgan
}

func (p *Polyline) onUnit(unit, demorgan int) bool {
	return p.Unit == unit && p.DeMorgan == demorgan
}

func (b *Bezier) onUnit(unit, demorgan int) bool {
	return b.Unit == unit && b.DeMorgan == demorgan
}

func (r *Rectangle) onUnit(unit, demorgan int) bool {
	return r.Unit == unit && r.DeMorgan == demorgan
}

func (t *Text) onUnit(unit, demorgan int) bool {
	return t.Unit == unit && t.DeMorgan == demorgan
}
