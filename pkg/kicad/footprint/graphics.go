package footprint

import (
	"math"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// Graph is any drawable footprint item that lives on a layer.
type Graph interface {
	GraphLayer() string
	// Bounds returns minx, miny, maxx, maxy of the item.
	Bounds() (float64, float64, float64, float64)
	// Width returns the stroke width.
	Width() float64
	toNode() *sexp.Node
}

type stroke struct {
	width float64
	style string
}

func (s stroke) toNode() *sexp.Node {
	style := s.style
	if style == "" {
		style = "solid"
	}
	return sexp.Key("stroke", sexp.Key("width", sexp.Float(s.width)), sexp.Key("type", sexp.Atom(style)))
}

func strokeOf(n *sexp.Node) stroke {
	s := stroke{}
	if strokeNode, ok := sexp.Find(n, "stroke"); ok {
		s.width = sexp.ChildFloat(strokeNode, "width", 0)
		s.style = sexp.ChildString(strokeNode, "type")
		return s
	}
	// legacy (width W) form
	s.width = sexp.ChildFloat(n, "width", 0)
	return s
}

// Line is an fp_line segment.
type Line struct {
	StartX, StartY float64
	EndX, EndY     float64
	Layer          string
	Stroke         stroke
	Raw            []*sexp.Node
}

func (l *Line) GraphLayer() string { return l.Layer }
func (l *Line) Width() float64     { return l.Stroke.width }

func (l *Line) Bounds() (float64, float64, float64, float64) {
	return math.Min(l.StartX, l.EndX), math.Min(l.StartY, l.EndY),
		math.Max(l.StartX, l.EndX), math.Max(l.StartY, l.EndY)
}

// Length returns the segment length.
func (l *Line) Length() float64 {
	return math.Hypot(l.EndX-l.StartX, l.EndY-l.StartY)
}

func (l *Line) toNode() *sexp.Node {
	n := sexp.Key("fp_line",
		sexp.Key("start", sexp.Float(l.StartX), sexp.Float(l.StartY)),
		sexp.Key("end", sexp.Float(l.EndX), sexp.Float(l.EndY)),
		l.Stroke.toNode(),
		sexp.Key("layer", sexp.Str(l.Layer)),
	)
	n.Append(l.Raw...)
	return n
}

// Rect is an fp_rect item.
type Rect struct {
	StartX, StartY float64
	EndX, EndY     float64
	Layer          string
	Stroke         stroke
	FillType       string
	Raw            []*sexp.Node
}

func (r *Rect) GraphLayer() string { return r.Layer }
func (r *Rect) Width() float64     { return r.Stroke.width }

func (r *Rect) Bounds() (float64, float64, float64, float64) {
	return math.Min(r.StartX, r.EndX), math.Min(r.StartY, r.EndY),
		math.Max(r.StartX, r.EndX), math.Max(r.StartY, r.EndY)
}

func (r *Rect) toNode() *sexp.Node {
	n := sexp.Key("fp_rect",
		sexp.Key("start", sexp.Float(r.StartX), sexp.Float(r.StartY)),
		sexp.Key("end", sexp.Float(r.EndX), sexp.Float(r.EndY)),
		r.Stroke.toNode(),
	)
	if r.FillType != "" {
		n.Append(sexp.Key("fill", sexp.Atom(r.FillType)))
	}
	n.Append(sexp.Key("layer", sexp.Str(r.Layer)))
	n.Append(r.Raw...)
	return n
}

// Circle is an fp_circle item described by its center and a point on
// the outline.
type Circle struct {
	CenterX, CenterY float64
	EndX, EndY       float64
	Layer            string
	Stroke           stroke
	FillType         string
	Raw              []*sexp.Node
}

func (c *Circle) GraphLayer() string { return c.Layer }
func (c *Circle) Width() float64     { return c.Stroke.width }

// Radius returns the circle radius.
func (c *Circle) Radius() float64 {
	return math.Hypot(c.EndX-c.CenterX, c.EndY-c.CenterY)
}

func (c *Circle) Bounds() (float64, float64, float64, float64) {
	r := c.Radius()
	return c.CenterX - r, c.CenterY - r, c.CenterX + r, c.CenterY + r
}

func (c *Circle) toNode() *sexp.Node {
	n := sexp.Key("fp_circle",
		sexp.Key("center", sexp.Float(c.CenterX), sexp.Float(c.CenterY)),
		sexp.Key("end", sexp.Float(c.EndX), sexp.Float(c.EndY)),
		c.Stroke.toNode(),
	)
	if c.FillType != "" {
		n.Append(sexp.Key("fill", sexp.Atom(c.FillType)))
	}
	n.Append(sexp.Key("layer", sexp.Str(c.Layer)))
	n.Append(c.Raw...)
	return n
}

// Arc is an fp_arc item (start, mid, end).
type Arc struct {
	StartX, StartY float64
	MidX, MidY     float64
	EndX, EndY     float64
	Layer          string
	Stroke         stroke
	Raw            []*sexp.Node
}

func (a *Arc) GraphLayer() string { return a.Layer }
func (a *Arc) Width() float64     { return a.Stroke.width }

func (a *Arc) Bounds() (float64, float64, float64, float64) {
	minX := math.Min(a.StartX, math.Min(a.MidX, a.EndX))
	minY := math.Min(a.StartY, math.Min(a.MidY, a.EndY))
	maxX := math.Max(a.StartX, math.Max(a.MidX, a.EndX))
	maxY := math.Max(a.StartY, math.Max(a.MidY, a.EndY))
	return minX, minY, maxX, maxY
}

func (a *Arc) toNode() *sexp.Node {
	n := sexp.Key("fp_arc",
		sexp.Key("start", sexp.Float(a.StartX), sexp.Float(a.StartY)),
		sexp.Key("mid", sexp.Float(a.MidX), sexp.Float(a.MidY)),
		sexp.Key("end", sexp.Float(a.EndX), sexp.Float(a.EndY)),
		a.Stroke.toNode(),
		sexp.Key("layer", sexp.Str(a.Layer)),
	)
	n.Append(a.Raw...)
	return n
}

// Poly is an fp_poly item.
type Poly struct {
	Points   [][2]float64
	Layer    string
	Stroke   stroke
	FillType string
	Raw      []*sexp.Node
}

func (p *Poly) GraphLayer() string { return p.Layer }
func (p *Poly) Width() float64     { return p.Stroke.width }

func (p *Poly) Bounds() (float64, float64, float64, float64) {
	if len(p.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY := p.Points[0][0], p.Points[0][1]
	maxX, maxY := minX, minY
	for _, pt := range p.Points[1:] {
		minX = math.Min(minX, pt[0])
		minY = math.Min(minY, pt[1])
		maxX = math.Max(maxX, pt[0])
		maxY = math.Max(maxY, pt[1])
	}
	return minX, minY, maxX, maxY
}

func (p *Poly) toNode() *sexp.Node {
	pts := sexp.Key("pts")
	for _, pt := range p.Points {
		pts.Append(sexp.Key("xy", sexp.Float(pt[0]), sexp.Float(pt[1])))
	}
	n := sexp.Key("fp_poly", pts, p.Stroke.toNode())
	if p.FillType != "" {
		n.Append(sexp.Key("fill", sexp.Atom(p.FillType)))
	}
	n.Append(sexp.Key("layer", sexp.Str(p.Layer)))
	n.Append(p.Raw...)
	return n
}

func graphRaw(n *sexp.Node, known ...string) []*sexp.Node {
	isKnown := func(kw string) bool {
		for _, k := range known {
			if kw == k {
				return true
			}
		}
		return false
	}
	var raw []*sexp.Node
	for _, child := range sexp.Items(n) {
		if child.IsList() && !isKnown(child.Keyword()) {
			raw = append(raw, child)
		}
	}
	return raw
}

func lineFromNode(n *sexp.Node) (*Line, error) {
	l := &Line{Layer: sexp.ChildString(n, "layer"), Stroke: strokeOf(n)}
	var err error
	if l.StartX, l.StartY, err = xyPair(n, "start"); err != nil {
		return nil, err
	}
	if l.EndX, l.EndY, err = xyPair(n, "end"); err != nil {
		return nil, err
	}
	l.Raw = graphRaw(n, "start", "end", "stroke", "width", "layer")
	return l, nil
}

func rectFromNode(n *sexp.Node) (*Rect, error) {
	r := &Rect{Layer: sexp.ChildString(n, "layer"), Stroke: strokeOf(n)}
	var err error
	if r.StartX, r.StartY, err = xyPair(n, "start"); err != nil {
		return nil, err
	}
	if r.EndX, r.EndY, err = xyPair(n, "end"); err != nil {
		return nil, err
	}
	if fill, ok := sexp.Find(n, "fill"); ok {
		r.FillType = fillType(fill)
	}
	r.Raw = graphRaw(n, "start", "end", "stroke", "width", "layer", "fill")
	return r, nil
}

func circleFromNode(n *sexp.Node) (*Circle, error) {
	c := &Circle{Layer: sexp.ChildString(n, "layer"), Stroke: strokeOf(n)}
	var err error
	if c.CenterX, c.CenterY, err = xyPair(n, "center"); err != nil {
		return nil, err
	}
	if c.EndX, c.EndY, err = xyPair(n, "end"); err != nil {
		return nil, err
	}
	if fill, ok := sexp.Find(n, "fill"); ok {
		c.FillType = fillType(fill)
	}
	c.Raw = graphRaw(n, "center", "end", "stroke", "width", "layer", "fill")
	return c, nil
}

func arcFromNode(n *sexp.Node) (*Arc, error) {
	a := &Arc{Layer: sexp.ChildString(n, "layer"), Stroke: strokeOf(n)}
	var err error
	if a.StartX, a.StartY, err = xyPair(n, "start"); err != nil {
		return nil, err
	}
	if a.MidX, a.MidY, err = xyPair(n, "mid"); err != nil {
		return nil, err
	}
	if a.EndX, a.EndY, err = xyPair(n, "end"); err != nil {
		return nil, err
	}
	a.Raw = graphRaw(n, "start", "mid", "end", "stroke", "width", "layer")
	return a, nil
}

func polyFromNode(n *sexp.Node) (*Poly, error) {
	p := &Poly{Layer: sexp.ChildString(n, "layer"), Stroke: strokeOf(n)}
	pts, ok := sexp.Find(n, "pts")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "fp_poly", Msg: "missing (pts ...)"}
	}
	for _, xy := range sexp.FindAll(pts, "xy") {
		x, err := sexp.GetFloat(xy, 1)
		if err != nil {
			return nil, err
		}
		y, err := sexp.GetFloat(xy, 2)
		if err != nil {
			return nil, err
		}
		p.Points = append(p.Points, [2]float64{x, y})
	}
	if fill, ok := sexp.Find(n, "fill"); ok {
		p.FillType = fillType(fill)
	}
	p.Raw = graphRaw(n, "pts", "stroke", "width", "layer", "fill")
	return p, nil
}

// fillType handles both (fill solid) and the legacy (fill (type solid)).
func fillType(fill *sexp.Node) string {
	if t := sexp.ChildString(fill, "type"); t != "" {
		return t
	}
	s, _ := sexp.GetString(fill, 1)
	return s
}

func xyPair(n *sexp.Node, key string) (float64, float64, error) {
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
