package symbol

import (
	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// Color is an RGBA color. The symbol format defines it but library
// files rarely carry one.
type Color struct {
	R, G, B int
	A       float64
}

func (c *Color) ToNode() *sexp.Node {
	return sexp.Key("color", sexp.Int(c.R), sexp.Int(c.G), sexp.Int(c.B), sexp.Float(c.A))
}

func colorFromNode(n *sexp.Node) *Color {
	r, err1 := sexp.GetInt(n, 1)
	g, err2 := sexp.GetInt(n, 2)
	b, err3 := sexp.GetInt(n, 3)
	a, err4 := sexp.GetFloat(n, 4)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil
	}
	return &Color{R: r, G: g, B: b, A: a}
}

// TextEffect describes how a text item is rendered: font size, style
// and justification.
type TextEffect struct {
	SizeX    float64
	SizeY    float64
	Italic   bool
	Bold     bool
	Mirrored bool
	HJustify string // left, center, right
	VJustify string // top, center, bottom
	Color    *Color
	Face     string // empty means the stroke font
}

// DefaultTextEffect is the 50mil (1.27mm) effect KiCad applies to new
// text items.
func DefaultTextEffect() *TextEffect {
	return &TextEffect{SizeX: 1.27, SizeY: 1.27, HJustify: "center", VJustify: "center"}
}

// TextEffectMil builds an effect with a square font of the given size
// in mils.
func TextEffectMil(size float64) *TextEffect {
	mm := MilToMM(size)
	return &TextEffect{SizeX: mm, SizeY: mm, HJustify: "center", VJustify: "center"}
}

func (e *TextEffect) ToNode() *sexp.Node {
	font := sexp.Key("font", sexp.Key("size", sexp.Float(e.SizeX), sexp.Float(e.SizeY)))
	if e.Face != "" {
		font.Append(sexp.Key("face", sexp.Str(e.Face)))
	}
	if e.Italic {
		font.Append(sexp.Atom("italic"))
	}
	if e.Bold {
		font.Append(sexp.Atom("bold"))
	}

	n := sexp.Key("effects", font)
	if e.Mirrored {
		n.Append(sexp.Atom("mirror"))
	}
	if e.Color != nil {
		n.Append(e.Color.ToNode())
	}

	justify := sexp.Key("justify")
	if e.HJustify != "" && e.HJustify != "center" {
		justify.Append(sexp.Atom(e.HJustify))
	}
	if e.VJustify != "" && e.VJustify != "center" {
		justify.Append(sexp.Atom(e.VJustify))
	}
	if justify.Len() > 1 {
		n.Append(justify)
	}
	return n
}

func effectFromNode(n *sexp.Node) (*TextEffect, error) {
	if n.Keyword() != "effects" {
		return nil, &sexp.SchemaError{Keyword: n.Keyword(), Msg: "expected (effects ...)"}
	}
	e := DefaultTextEffect()

	font, ok := sexp.Find(n, "font")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "effects", Msg: "missing (font ...)"}
	}
	size, ok := sexp.Find(font, "size")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "font", Msg: "missing (size ...)"}
	}
	var err error
	if e.SizeX, err = sexp.GetFloat(size, 1); err != nil {
		return nil, err
	}
	if e.SizeY, err = sexp.GetFloat(size, 2); err != nil {
		return nil, err
	}
	e.Face = sexp.ChildString(font, "face")
	e.Italic = sexp.HasAtom(font, "italic")
	e.Bold = sexp.HasAtom(font, "bold")

	e.Mirrored = sexp.HasAtom(n, "mirror")
	if c, ok := sexp.Find(n, "color"); ok {
		e.Color = colorFromNode(c)
	}
	if justify, ok := sexp.Find(n, "justify"); ok {
		for _, item := range sexp.Items(justify) {
			switch item.Text() {
			case "left", "right":
				e.HJustify = item.Text()
			case "top", "bottom":
				e.VJustify = item.Text()
			}
		}
	}
	return e, nil
}
