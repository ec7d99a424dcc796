package footprint

import (
	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// Font is the text styling of a footprint text item. Face is empty for
// the built-in stroke font.
type Font struct {
	Width     float64
	Height    float64
	Thickness float64
	Bold      bool
	Italic    bool
	Face      string
}

func defaultFont() Font {
	return Font{Width: 1.0, Height: 1.0, Thickness: 0.15}
}

func (f Font) toNode() *sexp.Node {
	font := sexp.Key("font")
	if f.Face != "" {
		font.Append(sexp.Key("face", sexp.Str(f.Face)))
	}
	font.Append(sexp.Key("size", sexp.Float(f.Height), sexp.Float(f.Width)))
	if f.Thickness != 0 {
		font.Append(sexp.Key("thickness", sexp.Float(f.Thickness)))
	}
	if f.Bold {
		font.Append(sexp.Key("bold", sexp.Atom("yes")))
	}
	if f.Italic {
		font.Append(sexp.Key("italic", sexp.Atom("yes")))
	}
	return font
}

func fontFromNode(parent *sexp.Node) Font {
	f := defaultFont()
	effects, ok := sexp.Find(parent, "effects")
	if !ok {
		return f
	}
	font, ok := sexp.Find(effects, "font")
	if !ok {
		return f
	}
	if size, ok := sexp.Find(font, "size"); ok {
		f.Height, _ = sexp.GetFloat(size, 1)
		f.Width, _ = sexp.GetFloat(size, 2)
	}
	f.Thickness = sexp.ChildFloat(font, "thickness", 0)
	f.Bold = sexp.BoolFlag(font, "bold", false)
	f.Italic = sexp.BoolFlag(font, "italic", false)
	f.Face = sexp.ChildString(font, "face")
	return f
}

// Text is a footprint text item: a named field like Reference or
// Value, or a free user text.
type Text struct {
	Kind     string // property name for fields, "user" for fp_text
	Text     string
	PosX     float64
	PosY     float64
	Rotation float64
	Unlocked bool
	Layer    string
	Hidden   bool
	Font     Font
	Raw      []*sexp.Node
}

// IsField reports whether the text is a named property field rather
// than a free text.
func (t *Text) IsField() bool { return t.Kind != "user" }

func (t *Text) toNode() *sexp.Node {
	var n *sexp.Node
	if t.IsField() {
		n = sexp.Key("property", sexp.Str(t.Kind), sexp.Str(t.Text))
	} else {
		n = sexp.Key("fp_text", sexp.Atom("user"), sexp.Str(t.Text))
	}
	at := sexp.Key("at", sexp.Float(t.PosX), sexp.Float(t.PosY))
	if t.Rotation != 0 {
		at.Append(sexp.Float(t.Rotation))
	}
	n.Append(at)
	if t.Unlocked {
		n.Append(sexp.Key("unlocked", sexp.Atom("yes")))
	}
	n.Append(sexp.Key("layer", sexp.Str(t.Layer)))
	if t.Hidden {
		n.Append(sexp.Key("hide", sexp.Atom("yes")))
	}
	n.Append(sexp.Key("effects", t.Font.toNode()))
	n.Append(t.Raw...)
	return n
}

func textFromNode(n *sexp.Node) (*Text, error) {
	t := &Text{Font: defaultFont()}
	var err error
	idx := 1
	if n.Keyword() == "property" {
		if t.Kind, err = sexp.GetString(n, 1); err != nil {
			return nil, err
		}
		idx = 2
	} else {
		t.Kind = "user"
		if kind, kindErr := sexp.GetString(n, 1); kindErr == nil && kind != "user" {
			// legacy reference/value fp_text items
			t.Kind = kind
		}
	}
	if t.Text, err = sexp.GetString(n, idx); err != nil {
		return nil, err
	}
	if at, ok := sexp.Find(n, "at"); ok {
		t.PosX, _ = sexp.GetFloat(at, 1)
		t.PosY, _ = sexp.GetFloat(at, 2)
		t.Rotation, _ = sexp.GetFloat(at, 3)
	}
	t.Unlocked = sexp.BoolFlag(n, "unlocked", false)
	t.Layer = sexp.ChildString(n, "layer")
	t.Hidden = sexp.BoolFlag(n, "hide", false)
	t.Font = fontFromNode(n)

	for _, child := range sexp.Items(n) {
		if !child.IsList() {
			continue
		}
		switch child.Keyword() {
		case "at", "unlocked", "layer", "hide", "effects":
		default:
			t.Raw = append(t.Raw, child)
		}
	}
	return t, nil
}

// Pad is a footprint pad.
type Pad struct {
	Number   string
	Type     string // smd, thru_hole, np_thru_hole, connect
	Shape    string // circle, rect, oval, roundrect, custom, ...
	PosX     float64
	PosY     float64
	Rotation float64
	SizeX    float64
	SizeY    float64
	Drill    float64
	Layers   []string
	Raw      []*sexp.Node
}

func (p *Pad) toNode() *sexp.Node {
	n := sexp.Key("pad", sexp.Str(p.Number), sexp.Atom(p.Type), sexp.Atom(p.Shape))
	at := sexp.Key("at", sexp.Float(p.PosX), sexp.Float(p.PosY))
	if p.Rotation != 0 {
		at.Append(sexp.Float(p.Rotation))
	}
	n.Append(at)
	n.Append(sexp.Key("size", sexp.Float(p.SizeX), sexp.Float(p.SizeY)))
	if p.Drill != 0 {
		n.Append(sexp.Key("drill", sexp.Float(p.Drill)))
	}
	layers := sexp.Key("layers")
	for _, l := range p.Layers {
		layers.Append(sexp.Str(l))
	}
	n.Append(layers)
	n.Append(p.Raw...)
	return n
}

func padFromNode(n *sexp.Node) (*Pad, error) {
	p := &Pad{}
	var err error
	if p.Number, err = sexp.GetString(n, 1); err != nil {
		return nil, err
	}
	if p.Type, err = sexp.GetString(n, 2); err != nil {
		return nil, err
	}
	if p.Shape, err = sexp.GetString(n, 3); err != nil {
		return nil, err
	}
	at, ok := sexp.Find(n, "at")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "pad", Msg: "missing (at ...)"}
	}
	if p.PosX, err = sexp.GetFloat(at, 1); err != nil {
		return nil, err
	}
	if p.PosY, err = sexp.GetFloat(at, 2); err != nil {
		return nil, err
	}
	p.Rotation, _ = sexp.GetFloat(at, 3)
	if size, ok := sexp.Find(n, "size"); ok {
		if p.SizeX, err = sexp.GetFloat(size, 1); err != nil {
			return nil, err
		}
		if p.SizeY, err = sexp.GetFloat(size, 2); err != nil {
			return nil, err
		}
	}
	p.Drill = sexp.ChildFloat(n, "drill", 0)
	if layers, ok := sexp.Find(n, "layers"); ok {
		for _, l := range sexp.Items(layers) {
			p.Layers = append(p.Layers, l.Text())
		}
	}
	for _, child := range sexp.Items(n) {
		if !child.IsList() {
			continue
		}
		switch child.Keyword() {
		case "at", "size", "drill", "layers":
		default:
			p.Raw = append(p.Raw, child)
		}
	}
	return p, nil
}

// Model is a 3D model reference attached to a footprint.
type Model struct {
	Path   string
	Hidden bool
	Offset [3]float64
	Scale  [3]float64
	Rotate [3]float64
}

func xyzNode(key string, v [3]float64) *sexp.Node {
	return sexp.Key(key, sexp.Key("xyz", sexp.Float(v[0]), sexp.Float(v[1]), sexp.Float(v[2])))
}

func (m *Model) toNode() *sexp.Node {
	n := sexp.Key("model", sexp.Str(m.Path))
	if m.Hidden {
		n.Append(sexp.Key("hide", sexp.Atom("yes")))
	}
	n.Append(xyzNode("offset", m.Offset))
	n.Append(xyzNode("scale", m.Scale))
	n.Append(xyzNode("rotate", m.Rotate))
	return n
}

func xyzOf(parent *sexp.Node, key string, fallback float64) [3]float64 {
	v := [3]float64{fallback, fallback, fallback}
	outer, ok := sexp.Find(parent, key)
	if !ok {
		return v
	}
	xyz, ok := sexp.Find(outer, "xyz")
	if !ok {
		return v
	}
	for i := 0; i < 3; i++ {
		if f, err := sexp.GetFloat(xyz, i+1); err == nil {
			v[i] = f
		}
	}
	return v
}

func modelFromNode(n *sexp.Node) (*Model, error) {
	path, err := sexp.GetString(n, 1)
	if err != nil {
		return nil, err
	}
	return &Model{
		Path:   path,
		Hidden: sexp.BoolFlag(n, "hide", false),
		Offset: xyzOf(n, "offset", 0),
		Scale:  xyzOf(n, "scale", 1),
		Rotate: xyzOf(n, "rotate", 0),
	}, nil
}
