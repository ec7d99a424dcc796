package symbol

import (
	"math"
	"sort"
	"strconv"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// AltFunction is an alternate pin function, e.g. a GPIO that can also
// act as UART TX.
type AltFunction struct {
	Name  string
	EType string
	Shape string
}

func (a *AltFunction) ToNode() *sexp.Node {
	return sexp.Key("alternate", sexp.Str(a.Name), sexp.Atom(a.EType), sexp.Atom(a.Shape))
}

func altFunctionFromNode(n *sexp.Node) (*AltFunction, error) {
	name, err := sexp.GetString(n, 1)
	if err != nil {
		return nil, err
	}
	etype, err := sexp.GetString(n, 2)
	if err != nil {
		return nil, err
	}
	shape, err := sexp.GetString(n, 3)
	if err != nil {
		return nil, err
	}
	return &AltFunction{Name: name, EType: etype, Shape: shape}, nil
}

// Pin is a symbol pin. Coordinates are millimeters, rotation is one of
// 0, 90, 180, 270.
type Pin struct {
	Name         string
	Number       string
	EType        string // passive, input, output, power_in, ...
	PosX         float64
	PosY         float64
	Rotation     float64
	Shape        string // line, inverted, clock, ...
	Length       float64
	Global       bool
	Hidden       bool
	NumberInt    *int // set when Number parses as a decimal integer
	NameEffect   *TextEffect
	NumberEffect *TextEffect
	AltFuncs     []*AltFunction
	Unit         int
	DeMorgan     int
}

func (p *Pin) onUnit(unit, demorgan int) bool {
	return p.Unit == unit && p.DeMorgan == demorgan
}

// Direction returns the compass letter for the pin orientation.
func (p *Pin) Direction() string {
	d, _ := RotationToDirection(p.Rotation)
	return d
}

// SamePos reports whether the pin sits at the given position, compared
// at micrometre precision to absorb float noise.
func (p *Pin) SamePos(x, y float64) bool {
	return round6(p.PosX) == round6(x) && round6(p.PosY) == round6(y)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func (p *Pin) ToNode() *sexp.Node {
	n := sexp.Key("pin", sexp.Atom(p.EType), sexp.Atom(p.Shape),
		sexp.Key("at", sexp.Float(p.PosX), sexp.Float(p.PosY), sexp.Float(p.Rotation)))
	if p.Global {
		n.Append(sexp.Atom("global"))
	}
	n.Append(sexp.Key("length", sexp.Float(p.Length)))
	if p.Hidden {
		n.Append(sexp.Key("hide", sexp.Atom("yes")))
	}

	name := sexp.Key("name", sexp.Str(p.Name))
	if p.NameEffect != nil {
		name.Append(p.NameEffect.ToNode())
	}
	n.Append(name)

	number := sexp.Key("number", sexp.Str(p.Number))
	if p.NumberEffect != nil {
		number.Append(p.NumberEffect.ToNode())
	}
	n.Append(number)

	// KiCad stores alternates sorted by name.
	alts := make([]*AltFunction, len(p.AltFuncs))
	copy(alts, p.AltFuncs)
	sort.Slice(alts, func(i, j int) bool { return alts[i].Name < alts[j].Name })
	for _, alt := range alts {
		n.Append(alt.ToNode())
	}
	return n
}

func pinFromNode(n *sexp.Node, unit, demorgan int) (*Pin, error) {
	p := &Pin{Unit: unit, DeMorgan: demorgan}

	var err error
	if p.EType, err = sexp.GetString(n, 1); err != nil {
		return nil, err
	}
	if p.Shape, err = sexp.GetString(n, 2); err != nil {
		return nil, err
	}
	p.Global = sexp.HasAtom(n, "global")
	p.Hidden = sexp.BoolFlag(n, "hide", false)
	p.Length = sexp.ChildFloat(n, "length", 2.54)

	at, ok := sexp.Find(n, "at")
	if !ok {
		return nil, &sexp.SchemaError{Keyword: "pin", Msg: "missing (at ...)"}
	}
	if p.PosX, err = sexp.GetFloat(at, 1); err != nil {
		return nil, err
	}
	if p.PosY, err = sexp.GetFloat(at, 2); err != nil {
		return nil, err
	}
	if p.Rotation, err = sexp.GetFloat(at, 3); err != nil {
		return nil, err
	}
	if _, ok := RotationToDirection(p.Rotation); !ok {
		return nil, &sexp.SchemaError{Keyword: "pin", Msg: "rotation must be one of 0, 90, 180, 270"}
	}

	if p.Name, p.NameEffect, err = pinLabel(n, "name"); err != nil {
		return nil, err
	}
	if p.Number, p.NumberEffect, err = pinLabel(n, "number"); err != nil {
		return nil, err
	}
	if v, convErr := strconv.Atoi(p.Number); convErr == nil {
		p.NumberInt = &v
	}

	for _, alt := range sexp.FindAll(n, "alternate") {
		a, err := altFunctionFromNode(alt)
		if err != nil {
			return nil, err
		}
		p.AltFuncs = append(p.AltFuncs, a)
	}
	return p, nil
}

// pinLabel reads a (name "X" (effects ...)) or (number "1" ...) child.
func pinLabel(n *sexp.Node, key string) (string, *TextEffect, error) {
	child, ok := sexp.Find(n, key)
	if !ok {
		return "", nil, &sexp.SchemaError{Keyword: "pin", Msg: "missing (" + key + " ...)"}
	}
	text, err := sexp.GetString(child, 1)
	if err != nil {
		return "", nil, err
	}
	effect := DefaultTextEffect()
	if effNode, ok := sexp.Find(child, "effects"); ok {
		if effect, err = effectFromNode(effNode); err != nil {
			return "", nil, err
		}
	}
	return text, effect, nil
}
