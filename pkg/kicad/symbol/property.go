package symbol

import (
	"github.com/OpenTraceLab/klcheck/pkg/kicad/sexp"
)

// Property is a named symbol field such as Reference, Value or
// Footprint. KiCad-internal fields use the ki_ prefix.
type Property struct {
	Name           string
	Value          string
	PosX           float64
	PosY           float64
	Rotation       float64
	Hidden         bool
	Effect         *TextEffect
	Private        bool
	DoNotAutoplace bool
}

// NewProperty builds a visible property with the default text effect.
func NewProperty(name, value string) *Property {
	return &Property{Name: name, Value: value, Effect: DefaultTextEffect()}
}

func (p *Property) ToNode() *sexp.Node {
	n := sexp.Key("property")
	if p.Private {
		n.Append(sexp.Atom("private"))
	}
	n.Append(sexp.Str(p.Name), sexp.Str(p.Value))
	n.Append(sexp.Key("at", sexp.Float(p.PosX), sexp.Float(p.PosY), sexp.Float(p.Rotation)))
	if p.DoNotAutoplace {
		n.Append(sexp.Key("do_not_autoplace"))
	}
	hide := "no"
	if p.Hidden {
		hide = "yes"
	}
	n.Append(sexp.Key("hide", sexp.Atom(hide)))
	if p.Effect != nil {
		n.Append(p.Effect.ToNode())
	}
	return n
}

func propertyFromNode(n *sexp.Node) (*Property, error) {
	p := &Property{}

	// The name may be preceded by a bare private marker:
	// (property private "Name" "Value" ...)
	idx := 1
	if n.Nth(idx).IsAtom() && n.Nth(idx).Text() == "private" {
		p.Private = true
		idx++
	}
	var err error
	if p.Name, err = sexp.GetString(n, idx); err != nil {
		return nil, err
	}
	if p.Value, err = sexp.GetString(n, idx+1); err != nil {
		return nil, err
	}

	if at, ok := sexp.Find(n, "at"); ok {
		if p.PosX, err = sexp.GetFloat(at, 1); err != nil {
			return nil, err
		}
		if p.PosY, err = sexp.GetFloat(at, 2); err != nil {
			return nil, err
		}
		p.Rotation, _ = sexp.GetFloat(at, 3)
	}
	_, p.DoNotAutoplace = sexp.Find(n, "do_not_autoplace")
	p.Hidden = sexp.BoolFlag(n, "hide", false)

	p.Effect = DefaultTextEffect()
	if eff, ok := sexp.Find(n, "effects"); ok {
		if p.Effect, err = effectFromNode(eff); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// SetPosMil positions the property using mil coordinates.
func (p *Property) SetPosMil(x, y, rot float64) {
	p.PosX = MilToMM(x)
	p.PosY = MilToMM(y)
	for _, valid := range ValidRotations {
		if rot == valid {
			p.Rotation = rot
			return
		}
	}
}
