package symcalc

import (
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// toJSON builds the generic JSON object of e:
//
//	{"type": "<kind name>", "value": "...", "name": "...", "rows": r, "cols": c, "children": [...]}
//
// Only the fields relevant to the kind are present.
func (e Expr) toJSON() map[string]interface{} {
	k := e.Kind()
	out := map[string]interface{}{"type": k.String()}
	switch {
	case k == KindRational:
		out["value"] = e.rat().RatString()
	case k == KindDecimal, k == KindFloat:
		out["value"] = strconv.FormatFloat(e.FloatValue(), 'g', -1, 64)
	case k == KindConstant:
		out["name"] = e.ConstantValue().String()
	case k == KindSymbol, k == KindUnit:
		out["name"] = e.Name()
	case k == KindMatrix:
		out["rows"], out["cols"] = e.Rows(), e.Cols()
	}
	if e.NumChildren() > 0 {
		cs := make([]map[string]interface{}, e.NumChildren())
		for i, c := range e.Children() {
			cs[i] = c.toJSON()
		}
		out["children"] = cs
	}
	return out
}

// ToJSON encodes e as a JSON object.
func ToJSON(e Expr) (string, error) {
	if e.IsUninitialized() {
		return "", ErrUninitialized
	}
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// FromJSON builds a new root in a from an object produced by ToJSON and
// decoded into generic maps.
func FromJSON(a *Arena, data map[string]interface{}) (Expr, error) {
	if data == nil {
		return Expr{}, errors.New("expression must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return Expr{}, errors.New("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return Expr{}, errors.New("field 'type' must be a non-empty string")
	}
	k, ok := KindForName(typ)
	if !ok || k == KindUninitialized || k == KindGhost {
		return Expr{}, errors.Errorf("unknown expression type: %s", typ)
	}

	subString := func(field string) (string, error) {
		v, ok := data[field]
		if !ok {
			return "", errors.Errorf("%s: missing %q", typ, field)
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", errors.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	subNumberAsInt := func(field string) (int, error) {
		v, ok := data[field]
		if !ok {
			return 0, errors.Errorf("%s: missing %q", typ, field)
		}
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return 0, errors.Errorf("%s: %q must be an integer", typ, field)
		}
		return int(n), nil
	}

	switch k {
	case KindRational:
		val, err := subString("value")
		if err != nil {
			return Expr{}, err
		}
		r, ok := new(big.Rat).SetString(val)
		if !ok {
			return Expr{}, errors.Errorf("invalid rational value: %s", val)
		}
		return a.RationalFromBig(r), nil
	case KindDecimal, KindFloat:
		val, err := subString("value")
		if err != nil {
			return Expr{}, err
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return Expr{}, errors.Wrapf(err, "%s: invalid value", typ)
		}
		if k == KindDecimal {
			return a.Decimal(f), nil
		}
		return a.Float(f), nil
	case KindUndefined:
		return a.Undefined(), nil
	case KindNonreal:
		return a.Nonreal(), nil
	case KindConstant:
		name, err := subString("name")
		if err != nil {
			return Expr{}, err
		}
		for _, c := range []Constant{ConstantPi, ConstantE, ConstantI} {
			if c.String() == name {
				return a.Constant(c), nil
			}
		}
		return Expr{}, errors.Errorf("constant: unknown name %q", name)
	case KindSymbol:
		name, err := subString("name")
		if err != nil {
			return Expr{}, err
		}
		return a.Symbol(name), nil
	case KindUnit:
		name, err := subString("name")
		if err != nil {
			return Expr{}, err
		}
		if !IsKnownUnit(name) {
			return Expr{}, errors.Errorf("unit: unknown name %q", name)
		}
		return a.Unit(name), nil
	}

	var raw []interface{}
	if v, ok := data["children"]; ok {
		if raw, ok = v.([]interface{}); !ok {
			return Expr{}, errors.Errorf("%s: %q must be an array", typ, "children")
		}
	}
	if lo, hi := k.Arity(); len(raw) < lo || (hi != nAry && len(raw) > hi) {
		return Expr{}, errors.Errorf("%s: wrong number of children: %d", typ, len(raw))
	}
	children := make([]Expr, 0, len(raw))
	for i, it := range raw {
		m, ok := it.(map[string]interface{})
		if !ok {
			releaseAll(children)
			return Expr{}, errors.Errorf("%s: children[%d] must be an object", typ, i)
		}
		c, err := FromJSON(a, m)
		if err != nil {
			releaseAll(children)
			return Expr{}, errors.Wrapf(err, "%s: children[%d]", typ, i)
		}
		children = append(children, c)
	}
	if k != KindMatrix {
		return a.Node(k, children...), nil
	}
	rows, err := subNumberAsInt("rows")
	if err == nil {
		var cols int
		if cols, err = subNumberAsInt("cols"); err == nil {
			if rows <= 0 || cols <= 0 || rows*cols != len(children) {
				err = errors.Errorf("matrix: %dx%d does not hold %d entries", rows, cols, len(children))
			} else {
				return a.Matrix(rows, cols, children...), nil
			}
		}
	}
	releaseAll(children)
	return Expr{}, err
}
