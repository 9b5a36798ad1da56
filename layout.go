package symcalc

import (
	"math/big"
	"strconv"
	"strings"
)

// Layout returns a LaTeX rendering of e. It is meant for beautified trees;
// canonical trees render too but show their products of powers as is.
func (e Expr) Layout() string {
	switch k := e.Kind(); {
	case k == KindUninitialized, k == KindGhost:
		return ""
	case k == KindRational:
		return rationalLaTeX(e.rat())
	case k.IsNumber():
		return floatLaTeX(e.FloatValue())
	case k == KindUndefined:
		return "\\mathrm{undef}"
	case k == KindNonreal:
		return "\\mathrm{nonreal}"
	case k == KindConstant:
		switch e.ConstantValue() {
		case ConstantPi:
			return "\\pi"
		case ConstantI:
			return "\\mathrm{i}"
		}
		return "\\mathrm{e}"
	case k == KindSymbol:
		return e.Name()
	case k == KindUnit:
		return "\\mathrm{" + strings.TrimPrefix(e.Name(), "_") + "}"
	case k == KindAddition:
		parts := make([]string, e.NumChildren())
		for i, c := range e.Children() {
			parts[i] = c.Layout()
			if c.Kind() == KindAddition || (i > 0 && precedence(c) < precProduct) {
				parts[i] = "\\left(" + parts[i] + "\\right)"
			}
		}
		return strings.Join(parts, " + ")
	case k == KindSubtraction:
		r := e.Child(1).Layout()
		if precedence(e.Child(1)) < precProduct {
			r = "\\left(" + r + "\\right)"
		}
		return e.Child(0).Layout() + " - " + r
	case k == KindOpposite:
		c := e.Child(0)
		if precedence(c) < precProduct {
			return "-\\left(" + c.Layout() + "\\right)"
		}
		return "-" + c.Layout()
	case k == KindMultiplication:
		return productLaTeX(e)
	case k == KindDivision:
		return "\\frac{" + e.Child(0).Layout() + "}{" + e.Child(1).Layout() + "}"
	case k == KindPower:
		base := e.Child(0).Layout()
		if precedence(e.Child(0)) < precAtom || e.Child(0).Kind().IsUnaryFunction() {
			base = "\\left(" + base + "\\right)"
		}
		return base + "^{" + e.Child(1).Layout() + "}"
	case k == KindSquareRoot:
		return "\\sqrt{" + e.Child(0).Layout() + "}"
	case k == KindMatrix:
		return matrixLaTeX(e)
	case k == KindList:
		return "\\left\\{" + argumentsLaTeX(e) + "\\right\\}"
	case k == KindDependency:
		return e.Child(0).Layout()
	case k == KindDerivative:
		return "\\frac{d}{d" + e.Child(1).Layout() + "}\\left(" + e.Child(0).Layout() +
			"\\right)\\bigg|_{" + e.Child(1).Layout() + "=" + e.Child(2).Layout() + "}"
	}
	return functionLaTeX(e)
}

func rationalLaTeX(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	sign := ""
	v := new(big.Rat).Set(r)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	return sign + "\\frac{" + v.Num().String() + "}{" + v.Denom().String() + "}"
}

func floatLaTeX(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		exp := strings.TrimPrefix(s[i+1:], "+")
		return s[:i] + " \\times 10^{" + exp + "}"
	}
	return s
}

func productLaTeX(e Expr) string {
	parts := make([]string, e.NumChildren())
	for i, c := range e.Children() {
		parts[i] = c.Layout()
		var paren bool
		switch c.Kind() {
		case KindAddition, KindSubtraction, KindOpposite:
			paren = true
		default:
			paren = i > 0 && precedence(c) < precProduct
		}
		if paren {
			parts[i] = "\\left(" + parts[i] + "\\right)"
		}
	}
	// Adjacent numbers need an explicit operator to stay readable.
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			if leftmostIsNumber(e.Child(i)) && !strings.HasPrefix(p, "\\left(") {
				b.WriteString(" \\cdot ")
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(p)
	}
	return b.String()
}

func matrixLaTeX(m Expr) string {
	var sb strings.Builder
	sb.WriteString("\\begin{pmatrix}")
	for i := 0; i < m.Rows(); i++ {
		if i > 0 {
			sb.WriteString(" \\\\ ")
		}
		for j := 0; j < m.Cols(); j++ {
			if j > 0 {
				sb.WriteString(" & ")
			}
			sb.WriteString(m.MatrixChild(i, j).Layout())
		}
	}
	sb.WriteString("\\end{pmatrix}")
	return sb.String()
}

func argumentsLaTeX(e Expr) string {
	parts := make([]string, e.NumChildren())
	for i, c := range e.Children() {
		parts[i] = c.Layout()
	}
	return strings.Join(parts, ", ")
}

func functionLaTeX(e Expr) string {
	arg := argumentsLaTeX(e)
	switch e.Kind() {
	case KindSine, KindCosine, KindTangent, KindHyperbolicSine, KindHyperbolicCosine, KindHyperbolicTangent:
		return "\\" + e.Kind().Alias() + "\\left(" + arg + "\\right)"
	case KindNaperianLogarithm:
		return "\\ln\\left(" + arg + "\\right)"
	case KindArcSine:
		return "\\arcsin\\left(" + arg + "\\right)"
	case KindArcCosine:
		return "\\arccos\\left(" + arg + "\\right)"
	case KindArcTangent:
		return "\\arctan\\left(" + arg + "\\right)"
	case KindAbsoluteValue:
		return "\\left|" + arg + "\\right|"
	case KindFloor:
		return "\\lfloor " + arg + " \\rfloor"
	case KindCeiling:
		return "\\lceil " + arg + " \\rceil"
	case KindDeterminant:
		return "\\det\\left(" + arg + "\\right)"
	case KindMatrixTranspose:
		return "\\left(" + arg + "\\right)^{T}"
	case KindMatrixInverse:
		return "\\left(" + arg + "\\right)^{-1}"
	case KindVectorNorm:
		return "\\left\\|" + arg + "\\right\\|"
	}
	return "\\operatorname{" + e.Kind().Alias() + "}\\left(" + arg + "\\right)"
}
