package symcalc

import (
	"math"
	"math/big"
	"strconv"
)

// MaxRationalBits bounds numerators and denominators; larger results
// degrade to Float.
const MaxRationalBits = 1024

func ratOverflows(r *big.Rat) bool {
	return r.Num().BitLen() > MaxRationalBits || r.Denom().BitLen() > MaxRationalBits
}

// TrinaryBoolean is a yes/no/unknown answer.
type TrinaryBoolean int8

const (
	TrinaryUnknown TrinaryBoolean = iota
	TrinaryFalse
	TrinaryTrue
)

func (t TrinaryBoolean) String() string {
	switch t {
	case TrinaryFalse:
		return "false"
	case TrinaryTrue:
		return "true"
	}
	return "unknown"
}

func decimalRat(v float64) (*big.Rat, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'g', -1, 64))
	return r, ok
}

// exactValue returns the exact value of a Rational or Decimal node.
func (e Expr) exactValue() (*big.Rat, bool) {
	switch e.Kind() {
	case KindRational:
		return e.rat(), true
	case KindDecimal:
		return decimalRat(e.FloatValue())
	}
	return nil, false
}

// numberValue returns the float value of any number node.
func (e Expr) numberValue() float64 {
	switch e.Kind() {
	case KindRational:
		f, _ := e.rat().Float64()
		return f
	case KindDecimal, KindFloat:
		return e.FloatValue()
	}
	return math.NaN()
}

func (e Expr) isNumber() bool { return e.Kind().IsNumber() }

func (e Expr) isRationalValue(n int64) bool {
	return e.Kind() == KindRational && e.rat().IsInt() && e.rat().Num().IsInt64() && e.rat().Num().Int64() == n
}

func (e Expr) isRationalZero() bool     { return e.isRationalValue(0) }
func (e Expr) isRationalOne() bool      { return e.isRationalValue(1) }
func (e Expr) isRationalMinusOne() bool { return e.isRationalValue(-1) }

func (e Expr) isInteger() bool {
	return e.Kind() == KindRational && e.rat().IsInt()
}

// smallInteger returns the value of an integer Rational that fits an int.
func (e Expr) smallInteger() (int, bool) {
	if !e.isInteger() || !e.rat().Num().IsInt64() {
		return 0, false
	}
	n := e.rat().Num().Int64()
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}

// numberSign returns -1, 0 or 1 for number nodes.
func (e Expr) numberSign() int {
	switch e.Kind() {
	case KindRational:
		return e.rat().Sign()
	case KindDecimal, KindFloat:
		v := e.FloatValue()
		switch {
		case v < 0:
			return -1
		case v > 0:
			return 1
		}
	}
	return 0
}

func (e Expr) isNegativeNumber() bool { return e.isNumber() && e.numberSign() < 0 }

func (a *Arena) numberAdd(x, y Expr) Expr {
	xr, xok := x.exactValue()
	yr, yok := y.exactValue()
	if xok && yok {
		return a.RationalFromBig(new(big.Rat).Add(xr, yr))
	}
	return a.Float(x.numberValue() + y.numberValue())
}

func (a *Arena) numberMul(x, y Expr) Expr {
	xr, xok := x.exactValue()
	yr, yok := y.exactValue()
	if xok && yok {
		return a.RationalFromBig(new(big.Rat).Mul(xr, yr))
	}
	return a.Float(x.numberValue() * y.numberValue())
}

func (a *Arena) numberNeg(x Expr) Expr {
	if r, ok := x.exactValue(); ok {
		return a.RationalFromBig(new(big.Rat).Neg(r))
	}
	return a.Float(-x.numberValue())
}

// compareNumbers orders number nodes by value.
func compareNumbers(x, y Expr) int {
	xr, xok := x.exactValue()
	yr, yok := y.exactValue()
	if xok && yok {
		return xr.Cmp(yr)
	}
	fx, fy := x.numberValue(), y.numberValue()
	switch {
	case fx < fy:
		return -1
	case fx > fy:
		return 1
	}
	return 0
}

// integerRoot returns the exact n-th root of a non-negative integer.
func integerRoot(v *big.Int, n int) (*big.Int, bool) {
	if v.Sign() < 0 || n <= 0 {
		return nil, false
	}
	if n == 1 || v.Sign() == 0 || v.Cmp(big.NewInt(1)) == 0 {
		return new(big.Int).Set(v), true
	}
	if n == 2 {
		r := new(big.Int).Sqrt(v)
		return r, new(big.Int).Mul(r, r).Cmp(v) == 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	guess := int64(math.Round(math.Pow(f, 1/float64(n))))
	for d := int64(-1); d <= 1; d++ {
		c := big.NewInt(guess + d)
		if c.Sign() < 0 {
			continue
		}
		if new(big.Int).Exp(c, big.NewInt(int64(n)), nil).Cmp(v) == 0 {
			return c, true
		}
	}
	return nil, false
}

// ratPow raises r to the integer power n, failing on overflow.
func ratPow(r *big.Rat, n int) (*big.Rat, bool) {
	if n == 0 {
		return big.NewRat(1, 1), true
	}
	neg := n < 0
	if neg {
		if r.Sign() == 0 {
			return nil, false
		}
		n = -n
	}
	bits := max(r.Num().BitLen(), r.Denom().BitLen())
	if bits*n > MaxRationalBits {
		return nil, false
	}
	e := big.NewInt(int64(n))
	num := new(big.Int).Exp(r.Num(), e, nil)
	den := new(big.Int).Exp(r.Denom(), e, nil)
	if neg {
		num, den = den, num
	}
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	return new(big.Rat).SetFrac(num, den), true
}

// NullStatus reports whether e is known to be zero.
func (e Expr) NullStatus() TrinaryBoolean {
	switch e.Kind() {
	case KindRational, KindDecimal, KindFloat:
		if e.numberSign() == 0 && !math.IsNaN(e.numberValue()) {
			return TrinaryTrue
		}
		return TrinaryFalse
	case KindConstant, KindUnit:
		return TrinaryFalse
	case KindMultiplication:
		status := TrinaryFalse
		for i := 0; i < e.NumChildren(); i++ {
			switch e.Child(i).NullStatus() {
			case TrinaryTrue:
				return TrinaryTrue
			case TrinaryUnknown:
				status = TrinaryUnknown
			}
		}
		return status
	case KindPower:
		base, exp := e.Child(0).NullStatus(), e.Child(1)
		if base == TrinaryTrue && exp.isNumber() && exp.numberSign() > 0 {
			return TrinaryTrue
		}
		if base == TrinaryFalse && exp.isNumber() {
			return TrinaryFalse
		}
	case KindOpposite, KindAbsoluteValue, KindSquareRoot, KindDependency:
		return e.Child(0).NullStatus()
	}
	return TrinaryUnknown
}
