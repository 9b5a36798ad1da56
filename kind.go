package symcalc

// Kind is the type tag of a node. The set is closed: every capability
// (serialize, layout, reduce, approximate, derivate, degree) switches over it
// exhaustively and falls back to a default arm.
type Kind uint8

const (
	KindUninitialized Kind = iota
	KindGhost
	KindRational
	KindDecimal
	KindFloat
	KindUndefined
	KindNonreal
	KindConstant
	KindSymbol
	KindUnit
	KindAddition
	KindSubtraction
	KindMultiplication
	KindDivision
	KindOpposite
	KindPower
	KindSquareRoot
	KindSine
	KindCosine
	KindTangent
	KindArcSine
	KindArcCosine
	KindArcTangent
	KindHyperbolicSine
	KindHyperbolicCosine
	KindHyperbolicTangent
	KindNaperianLogarithm
	KindAbsoluteValue
	KindFloor
	KindCeiling
	KindSignFunction
	KindMatrix
	KindList
	KindDependency
	KindDerivative
	KindDeterminant
	KindMatrixInverse
	KindMatrixTranspose
	KindMatrixTrace
	KindMatrixIdentity
	KindMatrixRank
	KindMatrixRef
	KindMatrixRref
	KindMatrixAugment
	KindVectorDot
	KindVectorCross
	KindVectorNorm
	kindCount
)

const nAry = -1

type kindInfo struct {
	name     string // used in logs and JSON
	alias    string // serialization / parser alias for prefix functions
	minArity int
	maxArity int
}

var kindTable = [kindCount]kindInfo{
	KindUninitialized:     {"uninitialized", "", 0, 0},
	KindGhost:             {"ghost", "", 0, 0},
	KindRational:          {"rational", "", 0, 0},
	KindDecimal:           {"decimal", "", 0, 0},
	KindFloat:             {"float", "", 0, 0},
	KindUndefined:         {"undefined", "undef", 0, 0},
	KindNonreal:           {"nonreal", "nonreal", 0, 0},
	KindConstant:          {"constant", "", 0, 0},
	KindSymbol:            {"symbol", "", 0, 0},
	KindUnit:              {"unit", "", 0, 0},
	KindAddition:          {"addition", "", 0, nAry},
	KindSubtraction:       {"subtraction", "", 2, 2},
	KindMultiplication:    {"multiplication", "", 0, nAry},
	KindDivision:          {"division", "", 2, 2},
	KindOpposite:          {"opposite", "", 1, 1},
	KindPower:             {"power", "", 2, 2},
	KindSquareRoot:        {"sqrt", "sqrt", 1, 1},
	KindSine:              {"sin", "sin", 1, 1},
	KindCosine:            {"cos", "cos", 1, 1},
	KindTangent:           {"tan", "tan", 1, 1},
	KindArcSine:           {"asin", "asin", 1, 1},
	KindArcCosine:         {"acos", "acos", 1, 1},
	KindArcTangent:        {"atan", "atan", 1, 1},
	KindHyperbolicSine:    {"sinh", "sinh", 1, 1},
	KindHyperbolicCosine:  {"cosh", "cosh", 1, 1},
	KindHyperbolicTangent: {"tanh", "tanh", 1, 1},
	KindNaperianLogarithm: {"ln", "ln", 1, 1},
	KindAbsoluteValue:     {"abs", "abs", 1, 1},
	KindFloor:             {"floor", "floor", 1, 1},
	KindCeiling:           {"ceil", "ceil", 1, 1},
	KindSignFunction:      {"sign", "sign", 1, 1},
	KindMatrix:            {"matrix", "", 0, nAry},
	KindList:              {"list", "", 0, nAry},
	KindDependency:        {"dependency", "dep", 2, 2},
	KindDerivative:        {"derivative", "diff", 3, 3},
	KindDeterminant:       {"det", "det", 1, 1},
	KindMatrixInverse:     {"inverse", "inverse", 1, 1},
	KindMatrixTranspose:   {"transpose", "transpose", 1, 1},
	KindMatrixTrace:       {"trace", "trace", 1, 1},
	KindMatrixIdentity:    {"identity", "identity", 1, 1},
	KindMatrixRank:        {"rank", "rank", 1, 1},
	KindMatrixRef:         {"ref", "ref", 1, 1},
	KindMatrixRref:        {"rref", "rref", 1, 1},
	KindMatrixAugment:     {"augment", "augment", 2, 2},
	KindVectorDot:         {"dot", "dot", 2, 2},
	KindVectorCross:       {"cross", "cross", 2, 2},
	KindVectorNorm:        {"norm", "norm", 1, 1},
}

var aliasToKind = func() map[string]Kind {
	m := make(map[string]Kind)
	for k := Kind(0); k < kindCount; k++ {
		if a := kindTable[k].alias; a != "" {
			m[a] = k
		}
	}
	return m
}()

func (k Kind) String() string {
	if k >= kindCount {
		return "invalid"
	}
	return kindTable[k].name
}

// Alias is the prefix-function name used when serializing k, or "".
func (k Kind) Alias() string {
	if k >= kindCount {
		return ""
	}
	return kindTable[k].alias
}

// Arity returns the allowed number of children; max is -1 for n-ary kinds.
func (k Kind) Arity() (min, max int) {
	return kindTable[k].minArity, kindTable[k].maxArity
}

// KindForAlias resolves a function alias such as "sin" or "det".
func KindForAlias(alias string) (Kind, bool) {
	k, ok := aliasToKind[alias]
	return k, ok
}

// KindForName resolves the JSON/log name of a kind.
func KindForName(name string) (Kind, bool) {
	for k := Kind(0); k < kindCount; k++ {
		if kindTable[k].name == name {
			return k, true
		}
	}
	return KindUninitialized, false
}

func (k Kind) IsNumber() bool {
	return k == KindRational || k == KindDecimal || k == KindFloat
}

func (k Kind) IsUnaryFunction() bool {
	return k >= KindSine && k <= KindSignFunction
}

func (k Kind) IsMatrixFunction() bool {
	return k >= KindDeterminant && k <= KindVectorNorm
}

func (k Kind) isNAry() bool {
	return kindTable[k].maxArity == nAry
}

// kindRank orders kinds for canonical sorting: numbers, constants, symbols,
// then composite nodes, with matrices and units last.
func kindRank(k Kind) int {
	switch {
	case k.IsNumber():
		return 0
	case k == KindConstant:
		return 1
	case k == KindSymbol:
		return 2
	case k == KindMatrix:
		return int(kindCount) + 10
	case k == KindUnit:
		return int(kindCount) + 20
	}
	return int(k) + 3
}

// Constant identifiers stored in the payload of KindConstant nodes.
type Constant uint8

const (
	ConstantPi Constant = iota
	ConstantE
	ConstantI
)

func (c Constant) String() string {
	switch c {
	case ConstantPi:
		return "π"
	case ConstantE:
		return "e"
	case ConstantI:
		return "i"
	}
	return "?"
}
