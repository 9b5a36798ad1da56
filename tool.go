package symcalc

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ToolRequest is a tool call. Expression parameters are either text, read
// with the session's parser, or objects in the ToJSON format.
type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Session string      `json:"session,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	LaTeX   string      `json:"latex,omitempty"`
	String  string      `json:"string,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HandleToolCall runs one tool call against the session. Every tree it
// builds is released before it returns.
func (s *Session) HandleToolCall(req ToolRequest) ToolResponse {
	var owned []Expr
	defer func() { releaseAll(owned) }()
	keep := func(e Expr) Expr {
		owned = append(owned, e)
		return e
	}
	fail := func(err error) ToolResponse {
		return ToolResponse{Session: s.ID.String(), Error: err.Error()}
	}

	getExpr := func(key string) (Expr, error) {
		v, ok := req.Params[key]
		if !ok {
			return Expr{}, errors.Errorf("missing param: %s", key)
		}
		switch val := v.(type) {
		case string:
			e, err := s.Parse(val)
			if err != nil {
				return Expr{}, errors.Wrapf(err, "param %s", key)
			}
			return keep(e), nil
		case map[string]interface{}:
			var jerr error
			e, err := s.compute("decode", func() Expr {
				e, err := FromJSON(s.arena, val)
				jerr = err
				return e
			})
			if err == nil {
				err = jerr
			}
			if err != nil {
				return Expr{}, errors.Wrapf(err, "param %s", key)
			}
			return keep(e), nil
		}
		return Expr{}, errors.Errorf("invalid type for param %s", key)
	}
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", errors.Errorf("missing param: %s", key)
		}
		str, ok := v.(string)
		if !ok || str == "" {
			return "", errors.Errorf("param %s must be a non-empty string", key)
		}
		return str, nil
	}
	respond := func(e Expr, err error) ToolResponse {
		if err != nil {
			return fail(err)
		}
		keep(e)
		return ToolResponse{Session: s.ID.String(), Result: e.toJSON(), LaTeX: e.Layout(), String: e.Serialize()}
	}
	exprAndVar := func() (Expr, string, error) {
		e, err := getExpr("expr")
		if err != nil {
			return Expr{}, "", err
		}
		v, err := getString("var")
		return e, v, err
	}

	switch req.Tool {
	case "simplify":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(s.Simplify(e))

	case "reduce":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return respond(s.Reduce(e))

	case "approximate":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		v, err := s.Approximate(e)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Session: s.ID.String(), Result: v.String(), String: v.String()}

	case "to_latex":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Session: s.ID.String(), Result: e.Layout(), LaTeX: e.Layout(), String: e.Serialize()}

	case "free_symbols":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		names := FreeSymbols(e).Slice()
		sort.Strings(names)
		return ToolResponse{Session: s.ID.String(), Result: names, String: strings.Join(names, ", ")}

	case "define":
		name, err := getString("name")
		if err != nil {
			return fail(err)
		}
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		if err := s.Define(name, e); err != nil {
			return fail(err)
		}
		return ToolResponse{Session: s.ID.String(), Result: name, String: name + " := " + e.Serialize()}

	case "undefine":
		name, err := getString("name")
		if err != nil {
			return fail(err)
		}
		s.Undefine(name)
		return ToolResponse{Session: s.ID.String(), Result: name}

	case "diff":
		e, v, err := exprAndVar()
		if err != nil {
			return fail(err)
		}
		d, ok, err := s.Derivate(e, v)
		if err == nil && !ok {
			err = errors.Errorf("%s is not differentiable in %s", e.Serialize(), v)
		}
		return respond(d, err)

	case "degree":
		e, v, err := exprAndVar()
		if err != nil {
			return fail(err)
		}
		r, err := s.Reduce(e)
		if err != nil {
			return fail(err)
		}
		keep(r)
		return ToolResponse{Session: s.ID.String(), Result: r.PolynomialDegree(s.ctx, v)}

	case "poly_coeffs":
		e, v, err := exprAndVar()
		if err != nil {
			return fail(err)
		}
		r, err := s.Reduce(e)
		if err != nil {
			return fail(err)
		}
		keep(r)
		var coeffs []Expr
		ok := false
		if _, err := s.compute("poly_coeffs", func() Expr {
			coeffs, ok = r.PolynomialCoefficients(v, s.ctx)
			return Expr{}
		}); err != nil {
			return fail(err)
		}
		if !ok {
			return fail(errors.Errorf("%s is not a polynomial of degree at most %d in %s", r.Serialize(), maxPolynomialDegree, v))
		}
		result := map[string]string{}
		for deg, c := range coeffs {
			result[strconv.Itoa(deg)] = keep(c).Serialize()
		}
		return ToolResponse{Session: s.ID.String(), Result: result}

	case "solve_polynomial":
		e, v, err := exprAndVar()
		if err != nil {
			return fail(err)
		}
		roots, err := s.Roots(e, v)
		if err != nil {
			return fail(err)
		}
		strs := make([]string, len(roots))
		for i, r := range roots {
			strs[i] = keep(r).Serialize()
		}
		return ToolResponse{Session: s.ID.String(), Result: strs, String: strings.Join(strs, ", ")}

	case "matrix_det":
		m, err := getExpr("matrix")
		if err != nil {
			return fail(err)
		}
		return respond(s.Determinant(m))

	case "matrix_inv":
		m, err := getExpr("matrix")
		if err != nil {
			return fail(err)
		}
		return respond(s.Inverse(m))

	case "matrix_trace", "matrix_transpose", "matrix_ref", "matrix_rref", "matrix_norm":
		m, err := getExpr("matrix")
		if err != nil {
			return fail(err)
		}
		k := map[string]Kind{
			"matrix_trace":     KindMatrixTrace,
			"matrix_transpose": KindMatrixTranspose,
			"matrix_ref":       KindMatrixRef,
			"matrix_rref":      KindMatrixRref,
			"matrix_norm":      KindVectorNorm,
		}[req.Tool]
		return respond(s.matrixFunction(req.Tool, m, k))

	case "matrix_rank":
		m, err := getExpr("matrix")
		if err != nil {
			return fail(err)
		}
		r, err := s.Rank(m)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Session: s.ID.String(), Result: r, String: strconv.Itoa(r)}

	case "set_context":
		ctx, err := contextFromParams(s.ctx, req.Params)
		if err != nil {
			return fail(err)
		}
		s.SetContext(ctx)
		return ToolResponse{Session: s.ID.String(), Result: contextSummary(ctx)}

	case "reset":
		owned = nil
		s.Reset()
		return ToolResponse{Session: s.ID.String(), Result: "ok"}

	case "mcp_spec":
		return ToolResponse{Session: s.ID.String(), Result: MCPToolSpec(), String: "MCP tool specification"}
	}

	return fail(errors.Errorf("unknown tool: %s", req.Tool))
}

func contextFromParams(ctx ReductionContext, params map[string]interface{}) (ReductionContext, error) {
	for key, v := range params {
		str, ok := v.(string)
		if !ok {
			return ctx, errors.Errorf("param %s must be a string", key)
		}
		switch key {
		case "complex_format":
			ctx.ComplexFormat, ok = ParseComplexFormat(str)
		case "angle_unit":
			ctx.AngleUnit, ok = ParseAngleUnit(str)
		case "unit_format":
			ctx.UnitFormat, ok = ParseUnitFormat(str)
		case "symbolic_computation":
			ctx.SymbolicComputation, ok = ParseSymbolicComputation(str)
		default:
			return ctx, errors.Errorf("unknown param: %s", key)
		}
		if !ok {
			return ctx, errors.Errorf("param %s: invalid value %q", key, str)
		}
	}
	return ctx, nil
}

func contextSummary(ctx ReductionContext) map[string]string {
	return map[string]string{
		"complex_format":       ctx.ComplexFormat.String(),
		"angle_unit":           ctx.AngleUnit.String(),
		"unit_format":          ctx.UnitFormat.String(),
		"symbolic_computation": ctx.SymbolicComputation.String(),
	}
}

// MCPToolSpec returns the JSON schema of the tools HandleToolCall accepts.
func MCPToolSpec() string {
	expr := map[string]string{"expr": "string|object"}
	exprVar := map[string]string{"expr": "string|object", "var": "string"}
	matrix := map[string]string{"matrix": "string|object"}
	tools := []map[string]interface{}{
		ts("simplify", "Reduce to canonical form and beautify", []string{"expr"}, expr),
		ts("reduce", "Reduce to canonical form", []string{"expr"}, expr),
		ts("approximate", "Evaluate numerically", []string{"expr"}, expr),
		ts("to_latex", "Convert to LaTeX", []string{"expr"}, expr),
		ts("free_symbols", "Return free symbol names", []string{"expr"}, expr),
		ts("define", "Define a symbol for later expressions", []string{"name", "expr"}, map[string]string{"name": "string", "expr": "string|object"}),
		ts("undefine", "Remove a symbol definition", []string{"name"}, map[string]string{"name": "string"}),
		ts("diff", "First derivative d/dvar", []string{"expr", "var"}, exprVar),
		ts("degree", "Polynomial degree in variable, -1 if not polynomial", []string{"expr", "var"}, exprVar),
		ts("poly_coeffs", "Polynomial coefficients by degree (degree ≤ 3)", []string{"expr", "var"}, exprVar),
		ts("solve_polynomial", "Roots of expr = 0 for degree 1 to 3", []string{"expr", "var"}, exprVar),
		ts("matrix_det", "Matrix determinant", []string{"matrix"}, matrix),
		ts("matrix_inv", "Matrix inverse, undef when singular", []string{"matrix"}, matrix),
		ts("matrix_rank", "Matrix rank", []string{"matrix"}, matrix),
		ts("matrix_trace", "Matrix trace", []string{"matrix"}, matrix),
		ts("matrix_transpose", "Matrix transpose", []string{"matrix"}, matrix),
		ts("matrix_ref", "Row echelon form", []string{"matrix"}, matrix),
		ts("matrix_rref", "Reduced row echelon form", []string{"matrix"}, matrix),
		ts("matrix_norm", "Euclidean norm of a vector", []string{"matrix"}, matrix),
		ts("set_context", "Change complex_format, angle_unit, unit_format or symbolic_computation", []string{}, map[string]string{
			"complex_format": "string", "angle_unit": "string", "unit_format": "string", "symbolic_computation": "string",
		}),
		ts("reset", "Drop every expression and definition of the session", []string{}, map[string]string{}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
