package policy

import (
	"fmt"

	"draftline-hq/meridian/pkg/rcl"
	"draftline-hq/meridian/pkg/rcl/ast"
)

// buildCondition converts an authored condition map into a Condition.
// Two forms are accepted:
//
//	{dsl: "facets.planKnobs.hookIntensity < 0.6"}
//
// or natively structured logic in json-logic convention, where an operand
// map {"var": path} is a reference and a plain scalar is a literal:
//
//	{"<": [{var: facets.planKnobs.hookIntensity}, 0.6]}
//	{some: [facets.recommendationSet.value, {"==": [{var: resolution}, "unresolved"]}]}
//
// Top-level paths are canonicalized to the absolute snapshot prefix;
// quantifier predicate paths stay element-relative.
func buildCondition(m map[string]any, policyID string, errs *DeclErrorList) (*Condition, bool) {
	if dsl, ok := m["dsl"]; ok {
		str, ok := dsl.(string)
		if !ok {
			errs.Add(ErrorTypeStructural, policyID, fmt.Sprintf("condition dsl must be a string, got %T", dsl))
			return nil, false
		}
		return &Condition{DSL: str}, true
	}

	node, err := buildLogicNode(m, true)
	if err != nil {
		errs.Add(ErrorTypeStructural, policyID, fmt.Sprintf("invalid condition: %v", err))
		return nil, false
	}

	return &Condition{Node: node}, true
}

// buildLogicNode builds one logic node from a single-key condition map.
func buildLogicNode(m map[string]any, absolute bool) (*ast.Node, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("condition node must have exactly one key, got %d", len(m))
	}

	for key, value := range m {
		switch key {
		case "some", "all":
			return buildQuantifierNode(key, value)
		case "==", "!=", "<", "<=", ">", ">=":
			return buildComparisonNode(key, value, absolute)
		default:
			return nil, fmt.Errorf("unknown condition operator %q", key)
		}
	}

	return nil, fmt.Errorf("empty condition node")
}

func buildQuantifierNode(key string, value any) (*ast.Node, error) {
	pair, ok := value.([]any)
	if !ok || len(pair) != 2 {
		return nil, fmt.Errorf("%s expects [collectionPath, predicate]", key)
	}

	collection, ok := pair[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s collection path must be a string, got %T", key, pair[0])
	}

	predMap, ok := toStringMap(pair[1])
	if !ok {
		return nil, fmt.Errorf("%s predicate must be a condition node, got %T", key, pair[1])
	}

	predicate, err := buildLogicNode(predMap, false)
	if err != nil {
		return nil, fmt.Errorf("%s predicate: %w", key, err)
	}
	if predicate.IsQuantifier() {
		return nil, fmt.Errorf("%s predicate must be a comparison", key)
	}

	op := ast.OpSome
	if key == "all" {
		op = ast.OpAll
	}

	return &ast.Node{
		Op:         op,
		Collection: rcl.CanonicalizePath(collection),
		Predicate:  predicate,
	}, nil
}

func buildComparisonNode(key string, value any, absolute bool) (*ast.Node, error) {
	pair, ok := value.([]any)
	if !ok || len(pair) != 2 {
		return nil, fmt.Errorf("%s expects [left, right]", key)
	}

	left, err := buildOperand(pair[0], absolute)
	if err != nil {
		return nil, err
	}
	right, err := buildOperand(pair[1], absolute)
	if err != nil {
		return nil, err
	}

	if !left.IsVar && !right.IsVar {
		return nil, fmt.Errorf("%s comparison references no variable", key)
	}

	return &ast.Node{Op: ast.Op(key), Left: left, Right: right}, nil
}

func buildOperand(v any, absolute bool) (*ast.Operand, error) {
	if m, ok := toStringMap(v); ok {
		ref, ok := m["var"]
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("operand map must be {var: path}")
		}
		path, ok := ref.(string)
		if !ok {
			return nil, fmt.Errorf("var path must be a string, got %T", ref)
		}
		if absolute {
			path = rcl.CanonicalizePath(path)
		}
		return ast.Variable(path), nil
	}

	switch val := v.(type) {
	case string, bool, nil:
		return ast.Literal(val), nil
	case float64:
		return ast.Literal(val), nil
	case int:
		return ast.Literal(float64(val)), nil
	case int64:
		return ast.Literal(float64(val)), nil
	default:
		return nil, fmt.Errorf("unsupported literal type %T", v)
	}
}

// toStringMap normalizes the two map shapes YAML and JSON decoders produce.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}
