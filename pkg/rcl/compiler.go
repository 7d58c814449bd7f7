package rcl

import (
	"fmt"
	"strconv"
	"strings"

	"draftline-hq/meridian/pkg/rcl/ast"
)

// CompiledCondition is the compiler output for one DSL expression. It is
// attached back onto the policy condition and re-evaluated on every
// lifecycle event without re-parsing the source string.
type CompiledCondition struct {
	// DSL is the expression exactly as authored.
	DSL string

	// CanonicalDSL is the normalized rendering: single spaces, double
	// quotes, facet-shorthand paths with the value segment explicit.
	// Empty when compilation degraded.
	CanonicalDSL string

	// Logic is the compiled tree. Never nil: degraded compilations
	// produce a never-matching node.
	Logic *ast.Node

	// Variables lists the absolute snapshot paths Logic dereferences,
	// in 1:1 correspondence with the tree (sorted, deduplicated).
	Variables []string

	// Warnings holds one diagnostic per degradation. Non-empty iff the
	// expression did not compile cleanly.
	Warnings []string
}

// Compile parses a single-line RCL expression into a compiled condition.
//
// Compile is pure and deterministic: it never reads the run context, and the
// same input always yields byte-identical logic and variables. Unsupported
// syntax does not produce an error; the result degrades to a never-matching
// node with a diagnostic appended to Warnings, so one malformed policy can
// not take down a whole run.
func Compile(dsl string) *CompiledCondition {
	cc := &CompiledCondition{DSL: dsl}

	tokens, err := newScanner(dsl).scan()
	if err != nil {
		return cc.degrade(err)
	}

	p := &parser{tokens: tokens}
	node, err := p.parseExpression()
	if err != nil {
		return cc.degrade(err)
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return cc.degrade(fmt.Errorf("unexpected trailing input %q at offset %d", tok.text, tok.pos))
	}

	cc.Logic = node
	cc.Variables = node.Variables()
	cc.CanonicalDSL = renderNode(node)
	return cc
}

// degrade records the diagnostic and installs a never-matching tree.
func (cc *CompiledCondition) degrade(err error) *CompiledCondition {
	cc.Logic = ast.Never()
	cc.Variables = []string{}
	cc.Warnings = append(cc.Warnings, fmt.Sprintf("unsupported expression %q: %v", cc.DSL, err))
	return cc
}

// parser is a recursive-descent parser over the scanned tokens.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.advance()
	if tok.kind != kind {
		return token{}, fmt.Errorf("expected %s at offset %d, found %q", what, tok.pos, tok.text)
	}
	return tok, nil
}

// parseExpression parses a quantifier or a comparison.
func (p *parser) parseExpression() (*ast.Node, error) {
	tok := p.peek()
	if tok.kind == tokenPath && (tok.text == "some" || tok.text == "all") &&
		p.tokens[p.pos+1].kind == tokenLParen {
		return p.parseQuantifier()
	}
	return p.parseComparison(true)
}

// parseQuantifier parses some(collection, predicate) / all(collection, predicate).
func (p *parser) parseQuantifier() (*ast.Node, error) {
	name := p.advance()

	op := ast.OpSome
	if name.text == "all" {
		op = ast.OpAll
	}

	if _, err := p.expect(tokenLParen, "'('"); err != nil {
		return nil, err
	}

	coll, err := p.expect(tokenPath, "collection path")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenComma, "','"); err != nil {
		return nil, err
	}

	// Predicate paths resolve against each collection element, so they
	// stay relative.
	predicate, err := p.parseComparison(false)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenRParen, "')'"); err != nil {
		return nil, err
	}

	return &ast.Node{
		Op:         op,
		Collection: CanonicalizePath(coll.text),
		Predicate:  predicate,
	}, nil
}

// parseComparison parses operand OP operand. absolute controls whether path
// operands are canonicalized against the snapshot root.
func (p *parser) parseComparison(absolute bool) (*ast.Node, error) {
	left, err := p.parseOperand(absolute)
	if err != nil {
		return nil, err
	}

	opTok, err := p.expect(tokenOperator, "comparison operator")
	if err != nil {
		return nil, err
	}

	right, err := p.parseOperand(absolute)
	if err != nil {
		return nil, err
	}

	if !left.IsVar && !right.IsVar {
		return nil, fmt.Errorf("comparison at offset %d references no facet path", opTok.pos)
	}

	return &ast.Node{Op: ast.Op(opTok.text), Left: left, Right: right}, nil
}

func (p *parser) parseOperand(absolute bool) (*ast.Operand, error) {
	tok := p.advance()

	switch tok.kind {
	case tokenPath:
		path := tok.text
		if absolute {
			path = CanonicalizePath(path)
		}
		return ast.Variable(path), nil

	case tokenNumber:
		return ast.Literal(tok.num), nil

	case tokenString:
		return ast.Literal(tok.str), nil

	case tokenBool:
		return ast.Literal(tok.b), nil

	case tokenNull:
		return ast.Literal(nil), nil

	default:
		return nil, fmt.Errorf("expected operand at offset %d, found %q", tok.pos, tok.text)
	}
}

// renderNode produces the canonical DSL text for a compiled tree.
func renderNode(n *ast.Node) string {
	if n.IsQuantifier() {
		return fmt.Sprintf("%s(%s, %s)", n.Op, ShorthandPath(n.Collection), renderNode(n.Predicate))
	}
	return fmt.Sprintf("%s %s %s", renderOperand(n.Left), n.Op, renderOperand(n.Right))
}

func renderOperand(o *ast.Operand) string {
	if o.IsVar {
		return ShorthandPath(o.Var)
	}

	switch v := o.Literal.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
