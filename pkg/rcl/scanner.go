package rcl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind identifies the lexical class of a token.
type tokenKind int

const (
	tokenPath tokenKind = iota // dotted identifier: facets.planKnobs.hookIntensity
	tokenNumber
	tokenString
	tokenBool
	tokenNull
	tokenOperator // == != < <= > >=
	tokenLParen
	tokenRParen
	tokenComma
	tokenEOF
)

// token is a single lexical token of an RCL expression.
type token struct {
	kind tokenKind
	text string  // raw text (path, operator)
	num  float64 // value for tokenNumber
	str  string  // value for tokenString
	b    bool    // value for tokenBool
	pos  int     // byte offset in the source expression
}

// scanner tokenizes a single-line RCL expression. It never panics; lexical
// errors are returned so the compiler can degrade the whole expression.
type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

// scan returns all tokens including the trailing EOF token.
func (s *scanner) scan() ([]token, error) {
	var tokens []token
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (s *scanner) next() (token, error) {
	s.skipSpace()

	if s.pos >= len(s.src) {
		return token{kind: tokenEOF, pos: s.pos}, nil
	}

	start := s.pos
	c := s.src[s.pos]

	switch {
	case c == '(':
		s.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil

	case c == ')':
		s.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil

	case c == ',':
		s.pos++
		return token{kind: tokenComma, text: ",", pos: start}, nil

	case c == '\'' || c == '"':
		return s.scanString(c)

	case c == '-' || unicode.IsDigit(rune(c)):
		return s.scanNumber()

	case isPathStart(c):
		return s.scanIdent()

	case strings.ContainsRune("<>=!", rune(c)):
		return s.scanOperator()

	default:
		return token{}, fmt.Errorf("unexpected character %q at offset %d", c, start)
	}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *scanner) scanString(quote byte) (token, error) {
	start := s.pos
	s.pos++ // consume opening quote

	var sb strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == quote {
			s.pos++
			return token{kind: tokenString, str: sb.String(), pos: start}, nil
		}
		sb.WriteByte(c)
		s.pos++
	}

	return token{}, fmt.Errorf("unterminated string starting at offset %d", start)
}

func (s *scanner) scanNumber() (token, error) {
	start := s.pos
	if s.src[s.pos] == '-' {
		s.pos++
	}
	for s.pos < len(s.src) && (unicode.IsDigit(rune(s.src[s.pos])) || s.src[s.pos] == '.') {
		s.pos++
	}

	text := s.src[start:s.pos]
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, fmt.Errorf("invalid number %q at offset %d", text, start)
	}

	return token{kind: tokenNumber, num: num, text: text, pos: start}, nil
}

func (s *scanner) scanIdent() (token, error) {
	start := s.pos
	for s.pos < len(s.src) && isPathChar(s.src[s.pos]) {
		s.pos++
	}

	text := s.src[start:s.pos]
	switch text {
	case "true":
		return token{kind: tokenBool, b: true, text: text, pos: start}, nil
	case "false":
		return token{kind: tokenBool, b: false, text: text, pos: start}, nil
	case "null":
		return token{kind: tokenNull, text: text, pos: start}, nil
	}

	return token{kind: tokenPath, text: text, pos: start}, nil
}

func (s *scanner) scanOperator() (token, error) {
	start := s.pos
	for s.pos < len(s.src) && strings.ContainsRune("<>=!", rune(s.src[s.pos])) {
		s.pos++
	}

	text := s.src[start:s.pos]
	switch text {
	case "==", "!=", "<", "<=", ">", ">=":
		return token{kind: tokenOperator, text: text, pos: start}, nil
	}

	return token{}, fmt.Errorf("unsupported operator %q at offset %d", text, start)
}

func isPathStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isPathChar(c byte) bool {
	return c == '_' || c == '.' || c == '-' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}
