package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alepiz/counterprocessor/human"
)

var (
	ErrMissingExpr         = errors.New("missing expression")
	ErrMissingParen        = errors.New("missing closing parenthesis")
	ErrMissingComma        = errors.New("missing comma")
	ErrMissingQuote        = errors.New("missing quote")
	ErrMissingVarEnd       = errors.New("variable reference is not terminated with :%")
	ErrEmptyVarName        = errors.New("empty variable name")
	ErrUnexpectedCharacter = errors.New("unexpected character")
)

type ErrUnknownFunction string

func (e ErrUnknownFunction) Error() string {
	return fmt.Sprintf("unknown function %q", string(e))
}

type ErrBadNumber string

func (e ErrBadNumber) Error() string {
	return fmt.Sprintf("bad number %q", string(e))
}

type ErrLeftover string

func (e ErrLeftover) Error() string {
	return fmt.Sprintf("failed to parse expression fully. got leftover %q", string(e))
}

// binary operators by precedence level, lowest first.
// "=" and "<>" are accepted as aliases of "==" and "!=".
var levels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "<>", "<=", ">=", "<", ">", "="},
	{"+", "-"},
	{"*", "/", "%"},
}

var aliases = map[string]string{
	"=":  "==",
	"<>": "!=",
}

// Parse parses an expression string into a compiled expression.
func Parse(s string) (*Expr, error) {
	e, leftover, err := parseLevel(s, 0)
	if err != nil {
		return nil, err
	}
	leftover = skipSpace(leftover)
	if leftover != "" {
		return nil, ErrLeftover(leftover)
	}
	return &Expr{text: s, root: e}, nil
}

func skipSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t' || s[0] == '\n' || s[0] == '\r') {
		s = s[1:]
	}
	return s
}

// parseLevel parses a chain of left associative binary operators of the given precedence level
func parseLevel(s string, level int) (*expr, string, error) {
	if level == len(levels) {
		return parseUnary(s)
	}
	left, s, err := parseLevel(s, level+1)
	if err != nil {
		return nil, s, err
	}
	for {
		s = skipSpace(s)
		op := matchOp(s, levels[level])
		if op == "" {
			return left, s, nil
		}
		var right *expr
		right, s, err = parseLevel(s[len(op):], level+1)
		if err != nil {
			return nil, s, err
		}
		if alias, ok := aliases[op]; ok {
			op = alias
		}
		left = &expr{etype: etBinary, str: op, args: []*expr{left, right}}
	}
}

// matchOp returns the operator of ops that s starts with.
// ops are ordered so that longer operators are tried before their prefixes.
func matchOp(s string, ops []string) string {
	for _, op := range ops {
		if !strings.HasPrefix(s, op) {
			continue
		}
		// "=" must not eat the first half of "==", nor "<" of "<=" etc
		if op == "=" && strings.HasPrefix(s, "==") {
			continue
		}
		// the % of a variable reference is not a modulo
		if op == "%" && strings.HasPrefix(s, "%:") {
			continue
		}
		return op
	}
	return ""
}

func parseUnary(s string) (*expr, string, error) {
	s = skipSpace(s)
	if s == "" {
		return nil, "", ErrMissingExpr
	}
	switch s[0] {
	case '!':
		if !strings.HasPrefix(s, "!=") {
			operand, rest, err := parseUnary(s[1:])
			if err != nil {
				return nil, rest, err
			}
			return &expr{etype: etUnary, str: "!", args: []*expr{operand}}, rest, nil
		}
	case '-', '+':
		// a sign directly followed by a digit is part of the number
		if len(s) > 1 && (isDigit(s[1]) || s[1] == '.') {
			return parseNumber(s)
		}
		operand, rest, err := parseUnary(s[1:])
		if err != nil {
			return nil, rest, err
		}
		return &expr{etype: etUnary, str: s[:1], args: []*expr{operand}}, rest, nil
	}
	return parsePrimary(s)
}

func parsePrimary(s string) (*expr, string, error) {
	switch {
	case s[0] == '(':
		e, rest, err := parseLevel(s[1:], 0)
		if err != nil {
			return nil, rest, err
		}
		rest = skipSpace(rest)
		if rest == "" || rest[0] != ')' {
			return nil, rest, ErrMissingParen
		}
		return e, rest[1:], nil
	case isDigit(s[0]) || s[0] == '.':
		return parseNumber(s)
	case s[0] == '\'' || s[0] == '"':
		val, rest, err := parseString(s)
		return &expr{etype: etString, str: val}, rest, err
	case strings.HasPrefix(s, "%:"):
		return parseVar(s)
	}

	name, rest := parseName(s)
	if name == "" {
		return nil, s, ErrUnexpectedCharacter
	}
	switch strings.ToLower(name) {
	case "true":
		return &expr{etype: etBool, bool: true, str: name}, rest, nil
	case "false":
		return &expr{etype: etBool, bool: false, str: name}, rest, nil
	}
	rest = skipSpace(rest)
	if rest == "" || rest[0] != '(' {
		return nil, rest, ErrUnexpectedCharacter
	}
	if _, ok := builtins[strings.ToLower(name)]; !ok {
		return nil, rest, ErrUnknownFunction(name)
	}
	args, rest, err := parseArgList(rest)
	if err != nil {
		return nil, rest, err
	}
	return &expr{etype: etFunc, str: strings.ToLower(name), args: args}, rest, nil
}

// caller must assure s starts with opening paren
func parseArgList(s string) ([]*expr, string, error) {
	if s[0] != '(' {
		panic("arg list should start with paren. calling code should have asserted this")
	}
	s = skipSpace(s[1:])
	var args []*expr
	if s != "" && s[0] == ')' {
		return args, s[1:], nil
	}
	for {
		arg, rest, err := parseLevel(s, 0)
		if err != nil {
			return nil, rest, err
		}
		args = append(args, arg)
		rest = skipSpace(rest)
		if rest == "" {
			return nil, "", ErrMissingParen
		}
		if rest[0] == ')' {
			return args, rest[1:], nil
		}
		if rest[0] != ',' {
			return nil, rest, ErrMissingComma
		}
		s = rest[1:]
	}
}

func isDigit(r byte) bool {
	return '0' <= r && r <= '9'
}

func isLetter(r byte) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

func parseName(s string) (string, string) {
	var i int
	for i < len(s) && (isLetter(s[i]) || isDigit(s[i]) || s[i] == '_') {
		i++
	}
	return s[:i], s[i:]
}

// parseNumber parses a number optionally followed by a unit suffix like 10s or 2Mb.
func parseNumber(s string) (*expr, string, error) {
	var i int
	if s[0] == '-' || s[0] == '+' {
		i++
	}
	for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
		i++
	}
	// exponent
	if i+1 < len(s) && (s[i] == 'e' || s[i] == 'E') && (isDigit(s[i+1]) || (i+2 < len(s) && (s[i+1] == '-' || s[i+1] == '+') && isDigit(s[i+2]))) {
		i += 2
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	num := s[:i]
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	if j > i {
		v, ok := human.Parse(s[:j])
		if !ok {
			return nil, s[j:], ErrBadNumber(s[:j])
		}
		return &expr{etype: etNumber, float: v, str: s[:j]}, s[j:], nil
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil, s[i:], ErrBadNumber(num)
	}
	return &expr{etype: etNumber, float: v, str: num}, s[i:], nil
}

// caller must assure s starts with a single or double quote
func parseString(s string) (string, string, error) {
	if s[0] != '\'' && s[0] != '"' {
		panic("string should start with open quote. calling code should have asserted this")
	}
	match := s[0]
	s = s[1:]
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])
			continue
		}
		if s[i] == match {
			return b.String(), s[i+1:], nil
		}
		b.WriteByte(s[i])
	}
	return "", "", ErrMissingQuote
}

// caller must assure s starts with %:
func parseVar(s string) (*expr, string, error) {
	s = s[2:]
	tolerant := false
	if s != "" && s[0] == '?' {
		tolerant = true
		s = s[1:]
	}
	end := strings.Index(s, ":%")
	if end < 0 {
		return nil, "", ErrMissingVarEnd
	}
	name := strings.TrimSpace(s[:end])
	if name == "" {
		return nil, s[end+2:], ErrEmptyVarName
	}
	return &expr{etype: etVar, str: name, tolerant: tolerant}, s[end+2:], nil
}
