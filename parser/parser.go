package parser

import (
	"errors"
	"fmt"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

// MaxArgs is the maximum number of parameters or call arguments.
const MaxArgs = 255

type Parser struct {
	tokens     []token.Token
	current    int
	err        error
	statements []StatementParser
	blocks     int // nesting depth of Block
}

func NewParser(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, current: 0, err: nil, statements: defaultStatementParsers()}
}

// AddStatementParser appends sp to the statement registry.
// Parsers are consulted in registration order, so sp only sees statements the defaults do not claim.
func (p *Parser) AddStatementParser(sp StatementParser) {
	p.statements = append(p.statements, sp)
}

// Parse parses the whole token stream.
// A syntax error abandons the current statement only; parsing resumes at the next statement
// boundary and all errors are returned joined.
func (p *Parser) Parse() ([]ast.Stmt, error) {
	p.err = nil
	stmts := []ast.Stmt{}
	for !p.IsAtEnd() {
		if stmt := p.Declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	return stmts, p.err
}

// ParseExpr parses a single expression that must span the whole input.
func (p *Parser) ParseExpr() (expr ast.Expr, err error) {
	p.err = nil
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			expr, err = nil, p.err
		}
	}()
	expr = p.Expression()
	if !p.IsAtEnd() {
		p.Fail(p.Peek(), "expected end of input, found %s", describe(p.Peek()))
	}

	return expr, p.err
}

// Error is a syntax error.
type Error struct {
	Where   token.Token
	Message string
}

func (e *Error) Error() string {
	return e.Diagnostic().Error()
}

func (e *Error) Diagnostic() utils.Diagnostic {
	return utils.Diagnostic{Phase: utils.Parsing, Line: e.Where.Line, Column: e.Where.Column, Message: e.Message}
}

type bailout struct{}

// Declaration parses one statement with the registry.
// On a syntax error it synchronizes and returns nil.
func (p *Parser) Declaration() (stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()

	for _, sp := range p.statements {
		if sp.Match(p) {
			return sp.Parse(p)
		}
	}

	return p.expressionStatement()
}

// synchronize skips to the next statement boundary.
// Inside a block it stops before the closing brace so the block still ends where it should.
func (p *Parser) synchronize() {
	if p.blocks > 0 && p.Check(token.RIGHTBRACE) {
		return
	}
	p.Advance()
	for !p.IsAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		//exhaustive:ignore
		switch p.Peek().Kind {
		case token.CLASS, token.FUN, token.VAR, token.FINAL, token.FOR, token.IF, token.WHILE, token.DO,
			token.REPEAT, token.PRINT, token.RETURN, token.MODULE, token.NATIVE, token.TEST, token.SWITCH, token.RIGHTBRACE:
			return
		}
		p.Advance()
	}
}

// report records an error without abandoning the statement.
func (p *Parser) report(where token.Token, format string, args ...any) {
	p.err = errors.Join(p.err, &Error{Where: where, Message: fmt.Sprintf(format, args...)})
}

// Fail records an error and abandons the current statement.
func (p *Parser) Fail(where token.Token, format string, args ...any) {
	p.report(where, format, args...)
	panic(bailout{})
}

func describe(t token.Token) string {
	if t.Kind == token.EOF {
		return "end of input"
	}
	return "`" + t.Lexeme + "`"
}

func (p Parser) Peek() token.Token {
	return p.tokens[p.current]
}

func (p Parser) peekNth(n int) token.Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

func (p *Parser) Advance() token.Token {
	if !p.IsAtEnd() {
		p.current++
	}

	return p.previous()
}

func (p Parser) previous() token.Token {
	return p.tokens[p.current-1]
}

func (p Parser) IsAtEnd() bool {
	return p.Peek().Kind == token.EOF
}

// Check reports whether the current token is one of kinds.
func (p Parser) Check(kinds ...token.Kind) bool {
	if p.IsAtEnd() {
		return false
	}
	for _, kind := range kinds {
		if p.Peek().Kind == kind {
			return true
		}
	}

	return false
}

// CheckNth is Check on the token n positions ahead.
func (p Parser) CheckNth(n int, kind token.Kind) bool {
	t := p.peekNth(n)
	return t.Kind != token.EOF && t.Kind == kind
}

// Consume advances over a token of the given kind or fails the statement.
func (p *Parser) Consume(kind token.Kind, context string) token.Token {
	if p.Check(kind) {
		return p.Advance()
	}

	if context != "" {
		context = " " + context
	}
	p.Fail(p.Peek(), "expected %s%s, found %s", kind, context, describe(p.Peek()))

	return p.Peek()
}

// Expression parses an expression at the lowest precedence.
func (p *Parser) Expression() ast.Expr {
	return p.assignment()
}

// assignment = target ("=" | "+=" | "-=" | ...) assignment | elvis ;
// target = IDENT | call "." IDENT | call "[" expr "]" ;
func (p *Parser) assignment() ast.Expr {
	expr := p.elvis()
	if p.Check(token.EQUAL) {
		equals := p.Advance()
		value := p.assignment()
		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assign{Name: target.Name, Value: value}
		case *ast.Get:
			return &ast.Set{Object: target.Object, Name: target.Name, Value: value}
		case *ast.Index:
			return &ast.IndexSet{Object: target.Object, Bracket: target.Bracket, Index: target.Index, Value: value}
		}
		p.report(equals, "invalid assignment target")
	}
	if _, ok := token.CompoundOperators[p.Peek().Kind]; ok {
		op := p.Advance()
		value := p.assignment()
		if !assignable(expr) {
			p.report(op, "invalid assignment target")
		}
		return &ast.CompoundAssign{Target: expr, Op: op, Value: value}
	}

	return expr
}

// assignable reports whether expr names a variable, property or array element.
func assignable(expr ast.Expr) bool {
	switch expr.(type) {
	case *ast.Variable, *ast.Get, *ast.Index:
		return true
	default:
		return false
	}
}

// elvis = ternary ("?:" elvis)? ;
func (p *Parser) elvis() ast.Expr {
	expr := p.ternary()
	if p.Check(token.ELVIS) {
		op := p.Advance()
		right := p.elvis()
		return &ast.Elvis{Condition: expr, Op: op, Right: right}
	}

	return expr
}

// ternary = or ("?" expr ":" ternary)? ;
func (p *Parser) ternary() ast.Expr {
	expr := p.or()
	if p.Check(token.QUESTION) {
		question := p.Advance()
		then := p.Expression()
		p.Consume(token.COLON, "in conditional expression")
		els := p.ternary()
		return &ast.Ternary{Condition: expr, Question: question, Then: then, Else: els}
	}

	return expr
}

func logical(left ast.Expr, op token.Token, right ast.Expr) ast.Expr {
	return &ast.Logical{Left: left, Op: op, Right: right}
}

func bitwise(left ast.Expr, op token.Token, right ast.Expr) ast.Expr {
	return &ast.Bitwise{Left: left, Op: op, Right: right}
}

func binary(left ast.Expr, op token.Token, right ast.Expr) ast.Expr {
	return &ast.Binary{Left: left, Op: op, Right: right}
}

// leftAssoc parses next (op next)* for the given operator kinds.
func (p *Parser) leftAssoc(next func() ast.Expr, build func(ast.Expr, token.Token, ast.Expr) ast.Expr, ops ...token.Kind) ast.Expr {
	expr := next()
	for p.Check(ops...) {
		op := p.Advance()
		right := next()
		expr = build(expr, op, right)
	}

	return expr
}

// or = and (("or" | "||") and)* ;
func (p *Parser) or() ast.Expr {
	return p.leftAssoc(p.and, logical, token.OR)
}

// and = bitOr (("and" | "&&") bitOr)* ;
func (p *Parser) and() ast.Expr {
	return p.leftAssoc(p.bitOr, logical, token.AND)
}

// bitOr = bitXor ("|" bitXor)* ;
func (p *Parser) bitOr() ast.Expr {
	return p.leftAssoc(p.bitXor, bitwise, token.PIPE)
}

// bitXor = bitAnd ("^" bitAnd)* ;
func (p *Parser) bitXor() ast.Expr {
	return p.leftAssoc(p.bitAnd, bitwise, token.CARET)
}

// bitAnd = equality ("&" equality)* ;
func (p *Parser) bitAnd() ast.Expr {
	return p.leftAssoc(p.equality, bitwise, token.AMPERSAND)
}

// equality = comparison (("!=" | "==") comparison)* ;
func (p *Parser) equality() ast.Expr {
	return p.leftAssoc(p.comparison, binary, token.BANGEQUAL, token.EQUALEQUAL)
}

// comparison = range ((">" | ">=" | "<" | "<=") range)* ;
func (p *Parser) comparison() ast.Expr {
	return p.leftAssoc(p.rangeExpr, binary, token.GREATER, token.GREATEREQUAL, token.LESS, token.LESSEQUAL)
}

// range = shift (".." shift)? ;
func (p *Parser) rangeExpr() ast.Expr {
	expr := p.shift()
	if p.Check(token.DOTDOT) {
		op := p.Advance()
		right := p.shift()
		return &ast.Range{Left: expr, Op: op, Right: right}
	}

	return expr
}

// shift = term (("<<" | ">>" | ">>>") term)* ;
func (p *Parser) shift() ast.Expr {
	return p.leftAssoc(p.term, bitwise, token.SHIFTLEFT, token.SHIFTRIGHT, token.LOGICALSHIFTRIGHT)
}

// term = factor (("-" | "+") factor)* ;
func (p *Parser) term() ast.Expr {
	return p.leftAssoc(p.factor, binary, token.MINUS, token.PLUS)
}

// factor = unary (("/" | "*" | "%") unary)* ;
func (p *Parser) factor() ast.Expr {
	return p.leftAssoc(p.unary, binary, token.SLASH, token.STAR, token.PERCENT)
}

// unary = ("!" | "-" | "~") unary | ("++" | "--") unary | postfix ;
func (p *Parser) unary() ast.Expr {
	if p.Check(token.BANG, token.MINUS, token.TILDE) {
		op := p.Advance()
		right := p.unary()
		return &ast.Unary{Op: op, Right: right}
	}
	if p.Check(token.PLUSPLUS, token.MINUSMINUS) {
		op := p.Advance()
		return p.increment(op, p.unary(), true)
	}

	return p.postfix()
}

// postfix = call ("++" | "--")? ;
func (p *Parser) postfix() ast.Expr {
	expr := p.call()
	if p.Check(token.PLUSPLUS, token.MINUSMINUS) {
		return p.increment(p.Advance(), expr, false)
	}

	return expr
}

func (p *Parser) increment(op token.Token, target ast.Expr, prefix bool) ast.Expr {
	if !assignable(target) {
		p.report(op, "invalid %s target", op.Lexeme)
	}

	return &ast.Increment{Op: op, Target: target, Prefix: prefix}
}

// call = primary ("(" arguments? ")" | "." IDENT | "[" expr "]")* ;
func (p *Parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.Check(token.LEFTPAREN):
			expr = p.callTail(expr)
		case p.Check(token.DOT):
			p.Advance()
			name := p.Consume(token.IDENT, "property name after `.`")
			expr = &ast.Get{Object: expr, Name: name}
		case p.Check(token.LEFTBRACKET):
			bracket := p.Advance()
			index := p.Expression()
			p.Consume(token.RIGHTBRACKET, "after index")
			expr = &ast.Index{Object: expr, Bracket: bracket, Index: index}
		default:
			return expr
		}
	}
}

// callTail = "(" ")" | "(" expr ("," expr)* ")" ;
func (p *Parser) callTail(callee ast.Expr) ast.Expr {
	p.Consume(token.LEFTPAREN, "before arguments")
	args := []ast.Expr{}
	if !p.Check(token.RIGHTPAREN) {
		args = append(args, p.Expression())
		for p.Check(token.COMMA) {
			p.Advance()
			if len(args) >= MaxArgs {
				p.report(p.Peek(), "can't have more than %d arguments", MaxArgs)
			}
			args = append(args, p.Expression())
		}
	}
	paren := p.Consume(token.RIGHTPAREN, "after arguments")

	return &ast.Call{Callee: callee, Paren: paren, Args: args}
}

// primary = "true" | "false" | "null" | NUMBER | STRING | "this" | "super" "." IDENT
//
//	| IDENT | "(" expr ")" | "fun" "(" params? ")" block | array ;
func (p *Parser) primary() ast.Expr {
	if p.IsAtEnd() {
		p.Fail(p.Peek(), "expected expression, found end of input")
	}
	//exhaustive:ignore
	switch tok := p.Advance(); tok.Kind {
	case token.TRUE:
		return &ast.Literal{Token: tok, Value: true}
	case token.FALSE:
		return &ast.Literal{Token: tok, Value: false}
	case token.NULL:
		return &ast.Literal{Token: tok, Value: nil}
	case token.NUMBER, token.STRING:
		return &ast.Literal{Token: tok, Value: tok.Literal}
	case token.THIS:
		return &ast.This{Keyword: tok}
	case token.SUPER:
		p.Consume(token.DOT, "after `super`")
		method := p.Consume(token.IDENT, "superclass method name")
		return &ast.Super{Keyword: tok, Method: method}
	case token.IDENT:
		return &ast.Variable{Name: tok}
	case token.LEFTPAREN:
		expr := p.Expression()
		p.Consume(token.RIGHTPAREN, "after expression")
		return &ast.Grouping{Expr: expr}
	case token.FUN:
		params := p.params()
		body := p.Block()
		return &ast.Function{Keyword: tok, Params: params, Body: body.Statements}
	case token.LEFTBRACKET:
		return p.array(tok)
	default:
		// leave the offending token for synchronize
		p.current--
		p.Fail(tok, "expected expression, found %s", describe(tok))
		return nil
	}
}

// array = "[" (expr ("," expr)*)? "]"
//
//	| "[" expr "for" IDENT "in" expr ("if" expr ("else" expr)?)? "]" ;
func (p *Parser) array(bracket token.Token) ast.Expr {
	if p.Check(token.RIGHTBRACKET) {
		p.Advance()
		return &ast.Array{Bracket: bracket, Elements: []ast.Expr{}}
	}

	first := p.Expression()
	if p.Check(token.FOR) {
		p.Advance()
		c := &ast.Comprehension{Bracket: bracket, Element: first}
		c.Selector = p.Consume(token.IDENT, "comprehension variable")
		p.Consume(token.IN, "after comprehension variable")
		c.Collection = p.Expression()
		if p.Check(token.IF) {
			p.Advance()
			c.Condition = p.Expression()
			if p.Check(token.ELSE) {
				p.Advance()
				c.Else = p.Expression()
			}
		}
		p.Consume(token.RIGHTBRACKET, "after comprehension")
		return c
	}

	elems := []ast.Expr{first}
	for p.Check(token.COMMA) {
		p.Advance()
		elems = append(elems, p.Expression())
	}
	p.Consume(token.RIGHTBRACKET, "after array elements")

	return &ast.Array{Bracket: bracket, Elements: elems}
}

// params = "(" (IDENT ("," IDENT)*)? ")" ;
func (p *Parser) params() []token.Token {
	p.Consume(token.LEFTPAREN, "before parameters")
	params := []token.Token{}
	if !p.Check(token.RIGHTPAREN) {
		params = append(params, p.Consume(token.IDENT, "parameter name"))
		for p.Check(token.COMMA) {
			p.Advance()
			if len(params) >= MaxArgs {
				p.report(p.Peek(), "can't have more than %d parameters", MaxArgs)
			}
			params = append(params, p.Consume(token.IDENT, "parameter name"))
		}
	}
	p.Consume(token.RIGHTPAREN, "after parameters")

	return params
}

// Block = "{" declaration* "}" ;
func (p *Parser) Block() *ast.Block {
	brace := p.Consume(token.LEFTBRACE, "before block")
	p.blocks++
	defer func() { p.blocks-- }()
	stmts := []ast.Stmt{}
	for !p.Check(token.RIGHTBRACE) && !p.IsAtEnd() {
		if stmt := p.Declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.Consume(token.RIGHTBRACE, "after block")

	return &ast.Block{Brace: brace, Statements: stmts}
}
