package parser

import (
	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
)

// StatementParser claims statements by lookahead and parses them.
// Match must not consume tokens.
type StatementParser struct {
	Name  string
	Match func(p *Parser) bool
	Parse func(p *Parser) ast.Stmt
}

func keyword(kind token.Kind) func(p *Parser) bool {
	return func(p *Parser) bool { return p.Check(kind) }
}

func defaultStatementParsers() []StatementParser {
	return []StatementParser{
		{Name: "module", Match: keyword(token.MODULE), Parse: (*Parser).moduleStatement},
		{Name: "native", Match: keyword(token.NATIVE), Parse: (*Parser).nativeStatement},
		{Name: "class", Match: keyword(token.CLASS), Parse: (*Parser).classDeclaration},
		{Name: "extension", Match: func(p *Parser) bool {
			return p.Check(token.FUN) && p.CheckNth(1, token.IDENT) && p.CheckNth(2, token.COLON)
		}, Parse: (*Parser).extensionDeclaration},
		{Name: "function", Match: func(p *Parser) bool {
			return p.Check(token.FUN) && p.CheckNth(1, token.IDENT)
		}, Parse: (*Parser).functionDeclaration},
		{Name: "var", Match: func(p *Parser) bool {
			return p.Check(token.VAR) || (p.Check(token.FINAL) && p.CheckNth(1, token.VAR))
		}, Parse: (*Parser).varStatement},
		{Name: "if", Match: keyword(token.IF), Parse: (*Parser).ifStatement},
		{Name: "while", Match: keyword(token.WHILE), Parse: (*Parser).whileStatement},
		{Name: "do", Match: keyword(token.DO), Parse: (*Parser).doWhileStatement},
		{Name: "foreach", Match: func(p *Parser) bool {
			return p.Check(token.FOR) && p.CheckNth(1, token.LEFTPAREN) && p.CheckNth(2, token.VAR) &&
				p.CheckNth(3, token.IDENT) && p.CheckNth(4, token.IN)
		}, Parse: (*Parser).forEachStatement},
		{Name: "for", Match: keyword(token.FOR), Parse: (*Parser).forStatement},
		{Name: "repeat", Match: keyword(token.REPEAT), Parse: (*Parser).repeatStatement},
		{Name: "switch", Match: keyword(token.SWITCH), Parse: (*Parser).switchStatement},
		{Name: "return", Match: keyword(token.RETURN), Parse: (*Parser).returnStatement},
		{Name: "break", Match: keyword(token.BREAK), Parse: func(p *Parser) ast.Stmt {
			kw := p.Advance()
			p.Consume(token.SEMICOLON, "after `break`")
			return &ast.Break{Keyword: kw}
		}},
		{Name: "continue", Match: keyword(token.CONTINUE), Parse: func(p *Parser) ast.Stmt {
			kw := p.Advance()
			p.Consume(token.SEMICOLON, "after `continue`")
			return &ast.Continue{Keyword: kw}
		}},
		{Name: "test", Match: keyword(token.TEST), Parse: (*Parser).testStatement},
		{Name: "print", Match: keyword(token.PRINT), Parse: (*Parser).printStatement},
		{Name: "block", Match: keyword(token.LEFTBRACE), Parse: func(p *Parser) ast.Stmt {
			return p.Block()
		}},
	}
}

// expressionStatement = expr ";" ;
func (p *Parser) expressionStatement() ast.Stmt {
	expr := p.Expression()
	p.Consume(token.SEMICOLON, "after expression")

	return &ast.Expression{Expr: expr}
}

// qualifiedName = IDENT ("." IDENT)* ;
// The parts are joined into one identifier token positioned at the first part.
func (p *Parser) qualifiedName(context string) []token.Token {
	parts := []token.Token{p.Consume(token.IDENT, context)}
	for p.Check(token.DOT) {
		p.Advance()
		parts = append(parts, p.Consume(token.IDENT, context))
	}

	return parts
}

func joinName(parts []token.Token) token.Token {
	name := parts[0]
	for _, part := range parts[1:] {
		name.Lexeme += "." + part.Lexeme
	}

	return name
}

// moduleStatement = "module" qualifiedName ";" ;
func (p *Parser) moduleStatement() ast.Stmt {
	p.Consume(token.MODULE, "")
	name := joinName(p.qualifiedName("module name"))
	p.Consume(token.SEMICOLON, "after module name")

	return &ast.Module{Name: name}
}

// nativeStatement = "native" "fun" IDENT ("." IDENT)+ params ";" ;
func (p *Parser) nativeStatement() ast.Stmt {
	p.Consume(token.NATIVE, "")
	p.Consume(token.FUN, "after `native`")
	parts := p.qualifiedName("native function name")
	if len(parts) < 2 {
		p.Fail(parts[0], "native function %s must be qualified by its module", parts[0].Lexeme)
	}
	params := p.params()
	p.Consume(token.SEMICOLON, "after native function declaration")

	return &ast.Native{Module: joinName(parts[:len(parts)-1]), Name: parts[len(parts)-1], Params: params}
}

// classDeclaration = "class" IDENT ("extends" IDENT)? "{" member* "}" ;
// member = "constructor" params block | "fun" IDENT params block | field ;
func (p *Parser) classDeclaration() ast.Stmt {
	p.Consume(token.CLASS, "")
	class := &ast.Class{Name: p.Consume(token.IDENT, "class name")}
	if p.Check(token.EXTENDS) {
		p.Advance()
		class.Superclass = &ast.Variable{Name: p.Consume(token.IDENT, "superclass name")}
	}

	p.Consume(token.LEFTBRACE, "before class body")
	for !p.Check(token.RIGHTBRACE) && !p.IsAtEnd() {
		switch {
		case p.Check(token.CONSTRUCTOR):
			kw := p.Advance()
			ctor := &ast.FunDecl{Name: kw, Params: p.params(), Body: p.Block().Statements}
			if class.Constructor != nil {
				p.report(kw, "class %s already has a constructor", class.Name.Lexeme)
			}
			class.Constructor = ctor
		case p.Check(token.FUN):
			p.Advance()
			class.Methods = append(class.Methods, p.function("method name"))
		default:
			class.Fields = append(class.Fields, p.field())
		}
	}
	p.Consume(token.RIGHTBRACE, "after class body")

	return class
}

// field = ("public" | "private")? "final"? IDENT ("=" expr)? ";" ;
func (p *Parser) field() *ast.Field {
	field := &ast.Field{}
	if p.Check(token.PUBLIC, token.PRIVATE) {
		field.Modifier = p.Advance()
	}
	if p.Check(token.FINAL) {
		p.Advance()
		field.Final = true
	}
	field.Name = p.Consume(token.IDENT, "field name")
	if p.Check(token.EQUAL) {
		p.Advance()
		field.Init = p.Expression()
	}
	p.Consume(token.SEMICOLON, "after field declaration")

	return field
}

// functionDeclaration = "fun" IDENT params block ;
func (p *Parser) functionDeclaration() ast.Stmt {
	p.Consume(token.FUN, "")

	return p.function("function name")
}

// extensionDeclaration = "fun" IDENT ":" IDENT params block ;
func (p *Parser) extensionDeclaration() ast.Stmt {
	p.Consume(token.FUN, "")
	class := p.Consume(token.IDENT, "class name")
	p.Consume(token.COLON, "after class name")

	return &ast.Extension{Class: &ast.Variable{Name: class}, Method: p.function("method name")}
}

func (p *Parser) function(context string) *ast.FunDecl {
	name := p.Consume(token.IDENT, context)
	params := p.params()
	body := p.Block()

	return &ast.FunDecl{Name: name, Params: params, Body: body.Statements}
}

func (p *Parser) varStatement() ast.Stmt {
	return p.varDeclaration()
}

// varDeclaration = "final"? "var" IDENT ("=" expr)? ";" ;
func (p *Parser) varDeclaration() *ast.Var {
	v := &ast.Var{}
	if p.Check(token.FINAL) {
		p.Advance()
		v.Final = true
	}
	p.Consume(token.VAR, "")
	v.Name = p.Consume(token.IDENT, "variable name")
	if p.Check(token.EQUAL) {
		p.Advance()
		v.Init = p.Expression()
	}
	p.Consume(token.SEMICOLON, "after variable declaration")

	return v
}

// condition = "(" expr ")" ;
func (p *Parser) condition(after string) ast.Expr {
	p.Consume(token.LEFTPAREN, "after "+after)
	cond := p.Expression()
	p.Consume(token.RIGHTPAREN, "after condition")

	return cond
}

// ifStatement = "if" condition block ("else" (ifStatement | block))? ;
func (p *Parser) ifStatement() ast.Stmt {
	kw := p.Consume(token.IF, "")
	stmt := &ast.If{Keyword: kw, Condition: p.condition("`if`"), Then: p.Block()}
	if p.Check(token.ELSE) {
		p.Advance()
		if p.Check(token.IF) {
			stmt.Else = p.ifStatement()
		} else {
			stmt.Else = p.Block()
		}
	}

	return stmt
}

// whileStatement = "while" condition block ;
func (p *Parser) whileStatement() ast.Stmt {
	kw := p.Consume(token.WHILE, "")

	return &ast.While{Keyword: kw, Condition: p.condition("`while`"), Body: p.Block()}
}

// doWhileStatement = "do" block "while" condition ";" ;
func (p *Parser) doWhileStatement() ast.Stmt {
	kw := p.Consume(token.DO, "")
	body := p.Block()
	p.Consume(token.WHILE, "after do body")
	cond := p.condition("`while`")
	p.Consume(token.SEMICOLON, "after do-while condition")

	return &ast.DoWhile{Keyword: kw, Body: body, Condition: cond}
}

// forStatement = "for" "(" varDeclaration expr ";" expr ")" block ;
func (p *Parser) forStatement() ast.Stmt {
	kw := p.Consume(token.FOR, "")
	p.Consume(token.LEFTPAREN, "after `for`")
	if !p.Check(token.VAR, token.FINAL) {
		p.Fail(p.Peek(), "expected variable declaration in for initializer, found %s", describe(p.Peek()))
	}
	init := p.varDeclaration()
	cond := p.Expression()
	p.Consume(token.SEMICOLON, "after loop condition")
	incr := p.Expression()
	p.Consume(token.RIGHTPAREN, "after for clauses")

	return &ast.For{Keyword: kw, Init: init, Condition: cond, Increment: incr, Body: p.Block()}
}

// forEachStatement = "for" "(" "var" IDENT "in" expr ")" block ;
func (p *Parser) forEachStatement() ast.Stmt {
	kw := p.Consume(token.FOR, "")
	p.Consume(token.LEFTPAREN, "after `for`")
	p.Consume(token.VAR, "")
	selector := p.Consume(token.IDENT, "loop variable")
	p.Consume(token.IN, "after loop variable")
	collection := p.Expression()
	p.Consume(token.RIGHTPAREN, "after collection")

	return &ast.ForEach{Keyword: kw, Selector: selector, Collection: collection, Body: p.Block()}
}

// repeatStatement = "repeat" "(" expr ")" block ;
func (p *Parser) repeatStatement() ast.Stmt {
	kw := p.Consume(token.REPEAT, "")

	return &ast.Repeat{Keyword: kw, Count: p.condition("`repeat`"), Body: p.Block()}
}

// switchStatement = "switch" condition "{" ("case" literal ":" declaration*)* ("default" ":" declaration*)? "}" ;
func (p *Parser) switchStatement() ast.Stmt {
	kw := p.Consume(token.SWITCH, "")
	stmt := &ast.Switch{Keyword: kw, Value: p.condition("`switch`")}
	p.Consume(token.LEFTBRACE, "before switch body")
	p.blocks++
	defer func() { p.blocks-- }()

	for !p.Check(token.RIGHTBRACE) && !p.IsAtEnd() {
		switch {
		case p.Check(token.CASE):
			c := &ast.Case{Keyword: p.Advance()}
			value := p.Expression()
			lit, ok := caseLiteral(value)
			if !ok {
				p.report(value.Base(), "case value must be a literal")
				lit = &ast.Literal{Token: value.Base(), Value: nil}
			}
			c.Value = lit
			p.Consume(token.COLON, "after case value")
			c.Body = p.caseBody()
			stmt.Cases = append(stmt.Cases, c)
		case p.Check(token.DEFAULT):
			c := &ast.Case{Keyword: p.Advance()}
			if stmt.Default != nil {
				p.report(c.Keyword, "switch already has a default case")
			}
			p.Consume(token.COLON, "after `default`")
			c.Body = p.caseBody()
			stmt.Default = c
		default:
			p.Fail(p.Peek(), "expected `case` or `default`, found %s", describe(p.Peek()))
		}
	}
	p.Consume(token.RIGHTBRACE, "after switch body")

	return stmt
}

// caseLiteral accepts a literal or a negated number literal.
func caseLiteral(expr ast.Expr) (*ast.Literal, bool) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e, true
	case *ast.Unary:
		if lit, ok := e.Right.(*ast.Literal); ok && e.Op.Kind == token.MINUS {
			if n, ok := lit.Value.(float64); ok {
				return &ast.Literal{Token: e.Op, Value: -n}, true
			}
		}
	}

	return nil, false
}

func (p *Parser) caseBody() []ast.Stmt {
	stmts := []ast.Stmt{}
	for !p.Check(token.CASE, token.DEFAULT, token.RIGHTBRACE) && !p.IsAtEnd() {
		if stmt := p.Declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	return stmts
}

// returnStatement = "return" expr? ";" ;
func (p *Parser) returnStatement() ast.Stmt {
	kw := p.Consume(token.RETURN, "")
	var value ast.Expr
	if !p.Check(token.SEMICOLON) {
		value = p.Expression()
	}
	p.Consume(token.SEMICOLON, "after return value")

	return &ast.Return{Keyword: kw, Value: value}
}

// testStatement = "test" "(" STRING ")" "{" declaration* returnStatement? "}" ;
func (p *Parser) testStatement() ast.Stmt {
	p.Consume(token.TEST, "")
	p.Consume(token.LEFTPAREN, "after `test`")
	name := p.Consume(token.STRING, "test name")
	p.Consume(token.RIGHTPAREN, "after test name")

	body := p.Block()
	stmts := body.Statements
	test := &ast.Test{Name: name}
	if n := len(stmts); n > 0 {
		if ret, ok := stmts[n-1].(*ast.Return); ok {
			test.Return = ret
			stmts = stmts[:n-1]
		}
	}
	test.Body = stmts

	return test
}

// printStatement = "print" expr ";" ;
func (p *Parser) printStatement() ast.Stmt {
	kw := p.Consume(token.PRINT, "")
	expr := p.Expression()
	p.Consume(token.SEMICOLON, "after value")

	return &ast.Print{Keyword: kw, Expr: expr}
}
