package ast

import (
	"fmt"
	"strings"

	"github.com/takoeight0821/ember/token"
)

// AST

type Node interface {
	fmt.Stringer
	Base() token.Token
}

// Expr is the closed set of expression nodes.
// The set is sealed by the unexported marker method; Kind reports which member a value is.
type Expr interface {
	Node
	Kind() ExprKind
	exprNode()
}

// Stmt is the closed set of statement nodes.
type Stmt interface {
	Node
	Kind() StmtKind
	stmtNode()
}

type ExprKind int

const (
	LiteralExpr ExprKind = iota
	VariableExpr
	ThisExpr
	SuperExpr
	UnaryExpr
	BinaryExpr
	BitwiseExpr
	LogicalExpr
	ElvisExpr
	TernaryExpr
	AssignExpr
	CallExpr
	GetExpr
	SetExpr
	GroupingExpr
	FunctionExpr
	ArrayExpr
	IndexExpr
	IndexSetExpr
	RangeExpr
	ComprehensionExpr
	IncrementExpr
	CompoundAssignExpr

	NumExprKinds
)

type StmtKind int

const (
	ExpressionStmt StmtKind = iota
	PrintStmt
	VarStmt
	FieldStmt
	BlockStmt
	IfStmt
	WhileStmt
	DoWhileStmt
	ForStmt
	RepeatStmt
	BreakStmt
	ContinueStmt
	FunctionStmt
	ClassStmt
	ReturnStmt
	ModuleStmt
	NativeStmt
	TestStmt
	ForEachStmt
	SwitchStmt
	ExtensionStmt

	NumStmtKinds
)

// Expressions

type Literal struct {
	Token token.Token
	Value any // nil, bool, float64 or string
}

func (l Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *Literal) Base() token.Token { return l.Token }
func (*Literal) Kind() ExprKind      { return LiteralExpr }
func (*Literal) exprNode()           {}

var _ Expr = &Literal{}

type Variable struct {
	Name token.Token
}

func (v Variable) String() string {
	return parenthesize("var", lexeme(v.Name)).String()
}

func (v *Variable) Base() token.Token { return v.Name }
func (*Variable) Kind() ExprKind      { return VariableExpr }
func (*Variable) exprNode()           {}

var _ Expr = &Variable{}

type This struct {
	Keyword token.Token
}

func (This) String() string { return "this" }

func (t *This) Base() token.Token { return t.Keyword }
func (*This) Kind() ExprKind      { return ThisExpr }
func (*This) exprNode()           {}

var _ Expr = &This{}

type Super struct {
	Keyword token.Token
	Method  token.Token
}

func (s Super) String() string {
	return parenthesize("super", lexeme(s.Method)).String()
}

func (s *Super) Base() token.Token { return s.Keyword }
func (*Super) Kind() ExprKind      { return SuperExpr }
func (*Super) exprNode()           {}

var _ Expr = &Super{}

type Unary struct {
	Op    token.Token
	Right Expr
}

func (u Unary) String() string {
	return parenthesize(u.Op.Lexeme, u.Right).String()
}

func (u *Unary) Base() token.Token { return u.Op }
func (*Unary) Kind() ExprKind      { return UnaryExpr }
func (*Unary) exprNode()           {}

var _ Expr = &Unary{}

// Binary covers arithmetic, comparison and equality operators.
type Binary struct {
	Left  Expr
	Op    token.Token
	Right Expr
}

func (b Binary) String() string {
	return parenthesize(b.Op.Lexeme, b.Left, b.Right).String()
}

func (b *Binary) Base() token.Token { return b.Op }
func (*Binary) Kind() ExprKind      { return BinaryExpr }
func (*Binary) exprNode()           {}

var _ Expr = &Binary{}

// Bitwise covers &, |, ^, <<, >> and >>>.
type Bitwise struct {
	Left  Expr
	Op    token.Token
	Right Expr
}

func (b Bitwise) String() string {
	return parenthesize(b.Op.Lexeme, b.Left, b.Right).String()
}

func (b *Bitwise) Base() token.Token { return b.Op }
func (*Bitwise) Kind() ExprKind      { return BitwiseExpr }
func (*Bitwise) exprNode()           {}

var _ Expr = &Bitwise{}

type Logical struct {
	Left  Expr
	Op    token.Token
	Right Expr
}

func (l Logical) String() string {
	return parenthesize(l.Op.Lexeme, l.Left, l.Right).String()
}

func (l *Logical) Base() token.Token { return l.Op }
func (*Logical) Kind() ExprKind      { return LogicalExpr }
func (*Logical) exprNode()           {}

var _ Expr = &Logical{}

type Elvis struct {
	Condition Expr
	Op        token.Token
	Right     Expr
}

func (e Elvis) String() string {
	return parenthesize("?:", e.Condition, e.Right).String()
}

func (e *Elvis) Base() token.Token { return e.Op }
func (*Elvis) Kind() ExprKind      { return ElvisExpr }
func (*Elvis) exprNode()           {}

var _ Expr = &Elvis{}

type Ternary struct {
	Condition Expr
	Question  token.Token
	Then      Expr
	Else      Expr
}

func (t Ternary) String() string {
	return parenthesize("?", t.Condition, t.Then, t.Else).String()
}

func (t *Ternary) Base() token.Token { return t.Question }
func (*Ternary) Kind() ExprKind      { return TernaryExpr }
func (*Ternary) exprNode()           {}

var _ Expr = &Ternary{}

type Assign struct {
	Name  token.Token
	Value Expr
}

func (a Assign) String() string {
	return parenthesize("=", lexeme(a.Name), a.Value).String()
}

func (a *Assign) Base() token.Token { return a.Name }
func (*Assign) Kind() ExprKind      { return AssignExpr }
func (*Assign) exprNode()           {}

var _ Expr = &Assign{}

type Call struct {
	Callee Expr
	Paren  token.Token
	Args   []Expr
}

func (c Call) String() string {
	return parenthesize("call", c.Callee, concat(c.Args)).String()
}

func (c *Call) Base() token.Token { return c.Paren }
func (*Call) Kind() ExprKind      { return CallExpr }
func (*Call) exprNode()           {}

var _ Expr = &Call{}

type Get struct {
	Object Expr
	Name   token.Token
}

func (g Get) String() string {
	return parenthesize("get", g.Object, lexeme(g.Name)).String()
}

func (g *Get) Base() token.Token { return g.Name }
func (*Get) Kind() ExprKind      { return GetExpr }
func (*Get) exprNode()           {}

var _ Expr = &Get{}

type Set struct {
	Object Expr
	Name   token.Token
	Value  Expr
}

func (s Set) String() string {
	return parenthesize("set", s.Object, lexeme(s.Name), s.Value).String()
}

func (s *Set) Base() token.Token { return s.Name }
func (*Set) Kind() ExprKind      { return SetExpr }
func (*Set) exprNode()           {}

var _ Expr = &Set{}

type Grouping struct {
	Expr Expr
}

func (g Grouping) String() string {
	return parenthesize("group", g.Expr).String()
}

func (g *Grouping) Base() token.Token { return g.Expr.Base() }
func (*Grouping) Kind() ExprKind      { return GroupingExpr }
func (*Grouping) exprNode()           {}

var _ Expr = &Grouping{}

// Function is an anonymous function literal: fun (a, b) { ... }
type Function struct {
	Keyword token.Token
	Params  []token.Token
	Body    []Stmt
}

func (f Function) String() string {
	return parenthesize("fun", parenthesize("", tokens(f.Params)...), concat(f.Body)).String()
}

func (f *Function) Base() token.Token { return f.Keyword }
func (*Function) Kind() ExprKind      { return FunctionExpr }
func (*Function) exprNode()           {}

var _ Expr = &Function{}

// Array is an array literal: [a, b, c]
type Array struct {
	Bracket  token.Token
	Elements []Expr
}

func (a Array) String() string {
	return parenthesize("array", concat(a.Elements)).String()
}

func (a *Array) Base() token.Token { return a.Bracket }
func (*Array) Kind() ExprKind      { return ArrayExpr }
func (*Array) exprNode()           {}

var _ Expr = &Array{}

type Index struct {
	Object  Expr
	Bracket token.Token
	Index   Expr
}

func (i Index) String() string {
	return parenthesize("index", i.Object, i.Index).String()
}

func (i *Index) Base() token.Token { return i.Bracket }
func (*Index) Kind() ExprKind      { return IndexExpr }
func (*Index) exprNode()           {}

var _ Expr = &Index{}

type IndexSet struct {
	Object  Expr
	Bracket token.Token
	Index   Expr
	Value   Expr
}

func (i IndexSet) String() string {
	return parenthesize("set-index", i.Object, i.Index, i.Value).String()
}

func (i *IndexSet) Base() token.Token { return i.Bracket }
func (*IndexSet) Kind() ExprKind      { return IndexSetExpr }
func (*IndexSet) exprNode()           {}

var _ Expr = &IndexSet{}

// Range is the inclusive integer range a..b.
type Range struct {
	Left  Expr
	Op    token.Token
	Right Expr
}

func (r Range) String() string {
	return parenthesize("..", r.Left, r.Right).String()
}

func (r *Range) Base() token.Token { return r.Op }
func (*Range) Kind() ExprKind      { return RangeExpr }
func (*Range) exprNode()           {}

var _ Expr = &Range{}

// Comprehension builds an array: [Element for Selector in Collection if Condition else Else]
type Comprehension struct {
	Bracket    token.Token
	Element    Expr
	Selector   token.Token
	Collection Expr
	Condition  Expr // may be nil
	Else       Expr // may be nil
}

func (c Comprehension) String() string {
	elems := []fmt.Stringer{c.Element, lexeme(c.Selector), c.Collection}
	if c.Condition != nil {
		elems = append(elems, c.Condition)
	}
	if c.Else != nil {
		elems = append(elems, c.Else)
	}
	return parenthesize("comprehension", elems...).String()
}

func (c *Comprehension) Base() token.Token { return c.Bracket }
func (*Comprehension) Kind() ExprKind      { return ComprehensionExpr }
func (*Comprehension) exprNode()           {}

var _ Expr = &Comprehension{}

// Increment is ++ or -- applied to a variable, property or array element.
// The prefix form yields the updated value, the postfix form the previous one.
type Increment struct {
	Op     token.Token
	Target Expr // *Variable, *Get or *Index
	Prefix bool
}

func (i Increment) String() string {
	if i.Prefix {
		return parenthesize(i.Op.Lexeme, i.Target).String()
	}
	return parenthesize("post"+i.Op.Lexeme, i.Target).String()
}

func (i *Increment) Base() token.Token { return i.Op }
func (*Increment) Kind() ExprKind      { return IncrementExpr }
func (*Increment) exprNode()           {}

var _ Expr = &Increment{}

// CompoundAssign is `target op= value`. Op is the compound token, such as PLUSEQUAL.
type CompoundAssign struct {
	Target Expr // *Variable, *Get or *Index
	Op     token.Token
	Value  Expr
}

func (c CompoundAssign) String() string {
	return parenthesize(c.Op.Lexeme, c.Target, c.Value).String()
}

func (c *CompoundAssign) Base() token.Token { return c.Op }
func (*CompoundAssign) Kind() ExprKind      { return CompoundAssignExpr }
func (*CompoundAssign) exprNode()           {}

var _ Expr = &CompoundAssign{}

// Statements

type Expression struct {
	Expr Expr
}

func (e Expression) String() string {
	return parenthesize("expr", e.Expr).String()
}

func (e *Expression) Base() token.Token { return e.Expr.Base() }
func (*Expression) Kind() StmtKind      { return ExpressionStmt }
func (*Expression) stmtNode()           {}

var _ Stmt = &Expression{}

type Print struct {
	Keyword token.Token
	Expr    Expr
}

func (p Print) String() string {
	return parenthesize("print", p.Expr).String()
}

func (p *Print) Base() token.Token { return p.Keyword }
func (*Print) Kind() StmtKind      { return PrintStmt }
func (*Print) stmtNode()           {}

var _ Stmt = &Print{}

// Binding is the shape shared by local variable and class field declarations.
type Binding struct {
	Name  token.Token
	Init  Expr // may be nil
	Final bool
}

func (b Binding) elems(head string) fmt.Stringer {
	if b.Final {
		head = "final " + head
	}
	if b.Init == nil {
		return parenthesize(head, lexeme(b.Name))
	}
	return parenthesize(head, lexeme(b.Name), b.Init)
}

type Var struct {
	Binding
}

func (v Var) String() string {
	return v.elems("var").String()
}

func (v *Var) Base() token.Token { return v.Name }
func (*Var) Kind() StmtKind      { return VarStmt }
func (*Var) stmtNode()           {}

var _ Stmt = &Var{}

type Field struct {
	Modifier token.Token // PUBLIC, PRIVATE, or the zero Token
	Binding
}

func (f Field) Private() bool {
	return f.Modifier.Kind == token.PRIVATE
}

func (f Field) String() string {
	head := "field"
	if f.Private() {
		head = "private field"
	}
	return f.elems(head).String()
}

func (f *Field) Base() token.Token { return f.Name }
func (*Field) Kind() StmtKind      { return FieldStmt }
func (*Field) stmtNode()           {}

var _ Stmt = &Field{}

type Block struct {
	Brace      token.Token
	Statements []Stmt
}

func (b Block) String() string {
	return parenthesize("block", concat(b.Statements)).String()
}

func (b *Block) Base() token.Token { return b.Brace }
func (*Block) Kind() StmtKind      { return BlockStmt }
func (*Block) stmtNode()           {}

var _ Stmt = &Block{}

type If struct {
	Keyword   token.Token
	Condition Expr
	Then      *Block
	Else      Stmt // *Block, *If or nil
}

func (i If) String() string {
	if i.Else == nil {
		return parenthesize("if", i.Condition, i.Then).String()
	}
	return parenthesize("if", i.Condition, i.Then, i.Else).String()
}

func (i *If) Base() token.Token { return i.Keyword }
func (*If) Kind() StmtKind      { return IfStmt }
func (*If) stmtNode()           {}

var _ Stmt = &If{}

type While struct {
	Keyword   token.Token
	Condition Expr
	Body      *Block
}

func (w While) String() string {
	return parenthesize("while", w.Condition, w.Body).String()
}

func (w *While) Base() token.Token { return w.Keyword }
func (*While) Kind() StmtKind      { return WhileStmt }
func (*While) stmtNode()           {}

var _ Stmt = &While{}

type DoWhile struct {
	Keyword   token.Token
	Body      *Block
	Condition Expr
}

func (d DoWhile) String() string {
	return parenthesize("do", d.Body, d.Condition).String()
}

func (d *DoWhile) Base() token.Token { return d.Keyword }
func (*DoWhile) Kind() StmtKind      { return DoWhileStmt }
func (*DoWhile) stmtNode()           {}

var _ Stmt = &DoWhile{}

type For struct {
	Keyword   token.Token
	Init      *Var
	Condition Expr
	Increment Expr
	Body      *Block
}

func (f For) String() string {
	return parenthesize("for", f.Init, f.Condition, f.Increment, f.Body).String()
}

func (f *For) Base() token.Token { return f.Keyword }
func (*For) Kind() StmtKind      { return ForStmt }
func (*For) stmtNode()           {}

var _ Stmt = &For{}

type Repeat struct {
	Keyword token.Token
	Count   Expr
	Body    *Block
}

func (r Repeat) String() string {
	return parenthesize("repeat", r.Count, r.Body).String()
}

func (r *Repeat) Base() token.Token { return r.Keyword }
func (*Repeat) Kind() StmtKind      { return RepeatStmt }
func (*Repeat) stmtNode()           {}

var _ Stmt = &Repeat{}

type Break struct {
	Keyword token.Token
}

func (Break) String() string { return "(break)" }

func (b *Break) Base() token.Token { return b.Keyword }
func (*Break) Kind() StmtKind      { return BreakStmt }
func (*Break) stmtNode()           {}

var _ Stmt = &Break{}

type Continue struct {
	Keyword token.Token
}

func (Continue) String() string { return "(continue)" }

func (c *Continue) Base() token.Token { return c.Keyword }
func (*Continue) Kind() StmtKind      { return ContinueStmt }
func (*Continue) stmtNode()           {}

var _ Stmt = &Continue{}

// FunDecl is a named function, a method, or a class constructor.
type FunDecl struct {
	Name   token.Token
	Params []token.Token
	Body   []Stmt
}

func (f FunDecl) String() string {
	return parenthesize("fun "+f.Name.Lexeme, parenthesize("", tokens(f.Params)...), concat(f.Body)).String()
}

func (f *FunDecl) Base() token.Token { return f.Name }
func (*FunDecl) Kind() StmtKind      { return FunctionStmt }
func (*FunDecl) stmtNode()           {}

var _ Stmt = &FunDecl{}

type Class struct {
	Name        token.Token
	Superclass  *Variable // may be nil
	Fields      []*Field
	Constructor *FunDecl // may be nil
	Methods     []*FunDecl
}

func (c Class) String() string {
	head := "class " + c.Name.Lexeme
	if c.Superclass != nil {
		head += " < " + c.Superclass.Name.Lexeme
	}
	elems := []fmt.Stringer{concat(c.Fields)}
	if c.Constructor != nil {
		elems = append(elems, c.Constructor)
	}
	elems = append(elems, concat(c.Methods))
	return parenthesize(head, elems...).String()
}

func (c *Class) Base() token.Token { return c.Name }
func (*Class) Kind() StmtKind      { return ClassStmt }
func (*Class) stmtNode()           {}

var _ Stmt = &Class{}

type Return struct {
	Keyword token.Token
	Value   Expr // may be nil
}

func (r Return) String() string {
	if r.Value == nil {
		return "(return)"
	}
	return parenthesize("return", r.Value).String()
}

func (r *Return) Base() token.Token { return r.Keyword }
func (*Return) Kind() StmtKind      { return ReturnStmt }
func (*Return) stmtNode()           {}

var _ Stmt = &Return{}

// Module imports every function of a registered native module into the global scope.
type Module struct {
	Name token.Token
}

func (m Module) String() string {
	return parenthesize("module", lexeme(m.Name)).String()
}

func (m *Module) Base() token.Token { return m.Name }
func (*Module) Kind() StmtKind      { return ModuleStmt }
func (*Module) stmtNode()           {}

var _ Stmt = &Module{}

// Native declares a single function of a native module: native fun math.max(a, b);
type Native struct {
	Module token.Token // dotted path joined into one identifier token
	Name   token.Token
	Params []token.Token
}

func (n Native) String() string {
	return parenthesize("native "+n.Module.Lexeme+"."+n.Name.Lexeme, parenthesize("", tokens(n.Params)...)).String()
}

func (n *Native) Base() token.Token { return n.Name }
func (*Native) Kind() StmtKind      { return NativeStmt }
func (*Native) stmtNode()           {}

var _ Stmt = &Native{}

// Test runs its body and records whether the trailing return value is truthy.
type Test struct {
	Name   token.Token // STRING token
	Body   []Stmt
	Return *Return // may be nil
}

func (t Test) String() string {
	var name fmt.Stringer = lexeme(t.Name)
	if s, ok := t.Name.Literal.(string); ok {
		name = lexeme{Lexeme: fmt.Sprintf("%q", s)}
	}
	if t.Return == nil {
		return parenthesize("test", name, concat(t.Body)).String()
	}
	return parenthesize("test", name, concat(t.Body), t.Return).String()
}

func (t *Test) Base() token.Token { return t.Name }
func (*Test) Kind() StmtKind      { return TestStmt }
func (*Test) stmtNode()           {}

var _ Stmt = &Test{}

type ForEach struct {
	Keyword    token.Token
	Selector   token.Token
	Collection Expr
	Body       *Block
}

func (f ForEach) String() string {
	return parenthesize("foreach", lexeme(f.Selector), f.Collection, f.Body).String()
}

func (f *ForEach) Base() token.Token { return f.Keyword }
func (*ForEach) Kind() StmtKind      { return ForEachStmt }
func (*ForEach) stmtNode()           {}

var _ Stmt = &ForEach{}

// Case is one arm of a switch. Value is nil for the default arm.
type Case struct {
	Keyword token.Token
	Value   *Literal
	Body    []Stmt
}

func (c Case) String() string {
	if c.Value == nil {
		return parenthesize("default", concat(c.Body)).String()
	}
	return parenthesize("case", c.Value, concat(c.Body)).String()
}

type Switch struct {
	Keyword token.Token
	Value   Expr
	Cases   []*Case
	Default *Case // may be nil
}

func (s Switch) String() string {
	elems := []fmt.Stringer{s.Value, concat(s.Cases)}
	if s.Default != nil {
		elems = append(elems, s.Default)
	}
	return parenthesize("switch", elems...).String()
}

func (s *Switch) Base() token.Token { return s.Keyword }
func (*Switch) Kind() StmtKind      { return SwitchStmt }
func (*Switch) stmtNode()           {}

var _ Stmt = &Switch{}

// Extension adds a method to an existing class: fun Class:method(params) { ... }
type Extension struct {
	Class  *Variable
	Method *FunDecl
}

func (e Extension) String() string {
	return parenthesize("extend "+e.Class.Name.Lexeme, e.Method).String()
}

func (e *Extension) Base() token.Token { return e.Method.Name }
func (*Extension) Kind() StmtKind      { return ExtensionStmt }
func (*Extension) stmtNode()           {}

var _ Stmt = &Extension{}

type lexeme token.Token

func (l lexeme) String() string {
	return l.Lexeme
}

func tokens(ts []token.Token) []fmt.Stringer {
	elems := make([]fmt.Stringer, len(ts))
	for i, t := range ts {
		elems[i] = lexeme(t)
	}
	return elems
}

// parenthesize takes a head string and a variadic number of nodes that implement the fmt.Stringer interface.
// It returns a fmt.Stringer that represents a string where each node is parenthesized and separated by a space.
// If the head string is not empty, it is added at the beginning of the string.
func parenthesize(head string, elems ...fmt.Stringer) fmt.Stringer {
	var b strings.Builder
	b.WriteString("(")
	elemsStr := concat(elems).String()
	if head != "" {
		b.WriteString(head)
	}
	if elemsStr != "" {
		if head != "" {
			b.WriteString(" ")
		}
		b.WriteString(elemsStr)
	}
	b.WriteString(")")
	return &b
}

// concat takes a slice of nodes that implement the fmt.Stringer interface.
// It returns a fmt.Stringer that represents a string where each node is separated by a space.
func concat[T fmt.Stringer](elems []T) fmt.Stringer {
	var b strings.Builder
	for _, elem := range elems {
		// ignore empty string
		// e.g. concat({}) == ""
		str := elem.String()
		if str == "" {
			continue
		}
		if b.Len() != 0 {
			b.WriteString(" ")
		}
		b.WriteString(str)
	}
	return &b
}
