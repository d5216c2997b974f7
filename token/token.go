package token

import "fmt"

type Kind int

const (
	EOF Kind = iota

	// Single-character tokens.
	LEFTPAREN
	RIGHTPAREN
	LEFTBRACE
	RIGHTBRACE
	COMMA
	DOT
	SEMICOLON
	COLON
	QUESTION
	MINUS
	PLUS
	SLASH
	STAR
	PERCENT
	TILDE
	CARET
	LEFTBRACKET
	RIGHTBRACKET

	// One or more character tokens.
	BANG
	BANGEQUAL
	EQUAL
	EQUALEQUAL
	GREATER
	GREATEREQUAL
	LESS
	LESSEQUAL
	SHIFTLEFT
	SHIFTRIGHT
	LOGICALSHIFTRIGHT
	AMPERSAND
	PIPE
	ELVIS
	DOTDOT
	PLUSPLUS
	MINUSMINUS

	// Compound assignment.
	PLUSEQUAL
	MINUSEQUAL
	STAREQUAL
	SLASHEQUAL
	PERCENTEQUAL
	AMPERSANDEQUAL
	PIPEEQUAL
	CARETEQUAL
	SHIFTLEFTEQUAL
	SHIFTRIGHTEQUAL
	LOGICALSHIFTRIGHTEQUAL

	// Literals and identifiers.
	IDENT
	STRING
	NUMBER

	// Keywords.
	AND
	BREAK
	CASE
	CLASS
	CONSTRUCTOR
	CONTINUE
	DEFAULT
	DO
	ELSE
	EXTENDS
	FALSE
	FINAL
	FOR
	FUN
	IF
	IN
	MODULE
	NATIVE
	NULL
	OR
	PRINT
	PRIVATE
	PUBLIC
	REPEAT
	RETURN
	SUPER
	SWITCH
	TEST
	THIS
	TRUE
	VAR
	WHILE
)

var kindNames = [...]string{
	EOF:                    "EOF",
	LEFTPAREN:              "LEFTPAREN",
	RIGHTPAREN:             "RIGHTPAREN",
	LEFTBRACE:              "LEFTBRACE",
	RIGHTBRACE:             "RIGHTBRACE",
	COMMA:                  "COMMA",
	DOT:                    "DOT",
	SEMICOLON:              "SEMICOLON",
	COLON:                  "COLON",
	QUESTION:               "QUESTION",
	MINUS:                  "MINUS",
	PLUS:                   "PLUS",
	SLASH:                  "SLASH",
	STAR:                   "STAR",
	PERCENT:                "PERCENT",
	TILDE:                  "TILDE",
	CARET:                  "CARET",
	LEFTBRACKET:            "LEFTBRACKET",
	RIGHTBRACKET:           "RIGHTBRACKET",
	BANG:                   "BANG",
	BANGEQUAL:              "BANGEQUAL",
	EQUAL:                  "EQUAL",
	EQUALEQUAL:             "EQUALEQUAL",
	GREATER:                "GREATER",
	GREATEREQUAL:           "GREATEREQUAL",
	LESS:                   "LESS",
	LESSEQUAL:              "LESSEQUAL",
	SHIFTLEFT:              "SHIFTLEFT",
	SHIFTRIGHT:             "SHIFTRIGHT",
	LOGICALSHIFTRIGHT:      "LOGICALSHIFTRIGHT",
	AMPERSAND:              "AMPERSAND",
	PIPE:                   "PIPE",
	ELVIS:                  "ELVIS",
	DOTDOT:                 "DOTDOT",
	PLUSPLUS:               "PLUSPLUS",
	MINUSMINUS:             "MINUSMINUS",
	PLUSEQUAL:              "PLUSEQUAL",
	MINUSEQUAL:             "MINUSEQUAL",
	STAREQUAL:              "STAREQUAL",
	SLASHEQUAL:             "SLASHEQUAL",
	PERCENTEQUAL:           "PERCENTEQUAL",
	AMPERSANDEQUAL:         "AMPERSANDEQUAL",
	PIPEEQUAL:              "PIPEEQUAL",
	CARETEQUAL:             "CARETEQUAL",
	SHIFTLEFTEQUAL:         "SHIFTLEFTEQUAL",
	SHIFTRIGHTEQUAL:        "SHIFTRIGHTEQUAL",
	LOGICALSHIFTRIGHTEQUAL: "LOGICALSHIFTRIGHTEQUAL",
	IDENT:                  "IDENT",
	STRING:                 "STRING",
	NUMBER:                 "NUMBER",
	AND:                    "AND",
	BREAK:                  "BREAK",
	CASE:                   "CASE",
	CLASS:                  "CLASS",
	CONSTRUCTOR:            "CONSTRUCTOR",
	CONTINUE:               "CONTINUE",
	DEFAULT:                "DEFAULT",
	DO:                     "DO",
	ELSE:                   "ELSE",
	EXTENDS:                "EXTENDS",
	FALSE:                  "FALSE",
	FINAL:                  "FINAL",
	FOR:                    "FOR",
	FUN:                    "FUN",
	IF:                     "IF",
	IN:                     "IN",
	MODULE:                 "MODULE",
	NATIVE:                 "NATIVE",
	NULL:                   "NULL",
	OR:                     "OR",
	PRINT:                  "PRINT",
	PRIVATE:                "PRIVATE",
	PUBLIC:                 "PUBLIC",
	REPEAT:                 "REPEAT",
	RETURN:                 "RETURN",
	SUPER:                  "SUPER",
	SWITCH:                 "SWITCH",
	TEST:                   "TEST",
	THIS:                   "THIS",
	TRUE:                   "TRUE",
	VAR:                    "VAR",
	WHILE:                  "WHILE",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Keywords maps reserved words to their token kinds.
var Keywords = map[string]Kind{
	"and":         AND,
	"break":       BREAK,
	"case":        CASE,
	"class":       CLASS,
	"constructor": CONSTRUCTOR,
	"continue":    CONTINUE,
	"default":     DEFAULT,
	"do":          DO,
	"else":        ELSE,
	"extends":     EXTENDS,
	"false":       FALSE,
	"final":       FINAL,
	"for":         FOR,
	"fun":         FUN,
	"if":          IF,
	"in":          IN,
	"module":      MODULE,
	"native":      NATIVE,
	"null":        NULL,
	"or":          OR,
	"print":       PRINT,
	"private":     PRIVATE,
	"public":      PUBLIC,
	"repeat":      REPEAT,
	"return":      RETURN,
	"super":       SUPER,
	"switch":      SWITCH,
	"test":        TEST,
	"this":        THIS,
	"true":        TRUE,
	"var":         VAR,
	"while":       WHILE,
}

// CompoundOperators maps each compound assignment operator to the operator it applies.
var CompoundOperators = map[Kind]Kind{
	PLUSEQUAL:              PLUS,
	MINUSEQUAL:             MINUS,
	STAREQUAL:              STAR,
	SLASHEQUAL:             SLASH,
	PERCENTEQUAL:           PERCENT,
	AMPERSANDEQUAL:         AMPERSAND,
	PIPEEQUAL:              PIPE,
	CARETEQUAL:             CARET,
	SHIFTLEFTEQUAL:         SHIFTLEFT,
	SHIFTRIGHTEQUAL:        SHIFTRIGHT,
	LOGICALSHIFTRIGHTEQUAL: LOGICALSHIFTRIGHT,
}

type Token struct {
	Kind    Kind
	Lexeme  string
	Literal any
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("{%v, %q, %d:%d, %v}", t.Kind, t.Lexeme, t.Line, t.Column, t.Literal)
}

func (t Token) Base() Token {
	return t
}

// Synthetic builds a token that does not originate from source text.
// Customizers use it when they rewrite programs.
func Synthetic(kind Kind, lexeme string, literal any) Token {
	return Token{Kind: kind, Lexeme: lexeme, Literal: literal, Line: -1, Column: -1}
}
