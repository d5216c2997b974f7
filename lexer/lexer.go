package lexer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

// Lex scans the whole source.
// It does not stop at the first malformed token: every lexical error is collected
// and returned joined, together with the tokens that could be recognized.
func Lex(source string) ([]token.Token, error) {
	lexer := lexer{
		source:    source,
		tokens:    []token.Token{},
		start:     0,
		current:   0,
		line:      1,
		lineStart: 0,
	}

	var errs []error

	for !lexer.isAtEnd() {
		if err := lexer.scanToken(); err != nil {
			errs = append(errs, err)
		}
	}

	lexer.start = lexer.current
	lexer.tokens = append(lexer.tokens, token.Token{Kind: token.EOF, Lexeme: "", Line: lexer.line, Column: lexer.column(), Literal: nil})

	return lexer.tokens, errors.Join(errs...)
}

type lexer struct {
	source string
	tokens []token.Token

	start     int // start of current lexeme
	current   int // current position in source
	line      int // current line number
	lineStart int // offset of the first byte of the current line

	startLine   int
	startColumn int
}

// Error reports a malformed token.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return e.Diagnostic().Error()
}

func (e *Error) Diagnostic() utils.Diagnostic {
	return utils.Diagnostic{Phase: utils.Lexing, Line: e.Line, Column: e.Column, Message: e.Message}
}

func (l lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l lexer) peek() rune {
	if l.isAtEnd() {
		return '\x00'
	}
	runeValue, _ := utf8.DecodeRuneInString(l.source[l.current:])

	return runeValue
}

func (l lexer) peekNext() rune {
	if l.isAtEnd() {
		return '\x00'
	}
	_, width := utf8.DecodeRuneInString(l.source[l.current:])
	if l.current+width >= len(l.source) {
		return '\x00'
	}
	runeValue, _ := utf8.DecodeRuneInString(l.source[l.current+width:])

	return runeValue
}

func (l *lexer) advance() rune {
	runeValue, width := utf8.DecodeRuneInString(l.source[l.current:])
	l.current += width

	return runeValue
}

func (l *lexer) match(expected rune) bool {
	if l.peek() != expected || l.isAtEnd() {
		return false
	}
	l.advance()

	return true
}

func (l *lexer) newline() {
	l.line++
	l.lineStart = l.current
}

// column returns the 1-based rune column of the current lexeme start.
func (l lexer) column() int {
	return utf8.RuneCountInString(l.source[l.lineStart:l.start]) + 1
}

func (l *lexer) addToken(kind token.Kind, literal any) {
	text := l.source[l.start:l.current]
	l.tokens = append(l.tokens, token.Token{Kind: kind, Lexeme: text, Literal: literal, Line: l.startLine, Column: l.startColumn})
}

func (l *lexer) errorf(format string, args ...any) error {
	return &Error{Line: l.startLine, Column: l.startColumn, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) scanToken() error {
	l.start = l.current
	l.startLine = l.line
	l.startColumn = l.column()
	char := l.advance()
	switch char {
	case ' ', '\r', '\t':
		// ignore whitespace
		return nil
	case '\n':
		l.newline()

		return nil
	case '"':
		return l.string()
	case '/':
		if l.match('/') {
			for l.peek() != '\n' && !l.isAtEnd() {
				l.advance()
			}

			return nil
		}
		if l.match('*') {
			return l.blockComment()
		}
		if l.match('=') {
			l.addToken(token.SLASHEQUAL, nil)

			return nil
		}
		l.addToken(token.SLASH, nil)

		return nil
	}

	if k, ok := l.operator(char); ok {
		l.addToken(k, nil)

		return nil
	}
	if isDigit(char) {
		return l.number()
	}
	if isAlpha(char) {
		return l.identifier()
	}

	return l.errorf("unexpected character: %q", char)
}

// operator recognizes single- and multi-character operators, longest match first.
func (l *lexer) operator(char rune) (token.Kind, bool) {
	//exhaustive:ignore
	switch char {
	case '(':
		return token.LEFTPAREN, true
	case ')':
		return token.RIGHTPAREN, true
	case '{':
		return token.LEFTBRACE, true
	case '}':
		return token.RIGHTBRACE, true
	case '[':
		return token.LEFTBRACKET, true
	case ']':
		return token.RIGHTBRACKET, true
	case ',':
		return token.COMMA, true
	case '.':
		if l.match('.') {
			return token.DOTDOT, true
		}
		return token.DOT, true
	case ';':
		return token.SEMICOLON, true
	case ':':
		return token.COLON, true
	case '-':
		if l.match('-') {
			return token.MINUSMINUS, true
		}
		if l.match('=') {
			return token.MINUSEQUAL, true
		}
		return token.MINUS, true
	case '+':
		if l.match('+') {
			return token.PLUSPLUS, true
		}
		if l.match('=') {
			return token.PLUSEQUAL, true
		}
		return token.PLUS, true
	case '*':
		if l.match('=') {
			return token.STAREQUAL, true
		}
		return token.STAR, true
	case '%':
		if l.match('=') {
			return token.PERCENTEQUAL, true
		}
		return token.PERCENT, true
	case '~':
		return token.TILDE, true
	case '^':
		if l.match('=') {
			return token.CARETEQUAL, true
		}
		return token.CARET, true
	case '?':
		if l.match(':') {
			return token.ELVIS, true
		}
		return token.QUESTION, true
	case '!':
		if l.match('=') {
			return token.BANGEQUAL, true
		}
		return token.BANG, true
	case '=':
		if l.match('=') {
			return token.EQUALEQUAL, true
		}
		return token.EQUAL, true
	case '<':
		if l.match('=') {
			return token.LESSEQUAL, true
		}
		if l.match('<') {
			if l.match('=') {
				return token.SHIFTLEFTEQUAL, true
			}
			return token.SHIFTLEFT, true
		}
		return token.LESS, true
	case '>':
		if l.match('=') {
			return token.GREATEREQUAL, true
		}
		if l.match('>') {
			if l.match('>') {
				if l.match('=') {
					return token.LOGICALSHIFTRIGHTEQUAL, true
				}
				return token.LOGICALSHIFTRIGHT, true
			}
			if l.match('=') {
				return token.SHIFTRIGHTEQUAL, true
			}
			return token.SHIFTRIGHT, true
		}
		return token.GREATER, true
	case '&':
		if l.match('&') {
			return token.AND, true
		}
		if l.match('=') {
			return token.AMPERSANDEQUAL, true
		}
		return token.AMPERSAND, true
	case '|':
		if l.match('|') {
			return token.OR, true
		}
		if l.match('=') {
			return token.PIPEEQUAL, true
		}
		return token.PIPE, true
	}

	return token.EOF, false
}

func (l *lexer) blockComment() error {
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()

			return nil
		}
		if l.advance() == '\n' {
			l.newline()
		}
	}

	return l.errorf("unterminated block comment")
}

func (l *lexer) string() error {
	var b strings.Builder
	for l.peek() != '"' && !l.isAtEnd() {
		char := l.advance()
		switch char {
		case '\n':
			l.newline()
			b.WriteRune(char)
		case '\\':
			if l.isAtEnd() {
				return l.errorf("unterminated string")
			}
			switch escaped := l.advance(); escaped {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '"', '\\':
				b.WriteRune(escaped)
			default:
				b.WriteRune('\\')
				b.WriteRune(escaped)
			}
		default:
			b.WriteRune(char)
		}
	}

	if l.isAtEnd() {
		return l.errorf("unterminated string")
	}

	// closing quote
	l.advance()
	l.addToken(token.STRING, b.String())

	return nil
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func (l *lexer) number() error {
	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	value, err := strconv.ParseFloat(l.source[l.start:l.current], 64)
	if err != nil {
		return l.errorf("invalid number %q: %v", l.source[l.start:l.current], err)
	}
	l.addToken(token.NUMBER, value)

	return nil
}

func isAlpha(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func (l *lexer) identifier() error {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}

	value := l.source[l.start:l.current]

	if k, ok := token.Keywords[value]; ok {
		l.addToken(k, nil)
	} else {
		l.addToken(token.IDENT, nil)
	}

	return nil
}
