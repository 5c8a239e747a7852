package expr

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdentifier
	tokNumber
	tokComma
	tokLParen
	tokRParen
	tokOp
)

type token struct {
	typ  tokenType
	lit  string
	span Span
}

type lexer struct {
	src string
	pos int // byte offset
}

func newLexer(input string) *lexer {
	return &lexer{src: input}
}

func (l *lexer) nextRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	return r
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) peekRuneAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+offset:])
	return r
}

func (l *lexer) emit(typ tokenType, start int) token {
	return token{typ: typ, lit: l.src[start:l.pos], span: Span{Start: start, End: l.pos}}
}

func (l *lexer) skipSpaces() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peekRune()) {
		l.nextRune()
	}
}

func (l *lexer) nextToken() (token, error) {
	l.skipSpaces()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, span: Span{Start: start, End: start}}, nil
	}
	ch := l.nextRune()

	switch ch {
	case ',':
		return l.emit(tokComma, start), nil
	case '(':
		return l.emit(tokLParen, start), nil
	case ')':
		return l.emit(tokRParen, start), nil
	case '+', '-', '%':
		return l.emit(tokOp, start), nil
	case '*':
		if l.peekRune() == '*' {
			l.nextRune()
		}
		return l.emit(tokOp, start), nil
	case '/':
		if l.peekRune() == '/' {
			// Floor division is outside the grammar.
			l.nextRune()
			return token{}, unexpected(l.emit(tokOp, start))
		}
		return l.emit(tokOp, start), nil
	case '<', '>':
		if l.peekRune() == '=' {
			l.nextRune()
		}
		return l.emit(tokOp, start), nil
	case '=', '!':
		if l.peekRune() == '=' {
			l.nextRune()
			return l.emit(tokOp, start), nil
		}
		return token{}, unexpected(l.emit(tokOp, start))
	}

	if isDigit(ch) || (ch == '.' && isDigit(l.peekRune())) {
		l.pos = start
		return l.lexNumber(start)
	}

	if isIdentStart(ch) {
		for isIdentPart(l.peekRune()) {
			l.nextRune()
		}
		return l.emit(tokIdentifier, start), nil
	}

	return token{}, unexpected(l.emit(tokOp, start))
}

// lexNumber accepts 12, 12.5, .5, 12., 1e3, 1.5E-2.
func (l *lexer) lexNumber(start int) (token, error) {
	for isDigit(l.peekRune()) {
		l.nextRune()
	}
	if l.peekRune() == '.' {
		l.nextRune()
		for isDigit(l.peekRune()) {
			l.nextRune()
		}
	}
	if r := l.peekRune(); r == 'e' || r == 'E' {
		next := l.peekRuneAt(1)
		digitAt := 1
		if next == '+' || next == '-' {
			digitAt = 2
		}
		if isDigit(l.peekRuneAt(digitAt)) {
			for i := 0; i < digitAt; i++ {
				l.nextRune()
			}
			for isDigit(l.peekRune()) {
				l.nextRune()
			}
		}
	}
	if isIdentStart(l.peekRune()) {
		// 2x, 3abc: reject instead of splitting into number and name.
		for isIdentPart(l.peekRune()) {
			l.nextRune()
		}
		return token{}, unexpected(l.emit(tokNumber, start))
	}
	return l.emit(tokNumber, start), nil
}

func unexpected(t token) error {
	return &EvaluationError{Token: t.lit, Offset: t.span.Start, Reason: fmt.Sprintf("unsupported syntax %q", t.lit)}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
