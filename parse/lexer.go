package parse

import (
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/njchilds90/symcalc"
)

// TokenType is the kind of a lexical token.
type TokenType int

const (
	EOF TokenType = iota

	LROUND  // "("
	RROUND  // ")"
	LSQUARE // "["
	RSQUARE // "]"
	LCURLY  // "{"
	RCURLY  // "}"
	COMMA   // ","

	PLUS
	MINUS
	MULT
	DIV
	POW // "^" or "**"

	INTEGER // digits only
	DECIMAL // digits with a point or an exponent
	ID
	UNIT // "_" followed by letters
)

var tokenNames = [...]string{
	EOF: "end of input", LROUND: "'('", RROUND: "')'", LSQUARE: "'['", RSQUARE: "']'",
	LCURLY: "'{'", RCURLY: "'}'", COMMA: "','", PLUS: "'+'", MINUS: "'-'", MULT: "'*'",
	DIV: "'/'", POW: "'^'", INTEGER: "integer", DECIMAL: "decimal", ID: "identifier",
	UNIT: "unit",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "unknown"
}

// Token is a lexical token. Pos is the byte offset of its first character.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    int
}

var punctuation = map[rune]TokenType{
	'(': LROUND, ')': RROUND, '[': LSQUARE, ']': RSQUARE, '{': LCURLY, '}': RCURLY,
	',': COMMA, '+': PLUS, '-': MINUS, '−': MINUS, '*': MULT, '×': MULT, '·': MULT,
	'/': DIV, '÷': DIV, '^': POW,
}

type lexer struct {
	src  string
	pos  int
	toks []Token
}

// Lex splits src into tokens, ending with an EOF token.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src}
	for {
		r, w := l.peek()
		switch {
		case w == 0:
			l.toks = append(l.toks, Token{Type: EOF, Pos: l.pos})
			return l.toks, nil
		case unicode.IsSpace(r):
			l.pos += w
		case r == '*' && l.at(l.pos+1) == '*':
			l.emit(POW, l.pos+2)
		case isDigit(r) || (r == '.' && isDigit(l.at(l.pos+1))):
			l.number()
		case r == '_':
			end := l.scanWord(l.pos + 1)
			if end == l.pos+1 {
				return nil, l.errorf("unit name expected after '_'")
			}
			l.emit(UNIT, end)
		case isLetter(r):
			l.emit(ID, l.scanWord(l.pos))
		default:
			t, ok := punctuation[r]
			if !ok {
				return nil, l.errorf("unexpected character %q", r)
			}
			l.emit(t, l.pos+w)
		}
	}
}

func (l *lexer) peek() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos:])
}

// at returns the byte at i as a rune, 0 past the end.
func (l *lexer) at(i int) rune {
	if i >= len(l.src) {
		return 0
	}
	return rune(l.src[i])
}

func (l *lexer) emit(t TokenType, end int) {
	l.toks = append(l.toks, Token{Type: t, Lexeme: l.src[l.pos:end], Pos: l.pos})
	l.pos = end
}

func (l *lexer) errorf(format string, args ...any) error {
	return errors.Wrapf(symcalc.ErrParse, "at %d: "+format, append([]any{l.pos}, args...)...)
}

func (l *lexer) scanWord(i int) int {
	for i < len(l.src) {
		r, w := utf8.DecodeRuneInString(l.src[i:])
		if !isLetter(r) && !isDigit(r) {
			break
		}
		i += w
	}
	return i
}

func (l *lexer) digits(i int) int {
	for isDigit(l.at(i)) {
		i++
	}
	return i
}

// number scans digits, an optional fraction and an optional exponent. An 'e'
// only belongs to the number when digits follow it, so "2e" lexes as 2 and e.
func (l *lexer) number() {
	t := INTEGER
	i := l.digits(l.pos)
	if l.at(i) == '.' {
		t = DECIMAL
		i = l.digits(i + 1)
	}
	if c := l.at(i); c == 'e' || c == 'E' {
		j := i + 1
		if s := l.at(j); s == '+' || s == '-' {
			j++
		}
		if isDigit(l.at(j)) {
			t = DECIMAL
			i = l.digits(j)
		}
	}
	l.emit(t, i)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isLetter(r rune) bool { return unicode.IsLetter(r) }
