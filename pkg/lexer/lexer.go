package lexer

import (
	"math"
	"strconv"
	"unicode"

	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/token"
	"github.com/xplshn/pp07/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
	err       *util.Diagnostic
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize lexes the whole input. The returned slice always ends with EOF.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok := l.Next()
		if l.err != nil {
			return nil, l.err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Err returns the first lexical error, if any. After an error Next only
// returns EOF.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

func (l *Lexer) Next() token.Token {
	if l.err != nil {
		return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
	}
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		return l.identifierOrKeyword(startPos, startCol, startLine)
	}
	if unicode.IsDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
	case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
	case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
	case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
	case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
	case ',': return l.makeToken(token.Comma, "", startPos, startCol, startLine)
	case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
	case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine)
	case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
	case '%': return l.makeToken(token.Rem, "", startPos, startCol, startLine)
	case '*': return l.matchThen('*', token.StarStar, token.Star, startPos, startCol, startLine)
	case '=': return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine)
	case '!': return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
	case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
	case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
	case '&':
		if l.match('&') {
			return l.makeToken(token.AndAnd, "", startPos, startCol, startLine)
		}
	case '|':
		if l.match('|') {
			return l.makeToken(token.OrOr, "", startPos, startCol, startLine)
		}
	case '\'':
		if l.cfg.IsFeatureEnabled(config.FeatCharLiterals) {
			return l.charLiteral(startPos, startCol, startLine)
		}
		return l.fail(startPos, startCol, startLine, "Character literals are disabled (use -Fchar-literals)")
	}
	return l.fail(startPos, startCol, startLine, "Unexpected character: '%c'", ch)
}

func (l *Lexer) fail(startPos, startCol, startLine int, format string, args ...interface{}) token.Token {
	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	l.err = util.NewDiagnostic(util.SyntaxStructure, tok, format, args...)
	return tok
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) matchThen(expected rune, whenMatched, otherwise token.Type, startPos, startCol, startLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(whenMatched, "", startPos, startCol, startLine)
	}
	return l.makeToken(otherwise, "", startPos, startCol, startLine)
}

func (l *Lexer) skipWhitespaceAndComments() {
	comments := l.cfg.IsFeatureEnabled(config.FeatCComments)
	for {
		switch {
		case l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\n' || l.peek() == '\r':
			l.advance()
		case comments && l.peek() == '/' && l.peekNext() == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case comments && l.peek() == '/' && l.peekNext() == '*':
			l.blockComment()
			if l.err != nil {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	startPos, startCol, startLine := l.pos, l.column, l.line
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.fail(startPos, startCol, startLine, "Unterminated block comment")
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if unicode.IsLetter(l.peek()) || l.peek() == '_' {
		for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		return l.fail(startPos, startCol, startLine, "Malformed number literal: %s", string(l.source[startPos:l.pos]))
	}
	valueStr := string(l.source[startPos:l.pos])
	// 2^31 is let through for the parser: it is valid only as the operand of unary minus
	if v, err := strconv.ParseInt(valueStr, 10, 64); err != nil || v > -math.MinInt32 {
		return l.fail(startPos, startCol, startLine, "Integer constant out of range: %s", valueStr)
	}
	return l.makeToken(token.Number, valueStr, startPos, startCol, startLine)
}

// charLiteral is entered after the opening quote
func (l *Lexer) charLiteral(startPos, startCol, startLine int) token.Token {
	if l.isAtEnd() || l.peek() == '\n' || l.peek() == '\'' {
		return l.fail(startPos, startCol, startLine, "Empty or unterminated character literal")
	}
	ch := l.advance()
	if ch == '\\' {
		switch esc := l.advance(); esc {
		case 'n': ch = '\n'
		case 't': ch = '\t'
		case 'r': ch = '\r'
		case '0': ch = 0
		case '\\', '\'': ch = esc
		default:
			return l.fail(startPos, startCol, startLine, "Unrecognized escape sequence '\\%c'", esc)
		}
	}
	if !l.match('\'') {
		return l.fail(startPos, startCol, startLine, "Unterminated character literal")
	}
	return l.makeToken(token.Char, string(ch), startPos, startCol, startLine)
}
