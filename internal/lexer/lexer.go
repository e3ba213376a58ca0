// Package lexer implements the mai lexical analyzer.
package lexer

import (
	"fmt"
)

// TokenType represents the type of a token.
type TokenType int

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types.
const (
	// Special tokens.
	TokenEOF TokenType = iota
	TokenError

	// Literals and identifiers.
	TokenNumber
	TokenIdent

	// Keywords.
	TokenVar
	TokenIf
	TokenElse
	TokenFalse
	TokenTrue
	TokenFun
	TokenFor
	TokenWhile
	TokenOr
	TokenAnd
	TokenReturn
	TokenWagmi

	// Operators.
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenNot
	TokenAssign
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe

	// Punctuation.
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenSemicolon
)

// Token represents a lexical token with position information.
// Number and Ident tokens carry their exact source substring in Literal;
// the remaining kinds carry the spelling for diagnostics only.
type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based line number
	Column  int // 1-based column number
}

// String returns a string representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type, t.Literal, t.Line, t.Column)
}

// tokenNames provides string representations for token types.
var tokenNames = map[TokenType]string{
	TokenEOF:   "EOF",
	TokenError: "ERROR",

	TokenNumber: "NUMBER",
	TokenIdent:  "IDENT",

	TokenVar:    "VAR",
	TokenIf:     "IF",
	TokenElse:   "ELSE",
	TokenFalse:  "FALSE",
	TokenTrue:   "TRUE",
	TokenFun:    "FUN",
	TokenFor:    "FOR",
	TokenWhile:  "WHILE",
	TokenOr:     "OR",
	TokenAnd:    "AND",
	TokenReturn: "RETURN",
	TokenWagmi:  "WAGMI",

	TokenPlus:   "PLUS",
	TokenMinus:  "MINUS",
	TokenMul:    "MUL",
	TokenDiv:    "DIV",
	TokenNot:    "NOT",
	TokenAssign: "ASSIGN",
	TokenEq:     "EQ",
	TokenNe:     "NE",
	TokenLt:     "LT",
	TokenLe:     "LE",
	TokenGt:     "GT",
	TokenGe:     "GE",

	TokenLParen:    "LPAREN",
	TokenRParen:    "RPAREN",
	TokenLBrace:    "LBRACE",
	TokenRBrace:    "RBRACE",
	TokenComma:     "COMMA",
	TokenSemicolon: "SEMICOLON",
}

// keywords maps exact identifier spellings to their keyword token types.
// "wagmi" is a demo literal carried over from the original language and
// lowers to the constant 1.
var keywords = map[string]TokenType{
	"var":    TokenVar,
	"if":     TokenIf,
	"else":   TokenElse,
	"false":  TokenFalse,
	"true":   TokenTrue,
	"fun":    TokenFun,
	"for":    TokenFor,
	"while":  TokenWhile,
	"or":     TokenOr,
	"and":    TokenAnd,
	"return": TokenReturn,
	"wagmi":  TokenWagmi,
}

// UnknownTokenError reports a character the lexer cannot start a token with.
// Token production stops at that point; the lexer does not recover.
type UnknownTokenError struct {
	Char   byte
	Line   int
	Column int
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("%d:%d: unknown token matched %q", e.Line, e.Column, string(e.Char))
}

// Lexer turns source text into a finite sequence of tokens. It is lazy:
// each NextToken call scans just far enough to produce one token. Once the
// input is exhausted (or an unknown character is hit) the lexer is sticky
// and keeps returning the same terminal token.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
	err          error
	done         bool
}

// New creates a new lexer instance for the given source text.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// Err returns the lexical error encountered, if any.
func (l *Lexer) Err() error { return l.err }

// readChar reads the next character and advances position.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL represents "EOF"
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar returns the next character without advancing position.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

// NextToken scans and returns the next token. After the input is exhausted
// it keeps returning an EOF token; after an unknown character it keeps
// returning an ERROR token and Err reports the failure.
func (l *Lexer) NextToken() Token {
	if l.done {
		if l.err != nil {
			return l.errorToken()
		}
		return l.eofToken()
	}

	l.skipWhitespace()

	if l.ch == 0 {
		l.done = true
		return l.eofToken()
	}

	line, column := l.line, l.column

	switch l.ch {
	case '(':
		return l.single(TokenLParen)
	case ')':
		return l.single(TokenRParen)
	case '{':
		return l.single(TokenLBrace)
	case '}':
		return l.single(TokenRBrace)
	case ',':
		return l.single(TokenComma)
	case ';':
		return l.single(TokenSemicolon)
	case '+':
		return l.single(TokenPlus)
	case '-':
		return l.single(TokenMinus)
	case '*':
		return l.single(TokenMul)
	case '/':
		return l.single(TokenDiv)
	case '!':
		return l.oneOrTwo(TokenNot, TokenNe)
	case '=':
		return l.oneOrTwo(TokenAssign, TokenEq)
	case '<':
		return l.oneOrTwo(TokenLt, TokenLe)
	case '>':
		return l.oneOrTwo(TokenGt, TokenGe)
	}

	if isDigit(l.ch) || l.ch == '.' {
		literal := l.readNumber()
		return Token{Type: TokenNumber, Literal: literal, Line: line, Column: column}
	}

	if isLetter(l.ch) {
		literal := l.readIdentifier()
		typ := TokenIdent
		if kw, ok := keywords[literal]; ok {
			typ = kw
		}
		return Token{Type: typ, Literal: literal, Line: line, Column: column}
	}

	l.err = &UnknownTokenError{Char: l.ch, Line: line, Column: column}
	l.done = true
	return l.errorToken()
}

// Tokenize drains the lexer into a token slice ending with the EOF token.
// On a lexical error the tokens scanned so far are returned alongside it.
func (l *Lexer) Tokenize() ([]Token, error) {
	var toks []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return toks, l.err
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks, nil
		}
	}
}

// single consumes the current character and emits a one-character token.
func (l *Lexer) single(typ TokenType) Token {
	tok := Token{Type: typ, Literal: string(l.ch), Line: l.line, Column: l.column}
	l.readChar()
	return tok
}

// oneOrTwo handles the `!` `=` `<` `>` family: if the next character is
// `=` it is consumed and the two-character token is emitted, otherwise the
// one-character token is emitted without consuming the following character.
func (l *Lexer) oneOrTwo(one, two TokenType) Token {
	line, column := l.line, l.column
	literal := string(l.ch)
	typ := one
	if l.peekChar() == '=' {
		l.readChar()
		literal += "="
		typ = two
	}
	l.readChar()
	return Token{Type: typ, Literal: literal, Line: line, Column: column}
}

// readNumber reads a numeric literal greedily: digits and dots, with no
// well-formedness check. Malformed text like "1.2.3" is deferred to
// constant parsing at lowering time.
func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) eofToken() Token {
	l.done = true
	return Token{Type: TokenEOF, Line: l.line, Column: l.column}
}

func (l *Lexer) errorToken() Token {
	return Token{Type: TokenError, Line: l.line, Column: l.column}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
