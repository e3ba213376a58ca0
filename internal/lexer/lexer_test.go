package lexer

import (
	"errors"
	"testing"
)

func TestBasicTokens(t *testing.T) {
	input := `fun f(x) { return x + 1; }`

	tests := []struct {
		expectedType  TokenType
		expectedValue string
	}{
		{TokenFun, "fun"},
		{TokenIdent, "f"},
		{TokenLParen, "("},
		{TokenIdent, "x"},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenReturn, "return"},
		{TokenIdent, "x"},
		{TokenPlus, "+"},
		{TokenNumber, "1"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedValue {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedValue, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `var if else false true fun for while or and return wagmi`

	expected := []TokenType{
		TokenVar, TokenIf, TokenElse, TokenFalse, TokenTrue, TokenFun,
		TokenFor, TokenWhile, TokenOr, TokenAnd, TokenReturn, TokenWagmi,
		TokenEOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, want, tok.Type)
		}
	}
}

func TestTwoCharOperators(t *testing.T) {
	tests := []struct {
		input string
		types []TokenType
	}{
		{"==", []TokenType{TokenEq, TokenEOF}},
		{"!=", []TokenType{TokenNe, TokenEOF}},
		{"<=", []TokenType{TokenLe, TokenEOF}},
		{">=", []TokenType{TokenGe, TokenEOF}},
		// Single-character forms followed by a non-'=' character must not
		// consume the following character.
		{"=a", []TokenType{TokenAssign, TokenIdent, TokenEOF}},
		{"!a", []TokenType{TokenNot, TokenIdent, TokenEOF}},
		{"<a", []TokenType{TokenLt, TokenIdent, TokenEOF}},
		{">a", []TokenType{TokenGt, TokenIdent, TokenEOF}},
		{"<>", []TokenType{TokenLt, TokenGt, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l := New(tt.input)
			for i, want := range tt.types {
				tok := l.NextToken()
				if tok.Type != want {
					t.Fatalf("token[%d] wrong. expected=%q, got=%q", i, want, tok.Type)
				}
			}
		})
	}
}

func TestNumberIsGreedy(t *testing.T) {
	// Malformed decimal text is deferred to lowering; the lexer takes
	// digits and dots greedily.
	l := New("1.2.3 45")

	tok := l.NextToken()
	if tok.Type != TokenNumber || tok.Literal != "1.2.3" {
		t.Fatalf("expected NUMBER %q, got %s", "1.2.3", tok)
	}
	tok = l.NextToken()
	if tok.Type != TokenNumber || tok.Literal != "45" {
		t.Fatalf("expected NUMBER %q, got %s", "45", tok)
	}
}

func TestEOFIsSticky(t *testing.T) {
	l := New("x")
	if tok := l.NextToken(); tok.Type != TokenIdent {
		t.Fatalf("expected IDENT, got %s", tok)
	}
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != TokenEOF {
			t.Fatalf("call %d after end: expected EOF, got %s", i, tok)
		}
	}
}

func TestUnknownToken(t *testing.T) {
	l := New("1 + @")

	toks, err := l.Tokenize()
	if err == nil {
		t.Fatal("expected lexical error")
	}

	var unknown *UnknownTokenError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTokenError, got %v", err)
	}
	if unknown.Char != '@' {
		t.Fatalf("expected offending char '@', got %q", unknown.Char)
	}
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens before failure, got %d", len(toks))
	}

	// No recovery: the lexer keeps signaling the error.
	if tok := l.NextToken(); tok.Type != TokenError {
		t.Fatalf("expected ERROR after failure, got %s", tok)
	}
}

func TestTokenizeDeterminism(t *testing.T) {
	input := `fun fib(n) { if (n < 2) { return n; } return fib(n - 1) + fib(n - 2); }`

	first, err := New(input).Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(input).Tokenize()
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("token count mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("token[%d] mismatch: %s vs %s", i, first[i], second[i])
		}
	}
}
