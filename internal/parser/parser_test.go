package parser

import (
	"strings"
	"testing"

	"github.com/mai-lang/mai/internal/lexer"
)

func parseSource(t *testing.T, src string) []Stmt {
	t.Helper()
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	stmts, err := New(toks).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return stmts
}

func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	stmts := parseSource(t, src+";")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	es, ok := stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected expression statement, got %T", stmts[0])
	}
	return es.Expr
}

func TestPrecedence(t *testing.T) {
	// Multiplication binds tighter than addition: a + b * c must parse
	// with the product as the right child of the sum.
	expr := parseExpr(t, "a + b * c")

	sum, ok := expr.(*BinaryExpr)
	if !ok || sum.Op.Type != lexer.TokenPlus {
		t.Fatalf("expected + at root, got %s", expr)
	}
	product, ok := sum.Right.(*BinaryExpr)
	if !ok || product.Op.Type != lexer.TokenMul {
		t.Fatalf("expected * as right child, got %s", sum.Right)
	}
	if got := expr.String(); got != "(a + (b * c))" {
		t.Fatalf("unexpected shape: %s", got)
	}
}

func TestLeftAssociativity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a - b - c", "((a - b) - c)"},
		{"a / b / c", "((a / b) / c)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"1 + 2 * 3 - 4", "((1 + (2 * 3)) - 4)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseExpr(t, tt.input).String(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAssignment(t *testing.T) {
	expr := parseExpr(t, "x = y = 2")

	outer, ok := expr.(*AssignExpr)
	if !ok || outer.Name.Literal != "x" {
		t.Fatalf("expected assignment to x, got %s", expr)
	}
	inner, ok := outer.Value.(*AssignExpr)
	if !ok || inner.Name.Literal != "y" {
		t.Fatalf("expected right-associative nested assignment, got %s", outer.Value)
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	toks, err := lexer.New("a + b = c;").Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(toks).Parse(); err == nil || !strings.Contains(err.Error(), "invalid assignment") {
		t.Fatalf("expected invalid assignment error, got %v", err)
	}
}

func TestLogicalPrecedence(t *testing.T) {
	expr := parseExpr(t, "a or b and c")

	or, ok := expr.(*LogicalExpr)
	if !ok || or.Op.Type != lexer.TokenOr {
		t.Fatalf("expected or at root, got %s", expr)
	}
	and, ok := or.Right.(*LogicalExpr)
	if !ok || and.Op.Type != lexer.TokenAnd {
		t.Fatalf("expected and as right child, got %s", or.Right)
	}
}

func TestCallChaining(t *testing.T) {
	expr := parseExpr(t, "f(1)(2, 3)")

	outer, ok := expr.(*CallExpr)
	if !ok || len(outer.Args) != 2 {
		t.Fatalf("expected outer call with 2 args, got %s", expr)
	}
	inner, ok := outer.Callee.(*CallExpr)
	if !ok || len(inner.Args) != 1 {
		t.Fatalf("expected inner call with 1 arg, got %s", outer.Callee)
	}
}

func TestFunctionDeclaration(t *testing.T) {
	stmts := parseSource(t, "fun f(x) { return x + 1; }")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}

	fn, ok := stmts[0].(*FunctionStmt)
	if !ok {
		t.Fatalf("expected function statement, got %T", stmts[0])
	}
	if fn.Name.Literal != "f" || len(fn.Params) != 1 || fn.Params[0].Literal != "x" {
		t.Fatalf("unexpected signature: %s", fn)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body))
	}

	ret, ok := fn.Body[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("expected return statement, got %T", fn.Body[0])
	}
	sum, ok := ret.Value.(*BinaryExpr)
	if !ok || sum.Op.Type != lexer.TokenPlus {
		t.Fatalf("expected + in return value, got %s", ret.Value)
	}
	if _, ok := sum.Left.(*VariableExpr); !ok {
		t.Fatalf("expected variable on left, got %T", sum.Left)
	}
	if lit, ok := sum.Right.(*LiteralExpr); !ok || lit.Value != "1" {
		t.Fatalf("expected literal 1 on right, got %s", sum.Right)
	}
}

func TestVarDeclaration(t *testing.T) {
	stmts := parseSource(t, "var x = 3; var y;")

	v0 := stmts[0].(*VarStmt)
	if v0.Name.Literal != "x" || v0.Initializer == nil {
		t.Fatalf("unexpected first declaration: %s", v0)
	}
	v1 := stmts[1].(*VarStmt)
	if v1.Name.Literal != "y" || v1.Initializer != nil {
		t.Fatalf("unexpected second declaration: %s", v1)
	}
}

func TestIfElse(t *testing.T) {
	stmts := parseSource(t, "if (x < 5) { x; } else { 0; }")

	ifs, ok := stmts[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected if statement, got %T", stmts[0])
	}
	if ifs.Else == nil {
		t.Fatal("expected else branch")
	}
	if _, ok := ifs.Cond.(*BinaryExpr); !ok {
		t.Fatalf("expected binary condition, got %T", ifs.Cond)
	}
}

func TestForDesugarsToWhile(t *testing.T) {
	// for (var i = 0; i < 10; i = i + 1) body
	// becomes { var i = 0; while (i < 10) { body; i = i + 1; } }
	stmts := parseSource(t, "for (var i = 0; i < 10; i = i + 1) { i; }")

	block, ok := stmts[0].(*BlockStmt)
	if !ok || len(block.Statements) != 2 {
		t.Fatalf("expected enclosing block with initializer and loop, got %s", stmts[0])
	}
	if _, ok := block.Statements[0].(*VarStmt); !ok {
		t.Fatalf("expected hoisted initializer, got %T", block.Statements[0])
	}

	loop, ok := block.Statements[1].(*WhileStmt)
	if !ok {
		t.Fatalf("expected while loop, got %T", block.Statements[1])
	}

	// The written condition must survive desugaring.
	cond, ok := loop.Cond.(*BinaryExpr)
	if !ok || cond.Op.Type != lexer.TokenLt {
		t.Fatalf("for condition was not preserved: %s", loop.Cond)
	}

	body, ok := loop.Body.(*BlockStmt)
	if !ok || len(body.Statements) != 2 {
		t.Fatalf("expected body block with trailing increment, got %s", loop.Body)
	}
	incr, ok := body.Statements[1].(*ExprStmt)
	if !ok {
		t.Fatalf("expected trailing increment statement, got %T", body.Statements[1])
	}
	if _, ok := incr.Expr.(*AssignExpr); !ok {
		t.Fatalf("expected assignment increment, got %T", incr.Expr)
	}
}

func TestForWithoutClauses(t *testing.T) {
	stmts := parseSource(t, "for (;;) { 1; }")

	loop, ok := stmts[0].(*WhileStmt)
	if !ok {
		t.Fatalf("expected bare while loop, got %T", stmts[0])
	}
	lit, ok := loop.Cond.(*LiteralExpr)
	if !ok || lit.Value != "1" {
		t.Fatalf("expected constant-true condition, got %s", loop.Cond)
	}
}

func TestBooleanLiteralsRewritten(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"true", "1"},
		{"false", "0"},
		{"wagmi", "1"},
	}
	for _, tt := range tests {
		lit, ok := parseExpr(t, tt.input).(*LiteralExpr)
		if !ok || lit.Value != tt.want {
			t.Fatalf("%s: expected literal %q", tt.input, tt.want)
		}
	}
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing function name", "fun (x) { }"},
		{"missing parameter name", "fun f(1) { }"},
		{"missing variable name", "var = 1;"},
		{"missing closing paren", "(1 + 2;"},
		{"missing call paren", "f(1, 2;"},
		{"missing semicolon", "1 + 2"},
		{"missing block brace", "fun f() { return 1;"},
		{"missing expression", "1 + ;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lexer.New(tt.input).Tokenize()
			if err != nil {
				t.Fatal(err)
			}
			if _, err := New(toks).Parse(); err == nil {
				t.Fatalf("expected parse error for %q", tt.input)
			}
		})
	}
}

func TestGrouping(t *testing.T) {
	expr := parseExpr(t, "(a + b) * c")

	product, ok := expr.(*BinaryExpr)
	if !ok || product.Op.Type != lexer.TokenMul {
		t.Fatalf("expected * at root, got %s", expr)
	}
	if _, ok := product.Left.(*GroupingExpr); !ok {
		t.Fatalf("expected grouping on left, got %T", product.Left)
	}
}

func TestUnary(t *testing.T) {
	expr := parseExpr(t, "!-a")

	not, ok := expr.(*UnaryExpr)
	if !ok || not.Op.Type != lexer.TokenNot {
		t.Fatalf("expected ! at root, got %s", expr)
	}
	neg, ok := not.Right.(*UnaryExpr)
	if !ok || neg.Op.Type != lexer.TokenMinus {
		t.Fatalf("expected nested -, got %s", not.Right)
	}
}
