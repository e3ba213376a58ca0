// Package parser implements the mai recursive descent parser and AST definitions.
package parser

import (
	"fmt"
	"strings"

	"github.com/mai-lang/mai/internal/lexer"
)

// Node is the base interface for all AST nodes.
type Node interface {
	// String returns a string representation of the node.
	String() string
}

// Expr represents all expression nodes. The set is closed: the lowering
// engine switches exhaustively over these variants.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ====== Expressions ======

// LiteralExpr is a raw textual value. The parser only ever emits numeric
// text here: boolean keywords are rewritten to "0"/"1" at parse time so
// malformed literal text never reaches lowering.
type LiteralExpr struct {
	Value string
}

func (e *LiteralExpr) String() string { return e.Value }
func (e *LiteralExpr) exprNode()      {}

// VariableExpr is an identifier reference.
type VariableExpr struct {
	Name lexer.Token
}

func (e *VariableExpr) String() string { return e.Name.Literal }
func (e *VariableExpr) exprNode()      {}

// AssignExpr assigns a value to a named variable.
type AssignExpr struct {
	Name  lexer.Token
	Value Expr
}

func (e *AssignExpr) String() string { return fmt.Sprintf("(%s = %s)", e.Name.Literal, e.Value) }
func (e *AssignExpr) exprNode()      {}

// UnaryExpr applies a prefix operator to one operand.
type UnaryExpr struct {
	Op    lexer.Token
	Right Expr
}

func (e *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", e.Op.Literal, e.Right) }
func (e *UnaryExpr) exprNode()      {}

// BinaryExpr applies an infix operator to two operands.
type BinaryExpr struct {
	Op    lexer.Token
	Left  Expr
	Right Expr
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op.Literal, e.Right)
}
func (e *BinaryExpr) exprNode() {}

// LogicalExpr is a short-circuiting `and`/`or` expression.
type LogicalExpr struct {
	Op    lexer.Token
	Left  Expr
	Right Expr
}

func (e *LogicalExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op.Literal, e.Right)
}
func (e *LogicalExpr) exprNode() {}

// GroupingExpr is a parenthesized sub-expression.
type GroupingExpr struct {
	Expr Expr
}

func (e *GroupingExpr) String() string { return fmt.Sprintf("(group %s)", e.Expr) }
func (e *GroupingExpr) exprNode()      {}

// CallExpr invokes a callee with an ordered argument list. Paren is the
// closing parenthesis token, kept for error positions.
type CallExpr struct {
	Callee Expr
	Paren  lexer.Token
	Args   []Expr
}

func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Callee, strings.Join(args, ", "))
}
func (e *CallExpr) exprNode() {}

// ====== Statements ======

// ExprStmt evaluates an expression for its side effect.
type ExprStmt struct {
	Expr Expr
}

func (s *ExprStmt) String() string { return s.Expr.String() + ";" }
func (s *ExprStmt) stmtNode()      {}

// BlockStmt is an ordered sequence of statements with its own scope.
type BlockStmt struct {
	Statements []Stmt
}

func (s *BlockStmt) String() string {
	var b strings.Builder
	b.WriteString("{ ")
	for _, st := range s.Statements {
		b.WriteString(st.String())
		b.WriteByte(' ')
	}
	b.WriteString("}")
	return b.String()
}
func (s *BlockStmt) stmtNode() {}

// ReturnStmt returns from the enclosing function, optionally with a value.
type ReturnStmt struct {
	Keyword lexer.Token
	Value   Expr // nil when no value is given
}

func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", s.Value)
}
func (s *ReturnStmt) stmtNode() {}

// FunctionStmt declares a function. An empty body declares an external
// function: the lowering engine registers the signature only.
type FunctionStmt struct {
	Name   lexer.Token
	Params []lexer.Token
	Body   []Stmt
}

func (s *FunctionStmt) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.Literal
	}
	return fmt.Sprintf("fun %s(%s)", s.Name.Literal, strings.Join(params, ", "))
}
func (s *FunctionStmt) stmtNode() {}

// IfStmt branches on a condition interpreted as boolean via nonzero test.
type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil when absent
}

func (s *IfStmt) String() string {
	if s.Else == nil {
		return fmt.Sprintf("if (%s) %s", s.Cond, s.Then)
	}
	return fmt.Sprintf("if (%s) %s else %s", s.Cond, s.Then, s.Else)
}
func (s *IfStmt) stmtNode() {}

// WhileStmt loops while the condition is nonzero. `for` loops are
// desugared into this form at parse time.
type WhileStmt struct {
	Cond Expr
	Body Stmt
}

func (s *WhileStmt) String() string { return fmt.Sprintf("while (%s) %s", s.Cond, s.Body) }
func (s *WhileStmt) stmtNode()      {}

// VarStmt declares a local variable with an optional initializer.
type VarStmt struct {
	Name        lexer.Token
	Initializer Expr // nil when absent; lowers to 0
}

func (s *VarStmt) String() string {
	if s.Initializer == nil {
		return fmt.Sprintf("var %s;", s.Name.Literal)
	}
	return fmt.Sprintf("var %s = %s;", s.Name.Literal, s.Initializer)
}
func (s *VarStmt) stmtNode() {}
