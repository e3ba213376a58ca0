package parser

import (
	"fmt"

	"github.com/mai-lang/mai/internal/lexer"
)

// ParseError represents a parsing error with position context.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser consumes a full token sequence and produces the ordered sequence
// of top-level statements. The cursor advances monotonically: there is no
// backtracking beyond one-token lookahead. A structural error aborts the
// whole parse; there is no recovery.
type Parser struct {
	tokens  []lexer.Token
	current int
}

// New creates a parser over a token sequence. The sequence is expected to
// end with an EOF token, as produced by lexer.Tokenize.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse returns the ordered sequence of top-level statements.
func (p *Parser) Parse() ([]Stmt, error) {
	var statements []Stmt
	for !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// ====== Declarations and statements ======

func (p *Parser) declaration() (Stmt, error) {
	switch {
	case p.match(lexer.TokenFun):
		return p.function()
	case p.match(lexer.TokenVar):
		return p.varDeclaration()
	default:
		return p.statement()
	}
}

func (p *Parser) function() (Stmt, error) {
	name, err := p.consume(lexer.TokenIdent, "expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokenLParen, "expected '(' after function name"); err != nil {
		return nil, err
	}

	var params []lexer.Token
	if !p.check(lexer.TokenRParen) {
		for {
			param, err := p.consume(lexer.TokenIdent, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.TokenRParen, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokenLBrace, "expected '{' before function body"); err != nil {
		return nil, err
	}

	body, err := p.blockStatements()
	if err != nil {
		return nil, err
	}
	return &FunctionStmt{Name: name, Params: params, Body: body}, nil
}

func (p *Parser) varDeclaration() (Stmt, error) {
	name, err := p.consume(lexer.TokenIdent, "expected variable name")
	if err != nil {
		return nil, err
	}

	var initializer Expr
	if p.match(lexer.TokenAssign) {
		initializer, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.TokenSemicolon, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}
	return &VarStmt{Name: name, Initializer: initializer}, nil
}

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.match(lexer.TokenIf):
		return p.ifStatement()
	case p.match(lexer.TokenWhile):
		return p.whileStatement()
	case p.match(lexer.TokenFor):
		return p.forStatement()
	case p.match(lexer.TokenReturn):
		return p.returnStatement()
	case p.match(lexer.TokenLBrace):
		stmts, err := p.blockStatements()
		if err != nil {
			return nil, err
		}
		return &BlockStmt{Statements: stmts}, nil
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) ifStatement() (Stmt, error) {
	if _, err := p.consume(lexer.TokenLParen, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokenRParen, "expected ')' after if condition"); err != nil {
		return nil, err
	}

	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var elseBranch Stmt
	if p.match(lexer.TokenElse) {
		elseBranch, err = p.statement()
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{Cond: cond, Then: then, Else: elseBranch}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	if _, err := p.consume(lexer.TokenLParen, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokenRParen, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

// forStatement desugars `for (init; cond; incr) body` into an equivalent
// while loop at parse time: the increment is appended to the body inside a
// block, and the initializer is hoisted into an enclosing block. The
// written condition is honored; an absent condition means true.
func (p *Parser) forStatement() (Stmt, error) {
	if _, err := p.consume(lexer.TokenLParen, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	var initializer Stmt
	var err error
	switch {
	case p.match(lexer.TokenSemicolon):
		// no initializer
	case p.match(lexer.TokenVar):
		initializer, err = p.varDeclaration()
	default:
		initializer, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var cond Expr
	if !p.check(lexer.TokenSemicolon) {
		cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.TokenSemicolon, "expected ';' after loop condition"); err != nil {
		return nil, err
	}

	var increment Expr
	if !p.check(lexer.TokenRParen) {
		increment, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.TokenRParen, "expected ')' after for clauses"); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if increment != nil {
		body = &BlockStmt{Statements: []Stmt{body, &ExprStmt{Expr: increment}}}
	}
	if cond == nil {
		cond = &LiteralExpr{Value: "1"}
	}
	body = &WhileStmt{Cond: cond, Body: body}
	if initializer != nil {
		body = &BlockStmt{Statements: []Stmt{initializer, body}}
	}
	return body, nil
}

func (p *Parser) returnStatement() (Stmt, error) {
	keyword := p.previous()

	var value Expr
	var err error
	if !p.check(lexer.TokenSemicolon) {
		value, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(lexer.TokenSemicolon, "expected ';' after return value"); err != nil {
		return nil, err
	}
	return &ReturnStmt{Keyword: keyword, Value: value}, nil
}

// blockStatements parses statements until the closing brace, which is
// consumed. The opening brace has already been consumed by the caller.
func (p *Parser) blockStatements() ([]Stmt, error) {
	var stmts []Stmt
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.consume(lexer.TokenRBrace, "expected '}' after block"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) expressionStatement() (Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.TokenSemicolon, "expected ';' after expression"); err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, nil
}

// ====== Expressions, lowest to highest precedence ======

func (p *Parser) expression() (Expr, error) {
	return p.assignment()
}

// assignment is right-associative and only valid when the left-hand side
// parsed as a bare variable reference.
func (p *Parser) assignment() (Expr, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}

	if p.match(lexer.TokenAssign) {
		equals := p.previous()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		variable, ok := expr.(*VariableExpr)
		if !ok {
			return nil, p.errorAt(equals, "invalid assignment target")
		}
		return &AssignExpr{Name: variable.Name, Value: value}, nil
	}
	return expr, nil
}

func (p *Parser) or() (Expr, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenOr) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) and() (Expr, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenAnd) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (Expr, error) {
	expr, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenEq, lexer.TokenNe) {
		op := p.previous()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) comparison() (Expr, error) {
	expr, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenLt, lexer.TokenLe, lexer.TokenGt, lexer.TokenGe) {
		op := p.previous()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) term() (Expr, error) {
	expr, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenMinus, lexer.TokenPlus) {
		op := p.previous()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) factor() (Expr, error) {
	expr, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenDiv, lexer.TokenMul) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) unary() (Expr, error) {
	if p.match(lexer.TokenNot, lexer.TokenMinus) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Right: right}, nil
	}
	return p.call()
}

func (p *Parser) call() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenLParen) {
		expr, err = p.finishCall(expr)
		if err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) finishCall(callee Expr) (Expr, error) {
	var args []Expr
	if !p.check(lexer.TokenRParen) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	paren, err := p.consume(lexer.TokenRParen, "expected ')' after arguments")
	if err != nil {
		return nil, err
	}
	return &CallExpr{Callee: callee, Paren: paren, Args: args}, nil
}

func (p *Parser) primary() (Expr, error) {
	switch {
	case p.match(lexer.TokenFalse):
		return &LiteralExpr{Value: "0"}, nil
	case p.match(lexer.TokenTrue, lexer.TokenWagmi):
		return &LiteralExpr{Value: "1"}, nil
	case p.match(lexer.TokenNumber):
		return &LiteralExpr{Value: p.previous().Literal}, nil
	case p.match(lexer.TokenIdent):
		return &VariableExpr{Name: p.previous()}, nil
	case p.match(lexer.TokenLParen):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.TokenRParen, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return &GroupingExpr{Expr: expr}, nil
	default:
		return nil, p.errorAt(p.peek(), "expected expression")
	}
}

// ====== Cursor helpers ======

// match advances over the current token when it is one of the given types.
func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

// consume advances over a structurally required token or fails the parse.
// A missing mandatory delimiter is a hard error, not tolerated silently.
func (p *Parser) consume(t lexer.TokenType, message string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAt(p.peek(), message)
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}

func (p *Parser) peek() lexer.Token {
	if p.current < len(p.tokens) {
		return p.tokens[p.current]
	}
	return lexer.Token{Type: lexer.TokenEOF}
}

func (p *Parser) previous() lexer.Token {
	if p.current > 0 && p.current-1 < len(p.tokens) {
		return p.tokens[p.current-1]
	}
	return lexer.Token{Type: lexer.TokenEOF}
}

func (p *Parser) errorAt(tok lexer.Token, message string) error {
	if tok.Type == lexer.TokenEOF {
		return &ParseError{Line: tok.Line, Column: tok.Column, Message: message + ", found end of input"}
	}
	return &ParseError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf("%s, found %q", message, tok.Literal)}
}
