// Package lower translates parsed function declarations into the
// control-flow-graph IR, one function at a time.
package lower

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mai-lang/mai/internal/ir"
	"github.com/mai-lang/mai/internal/lexer"
	"github.com/mai-lang/mai/internal/parser"
)

// Lowering failures. Each is recoverable at the call boundary: the caller
// receives a diagnostic and no function is left registered in the module.
var (
	ErrVariableNotFound    = errors.New("variable not found")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrMalformedLiteral    = errors.New("malformed numeric literal")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrArityMismatch       = errors.New("arity mismatch")
	ErrInvalidCallee       = errors.New("callee is not a function name")
	ErrInvalidFunction     = errors.New("invalid generated function")
)

// Translator lowers function declarations into a target module. It holds
// the per-function lowering state: the builder's insertion position and
// the variable-name-to-storage-slot environment. A translator must not be
// shared across concurrent lowering calls; give each goroutine its own
// module and translator.
type Translator struct {
	module *ir.Module
	b      *ir.Builder
	scopes []map[string]ir.Value // name -> slot address, innermost last
}

// New creates a translator targeting the given module.
func New(module *ir.Module) *Translator {
	return &Translator{module: module}
}

// Module returns the target module.
func (t *Translator) Module() *ir.Module { return t.module }

// Translate lowers one function declaration into an IR function and
// registers it in the target module. An empty body registers an external
// declaration: the signature alone. On failure the partially built
// function is removed from the module and an error is returned.
func (t *Translator) Translate(fun *parser.FunctionStmt) (*ir.Function, error) {
	name := fun.Name.Literal
	params := make([]string, len(fun.Params))
	for i, p := range fun.Params {
		params[i] = p.Literal
	}

	fn := &ir.Function{Name: name, Params: params}
	if err := t.module.Add(fn); err != nil {
		return nil, err
	}
	if len(fun.Body) == 0 {
		return fn, nil
	}

	if err := t.translateBody(fn, fun); err != nil {
		t.module.Remove(name)
		return nil, err
	}

	if err := fn.Verify(); err != nil {
		t.module.Remove(name)
		return nil, fmt.Errorf("%w: %v", ErrInvalidFunction, err)
	}
	return fn, nil
}

func (t *Translator) translateBody(fn *ir.Function, fun *parser.FunctionStmt) error {
	t.b = ir.NewBuilder(fn)
	t.scopes = nil
	defer func() {
		t.b = nil
		t.scopes = nil
	}()

	entry := t.b.NewBlock("entry")
	t.b.SetInsertPoint(entry)

	// Every parameter gets a dedicated storage slot so that reassignment
	// and loop-carried mutation are representable before mem2reg runs
	// downstream.
	t.pushScope()
	for _, p := range fn.Params {
		if _, exists := t.scopes[len(t.scopes)-1][p]; exists {
			return fmt.Errorf("duplicate parameter %q in function %q", p, fn.Name)
		}
		addr := t.b.CreateEntryAlloca(p)
		t.b.CreateStore(addr, ir.Ref("%"+p))
		t.define(p, addr)
	}

	value, err := t.lowerStatements(fun.Body)
	if err != nil {
		return err
	}
	// The body's running value becomes the return value when control
	// reaches the end without an explicit return.
	if !t.b.InsertBlock().Terminated() {
		t.b.CreateRet(value)
	}
	t.popScope()
	return nil
}

// lowerStatements lowers a statement sequence, threading control through
// every statement. The sequence's value is the last statement's value.
// Statements after a terminator are unreachable and are dropped.
func (t *Translator) lowerStatements(stmts []parser.Stmt) (ir.Value, error) {
	value := ir.ConstFloat(0)
	for _, stmt := range stmts {
		if t.b.InsertBlock().Terminated() {
			break
		}
		v, err := t.lowerStmt(stmt)
		if err != nil {
			return ir.Value{}, err
		}
		value = v
	}
	return value, nil
}

func (t *Translator) lowerStmt(stmt parser.Stmt) (ir.Value, error) {
	switch s := stmt.(type) {
	case *parser.ExprStmt:
		return t.lowerExpr(s.Expr)
	case *parser.BlockStmt:
		t.pushScope()
		value, err := t.lowerStatements(s.Statements)
		t.popScope()
		return value, err
	case *parser.VarStmt:
		return t.lowerVar(s)
	case *parser.ReturnStmt:
		value := ir.ConstFloat(0)
		if s.Value != nil {
			v, err := t.lowerExpr(s.Value)
			if err != nil {
				return ir.Value{}, err
			}
			value = v
		}
		t.b.CreateRet(value)
		return value, nil
	case *parser.IfStmt:
		return t.lowerIf(s)
	case *parser.WhileStmt:
		return t.lowerWhile(s)
	case *parser.FunctionStmt:
		return ir.Value{}, fmt.Errorf("nested function declaration %q is not supported", s.Name.Literal)
	default:
		return ir.Value{}, fmt.Errorf("cannot lower statement %T", stmt)
	}
}

func (t *Translator) lowerVar(s *parser.VarStmt) (ir.Value, error) {
	value := ir.ConstFloat(0)
	if s.Initializer != nil {
		v, err := t.lowerExpr(s.Initializer)
		if err != nil {
			return ir.Value{}, err
		}
		value = v
	}
	addr := t.b.CreateEntryAlloca(s.Name.Literal)
	t.b.CreateStore(addr, value)
	t.define(s.Name.Literal, addr)
	return value, nil
}

// lowerIf lowers a conditional: the condition is compared against zero for
// inequality, control splits into then/else blocks, and the branch results
// meet in a merge block through a phi tagged with the branch-exit blocks.
// A branch that ends in a return contributes no merge edge; an absent else
// branch contributes the constant zero.
func (t *Translator) lowerIf(s *parser.IfStmt) (ir.Value, error) {
	condValue, err := t.lowerExpr(s.Cond)
	if err != nil {
		return ir.Value{}, err
	}
	cond := t.b.CreateCmp(ir.CmpUNE, condValue, ir.ConstFloat(0))

	thenBB := t.b.NewBlock("then")
	elseBB := t.b.NewBlock("else")
	mergeBB := t.b.NewBlock("merge")
	t.b.CreateCondBr(cond, thenBB, elseBB)

	var incoming []ir.Incoming

	t.b.SetInsertPoint(thenBB)
	thenValue, err := t.lowerStmt(s.Then)
	if err != nil {
		return ir.Value{}, err
	}
	// Nested control flow may have moved the insertion point: the phi must
	// be tagged with the block that actually branches to merge.
	if exit := t.b.InsertBlock(); !exit.Terminated() {
		t.b.CreateBr(mergeBB)
		incoming = append(incoming, ir.Incoming{Val: thenValue, Block: exit.Name})
	}

	t.b.SetInsertPoint(elseBB)
	elseValue := ir.ConstFloat(0)
	if s.Else != nil {
		elseValue, err = t.lowerStmt(s.Else)
		if err != nil {
			return ir.Value{}, err
		}
	}
	if exit := t.b.InsertBlock(); !exit.Terminated() {
		t.b.CreateBr(mergeBB)
		incoming = append(incoming, ir.Incoming{Val: elseValue, Block: exit.Name})
	}

	t.b.SetInsertPoint(mergeBB)
	if len(incoming) == 0 {
		// Both branches returned; the merge block is unreachable and the
		// statement has no observable value.
		return ir.ConstFloat(0), nil
	}
	return t.b.CreatePhi(incoming), nil
}

// lowerWhile lowers a loop into cond/body/exit blocks. The loop's value is
// the constant zero.
func (t *Translator) lowerWhile(s *parser.WhileStmt) (ir.Value, error) {
	condBB := t.b.NewBlock("while.cond")
	bodyBB := t.b.NewBlock("while.body")
	exitBB := t.b.NewBlock("while.exit")
	t.b.CreateBr(condBB)

	t.b.SetInsertPoint(condBB)
	condValue, err := t.lowerExpr(s.Cond)
	if err != nil {
		return ir.Value{}, err
	}
	cond := t.b.CreateCmp(ir.CmpUNE, condValue, ir.ConstFloat(0))
	t.b.CreateCondBr(cond, bodyBB, exitBB)

	t.b.SetInsertPoint(bodyBB)
	if _, err := t.lowerStmt(s.Body); err != nil {
		return ir.Value{}, err
	}
	if !t.b.InsertBlock().Terminated() {
		t.b.CreateBr(condBB)
	}

	t.b.SetInsertPoint(exitBB)
	return ir.ConstFloat(0), nil
}

func (t *Translator) lowerExpr(expr parser.Expr) (ir.Value, error) {
	switch e := expr.(type) {
	case *parser.LiteralExpr:
		f, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return ir.Value{}, fmt.Errorf("%w: %q", ErrMalformedLiteral, e.Value)
		}
		return ir.ConstFloat(f), nil
	case *parser.VariableExpr:
		addr, ok := t.resolve(e.Name.Literal)
		if !ok {
			return ir.Value{}, fmt.Errorf("%w: %q", ErrVariableNotFound, e.Name.Literal)
		}
		return t.b.CreateLoad(addr), nil
	case *parser.AssignExpr:
		value, err := t.lowerExpr(e.Value)
		if err != nil {
			return ir.Value{}, err
		}
		addr, ok := t.resolve(e.Name.Literal)
		if !ok {
			return ir.Value{}, fmt.Errorf("%w: %q", ErrVariableNotFound, e.Name.Literal)
		}
		t.b.CreateStore(addr, value)
		return value, nil
	case *parser.GroupingExpr:
		return t.lowerExpr(e.Expr)
	case *parser.UnaryExpr:
		return t.lowerUnary(e)
	case *parser.BinaryExpr:
		return t.lowerBinary(e)
	case *parser.LogicalExpr:
		return t.lowerLogical(e)
	case *parser.CallExpr:
		return t.lowerCall(e)
	default:
		return ir.Value{}, fmt.Errorf("cannot lower expression %T", expr)
	}
}

func (t *Translator) lowerUnary(e *parser.UnaryExpr) (ir.Value, error) {
	operand, err := t.lowerExpr(e.Right)
	if err != nil {
		return ir.Value{}, err
	}
	switch e.Op.Type {
	case lexer.TokenMinus:
		return t.b.CreateNeg(operand), nil
	case lexer.TokenNot:
		// !x is 1 when x compares equal to zero.
		return t.b.CreateCmp(ir.CmpUEQ, operand, ir.ConstFloat(0)), nil
	default:
		return ir.Value{}, fmt.Errorf("%w: %q", ErrUnsupportedOperator, e.Op.Literal)
	}
}

func (t *Translator) lowerBinary(e *parser.BinaryExpr) (ir.Value, error) {
	lhs, err := t.lowerExpr(e.Left)
	if err != nil {
		return ir.Value{}, err
	}
	rhs, err := t.lowerExpr(e.Right)
	if err != nil {
		return ir.Value{}, err
	}

	switch e.Op.Type {
	case lexer.TokenPlus:
		return t.b.CreateBinOp(ir.OpAdd, lhs, rhs), nil
	case lexer.TokenMinus:
		return t.b.CreateBinOp(ir.OpSub, lhs, rhs), nil
	case lexer.TokenMul:
		return t.b.CreateBinOp(ir.OpMul, lhs, rhs), nil
	case lexer.TokenDiv:
		return t.b.CreateBinOp(ir.OpDiv, lhs, rhs), nil
	case lexer.TokenLt:
		return t.b.CreateCmp(ir.CmpULT, lhs, rhs), nil
	case lexer.TokenLe:
		return t.b.CreateCmp(ir.CmpULE, lhs, rhs), nil
	case lexer.TokenGt:
		return t.b.CreateCmp(ir.CmpUGT, lhs, rhs), nil
	case lexer.TokenGe:
		return t.b.CreateCmp(ir.CmpUGE, lhs, rhs), nil
	case lexer.TokenEq:
		return t.b.CreateCmp(ir.CmpUEQ, lhs, rhs), nil
	case lexer.TokenNe:
		return t.b.CreateCmp(ir.CmpUNE, lhs, rhs), nil
	default:
		return ir.Value{}, fmt.Errorf("%w: %q", ErrUnsupportedOperator, e.Op.Literal)
	}
}

// lowerLogical lowers a short-circuiting and/or: the right operand is only
// evaluated when the left does not decide the result, and the boolean
// outcomes meet in a merge phi.
func (t *Translator) lowerLogical(e *parser.LogicalExpr) (ir.Value, error) {
	lhs, err := t.lowerExpr(e.Left)
	if err != nil {
		return ir.Value{}, err
	}
	lhsBool := t.b.CreateCmp(ir.CmpUNE, lhs, ir.ConstFloat(0))
	short := t.b.InsertBlock()

	var rhsBB, mergeBB *ir.BasicBlock
	switch e.Op.Type {
	case lexer.TokenOr:
		rhsBB = t.b.NewBlock("or.rhs")
		mergeBB = t.b.NewBlock("or.merge")
		// A truthy left side decides `or` without evaluating the right.
		t.b.CreateCondBr(lhsBool, mergeBB, rhsBB)
	case lexer.TokenAnd:
		rhsBB = t.b.NewBlock("and.rhs")
		mergeBB = t.b.NewBlock("and.merge")
		t.b.CreateCondBr(lhsBool, rhsBB, mergeBB)
	default:
		return ir.Value{}, fmt.Errorf("%w: %q", ErrUnsupportedOperator, e.Op.Literal)
	}

	t.b.SetInsertPoint(rhsBB)
	rhs, err := t.lowerExpr(e.Right)
	if err != nil {
		return ir.Value{}, err
	}
	rhsBool := t.b.CreateCmp(ir.CmpUNE, rhs, ir.ConstFloat(0))
	rhsExit := t.b.InsertBlock()
	t.b.CreateBr(mergeBB)

	t.b.SetInsertPoint(mergeBB)
	return t.b.CreatePhi([]ir.Incoming{
		{Val: lhsBool, Block: short.Name},
		{Val: rhsBool, Block: rhsExit.Name},
	}), nil
}

func (t *Translator) lowerCall(e *parser.CallExpr) (ir.Value, error) {
	variable, ok := e.Callee.(*parser.VariableExpr)
	if !ok {
		return ir.Value{}, fmt.Errorf("%w: %s", ErrInvalidCallee, e.Callee)
	}
	name := variable.Name.Literal

	callee := t.module.Lookup(name)
	if callee == nil {
		return ir.Value{}, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	if len(e.Args) != len(callee.Params) {
		return ir.Value{}, fmt.Errorf("%w: %q expects %d arguments, got %d",
			ErrArityMismatch, name, len(callee.Params), len(e.Args))
	}

	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := t.lowerExpr(a)
		if err != nil {
			return ir.Value{}, err
		}
		args[i] = v
	}
	return t.b.CreateCall(name, args), nil
}

// ====== Variable environment ======

func (t *Translator) pushScope() {
	t.scopes = append(t.scopes, make(map[string]ir.Value))
}

func (t *Translator) popScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
}

func (t *Translator) define(name string, addr ir.Value) {
	t.scopes[len(t.scopes)-1][name] = addr
}

// resolve walks the scope stack innermost-out for a storage slot bound to
// name.
func (t *Translator) resolve(name string) (ir.Value, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if addr, ok := t.scopes[i][name]; ok {
			return addr, true
		}
	}
	return ir.Value{}, false
}
