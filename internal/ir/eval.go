package ir

import (
	"errors"
	"fmt"
	"math"
)

// Evaluation limits. The evaluator is the in-process stand-in for the
// sandboxed runtime: runaway programs hit a bounded step or depth budget
// instead of hanging the host.
const (
	maxEvalSteps = 1 << 22
	maxCallDepth = 1024
)

// ErrEvalBudget is returned when execution exceeds the step budget.
var ErrEvalBudget = errors.New("execution budget exceeded")

// ErrCallDepth is returned when the call stack exceeds the depth budget.
var ErrCallDepth = errors.New("call depth exceeded")

// Eval executes a function of the module on the given arguments and
// returns its result. The module must already have been verified;
// evaluation still fails cleanly, never panics, on malformed input.
func (m *Module) Eval(name string, args ...float64) (float64, error) {
	ev := &evaluator{module: m, steps: maxEvalSteps}
	return ev.call(name, args, 0)
}

type evaluator struct {
	module *Module
	steps  int
}

type frame struct {
	regs  map[string]float64 // parameters and instruction results
	slots map[string]float64 // alloca address -> stored value
}

func (ev *evaluator) call(name string, args []float64, depth int) (float64, error) {
	if depth > maxCallDepth {
		return 0, ErrCallDepth
	}
	fn := ev.module.Lookup(name)
	if fn == nil {
		return 0, fmt.Errorf("call to unknown function %q", name)
	}
	if fn.External() {
		return 0, fmt.Errorf("call to external function %q", name)
	}
	if len(args) != len(fn.Params) {
		return 0, fmt.Errorf("function %q expects %d arguments, got %d", name, len(fn.Params), len(args))
	}

	fr := &frame{
		regs:  make(map[string]float64, len(fn.Params)+16),
		slots: make(map[string]float64, 8),
	}
	for i, p := range fn.Params {
		fr.regs["%"+p] = args[i]
	}

	cur := fn.Entry()
	prev := ""
	for {
		next, val, done, err := ev.execBlock(fn, cur, prev, fr, depth)
		if err != nil {
			return 0, err
		}
		if done {
			return val, nil
		}
		prev = cur.Name
		cur = fn.Block(next)
		if cur == nil {
			return 0, fmt.Errorf("branch to unknown block %q in %q", next, name)
		}
	}
}

// execBlock runs one basic block to its terminator. It returns either the
// name of the successor block or, for a return, the final value.
func (ev *evaluator) execBlock(fn *Function, bb *BasicBlock, prev string, fr *frame, depth int) (next string, ret float64, done bool, err error) {
	for _, in := range bb.Instr {
		ev.steps--
		if ev.steps < 0 {
			return "", 0, false, ErrEvalBudget
		}

		switch v := in.(type) {
		case Alloca:
			fr.slots[v.Dst] = 0
		case Store:
			if v.Addr.Kind != ValRef {
				return "", 0, false, fmt.Errorf("store to non-address %s", v.Addr)
			}
			val, err := fr.value(v.Val)
			if err != nil {
				return "", 0, false, err
			}
			fr.slots[v.Addr.Ref] = val
		case Load:
			if v.Addr.Kind != ValRef {
				return "", 0, false, fmt.Errorf("load from non-address %s", v.Addr)
			}
			val, ok := fr.slots[v.Addr.Ref]
			if !ok {
				return "", 0, false, fmt.Errorf("load from unknown slot %s", v.Addr.Ref)
			}
			fr.regs[v.Dst] = val
		case BinOp:
			lhs, err := fr.value(v.LHS)
			if err != nil {
				return "", 0, false, err
			}
			rhs, err := fr.value(v.RHS)
			if err != nil {
				return "", 0, false, err
			}
			fr.regs[v.Dst] = evalBinOp(v.Op, lhs, rhs)
		case UnOp:
			operand, err := fr.value(v.Operand)
			if err != nil {
				return "", 0, false, err
			}
			fr.regs[v.Dst] = -operand
		case Cmp:
			lhs, err := fr.value(v.LHS)
			if err != nil {
				return "", 0, false, err
			}
			rhs, err := fr.value(v.RHS)
			if err != nil {
				return "", 0, false, err
			}
			if evalCmp(v.Pred, lhs, rhs) {
				fr.regs[v.Dst] = 1
			} else {
				fr.regs[v.Dst] = 0
			}
		case Phi:
			selected := false
			for _, inc := range v.Incoming {
				if inc.Block != prev {
					continue
				}
				val, err := fr.value(inc.Val)
				if err != nil {
					return "", 0, false, err
				}
				fr.regs[v.Dst] = val
				selected = true
				break
			}
			if !selected {
				return "", 0, false, fmt.Errorf("phi %s has no incoming for predecessor %q", v.Dst, prev)
			}
		case Call:
			args := make([]float64, len(v.Args))
			for i, a := range v.Args {
				val, err := fr.value(a)
				if err != nil {
					return "", 0, false, err
				}
				args[i] = val
			}
			result, err := ev.call(v.Callee, args, depth+1)
			if err != nil {
				return "", 0, false, err
			}
			fr.regs[v.Dst] = result
		case Br:
			return v.Target, 0, false, nil
		case CondBr:
			cond, err := fr.value(v.Cond)
			if err != nil {
				return "", 0, false, err
			}
			if cond != 0 {
				return v.True, 0, false, nil
			}
			return v.False, 0, false, nil
		case Ret:
			if v.Val == nil {
				return "", 0, true, nil
			}
			val, err := fr.value(*v.Val)
			if err != nil {
				return "", 0, false, err
			}
			return "", val, true, nil
		default:
			return "", 0, false, fmt.Errorf("cannot evaluate instruction %T", in)
		}
	}
	return "", 0, false, fmt.Errorf("block %q has no terminator", bb.Name)
}

func (fr *frame) value(v Value) (float64, error) {
	switch v.Kind {
	case ValConst:
		return v.Float, nil
	case ValRef:
		val, ok := fr.regs[v.Ref]
		if !ok {
			return 0, fmt.Errorf("read of undefined value %s", v.Ref)
		}
		return val, nil
	default:
		return 0, errors.New("read of invalid value")
	}
}

// evalBinOp follows IEEE float semantics; division by zero yields
// infinities or NaN, it does not trap.
func evalBinOp(op BinOpKind, lhs, rhs float64) float64 {
	switch op {
	case OpAdd:
		return lhs + rhs
	case OpSub:
		return lhs - rhs
	case OpMul:
		return lhs * rhs
	case OpDiv:
		return lhs / rhs
	default:
		return math.NaN()
	}
}

// evalCmp implements unordered predicates: true when either operand is NaN.
func evalCmp(pred CmpPred, lhs, rhs float64) bool {
	if math.IsNaN(lhs) || math.IsNaN(rhs) {
		return true
	}
	switch pred {
	case CmpUEQ:
		return lhs == rhs
	case CmpUNE:
		return lhs != rhs
	case CmpULT:
		return lhs < rhs
	case CmpULE:
		return lhs <= rhs
	case CmpUGT:
		return lhs > rhs
	case CmpUGE:
		return lhs >= rhs
	default:
		return false
	}
}
