// Package ir defines the control-flow-graph intermediate representation
// produced by lowering and handed to the code generation backend.
// Every value is a float64 scalar; booleans are 0/1.
package ir

import (
	"fmt"
	"strings"
)

// Module is a compilation unit: a named collection of functions.
type Module struct {
	Name      string
	Functions []*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// Lookup returns the function with the given name, or nil.
func (m *Module) Lookup(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Add registers a function in the module. Registering a name twice is an
// error; the caller decides whether that is a redefinition or a clash.
func (m *Module) Add(f *Function) error {
	if m.Lookup(f.Name) != nil {
		return fmt.Errorf("function %q already defined in module %q", f.Name, m.Name)
	}
	m.Functions = append(m.Functions, f)
	return nil
}

// Remove discards the function with the given name, if present. It is used
// to drop partially built functions whose verification failed.
func (m *Module) Remove(name string) {
	for i, f := range m.Functions {
		if f.Name == name {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}

// Function is a connected graph of basic blocks with a single entry block.
// A function with no blocks is an external declaration: signature only.
type Function struct {
	Name   string
	Params []string // parameter names; referenced as %name in instructions
	Blocks []*BasicBlock
}

// External reports whether the function is a declaration without a body.
func (f *Function) External() bool { return len(f.Blocks) == 0 }

// Entry returns the entry basic block, or nil for external declarations.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Block returns the basic block with the given name, or nil.
func (f *Function) Block(name string) *BasicBlock {
	for _, bb := range f.Blocks {
		if bb.Name == name {
			return bb
		}
	}
	return nil
}

// BasicBlock is an ordered instruction list ending in exactly one
// terminator: there is no fall-through between blocks.
type BasicBlock struct {
	Name  string
	Instr []Instr
}

// Terminator returns the block's final instruction when it is a
// terminator, or nil for an unterminated (still under construction) block.
func (bb *BasicBlock) Terminator() Instr {
	if len(bb.Instr) == 0 {
		return nil
	}
	last := bb.Instr[len(bb.Instr)-1]
	if IsTerminator(last) {
		return last
	}
	return nil
}

// Terminated reports whether the block already ends in a terminator.
func (bb *BasicBlock) Terminated() bool { return bb.Terminator() != nil }

// ValueKind classifies the value category.
type ValueKind int

const (
	ValInvalid ValueKind = iota
	ValConst
	ValRef
)

// Value is a float constant or a reference to an instruction result,
// parameter, or storage slot address.
type Value struct {
	Kind  ValueKind
	Float float64
	Ref   string
}

// ConstFloat builds a constant value.
func ConstFloat(f float64) Value { return Value{Kind: ValConst, Float: f} }

// Ref builds a reference value.
func Ref(name string) Value { return Value{Kind: ValRef, Ref: name} }

func (v Value) String() string {
	switch v.Kind {
	case ValConst:
		return fmt.Sprintf("%g", v.Float)
	case ValRef:
		if v.Ref == "" {
			return "%ref?"
		}
		return v.Ref
	default:
		return "<invalid>"
	}
}

// Instr is implemented by all IR instructions.
type Instr interface{ isInstr() }

// BinOpKind enumerates float arithmetic operations.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
)

func (k BinOpKind) String() string {
	switch k {
	case OpAdd:
		return "fadd"
	case OpSub:
		return "fsub"
	case OpMul:
		return "fmul"
	case OpDiv:
		return "fdiv"
	default:
		return "binop?"
	}
}

// BinOp is a binary float arithmetic operation.
type BinOp struct {
	Dst string
	Op  BinOpKind
	LHS Value
	RHS Value
}

// UnOpKind enumerates unary operations.
type UnOpKind int

const (
	OpNeg UnOpKind = iota
)

func (k UnOpKind) String() string {
	if k == OpNeg {
		return "fneg"
	}
	return "unop?"
}

// UnOp is a unary float operation.
type UnOp struct {
	Dst     string
	Op      UnOpKind
	Operand Value
}

// CmpPred enumerates unordered float compare predicates: an unordered
// predicate is satisfied when either operand is NaN.
type CmpPred int

const (
	CmpUEQ CmpPred = iota
	CmpUNE
	CmpULT
	CmpULE
	CmpUGT
	CmpUGE
)

func (p CmpPred) String() string {
	switch p {
	case CmpUEQ:
		return "ueq"
	case CmpUNE:
		return "une"
	case CmpULT:
		return "ult"
	case CmpULE:
		return "ule"
	case CmpUGT:
		return "ugt"
	case CmpUGE:
		return "uge"
	default:
		return "cmp?"
	}
}

// Cmp compares two floats and produces 0 or 1 as a float value.
type Cmp struct {
	Dst  string
	Pred CmpPred
	LHS  Value
	RHS  Value
}

// Incoming is one block-tagged value of a phi.
type Incoming struct {
	Val   Value
	Block string
}

// Phi selects among block-tagged incoming values the one tagged with the
// predecessor block that transferred control. A phi must list exactly one
// incoming pair per actual predecessor of its owning block and may only
// appear in a block's leading run of instructions.
type Phi struct {
	Dst      string
	Incoming []Incoming
}

// Call invokes a named function in the same module.
type Call struct {
	Dst    string
	Callee string
	Args   []Value
}

// Alloca allocates a storage slot for a mutable local and names its
// address. Slots are owned by the enclosing function and never outlive it.
type Alloca struct {
	Dst  string // reference name for the slot address (e.g. %x.addr)
	Name string // source-level name, for readability
}

// Load loads the current value of a storage slot.
type Load struct {
	Dst  string
	Addr Value // must be a reference to an alloca address
}

// Store writes a value into a storage slot.
type Store struct {
	Addr Value
	Val  Value
}

// Br branches unconditionally to a target block.
type Br struct{ Target string }

// CondBr branches on a value treated as boolean (0=false, nonzero=true).
type CondBr struct {
	Cond  Value
	True  string
	False string
}

// Ret returns from the current function with an optional value.
type Ret struct{ Val *Value }

func (BinOp) isInstr()  {}
func (UnOp) isInstr()   {}
func (Cmp) isInstr()    {}
func (Phi) isInstr()    {}
func (Call) isInstr()   {}
func (Alloca) isInstr() {}
func (Load) isInstr()   {}
func (Store) isInstr()  {}
func (Br) isInstr()     {}
func (CondBr) isInstr() {}
func (Ret) isInstr()    {}

// IsTerminator reports whether the instruction ends a basic block.
func IsTerminator(in Instr) bool {
	switch in.(type) {
	case Br, CondBr, Ret:
		return true
	default:
		return false
	}
}

// ====== Textual form ======

func (m *Module) String() string {
	if m == nil {
		return "<nil-module>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", m.Name)
	for _, f := range m.Functions {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (f *Function) String() string {
	if f == nil {
		return "<nil-func>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("%" + p)
	}
	b.WriteString(")")
	if f.External() {
		b.WriteString(" external\n")
		return b.String()
	}
	b.WriteString(" {\n")
	for _, bb := range f.Blocks {
		b.WriteString(bb.String())
	}
	b.WriteString("}\n")
	return b.String()
}

func (bb *BasicBlock) String() string {
	if bb == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", bb.Name)
	for _, in := range bb.Instr {
		b.WriteString("  ")
		if s, ok := any(in).(fmt.Stringer); ok {
			b.WriteString(s.String())
		} else {
			b.WriteString("<instr>")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (i BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.LHS, i.RHS)
}

func (i UnOp) String() string {
	return fmt.Sprintf("%s = %s %s", i.Dst, i.Op, i.Operand)
}

func (i Cmp) String() string {
	return fmt.Sprintf("%s = fcmp.%s %s, %s", i.Dst, i.Pred, i.LHS, i.RHS)
}

func (i Phi) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = phi ", i.Dst)
	for idx, inc := range i.Incoming {
		if idx > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[%s, %s]", inc.Val, inc.Block)
	}
	return b.String()
}

func (i Call) String() string {
	var b strings.Builder
	if i.Dst != "" {
		fmt.Fprintf(&b, "%s = ", i.Dst)
	}
	fmt.Fprintf(&b, "call %s(", i.Callee)
	for idx, a := range i.Args {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(")")
	return b.String()
}

func (i Alloca) String() string {
	if i.Name != "" {
		return fmt.Sprintf("%s = alloca %s", i.Dst, i.Name)
	}
	return fmt.Sprintf("%s = alloca", i.Dst)
}

func (i Load) String() string {
	return fmt.Sprintf("%s = load %s", i.Dst, i.Addr)
}

func (i Store) String() string {
	return fmt.Sprintf("store %s, %s", i.Addr, i.Val)
}

func (i Br) String() string { return fmt.Sprintf("br %s", i.Target) }

func (i CondBr) String() string {
	return fmt.Sprintf("brcond %s, %s, %s", i.Cond, i.True, i.False)
}

func (i Ret) String() string {
	if i.Val == nil {
		return "ret"
	}
	return fmt.Sprintf("ret %s", i.Val)
}
