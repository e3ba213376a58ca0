package ir

import "fmt"

// Builder appends instructions to a function under construction. It keeps
// an insertion block and hands out unique value and block names. Builders
// are not safe for concurrent use; one function is built at a time.
type Builder struct {
	fn     *Function
	cur    *BasicBlock
	nextID int
	blocks map[string]int // base name -> times used, for unique block names
}

// NewBuilder creates a builder for the given function.
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn, blocks: make(map[string]int)}
}

// Func returns the function being built.
func (b *Builder) Func() *Function { return b.fn }

// NewBlock appends a new basic block named after base. Names are
// unique-ified: the second "then" becomes "then.1" and so on.
func (b *Builder) NewBlock(base string) *BasicBlock {
	name := base
	if n := b.blocks[base]; n > 0 {
		name = fmt.Sprintf("%s.%d", base, n)
	}
	b.blocks[base]++
	bb := &BasicBlock{Name: name}
	b.fn.Blocks = append(b.fn.Blocks, bb)
	return bb
}

// SetInsertPoint positions the builder at the end of the given block.
func (b *Builder) SetInsertPoint(bb *BasicBlock) { b.cur = bb }

// InsertBlock returns the block instructions are currently appended to.
func (b *Builder) InsertBlock() *BasicBlock { return b.cur }

func (b *Builder) emit(in Instr) {
	b.cur.Instr = append(b.cur.Instr, in)
}

func (b *Builder) newRef() string {
	ref := fmt.Sprintf("%%t%d", b.nextID)
	b.nextID++
	return ref
}

// CreateEntryAlloca allocates a storage slot for name in the function's
// entry block, ahead of any non-alloca instruction, and returns the slot's
// address. Keeping every slot in the entry block means the slot dominates
// all its uses regardless of where the declaration appeared.
func (b *Builder) CreateEntryAlloca(name string) Value {
	entry := b.fn.Entry()
	ref := fmt.Sprintf("%%%s.addr", name)
	// Disambiguate shadowed names.
	n := 0
	for _, in := range entry.Instr {
		if a, ok := in.(Alloca); ok && a.Name == name {
			n++
		}
	}
	if n > 0 {
		ref = fmt.Sprintf("%%%s.addr.%d", name, n)
	}

	pos := 0
	for pos < len(entry.Instr) {
		if _, ok := entry.Instr[pos].(Alloca); !ok {
			break
		}
		pos++
	}
	alloca := Alloca{Dst: ref, Name: name}
	entry.Instr = append(entry.Instr[:pos], append([]Instr{alloca}, entry.Instr[pos:]...)...)
	return Ref(ref)
}

// CreateBinOp emits a float arithmetic instruction and returns its result.
func (b *Builder) CreateBinOp(op BinOpKind, lhs, rhs Value) Value {
	ref := b.newRef()
	b.emit(BinOp{Dst: ref, Op: op, LHS: lhs, RHS: rhs})
	return Ref(ref)
}

// CreateNeg emits a float negation and returns its result.
func (b *Builder) CreateNeg(operand Value) Value {
	ref := b.newRef()
	b.emit(UnOp{Dst: ref, Op: OpNeg, Operand: operand})
	return Ref(ref)
}

// CreateCmp emits a float comparison producing 0/1 and returns its result.
func (b *Builder) CreateCmp(pred CmpPred, lhs, rhs Value) Value {
	ref := b.newRef()
	b.emit(Cmp{Dst: ref, Pred: pred, LHS: lhs, RHS: rhs})
	return Ref(ref)
}

// CreatePhi emits a phi with the given incoming pairs and returns its
// result. Phis must be emitted before any non-phi instruction of a block.
func (b *Builder) CreatePhi(incoming []Incoming) Value {
	ref := b.newRef()
	b.emit(Phi{Dst: ref, Incoming: incoming})
	return Ref(ref)
}

// CreateCall emits a call to a named function and returns its result.
func (b *Builder) CreateCall(callee string, args []Value) Value {
	ref := b.newRef()
	b.emit(Call{Dst: ref, Callee: callee, Args: args})
	return Ref(ref)
}

// CreateLoad emits a load from a slot address and returns the loaded value.
func (b *Builder) CreateLoad(addr Value) Value {
	ref := b.newRef()
	b.emit(Load{Dst: ref, Addr: addr})
	return Ref(ref)
}

// CreateStore emits a store of val into a slot address.
func (b *Builder) CreateStore(addr, val Value) {
	b.emit(Store{Addr: addr, Val: val})
}

// CreateBr terminates the insertion block with an unconditional branch.
func (b *Builder) CreateBr(target *BasicBlock) {
	b.emit(Br{Target: target.Name})
}

// CreateCondBr terminates the insertion block with a conditional branch.
func (b *Builder) CreateCondBr(cond Value, ifTrue, ifFalse *BasicBlock) {
	b.emit(CondBr{Cond: cond, True: ifTrue.Name, False: ifFalse.Name})
}

// CreateRet terminates the insertion block with a return.
func (b *Builder) CreateRet(val Value) {
	v := val
	b.emit(Ret{Val: &v})
}
