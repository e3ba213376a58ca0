package ir

import "fmt"

// VerifyError reports a structural defect found in a function.
type VerifyError struct {
	Func    string
	Block   string
	Message string
}

func (e *VerifyError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("func %s, block %s: %s", e.Func, e.Block, e.Message)
	}
	return fmt.Sprintf("func %s: %s", e.Func, e.Message)
}

// Verify checks a function for structural well-formedness: unique block
// and value names, exactly one terminator per block placed last, existing
// branch targets, phis only in a block's leading run with incoming pairs
// in 1:1 correspondence with the block's actual predecessors, and every
// use dominated by its definition. Verify never mutates the function, so
// verifying an already-verified function again succeeds unchanged.
func (f *Function) Verify() error {
	if f.External() {
		return nil
	}

	blocks := make(map[string]*BasicBlock, len(f.Blocks))
	for _, bb := range f.Blocks {
		if bb.Name == "" {
			return &VerifyError{Func: f.Name, Message: "unnamed basic block"}
		}
		if _, dup := blocks[bb.Name]; dup {
			return &VerifyError{Func: f.Name, Block: bb.Name, Message: "duplicate block name"}
		}
		blocks[bb.Name] = bb
	}

	// Definitions: parameters, then every instruction destination.
	type defSite struct {
		block string
		index int
	}
	defs := make(map[string]defSite)
	for _, p := range f.Params {
		ref := "%" + p
		if _, dup := defs[ref]; dup {
			return &VerifyError{Func: f.Name, Message: fmt.Sprintf("duplicate parameter %s", ref)}
		}
		defs[ref] = defSite{block: f.Entry().Name, index: -1}
	}
	for _, bb := range f.Blocks {
		for i, in := range bb.Instr {
			dst := instrDst(in)
			if dst == "" {
				continue
			}
			if _, dup := defs[dst]; dup {
				return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("value %s defined twice", dst)}
			}
			defs[dst] = defSite{block: bb.Name, index: i}
		}
	}

	// Terminator and phi placement, branch targets.
	for _, bb := range f.Blocks {
		if len(bb.Instr) == 0 {
			return &VerifyError{Func: f.Name, Block: bb.Name, Message: "empty block has no terminator"}
		}
		for i, in := range bb.Instr {
			if IsTerminator(in) && i != len(bb.Instr)-1 {
				return &VerifyError{Func: f.Name, Block: bb.Name, Message: "terminator before end of block"}
			}
			if _, isPhi := in.(Phi); isPhi {
				if i > 0 {
					if _, prevPhi := bb.Instr[i-1].(Phi); !prevPhi {
						return &VerifyError{Func: f.Name, Block: bb.Name, Message: "phi after non-phi instruction"}
					}
				}
			}
		}
		last := bb.Instr[len(bb.Instr)-1]
		if !IsTerminator(last) {
			return &VerifyError{Func: f.Name, Block: bb.Name, Message: "block does not end in a terminator"}
		}
		for _, target := range branchTargets(last) {
			if _, ok := blocks[target]; !ok {
				return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("branch to unknown block %s", target)}
			}
		}
	}

	preds := f.predecessors()

	// Phi incoming sets must match actual predecessor edges exactly.
	for _, bb := range f.Blocks {
		for _, in := range bb.Instr {
			phi, ok := in.(Phi)
			if !ok {
				continue
			}
			want := make(map[string]bool, len(preds[bb.Name]))
			for _, p := range preds[bb.Name] {
				want[p] = true
			}
			seen := make(map[string]bool, len(phi.Incoming))
			for _, inc := range phi.Incoming {
				if seen[inc.Block] {
					return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("phi %s lists block %s twice", phi.Dst, inc.Block)}
				}
				seen[inc.Block] = true
				if !want[inc.Block] {
					return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("phi %s lists non-predecessor %s", phi.Dst, inc.Block)}
				}
			}
			if len(seen) != len(want) {
				return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("phi %s has %d incoming for %d predecessors", phi.Dst, len(seen), len(want))}
			}
		}
	}

	reachable := f.reachable()
	dom := f.dominators(preds, reachable)

	dominates := func(def defSite, useBlock string, useIndex int, ofPhi bool) bool {
		if def.block == useBlock {
			if ofPhi {
				// A phi draws the value along the predecessor edge, so any
				// definition in the predecessor block reaches it.
				return true
			}
			return def.index < useIndex
		}
		return dom[useBlock][def.block]
	}

	for _, bb := range f.Blocks {
		if !reachable[bb.Name] {
			// Dominance is vacuous off the reachable graph; names were
			// already checked above.
			continue
		}
		for i, in := range bb.Instr {
			if phi, ok := in.(Phi); ok {
				for _, inc := range phi.Incoming {
					if inc.Val.Kind != ValRef {
						continue
					}
					def, ok := defs[inc.Val.Ref]
					if !ok {
						return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("use of undefined value %s", inc.Val.Ref)}
					}
					if !reachable[inc.Block] {
						continue
					}
					if !dominates(def, inc.Block, len(blocks[inc.Block].Instr), true) {
						return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("phi value %s not dominated by its definition on edge from %s", inc.Val.Ref, inc.Block)}
					}
				}
				continue
			}
			for _, use := range instrUses(in) {
				if use.Kind != ValRef {
					continue
				}
				def, ok := defs[use.Ref]
				if !ok {
					return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("use of undefined value %s", use.Ref)}
				}
				if !dominates(def, bb.Name, i, false) {
					return &VerifyError{Func: f.Name, Block: bb.Name, Message: fmt.Sprintf("use of %s not dominated by its definition", use.Ref)}
				}
			}
		}
	}

	return nil
}

// Verify checks every function in the module.
func (m *Module) Verify() error {
	for _, f := range m.Functions {
		if err := f.Verify(); err != nil {
			return err
		}
	}
	return nil
}

// predecessors maps each block name to the names of blocks that branch to
// it. Multiple edges from the same block are recorded once.
func (f *Function) predecessors() map[string][]string {
	preds := make(map[string][]string, len(f.Blocks))
	for _, bb := range f.Blocks {
		t := bb.Terminator()
		if t == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, target := range branchTargets(t) {
			if seen[target] {
				continue
			}
			seen[target] = true
			preds[target] = append(preds[target], bb.Name)
		}
	}
	return preds
}

// reachable returns the set of block names reachable from the entry block.
func (f *Function) reachable() map[string]bool {
	seen := make(map[string]bool, len(f.Blocks))
	if f.External() {
		return seen
	}
	var walk func(name string)
	walk = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		bb := f.Block(name)
		if bb == nil {
			return
		}
		if t := bb.Terminator(); t != nil {
			for _, target := range branchTargets(t) {
				walk(target)
			}
		}
	}
	walk(f.Entry().Name)
	return seen
}

// dominators computes, for each reachable block, the set of blocks that
// dominate it, by the standard iterative data-flow algorithm.
func (f *Function) dominators(preds map[string][]string, reachable map[string]bool) map[string]map[string]bool {
	dom := make(map[string]map[string]bool, len(f.Blocks))
	if f.External() {
		return dom
	}
	entry := f.Entry().Name

	all := make(map[string]bool, len(f.Blocks))
	for _, bb := range f.Blocks {
		if reachable[bb.Name] {
			all[bb.Name] = true
		}
	}

	for name := range all {
		if name == entry {
			dom[name] = map[string]bool{entry: true}
			continue
		}
		set := make(map[string]bool, len(all))
		for n := range all {
			set[n] = true
		}
		dom[name] = set
	}

	for changed := true; changed; {
		changed = false
		for name := range all {
			if name == entry {
				continue
			}
			next := make(map[string]bool)
			first := true
			for _, p := range preds[name] {
				if !reachable[p] {
					continue
				}
				if first {
					for d := range dom[p] {
						next[d] = true
					}
					first = false
					continue
				}
				for d := range next {
					if !dom[p][d] {
						delete(next, d)
					}
				}
			}
			next[name] = true
			if len(next) != len(dom[name]) {
				dom[name] = next
				changed = true
				continue
			}
			for d := range next {
				if !dom[name][d] {
					dom[name] = next
					changed = true
					break
				}
			}
		}
	}
	return dom
}

// instrDst returns the value name an instruction defines, if any.
func instrDst(in Instr) string {
	switch v := in.(type) {
	case BinOp:
		return v.Dst
	case UnOp:
		return v.Dst
	case Cmp:
		return v.Dst
	case Phi:
		return v.Dst
	case Call:
		return v.Dst
	case Alloca:
		return v.Dst
	case Load:
		return v.Dst
	default:
		return ""
	}
}

// instrUses returns the values an instruction reads. Phi uses are handled
// separately because they are read along predecessor edges.
func instrUses(in Instr) []Value {
	switch v := in.(type) {
	case BinOp:
		return []Value{v.LHS, v.RHS}
	case UnOp:
		return []Value{v.Operand}
	case Cmp:
		return []Value{v.LHS, v.RHS}
	case Call:
		return v.Args
	case Load:
		return []Value{v.Addr}
	case Store:
		return []Value{v.Addr, v.Val}
	case CondBr:
		return []Value{v.Cond}
	case Ret:
		if v.Val != nil {
			return []Value{*v.Val}
		}
		return nil
	default:
		return nil
	}
}

// branchTargets returns the successor block names of a terminator.
func branchTargets(in Instr) []string {
	switch v := in.(type) {
	case Br:
		return []string{v.Target}
	case CondBr:
		return []string{v.True, v.False}
	default:
		return nil
	}
}
