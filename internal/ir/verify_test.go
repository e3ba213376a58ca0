package ir

import (
	"strings"
	"testing"
)

// buildMax constructs max(a, b) by hand:
//
//	entry:  %t0 = fcmp.ugt %a, %b ; brcond %t0, then, else
//	then:   br merge
//	else:   br merge
//	merge:  %t1 = phi [%a, then], [%b, else] ; ret %t1
func buildMax() *Function {
	fn := &Function{Name: "max", Params: []string{"a", "b"}}
	b := NewBuilder(fn)

	entry := b.NewBlock("entry")
	b.SetInsertPoint(entry)
	cond := b.CreateCmp(CmpUGT, Ref("%a"), Ref("%b"))

	then := b.NewBlock("then")
	elseBB := b.NewBlock("else")
	merge := b.NewBlock("merge")
	b.CreateCondBr(cond, then, elseBB)

	b.SetInsertPoint(then)
	b.CreateBr(merge)
	b.SetInsertPoint(elseBB)
	b.CreateBr(merge)

	b.SetInsertPoint(merge)
	phi := b.CreatePhi([]Incoming{
		{Val: Ref("%a"), Block: then.Name},
		{Val: Ref("%b"), Block: elseBB.Name},
	})
	b.CreateRet(phi)
	return fn
}

func TestVerifyWellFormed(t *testing.T) {
	fn := buildMax()
	if err := fn.Verify(); err != nil {
		t.Fatalf("expected valid function, got %v", err)
	}
}

func TestVerifyIdempotent(t *testing.T) {
	fn := buildMax()
	before := fn.String()
	if err := fn.Verify(); err != nil {
		t.Fatal(err)
	}
	if err := fn.Verify(); err != nil {
		t.Fatalf("second verification failed: %v", err)
	}
	if after := fn.String(); after != before {
		t.Fatalf("verification mutated the function:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestVerifyExternalDeclaration(t *testing.T) {
	fn := &Function{Name: "sin", Params: []string{"x"}}
	if err := fn.Verify(); err != nil {
		t.Fatalf("external declaration must verify, got %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(fn *Function)
		message string
	}{
		{
			name: "missing terminator",
			mutate: func(fn *Function) {
				merge := fn.Block("merge")
				merge.Instr = merge.Instr[:len(merge.Instr)-1]
			},
			message: "does not end in a terminator",
		},
		{
			name: "terminator before end",
			mutate: func(fn *Function) {
				then := fn.Block("then")
				then.Instr = append(then.Instr, Br{Target: "merge"})
			},
			message: "terminator before end",
		},
		{
			name: "phi incoming count mismatch",
			mutate: func(fn *Function) {
				merge := fn.Block("merge")
				phi := merge.Instr[0].(Phi)
				phi.Incoming = phi.Incoming[:1]
				merge.Instr[0] = phi
			},
			message: "incoming for",
		},
		{
			name: "phi lists non-predecessor",
			mutate: func(fn *Function) {
				merge := fn.Block("merge")
				phi := merge.Instr[0].(Phi)
				phi.Incoming[1].Block = "entry"
				merge.Instr[0] = phi
			},
			message: "non-predecessor",
		},
		{
			name: "phi after non-phi",
			mutate: func(fn *Function) {
				merge := fn.Block("merge")
				phi := merge.Instr[0]
				cmp := Cmp{Dst: "%t9", Pred: CmpUEQ, LHS: Ref("%a"), RHS: Ref("%b")}
				merge.Instr = append([]Instr{cmp, phi}, merge.Instr[1:]...)
			},
			message: "phi after non-phi",
		},
		{
			name: "use of undefined value",
			mutate: func(fn *Function) {
				merge := fn.Block("merge")
				ret := merge.Instr[len(merge.Instr)-1].(Ret)
				*ret.Val = Ref("%nope")
			},
			message: "undefined value",
		},
		{
			name: "duplicate definition",
			mutate: func(fn *Function) {
				entry := fn.Block("entry")
				dup := Cmp{Dst: "%t0", Pred: CmpUEQ, LHS: Ref("%a"), RHS: Ref("%b")}
				entry.Instr = append([]Instr{dup}, entry.Instr...)
			},
			message: "defined twice",
		},
		{
			name: "branch to unknown block",
			mutate: func(fn *Function) {
				then := fn.Block("then")
				then.Instr[len(then.Instr)-1] = Br{Target: "nowhere"}
			},
			message: "unknown block",
		},
		{
			name: "use not dominated",
			mutate: func(fn *Function) {
				// Define a value in `then` and use it in `else`.
				then := fn.Block("then")
				def := Cmp{Dst: "%t7", Pred: CmpUEQ, LHS: Ref("%a"), RHS: Ref("%b")}
				then.Instr = append([]Instr{def}, then.Instr...)
				elseBB := fn.Block("else")
				use := Cmp{Dst: "%t8", Pred: CmpUEQ, LHS: Ref("%t7"), RHS: Ref("%b")}
				elseBB.Instr = append([]Instr{use}, elseBB.Instr...)
			},
			message: "not dominated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := buildMax()
			tt.mutate(fn)
			err := fn.Verify()
			if err == nil {
				t.Fatalf("expected verification failure\n%s", fn)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected error containing %q, got %v", tt.message, err)
			}
		})
	}
}

func TestPredecessorsDeduplicated(t *testing.T) {
	// A conditional branch with both edges to the same block is a single
	// predecessor: the phi must list it once.
	fn := &Function{Name: "f", Params: []string{"x"}}
	b := NewBuilder(fn)
	entry := b.NewBlock("entry")
	merge := b.NewBlock("merge")
	b.SetInsertPoint(entry)
	b.CreateCondBr(Ref("%x"), merge, merge)
	b.SetInsertPoint(merge)
	phi := b.CreatePhi([]Incoming{{Val: Ref("%x"), Block: "entry"}})
	b.CreateRet(phi)

	if err := fn.Verify(); err != nil {
		t.Fatalf("expected valid function, got %v", err)
	}
}
