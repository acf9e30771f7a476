package regalloc_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/brinkqiang2cpp/rapass/internal/arch/demo"
	"github.com/brinkqiang2cpp/rapass/internal/regalloc"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// TestStraightLineTwoRegsNoSpill covers spec.md §8 scenario 1: exactly
// as many live values as physical registers, so no spill or reload is
// ever needed.
func TestStraightLineTwoRegsNoSpill(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)
	v0 := b.Virt(0, regalloc.RegGroupInt, 8)
	v1 := b.Virt(1, regalloc.RegGroupInt, 8)
	b.Inst("op", demo.Def(v0, regalloc.NoPhys))
	b.Inst("op", demo.Use(v0, regalloc.NoPhys), demo.Def(v1, regalloc.NoPhys))
	b.Term("ret", demo.UseKill(v1, regalloc.NoPhys))
	b.Exit()

	program := demo.NewProgram(b, demo.WithRegFile(regalloc.RegGroupInt, demo.RegFile{
		Count: 2, Available: 0x3, ByteSize: 8,
	}))

	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Equal(t, result.SpillCount, 0)
	assert.Equal(t, result.LoadCount, 0)
}

// TestCalleeClobberAcrossCallForcesSpill covers spec.md §8 scenario 6:
// a value live across a call that clobbers every register in its group
// (all caller-saved) must be spilled before the call and reloaded
// after.
func TestCalleeClobberAcrossCallForcesSpill(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)
	v0 := b.Virt(0, regalloc.RegGroupInt, 8)
	scratch0 := b.Virt(100, regalloc.RegGroupInt, 8)
	scratch1 := b.Virt(101, regalloc.RegGroupInt, 8)

	b.Inst("op", demo.Def(v0, regalloc.NoPhys))
	// The call clobbers every physical register in the group; the
	// scratch defs model the clobber the way a real collaborator would
	// tie call-clobbered regs to the instruction (see DESIGN.md).
	b.Inst("call", demo.Def(scratch0, regalloc.PhysID(0)), demo.Def(scratch1, regalloc.PhysID(1)))
	b.Term("ret", demo.UseKill(v0, regalloc.NoPhys))
	b.Exit()

	program := demo.NewProgram(b, demo.WithRegFile(regalloc.RegGroupInt, demo.RegFile{
		Count: 2, Available: 0x3, CalleeSaved: 0, ByteSize: 8,
	}))

	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Check(t, result.SpillCount > 0)
	assert.Check(t, result.LoadCount > 0)
}

// TestStraightLineForcesSpill allocates more concurrently-live values
// than there are integer registers, forcing the local allocator to
// spill at least one of them.
func TestStraightLineForcesSpill(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)

	const n = 4
	vs := make([]*regalloc.VirtReg, n)
	for i := 0; i < n; i++ {
		vs[i] = b.Virt(int32(i), regalloc.RegGroupInt, 8)
		b.Inst("const", demo.Def(vs[i], regalloc.NoPhys))
	}
	// One instruction using every value at once: with only 2 registers
	// available, some must be reloaded from a spill slot.
	ops := make([]demo.Operand, n)
	for i, v := range vs {
		ops[i] = demo.UseKill(v, regalloc.NoPhys)
	}
	b.Term("sumall", ops...)
	b.Exit()

	program := demo.NewProgram(b, demo.WithRegFile(regalloc.RegGroupInt, demo.RegFile{
		Count: 2, Available: 0x3, ByteSize: 8,
	}))

	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Check(t, result.SpillCount > 0 || result.LoadCount > 0)
}

// TestDiamondEdgeReconciliation builds an if/else diamond where both
// branches assign the same virtual register to different physical
// hints, forcing edge reconciliation at the merge block.
func TestDiamondEdgeReconciliation(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)
	x := b.Virt(1, regalloc.RegGroupInt, 8)
	b.Inst("const", demo.Def(x, regalloc.NoPhys))
	b.Jumps(1, 2)

	b.Block(1)
	y := b.Virt(2, regalloc.RegGroupInt, 8)
	b.Inst("add", demo.Use(x, regalloc.PhysID(0)), demo.Def(y, regalloc.PhysID(1)))
	b.Succs(3)

	b.Block(2)
	z := b.Virt(3, regalloc.RegGroupInt, 8)
	b.Inst("add", demo.Use(x, regalloc.PhysID(1)), demo.Def(z, regalloc.PhysID(0)))
	b.Succs(3)

	b.Block(3)
	b.Term("ret", demo.UseKill(x, regalloc.NoPhys))
	b.Exit()

	program := demo.NewProgram(b, demo.WithRegFile(regalloc.RegGroupInt, demo.RegFile{
		Count: 4, Available: 0xf, ByteSize: 8,
	}))

	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Equal(t, result.BlockCount, 4)
	assert.Equal(t, result.ReachableBlockCount, 4)
}

// TestUnreachableBlockIsPruned exercises the boundary case where a
// block is added but never reached from the entry.
func TestUnreachableBlockIsPruned(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)
	x := b.Virt(1, regalloc.RegGroupInt, 8)
	b.Term("ret", demo.UseKill(x, regalloc.NoPhys))
	b.Exit()

	b.Block(1) // never linked as a successor of anything
	y := b.Virt(2, regalloc.RegGroupInt, 8)
	b.Inst("const", demo.Def(y, regalloc.NoPhys))
	b.Exit()

	program := demo.NewProgram(b)
	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Equal(t, result.BlockCount, 1)
}

// TestFixedUseOperandGetsRequestedID defines x freely and then uses it
// under a fixed-use constraint, and checks that the rewritten operand
// carries the requested physical id.
func TestFixedUseOperandGetsRequestedID(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)
	x := b.Virt(1, regalloc.RegGroupInt, 8)
	b.Inst("const", demo.Def(x, regalloc.NoPhys))
	b.Term("callarg0", demo.UseKill(x, regalloc.PhysID(0)))
	call := b.LastInstr()
	b.Exit()

	program := demo.NewProgram(b, demo.WithRegFile(regalloc.RegGroupInt, demo.RegFile{
		Count: 2, Available: 0x3, ByteSize: 8,
	}))

	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Equal(t, result.ReachableBlockCount, 1)

	// The rewriter must stamp the fixed operand with exactly the
	// requested physical id, regardless of wherever the global
	// allocator or an eviction might otherwise have placed x.
	want := []regalloc.PhysID{0}
	if diff := cmp.Diff(want, call.Phys); diff != "" {
		t.Fatalf("rewritten operand mismatch (-want +got):\n%s", diff)
	}
}

// TestInsertPrologEpilogEmitsAtEntryAndExits covers spec.md §4.7
// insertPrologEpilog: a prologue at the entry block and an epilogue at
// every reachable exit block, regardless of how many blocks the
// function has in between.
func TestInsertPrologEpilogEmitsAtEntryAndExits(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)
	x := b.Virt(0, regalloc.RegGroupInt, 8)
	b.Inst("const", demo.Def(x, regalloc.NoPhys))
	b.Succs(1, 2)

	b.Block(1)
	b.Term("ret", demo.UseKill(x, regalloc.NoPhys))
	b.Exit()

	b.Block(2)
	b.Term("ret", demo.UseKill(x, regalloc.NoPhys))
	b.Exit()

	program := demo.NewProgram(b)
	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
	_, err := pass.RunOnFunction()
	assert.NilError(t, err)

	prologues, epilogues := 0, 0
	for _, line := range program.Emitted {
		if strings.HasPrefix(line, "prologue b0 ") {
			prologues++
		}
		if strings.HasPrefix(line, "epilogue ") {
			epilogues++
		}
	}
	assert.Equal(t, prologues, 1)
	assert.Equal(t, epilogues, 2)
}

// TestEdgeReconciliationIsDeterministic builds a three-way register
// rotation across a diamond's two branches, forcing reconcileEdge to
// resolve a cycle too long for a single swap (spill-based cycle
// breaking). Running the identical fixture twice must produce byte
// identical emitted sequences (spec.md §5, §8 "two runs on identical
// input produce identical node graphs").
func TestEdgeReconciliationIsDeterministic(t *testing.T) {
	build := func() *demo.Program {
		b := demo.NewBuilder()
		b.Block(0)
		x := b.Virt(1, regalloc.RegGroupInt, 8)
		y := b.Virt(2, regalloc.RegGroupInt, 8)
		z := b.Virt(3, regalloc.RegGroupInt, 8)
		b.Inst("const", demo.Def(x, regalloc.NoPhys))
		b.Inst("const", demo.Def(y, regalloc.NoPhys))
		b.Inst("const", demo.Def(z, regalloc.NoPhys))
		b.Jumps(1, 2)

		b.Block(1)
		b.Inst("pin", demo.Use(x, regalloc.PhysID(0)), demo.Use(y, regalloc.PhysID(1)), demo.Use(z, regalloc.PhysID(2)))
		b.Succs(3)

		b.Block(2)
		b.Inst("rotate", demo.Use(x, regalloc.PhysID(1)), demo.Use(y, regalloc.PhysID(2)), demo.Use(z, regalloc.PhysID(0)))
		b.Succs(3)

		b.Block(3)
		b.Term("ret", demo.UseKill(x, regalloc.NoPhys), demo.UseKill(y, regalloc.NoPhys), demo.UseKill(z, regalloc.NoPhys))
		b.Exit()

		return demo.NewProgram(b, demo.WithRegFile(regalloc.RegGroupInt, demo.RegFile{
			Count: 3, Available: 0x7, ByteSize: 8,
		}))
	}

	runOnce := func() []string {
		program := build()
		pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program)
		_, err := pass.RunOnFunction()
		assert.NilError(t, err)
		return program.Emitted
	}

	first := runOnce()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, runOnce()); diff != "" {
			t.Fatalf("non-deterministic emission on run %d (-first +got):\n%s", i, diff)
		}
	}
}

func TestDisableCompilerShortCircuits(t *testing.T) {
	b := demo.NewBuilder()
	b.Block(0)
	b.Exit()
	program := demo.NewProgram(b)

	pass := regalloc.NewPass(regalloc.NewArena(), quietLogger(), program, regalloc.WithDisableCompiler())
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Equal(t, result.BlockCount, 0)
}
