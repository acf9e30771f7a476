package demo

import (
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/brinkqiang2cpp/rapass/internal/regalloc"
)

func TestBuilderFirstBlockIsEntry(t *testing.T) {
	b := NewBuilder()
	b.Block(5) // first-declared label, regardless of numeric value
	x := b.Virt(1, regalloc.RegGroupInt, 8)
	b.Inst("const", Def(x, regalloc.NoPhys))
	b.Term("ret", UseKill(x, regalloc.NoPhys))
	b.Exit()

	program := NewProgram(b)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	pass := regalloc.NewPass(regalloc.NewArena(), logger, program)
	result, err := pass.RunOnFunction()
	assert.NilError(t, err)
	assert.Equal(t, result.BlockCount, 1)
	assert.Equal(t, result.ReachableBlockCount, 1)
}

func TestBuilderUnknownSuccessorErrors(t *testing.T) {
	b := NewBuilder()
	b.Block(0)
	b.Exit()
	b.Jumps(99) // never declared

	program := NewProgram(b)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	pass := regalloc.NewPass(regalloc.NewArena(), logger, program)
	_, err := pass.RunOnFunction()
	assert.ErrorContains(t, err, "unknown successor")
}

func TestOperandConstructors(t *testing.T) {
	v := &regalloc.VirtReg{ID: 1, Group: regalloc.RegGroupInt}

	u := Use(v, regalloc.NoPhys)
	assert.Check(t, u.Use && !u.Def && !u.Kill)

	uk := UseKill(v, regalloc.PhysID(2))
	assert.Check(t, uk.Use && uk.Kill && uk.Fixed == regalloc.PhysID(2))

	d := Def(v, regalloc.NoPhys)
	assert.Check(t, d.Def && !d.Use)

	ud := UseDef(v, regalloc.NoPhys)
	assert.Check(t, ud.Use && ud.Def)
}
