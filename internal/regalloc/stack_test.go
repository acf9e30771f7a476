package regalloc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestUpdateStackFramePacksByDescendingAlignment(t *testing.T) {
	p := newTestPass()
	p.config.CalleeSavedRegs[RegGroupInt] = 0x0c // regs 2,3
	p.config.RegByteSize[RegGroupInt] = 8
	p.clobberedRegs[RegGroupInt] = 0x0c // both callee-saved regs clobbered

	w1 := p.arena.newWorkReg(0, RegGroupInt, &VirtReg{ID: 0, ByteSize: 1, Alignment: 1})
	w2 := p.arena.newWorkReg(1, RegGroupInt, &VirtReg{ID: 1, ByteSize: 8, Alignment: 8})

	s1 := p.getOrCreateStackSlot(w1)
	s2 := p.getOrCreateStackSlot(w2)

	p.updateStackFrame()

	// The wider-aligned slot packs first, at offset 0.
	assert.Equal(t, s2.Offset, uint32(0))
	assert.Equal(t, s1.Offset, uint32(8))
	assert.Equal(t, p.frame.SpillAreaSize, uint32(9))
	assert.Equal(t, p.frame.CalleeSavedSize, uint32(16))
	assert.Equal(t, p.frame.TotalSize, uint32(25))
}

func TestMarkStackArgsToKeepFlagsSlot(t *testing.T) {
	p := newTestPass()
	w := p.arena.newWorkReg(0, RegGroupInt, &VirtReg{ID: 0, ByteSize: 8, Alignment: 8})
	p.KeepArgHome(w)

	p.markStackArgsToKeep()

	assert.Check(t, w.StackUsed())
	assert.Check(t, w.StackSlot().HasFlag(StackSlotArg))
	assert.Check(t, w.StackSlot().HasFlag(StackSlotKeepAlive))
}

func TestGetOrCreateStackSlotMemoizes(t *testing.T) {
	p := newTestPass()
	w := p.arena.newWorkReg(0, RegGroupInt, &VirtReg{ID: 0, ByteSize: 4, Alignment: 4})

	s1 := p.getOrCreateStackSlot(w)
	s2 := p.getOrCreateStackSlot(w)
	assert.Check(t, s1 == s2)
}
