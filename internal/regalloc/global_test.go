package regalloc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestPackGroupAssignsNonInterferingRegs(t *testing.T) {
	p := newTestPass()
	p.config.PhysRegCount[RegGroupInt] = 2
	p.config.AvailableRegs[RegGroupInt] = 0x3

	a := p.arena.newWorkReg(0, RegGroupInt, &VirtReg{ID: 0, Group: RegGroupInt})
	a.LiveSpans = []LiveSpan{{Start: 0, End: 4}}
	a.RefCount, a.LoopWeight = 1, 1

	b := p.arena.newWorkReg(1, RegGroupInt, &VirtReg{ID: 1, Group: RegGroupInt})
	b.LiveSpans = []LiveSpan{{Start: 0, End: 4}} // interferes with a
	b.RefCount, b.LoopWeight = 1, 1

	c := p.arena.newWorkReg(2, RegGroupInt, &VirtReg{ID: 2, Group: RegGroupInt})
	c.LiveSpans = []LiveSpan{{Start: 4, End: 8}} // disjoint from a, can reuse a's reg
	c.RefCount, c.LoopWeight = 1, 1

	assert.NilError(t, p.packGroup(RegGroupInt, 2))

	assert.Check(t, a.globalPhys != NoPhys)
	assert.Check(t, b.globalPhys != NoPhys)
	assert.Check(t, a.globalPhys != b.globalPhys)
	assert.Equal(t, c.globalPhys, a.globalPhys)
}

func TestPackGroupLeavesOverflowUnassigned(t *testing.T) {
	p := newTestPass()
	p.config.PhysRegCount[RegGroupInt] = 1
	p.config.AvailableRegs[RegGroupInt] = 0x1

	a := p.arena.newWorkReg(0, RegGroupInt, &VirtReg{ID: 0, Group: RegGroupInt})
	a.LiveSpans = []LiveSpan{{Start: 0, End: 4}}
	a.RefCount, a.LoopWeight = 5, 5 // higher priority, packs first

	b := p.arena.newWorkReg(1, RegGroupInt, &VirtReg{ID: 1, Group: RegGroupInt})
	b.LiveSpans = []LiveSpan{{Start: 0, End: 4}}
	b.RefCount, b.LoopWeight = 1, 1

	assert.NilError(t, p.packGroup(RegGroupInt, 1))

	assert.Equal(t, a.globalPhys, PhysID(0))
	assert.Equal(t, b.globalPhys, NoPhys)
}

func TestPackGroupPinsFixedUseFirst(t *testing.T) {
	p := newTestPass()
	p.config.PhysRegCount[RegGroupInt] = 2
	p.config.AvailableRegs[RegGroupInt] = 0x3

	a := p.arena.newWorkReg(0, RegGroupInt, &VirtReg{ID: 0, Group: RegGroupInt})
	a.LiveSpans = []LiveSpan{{Start: 0, End: 4}}
	a.fixedUseSeen, a.fixedPhys = true, PhysID(1)

	assert.NilError(t, p.packGroup(RegGroupInt, 2))
	assert.Equal(t, a.globalPhys, PhysID(1))
}
