package regalloc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func newTestWorkReg(id WorkID, group RegGroup) *WorkReg {
	return &WorkReg{WorkID: id, Group: group, Virt: &VirtReg{ID: int32(id), Group: group}, globalPhys: NoPhys}
}

func TestInstBuilderAddMergesRepeatedMentions(t *testing.T) {
	b := NewInstBuilder()
	w := newTestWorkReg(0, RegGroupInt)

	assert.NilError(t, b.Add(w, TiedUse, 0xff, NoPhys, 1<<0, NoPhys, 0))
	assert.NilError(t, b.Add(w, TiedOut, 0x0f, NoPhys, 0, NoPhys, 1<<1))

	assert.Equal(t, b.TiedRegCount(), 1)
	tr := b.tiedRegs[0]
	assert.Equal(t, tr.AllocableMask, uint64(0x0f))
	assert.Equal(t, tr.UseRewriteMask, uint32(1<<0))
	assert.Equal(t, tr.OutRewriteMask, uint32(1<<1))
	assert.Equal(t, tr.RefCount, uint32(2))
}

func TestInstBuilderAddFixedOutOnTiedUseMarksNonCoalescable(t *testing.T) {
	b := NewInstBuilder()
	w := newTestWorkReg(0, RegGroupInt)

	assert.NilError(t, b.Add(w, TiedUse, 0xff, PhysID(2), 0, NoPhys, 0))
	assert.NilError(t, b.Add(w, TiedOut, 0xff, NoPhys, 0, PhysID(3), 0))

	tr := b.tiedRegs[0]
	assert.Check(t, tr.HasFlag(TiedNonCoalescable))
	assert.Equal(t, tr.UseID, PhysID(2))
	assert.Equal(t, tr.OutID, PhysID(3))
}

func TestInstBuilderAddOverlappingOutIsError(t *testing.T) {
	b := NewInstBuilder()
	w := newTestWorkReg(0, RegGroupInt)

	assert.NilError(t, b.Add(w, TiedOut, 0xff, NoPhys, 0, PhysID(1), 0))
	err := b.Add(w, TiedOut, 0xff, NoPhys, 0, PhysID(2), 0)
	assert.ErrorIs(t, err, ErrOverlappedRegs)
}

func TestInstBuilderResetClearsState(t *testing.T) {
	b := NewInstBuilder()
	w := newTestWorkReg(0, RegGroupInt)
	assert.NilError(t, b.Add(w, TiedUse, 0xff, NoPhys, 0, NoPhys, 0))
	b.Reset()
	assert.Equal(t, b.TiedRegCount(), 0)
	assert.Equal(t, len(b.index), 0)
}
