package regalloc

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestAssignmentBindMaintainsMutualInverse(t *testing.T) {
	physCounts := [numRegGroups]int{2, 0}
	a := newAssignment(physCounts, 3)

	a.bind(RegGroupInt, 0, 0)
	assert.Equal(t, a.workToPhys.Get(0), PhysID(0))
	assert.Equal(t, a.physToWork.Get(RegGroupInt, 0), WorkID(0))

	// Binding work 1 into the same phys id evicts work 0.
	a.bind(RegGroupInt, 1, 0)
	assert.Equal(t, a.workToPhys.Get(0), NoPhys)
	assert.Equal(t, a.workToPhys.Get(1), PhysID(0))
	assert.Equal(t, a.physToWork.Get(RegGroupInt, 0), WorkID(1))

	a.unbind(RegGroupInt, 1)
	assert.Equal(t, a.workToPhys.Get(1), NoPhys)
	assert.Equal(t, a.physToWork.Get(RegGroupInt, 0), NoWork)
}

func TestAssignmentCloneIsIndependent(t *testing.T) {
	physCounts := [numRegGroups]int{2, 0}
	a := newAssignment(physCounts, 2)
	a.bind(RegGroupInt, 0, 0)

	b := a.clone()
	b.bind(RegGroupInt, 0, 1)

	assert.Equal(t, a.workToPhys.Get(0), PhysID(0))
	assert.Equal(t, b.workToPhys.Get(0), PhysID(1))
}
