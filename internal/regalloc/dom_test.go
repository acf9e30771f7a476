package regalloc

import (
	"testing"

	"gotest.tools/v3/assert"
)

// newTestPass builds a bare Pass so tests can wire up blocks directly (bypassing a Collaborator)
// for tests that only care about CFG-shape algorithms.
func newTestPass() *Pass {
	return &Pass{
		arena:      NewArena(),
		virtToWork: make(map[int32]*WorkReg),
		labelBlock: make(map[int]*Block),
	}
}

func TestBuildDominatorsDiamond(t *testing.T) {
	// entry -> {b1, b2} -> merge
	p := newTestPass()
	entry := p.NewBlock()
	p.AddBlock(entry)
	b1 := p.NewBlock()
	p.AddBlock(b1)
	b2 := p.NewBlock()
	p.AddBlock(b2)
	merge := p.NewBlock()
	p.AddBlock(merge)

	p.AppendSuccessor(entry, b1)
	p.AppendSuccessor(entry, b2)
	p.AppendSuccessor(b1, merge)
	p.AppendSuccessor(b2, merge)

	assert.NilError(t, p.buildViews())
	assert.NilError(t, p.buildDominators())

	assert.Check(t, p.Dominates(entry, merge))
	assert.Check(t, !p.StrictlyDominates(b1, merge))
	assert.Check(t, !p.StrictlyDominates(b2, merge))
	assert.Equal(t, merge.IDom, entry)
	assert.Equal(t, p.NearestCommonDominator(b1, b2), entry)
}

func TestBuildDominatorsLinearChain(t *testing.T) {
	p := newTestPass()
	a := p.NewBlock()
	p.AddBlock(a)
	b := p.NewBlock()
	p.AddBlock(b)
	c := p.NewBlock()
	p.AddBlock(c)

	p.AppendSuccessor(a, b)
	p.AppendSuccessor(b, c)

	assert.NilError(t, p.buildViews())
	assert.NilError(t, p.buildDominators())

	assert.Check(t, p.StrictlyDominates(a, c))
	assert.Check(t, p.StrictlyDominates(b, c))
	assert.Check(t, !p.StrictlyDominates(c, a))

	children := p.DominatorChildren(a)
	assert.Equal(t, len(children), 1)
	assert.Equal(t, children[0], b)
}

func TestRemoveUnreachableBlocksPrunesDeadBlock(t *testing.T) {
	p := newTestPass()
	entry := p.NewBlock()
	p.AddBlock(entry)
	reachable := p.NewBlock()
	p.AddBlock(reachable)
	dead := p.NewBlock()
	p.AddBlock(dead)

	p.AppendSuccessor(entry, reachable)

	assert.NilError(t, p.buildViews())
	assert.Check(t, entry.IsReachable())
	assert.Check(t, reachable.IsReachable())
	assert.Check(t, !dead.IsReachable())

	p.removeUnreachableBlocks()
	assert.Equal(t, len(p.arena.blocks), 2)
}
