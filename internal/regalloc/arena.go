package regalloc

// Arena is a bump allocator scoped to one function compilation. Every
// Block, WorkReg, Inst, StackSlot and assignment map created during a
// pass run is owned by the Arena that created it; nothing survives
// Reset. Unlike a manual-memory-management arena, the Go GC reclaims
// the backing storage once Reset drops the slice headers, but the
// *lifetime contract* is the same one the teacher's zone allocator
// and Cache-pooled state (stackAllocState in stackalloc.go) follow:
// one arena per function, released atomically between functions.
type Arena struct {
	blocks     []*Block
	workRegs   []*WorkReg
	insts      []*Inst
	stackSlots []*StackSlot

	createdBlockCount int
}

// NewArena creates an empty, ready-to-use Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Reset releases every value owned by the arena so it can be reused for
// the next function. Called from RunOnFunction's deferred onDone
// cleanup on every exit path.
func (a *Arena) Reset() {
	a.blocks = a.blocks[:0]
	a.workRegs = a.workRegs[:0]
	a.insts = a.insts[:0]
	a.stackSlots = a.stackSlots[:0]
	a.createdBlockCount = 0
}

func (a *Arena) newBlock() *Block {
	b := &Block{id: NoBlock, FirstIndex: -1, LastIndex: -1}
	a.createdBlockCount++
	return b
}

// addBlock assigns the block a dense id and registers it with the
// arena. Mirrors RAPass::addBlock in original_source/rapass_p.h.
func (a *Arena) addBlock(b *Block) {
	b.id = BlockID(len(a.blocks))
	a.blocks = append(a.blocks, b)
}

// hasDanglingBlocks reports blocks created by newBlock but never handed
// to addBlock -- an incomplete CFG construction. See SPEC_FULL.md §11.1.
func (a *Arena) hasDanglingBlocks() bool {
	return a.createdBlockCount != len(a.blocks)
}

func (a *Arena) newWorkReg(id WorkID, group RegGroup, v *VirtReg) *WorkReg {
	w := &WorkReg{
		WorkID:     id,
		Group:      group,
		Virt:       v,
		stackSlot:  nil,
		globalPhys: NoPhys,
		// Baseline weight of 1 so priority() degenerates to plain
		// RefCount for a work-reg never touched by computeLoopWeights
		// (e.g. a block-less test fixture), rather than always 0.
		LoopWeight: 1,
	}
	a.workRegs = append(a.workRegs, w)
	return w
}

func (a *Arena) newInst(block *Block, index int, flags uint32, clobbered [numRegGroups]uint64) *Inst {
	inst := &Inst{
		Block:   block,
		Index:   index,
		Flags:   flags,
		Clobber: clobbered,
	}
	a.insts = append(a.insts, inst)
	return inst
}

func (a *Arena) newStackSlot(size, align uint32) *StackSlot {
	s := &StackSlot{Size: size, Alignment: align, id: len(a.stackSlots)}
	a.stackSlots = append(a.stackSlots, s)
	return s
}
