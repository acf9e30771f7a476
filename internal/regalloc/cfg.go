package regalloc

// This file implements the CFG-construction API the architecture
// collaborator drives from BuildCFG, mirroring RAPass's block/RAInst
// management in original_source/rapass_p.h.

// NewBlock creates a new, not-yet-added block. New blocks don't have an
// id assigned until AddBlock registers them.
func (p *Pass) NewBlock() *Block {
	return p.arena.newBlock()
}

// AddBlock assigns the block a dense id and appends it to the pass's
// block list.
func (p *Pass) AddBlock(b *Block) {
	p.arena.addBlock(b)
}

// AddExitBlock marks b as a function exit and records it in the exit
// set.
func (p *Pass) AddExitBlock(b *Block) {
	b.AddFlags(BlockFlagFuncExit)
	p.exits = append(p.exits, b)
}

// NewBlockOrExistingAt returns the block already registered for label,
// creating (but not adding) a fresh one on first reference.
func (p *Pass) NewBlockOrExistingAt(label int) *Block {
	if b, ok := p.labelBlock[label]; ok {
		return b
	}
	b := p.NewBlock()
	p.labelBlock[label] = b
	return b
}

// AppendSuccessor links from -> to as a normal edge.
func (p *Pass) AppendSuccessor(from, to *Block) { appendSuccessor(from, to) }

// PrependSuccessor links from -> to as the forced-first, natural-flow
// edge.
func (p *Pass) PrependSuccessor(from, to *Block) { prependSuccessor(from, to) }

// AsWorkReg returns (creating on first reference) the WorkReg that
// mirrors v.
func (p *Pass) AsWorkReg(v *VirtReg) (*WorkReg, error) {
	if v == nil {
		return nil, ErrInvalidVirtID
	}
	if w, ok := p.virtToWork[v.ID]; ok {
		return w, nil
	}
	id := WorkID(len(p.arena.workRegs))
	w := p.arena.newWorkReg(id, v.Group, v)
	p.virtToWork[v.ID] = w
	return w, nil
}

// AssignInst finalizes the tied-reg array built by ib for one
// instruction in block, appending it to the pass's program-order
// instruction list. Mirrors RAPass::assignRAInst.
func (p *Pass) AssignInst(block *Block, node any, ib *InstBuilder) (*Inst, error) {
	n := ib.TiedRegCount()

	var index [numRegGroups]int
	offset := 0
	for g := 0; g < int(numRegGroups); g++ {
		index[g] = offset
		offset += ib.count[g]
	}

	tied := make([]TiedReg, n)
	cursor := index
	var usedRegs [numRegGroups]uint64

	for i := 0; i < n; i++ {
		src := ib.tiedRegs[i]
		w := p.arena.workRegs[src.WorkID]
		w.resetTiedReg()
		group := w.Group

		if src.HasUseID() {
			block.AddFlags(BlockFlagHasFixedRegs)
			usedRegs[group] |= 1 << uint(src.UseID)
		}
		if src.HasOutID() {
			block.AddFlags(BlockFlagHasFixedRegs)
			usedRegs[group] |= 1 << uint(src.OutID)
		}

		dstIdx := cursor[group]
		cursor[group]++
		dst := src
		dst.AllocableMask &^= ib.used[group]
		tied[dstIdx] = dst
	}

	inst := p.arena.newInst(block, len(p.insts), ib.flags, ib.clobbered)
	inst.Tied = tied
	inst.TiedIndex = index
	inst.TiedCount = ib.count
	inst.Used = usedRegs
	inst.Node = node

	if block.FirstIndex < 0 {
		block.FirstIndex = inst.Index
	}
	block.LastIndex = inst.Index
	if ib.flags&InstFlagTerminator != 0 {
		block.AddFlags(BlockFlagHasTerminator)
	}

	for g := 0; g < int(numRegGroups); g++ {
		var stats RegStats
		stats.Used = usedRegs[g]
		stats.Fixed = usedRegs[g]
		block.RegStats[g].combine(stats)
	}

	p.insts = append(p.insts, inst)
	return inst, nil
}

func (p *Pass) instAt(i int) *Inst { return p.insts[i] }
