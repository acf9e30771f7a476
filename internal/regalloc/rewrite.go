package regalloc

// rewrite is the final mechanical pass (spec.md §4.8): for every Inst
// belonging to a reachable block, and every TiedReg within it, bits set
// in UseRewriteMask/OutRewriteMask select which opaque operand fields
// of the caller's node get stamped with the resolved physical id. No
// operand decoding happens here -- the masks were precomputed while the
// architecture collaborator built the CFG.
func (p *Pass) rewrite() {
	for _, inst := range p.insts {
		if !inst.Block.IsReachable() {
			continue
		}
		for gi := range inst.Tied {
			t := &inst.Tied[gi]
			// ResolvedUseID/ResolvedOutID record wherever allocateLocal
			// actually bound this occurrence, whether that was a fixed
			// id or a free id resolved on the fly (possibly diverging
			// from the work-reg's global placement after an eviction).
			useID := t.ResolvedUseID
			outID := t.ResolvedOutID

			if t.UseRewriteMask != 0 {
				forEachBit(t.UseRewriteMask, func(field uint32) {
					p.collab.OnRewriteOperand(inst.Node, field, useID)
				})
			}
			if t.OutRewriteMask != 0 {
				forEachBit(t.OutRewriteMask, func(field uint32) {
					p.collab.OnRewriteOperand(inst.Node, field, outID)
				})
			}
		}
	}
}

func forEachBit(mask uint32, fn func(field uint32)) {
	for mask != 0 {
		bit := mask & (-mask)
		idx := uint32(0)
		for (bit & (1 << idx)) == 0 {
			idx++
		}
		fn(idx)
		mask &^= bit
	}
}
