package regalloc

import "sort"

// insertPrologEpilog emits frame setup at the function's entry block
// and frame teardown at each of its exit blocks, per spec.md §4.7. It
// runs after updateStackFrame/updateStackArgs so the collaborator sees
// the fully finalized Frame, and only touches reachable blocks -- an
// exit block dropped by removeUnreachableBlocks has no code left to
// tear down. p.exits is populated by AddExitBlock during BuildCFG
// (cfg.go); an entry with no recorded exits still gets a prologue, the
// way a function that never returns normally (infinite loop, always
// panics) still needs its frame set up.
func (p *Pass) insertPrologEpilog() {
	if entry := p.EntryBlock(); entry != nil && entry.IsReachable() {
		p.collab.OnEmitPrologue(entry.ID(), p.frame)
	}
	for _, b := range p.exits {
		if !b.IsReachable() {
			continue
		}
		p.collab.OnEmitEpilogue(b.ID(), p.frame)
	}
}

// updateStackArgs finalizes the offset of every argument-flagged stack
// slot now that the frame's spill and callee-saved areas are sized
// (spec.md §4.7 "_updateStackArgs rewrites argument references"). Arg
// slots are packed by descending alignment, the same discipline
// updateStackFrame applies to spill slots, immediately above the
// spill and callee-saved areas.
func (p *Pass) updateStackArgs() {
	var argSlots []*StackSlot
	for _, s := range p.arena.stackSlots {
		if s.HasFlag(StackSlotArg) {
			argSlots = append(argSlots, s)
		}
	}
	sort.SliceStable(argSlots, func(i, j int) bool {
		return argSlots[i].Alignment > argSlots[j].Alignment
	})

	offset := p.frame.SpillAreaSize + p.frame.CalleeSavedSize
	for _, s := range argSlots {
		if s.Alignment > 0 {
			if rem := offset % s.Alignment; rem != 0 {
				offset += s.Alignment - rem
			}
		}
		s.Offset = offset
		offset += s.Size
	}
}
