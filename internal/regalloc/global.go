package regalloc

import "sort"

// allocateGlobal runs the bin-packing pass described in spec.md §4.5:
// per register group, work-regs are sorted by priority and packed into
// the first non-interfering physical id. A reg that fails to pack
// remains unassigned globally (WorkReg.globalPhys == NoPhys) and is
// handled by the local allocator, possibly via spilling.
func (p *Pass) allocateGlobal() error {
	for g := 0; g < int(numRegGroups); g++ {
		group := RegGroup(g)
		count := p.config.PhysRegCount[g]
		if count <= 0 {
			continue
		}
		if err := p.packGroup(group, count); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pass) packGroup(group RegGroup, physCount int) error {
	var regs []*WorkReg
	for _, w := range p.arena.workRegs {
		if w.Group == group {
			regs = append(regs, w)
		}
	}

	sort.SliceStable(regs, func(i, j int) bool {
		a, b := regs[i], regs[j]
		if a.priority() != b.priority() {
			return a.priority() > b.priority()
		}
		if spanLength(a) != spanLength(b) {
			return spanLength(a) > spanLength(b)
		}
		return a.WorkID < b.WorkID
	})

	// assigned[physId] accumulates the live spans already packed into
	// that physical id, across every work-reg packed so far, so later
	// candidates can be checked for interference against the whole
	// occupancy, not just one prior reg.
	assigned := make([][]LiveSpan, physCount)

	// Pre-pin fixed-use regs: they occupy their requested id for their
	// whole live range, blocking other regs from packing into it, but
	// they are not walked for a free slot themselves.
	for _, w := range regs {
		if w.fixedUseSeen && int(w.fixedPhys) < physCount {
			w.globalPhys = w.fixedPhys
			assigned[w.fixedPhys] = append(assigned[w.fixedPhys], w.LiveSpans...)
		}
	}

	available := p.config.AvailableRegs[group]

	for _, w := range regs {
		if w.fixedUseSeen {
			continue
		}
		for phys := 0; phys < physCount; phys++ {
			if available&(1<<uint(phys)) == 0 {
				continue
			}
			if p.clobbersAcrossSpan(group, PhysID(phys), w) {
				continue
			}
			if spansInterfereWithAny(w.LiveSpans, assigned[phys]) {
				continue
			}
			w.globalPhys = PhysID(phys)
			assigned[phys] = append(assigned[phys], w.LiveSpans...)
			p.clobberedRegs[group] |= 1 << uint(phys)
			break
		}
	}
	return nil
}

func spanLength(w *WorkReg) int32 {
	var total int32
	for _, s := range w.LiveSpans {
		total += s.End - s.Start
	}
	return total
}

func spansInterfereWithAny(a, b []LiveSpan) bool {
	for _, sa := range a {
		for _, sb := range b {
			if sa.Overlaps(sb) {
				return true
			}
		}
	}
	return false
}

// clobbersAcrossSpan reports whether some instruction clobbers phys in
// w's group while w's live range spans that instruction -- restricting
// the allocable mask for that span per spec.md §4.5.
func (p *Pass) clobbersAcrossSpan(group RegGroup, phys PhysID, w *WorkReg) bool {
	mask := uint64(1) << uint(phys)
	for _, inst := range p.insts {
		if inst.Clobber[group]&mask == 0 {
			continue
		}
		instSpan := LiveSpan{Start: int32(2 * inst.Index), End: int32(2*inst.Index + 2)}
		for _, s := range w.LiveSpans {
			if s.Overlaps(instSpan) {
				return true
			}
		}
	}
	return false
}
