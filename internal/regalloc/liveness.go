package regalloc

import "github.com/bits-and-blooms/bitset"

// computeLiveness runs the three liveness sub-steps described in
// spec.md §4.4: GEN/KILL scanning per block, the backward worklist
// fixed point for IN/OUT, then a linear scan deriving each work-reg's
// live spans and the per-block/group max-live statistics.
func (p *Pass) computeLiveness() error {
	n := uint(p.workRegCount())
	for _, b := range p.arena.blocks {
		b.resizeLiveBits(n)
	}
	p.scanGenKill()
	if err := p.solveInOut(); err != nil {
		return err
	}
	p.assignPositions()
	p.computeLiveSpansAndStats()
	return nil
}

// assignPositions derives Block.FirstPosition/EndPosition from the
// instruction index range the block accumulated during AssignInst.
// Positions are 2x the instruction index (spec.md §3): position 2*i is
// "before instruction i", 2*i+1 is "after".
func (p *Pass) assignPositions() {
	for _, b := range p.arena.blocks {
		if b.FirstIndex < 0 {
			pos := int32(2 * len(p.insts))
			b.FirstPosition, b.EndPosition = pos, pos
			continue
		}
		b.FirstPosition = int32(2 * b.FirstIndex)
		b.EndPosition = int32(2*b.LastIndex + 2)
	}
}

// isRead/isWrite classify a tied-reg occurrence using either the
// explicit flag set by the collaborator or the presence of a fixed
// use/out id (a fixed use/out implies the corresponding access kind).
func isRead(t *TiedReg) bool {
	return t.HasFlag(TiedUse) || t.HasFlag(TiedRead) || t.UseID != NoPhys
}

func isWrite(t *TiedReg) bool {
	return t.HasFlag(TiedOut) || t.HasFlag(TiedWrite) || t.OutID != NoPhys
}

func (p *Pass) scanGenKill() {
	n := p.workRegCount()
	defined := make([]bool, n)
	for _, b := range p.arena.blocks {
		for i := range defined {
			defined[i] = false
		}
		if b.FirstIndex < 0 {
			continue
		}
		for i := b.FirstIndex; i <= b.LastIndex; i++ {
			inst := p.insts[i]
			for gi := range inst.Tied {
				t := &inst.Tied[gi]
				w := uint(t.WorkID)
				if isRead(t) && !defined[w] {
					b.GEN.Set(w)
				}
				if isWrite(t) && !defined[w] {
					b.KILL.Set(w)
					defined[w] = true
				}
			}
		}
	}
}

// solveInOut runs the backward dataflow fixed point:
//
//	OUT(b) = union of IN(s) for s in successors(b)
//	IN(b)  = GEN(b) | (OUT(b) \ KILL(b))
func (p *Pass) solveInOut() error {
	if len(p.arena.workRegs) == 0 {
		return nil
	}
	changed := true
	for iterations := 0; changed; iterations++ {
		if iterations > len(p.arena.blocks)*len(p.arena.blocks)+64 {
			return wrapf(ErrInconsistentState, "liveness dataflow did not converge")
		}
		changed = false
		for _, b := range p.arena.blocks {
			newOut := bitset.New(uint(len(p.arena.workRegs)))
			for _, s := range b.Succs {
				newOut.InPlaceUnion(s.IN)
			}
			newIn := newOut.Difference(b.KILL)
			newIn.InPlaceUnion(b.GEN)
			if !newIn.Equal(b.IN) || !newOut.Equal(b.OUT) {
				changed = true
			}
			b.IN = newIn
			b.OUT = newOut
		}
	}
	return nil
}

func (p *Pass) computeLiveSpansAndStats() {
	for _, b := range p.arena.blocks {
		p.computeBlockLiveSpans(b)
	}
}

func (p *Pass) computeBlockLiveSpans(b *Block) {
	openStart := make(map[WorkID]int32)
	for i, ok := b.IN.NextSet(0); ok; i, ok = b.IN.NextSet(i + 1) {
		openStart[WorkID(i)] = b.FirstPosition
	}

	updateMax := func() {
		var perGroup [numRegGroups]int
		for w := range openStart {
			perGroup[p.arena.workRegs[w].Group]++
		}
		total := 0
		for g := 0; g < int(numRegGroups); g++ {
			if perGroup[g] > p.maxLiveCount[g] {
				p.maxLiveCount[g] = perGroup[g]
			}
			total += perGroup[g]
		}
		if total > p.globalMax {
			p.globalMax = total
		}
	}
	updateMax()

	if b.FirstIndex >= 0 {
		for i := b.FirstIndex; i <= b.LastIndex; i++ {
			inst := p.insts[i]
			instPos := int32(2 * i)
			for gi := range inst.Tied {
				t := &inst.Tied[gi]
				w := t.WorkID
				if isWrite(t) {
					if _, open := openStart[w]; !open {
						openStart[w] = instPos
					}
				}
			}
			for gi := range inst.Tied {
				t := &inst.Tied[gi]
				w := t.WorkID
				if t.HasFlag(TiedKill) || t.HasFlag(TiedLastUse) {
					if start, open := openStart[w]; open {
						closeSpan(p.arena.workRegs[w], start, instPos+1)
						delete(openStart, w)
					}
				}
				inst.LiveCount[p.arena.workRegs[w].Group] = len(openStart)
			}
			updateMax()
		}
	}

	for w, start := range openStart {
		closeSpan(p.arena.workRegs[w], start, b.EndPosition)
	}
}

func closeSpan(w *WorkReg, start, end int32) {
	if end <= start {
		end = start + 1
	}
	w.LiveSpans = append(w.LiveSpans, LiveSpan{Start: start, End: end})
}

// interferes reports whether two work-regs have any overlapping live
// span.
func interferes(a, b *WorkReg) bool {
	for _, sa := range a.LiveSpans {
		for _, sb := range b.LiveSpans {
			if sa.Overlaps(sb) {
				return true
			}
		}
	}
	return false
}
