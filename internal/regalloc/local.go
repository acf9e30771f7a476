package regalloc

import "sort"

// allocateLocal runs the linear-scan local allocator described in
// spec.md §4.6: blocks are processed in RPO, each starting from its
// entry assignment (empty for the function entry). For each
// instruction, fixed uses are resolved first, then free uses, then
// kills are applied, then outs are bound. Edges are reconciled the
// first time they're traversed by copying the current assignment as
// the successor's entry assignment; subsequent traversals insert
// compensation code.
func (p *Pass) allocateLocal() error {
	physCounts := p.config.PhysRegCount
	workCount := p.workRegCount()

	entry := p.EntryBlock()
	if entry == nil {
		return nil
	}
	if entry.EntryPhysToWork == nil {
		empty := newAssignment(physCounts, workCount)
		entry.EntryPhysToWork = empty.physToWork
		entry.EntryWorkToPhys = empty.workToPhys
	}

	for _, b := range p.rpo {
		if b.EntryPhysToWork == nil {
			// Reached only via a back-edge not yet processed (loop
			// header whose sole predecessor is a later block); start
			// from empty and let reconciliation correct it once the
			// real predecessor is processed.
			empty := newAssignment(physCounts, workCount)
			b.EntryPhysToWork = empty.physToWork
			b.EntryWorkToPhys = empty.workToPhys
		}

		cur := (&assignment{physToWork: b.EntryPhysToWork, workToPhys: b.EntryWorkToPhys}).clone()

		if b.FirstIndex >= 0 {
			for i := b.FirstIndex; i <= b.LastIndex; i++ {
				if err := p.processInst(cur, p.insts[i]); err != nil {
					return err
				}
			}
		}

		for _, s := range b.Succs {
			if s.EntryPhysToWork == nil {
				s.EntryPhysToWork = cur.physToWork.Clone()
				s.EntryWorkToPhys = cur.workToPhys.Clone()
				continue
			}
			edgeCur := cur.clone()
			p.reconcileEdge(b, s, edgeCur)
		}

		b.AddFlags(BlockFlagAllocated)
	}
	return nil
}

func (p *Pass) processInst(cur *assignment, inst *Inst) error {
	for gi := range inst.Tied {
		t := &inst.Tied[gi]
		if t.HasUseID() {
			if err := p.resolveFixedUse(cur, inst, t); err != nil {
				return err
			}
		}
	}
	for gi := range inst.Tied {
		t := &inst.Tied[gi]
		if isRead(t) && !t.HasUseID() {
			if err := p.resolveFreeUse(cur, inst, t); err != nil {
				return err
			}
		}
	}

	for gi := range inst.Tied {
		t := &inst.Tied[gi]
		if t.HasFlag(TiedKill) || t.HasFlag(TiedLastUse) {
			cur.unbind(p.workGroup(t.WorkID), t.WorkID)
		}
	}

	for gi := range inst.Tied {
		t := &inst.Tied[gi]
		if isWrite(t) {
			if err := p.resolveOut(cur, inst, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pass) workGroup(w WorkID) RegGroup { return p.arena.workRegs[w].Group }
func (p *Pass) workReg(w WorkID) *WorkReg   { return p.arena.workRegs[w] }

func (p *Pass) resolveFixedUse(cur *assignment, inst *Inst, t *TiedReg) error {
	group := p.workGroup(t.WorkID)
	target := t.UseID

	holder := cur.physToWork.Get(group, target)
	if holder != t.WorkID && holder != NoWork {
		p.evict(cur, group, holder, target, t.WorkID, inst)
	}

	curPhys := cur.workToPhys.Get(t.WorkID)
	switch {
	case curPhys == target:
		// already there
	case curPhys == NoPhys:
		p.emitLoad(t.WorkID, target)
	default:
		p.emitMove(t.WorkID, target, curPhys)
	}
	cur.bind(group, t.WorkID, target)
	t.ResolvedUseID = target
	return nil
}

func (p *Pass) resolveFreeUse(cur *assignment, inst *Inst, t *TiedReg) error {
	group := p.workGroup(t.WorkID)
	if curPhys := cur.workToPhys.Get(t.WorkID); curPhys != NoPhys {
		t.ResolvedUseID = curPhys
		return nil
	}

	target, err := p.pickTarget(cur, group, t, inst)
	if err != nil {
		return err
	}

	p.emitLoad(t.WorkID, target)
	cur.bind(group, t.WorkID, target)
	t.ResolvedUseID = target
	return nil
}

func (p *Pass) resolveOut(cur *assignment, inst *Inst, t *TiedReg) error {
	group := p.workGroup(t.WorkID)

	if t.HasOutID() {
		target := t.OutID
		holder := cur.physToWork.Get(group, target)
		if holder != NoWork && holder != t.WorkID {
			p.evict(cur, group, holder, target, t.WorkID, inst)
		}
		cur.bind(group, t.WorkID, target)
		t.ResolvedOutID = target
		return nil
	}

	target, err := p.pickTarget(cur, group, t, inst)
	if err != nil {
		return err
	}
	cur.bind(group, t.WorkID, target)
	t.ResolvedOutID = target
	return nil
}

// pickTarget chooses a physical id for a free use/out: the work-reg's
// global placement when it is still free, else any free allocable id,
// else the id of an eviction victim.
func (p *Pass) pickTarget(cur *assignment, group RegGroup, t *TiedReg, inst *Inst) (PhysID, error) {
	w := p.workReg(t.WorkID)
	if w.globalPhys != NoPhys && t.AllocableMask&(1<<uint(w.globalPhys)) != 0 &&
		cur.physToWork.Get(group, w.globalPhys) == NoWork {
		return w.globalPhys, nil
	}
	if target := p.findFreeRegMasked(cur, group, t.AllocableMask, inst); target != NoPhys {
		return target, nil
	}
	victimPhys := p.pickEvictionVictim(cur, group, t.AllocableMask, inst)
	if victimPhys == NoPhys {
		return NoPhys, ErrNoRegistersToAllocate
	}
	victim := cur.physToWork.Get(group, victimPhys)
	p.evict(cur, group, victim, victimPhys, t.WorkID, inst)
	return victimPhys, nil
}

// evict relocates victim out of victimPhys so wanting can take it:
// first by swapping if the instruction itself requires victim to land
// exactly where wanting currently sits, then by moving victim to a free
// register, and finally by spilling it to its stack slot.
func (p *Pass) evict(cur *assignment, group RegGroup, victim WorkID, victimPhys PhysID, wanting WorkID, inst *Inst) {
	if victim == NoWork {
		return
	}

	if wantingPhys := cur.workToPhys.Get(wanting); wantingPhys != NoPhys {
		for gi := range inst.Tied {
			t := &inst.Tied[gi]
			if t.WorkID == victim && (t.UseID == wantingPhys || t.OutID == wantingPhys) {
				p.emitSwap(victim, victimPhys, wanting, wantingPhys)
				cur.bind(group, victim, wantingPhys)
				cur.bind(group, wanting, victimPhys)
				return
			}
		}
	}

	if freeID := p.findFreeReg(cur, group, inst); freeID != NoPhys {
		p.emitMove(victim, freeID, victimPhys)
		cur.bind(group, victim, freeID)
		return
	}

	p.emitSave(victim, victimPhys)
	cur.unbind(group, victim)
}

// findFreeReg returns the first physical id in group that is available,
// not occupied, and not reserved by a fixed use/out elsewhere in inst.
func (p *Pass) findFreeReg(cur *assignment, group RegGroup, inst *Inst) PhysID {
	return p.findFreeRegMasked(cur, group, ^uint64(0), inst)
}

func (p *Pass) findFreeRegMasked(cur *assignment, group RegGroup, allocable uint64, inst *Inst) PhysID {
	count := p.config.PhysRegCount[group]
	avail := p.config.AvailableRegs[group] & allocable &^ inst.Used[group]
	for phys := 0; phys < count; phys++ {
		bit := uint64(1) << uint(phys)
		if avail&bit == 0 {
			continue
		}
		if cur.physToWork.Get(group, PhysID(phys)) == NoWork {
			return PhysID(phys)
		}
	}
	return NoPhys
}

// pickEvictionVictim chooses the occupied, evictable physical id whose
// current occupant has the lowest loop-weight*refcount priority, ties
// broken by the higher work-id (spec.md §8 scenario 3).
func (p *Pass) pickEvictionVictim(cur *assignment, group RegGroup, allocable uint64, inst *Inst) PhysID {
	count := p.config.PhysRegCount[group]
	avail := p.config.AvailableRegs[group] & allocable &^ inst.Used[group]

	best := NoPhys
	var bestWork *WorkReg
	for phys := 0; phys < count; phys++ {
		bit := uint64(1) << uint(phys)
		if avail&bit == 0 {
			continue
		}
		holder := cur.physToWork.Get(group, PhysID(phys))
		if holder == NoWork {
			continue
		}
		w := p.workReg(holder)
		if best == NoPhys || isLowerEvictionPriority(w, bestWork) {
			best = PhysID(phys)
			bestWork = w
		}
	}
	return best
}

func isLowerEvictionPriority(a, b *WorkReg) bool {
	if a.priority() != b.priority() {
		return a.priority() < b.priority()
	}
	return a.WorkID > b.WorkID
}

func (p *Pass) emitMove(workID WorkID, dst, src PhysID) {
	p.collab.OnEmitMove(workID, dst, src)
	p.moveCount++
}

func (p *Pass) emitSwap(aWork WorkID, aPhys PhysID, bWork WorkID, bPhys PhysID) {
	p.collab.OnEmitSwap(aWork, aPhys, bWork, bPhys)
	p.swapCount++
}

func (p *Pass) emitLoad(workID WorkID, dst PhysID) {
	p.collab.OnEmitLoad(workID, dst)
	p.getOrCreateStackSlot(p.workReg(workID))
	p.loadCount++
}

func (p *Pass) emitSave(workID WorkID, src PhysID) {
	p.collab.OnEmitSave(workID, src)
	p.getOrCreateStackSlot(p.workReg(workID))
	p.spillCount++
}

// reconcileEdge transforms edgeCur (the current assignment at the end
// of b) into s's already-established entry assignment, emitting the
// permutation as a sequence of moves/swaps/spills/loads. Per spec.md
// §4.6 this is placed in b just before its terminator when b has a
// single successor, or on a synthetic edge block otherwise; since node
// splicing is owned by the architecture collaborator (the emit hooks
// are themselves responsible for inserting nodes into the host's
// graph), this pass only decides and emits the operations -- for the
// multi-successor case it additionally calls OnEmitJump so the
// collaborator can materialize the synthetic edge block.
func (p *Pass) reconcileEdge(b, s *Block, edgeCur *assignment) {
	if len(b.Succs) > 1 {
		p.collab.OnEmitJump(s.ID())
	}

	for g := 0; g < int(numRegGroups); g++ {
		group := RegGroup(g)
		pending := make(map[WorkID]PhysID)
		for i, ok := s.IN.NextSet(0); ok; i, ok = s.IN.NextSet(i + 1) {
			w := WorkID(i)
			if p.workGroup(w) != group {
				continue
			}
			want := s.EntryWorkToPhys.Get(w)
			have := edgeCur.workToPhys.Get(w)
			if want != have {
				pending[w] = want
			}
		}

		for len(pending) > 0 {
			progressed := false

			// Iterate in WorkID order, not map order: the emitted
			// move/swap/save/load sequence must be deterministic run
			// to run on identical input (spec.md §5, §8).
			keys := make([]WorkID, 0, len(pending))
			for w := range pending {
				keys = append(keys, w)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

			for _, w := range keys {
				want := pending[w]
				have := edgeCur.workToPhys.Get(w)
				if have == want {
					delete(pending, w)
					progressed = true
					continue
				}
				if want == NoPhys {
					if have != NoPhys {
						p.emitSave(w, have)
						edgeCur.unbind(group, w)
					}
					delete(pending, w)
					progressed = true
					continue
				}

				occupant := edgeCur.physToWork.Get(group, want)
				if occupant == NoWork {
					if have == NoPhys {
						p.emitLoad(w, want)
					} else {
						p.emitMove(w, want, have)
					}
					edgeCur.bind(group, w, want)
					delete(pending, w)
					progressed = true
					continue
				}

				if occWant, isPending := pending[occupant]; isPending && occWant == have && have != NoPhys {
					p.emitSwap(w, have, occupant, want)
					edgeCur.bind(group, w, want)
					edgeCur.bind(group, occupant, have)
					delete(pending, w)
					delete(pending, occupant)
					progressed = true
					continue
				}

				// Break the cycle (or clear a non-pending occupant) by
				// spilling the occupant; it is reloaded by its own
				// pending entry in a later iteration, or was never
				// wanted again if not pending.
				p.emitSave(occupant, want)
				edgeCur.unbind(group, occupant)
				progressed = true
			}
			if !progressed {
				break
			}
		}
	}
}
