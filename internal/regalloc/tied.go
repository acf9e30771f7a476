package regalloc

// TiedReg is a per-instruction descriptor linking one work-reg to its
// use/out physical-id constraints and the operand rewrite masks the
// rewriter will later apply mechanically. Within one Inst at most one
// TiedReg exists per work-reg; repeated mentions merge by union-ing
// flags/masks and intersecting the allocable set (see InstBuilder.Add).
type TiedReg struct {
	WorkID WorkID

	UseID PhysID // required physical id for a use, or NoPhys
	OutID PhysID // required physical id for an out, or NoPhys

	AllocableMask uint64 // permitted physical ids (bitmask within Group)

	UseRewriteMask uint32 // operand fields to stamp with the resolved use id
	OutRewriteMask uint32 // operand fields to stamp with the resolved out id

	RefCount uint32
	Flags    uint32

	// ResolvedUseID/ResolvedOutID are filled in by the local allocator
	// with the actual physical id this occurrence was bound to -- for a
	// fixed use/out this always equals UseID/OutID, but for a free
	// use/out it records wherever the local allocator actually placed
	// the work-reg at this exact program point (which may differ from
	// the work-reg's global placement after an eviction). The rewriter
	// stamps operands from these, not from UseID/OutID directly.
	ResolvedUseID PhysID
	ResolvedOutID PhysID
}

func (t *TiedReg) HasUseID() bool { return t.UseID != NoPhys }
func (t *TiedReg) HasOutID() bool { return t.OutID != NoPhys }
func (t *TiedReg) HasFlag(f uint32) bool { return t.Flags&f != 0 }
func (t *TiedReg) AddFlags(f uint32)     { t.Flags |= f }

// InstBuilder accumulates TiedReg entries for one instruction as the
// architecture collaborator walks it, mirroring RAInstBuilder in
// original_source/rapass_p.h. Reset between instructions.
type InstBuilder struct {
	flags uint32

	used      [numRegGroups]uint64 // fixed use and out ids observed this instruction
	clobbered [numRegGroups]uint64 // fixed out ids observed this instruction
	count     [numRegGroups]int

	tiedRegs []TiedReg
	index    map[WorkID]int // workId -> index into tiedRegs, for O(1) merge lookup
}

// NewInstBuilder returns a ready-to-use builder.
func NewInstBuilder() *InstBuilder {
	return &InstBuilder{index: make(map[WorkID]int, 8)}
}

// Reset clears the builder for the next instruction.
func (b *InstBuilder) Reset() {
	b.flags = 0
	b.used = [numRegGroups]uint64{}
	b.clobbered = [numRegGroups]uint64{}
	b.count = [numRegGroups]int{}
	b.tiedRegs = b.tiedRegs[:0]
	for k := range b.index {
		delete(b.index, k)
	}
}

func (b *InstBuilder) TiedRegCount() int { return len(b.tiedRegs) }

// SetFlags ORs f into the instruction-wide flags (e.g. InstFlagTerminator)
// independent of any tied-reg entry, for instructions like a bare jump that
// carry no register operands at all.
func (b *InstBuilder) SetFlags(f uint32) { b.flags |= f }

// Add merges a (workReg, use/out) constraint into the builder. Fixed
// use-ids are recorded into `used`; fixed out-ids into `clobbered` (the
// spec's Open Question #3 is resolved "yes": fixed out-ids also block
// other allocations at this program point, so they are also recorded
// into `used`; see DESIGN.md Open Questions / spec.md §9). Overlapping out-ids on an already-tied work-reg is an
// error (ErrOverlappedRegs).
func (b *InstBuilder) Add(w *WorkReg, flags uint32, allocable uint64, useID PhysID, useRewriteMask uint32, outID PhysID, outRewriteMask uint32) error {
	group := w.Group

	if useID != NoPhys {
		b.used[group] |= 1 << uint(useID)
		flags |= TiedUseFixed
	}
	if outID != NoPhys {
		b.used[group] |= 1 << uint(outID)
		b.clobbered[group] |= 1 << uint(outID)
		flags |= TiedOutFixed
	}
	b.flags |= flags

	if idx, ok := b.index[w.WorkID]; ok {
		t := &b.tiedRegs[idx]
		if outID != NoPhys {
			if t.HasOutID() {
				return wrapf(ErrOverlappedRegs, "work-reg %d already has an out id in this instruction", w.WorkID)
			}
			// Open Question in original RAInstBuilder::add: a fixed
			// out-id added to an already-tied entry with a use-id is
			// ambiguous. Resolution (spec.md §9): mark non-coalescable
			// and proceed; the local allocator emits an explicit
			// pre-move to satisfy the existing fixed use before this
			// out clobbers it.
			if t.HasUseID() {
				t.AddFlags(TiedNonCoalescable)
			}
			t.OutID = outID
		}
		t.RefCount++
		t.AddFlags(flags)
		t.AllocableMask &= allocable
		t.UseRewriteMask |= useRewriteMask
		t.OutRewriteMask |= outRewriteMask
		return nil
	}

	t := TiedReg{
		WorkID:         w.WorkID,
		UseID:          useID,
		OutID:          outID,
		AllocableMask:  allocable,
		UseRewriteMask: useRewriteMask,
		OutRewriteMask: outRewriteMask,
		RefCount:       1,
		Flags:          flags,
		ResolvedUseID:  NoPhys,
		ResolvedOutID:  NoPhys,
	}
	b.index[w.WorkID] = len(b.tiedRegs)
	b.tiedRegs = append(b.tiedRegs, t)
	b.count[group]++
	w.RefCount++
	if useID != NoPhys {
		w.fixedUseSeen = true
		w.fixedPhys = useID
	}
	return nil
}
