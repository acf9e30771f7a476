package regalloc

import "sort"

// StackSlot flags.
const (
	StackSlotArg uint32 = 1 << iota
	StackSlotRegHome
	StackSlotKeepAlive // must survive for the callee's debug/ABI contract
)

// StackSlot describes one spill/home location on the stack frame.
// Created lazily by getOrCreateStackSlot when a work-reg is first
// spilled or home-addressed (spec.md §3).
type StackSlot struct {
	id        int
	Size      uint32
	Alignment uint32
	Offset    uint32 // filled in by updateStackFrame / updateStackArgs
	Flags     uint32
}

func (s *StackSlot) HasFlag(f uint32) bool { return s.Flags&f != 0 }
func (s *StackSlot) AddFlags(f uint32)     { s.Flags |= f }

// getOrCreateStackSlot lazily creates (and memoizes) the stack slot for
// a work-reg, marking it stack-used so later passes can query "did this
// function need a stack slot for this register" without a rescan
// (SPEC_FULL.md §11.4, grounded on workRegAsMem/getOrCreateStackSlot in
// original_source/rapass_p.h).
func (p *Pass) getOrCreateStackSlot(w *WorkReg) *StackSlot {
	if w.stackSlot != nil {
		return w.stackSlot
	}
	slot := p.arena.newStackSlot(w.Virt.ByteSize, w.Virt.Alignment)
	w.stackSlot = slot
	w.stackUsed = true
	return slot
}

// Frame is the finalized stack frame layout computed after allocation.
type Frame struct {
	SpillAreaSize      uint32
	CalleeSavedSize    uint32
	ArgSaveAreaSize    uint32
	TotalSize          uint32
	CalleeSavedRegs    [numRegGroups]uint64 // subset of ClobberedRegs that are callee-saved
}

// updateStackFrame packs spill slots by descending alignment (largest
// first, matching the teacher's stackalloc.go slot-packing shape),
// computes the callee-saved area from clobbered-regs ∩ callee-saved,
// and an argument-save area for any stack slot flagged StackSlotArg.
func (p *Pass) updateStackFrame() {
	slots := append([]*StackSlot(nil), p.arena.stackSlots...)
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Alignment > slots[j].Alignment
	})

	var offset uint32
	var argSize uint32
	for _, s := range slots {
		if s.HasFlag(StackSlotArg) {
			argSize += s.Size
			continue
		}
		if s.Alignment > 0 {
			if rem := offset % s.Alignment; rem != 0 {
				offset += s.Alignment - rem
			}
		}
		s.Offset = offset
		offset += s.Size
	}

	var calleeSaved [numRegGroups]uint64
	var calleeSavedSize uint32
	for g := 0; g < int(numRegGroups); g++ {
		calleeSaved[g] = p.clobberedRegs[g] & p.config.CalleeSavedRegs[g]
		calleeSavedSize += uint32(popcount64(calleeSaved[g])) * p.config.RegByteSize[g]
	}

	p.frame = Frame{
		SpillAreaSize:   offset,
		CalleeSavedSize: calleeSavedSize,
		ArgSaveAreaSize: argSize,
		TotalSize:       offset + calleeSavedSize + argSize,
		CalleeSavedRegs: calleeSaved,
	}
}

// markStackArgsToKeep flags argument work-regs whose home slot must
// persist for the whole function because the architecture ABI requires
// a debuggable stack-resident copy. The architecture collaborator
// marks candidates during BuildCFG (WorkReg is not directly exposed, so
// it calls Pass.KeepArgHome); this pass step promotes that intent onto
// the actual stack slot once one exists. SPEC_FULL.md §11.5.
func (p *Pass) markStackArgsToKeep() {
	for _, w := range p.arena.workRegs {
		if !w.keepArgHome {
			continue
		}
		slot := p.getOrCreateStackSlot(w)
		slot.AddFlags(StackSlotArg | StackSlotKeepAlive)
	}
}

func popcount64(x uint64) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}
