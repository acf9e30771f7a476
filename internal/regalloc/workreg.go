package regalloc

// WorkReg is the allocator's dense, arena-owned mirror of one VirtReg,
// created the first time the CFG builder references that virtual
// register. Work-ids are dense and drive bit-vector sizing for
// liveness.
type WorkReg struct {
	WorkID WorkID
	Group  RegGroup
	Virt   *VirtReg

	// LiveSpans is the union of half-open intervals during which this
	// work-reg's value is needed, computed by the liveness pass.
	LiveSpans []LiveSpan

	// RefCount and LoopWeight drive the global allocator's packing
	// priority and the local allocator's spill-victim choice: priority
	// key is LoopWeight*RefCount, descending.
	RefCount  uint32
	LoopWeight uint32

	// tied is the transient per-instruction tied-reg slot used while
	// RAInstBuilder accumulates descriptors for the instruction
	// currently being built. Reset between instructions.
	tied *TiedReg

	// fixedUseSeen records that some instruction required this work-reg
	// in a specific physical id, pre-pinning it for the global
	// allocator.
	fixedUseSeen bool
	fixedPhys    PhysID

	// globalPhys is the physical id the global bin-packing allocator
	// assigned this work-reg, or NoPhys if it could not be packed and
	// must be handled by the local allocator (including spilling).
	globalPhys PhysID

	stackSlot  *StackSlot
	stackUsed  bool

	// keepArgHome is set by the architecture collaborator (via
	// Pass.KeepArgHome) for argument work-regs whose stack home must
	// survive the whole function for the callee's debug/ABI contract.
	keepArgHome bool
}

// StackUsed reports whether a stack slot was ever created for this
// work-reg (register home addressing or spilling).
func (w *WorkReg) StackUsed() bool { return w.stackUsed }

// StackSlot returns the work-reg's lazily created stack slot, or nil.
func (w *WorkReg) StackSlot() *StackSlot { return w.stackSlot }

func (w *WorkReg) resetTiedReg()        { w.tied = nil }
func (w *WorkReg) setTiedReg(t *TiedReg) { w.tied = t }
func (w *WorkReg) tiedReg() *TiedReg     { return w.tied }

// priority is the global allocator's sort key: higher packs first.
func (w *WorkReg) priority() uint64 {
	return uint64(w.LoopWeight) * uint64(w.RefCount)
}
