package regalloc

// Inst is the per-instruction record the CFG builder attaches to every
// node in the caller's instruction stream. Where the original C++
// RAInst trails a flexible array of RATiedReg off the end of the
// struct, Go has no equivalent layout trick worth fighting for: Inst
// carries a header plus a separately allocated (but arena-owned) Tied
// slice, grouped by register group via TiedIndex/TiedCount.
type Inst struct {
	Block *Block
	Index int // position of this instruction within Pass.insts
	Flags uint32

	Tied      []TiedReg
	TiedIndex [numRegGroups]int // offset of group g's tied regs within Tied
	TiedCount [numRegGroups]int

	LiveCount [numRegGroups]int // live, interfering work-regs at this point
	Used      [numRegGroups]uint64
	Clobber   [numRegGroups]uint64

	// Node is an opaque reference to the caller's instruction node,
	// threaded through unmodified so the rewriter can hand it back to
	// the architecture collaborator for the final mechanical stamp.
	Node any
}

func (i *Inst) IsTerminator() bool { return i.Flags&InstFlagTerminator != 0 }

// TiedOf returns the tied-reg slice for one register group.
func (i *Inst) TiedOf(group RegGroup) []TiedReg {
	return i.Tied[i.TiedIndex[group] : i.TiedIndex[group]+i.TiedCount[group]]
}

// instSizeHint is the pure arithmetic helper named in spec.md §9
// ("Variable-length instruction record ... the size helper sizeOf(n)
// stays as a pure arithmetic helper"). It has no allocation role in Go
// (Tied is a normal slice) but is kept so callers that want to
// pre-size an arena-co-located buffer for n tied regs can do so without
// duplicating the layout math.
func instSizeHint(tiedRegCount int) int {
	const tiedRegSize = 40 // approx sizeof(TiedReg) on a 64-bit platform
	return tiedRegCount * tiedRegSize
}
