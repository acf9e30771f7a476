package regalloc

import "github.com/bits-and-blooms/bitset"

// RegStats summarizes, per register group, which physical ids a block
// uses and which it uses under a fixed constraint. Grounded on
// RABlock::_regsStats / makeConstructed in original_source/rapass_p.h;
// dropped from spec.md's distillation but cheap to carry and useful for
// diagnostics dumps (SPEC_FULL.md §11.3).
type RegStats struct {
	Used  uint64
	Fixed uint64
}

func (s *RegStats) combine(o RegStats) {
	s.Used |= o.Used
	s.Fixed |= o.Fixed
}

// Block is a node in the CFG, arena-owned for the lifetime of one pass
// run. See spec.md §3 "Block (RABlock)" for the invariants.
type Block struct {
	id    BlockID
	flags uint32

	FirstIndex, LastIndex int   // inclusive instruction index range into Pass.insts
	FirstPosition, EndPosition int32

	LoopWeight uint32
	POVOrder   int32 // post-order index, assigned by buildViews

	RegStats [numRegGroups]RegStats

	// IN/OUT/GEN/KILL are sized to |WorkRegs| (spec.md §3): one bit per
	// work-reg, independent of register group -- group partitioning only
	// matters once a live work-reg is being assigned a physical id.
	IN, OUT, GEN, KILL *bitset.BitSet

	IDom *Block

	Preds []*Block
	Succs []*Block // index 0 is the natural-fallthrough successor iff HasConsecutive

	EntryPhysToWork *PhysToWorkMap
	EntryWorkToPhys *WorkToPhysMap

	// IsNextTo records whether this block's fallthrough successor is
	// physically adjacent in the final node stream -- bookkeeping for a
	// caller-side peephole pass eliding a redundant jump. See
	// SPEC_FULL.md §11.2.
	IsNextTo bool

	timestamp uint64
}

func (b *Block) ID() BlockID { return b.id }

func (b *Block) HasFlag(f uint32) bool { return b.flags&f != 0 }
func (b *Block) AddFlags(f uint32)     { b.flags |= f }

func (b *Block) IsConstructed() bool { return b.HasFlag(BlockFlagConstructed) }
func (b *Block) IsReachable() bool   { return b.HasFlag(BlockFlagReachable) }
func (b *Block) IsAllocated() bool   { return b.HasFlag(BlockFlagAllocated) }
func (b *Block) IsFuncExit() bool    { return b.HasFlag(BlockFlagFuncExit) }
func (b *Block) HasTerminator() bool { return b.HasFlag(BlockFlagHasTerminator) }
func (b *Block) HasConsecutive() bool { return b.HasFlag(BlockFlagHasConsecutive) }

// Consecutive returns the natural-fallthrough successor, or nil.
func (b *Block) Consecutive() *Block {
	if !b.HasConsecutive() || len(b.Succs) == 0 {
		return nil
	}
	return b.Succs[0]
}

func (b *Block) hasTimestamp(ts uint64) bool { return b.timestamp == ts }
func (b *Block) setTimestamp(ts uint64)      { b.timestamp = ts }

// appendSuccessor links b -> s as a normal edge, both directions.
func appendSuccessor(b, s *Block) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}

// prependSuccessor links b -> s forcing it first, i.e. the natural
// fallthrough edge. Both directions are linked.
func prependSuccessor(b, s *Block) {
	b.Succs = append(b.Succs, nil)
	copy(b.Succs[1:], b.Succs[:len(b.Succs)-1])
	b.Succs[0] = s
	s.Preds = append(s.Preds, b)
	b.AddFlags(BlockFlagHasConsecutive)
}

// removeSuccessor undoes appendSuccessor/prependSuccessor, unlinking
// both directions. Nothing in this module calls it.
func removeSuccessor(b, s *Block) {
	for i, succ := range b.Succs {
		if succ == s {
			b.Succs = append(b.Succs[:i], b.Succs[i+1:]...)
			break
		}
	}
	for i, pred := range s.Preds {
		if pred == b {
			s.Preds = append(s.Preds[:i], s.Preds[i+1:]...)
			break
		}
	}
}

func (b *Block) resizeLiveBits(workRegCount uint) {
	b.IN = bitset.New(workRegCount)
	b.OUT = bitset.New(workRegCount)
	b.GEN = bitset.New(workRegCount)
	b.KILL = bitset.New(workRegCount)
}
