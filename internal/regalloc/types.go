// Package regalloc implements the register allocation core: CFG
// construction (delegated to an architecture collaborator), dominators,
// liveness, a global bin-packing allocator, a local linear-scan
// allocator with edge reconciliation, stack frame finalization and the
// final operand rewrite.
package regalloc

// RegGroup partitions the physical register file into independent
// allocation domains (e.g. integer vs. floating/vector).
type RegGroup uint8

const (
	RegGroupInt RegGroup = iota
	RegGroupFloat
	numRegGroups
)

// NumRegGroups reports how many register groups the allocator tracks.
func NumRegGroups() int { return int(numRegGroups) }

func (g RegGroup) String() string {
	switch g {
	case RegGroupInt:
		return "int"
	case RegGroupFloat:
		return "float"
	default:
		return "group?"
	}
}

// PhysID identifies a concrete physical register within a RegGroup.
// NoPhys means "no physical register" (spilled, or not yet assigned).
type PhysID int16

const NoPhys PhysID = -1

// WorkID densely indexes WorkRegs within one pass run. NoWork means
// "no work register" (an empty PhysToWork slot).
type WorkID int32

const NoWork WorkID = -1

// BlockID indexes Blocks within one pass run in creation order.
type BlockID int32

const NoBlock BlockID = -1

// VirtReg is the front-end-owned, immutable identity of a virtual
// register: a stable id plus its register group and natural size, used
// to derive one WorkReg the first time the allocator encounters it.
type VirtReg struct {
	ID        int32
	Group     RegGroup
	ByteSize  uint32
	Alignment uint32
	Name      string // diagnostics only
}

// LiveSpan is a half-open interval [Start, End) over linear instruction
// positions. Positions are 2x the instruction index so that
// before/after points within one instruction are representable
// (position 2*i is "before instruction i", 2*i+1 is "after").
type LiveSpan struct {
	Start, End int32
}

func (s LiveSpan) Overlaps(o LiveSpan) bool {
	return s.Start < o.End && o.Start < s.End
}

// TiedReg flags. Multiple mentions of the same work-reg within one
// instruction merge their flags by union.
const (
	TiedUse uint32 = 1 << iota
	TiedOut
	TiedUseFixed
	TiedOutFixed
	TiedRead
	TiedWrite
	TiedKill
	TiedLastUse
	TiedHint
	TiedNonCoalescable
)

// InstFlags.
const (
	InstFlagTerminator uint32 = 1 << iota
)

// Block flags, named after RABlock in original_source/rapass_p.h.
const (
	BlockFlagConstructed uint32 = 1 << iota
	BlockFlagReachable
	BlockFlagAllocated
	BlockFlagFuncExit
	BlockFlagHasTerminator
	BlockFlagHasConsecutive
	BlockFlagHasFixedRegs
	BlockFlagHasCalls
)

// LoggerFlags select which diagnostic dumps a debug-enabled pass emits.
const (
	LogAnnotateCode uint32 = 1 << iota
	LogDumpLiveness
	LogDumpLiveSpans
	LogDumpBlocks
)
