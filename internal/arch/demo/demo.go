// Package demo is a small, synthetic architecture collaborator for
// internal/regalloc: a toy register file (plain integer/float banks,
// no real encoding) driven through a fluent block/instruction builder
// in the spirit of the teacher's own SSA test fixtures. It is not a
// stand-in for a real backend -- it exists so the pass's own tests and
// the rapass demo CLI have a concrete regalloc.Collaborator to drive.
package demo

import "github.com/brinkqiang2cpp/rapass/internal/regalloc"

// Operand describes one register mention within an instruction being
// recorded by the Builder: which virtual register, whether it's read
// and/or written, whether this is its last use, and any fixed physical
// id the synthetic ISA demands.
type Operand struct {
	Virt  *regalloc.VirtReg
	Use   bool
	Def   bool
	Kill  bool
	Fixed regalloc.PhysID

	// Allocable restricts which physical ids this occurrence may take;
	// zero means "every id in the register's group".
	Allocable uint64
}

// Use returns a read-only operand, optionally pinned to a fixed
// physical id (regalloc.NoPhys for "any allocable register").
func Use(v *regalloc.VirtReg, fixed regalloc.PhysID) Operand {
	return Operand{Virt: v, Use: true, Fixed: fixed}
}

// UseKill is Use for an operand that is dead after this instruction.
func UseKill(v *regalloc.VirtReg, fixed regalloc.PhysID) Operand {
	return Operand{Virt: v, Use: true, Kill: true, Fixed: fixed}
}

// Def returns a write-only operand.
func Def(v *regalloc.VirtReg, fixed regalloc.PhysID) Operand {
	return Operand{Virt: v, Def: true, Fixed: fixed}
}

// UseDef returns a read-modify-write operand (tied use and out).
func UseDef(v *regalloc.VirtReg, fixed regalloc.PhysID) Operand {
	return Operand{Virt: v, Use: true, Def: true, Fixed: fixed}
}

// Instr is one recorded synthetic instruction. Node handed back to
// OnRewriteOperand is the *Instr itself; Phys is filled in by the
// rewrite pass, parallel to Operands.
type Instr struct {
	Op         string
	Operands   []Operand
	Phys       []regalloc.PhysID
	Terminator bool
}

type blockDef struct {
	label       int
	instrs      []*Instr
	succs       []int
	fallsThru   bool
	exit        bool
}

// Builder accumulates a synthetic function's blocks and instructions
// before handing them to NewProgram.
type Builder struct {
	blocks []*blockDef
	order  map[int]int // label -> index into blocks, preserving first-seen order
	cur    *blockDef
	virts  map[int32]*regalloc.VirtReg
}

// NewBuilder returns an empty builder. The first block declared via
// Block becomes the function's entry block.
func NewBuilder() *Builder {
	return &Builder{
		order: make(map[int]int),
		virts: make(map[int32]*regalloc.VirtReg),
	}
}

// Block selects (creating on first reference) the block named label as
// the current block for subsequent Inst/Succs/Exit calls.
func (b *Builder) Block(label int) *Builder {
	if idx, ok := b.order[label]; ok {
		b.cur = b.blocks[idx]
		return b
	}
	bd := &blockDef{label: label}
	b.order[label] = len(b.blocks)
	b.blocks = append(b.blocks, bd)
	b.cur = bd
	return b
}

// Succs records the current block's successors in order; the first is
// treated as the fallthrough (natural) edge.
func (b *Builder) Succs(labels ...int) *Builder {
	b.cur.succs = append(b.cur.succs, labels...)
	b.cur.fallsThru = true
	return b
}

// Jumps is Succs for a block whose edges are all explicit branches,
// none of them a fallthrough.
func (b *Builder) Jumps(labels ...int) *Builder {
	b.cur.succs = append(b.cur.succs, labels...)
	return b
}

// Exit marks the current block as a function exit.
func (b *Builder) Exit() *Builder {
	b.cur.exit = true
	return b
}

// Inst appends an instruction to the current block.
func (b *Builder) Inst(op string, operands ...Operand) *Builder {
	b.cur.instrs = append(b.cur.instrs, &Instr{Op: op, Operands: operands})
	return b
}

// Term is Inst for a block-ending instruction (sets InstFlagTerminator).
func (b *Builder) Term(op string, operands ...Operand) *Builder {
	b.cur.instrs = append(b.cur.instrs, &Instr{Op: op, Operands: operands, Terminator: true})
	return b
}

// LastInstr returns the most recently appended instruction in the
// current block, for callers that need to inspect its rewritten
// operands after RunOnFunction.
func (b *Builder) LastInstr() *Instr {
	return b.cur.instrs[len(b.cur.instrs)-1]
}

// Virt returns (creating on first reference) the VirtReg for id.
func (b *Builder) Virt(id int32, group regalloc.RegGroup, byteSize uint32) *regalloc.VirtReg {
	if v, ok := b.virts[id]; ok {
		return v
	}
	v := &regalloc.VirtReg{ID: id, Group: group, ByteSize: byteSize, Alignment: byteSize}
	b.virts[id] = v
	return v
}
