package demo

import (
	"fmt"

	"github.com/brinkqiang2cpp/rapass/internal/regalloc"
)

// RegFile describes one register group's physical file for a Program.
type RegFile struct {
	Count       int
	Available   uint64
	CalleeSaved uint64
	ByteSize    uint32
}

func defaultRegFile() RegFile {
	return RegFile{Count: 8, Available: 0xff, CalleeSaved: 0xf0, ByteSize: 8}
}

// Program is a regalloc.Collaborator over a Builder's recorded blocks.
// It also doubles as the result holder: after RunOnFunction, Emitted
// records every OnEmit* call in program order and each Instr's Phys
// slice holds the rewritten physical ids.
type Program struct {
	blocks  []*blockDef
	regs    [2]RegFile // indexed by regalloc.RegGroup
	byLabel map[int]*regalloc.Block

	Emitted []string
}

// NewProgram builds a Program from b, using 8 allocable integer and 8
// allocable float registers unless overridden with WithRegFile.
func NewProgram(b *Builder, opts ...func(*Program)) *Program {
	p := &Program{
		blocks: b.blocks,
		regs:   [2]RegFile{defaultRegFile(), defaultRegFile()},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// WithRegFile overrides the register file for one group.
func WithRegFile(group regalloc.RegGroup, f RegFile) func(*Program) {
	return func(p *Program) { p.regs[group] = f }
}

func (p *Program) OnInit(pass *regalloc.Pass) error {
	for g := 0; g < regalloc.NumRegGroups(); g++ {
		f := p.regs[g]
		pass.SetPhysRegs(regalloc.RegGroup(g), f.Count, f.Available, f.CalleeSaved, f.ByteSize)
	}
	return nil
}

func (p *Program) OnDone() {}

// BuildCFG replays the builder's recorded blocks into the pass,
// mirroring buildCFG/assignRAInst from the collaborator contract: every
// block is created and added in recorded order (so the first declared
// block is the entry block), successors are linked, and every
// instruction's operands are fed through one InstBuilder per
// instruction.
func (p *Program) BuildCFG(pass *regalloc.Pass) error {
	p.byLabel = make(map[int]*regalloc.Block, len(p.blocks))

	for _, bd := range p.blocks {
		blk := pass.NewBlockOrExistingAt(bd.label)
		pass.AddBlock(blk)
		p.byLabel[bd.label] = blk
		if bd.exit {
			pass.AddExitBlock(blk)
		}
	}

	for _, bd := range p.blocks {
		blk := p.byLabel[bd.label]
		for i, succLabel := range bd.succs {
			succ, ok := p.byLabel[succLabel]
			if !ok {
				return fmt.Errorf("demo: block %d references unknown successor %d", bd.label, succLabel)
			}
			if i == 0 && bd.fallsThru {
				pass.PrependSuccessor(blk, succ)
			} else {
				pass.AppendSuccessor(blk, succ)
			}
		}
	}

	ib := regalloc.NewInstBuilder()
	for _, bd := range p.blocks {
		blk := p.byLabel[bd.label]
		for _, instr := range bd.instrs {
			ib.Reset()
			instr.Phys = make([]regalloc.PhysID, len(instr.Operands))
			for fi, op := range instr.Operands {
				w, err := pass.AsWorkReg(op.Virt)
				if err != nil {
					return err
				}

				allocable := op.Allocable
				if allocable == 0 {
					allocable = p.regs[op.Virt.Group].Available
				}

				var flags uint32
				var useID, outID regalloc.PhysID = regalloc.NoPhys, regalloc.NoPhys
				var useMask, outMask uint32

				if op.Use {
					flags |= regalloc.TiedUse
					useMask = 1 << uint(fi)
					if op.Fixed != regalloc.NoPhys {
						useID = op.Fixed
					}
					if op.Kill {
						flags |= regalloc.TiedKill
					}
				}
				if op.Def {
					flags |= regalloc.TiedOut
					outMask = 1 << uint(fi)
					if op.Fixed != regalloc.NoPhys {
						outID = op.Fixed
					}
				}

				if err := ib.Add(w, flags, allocable, useID, useMask, outID, outMask); err != nil {
					return err
				}
			}
			if instr.Terminator {
				ib.SetFlags(regalloc.InstFlagTerminator)
			}
			if _, err := pass.AssignInst(blk, instr, ib); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Program) OnEmitMove(workID regalloc.WorkID, dst, src regalloc.PhysID) {
	p.Emitted = append(p.Emitted, fmt.Sprintf("move w%d %d<-%d", workID, dst, src))
}

func (p *Program) OnEmitSwap(aWork regalloc.WorkID, aPhys regalloc.PhysID, bWork regalloc.WorkID, bPhys regalloc.PhysID) {
	p.Emitted = append(p.Emitted, fmt.Sprintf("swap w%d@%d w%d@%d", aWork, aPhys, bWork, bPhys))
}

func (p *Program) OnEmitLoad(workID regalloc.WorkID, dst regalloc.PhysID) {
	p.Emitted = append(p.Emitted, fmt.Sprintf("load w%d->%d", workID, dst))
}

func (p *Program) OnEmitSave(workID regalloc.WorkID, src regalloc.PhysID) {
	p.Emitted = append(p.Emitted, fmt.Sprintf("save w%d<-%d", workID, src))
}

func (p *Program) OnEmitJump(label regalloc.BlockID) {
	p.Emitted = append(p.Emitted, fmt.Sprintf("jump b%d", label))
}

func (p *Program) OnEmitPrologue(block regalloc.BlockID, frame regalloc.Frame) {
	p.Emitted = append(p.Emitted, fmt.Sprintf("prologue b%d frame=%d", block, frame.TotalSize))
}

func (p *Program) OnEmitEpilogue(block regalloc.BlockID, frame regalloc.Frame) {
	p.Emitted = append(p.Emitted, fmt.Sprintf("epilogue b%d frame=%d", block, frame.TotalSize))
}

func (p *Program) OnRewriteOperand(node any, fieldIndex uint32, phys regalloc.PhysID) {
	instr := node.(*Instr)
	instr.Phys[fieldIndex] = phys
}
