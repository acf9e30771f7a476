package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/brinkqiang2cpp/rapass/internal/arch/demo"
	"github.com/brinkqiang2cpp/rapass/internal/regalloc"
)

// fixtureFunc is the on-disk JSON shape for one synthetic function fed
// to the demo collaborator -- a deliberately thin format, since the
// point of cmd/rapass is to exercise the pass, not to define a real
// instruction encoding.
type fixtureFunc struct {
	Name      string           `json:"name"`
	IntRegs   int              `json:"intRegs"`
	FloatRegs int              `json:"floatRegs"`
	Blocks    []fixtureBlock   `json:"blocks"`
}

type fixtureBlock struct {
	Label       int              `json:"label"`
	Succs       []int            `json:"succs"`
	Fallthrough bool             `json:"fallthrough"`
	Exit        bool             `json:"exit"`
	Instrs      []fixtureInstr   `json:"instrs"`
}

type fixtureInstr struct {
	Op         string            `json:"op"`
	Terminator bool              `json:"terminator"`
	Operands   []fixtureOperand  `json:"operands"`
}

type fixtureOperand struct {
	Virt  int32            `json:"virt"`
	Group regalloc.RegGroup `json:"group"`
	Size  uint32           `json:"size"`
	Use   bool             `json:"use"`
	Def   bool             `json:"def"`
	Kill  bool             `json:"kill"`
	Fixed regalloc.PhysID  `json:"fixed"`
}

func loadFixture(path string) (*fixtureFunc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading fixture %s", path)
	}
	var f fixtureFunc
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing fixture %s", path)
	}
	return &f, nil
}

// buildProgram replays a parsed fixture through demo.Builder.
func buildProgram(f *fixtureFunc) *demo.Program {
	b := demo.NewBuilder()
	for _, bd := range f.Blocks {
		b.Block(bd.Label)
		if bd.Exit {
			b.Exit()
		}
		for _, in := range bd.Instrs {
			operands := make([]demo.Operand, len(in.Operands))
			for i, op := range in.Operands {
				v := b.Virt(op.Virt, op.Group, op.Size)
				fixed := op.Fixed
				switch {
				case op.Kill:
					operands[i] = demo.UseKill(v, fixed)
				case op.Use && op.Def:
					operands[i] = demo.UseDef(v, fixed)
				case op.Use:
					operands[i] = demo.Use(v, fixed)
				case op.Def:
					operands[i] = demo.Def(v, fixed)
				}
			}
			if in.Terminator {
				b.Term(in.Op, operands...)
			} else {
				b.Inst(in.Op, operands...)
			}
		}
		if bd.Fallthrough {
			b.Succs(bd.Succs...)
		} else {
			b.Jumps(bd.Succs...)
		}
	}

	opts := []func(*demo.Program){}
	if f.IntRegs > 0 {
		opts = append(opts, demo.WithRegFile(regalloc.RegGroupInt, demo.RegFile{
			Count: f.IntRegs, Available: allOnes(f.IntRegs), CalleeSaved: 0, ByteSize: 8,
		}))
	}
	if f.FloatRegs > 0 {
		opts = append(opts, demo.WithRegFile(regalloc.RegGroupFloat, demo.RegFile{
			Count: f.FloatRegs, Available: allOnes(f.FloatRegs), CalleeSaved: 0, ByteSize: 8,
		}))
	}
	return demo.NewProgram(b, opts...)
}

func allOnes(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}
