package regalloc

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config mirrors spec.md §6's enumerated configuration: {disableCompiler,
// debugPasses, loggerFlags}.
type Config struct {
	DisableCompiler bool
	DebugPasses     bool
	LoggerFlags     uint32

	// PhysRegCount/AvailableRegs/CalleeSavedRegs/RegByteSize are supplied
	// by the architecture collaborator during OnInit via Pass setters;
	// zero values here are filled in before BuildCFG runs.
	PhysRegCount    [numRegGroups]int
	AvailableRegs   [numRegGroups]uint64
	CalleeSavedRegs [numRegGroups]uint64
	RegByteSize     [numRegGroups]uint32
}

// Option configures a Pass before RunOnFunction.
type Option func(*Config)

func WithDebugPasses(flags uint32) Option {
	return func(c *Config) {
		c.DebugPasses = true
		c.LoggerFlags = flags
	}
}

func WithDisableCompiler() Option {
	return func(c *Config) { c.DisableCompiler = true }
}

// Collaborator is the architecture-specific contract the pass requires
// (spec.md §6). BuildCFG populates blocks/exits/tied data by calling
// back into the Pass's CFG-construction methods (NewBlock, AddBlock,
// AssignInst, AsWorkReg, ...). The OnEmit* hooks let the local
// allocator and edge reconciliation request concrete code emission
// without the core knowing anything about instruction encoding.
// OnRewriteOperand is the mechanical last step (spec.md §4.8): for
// every set bit in a tied reg's rewrite mask, the rewriter hands the
// opaque node back to the collaborator along with the bit index and
// the resolved physical id.
type Collaborator interface {
	OnInit(p *Pass) error
	OnDone()

	BuildCFG(p *Pass) error

	OnEmitMove(workID WorkID, dst, src PhysID)
	OnEmitSwap(aWork WorkID, aPhys PhysID, bWork WorkID, bPhys PhysID)
	OnEmitLoad(workID WorkID, dst PhysID)
	OnEmitSave(workID WorkID, src PhysID)
	OnEmitJump(label BlockID)

	// OnEmitPrologue/OnEmitEpilogue materialize frame setup/teardown at
	// the function's entry block and at each of its exit blocks
	// (spec.md §4.7 insertPrologEpilog). block identifies where; frame
	// is the fully finalized layout (spill/callee-saved/arg areas).
	OnEmitPrologue(block BlockID, frame Frame)
	OnEmitEpilogue(block BlockID, frame Frame)

	OnRewriteOperand(node any, fieldIndex uint32, phys PhysID)
}

// Result is the outcome of a successful RunOnFunction.
type Result struct {
	BlockCount           int
	ReachableBlockCount  int
	ClobberedRegs        [numRegGroups]uint64
	MaxLiveCount         [numRegGroups]int
	GlobalMaxLiveCount   int
	Frame                Frame
	SpillCount           int
	LoadCount            int
	MoveCount            int
	SwapCount            int
}

// Pass is one register-allocation run. It is single-use: call
// RunOnFunction once, then discard it; the next function needs a fresh
// Pass (spec.md §5, non-reentrant).
type Pass struct {
	arena  *Arena
	logger *logrus.Entry
	config Config
	collab Collaborator

	virtToWork map[int32]*WorkReg
	labelBlock map[int]*Block // label id -> block, for NewBlockOrExistingAt

	// insts is the function-wide, program-order instruction list built
	// by the CFG builder. Block.FirstIndex/LastIndex index into it.
	insts []*Inst

	pov []*Block // post-order
	rpo []*Block // reverse post-order

	exits []*Block

	clobberedRegs [numRegGroups]uint64
	maxLiveCount  [numRegGroups]int
	globalMax     int

	frame Frame

	lastTimestamp uint64

	spillCount, loadCount, moveCount, swapCount int
}

// NewPass creates a Pass bound to the given arena, logger and
// collaborator, applying opts over the zero Config.
func NewPass(arena *Arena, logger *logrus.Logger, collab Collaborator, opts ...Option) *Pass {
	var cfg Config
	for _, o := range opts {
		o(&cfg)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Pass{
		arena:      arena,
		logger:     logger.WithField("component", "regalloc"),
		config:     cfg,
		collab:     collab,
		virtToWork: make(map[int32]*WorkReg),
		labelBlock: make(map[int]*Block),
	}
}

// RunOnFunction drives the whole pipeline described in spec.md §2.
// onDone runs on every exit path, including errors and panics
// recovered at this boundary (spec.md §7, §9 "Scoped arena resource").
func (p *Pass) RunOnFunction() (result *Result, err error) {
	if p.config.DisableCompiler {
		return &Result{}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("rapass: panic during allocation: %v", r)
		}
		p.collab.OnDone()
		p.arena.Reset()
	}()

	if err := p.collab.OnInit(p); err != nil {
		return nil, errors.Wrap(err, "onInit")
	}

	if err := p.collab.BuildCFG(p); err != nil {
		return nil, errors.Wrap(err, "buildCFG")
	}
	if p.arena.hasDanglingBlocks() {
		return nil, wrapf(ErrInconsistentState, "dangling blocks: created %d, added %d", p.arena.createdBlockCount, len(p.arena.blocks))
	}

	if err := p.buildViews(); err != nil {
		return nil, err
	}
	p.removeUnreachableBlocks()
	if err := p.buildDominators(); err != nil {
		return nil, err
	}
	p.computeLoopWeights()
	if err := p.computeLiveness(); err != nil {
		return nil, err
	}
	if err := p.allocateGlobal(); err != nil {
		return nil, err
	}
	if err := p.allocateLocal(); err != nil {
		return nil, err
	}

	p.markStackArgsToKeep()
	p.updateStackFrame()
	p.updateStackArgs()
	p.insertPrologEpilog()

	p.rewrite()

	if p.config.DebugPasses {
		p.dumpDebug()
	}

	return &Result{
		BlockCount:          len(p.arena.blocks),
		ReachableBlockCount: len(p.pov),
		ClobberedRegs:       p.clobberedRegs,
		MaxLiveCount:        p.maxLiveCount,
		GlobalMaxLiveCount:  p.globalMax,
		Frame:               p.frame,
		SpillCount:          p.spillCount,
		LoadCount:           p.loadCount,
		MoveCount:           p.moveCount,
		SwapCount:           p.swapCount,
	}, nil
}

// EntryBlock returns block 0, the function's entry point.
func (p *Pass) EntryBlock() *Block {
	if len(p.arena.blocks) == 0 {
		return nil
	}
	return p.arena.blocks[0]
}

func (p *Pass) BlockCount() int           { return len(p.arena.blocks) }
func (p *Pass) ReachableBlockCount() int  { return len(p.pov) }
func (p *Pass) ClobberedRegs() [numRegGroups]uint64 { return p.clobberedRegs }
func (p *Pass) MaxLiveCount() [numRegGroups]int     { return p.maxLiveCount }

// SetPhysRegs is called by the architecture collaborator from OnInit to
// describe the register file available for this run.
func (p *Pass) SetPhysRegs(group RegGroup, count int, available uint64, calleeSaved uint64, byteSize uint32) {
	p.config.PhysRegCount[group] = count
	p.config.AvailableRegs[group] = available
	p.config.CalleeSavedRegs[group] = calleeSaved
	p.config.RegByteSize[group] = byteSize
}

func (p *Pass) nextTimestamp() uint64 {
	p.lastTimestamp++
	return p.lastTimestamp
}

// KeepArgHome flags an argument work-reg whose stack home must survive
// for the callee's debug/ABI contract (SPEC_FULL.md §11.5).
func (p *Pass) KeepArgHome(w *WorkReg) { w.keepArgHome = true }

func (p *Pass) workRegCount() int { return len(p.arena.workRegs) }
