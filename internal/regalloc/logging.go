package regalloc

import "github.com/sirupsen/logrus"

// dumpDebug emits structured diagnostic dumps gated by Config.LoggerFlags,
// called once at the end of RunOnFunction when DebugPasses is set.
func (p *Pass) dumpDebug() {
	flags := p.config.LoggerFlags
	if flags&LogDumpBlocks != 0 {
		p.dumpBlocks()
	}
	if flags&LogDumpLiveness != 0 {
		p.dumpLiveness()
	}
	if flags&LogDumpLiveSpans != 0 {
		p.dumpLiveSpans()
	}
}

func (p *Pass) dumpBlocks() {
	for _, b := range p.arena.blocks {
		entry := p.logger.WithFields(logrus.Fields{
			"block":      int32(b.id),
			"reachable":  b.IsReachable(),
			"idom":       idomID(b),
			"preds":      blockIDs(b.Preds),
			"succs":      blockIDs(b.Succs),
			"firstIndex": b.FirstIndex,
			"lastIndex":  b.LastIndex,
		})
		entry.Debug("block")
	}
}

func (p *Pass) dumpLiveness() {
	for _, b := range p.arena.blocks {
		if !b.IsReachable() {
			continue
		}
		p.logger.WithFields(logrus.Fields{
			"block": int32(b.id),
			"in":    b.IN.Count(),
			"out":   b.OUT.Count(),
			"gen":   b.GEN.Count(),
			"kill":  b.KILL.Count(),
		}).Debug("liveness")
	}
}

func (p *Pass) dumpLiveSpans() {
	for _, w := range p.arena.workRegs {
		p.logger.WithFields(logrus.Fields{
			"work":   int32(w.WorkID),
			"group":  w.Group.String(),
			"spans":  len(w.LiveSpans),
			"global": int16(w.globalPhys),
			"refs":   w.RefCount,
		}).Debug("live span")
	}
}

func idomID(b *Block) int32 {
	if b.IDom == nil {
		return int32(NoBlock)
	}
	return int32(b.IDom.id)
}

func blockIDs(blocks []*Block) []int32 {
	ids := make([]int32, len(blocks))
	for i, b := range blocks {
		ids[i] = int32(b.id)
	}
	return ids
}
