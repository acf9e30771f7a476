package regalloc

// computeLoopWeights derives a per-block loop-nesting weight from back
// edges discovered against the already-built dominator tree, then
// propagates each block's weight onto every work-reg it references.
// Grounded on the teacher's likelyadjust.go loopnest/calculateDepths
// nesting-depth computation, adapted to this module's iterative
// dominator tree (spec.md §4.3): a back edge is exactly an edge b->h
// where h dominates b, so no separate loop-discovery walk is needed.
// Without this, WorkReg.LoopWeight stays at its baseline of 1 for
// every work-reg and priority() degenerates to plain RefCount (spec.md
// §4.5, §4.6, §8 scenario 3).
func (p *Pass) computeLoopWeights() {
	for _, b := range p.rpo {
		b.LoopWeight = 1
	}

	for _, b := range p.rpo {
		for _, succ := range b.Succs {
			if succ.IsReachable() && p.Dominates(succ, b) {
				p.growLoopBody(succ, b)
			}
		}
	}

	for _, inst := range p.insts {
		if !inst.Block.IsReachable() {
			continue
		}
		for gi := range inst.Tied {
			w := p.workReg(inst.Tied[gi].WorkID)
			if inst.Block.LoopWeight > w.LoopWeight {
				w.LoopWeight = inst.Block.LoopWeight
			}
		}
	}
}

// growLoopBody doubles the loop weight of every block in the natural
// loop headed by header with back edge latch->header, walking
// predecessors backward from latch until header is reached. Doubling
// per enclosing back edge mirrors the teacher's outer=1, inner=2, ...
// nesting depth without needing the teacher's separate loop/children
// bookkeeping: a block nested in two loops gets visited by both back
// edges' walks and ends up at weight 4, three loops at weight 8, etc.
func (p *Pass) growLoopBody(header, latch *Block) {
	header.LoopWeight *= 2

	visited := map[BlockID]bool{header.id: true}
	stack := []*Block{latch}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[b.id] {
			continue
		}
		visited[b.id] = true
		b.LoopWeight *= 2
		for _, pr := range b.Preds {
			if !visited[pr.id] {
				stack = append(stack, pr)
			}
		}
	}
}
