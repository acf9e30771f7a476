package regalloc

// PhysToWorkMap and WorkToPhysMap are mutually-inverse assignment maps
// recording, at one program point, which work-reg occupies which
// physical register. Per spec.md §3 the invariant is:
//
//	PhysToWork[p] = w != NoWork  =>  WorkToPhys[w] = p
//	WorkToPhys[w] = p != NoPhys  =>  PhysToWork[p] = w
//
// Physical ids are partitioned per register group; slots are indexed
// [group][physId].
type PhysToWorkMap struct {
	slots [numRegGroups][]WorkID
}

// NewPhysToWorkMap builds an empty map sized for physCounts[g] physical
// ids in group g.
func NewPhysToWorkMap(physCounts [numRegGroups]int) *PhysToWorkMap {
	m := &PhysToWorkMap{}
	for g := 0; g < int(numRegGroups); g++ {
		s := make([]WorkID, physCounts[g])
		for i := range s {
			s[i] = NoWork
		}
		m.slots[g] = s
	}
	return m
}

func (m *PhysToWorkMap) Get(group RegGroup, phys PhysID) WorkID {
	return m.slots[group][phys]
}

func (m *PhysToWorkMap) Set(group RegGroup, phys PhysID, w WorkID) {
	m.slots[group][phys] = w
}

// Clone deep-copies the map (equivalent to clonePhysToWorkMap in
// original_source/rapass_p.h).
func (m *PhysToWorkMap) Clone() *PhysToWorkMap {
	out := &PhysToWorkMap{}
	for g := 0; g < int(numRegGroups); g++ {
		out.slots[g] = append([]WorkID(nil), m.slots[g]...)
	}
	return out
}

// WorkToPhysMap is the inverse of PhysToWorkMap, indexed by WorkID.
type WorkToPhysMap struct {
	slots []PhysID
}

func NewWorkToPhysMap(workRegCount int) *WorkToPhysMap {
	s := make([]PhysID, workRegCount)
	for i := range s {
		s[i] = NoPhys
	}
	return &WorkToPhysMap{slots: s}
}

func (m *WorkToPhysMap) Get(w WorkID) PhysID   { return m.slots[w] }
func (m *WorkToPhysMap) Set(w WorkID, p PhysID) { m.slots[w] = p }

func (m *WorkToPhysMap) Clone() *WorkToPhysMap {
	return &WorkToPhysMap{slots: append([]PhysID(nil), m.slots...)}
}

// assignment bundles the two mirror maps the local allocator threads
// through a block, plus the helpers to mutate both sides consistently.
type assignment struct {
	physToWork *PhysToWorkMap
	workToPhys *WorkToPhysMap
}

func newAssignment(physCounts [numRegGroups]int, workRegCount int) *assignment {
	return &assignment{
		physToWork: NewPhysToWorkMap(physCounts),
		workToPhys: NewWorkToPhysMap(workRegCount),
	}
}

func (a *assignment) clone() *assignment {
	return &assignment{physToWork: a.physToWork.Clone(), workToPhys: a.workToPhys.Clone()}
}

// bind records workId <-> physId, evicting any prior occupant of physId
// first so the two maps stay inverses of each other.
func (a *assignment) bind(group RegGroup, w WorkID, p PhysID) {
	if prevWork := a.physToWork.Get(group, p); prevWork != NoWork && prevWork != w {
		a.workToPhys.Set(prevWork, NoPhys)
	}
	if prevPhys := a.workToPhys.Get(w); prevPhys != NoPhys && prevPhys != p {
		a.physToWork.Set(group, prevPhys, NoWork)
	}
	a.physToWork.Set(group, p, w)
	a.workToPhys.Set(w, p)
}

// unbind spills workId: it no longer occupies any physical register.
func (a *assignment) unbind(group RegGroup, w WorkID) {
	if p := a.workToPhys.Get(w); p != NoPhys {
		a.physToWork.Set(group, p, NoWork)
		a.workToPhys.Set(w, NoPhys)
	}
}
