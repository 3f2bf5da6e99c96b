package village

import "sort"

// WorkerPool tracks the total population and per-building assignment.
// It keeps back-references to registered buildings for their assignment
// counters only; the Simulation owns the buildings themselves.
//
// Invariant: the sum of assigned workers never exceeds the total, and no
// building holds more workers than its recipe allows.
type WorkerPool struct {
	total     int
	buildings map[int]*Building
}

func NewWorkerPool(total int) *WorkerPool {
	return &WorkerPool{
		total:     max(0, total),
		buildings: make(map[int]*Building),
	}
}

func (p *WorkerPool) Total() int { return p.total }

// SetTotal adjusts the population. When it shrinks below the assigned
// sum, workers are clawed back building by building in id order.
func (p *WorkerPool) SetTotal(total int) {
	p.total = max(0, total)
	p.reconcile()
}

// Available recomputes the free worker count from current assignments;
// it is never cached across mutations.
func (p *WorkerPool) Available() int {
	assigned := 0
	for _, b := range p.buildings {
		assigned += max(0, b.AssignedWorkers)
	}
	return max(0, p.total-assigned)
}

func (p *WorkerPool) Register(b *Building) {
	p.buildings[b.ID] = b
}

// Unregister removes a building from the pool, releasing its workers.
func (p *WorkerPool) Unregister(id int) int {
	b, ok := p.buildings[id]
	if !ok {
		return 0
	}
	delete(p.buildings, id)
	released := max(0, b.AssignedWorkers)
	b.AssignedWorkers = 0
	return released
}

func (p *WorkerPool) Assignment(id int) int {
	b, ok := p.buildings[id]
	if !ok {
		return 0
	}
	return max(0, b.AssignedWorkers)
}

// Assign adds up to requested workers to the building and returns the
// applied count. A request that cannot be satisfied at all (no free
// population, or the building is already at capacity) is an
// AllocationError rather than a silent zero, so callers can tell
// "rejected" apart from "partially satisfied".
func (p *WorkerPool) Assign(b *Building, requested int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}
	p.Register(b)
	room := b.Recipe.MaxWorkers - b.AssignedWorkers
	if room <= 0 {
		return 0, &AllocationError{BuildingID: b.ID, Reason: AllocAtCapacity}
	}
	available := p.Available()
	if available <= 0 {
		return 0, &AllocationError{BuildingID: b.ID, Reason: AllocNoPopulation}
	}
	applied := min(requested, min(available, room))
	b.AssignedWorkers += applied
	return applied, nil
}

// Unassign removes up to requested workers and returns the released count.
func (p *WorkerPool) Unassign(b *Building, requested int) int {
	if requested <= 0 {
		return 0
	}
	released := min(requested, max(0, b.AssignedWorkers))
	if released <= 0 {
		return 0
	}
	b.AssignedWorkers -= released
	return released
}

// SetAssignment force-sets a building's worker count (used by save
// import), clamped to the recipe maximum. The pool is reconciled
// afterwards so the labor invariant holds even against bad data.
func (p *WorkerPool) SetAssignment(b *Building, workers int) {
	p.Register(b)
	b.AssignedWorkers = max(0, min(workers, b.Recipe.MaxWorkers))
	p.reconcile()
}

// reconcile claws back any excess assignment. Buildings are visited in
// ascending id order so the claw-back is deterministic.
func (p *WorkerPool) reconcile() {
	for _, id := range p.sortedIDs() {
		b := p.buildings[id]
		if b.AssignedWorkers > b.Recipe.MaxWorkers {
			b.AssignedWorkers = b.Recipe.MaxWorkers
		}
		if b.AssignedWorkers < 0 {
			b.AssignedWorkers = 0
		}
	}
	assigned := 0
	for _, b := range p.buildings {
		assigned += b.AssignedWorkers
	}
	overflow := assigned - p.total
	if overflow <= 0 {
		return
	}
	for _, id := range p.sortedIDs() {
		if overflow <= 0 {
			break
		}
		b := p.buildings[id]
		removed := min(b.AssignedWorkers, overflow)
		b.AssignedWorkers -= removed
		overflow -= removed
	}
}

func (p *WorkerPool) sortedIDs() []int {
	ids := make([]int, 0, len(p.buildings))
	for id := range p.buildings {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Assignments returns the id → workers map for persistence export.
func (p *WorkerPool) Assignments() map[int]int {
	out := make(map[int]int, len(p.buildings))
	for id, b := range p.buildings {
		out[id] = max(0, b.AssignedWorkers)
	}
	return out
}
