package village

import "fmt"

// SaveState is the raw bulk state exchanged with the persistence layer.
// It carries enough to reconstruct an identical simulation snapshot.
type SaveState struct {
	Elapsed float64    `json:"elapsed"`
	Version uint64     `json:"version"`
	Clock   ClockState `json:"clock"`

	Inventory InventoryState  `json:"inventory"`
	Workers   WorkersState    `json:"workers"`
	Buildings []BuildingState `json:"buildings"`
	Trade     []ChannelState  `json:"trade"`
}

type InventoryState struct {
	Quantities map[string]float64 `json:"quantities"`
	Capacities map[string]float64 `json:"capacities"`
}

type WorkersState struct {
	Total       int         `json:"total"`
	Assignments map[int]int `json:"assignments"`
}

type BuildingState struct {
	ID            int     `json:"id"`
	Type          string  `json:"type"`
	Built         int     `json:"built"`
	Enabled       bool    `json:"enabled"`
	Workers       int     `json:"assigned_workers"`
	CycleProgress float64 `json:"cycle_progress"`
}

// ExportState captures the full mutable state for persistence.
func (s *Simulation) ExportState() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()

	quantities := make(map[string]float64)
	for r, amount := range s.ledger.Snapshot() {
		quantities[string(r)] = amount
	}
	capacities := make(map[string]float64)
	for r, c := range s.ledger.Capacities() {
		capacities[string(r)] = c
	}

	buildings := make([]BuildingState, 0, len(s.order))
	for _, id := range s.order {
		b := s.buildings[id]
		buildings = append(buildings, BuildingState{
			ID:            b.ID,
			Type:          b.Type,
			Built:         b.Built,
			Enabled:       b.Enabled,
			Workers:       b.AssignedWorkers,
			CycleProgress: b.CycleProgress,
		})
	}

	return SaveState{
		Elapsed:   s.elapsed,
		Version:   s.version,
		Clock:     s.clock.Export(),
		Inventory: InventoryState{Quantities: quantities, Capacities: capacities},
		Workers:   WorkersState{Total: s.pool.Total(), Assignments: s.pool.Assignments()},
		Buildings: buildings,
		Trade:     s.trade.Export(),
	}
}

// ImportState resets the simulation and applies a saved state. Buildings
// are matched by type against the current catalog; types the catalog no
// longer knows are rejected rather than silently dropped.
func (s *Simulation) ImportState(state SaveState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.resetLocked(); err != nil {
		return err
	}

	s.clock.Import(state.Clock)
	s.elapsed = state.Elapsed

	// Population first so assignment claw-back sees the saved total.
	s.pool.SetTotal(max(0, state.Workers.Total))

	for _, bs := range state.Buildings {
		b, ok := s.byType[bs.Type]
		if !ok {
			return fmt.Errorf("save state: unknown building type %q", bs.Type)
		}
		b.Built = max(0, bs.Built)
		// Unbuilt sites keep their saved flag; the tick loop already
		// treats Built == 0 as inactive.
		b.Enabled = bs.Enabled
		b.CycleProgress = bs.CycleProgress
		if b.CycleProgress < 0 {
			b.CycleProgress = 0
		}
		s.pool.SetAssignment(b, bs.Workers)
	}

	// Derived caps first, then the saved caps as the authority.
	s.recomputeCapacitiesLocked()
	for key, c := range state.Inventory.Capacities {
		r, err := ParseResource(key)
		if err != nil {
			return fmt.Errorf("save state capacities: %w", err)
		}
		s.ledger.SetCapacity(r, c)
	}
	for key, amount := range state.Inventory.Quantities {
		r, err := ParseResource(key)
		if err != nil {
			return fmt.Errorf("save state quantities: %w", err)
		}
		s.ledger.Set(r, amount)
	}

	if err := s.trade.Import(state.Trade); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	if state.Version > s.version {
		s.version = state.Version
	}
	s.version++
	return nil
}
