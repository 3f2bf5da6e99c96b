package village

import (
	"math"
	"strconv"
)

// BuildingSnapshot is the read-only projection of one building.
type BuildingSnapshot struct {
	ID            int     `json:"id"`
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	Built         int     `json:"built"`
	Enabled       bool    `json:"enabled"`
	Workers       int     `json:"workers"`
	MaxWorkers    int     `json:"max_workers"`
	CycleTime     float64 `json:"cycle_time,omitempty"`
	CycleProgress float64 `json:"cycle_progress"`
	Continuous    bool    `json:"continuous,omitempty"`
	Tag           string  `json:"tag,omitempty"`

	Inputs      map[string]float64 `json:"inputs,omitempty"`
	Outputs     map[string]float64 `json:"outputs,omitempty"`
	Maintenance map[string]float64 `json:"maintenance,omitempty"`
	BuildCost   map[string]float64 `json:"build_cost,omitempty"`

	EffectiveRate float64        `json:"effective_rate"`
	ModifierTotal float64        `json:"modifier_total"`
	LastReport    ReportSnapshot `json:"last_report"`
}

// ReportSnapshot is the wire form of a production report.
type ReportSnapshot struct {
	Status           string             `json:"status"`
	Reason           string             `json:"reason,omitempty"`
	Detail           string             `json:"detail,omitempty"`
	Cycles           int                `json:"cycles,omitempty"`
	EffectiveWorkers int                `json:"effective_workers,omitempty"`
	Consumed         map[string]float64 `json:"consumed,omitempty"`
	Produced         map[string]float64 `json:"produced,omitempty"`
}

func reportSnapshot(rep Report) ReportSnapshot {
	out := ReportSnapshot{
		Status:           string(rep.Status),
		Reason:           string(rep.Reason),
		Cycles:           rep.Cycles,
		EffectiveWorkers: rep.EffectiveWorkers,
		Consumed:         lowerAmounts(rep.Consumed),
		Produced:         lowerAmounts(rep.Produced),
	}
	if rep.Detail != "" {
		out.Detail = rep.Detail.Key()
	}
	return out
}

func lowerAmounts(in map[Resource]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for r, v := range in {
		out[r.Key()] = v
	}
	return out
}

func (s *Simulation) snapshotBuildingLocked(b *Building) BuildingSnapshot {
	rate := 0.0
	if b.Recipe.MaxWorkers > 0 {
		rate = math.Min(1, float64(b.AssignedWorkers)/float64(b.Recipe.MaxWorkers))
	}
	return BuildingSnapshot{
		ID:            b.ID,
		Type:          b.Type,
		Name:          b.Name,
		Built:         b.Built,
		Enabled:       b.Enabled,
		Workers:       b.AssignedWorkers,
		MaxWorkers:    b.Recipe.MaxWorkers,
		CycleTime:     b.Recipe.CycleTime,
		CycleProgress: b.CycleProgress,
		Continuous:    b.Recipe.Continuous(),
		Tag:           b.Recipe.Tag,
		Inputs:        lowerAmounts(b.Recipe.Inputs),
		Outputs:       lowerAmounts(b.Recipe.Outputs),
		Maintenance:   lowerAmounts(b.Recipe.Maintenance),
		BuildCost:     lowerAmounts(b.Recipe.BuildCost),
		EffectiveRate: rate,
		ModifierTotal: s.clock.TotalModifier(b.Recipe.Tag),
		LastReport:    reportSnapshot(b.LastReport),
	}
}

// SnapshotBuilding returns one building's projection.
func (s *Simulation) SnapshotBuilding(id int) (BuildingSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buildings[id]
	if !ok {
		return BuildingSnapshot{}, &NotFoundError{Kind: "building", Key: strconv.Itoa(id)}
	}
	return s.snapshotBuildingLocked(b), nil
}

// SnapshotAll returns every building in tick order.
func (s *Simulation) SnapshotAll() []BuildingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BuildingSnapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.snapshotBuildingLocked(s.buildings[id]))
	}
	return out
}

// ResourceSnapshot is one inventory line.
type ResourceSnapshot struct {
	Resource string   `json:"resource"`
	Amount   float64  `json:"amount"`
	Capacity *float64 `json:"capacity,omitempty"`
}

// InventorySnapshot lists every known resource with amount and cap.
func (s *Simulation) InventorySnapshot() []ResourceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ResourceSnapshot, 0, len(AllResources))
	for _, r := range AllResources {
		line := ResourceSnapshot{Resource: r.Key(), Amount: s.ledger.Amount(r)}
		if c, ok := s.ledger.Capacity(r); ok {
			limit := c
			line.Capacity = &limit
		}
		out = append(out, line)
	}
	return out
}

// TradeSnapshot lists every trade channel.
func (s *Simulation) TradeSnapshot() []ChannelSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trade.Snapshot()
}

// SeasonSnapshot is the HUD season block.
type SeasonSnapshot struct {
	Name     string  `json:"season_name"`
	Index    int     `json:"season_index"`
	Progress float64 `json:"progress"`
	TimeLeft float64 `json:"time_left"`
}

// PopulationSnapshot is the HUD worker block.
type PopulationSnapshot struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// HUDSnapshot is the aggregate projection pushed to UIs every tick.
type HUDSnapshot struct {
	Version       uint64             `json:"version"`
	Elapsed       float64            `json:"elapsed"`
	Season        SeasonSnapshot     `json:"season"`
	Population    PopulationSnapshot `json:"population"`
	Gold          float64            `json:"gold"`
	Notifications []StallNotice      `json:"notifications"`
	Events        []string           `json:"events,omitempty"`
}

// HUD builds the aggregate snapshot without mutating state.
func (s *Simulation) HUD() HUDSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HUDSnapshot{
		Version: s.version,
		Elapsed: s.elapsed,
		Season: SeasonSnapshot{
			Name:     s.clock.Current(),
			Index:    s.clock.Index(),
			Progress: s.clock.Progress(),
			TimeLeft: s.clock.TimeLeft(),
		},
		Population: PopulationSnapshot{
			Total:     s.pool.Total(),
			Available: s.pool.Available(),
		},
		Gold:          s.ledger.Amount(ResGold),
		Notifications: s.board.Stalls(),
		Events:        s.board.Feed(),
	}
}
