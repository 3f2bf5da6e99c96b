package village

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"

	"github.com/DerekSmithEstrada/kingdom/internal/sim/catalogs"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/tuning"
)

// Config wires a Simulation instance.
type Config struct {
	Catalog *catalogs.Catalog
	Tuning  tuning.Tuning
	Logger  *log.Logger
}

// Simulation owns one ledger, worker pool, trade set, season clock and
// the building collection, and drives them one tick at a time. All
// mutation happens under a single mutex: the background tick and the
// request handlers serialize against each other here. Internal helpers
// use the ...Locked suffix and assume the mutex is held.
type Simulation struct {
	mu   sync.Mutex
	log  *log.Logger
	tune tuning.Tuning

	catalog *catalogs.Catalog
	recipes map[string]Recipe
	names   map[string]string

	ledger *Ledger
	pool   *WorkerPool
	trade  *TradeSet
	clock  *SeasonClock
	board  *NotificationBoard

	buildings map[int]*Building
	byType    map[string]*Building
	order     []int // tick order: catalog priority desc, then type id

	baseCapacities map[Resource]float64

	elapsed float64
	version uint64
}

func New(cfg Config) (*Simulation, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("simulation: nil catalog")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	recipes := make(map[string]Recipe, len(cfg.Catalog.ByID))
	names := make(map[string]string, len(cfg.Catalog.ByID))
	for id, def := range cfg.Catalog.ByID {
		recipe, err := recipeFromDef(def)
		if err != nil {
			return nil, fmt.Errorf("catalog %q: %w", id, err)
		}
		recipes[id] = recipe
		name := def.Name
		if name == "" {
			name = id
		}
		names[id] = name
	}

	baseCaps, err := ParseAmounts(cfg.Tuning.Capacities)
	if err != nil {
		return nil, fmt.Errorf("tuning capacities: %w", err)
	}

	s := &Simulation{
		log:            logger,
		tune:           cfg.Tuning,
		catalog:        cfg.Catalog,
		recipes:        recipes,
		names:          names,
		baseCapacities: baseCaps,
	}
	if err := s.resetLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func recipeFromDef(def catalogs.BuildingDef) (Recipe, error) {
	inputs, err := ParseAmounts(def.Inputs)
	if err != nil {
		return Recipe{}, err
	}
	outputs, err := ParseAmounts(def.Outputs)
	if err != nil {
		return Recipe{}, err
	}
	maintenance, err := ParseAmounts(def.Maintenance)
	if err != nil {
		return Recipe{}, err
	}
	perOut, err := ParseAmounts(def.PerWorkerOutput)
	if err != nil {
		return Recipe{}, err
	}
	perIn, err := ParseAmounts(def.PerWorkerInput)
	if err != nil {
		return Recipe{}, err
	}
	capacity, err := ParseAmounts(def.Capacity)
	if err != nil {
		return Recipe{}, err
	}
	cost, err := ParseAmounts(def.BuildCost)
	if err != nil {
		return Recipe{}, err
	}
	return Recipe{
		Inputs:          inputs,
		Outputs:         outputs,
		CycleTime:       def.CycleTime,
		MaxWorkers:      def.MaxWorkers,
		Maintenance:     maintenance,
		PerWorkerOutput: perOut,
		PerWorkerInput:  perIn,
		Capacity:        capacity,
		BuildCost:       cost,
		Tag:             def.Tag,
		Priority:        def.Priority,
	}, nil
}

// Reset discards all progress and rebuilds the starting state.
func (s *Simulation) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Simulation) resetLocked() error {
	start, err := ParseAmounts(s.tune.StartingResources)
	if err != nil {
		return fmt.Errorf("tuning starting resources: %w", err)
	}
	tradeDefaults := make(map[Resource]TradeDefault, len(s.tune.Trade))
	for key, d := range s.tune.Trade {
		r, err := ParseResource(key)
		if err != nil {
			return fmt.Errorf("tuning trade: %w", err)
		}
		mode, err := ParseTradeMode(d.Mode)
		if err != nil {
			return fmt.Errorf("tuning trade for %s: %w", r.Key(), err)
		}
		tradeDefaults[r] = TradeDefault{Mode: mode, Rate: d.Rate, Price: d.Price}
	}

	s.ledger = NewLedger(start)
	s.pool = NewWorkerPool(s.tune.Population.Start)
	s.trade = NewTradeSet(tradeDefaults)
	s.clock = NewSeasonClock(s.tune.Season.Seasons, s.tune.Season.DurationSec, s.tune.Season.Modifiers)
	s.board = NewNotificationBoard(s.tune.NotificationLimit)

	s.buildings = make(map[int]*Building, len(s.catalog.Order))
	s.byType = make(map[string]*Building, len(s.catalog.Order))
	s.order = s.order[:0]
	for i, typeKey := range s.catalog.Order {
		b := NewBuilding(i+1, typeKey, s.names[typeKey], s.recipes[typeKey])
		s.buildings[b.ID] = b
		s.byType[typeKey] = b
		s.order = append(s.order, b.ID)
		s.pool.Register(b)
	}

	s.recomputeCapacitiesLocked()
	s.elapsed = 0
	s.version++
	return nil
}

// recomputeCapacitiesLocked rebuilds every storage cap as the tuning
// base plus the contribution of each constructed building unit.
// SetCapacity clamps stored amounts down when a cap shrinks.
func (s *Simulation) recomputeCapacitiesLocked() {
	totals := make(map[Resource]float64, len(s.baseCapacities))
	for r, c := range s.baseCapacities {
		totals[r] = c
	}
	for _, id := range s.order {
		b := s.buildings[id]
		if b.Built <= 0 {
			continue
		}
		for r, c := range b.Recipe.Capacity {
			totals[r] += c * float64(b.Built)
		}
	}
	for _, r := range sortedResources(totals) {
		s.ledger.SetCapacity(r, totals[r])
	}
}

// Tick advances the whole simulation by dt seconds. A zero or negative
// dt is a no-op.
func (s *Simulation) Tick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dt <= 0 {
		return
	}
	s.tickLocked(dt)
}

func (s *Simulation) tickLocked(dt float64) {
	s.elapsed += dt

	for _, season := range s.clock.Update(dt) {
		s.onSeasonStartLocked(season)
	}

	s.trade.Tick(dt, s.ledger, s.board.Push)
	s.applyVillagerIncomeLocked(dt)

	for _, id := range s.order {
		b := s.buildings[id]
		modifier := s.clock.TotalModifier(b.Recipe.Tag)
		rep := b.Tick(dt, s.ledger, modifier)
		s.reconcileStallLocked(b, rep)
	}

	s.version++
}

// onSeasonStartLocked applies the per-season villager grant up to the
// population cap. Rollovers inside one large dt each grant once.
func (s *Simulation) onSeasonStartLocked(season string) {
	grant := s.tune.Season.Grants[season]
	if grant <= 0 {
		return
	}
	total := s.pool.Total()
	capped := total + grant
	if s.tune.Population.Cap > 0 && capped > s.tune.Population.Cap {
		capped = s.tune.Population.Cap
	}
	if capped <= total {
		return
	}
	s.pool.SetTotal(capped)
	s.board.Push(fmt.Sprintf("%d villagers arrived with %s", capped-total, season))
	s.log.Printf("season %s: population %d -> %d", season, total, capped)
}

// applyVillagerIncomeLocked credits the flat per-villager gold trickle.
// Gold is the anchor resource: it is fed here by the orchestrator, not
// by a building.
func (s *Simulation) applyVillagerIncomeLocked(dt float64) {
	rate := s.tune.Population.GoldPerVillagerSec
	if rate <= 0 {
		return
	}
	income := float64(s.pool.Total()) * rate * dt
	if income > 0 {
		s.ledger.Add(map[Resource]float64{ResGold: income})
	}
}

// reconcileStallLocked keeps the keyed missing-input notices in sync
// with the latest report: one notice per (type, resource), cleared as
// soon as the condition stops reproducing.
func (s *Simulation) reconcileStallLocked(b *Building, rep Report) {
	s.board.ClearStallsFor(b.Type)
	if rep.Status != StatusStalled || rep.Reason != ReasonMissingInput {
		return
	}
	detail := rep.Detail
	if detail == "" {
		detail = firstMissing(s.ledger, combineAmounts(b.Recipe.Inputs, b.Recipe.Maintenance))
	}
	if detail == "" {
		return
	}
	key := NotificationKey{BuildingType: b.Type, Resource: detail}
	s.board.SetStall(key, fmt.Sprintf("%s halted: missing %s", b.Name, detail.Key()))
}

// Build constructs one unit of the given type, consuming the build cost.
func (s *Simulation) Build(typeKey string) (BuildingSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	canonical, err := s.catalog.ResolveType(typeKey)
	if err != nil {
		return BuildingSnapshot{}, &NotFoundError{Kind: "building_type", Key: typeKey}
	}
	b := s.byType[canonical]
	cost := b.Recipe.BuildCost
	if !s.ledger.Consume(cost) {
		return BuildingSnapshot{}, &InsufficientResourcesError{Missing: s.ledger.Missing(cost)}
	}
	b.Built++
	if b.Built == 1 {
		b.Enabled = true
	}
	s.recomputeCapacitiesLocked()
	s.version++
	s.log.Printf("built %s (units=%d)", b.Type, b.Built)
	return s.snapshotBuildingLocked(b), nil
}

// Demolish removes one unit, refunding part of the build cost. At zero
// units the building disables and releases its workers back to the pool.
func (s *Simulation) Demolish(id int) (BuildingSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buildings[id]
	if !ok {
		return BuildingSnapshot{}, &NotFoundError{Kind: "building", Key: strconv.Itoa(id)}
	}
	if b.Built <= 0 {
		return BuildingSnapshot{}, &NothingToDemolishError{BuildingID: id}
	}
	b.Built--
	if ratio := s.tune.RefundRatio; ratio > 0 {
		refund := make(map[Resource]float64, len(b.Recipe.BuildCost))
		for r, amount := range b.Recipe.BuildCost {
			refund[r] = amount * ratio
		}
		if residual := s.ledger.Add(refund); residual != nil {
			s.board.Push(fmt.Sprintf("%s refund partly lost: storage full", b.Name))
		}
	}
	if b.Built == 0 {
		b.Enabled = false
		b.CycleProgress = 0
		s.pool.Unassign(b, b.AssignedWorkers)
		s.board.ClearStallsFor(b.Type)
	}
	s.recomputeCapacitiesLocked()
	s.version++
	s.log.Printf("demolished %s (units=%d)", b.Type, b.Built)
	return s.snapshotBuildingLocked(b), nil
}

// Toggle enables or disables production for a building.
func (s *Simulation) Toggle(id int, enabled bool) (BuildingSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buildings[id]
	if !ok {
		return BuildingSnapshot{}, &NotFoundError{Kind: "building", Key: strconv.Itoa(id)}
	}
	b.Enabled = enabled
	if !enabled {
		s.board.ClearStallsFor(b.Type)
	}
	s.version++
	return s.snapshotBuildingLocked(b), nil
}

// WorkerDeltaResult reports the applied part of a worker change.
type WorkerDeltaResult struct {
	Before   int `json:"before"`
	Delta    int `json:"delta"`
	Assigned int `json:"assigned"`
}

// ApplyWorkerDelta assigns (delta > 0) or releases (delta < 0) workers.
// Positive requests that cannot be met at all return an AllocationError;
// partial fills succeed and show up in the returned delta.
func (s *Simulation) ApplyWorkerDelta(id int, delta int) (WorkerDeltaResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buildings[id]
	if !ok {
		return WorkerDeltaResult{}, &NotFoundError{Kind: "building", Key: strconv.Itoa(id)}
	}
	before := b.AssignedWorkers
	switch {
	case delta > 0:
		if b.Built <= 0 {
			return WorkerDeltaResult{}, &AllocationError{BuildingID: id, Reason: AllocNotBuilt}
		}
		applied, err := s.pool.Assign(b, delta)
		if err != nil {
			return WorkerDeltaResult{}, err
		}
		s.version++
		return WorkerDeltaResult{Before: before, Delta: applied, Assigned: b.AssignedWorkers}, nil
	case delta < 0:
		released := s.pool.Unassign(b, -delta)
		s.version++
		return WorkerDeltaResult{Before: before, Delta: -released, Assigned: b.AssignedWorkers}, nil
	default:
		return WorkerDeltaResult{Before: before, Assigned: before}, nil
	}
}

// SetTradeMode switches a channel between pause, import and export.
func (s *Simulation) SetTradeMode(resourceKey, modeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := ParseResource(resourceKey)
	if err != nil {
		return err
	}
	ch, err := s.trade.Channel(r)
	if err != nil {
		return err
	}
	mode, err := ParseTradeMode(modeKey)
	if err != nil {
		return err
	}
	ch.SetMode(mode)
	s.version++
	return nil
}

// SetTradeRate updates a channel's units-per-minute rate.
func (s *Simulation) SetTradeRate(resourceKey string, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := ParseResource(resourceKey)
	if err != nil {
		return err
	}
	ch, err := s.trade.Channel(r)
	if err != nil {
		return err
	}
	ch.SetRate(rate)
	s.version++
	return nil
}

// DrainEvents empties the one-shot notification feed and returns it.
// Intended for a single consumer that persists or forwards the feed.
func (s *Simulation) DrainEvents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.DrainFeed()
}

// Version is the monotonic state counter external collaborators use for
// snapshot caching.
func (s *Simulation) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
