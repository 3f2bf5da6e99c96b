package village

import "math"

// Recipe is the static production definition for one building type.
// Discrete buildings batch inputs into outputs every CycleTime seconds;
// continuous buildings (those with per-worker rates) accrue every tick.
type Recipe struct {
	Inputs      map[Resource]float64
	Outputs     map[Resource]float64
	CycleTime   float64
	MaxWorkers  int
	Maintenance map[Resource]float64 // per-cycle upkeep, typically gold

	// Continuous-mode rates, per worker per second.
	PerWorkerOutput map[Resource]float64
	PerWorkerInput  map[Resource]float64

	Capacity  map[Resource]float64 // storage caps contributed to the ledger
	BuildCost map[Resource]float64
	Tag       string // season modifier key
	Priority  int    // tick ordering; higher runs first
}

// Continuous reports whether the recipe uses per-second accrual instead
// of discrete cycles.
func (r Recipe) Continuous() bool { return len(r.PerWorkerOutput) > 0 }

// Status of a building after one tick.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusStalled  Status = "stalled"
	StatusProduced Status = "produced"
)

// StallReason qualifies StatusStalled.
type StallReason string

const (
	ReasonMissingInput StallReason = "missing_input"
	ReasonNoCapacity   StallReason = "no_capacity"
)

// Report is the outcome of one building tick, computed fresh each call.
// Consumed and Produced aggregate every cycle executed within the tick.
type Report struct {
	Status           Status
	Reason           StallReason
	Detail           Resource // the concrete missing or overflowing resource
	Cycles           int
	EffectiveWorkers int
	Consumed         map[Resource]float64
	Produced         map[Resource]float64
}

func inactiveReport() Report { return Report{Status: StatusInactive} }

func (rep *Report) recordConsumed(amounts map[Resource]float64) {
	if rep.Consumed == nil {
		rep.Consumed = make(map[Resource]float64)
	}
	for r, v := range amounts {
		if v > 0 {
			rep.Consumed[r] += v
		}
	}
}

func (rep *Report) recordProduced(amounts map[Resource]float64) {
	if rep.Produced == nil {
		rep.Produced = make(map[Resource]float64)
	}
	for r, v := range amounts {
		if v > 0 {
			rep.Produced[r] += v
		}
	}
}

// Building is one per-type production site. Built counts constructed
// units; zero means the site exists in the collection but is unbuilt.
type Building struct {
	ID              int
	Type            string
	Name            string
	Recipe          Recipe
	Built           int
	Enabled         bool
	AssignedWorkers int
	CycleProgress   float64
	LastReport      Report
}

func NewBuilding(id int, typeKey, name string, recipe Recipe) *Building {
	return &Building{
		ID:      id,
		Type:    typeKey,
		Name:    name,
		Recipe:  recipe,
		Enabled: true,
	}
}

// Tick advances the building by dt seconds against the ledger, applying
// the seasonal modifier, and returns (and stores) the tick report. The
// ledger never goes negative and output past capacity is reported as a
// stall, never dropped silently.
func (b *Building) Tick(dt float64, ledger *Ledger, modifier float64) Report {
	var rep Report
	if b.Recipe.Continuous() {
		rep = b.tickContinuous(dt, ledger, modifier)
	} else {
		rep = b.tickDiscrete(dt, ledger, modifier)
	}
	b.LastReport = rep
	return rep
}

func (b *Building) tickDiscrete(dt float64, ledger *Ledger, modifier float64) Report {
	if b.Built <= 0 || !b.Enabled || b.AssignedWorkers <= 0 || b.Recipe.MaxWorkers <= 0 {
		return inactiveReport()
	}
	rate := float64(b.AssignedWorkers) / float64(b.Recipe.MaxWorkers)
	rate = math.Min(1, math.Max(0, rate)) * modifier
	if rate <= 0 || b.Recipe.CycleTime <= 0 {
		return inactiveReport()
	}

	b.CycleProgress += dt * rate

	rep := inactiveReport()
	needs := combineAmounts(b.Recipe.Inputs, b.Recipe.Maintenance)
	for b.CycleProgress >= b.Recipe.CycleTime {
		if !ledger.Has(needs) {
			rep.Status = StatusStalled
			rep.Reason = ReasonMissingInput
			rep.Detail = firstMissing(ledger, needs)
			// Bank at most one full cycle of progress while stalled.
			b.CycleProgress = b.Recipe.CycleTime
			return rep
		}
		if !ledger.CanAdd(b.Recipe.Outputs) {
			rep.Status = StatusStalled
			rep.Reason = ReasonNoCapacity
			rep.Detail = firstOverCapacity(ledger, b.Recipe.Outputs)
			b.CycleProgress = b.Recipe.CycleTime
			return rep
		}
		ledger.Consume(needs)
		ledger.Add(b.Recipe.Outputs)
		b.CycleProgress -= b.Recipe.CycleTime
		rep.Cycles++
		rep.recordConsumed(needs)
		rep.recordProduced(b.Recipe.Outputs)
	}

	if rep.Cycles > 0 {
		rep.Status = StatusProduced
		rep.EffectiveWorkers = b.AssignedWorkers
	}
	return rep
}

func (b *Building) tickContinuous(dt float64, ledger *Ledger, modifier float64) Report {
	// Continuous accrual is memoryless.
	b.CycleProgress = 0
	if b.Built <= 0 || !b.Enabled || b.AssignedWorkers <= 0 || len(b.Recipe.PerWorkerOutput) == 0 {
		return inactiveReport()
	}
	if dt <= 0 || modifier <= 0 {
		return inactiveReport()
	}

	// Work out how many workers the current stock can feed this tick.
	effective := b.AssignedWorkers
	var limiting Resource
	for _, r := range sortedResources(b.Recipe.PerWorkerInput) {
		perWorker := b.Recipe.PerWorkerInput[r] * modifier * dt
		if perWorker <= 0 {
			continue
		}
		sustained := int(math.Floor((ledger.Amount(r) + epsilon) / perWorker))
		if sustained < effective {
			effective = sustained
			limiting = r
		}
	}
	if effective <= 0 {
		return Report{Status: StatusStalled, Reason: ReasonMissingInput, Detail: limiting}
	}

	consumption := make(map[Resource]float64, len(b.Recipe.PerWorkerInput))
	for r, perSec := range b.Recipe.PerWorkerInput {
		amount := perSec * modifier * dt * float64(effective)
		if amount > 0 {
			consumption[r] = amount
		}
	}

	res := ledger.Reserve(consumption)
	if res == nil {
		return Report{Status: StatusStalled, Reason: ReasonMissingInput, Detail: firstMissing(ledger, consumption)}
	}

	outputs := make(map[Resource]float64, len(b.Recipe.PerWorkerOutput))
	for r, perSec := range b.Recipe.PerWorkerOutput {
		amount := perSec * modifier * dt * float64(effective)
		if amount > 0 {
			outputs[r] = amount
		}
	}
	if !ledger.CanAdd(outputs) {
		res.Rollback()
		return Report{Status: StatusStalled, Reason: ReasonNoCapacity, Detail: firstOverCapacity(ledger, outputs)}
	}

	res.Commit()
	ledger.Add(outputs)

	rep := Report{Status: StatusProduced, EffectiveWorkers: effective}
	rep.recordConsumed(consumption)
	rep.recordProduced(outputs)
	return rep
}

func combineAmounts(a, b map[Resource]float64) map[Resource]float64 {
	if len(b) == 0 {
		return a
	}
	out := make(map[Resource]float64, len(a)+len(b))
	for r, v := range a {
		out[r] += v
	}
	for r, v := range b {
		out[r] += v
	}
	return out
}

// firstMissing picks the first unsatisfied resource in canonical order.
func firstMissing(ledger *Ledger, needs map[Resource]float64) Resource {
	for _, r := range sortedResources(needs) {
		if ledger.Amount(r)+epsilon < needs[r] {
			return r
		}
	}
	return ""
}

// firstOverCapacity picks the first output that would overflow its cap.
func firstOverCapacity(ledger *Ledger, outputs map[Resource]float64) Resource {
	for _, r := range sortedResources(outputs) {
		c, ok := ledger.Capacity(r)
		if !ok {
			continue
		}
		if ledger.Amount(r)+outputs[r] > c+epsilon {
			return r
		}
	}
	return ""
}
