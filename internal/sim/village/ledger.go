package village

import "math"

// epsilon absorbs floating-point noise in stock comparisons.
const epsilon = 1e-9

// Ledger holds resource quantities and optional per-resource capacities.
// Amounts never go negative and never exceed capacity; every mutation
// goes through Consume, Add, Set or a Reservation. The ledger is not
// internally locked: the owning Simulation serializes access.
type Ledger struct {
	amounts    map[Resource]float64
	capacities map[Resource]float64
}

func NewLedger(initial map[Resource]float64) *Ledger {
	l := &Ledger{
		amounts:    make(map[Resource]float64, len(AllResources)),
		capacities: make(map[Resource]float64),
	}
	for r, amount := range initial {
		l.amounts[r] = math.Max(0, amount)
	}
	return l
}

func (l *Ledger) Amount(r Resource) float64 { return l.amounts[r] }

// Capacity returns the storage cap for r, if one is set.
func (l *Ledger) Capacity(r Resource) (float64, bool) {
	c, ok := l.capacities[r]
	return c, ok
}

// SetCapacity installs or replaces a storage cap. Stored amount is
// clamped down, never up: shrinking a cap discards the excess.
func (l *Ledger) SetCapacity(r Resource, capacity float64) {
	capacity = math.Max(0, capacity)
	l.capacities[r] = capacity
	if l.amounts[r] > capacity {
		l.amounts[r] = capacity
	}
}

// Set overwrites the stored amount, clamping into [0, capacity]. Used by
// the orchestrator for derived resources; normal production goes through
// Consume/Add.
func (l *Ledger) Set(r Resource, amount float64) {
	amount = math.Max(0, amount)
	if c, ok := l.capacities[r]; ok && amount > c {
		amount = c
	}
	l.amounts[r] = amount
}

// Has reports whether every requirement is met within tolerance.
func (l *Ledger) Has(requirements map[Resource]float64) bool {
	for r, needed := range requirements {
		if l.amounts[r]+epsilon < needed {
			return false
		}
	}
	return true
}

// Missing returns the shortfall per resource for an unmet requirement
// set. Empty when Has(requirements) holds.
func (l *Ledger) Missing(requirements map[Resource]float64) map[Resource]float64 {
	missing := make(map[Resource]float64)
	for r, needed := range requirements {
		if have := l.amounts[r]; have+epsilon < needed {
			missing[r] = needed - have
		}
	}
	return missing
}

// Consume debits all requirements atomically. Nothing is mutated when
// any single requirement is short.
func (l *Ledger) Consume(requirements map[Resource]float64) bool {
	if !l.Has(requirements) {
		return false
	}
	for r, amount := range requirements {
		if amount <= 0 {
			continue
		}
		l.amounts[r] = math.Max(0, l.amounts[r]-amount)
	}
	return true
}

// CanAdd reports whether every amount fits under its capacity.
func (l *Ledger) CanAdd(amounts map[Resource]float64) bool {
	for r, amount := range amounts {
		if amount <= 0 {
			continue
		}
		c, ok := l.capacities[r]
		if !ok {
			continue
		}
		if l.amounts[r]+amount > c+epsilon {
			return false
		}
	}
	return true
}

// Add credits each amount up to capacity. Whatever would overflow is
// returned as the residual; the caller decides how to react (storage-full
// status, gold refund) instead of the overflow vanishing unaccounted.
func (l *Ledger) Add(amounts map[Resource]float64) map[Resource]float64 {
	var residual map[Resource]float64
	for _, r := range sortedResources(amounts) {
		amount := amounts[r]
		if amount <= 0 {
			continue
		}
		c, capped := l.capacities[r]
		if !capped {
			l.amounts[r] += amount
			continue
		}
		allowed := math.Min(amount, math.Max(0, c-l.amounts[r]))
		l.amounts[r] += allowed
		if leftover := amount - allowed; leftover > 1e-6 {
			if residual == nil {
				residual = make(map[Resource]float64)
			}
			residual[r] = leftover
		}
	}
	return residual
}

// Snapshot returns a copy of all non-zero amounts.
func (l *Ledger) Snapshot() map[Resource]float64 {
	out := make(map[Resource]float64, len(l.amounts))
	for r, amount := range l.amounts {
		if amount != 0 {
			out[r] = amount
		}
	}
	return out
}

// Capacities returns a copy of every configured cap.
func (l *Ledger) Capacities() map[Resource]float64 {
	out := make(map[Resource]float64, len(l.capacities))
	for r, c := range l.capacities {
		out[r] = c
	}
	return out
}

// Reservation earmarks a debit for a multi-step operation. Continuous
// production must verify both the input debit and the output headroom
// before applying either; the reservation closes that gap. Exactly one of
// Commit or Rollback must be called.
type Reservation struct {
	ledger   *Ledger
	restore  map[Resource]float64
	resolved bool
}

// Reserve atomically debits the given amounts, keeping a snapshot of the
// touched entries so Rollback can restore them. Returns nil when the
// ledger cannot cover the debit.
func (l *Ledger) Reserve(amounts map[Resource]float64) *Reservation {
	if !l.Has(amounts) {
		return nil
	}
	restore := make(map[Resource]float64, len(amounts))
	for r := range amounts {
		restore[r] = l.amounts[r]
	}
	l.Consume(amounts)
	return &Reservation{ledger: l, restore: restore}
}

// Commit finalizes the debit.
func (res *Reservation) Commit() {
	res.resolved = true
}

// Rollback restores the amounts captured when the reservation was taken.
// No-op after Commit.
func (res *Reservation) Rollback() {
	if res.resolved {
		return
	}
	res.resolved = true
	for r, amount := range res.restore {
		res.ledger.amounts[r] = amount
	}
}
