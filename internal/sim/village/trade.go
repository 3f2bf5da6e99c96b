package village

import "fmt"

// TradeMode is the state of a channel's automaton.
type TradeMode string

const (
	TradePause  TradeMode = "pause"
	TradeImport TradeMode = "import"
	TradeExport TradeMode = "export"
)

func ParseTradeMode(s string) (TradeMode, error) {
	switch TradeMode(s) {
	case TradePause, TradeImport, TradeExport:
		return TradeMode(s), nil
	}
	return "", fmt.Errorf("unknown trade mode %q", s)
}

// TradeChannel is a self-limiting market feed for one resource. Imports
// spend gold, exports earn it; partial fills refund or notify instead of
// leaking either side of the exchange.
type TradeChannel struct {
	Resource     Resource
	Mode         TradeMode
	RatePerMin   float64
	PricePerUnit float64
}

func (ch *TradeChannel) SetMode(mode TradeMode) { ch.Mode = mode }

func (ch *TradeChannel) SetRate(rate float64) {
	if rate < 0 {
		rate = 0
	}
	ch.RatePerMin = rate
}

// Tick moves rate_per_minute × dt/60 units through the channel.
func (ch *TradeChannel) Tick(dt float64, ledger *Ledger, notify func(string)) {
	amount := ch.RatePerMin * dt / 60.0
	if ch.Mode == TradePause || amount <= 0 {
		return
	}
	switch ch.Mode {
	case TradeImport:
		ch.tickImport(amount, ledger, notify)
	case TradeExport:
		ch.tickExport(amount, ledger, notify)
	}
}

func (ch *TradeChannel) tickImport(amount float64, ledger *Ledger, notify func(string)) {
	cost := amount * ch.PricePerUnit
	gold := ledger.Amount(ResGold)
	if cost > gold+epsilon {
		if ch.PricePerUnit <= 0 {
			return
		}
		affordable := gold / ch.PricePerUnit
		if affordable <= 1e-6 {
			ch.Mode = TradePause
			notify(fmt.Sprintf("%s import paused: out of gold", ch.Resource.Key()))
			return
		}
		amount = affordable
		cost = amount * ch.PricePerUnit
		notify(fmt.Sprintf("%s import reduced: low gold", ch.Resource.Key()))
	}
	if cost > 0 {
		ledger.Consume(map[Resource]float64{ResGold: cost})
	}
	residual := ledger.Add(map[Resource]float64{ch.Resource: amount})
	leftover := residual[ch.Resource]
	if leftover <= 1e-6 {
		return
	}
	// Refund the units the store refused so gold is conserved.
	if refund := leftover * ch.PricePerUnit; refund > 0 {
		ledger.Add(map[Resource]float64{ResGold: refund})
	}
	if leftover >= amount-1e-6 {
		ch.Mode = TradePause
		notify(fmt.Sprintf("%s import paused: storage full", ch.Resource.Key()))
	} else {
		notify(fmt.Sprintf("%s import limited by storage", ch.Resource.Key()))
	}
}

func (ch *TradeChannel) tickExport(amount float64, ledger *Ledger, notify func(string)) {
	available := ledger.Amount(ch.Resource)
	if available <= 1e-6 {
		ch.Mode = TradePause
		notify(fmt.Sprintf("%s export paused: no stock", ch.Resource.Key()))
		return
	}
	actual := amount
	if available < actual {
		actual = available
	}
	// Gold headroom caps the sale the same way low gold caps an import;
	// stock sold into a full treasury would be value lost.
	goldLimited := false
	if ch.PricePerUnit > 0 {
		if goldCap, ok := ledger.Capacity(ResGold); ok {
			sellable := (goldCap - ledger.Amount(ResGold)) / ch.PricePerUnit
			if sellable <= 1e-6 {
				ch.Mode = TradePause
				notify(fmt.Sprintf("%s export paused: gold storage full", ch.Resource.Key()))
				return
			}
			if sellable < actual {
				actual = sellable
				goldLimited = true
			}
		}
	}
	ledger.Consume(map[Resource]float64{ch.Resource: actual})
	if gain := actual * ch.PricePerUnit; gain > 0 {
		ledger.Add(map[Resource]float64{ResGold: gain})
	}
	switch {
	case goldLimited:
		notify(fmt.Sprintf("%s export limited by gold storage", ch.Resource.Key()))
	case actual < amount-1e-6:
		notify(fmt.Sprintf("%s export limited by low stock", ch.Resource.Key()))
	}
}

// TradeSet owns one channel per tradable resource.
type TradeSet struct {
	channels map[Resource]*TradeChannel
}

// TradeDefault seeds one channel's starting configuration.
type TradeDefault struct {
	Mode  TradeMode
	Rate  float64
	Price float64
}

func NewTradeSet(defaults map[Resource]TradeDefault) *TradeSet {
	set := &TradeSet{channels: make(map[Resource]*TradeChannel, len(defaults))}
	for r, d := range defaults {
		mode := d.Mode
		if mode == "" {
			mode = TradePause
		}
		set.channels[r] = &TradeChannel{
			Resource:     r,
			Mode:         mode,
			RatePerMin:   d.Rate,
			PricePerUnit: d.Price,
		}
	}
	return set
}

// Tick runs every channel in canonical resource order so contention over
// gold is reproducible.
func (s *TradeSet) Tick(dt float64, ledger *Ledger, notify func(string)) {
	for _, r := range sortedResources(s.channels) {
		s.channels[r].Tick(dt, ledger, notify)
	}
}

func (s *TradeSet) Channel(r Resource) (*TradeChannel, error) {
	ch, ok := s.channels[r]
	if !ok {
		return nil, &NotFoundError{Kind: "trade_channel", Key: string(r)}
	}
	return ch, nil
}

// ChannelSnapshot is the read-only projection of one channel.
type ChannelSnapshot struct {
	Resource       string  `json:"resource"`
	Mode           string  `json:"mode"`
	RatePerMin     float64 `json:"rate_per_min"`
	Price          float64 `json:"price"`
	EstimatePerMin float64 `json:"estimate_per_min"`
}

func (s *TradeSet) Snapshot() []ChannelSnapshot {
	out := make([]ChannelSnapshot, 0, len(s.channels))
	for _, r := range sortedResources(s.channels) {
		ch := s.channels[r]
		estimate := 0.0
		switch ch.Mode {
		case TradeImport:
			estimate = ch.RatePerMin
		case TradeExport:
			estimate = -ch.RatePerMin
		}
		out = append(out, ChannelSnapshot{
			Resource:       r.Key(),
			Mode:           string(ch.Mode),
			RatePerMin:     ch.RatePerMin,
			Price:          ch.PricePerUnit,
			EstimatePerMin: estimate,
		})
	}
	return out
}

// ChannelState is the persistence form of one channel.
type ChannelState struct {
	Resource string  `json:"resource"`
	Mode     string  `json:"mode"`
	Rate     float64 `json:"rate"`
	Price    float64 `json:"price"`
}

func (s *TradeSet) Export() []ChannelState {
	out := make([]ChannelState, 0, len(s.channels))
	for _, r := range sortedResources(s.channels) {
		ch := s.channels[r]
		out = append(out, ChannelState{
			Resource: string(r),
			Mode:     string(ch.Mode),
			Rate:     ch.RatePerMin,
			Price:    ch.PricePerUnit,
		})
	}
	return out
}

// Import restores saved channel state. Unknown resources are rejected;
// resources without a live channel are skipped (the tradable set is
// config-owned, not save-owned).
func (s *TradeSet) Import(states []ChannelState) error {
	for _, st := range states {
		r, err := ParseResource(st.Resource)
		if err != nil {
			return fmt.Errorf("trade state: %w", err)
		}
		ch, ok := s.channels[r]
		if !ok {
			continue
		}
		mode, err := ParseTradeMode(st.Mode)
		if err != nil {
			return fmt.Errorf("trade state for %s: %w", r.Key(), err)
		}
		ch.Mode = mode
		ch.SetRate(st.Rate)
		ch.PricePerUnit = st.Price
	}
	return nil
}
