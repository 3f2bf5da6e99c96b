package village

// DefaultSeasons is the standard rotation when tuning does not override it.
var DefaultSeasons = []string{"Spring", "Summer", "Autumn", "Winter"}

// SeasonClock is a rotating fixed-duration phase clock. It advances
// monotonically; the only rewind path is a save import.
type SeasonClock struct {
	seasons   []string
	duration  float64
	index     int
	elapsed   float64
	modifiers map[string]map[string]float64 // season → tag → multiplier
}

func NewSeasonClock(seasons []string, duration float64, modifiers map[string]map[string]float64) *SeasonClock {
	if len(seasons) == 0 {
		seasons = DefaultSeasons
	}
	if duration <= 0 {
		duration = 180
	}
	return &SeasonClock{
		seasons:   append([]string(nil), seasons...),
		duration:  duration,
		modifiers: modifiers,
	}
}

// Update advances the clock by dt seconds and returns the seasons that
// started during the advance, in order. A large dt can roll several
// seasons in one call.
func (c *SeasonClock) Update(dt float64) []string {
	if dt <= 0 {
		return nil
	}
	var started []string
	c.elapsed += dt
	for c.elapsed >= c.duration {
		c.elapsed -= c.duration
		c.index = (c.index + 1) % len(c.seasons)
		started = append(started, c.seasons[c.index])
	}
	return started
}

func (c *SeasonClock) Current() string { return c.seasons[c.index] }

func (c *SeasonClock) Index() int { return c.index }

func (c *SeasonClock) Progress() float64 {
	if c.duration <= 0 {
		return 0
	}
	p := c.elapsed / c.duration
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func (c *SeasonClock) TimeLeft() float64 {
	left := c.duration - c.elapsed
	if left < 0 {
		return 0
	}
	return left
}

// Modifiers returns the active multipliers for a building tag: always a
// "global" entry, plus the tag entry when a tag is given. Absent entries
// default to 1.
func (c *SeasonClock) Modifiers(tag string) map[string]float64 {
	active := c.modifiers[c.Current()]
	out := map[string]float64{"global": modifierOrOne(active, "global")}
	if tag != "" {
		out[tag] = modifierOrOne(active, tag)
	}
	return out
}

// TotalModifier is the product of all modifiers for a tag.
func (c *SeasonClock) TotalModifier(tag string) float64 {
	total := 1.0
	for _, m := range c.Modifiers(tag) {
		total *= m
	}
	return total
}

func modifierOrOne(m map[string]float64, key string) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return 1.0
}

// ClockState is the raw clock position for persistence.
type ClockState struct {
	Index    int     `json:"season_index"`
	Elapsed  float64 `json:"elapsed"`
	Duration float64 `json:"duration"`
}

func (c *SeasonClock) Export() ClockState {
	return ClockState{Index: c.index, Elapsed: c.elapsed, Duration: c.duration}
}

// Import restores a saved position, normalizing hostile values so the
// clock stays inside one season.
func (c *SeasonClock) Import(s ClockState) {
	if s.Duration > 0 {
		c.duration = s.Duration
	}
	c.index = ((s.Index % len(c.seasons)) + len(c.seasons)) % len(c.seasons)
	c.elapsed = s.Elapsed
	if c.elapsed < 0 {
		c.elapsed = 0
	}
	for c.elapsed >= c.duration {
		c.elapsed -= c.duration
	}
}
