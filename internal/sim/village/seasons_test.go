package village

import "testing"

func testClock() *SeasonClock {
	return NewSeasonClock(nil, 180, map[string]map[string]float64{
		"Spring": {"global": 1.0, "farming": 1.05},
		"Summer": {"global": 1.0, "farming": 1.1},
		"Winter": {"global": 0.95},
	})
}

func TestSeasonClock_Rotation(t *testing.T) {
	c := testClock()
	if c.Current() != "Spring" {
		t.Fatalf("initial season = %s", c.Current())
	}

	started := c.Update(180)
	if len(started) != 1 || started[0] != "Summer" {
		t.Fatalf("started = %v, want [Summer]", started)
	}

	for i := 0; i < 3; i++ {
		c.Update(180)
	}
	if c.Current() != "Spring" {
		t.Fatalf("full rotation should return to Spring, got %s", c.Current())
	}
}

func TestSeasonClock_MultiSeasonSkip(t *testing.T) {
	c := testClock()
	started := c.Update(180*2 + 30)
	if len(started) != 2 || started[0] != "Summer" || started[1] != "Autumn" {
		t.Fatalf("started = %v, want [Summer Autumn]", started)
	}
	if !approx(c.Progress(), 30.0/180.0) {
		t.Fatalf("progress = %v", c.Progress())
	}
}

func TestSeasonClock_ZeroDtDoesNothing(t *testing.T) {
	c := testClock()
	if started := c.Update(0); started != nil {
		t.Fatalf("zero dt should not roll seasons: %v", started)
	}
	if c.Progress() != 0 {
		t.Fatalf("progress moved on zero dt")
	}
}

func TestSeasonClock_Modifiers(t *testing.T) {
	c := testClock()
	m := c.Modifiers("farming")
	if !approx(m["global"], 1.0) || !approx(m["farming"], 1.05) {
		t.Fatalf("spring farming modifiers = %v", m)
	}
	if !approx(c.TotalModifier("farming"), 1.05) {
		t.Fatalf("total = %v", c.TotalModifier("farming"))
	}

	c.Update(3 * 180) // Winter
	if c.Current() != "Winter" {
		t.Fatalf("season = %s", c.Current())
	}
	if !approx(c.TotalModifier("farming"), 0.95) {
		t.Fatalf("winter total = %v, want global 0.95 with no tag entry", c.TotalModifier("farming"))
	}
	if !approx(c.TotalModifier(""), 0.95) {
		t.Fatalf("untagged total = %v", c.TotalModifier(""))
	}
}

func TestSeasonClock_ImportNormalizes(t *testing.T) {
	c := testClock()
	c.Import(ClockState{Index: 6, Elapsed: 400, Duration: 180})
	if c.Index() != 2 {
		t.Fatalf("index = %d, want 2", c.Index())
	}
	if c.Export().Elapsed >= 180 {
		t.Fatalf("elapsed should wrap under duration, got %v", c.Export().Elapsed)
	}
}
