package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the runtime configuration for one simulation instance,
// loaded from tuning.yaml. Resource keys are plain strings here and are
// normalized by the simulation at construction.
type Tuning struct {
	TickIntervalSec    float64 `yaml:"tick_interval_sec"`
	AutosaveEveryTicks int     `yaml:"autosave_every_ticks"`

	Season     Season     `yaml:"season"`
	Population Population `yaml:"population"`

	StartingResources map[string]float64      `yaml:"starting_resources"`
	Capacities        map[string]float64      `yaml:"capacities"`
	Trade             map[string]TradeDefault `yaml:"trade"`

	RefundRatio       float64 `yaml:"refund_ratio"`
	NotificationLimit int     `yaml:"notification_limit"`
}

type Season struct {
	DurationSec float64  `yaml:"duration_sec"`
	Seasons     []string `yaml:"seasons"`
	// season → tag → multiplier; "global" applies to every building.
	Modifiers map[string]map[string]float64 `yaml:"modifiers"`
	// season → villagers granted when that season starts.
	Grants map[string]int `yaml:"grants"`
}

type Population struct {
	Start              int     `yaml:"start"`
	Cap                int     `yaml:"cap"`
	GoldPerVillagerSec float64 `yaml:"gold_per_villager_sec"`
}

type TradeDefault struct {
	Mode  string  `yaml:"mode"`
	Rate  float64 `yaml:"rate"`
	Price float64 `yaml:"price"`
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickIntervalSec <= 0 {
		return t, fmt.Errorf("tuning.yaml: tick_interval_sec must be positive")
	}
	if t.Season.DurationSec <= 0 {
		return t, fmt.Errorf("tuning.yaml: season.duration_sec must be positive")
	}
	return t, nil
}

// Defaults match configs/tuning.yaml so tests and snapshot resumes can
// run without the file.
func Defaults() Tuning {
	return Tuning{
		TickIntervalSec:    1.0,
		AutosaveEveryTicks: 120,
		Season: Season{
			DurationSec: 180,
			Seasons:     []string{"Spring", "Summer", "Autumn", "Winter"},
			Modifiers: map[string]map[string]float64{
				"Spring": {"global": 1.0, "farming": 1.05},
				"Summer": {"global": 1.0, "farming": 1.1},
				"Autumn": {"global": 1.0, "brewing": 1.05},
				"Winter": {"global": 0.95},
			},
			Grants: map[string]int{
				"Spring": 2,
				"Summer": 3,
				"Autumn": 2,
				"Winter": 1,
			},
		},
		Population: Population{
			Start:              20,
			Cap:                40,
			GoldPerVillagerSec: 0.01,
		},
		StartingResources: map[string]float64{
			"WOOD":  50,
			"STONE": 30,
			"WHEAT": 20,
			"WATER": 40,
			"GOLD":  100,
			"HOPS":  10,
		},
		Capacities: map[string]float64{
			"WOOD":  500,
			"PLANK": 300,
			"STONE": 500,
			"WHEAT": 400,
			"WATER": 400,
			"HOPS":  200,
			"GOLD":  1000,
		},
		Trade: map[string]TradeDefault{
			"WOOD":  {Mode: "pause", Rate: 0, Price: 1.0},
			"PLANK": {Mode: "pause", Rate: 0, Price: 2.0},
			"STONE": {Mode: "pause", Rate: 0, Price: 1.5},
			"WHEAT": {Mode: "pause", Rate: 0, Price: 2.0},
			"WATER": {Mode: "pause", Rate: 0, Price: 0.5},
			"HOPS":  {Mode: "pause", Rate: 0, Price: 2.5},
			"BEER":  {Mode: "pause", Rate: 0, Price: 4.0},
			"HONEY": {Mode: "pause", Rate: 0, Price: 3.0},
			"IRON":  {Mode: "pause", Rate: 0, Price: 3.0},
			"COAL":  {Mode: "pause", Rate: 0, Price: 2.0},
		},
		RefundRatio:       0.6,
		NotificationLimit: 50,
	}
}
