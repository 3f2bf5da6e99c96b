package village

import (
	"fmt"
	"sort"
	"strings"
)

// Resource is a closed commodity identifier. Canonical values are the
// uppercase keys used in catalogs and save files; API payloads use the
// lowercase form via Key().
type Resource string

const (
	ResWood      Resource = "WOOD"
	ResPlank     Resource = "PLANK"
	ResStone     Resource = "STONE"
	ResWheat     Resource = "WHEAT"
	ResFlour     Resource = "FLOUR"
	ResBread     Resource = "BREAD"
	ResBerries   Resource = "BERRIES"
	ResWater     Resource = "WATER"
	ResHops      Resource = "HOPS"
	ResBeer      Resource = "BEER"
	ResHoney     Resource = "HONEY"
	ResWax       Resource = "WAX"
	ResIron      Resource = "IRON"
	ResCoal      Resource = "COAL"
	ResTools     Resource = "TOOLS"
	ResGold      Resource = "GOLD"
	ResHappiness Resource = "HAPPINESS"
)

// AllResources lists every known resource in display order.
var AllResources = []Resource{
	ResWood, ResPlank, ResStone,
	ResWheat, ResFlour, ResBread, ResBerries, ResWater, ResHops, ResBeer,
	ResHoney, ResWax,
	ResIron, ResCoal, ResTools,
	ResGold, ResHappiness,
}

var resourceIndex = func() map[string]Resource {
	m := make(map[string]Resource, len(AllResources))
	for _, r := range AllResources {
		m[string(r)] = r
	}
	return m
}()

// ParseResource resolves a user-facing identifier to its canonical
// Resource. The lookup is case-insensitive; unknown identifiers are
// rejected, never defaulted.
func ParseResource(s string) (Resource, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	r, ok := resourceIndex[key]
	if !ok {
		return "", &NotFoundError{Kind: "resource", Key: s}
	}
	return r, nil
}

// Key returns the lowercase identifier used in API payloads.
func (r Resource) Key() string { return strings.ToLower(string(r)) }

// ParseAmounts normalizes a string-keyed amount map (catalog or save file
// form) into canonical resource keys.
func ParseAmounts(in map[string]float64) (map[Resource]float64, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[Resource]float64, len(in))
	for key, amount := range in {
		r, err := ParseResource(key)
		if err != nil {
			return nil, fmt.Errorf("amount map: %w", err)
		}
		out[r] = amount
	}
	return out, nil
}

// sortedResources returns map keys in canonical order so every loop over
// a resource map is deterministic.
func sortedResources[V any](m map[Resource]V) []Resource {
	keys := make([]Resource, 0, len(m))
	for r := range m {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
