package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleDefs() []BuildingDef {
	return []BuildingDef{
		{
			ID: "sawmill", Name: "Sawmill", MaxWorkers: 2, CycleTime: 4, Priority: 5,
			Inputs:    map[string]float64{"WOOD": 2},
			Outputs:   map[string]float64{"PLANK": 1},
			BuildCost: map[string]float64{"WOOD": 10},
		},
		{
			ID: "lumber_camp", Name: "Lumber Camp", MaxWorkers: 2, CycleTime: 2, Priority: 10,
			Outputs:   map[string]float64{"WOOD": 1},
			BuildCost: map[string]float64{"STONE": 5},
		},
		{
			ID: "water_well", Name: "Water Well", MaxWorkers: 3,
			PerWorkerOutput: map[string]float64{"WATER": 0.5},
			BuildCost:       map[string]float64{"STONE": 3},
		},
	}
}

func TestCatalogOrderIsPriorityThenID(t *testing.T) {
	cat, err := FromDefs(sampleDefs())
	if err != nil {
		t.Fatalf("FromDefs: %v", err)
	}
	want := []string{"lumber_camp", "sawmill", "water_well"}
	if len(cat.Order) != len(want) {
		t.Fatalf("order = %v", cat.Order)
	}
	for i, id := range want {
		if cat.Order[i] != id {
			t.Fatalf("order[%d] = %s, want %s", i, cat.Order[i], id)
		}
	}
	if cat.Digest == "" {
		t.Fatalf("missing digest")
	}
}

func TestCatalogRejectsDuplicateIDs(t *testing.T) {
	defs := sampleDefs()
	defs = append(defs, defs[0])
	if _, err := FromDefs(defs); err == nil {
		t.Fatalf("duplicate id accepted")
	}
}

func TestCatalogValidation(t *testing.T) {
	cases := []struct {
		name string
		def  BuildingDef
	}{
		{"no workers", BuildingDef{ID: "x", CycleTime: 1, Outputs: map[string]float64{"WOOD": 1}}},
		{"no cycle time", BuildingDef{ID: "x", MaxWorkers: 1, Outputs: map[string]float64{"WOOD": 1}}},
		{"no outputs", BuildingDef{ID: "x", MaxWorkers: 1, CycleTime: 1}},
		{"bad rate", BuildingDef{ID: "x", MaxWorkers: 1, PerWorkerOutput: map[string]float64{"WATER": -1}}},
	}
	for _, tc := range cases {
		if _, err := FromDefs([]BuildingDef{tc.def}); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
	}
}

func TestResolveType(t *testing.T) {
	cat, err := FromDefs(sampleDefs())
	if err != nil {
		t.Fatalf("FromDefs: %v", err)
	}
	for _, key := range []string{"lumber_camp", "Lumber Camp", "LUMBER-CAMP", " lumber_camp "} {
		got, err := cat.ResolveType(key)
		if err != nil || got != "lumber_camp" {
			t.Fatalf("ResolveType(%q) = %q, %v", key, got, err)
		}
	}
	if _, err := cat.ResolveType("castle"); err == nil {
		t.Fatalf("unknown type resolved")
	}
}

func TestLoadReadsCatalogFile(t *testing.T) {
	dir := t.TempDir()
	doc := `{
  "building_types": [
    {
      "id": "lumber_camp",
      "name": "Lumber Camp",
      "max_workers": 2,
      "cycle_time": 2,
      "outputs": {"WOOD": 1},
      "build_cost": {"STONE": 5}
    }
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, "buildings.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cat, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def, ok := cat.Get("lumber_camp")
	if !ok || def.MaxWorkers != 2 {
		t.Fatalf("def = %+v ok=%v", def, ok)
	}

	cat2, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.Digest != cat2.Digest {
		t.Fatalf("digest unstable for identical content")
	}
}
