package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildingDef is one catalog entry as stored in buildings.json. Resource
// keys are plain strings here; the simulation normalizes them into its
// closed enum at construction time.
type BuildingDef struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Tag        string  `json:"tag,omitempty"`
	Priority   int     `json:"priority,omitempty"`
	MaxWorkers int     `json:"max_workers"`
	CycleTime  float64 `json:"cycle_time,omitempty"`

	Inputs      map[string]float64 `json:"inputs,omitempty"`
	Outputs     map[string]float64 `json:"outputs,omitempty"`
	Maintenance map[string]float64 `json:"maintenance,omitempty"`

	// Continuous-mode rates, per worker per second. Presence of
	// per_worker_output switches the building to continuous accrual.
	PerWorkerOutput map[string]float64 `json:"per_worker_output,omitempty"`
	PerWorkerInput  map[string]float64 `json:"per_worker_input,omitempty"`

	Capacity  map[string]float64 `json:"capacity,omitempty"`
	BuildCost map[string]float64 `json:"build_cost"`
}

// Catalog is the full building catalog plus a content digest so clients
// and the save index can detect catalog drift.
type Catalog struct {
	ByID   map[string]BuildingDef
	Order  []string // priority desc, then id; the canonical tick order
	Digest string
}

type catalogFile struct {
	BuildingTypes []BuildingDef `json:"building_types"`
}

// Load reads buildings.json from dir. When schemaPath is non-empty the
// raw document is validated against it before decoding.
func Load(dir, schemaPath string) (*Catalog, error) {
	path := filepath.Join(dir, "buildings.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if schemaPath != "" {
		schema, err := jsonschema.Compile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", schemaPath, err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("buildings.json: %w", err)
		}
		if err := schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("buildings.json: %w", err)
		}
	}

	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("buildings.json: %w", err)
	}
	return build(file.BuildingTypes, raw)
}

// FromDefs builds a catalog directly from definitions; used by tests.
func FromDefs(defs []BuildingDef) (*Catalog, error) {
	raw, _ := json.Marshal(defs)
	return build(defs, raw)
}

func build(defs []BuildingDef, raw []byte) (*Catalog, error) {
	byID := make(map[string]BuildingDef, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("building def: empty id")
		}
		if _, dup := byID[def.ID]; dup {
			return nil, fmt.Errorf("building def %q: duplicate id", def.ID)
		}
		if err := validate(def); err != nil {
			return nil, err
		}
		byID[def.ID] = def
	}

	order := make([]string, 0, len(byID))
	for id := range byID {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := byID[order[i]], byID[order[j]]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})

	sum := sha256.Sum256(raw)
	return &Catalog{ByID: byID, Order: order, Digest: hex.EncodeToString(sum[:])}, nil
}

func validate(def BuildingDef) error {
	if def.MaxWorkers <= 0 {
		return fmt.Errorf("building def %q: max_workers must be positive", def.ID)
	}
	continuous := len(def.PerWorkerOutput) > 0
	if continuous {
		for res, rate := range def.PerWorkerOutput {
			if rate <= 0 {
				return fmt.Errorf("building def %q: per_worker_output %s must be positive", def.ID, res)
			}
		}
		for res, rate := range def.PerWorkerInput {
			if rate < 0 {
				return fmt.Errorf("building def %q: per_worker_input %s is negative", def.ID, res)
			}
		}
		return nil
	}
	if def.CycleTime <= 0 {
		return fmt.Errorf("building def %q: cycle_time must be positive", def.ID)
	}
	if len(def.Outputs) == 0 {
		return fmt.Errorf("building def %q: missing outputs", def.ID)
	}
	return nil
}

// Get returns the definition for a canonical type id.
func (c *Catalog) Get(id string) (BuildingDef, bool) {
	def, ok := c.ByID[id]
	return def, ok
}

// ResolveType maps a user-facing identifier ("Lumber Camp", "lumber-camp")
// to the canonical catalog id. Unknown identifiers are an error, never a
// default.
func (c *Catalog) ResolveType(key string) (string, error) {
	norm := strings.ToLower(strings.TrimSpace(key))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	if _, ok := c.ByID[norm]; !ok {
		return "", fmt.Errorf("unknown building type %q", key)
	}
	return norm, nil
}
