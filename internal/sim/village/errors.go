package village

import (
	"fmt"
	"sort"
	"strings"
)

// NotFoundError covers unknown building types, unknown building ids and
// unknown resource keys. These are caller errors and always surfaced.
type NotFoundError struct {
	Kind string // "building_type", "building", "resource", "trade_channel"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// InsufficientResourcesError reports a construction or upgrade cost that
// could not be met. Missing holds the exact shortfall per resource.
type InsufficientResourcesError struct {
	Missing map[Resource]float64
}

func (e *InsufficientResourcesError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, r := range sortedResources(e.Missing) {
		parts = append(parts, fmt.Sprintf("%s=%.3f", r.Key(), e.Missing[r]))
	}
	sort.Strings(parts)
	return "insufficient resources: " + strings.Join(parts, " ")
}

// Allocation failure reasons.
const (
	AllocNoPopulation = "no_population"
	AllocAtCapacity   = "at_capacity"
	AllocNotBuilt     = "not_built"
)

// AllocationError reports a worker assignment that was rejected outright.
// Partial assignments are not errors; callers see them in the applied
// delta instead.
type AllocationError struct {
	BuildingID int
	Reason     string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("worker allocation rejected for building %d: %s", e.BuildingID, e.Reason)
}

// NothingToDemolishError is returned when demolition is requested for a
// building whose built count is already zero.
type NothingToDemolishError struct {
	BuildingID int
}

func (e *NothingToDemolishError) Error() string {
	return fmt.Sprintf("building %d has no units to demolish", e.BuildingID)
}
