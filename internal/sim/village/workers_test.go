package village

import (
	"errors"
	"testing"
)

func testBuilding(id, maxWorkers int) *Building {
	return NewBuilding(id, "b", "B", Recipe{
		Outputs:    map[Resource]float64{ResWood: 1},
		CycleTime:  1,
		MaxWorkers: maxWorkers,
	})
}

func TestWorkerPool_AssignCapsAtBuildingAndPopulation(t *testing.T) {
	pool := NewWorkerPool(5)
	b := testBuilding(1, 3)

	applied, err := pool.Assign(b, 10)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if applied != 3 || b.AssignedWorkers != 3 {
		t.Fatalf("applied=%d assigned=%d, want 3/3", applied, b.AssignedWorkers)
	}
	if pool.Available() != 2 {
		t.Fatalf("available=%d, want 2", pool.Available())
	}
}

func TestWorkerPool_AssignRejectedAtCapacity(t *testing.T) {
	pool := NewWorkerPool(5)
	b := testBuilding(1, 2)
	if _, err := pool.Assign(b, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := pool.Assign(b, 1)
	var allocErr *AllocationError
	if !errors.As(err, &allocErr) || allocErr.Reason != AllocAtCapacity {
		t.Fatalf("want AllocationError(at_capacity), got %v", err)
	}
}

func TestWorkerPool_AssignRejectedNoPopulation(t *testing.T) {
	pool := NewWorkerPool(2)
	a := testBuilding(1, 5)
	if _, err := pool.Assign(a, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}

	b := testBuilding(2, 5)
	_, err := pool.Assign(b, 1)
	var allocErr *AllocationError
	if !errors.As(err, &allocErr) || allocErr.Reason != AllocNoPopulation {
		t.Fatalf("want AllocationError(no_population), got %v", err)
	}
}

func TestWorkerPool_PartialAssignIsNotAnError(t *testing.T) {
	pool := NewWorkerPool(2)
	b := testBuilding(1, 5)
	applied, err := pool.Assign(b, 4)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied=%d, want partial fill of 2", applied)
	}
}

func TestWorkerPool_Unassign(t *testing.T) {
	pool := NewWorkerPool(5)
	b := testBuilding(1, 3)
	if _, err := pool.Assign(b, 3); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if released := pool.Unassign(b, 2); released != 2 {
		t.Fatalf("released=%d, want 2", released)
	}
	if released := pool.Unassign(b, 5); released != 1 {
		t.Fatalf("released=%d, want 1", released)
	}
	if pool.Available() != 5 {
		t.Fatalf("available=%d, want 5", pool.Available())
	}
}

func TestWorkerPool_ShrinkingTotalClawsBack(t *testing.T) {
	pool := NewWorkerPool(6)
	a := testBuilding(1, 4)
	b := testBuilding(2, 4)
	if _, err := pool.Assign(a, 4); err != nil {
		t.Fatalf("assign a: %v", err)
	}
	if _, err := pool.Assign(b, 2); err != nil {
		t.Fatalf("assign b: %v", err)
	}

	pool.SetTotal(3)
	total := a.AssignedWorkers + b.AssignedWorkers
	if total > 3 {
		t.Fatalf("labor invariant violated: assigned=%d total=3", total)
	}
	if pool.Available() != 3-total {
		t.Fatalf("available=%d, want %d", pool.Available(), 3-total)
	}
}

func TestWorkerPool_UnregisterReleasesWorkers(t *testing.T) {
	pool := NewWorkerPool(4)
	b := testBuilding(1, 4)
	if _, err := pool.Assign(b, 3); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if released := pool.Unregister(b.ID); released != 3 {
		t.Fatalf("released=%d, want 3", released)
	}
	if pool.Available() != 4 {
		t.Fatalf("available=%d, want 4", pool.Available())
	}
}
