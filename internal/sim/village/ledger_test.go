package village

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestLedger_ConsumeIsAllOrNothing(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWood: 5, ResStone: 1})

	if l.Consume(map[Resource]float64{ResWood: 2, ResStone: 3}) {
		t.Fatalf("consume should fail when one requirement is short")
	}
	if !approx(l.Amount(ResWood), 5) || !approx(l.Amount(ResStone), 1) {
		t.Fatalf("failed consume must not mutate: wood=%v stone=%v", l.Amount(ResWood), l.Amount(ResStone))
	}

	if !l.Consume(map[Resource]float64{ResWood: 2, ResStone: 1}) {
		t.Fatalf("consume should succeed")
	}
	if !approx(l.Amount(ResWood), 3) || !approx(l.Amount(ResStone), 0) {
		t.Fatalf("unexpected amounts after consume: wood=%v stone=%v", l.Amount(ResWood), l.Amount(ResStone))
	}
}

func TestLedger_HasToleratesFloatNoise(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWater: 0.3})
	l.Consume(map[Resource]float64{ResWater: 0.1})
	l.Consume(map[Resource]float64{ResWater: 0.1})
	if !l.Has(map[Resource]float64{ResWater: 0.1}) {
		t.Fatalf("accumulated float error should stay under tolerance")
	}
}

func TestLedger_AddReturnsResidualPastCapacity(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWood: 90})
	l.SetCapacity(ResWood, 100)

	residual := l.Add(map[Resource]float64{ResWood: 25, ResStone: 5})
	if !approx(l.Amount(ResWood), 100) {
		t.Fatalf("wood should fill to capacity, got %v", l.Amount(ResWood))
	}
	if !approx(residual[ResWood], 15) {
		t.Fatalf("residual wood = %v, want 15", residual[ResWood])
	}
	if _, ok := residual[ResStone]; ok {
		t.Fatalf("uncapped stone should never produce residual")
	}
	if !approx(l.Amount(ResStone), 5) {
		t.Fatalf("stone = %v, want 5", l.Amount(ResStone))
	}
}

func TestLedger_SetCapacityClampsDown(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWood: 80})
	l.SetCapacity(ResWood, 50)
	if !approx(l.Amount(ResWood), 50) {
		t.Fatalf("shrinking capacity must clamp stock, got %v", l.Amount(ResWood))
	}
	l.SetCapacity(ResWood, 200)
	if !approx(l.Amount(ResWood), 50) {
		t.Fatalf("raising capacity must not raise stock, got %v", l.Amount(ResWood))
	}
}

func TestLedger_SetClampsToCapacityAndZero(t *testing.T) {
	l := NewLedger(nil)
	l.SetCapacity(ResGold, 100)
	l.Set(ResGold, 250)
	if !approx(l.Amount(ResGold), 100) {
		t.Fatalf("set past capacity should clamp, got %v", l.Amount(ResGold))
	}
	l.Set(ResGold, -5)
	if !approx(l.Amount(ResGold), 0) {
		t.Fatalf("negative set should clamp to zero, got %v", l.Amount(ResGold))
	}
}

func TestLedger_Missing(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWood: 3})
	missing := l.Missing(map[Resource]float64{ResWood: 5, ResStone: 2})
	if !approx(missing[ResWood], 2) || !approx(missing[ResStone], 2) {
		t.Fatalf("missing = %v", missing)
	}
	if len(l.Missing(map[Resource]float64{ResWood: 3})) != 0 {
		t.Fatalf("satisfied requirement should report nothing missing")
	}
}

func TestLedger_ReservationCommit(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWood: 10})
	res := l.Reserve(map[Resource]float64{ResWood: 4})
	if res == nil {
		t.Fatalf("reserve should succeed")
	}
	if !approx(l.Amount(ResWood), 6) {
		t.Fatalf("reserve should debit immediately, got %v", l.Amount(ResWood))
	}
	res.Commit()
	if !approx(l.Amount(ResWood), 6) {
		t.Fatalf("commit must keep the debit, got %v", l.Amount(ResWood))
	}
}

func TestLedger_ReservationRollback(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWood: 10})
	res := l.Reserve(map[Resource]float64{ResWood: 4})
	if res == nil {
		t.Fatalf("reserve should succeed")
	}
	res.Rollback()
	if !approx(l.Amount(ResWood), 10) {
		t.Fatalf("rollback must restore the snapshot, got %v", l.Amount(ResWood))
	}
	// Rollback after commit is a no-op.
	res2 := l.Reserve(map[Resource]float64{ResWood: 2})
	res2.Commit()
	res2.Rollback()
	if !approx(l.Amount(ResWood), 8) {
		t.Fatalf("rollback after commit must not restore, got %v", l.Amount(ResWood))
	}
}

func TestLedger_ReserveFailsShort(t *testing.T) {
	l := NewLedger(map[Resource]float64{ResWood: 1})
	if res := l.Reserve(map[Resource]float64{ResWood: 2}); res != nil {
		t.Fatalf("reserve should fail on short stock")
	}
	if !approx(l.Amount(ResWood), 1) {
		t.Fatalf("failed reserve must not mutate, got %v", l.Amount(ResWood))
	}
}

func TestParseResource(t *testing.T) {
	cases := []struct {
		in   string
		want Resource
		ok   bool
	}{
		{"wood", ResWood, true},
		{"WOOD", ResWood, true},
		{" Gold ", ResGold, true},
		{"mithril", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseResource(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseResource(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseResource(%q) should fail", tc.in)
		}
	}
}
