package rotation

import "testing"

// S1: Single, two-IP swap.
func TestSingle_TwoIPSwap(t *testing.T) {
	pool := []string{"1.1.1.1", "2.2.2.2"}

	r := Single(pool, 0, "1.1.1.1")
	if r.Target != "2.2.2.2" || r.NewCursor != 1 {
		t.Fatalf("got %+v", r)
	}

	r = Single(pool, 1, "2.2.2.2")
	if r.Target != "1.1.1.1" || r.NewCursor != 0 {
		t.Fatalf("got %+v", r)
	}
}

// S2: Single, avoid same IP.
func TestSingle_AvoidSameIP(t *testing.T) {
	pool := []string{"9.9.9.9", "8.8.8.8"}

	r := Single(pool, 0, "9.9.9.9")
	if r.Target != "8.8.8.8" || r.NewCursor != 1 {
		t.Fatalf("got %+v", r)
	}

	r = Single(pool, 1, "8.8.8.8")
	if r.Target != "9.9.9.9" || r.NewCursor != 0 {
		t.Fatalf("got %+v", r)
	}
}

// S1: single-entry pool still fires, even as a no-op update.
func TestSingle_SingleEntryPoolIsNoOp(t *testing.T) {
	r := Single([]string{"1.1.1.1"}, 5, "1.1.1.1")
	if r.Target != "1.1.1.1" || r.NewCursor != 0 {
		t.Fatalf("got %+v", r)
	}
}

// P3: with |P| >= 2, the candidate is never the live value when a distinct
// alternative exists in the pool, across every cursor position.
func TestSingle_NeverReturnsLiveValue(t *testing.T) {
	pool := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4"}
	for live := 0; live < len(pool); live++ {
		for cursor := 0; cursor < len(pool); cursor++ {
			r := Single(pool, cursor, pool[live])
			if r.Target == pool[live] {
				t.Fatalf("cursor=%d live=%s: candidate equals live value", cursor, pool[live])
			}
		}
	}
}

func TestSingle_ThreeEntryPoolAdvancesByOneWhenNoCollision(t *testing.T) {
	pool := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}
	r := Single(pool, 0, "3.3.3.3")
	if r.Target != "2.2.2.2" || r.NewCursor != 1 {
		t.Fatalf("got %+v", r)
	}
}
