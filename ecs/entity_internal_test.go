package ecs

import "testing"

func TestIdPoolAcquireStartsAtOne(t *testing.T) {
	pool := newIdPool()

	if id := pool.Acquire(); id != 1 {
		t.Errorf("expected first id 1, got %d", id)
	}
	if id := pool.Acquire(); id != 2 {
		t.Errorf("expected second id 2, got %d", id)
	}
	if pool.InUse() != 2 {
		t.Errorf("expected 2 ids in use, got %d", pool.InUse())
	}
}

func TestIdPoolReusesReleasedIds(t *testing.T) {
	pool := newIdPool()

	a := pool.Acquire()
	b := pool.Acquire()
	pool.Release(a)

	if id := pool.Acquire(); id != a {
		t.Errorf("expected released id %d to be reused, got %d", a, id)
	}
	if pool.InUse() != 2 {
		t.Errorf("expected 2 ids in use, got %d", pool.InUse())
	}
	_ = b
}

func TestIdPoolReleaseZeroIsNoop(t *testing.T) {
	pool := newIdPool()
	pool.Release(0)

	if id := pool.Acquire(); id != 1 {
		t.Errorf("expected id 1 after releasing zero, got %d", id)
	}
}

func TestIdPoolReserve(t *testing.T) {
	pool := newIdPool()

	if !pool.Reserve(5) {
		t.Fatal("expected reserving an unissued id to succeed")
	}
	if pool.Reserve(5) {
		t.Error("expected double reserve to fail")
	}

	// Acquire must skip the reserved id.
	seen := map[EntityId]bool{}
	for i := 0; i < 6; i++ {
		id := pool.Acquire()
		if id == 5 {
			t.Fatal("pool issued a reserved id")
		}
		if seen[id] {
			t.Fatalf("pool issued id %d twice", id)
		}
		seen[id] = true
	}
}

func TestIdPoolReleasedReservationIsNotIssuedTwice(t *testing.T) {
	pool := newIdPool()

	if !pool.Reserve(2) {
		t.Fatal("expected reserving an unissued id to succeed")
	}
	pool.Release(2)

	seen := map[EntityId]bool{}
	for i := 0; i < 3; i++ {
		id := pool.Acquire()
		if seen[id] {
			t.Fatalf("pool issued id %d twice", id)
		}
		seen[id] = true
	}
	if pool.InUse() != 3 {
		t.Errorf("expected 3 ids in use, got %d", pool.InUse())
	}
}

func TestIdPoolReserveIssuedIdFails(t *testing.T) {
	pool := newIdPool()
	id := pool.Acquire()

	if pool.Reserve(id) {
		t.Error("expected reserving an issued id to fail")
	}

	pool.Release(id)
	if !pool.Reserve(id) {
		t.Error("expected reserving a released id to succeed")
	}
}

func TestIdPoolReserveZeroFails(t *testing.T) {
	pool := newIdPool()
	if pool.Reserve(0) {
		t.Error("expected reserving the invalid id to fail")
	}
}
