package intr

import "testing"

func TestMinPendingFormula(t *testing.T) {
	c := New()
	c.SetMask(0xffff)
	if c.Pending() != None {
		t.Fatalf("fresh controller should have no pending IRQ, got %d", c.Pending())
	}

	c.Assert(5)
	if c.Pending() != 5 {
		t.Errorf("Pending() = %d, want 5", c.Pending())
	}

	c.Assert(2)
	if c.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2 (lower level asserted)", c.Pending())
	}

	c.Release(2)
	if c.Pending() != 5 {
		t.Errorf("Pending() after release = %d, want 5", c.Pending())
	}

	c.Release(5)
	if c.Pending() != None {
		t.Errorf("Pending() after both released = %d, want None", c.Pending())
	}
}

func TestMaskDisablesLevel(t *testing.T) {
	c := New()
	c.Assert(3)
	if c.Pending() != None {
		t.Fatalf("masked IRQ should not be pending, got %d", c.Pending())
	}
	c.SetMask(1 << 3)
	if c.Pending() != 3 {
		t.Errorf("Pending() after enabling mask = %d, want 3", c.Pending())
	}
}

func TestReleaseClampsAtZero(t *testing.T) {
	c := New()
	c.Release(4) // never asserted
	if c.counter[4] != 0 {
		t.Errorf("counter went negative: %d", c.counter[4])
	}
}

func TestAssertReleaseMultipleLevels(t *testing.T) {
	c := New()
	c.SetMask(0xffff)
	c.Assert(7)
	c.Assert(7)
	c.Release(7)
	if c.Pending() != 7 {
		t.Errorf("second assert should keep level 7 pending after one release, got %d", c.Pending())
	}
	c.Release(7)
	if c.Pending() != None {
		t.Errorf("level 7 should clear after both releases, got %d", c.Pending())
	}
}
