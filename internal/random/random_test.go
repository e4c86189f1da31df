package random

import "testing"

func TestStreamIsReproducible(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Uniform01(), b.Uniform01(); x != y {
			t.Fatalf("draw %d: %v != %v", i, x, y)
		}
	}

	a.Reseed(42)
	c := New(42)
	if a.Uniform01() != c.Uniform01() {
		t.Error("Reseed should restart the sequence")
	}
}

func TestUniform01Range(t *testing.T) {
	s := New(1)
	for i := 0; i < 1000; i++ {
		v := s.Uniform01()
		if v <= 0 || v >= 1 {
			t.Fatalf("Uniform01() = %v, want (0,1)", v)
		}
	}
}

func TestSynchronizationIsIndependentOfMainDraws(t *testing.T) {
	a := New(9)
	b := New(9)
	for i := 0; i < 17; i++ {
		b.Uniform01()
	}

	a.ResetSynchronization(123)
	b.ResetSynchronization(123)
	for i := 0; i < 10; i++ {
		if x, y := a.SyncUniform01(), b.Synchronized().Uniform01(); x != y {
			t.Fatalf("sync draw %d: %v != %v", i, x, y)
		}
	}
}

func TestSeedSequence(t *testing.T) {
	a := NewSeedSequence(7)
	b := NewSeedSequence(7)
	for i := 0; i < 10; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("seed %d differs", i)
		}
	}
}
