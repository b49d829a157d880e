package hashkey

import (
	"math"
	"testing"
)

func TestWriterDeterministic(t *testing.T) {
	sum := func() uint64 {
		w := NewWriter(7)
		w.Uint32(1)
		w.Uint64(2)
		w.String("vs_main")
		w.Float32(0.5)
		w.Bool(true)
		return w.Sum()
	}
	if a, b := sum(), sum(); a != b {
		t.Errorf("writer not deterministic: %#x != %#x", a, b)
	}
}

func TestWriterTagSeparatesBlocks(t *testing.T) {
	a := NewWriter(1)
	a.Uint32(42)
	b := NewWriter(2)
	b.Uint32(42)
	if a.Sum() == b.Sum() {
		t.Error("different tags should produce different digests")
	}
}

func TestWriterLengthPrefix(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	a := NewWriter(0)
	a.String("ab")
	a.String("c")
	b := NewWriter(0)
	b.String("a")
	b.String("bc")
	if a.Sum() == b.Sum() {
		t.Error("length prefix should separate string boundaries")
	}
}

func TestWriterEmptyLengthIsNotAbsent(t *testing.T) {
	w := NewWriter(0)
	w.Len(0)
	if w.Sum() == Absent {
		t.Error("length-zero marker must differ from Absent")
	}
}

func TestWriterFloatBits(t *testing.T) {
	pos := NewWriter(0)
	pos.Float32(0)
	neg := NewWriter(0)
	neg.Float32(float32(math.Copysign(0, -1)))
	if pos.Sum() == neg.Sum() {
		t.Error("+0 and -0 have different bit patterns and must hash differently")
	}

	nan1 := NewWriter(0)
	nan1.Float32(float32(math.NaN()))
	nan2 := NewWriter(0)
	nan2.Float32(float32(math.NaN()))
	if nan1.Sum() != nan2.Sum() {
		t.Error("identical NaN bit patterns must hash equally")
	}
}

func TestCombineOrderSensitive(t *testing.T) {
	ab := NewAccumulator()
	ab.Add(1)
	ab.Add(2)
	ba := NewAccumulator()
	ba.Add(2)
	ba.Add(1)
	if ab.Sum() == ba.Sum() {
		t.Error("permuted inputs should not collide")
	}
}

func TestAccumulatorCountsItems(t *testing.T) {
	one := NewAccumulator()
	one.Add(0)
	two := NewAccumulator()
	two.Add(0)
	two.Add(0)
	if one.Sum() == two.Sum() {
		t.Error("repeated zero inputs should change the result")
	}

	empty := NewAccumulator()
	if empty.Sum() == one.Sum() {
		t.Error("empty accumulator should differ from one holding a zero")
	}
}

func TestMixAvalanche(t *testing.T) {
	// Flipping a single input bit should flip roughly half of the output.
	base := Mix(0x0123456789abcdef)
	for bit := range 64 {
		diff := base ^ Mix(0x0123456789abcdef^(1<<bit))
		n := 0
		for diff != 0 {
			diff &= diff - 1
			n++
		}
		if n < 12 || n > 52 {
			t.Errorf("bit %d: %d output bits changed, want roughly 32", bit, n)
		}
	}
}

func BenchmarkWriter(b *testing.B) {
	for b.Loop() {
		w := NewWriter(3)
		for i := range 16 {
			w.Uint32(uint32(i))
		}
		_ = w.Sum()
	}
}

func BenchmarkAccumulator(b *testing.B) {
	for b.Loop() {
		a := NewAccumulator()
		for i := range 16 {
			a.Add(uint64(i))
		}
		_ = a.Sum()
	}
}
