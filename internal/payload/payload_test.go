package payload

import (
	"bytes"
	"testing"
)

func TestFiller(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "zero", size: 0},
		{name: "negative", size: -5},
		{name: "one byte", size: 1},
		{name: "pattern wraps", size: 1000},
		{name: "common size", size: 64 * KiB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Filler(tt.size)
			want := tt.size
			if want < 0 {
				want = 0
			}
			if len(buf) != want {
				t.Fatalf("len = %d, want %d", len(buf), want)
			}
			for i, b := range buf {
				if b != byte((i*41)%256) {
					t.Fatalf("byte %d = %d, want %d", i, b, (i*41)%256)
				}
			}
		})
	}
}

func TestFillerIsNotTrivial(t *testing.T) {
	buf := Filler(256)
	seen := make(map[byte]bool)
	for _, b := range buf {
		seen[b] = true
	}
	if len(seen) != 256 {
		t.Errorf("expected all 256 byte values in the first 256 bytes, got %d", len(seen))
	}
}

func TestClampSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: 0, want: DefaultSize},
		{in: -1, want: DefaultSize},
		{in: 500, want: 500},
		{in: MaxSize, want: MaxSize},
		{in: MaxSize + 1, want: MaxSize},
	}
	for _, tt := range tests {
		if got := ClampSize(tt.in); got != tt.want {
			t.Errorf("ClampSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCacheGet(t *testing.T) {
	c := NewCache()
	if c.Sizes() != len(CommonSizes) {
		t.Fatalf("expected %d cached sizes, got %d", len(CommonSizes), c.Sizes())
	}

	for _, size := range []int{64 * KiB, 1000, 3 * MiB} {
		got := c.Get(size)
		if !bytes.Equal(got, Filler(size)) {
			t.Errorf("Get(%d) does not match Filler", size)
		}
	}

	a := c.Get(256 * KiB)
	b := c.Get(256 * KiB)
	if &a[0] != &b[0] {
		t.Error("expected cached buffer to be reused")
	}
}

func TestCacheKeepsLargestBuffer(t *testing.T) {
	c := NewCache()
	if c.Largest() != 1*MiB {
		t.Fatalf("Largest() = %d, want %d", c.Largest(), 1*MiB)
	}

	big := c.Get(4 * MiB)
	if c.Largest() != 4*MiB {
		t.Fatalf("Largest() = %d after a 4 MiB request", c.Largest())
	}

	smaller := c.Get(2 * MiB)
	if &smaller[0] != &big[0] {
		t.Error("expected a smaller request to reuse the generated buffer")
	}
	if !bytes.Equal(smaller, Filler(2*MiB)) {
		t.Error("sliced buffer does not match Filler")
	}

	c.Get(3 * MiB)
	if c.Largest() != 4*MiB {
		t.Errorf("Largest() = %d, want it to stay at %d", c.Largest(), 4*MiB)
	}
}
