package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	for in, want := range map[string]int{
		"":     12,
		"  ":   12,
		"24":   24,
		" 24 ": 24,
		"-3":   -3,
		"abc":  12,
		"1e3":  12,
		"9999999999999999999999": 12, // overflow
	} {
		if got := AtoiDefault(in, 12); got != want {
			t.Errorf("AtoiDefault(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		limit, offset       int
		wantLimit, wantOffs int
	}{
		{0, 0, 12, 0},
		{-5, -1, 12, 0},
		{20, 36, 20, 36},
		{500, 0, 48, 0},
		{48, 48, 48, 48},
	}
	for _, tc := range cases {
		l, o := ClampPage(tc.limit, tc.offset, 12, 48)
		if l != tc.wantLimit || o != tc.wantOffs {
			t.Errorf("ClampPage(%d,%d) = (%d,%d), want (%d,%d)", tc.limit, tc.offset, l, o, tc.wantLimit, tc.wantOffs)
		}
	}

	if l, _ := ClampPage(1000, 0, 10, 0); l != 1000 {
		t.Errorf("max<=0 should not cap, got %d", l)
	}
}
