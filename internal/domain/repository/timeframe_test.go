package repository

import "testing"

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{"": TF1m, "1s": TF1s, "5m": TF5m, "1h": TF1m}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("NormalizeTimeframe(%q) = %s, want %s", in, got, want)
		}
	}
}
