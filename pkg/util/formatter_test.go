package util

import (
	"math"
	"testing"
)

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{193.4e12, "Hz", "193.400 THz"},
		{1.55e-6, "m", "1.550 um"},
		{0.5, "m", "500.000 mm"},
		{2, "V", "2.000 V"},
	}
	for _, tt := range tests {
		if got := FormatValueFactor(tt.value, tt.unit); got != tt.want {
			t.Errorf("FormatValueFactor(%g, %q) = %q, want %q", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestFormatWavelength(t *testing.T) {
	if got := FormatWavelength(1550e-9); got != "1550.000 nm" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatMagnitudeDB(t *testing.T) {
	if got := FormatMagnitudeDB(math.Inf(-1)); got != "    -inf" {
		t.Fatalf("got %q", got)
	}
	if got := FormatMagnitudeDB(-3.0103); got != "  -3.010" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatSParam(t *testing.T) {
	got := FormatSParam("S21", -3.0103, -90)
	want := "S21=  -3.010dB<  -90.0deg"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
