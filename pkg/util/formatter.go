package util

import (
	"fmt"
	"math"
)

func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1e12:
		return fmt.Sprintf("%.3f T%s", value/1e12, unit)
	case absValue >= 1e9:
		return fmt.Sprintf("%.3f G%s", value/1e9, unit)
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e12:
		return fmt.Sprintf("%8.3f THz", freq/1e12)
	case freq >= 1e9:
		return fmt.Sprintf("%8.3f GHz", freq/1e9)
	case freq >= 1e6:
		return fmt.Sprintf("%8.3f MHz", freq/1e6)
	default:
		return fmt.Sprintf("%8.3f Hz ", freq)
	}
}

// FormatWavelength prints a wavelength in nanometres, e.g. "1550.000 nm".
func FormatWavelength(wl float64) string {
	return fmt.Sprintf("%8.3f nm", wl*1e9)
}

// FormatMagnitudeDB prints a power ratio in dB. Zero transmission shows as -inf.
func FormatMagnitudeDB(db float64) string {
	if math.IsInf(db, -1) {
		return fmt.Sprintf("%8s", "-inf")
	}
	return fmt.Sprintf("%8.3f", db) // " -3.010"
}

func FormatPhase(value float64) string {
	return fmt.Sprintf("%7.1f", value) // "  -90.0"
}

func FormatSParam(name string, db, phase float64) string {
	return fmt.Sprintf("%s=%sdB<%sdeg", name, FormatMagnitudeDB(db), FormatPhase(phase))
}
