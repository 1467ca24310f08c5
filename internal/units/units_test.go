package units

import (
	"math"
	"testing"
)

func TestConvertAmplitude(t *testing.T) {
	tests := []struct {
		name     string
		counts   float64
		units    string
		expected float64
	}{
		{"100 counts to uv", 100.0, Microvolts, 80.566},
		{"100 counts to mv", 100.0, Millivolts, 0.080566},
		{"100 counts to counts", 100.0, Counts, 100.0},
		{"unknown units default to counts", 100.0, "unknown", 100.0},
		{"0 counts to uv", 0.0, Microvolts, 0.0},
		{"full scale 4096 counts to uv", 4096.0, Microvolts, 3300.0},
		{"one count to uv", 1.0, Microvolts, 0.80566},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertAmplitude(tt.counts, tt.units)
			if math.Abs(result-tt.expected) > 0.001 { // Allow small floating point differences
				t.Errorf("ConvertAmplitude(%f, %s) = %f, want %f", tt.counts, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid counts", Counts, true},
		{"valid uv", Microvolts, true},
		{"valid mv", Millivolts, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "UV", false},
		{"case sensitive", "Counts", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "counts, uv, mv"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestMicrovoltsPerCount(t *testing.T) {
	// 3.3V across 4096 counts behind x1000 gain
	want := 3.3 / 4096 / 1000 * 1e6
	if math.Abs(MicrovoltsPerCount-want) > 1e-9 {
		t.Errorf("MicrovoltsPerCount = %f, want %f", MicrovoltsPerCount, want)
	}
}
