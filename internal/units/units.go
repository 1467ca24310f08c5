// Package units provides shared constants and validation for amplitude units
package units

// Unit constants
const (
	Counts     = "counts"
	Microvolts = "uv"
	Millivolts = "mv"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Counts, Microvolts, Millivolts}

// Analog front-end constants. Raw channel values are ADC counts from a
// 12-bit converter referenced to 3.3V behind a x1000 instrumentation gain,
// so one count corresponds to vref/4096/gain volts at the electrode.
const (
	adcFullScale = 4096
	vrefVolts    = 3.3
	frontEndGain = 1000.0
)

// MicrovoltsPerCount is the input-referred microvolts represented by one
// ADC count.
const MicrovoltsPerCount = vrefVolts / adcFullScale / frontEndGain * 1e6

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "counts, uv, mv"
}

// ConvertAmplitude converts an amplitude from raw ADC counts to the target
// units. Stored frames carry counts; conversion happens at the query edge.
func ConvertAmplitude(counts float64, targetUnits string) float64 {
	switch targetUnits {
	case Microvolts:
		return counts * MicrovoltsPerCount
	case Millivolts:
		return counts * MicrovoltsPerCount / 1000
	case Counts:
		return counts
	default:
		return counts // default to counts if unknown unit
	}
}
