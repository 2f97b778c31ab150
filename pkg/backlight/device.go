package backlight

import "math"

// Device is a hardware brightness control.
type Device interface {
	// Current reads the brightness the hardware reports right now.
	Current() (int, error)
	// Max reads the largest value the hardware accepts. It is read once and
	// cached for the lifetime of the Device.
	Max() (int, error)
	// Set writes a new brightness. The value is clamped to [0, Max()].
	Set(value int) error
}

// Clamp limits value to [0, max].
func Clamp(value, max int) int {
	if value < 0 {
		return 0
	}
	if value > max {
		return max
	}
	return value
}

// FromPercent converts a percentage to a brightness value, rounding to the
// nearest integer. The result is clamped to [0, max].
func FromPercent(pct float64, max int) int {
	return Clamp(int(math.Round(float64(max)*pct/100)), max)
}

// ToPercent converts a brightness value to a percentage of max.
func ToPercent(value, max int) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(float64(Clamp(value, max)) * 100 / float64(max)))
}
