package service

import (
	"math"
	"strings"
)

// CredibilityRules bounds what a location reading may look like before it is
// stored
type CredibilityRules struct {
	MinAccuracy float64 // meters
	MaxAccuracy float64 // meters
	MaxSpeed    float64 // m/s
	MinBattery  float64 // percent
	MaxBattery  float64 // percent
}

// DefaultCredibilityRules accept GPS fixes between 1 m and 2 km accuracy and
// speeds up to roughly 200 km/h
var DefaultCredibilityRules = CredibilityRules{
	MinAccuracy: 1,
	MaxAccuracy: 2000,
	MaxSpeed:    55.56,
	MinBattery:  0,
	MaxBattery:  100,
}

// LocationCandidate is the part of a reading the credibility rules look at
type LocationCandidate struct {
	Accuracy      float64
	Speed         *float64
	BatteryLevel  *float64
	IsSignificant bool
	Reason        string
}

// IsCredible reports whether c passes every rule. Bounds are inclusive and NaN
// never passes.
func (r CredibilityRules) IsCredible(c LocationCandidate) bool {
	if !within(c.Accuracy, r.MinAccuracy, r.MaxAccuracy) {
		return false
	}
	if c.Speed != nil && !within(*c.Speed, 0, r.MaxSpeed) {
		return false
	}
	if c.BatteryLevel != nil && !within(*c.BatteryLevel, r.MinBattery, r.MaxBattery) {
		return false
	}
	if c.IsSignificant && strings.TrimSpace(c.Reason) == "" {
		return false
	}
	return true
}

func within(v, min, max float64) bool {
	return !math.IsNaN(v) && v >= min && v <= max
}
