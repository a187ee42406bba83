package model

import "strings"

// pointsPerKg maps a material type to the points awarded per kilogram
// collected. Unknown materials earn the default rate.
var pointsPerKg = map[string]float64{
	"plastico": 5,
	"carton":   3,
	"vidrio":   4,
	"metal":    6,
}

const defaultPointsPerKg = 1

// PointRate returns the per-kilogram rate for a material.
func PointRate(material string) float64 {
	if rate, ok := pointsPerKg[strings.ToLower(material)]; ok {
		return rate
	}
	return defaultPointsPerKg
}

// PointsFor computes the points earned for collecting weightKg of material.
func PointsFor(material string, weightKg float64) float64 {
	return PointRate(material) * weightKg
}
