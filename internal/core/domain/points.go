package domain

import "math"

// ComputePoints scores a session from its step, distance and calorie totals.
// Each term floors independently. The result is stored on the session at
// write time; daily aggregation only ever sums stored per-session points.
func ComputePoints(steps int, distanceKm, calories float64, w PointWeights) int {
	stepPoints := math.Floor(float64(steps) / 1000 * w.PerThousandSteps)
	distancePoints := math.Floor(distanceKm * w.PerKm)
	caloriePoints := math.Floor(calories * w.PerCalorie)
	return int(stepPoints + distancePoints + caloriePoints)
}
