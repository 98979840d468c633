package domain

import (
	"time"

	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// Minimum leftover distance for a trailing partial split to be kept.
const minPartialSplitKm = 0.1

// RoutePoint is a single GPS sample. The sequence is opaque to the
// aggregates: it is stored as-is and only consumed once, at write time, to
// derive splits.
type RoutePoint struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	AltitudeM float64   `json:"altitude_m,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Split is one per-kilometer segment of a session, derived from the route at
// write time and stored alongside it.
type Split struct {
	Index        int     `json:"index"`
	DistanceKm   float64 `json:"distance_km"`
	DurationSec  int     `json:"duration_sec"`
	PaceSecPerKm float64 `json:"pace_sec_per_km"`
}

func haversineKm(a, b RoutePoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * earthRadiusMeters / 1000
}

// ComputeSplits walks the route and cuts it into full-kilometer splits, plus
// a trailing partial split when the leftover is long enough to carry a
// meaningful pace.
func ComputeSplits(route []RoutePoint) []Split {
	if len(route) < 2 {
		return nil
	}

	var splits []Split
	splitStart := route[0].Timestamp
	splitKm := 0.0

	for i := 1; i < len(route); i++ {
		splitKm += haversineKm(route[i-1], route[i])

		if splitKm >= 1.0 {
			dur := int(route[i].Timestamp.Sub(splitStart).Seconds())
			splits = append(splits, Split{
				Index:        len(splits),
				DistanceKm:   splitKm,
				DurationSec:  dur,
				PaceSecPerKm: float64(dur) / splitKm,
			})
			splitStart = route[i].Timestamp
			splitKm = 0
		}
	}

	if splitKm >= minPartialSplitKm {
		last := route[len(route)-1]
		dur := int(last.Timestamp.Sub(splitStart).Seconds())
		splits = append(splits, Split{
			Index:        len(splits),
			DistanceKm:   splitKm,
			DurationSec:  dur,
			PaceSecPerKm: float64(dur) / splitKm,
		})
	}

	return splits
}

// BestWorstSplit returns the indices of the fastest and slowest splits
// (lower pace = faster), or (-1, -1) when there are none.
func BestWorstSplit(splits []Split) (best, worst int) {
	best, worst = -1, -1
	for i, s := range splits {
		if best == -1 || s.PaceSecPerKm < splits[best].PaceSecPerKm {
			best = i
		}
		if worst == -1 || s.PaceSecPerKm > splits[worst].PaceSecPerKm {
			worst = i
		}
	}
	return best, worst
}
