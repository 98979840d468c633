package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionInvalidProfileID = errors.New("invalid profile id")
	ErrInvalidActivityType     = errors.New("invalid activity type")
	ErrInvalidSource           = errors.New("invalid data source")
	ErrInvalidTimeRange        = errors.New("session end must not precede start")
	ErrNegativeMetric          = errors.New("metric values cannot be negative")
	ErrSessionDeleted          = errors.New("cannot update a deleted session")
)

const (
	ActivityWalk      = "walk"
	ActivityRun       = "run"
	ActivityCommute   = "commute"
	ActivityHike      = "hike"
	ActivityTreadmill = "treadmill"
)

const (
	SourceApp         = "app"
	SourceManual      = "manual"
	SourcePhone       = "phone"
	SourceFitbit      = "fitbit"
	SourceGarmin      = "garmin"
	SourceAppleHealth = "apple_health"
)

const DayLayout = "2006-01-02"

// ActivitySession is one recorded exercise/movement event. The route blob is
// carried through for the client; only the splits derived from it at write
// time feed any aggregate.
type ActivitySession struct {
	ID        string `json:"id" db:"id"`
	ProfileID string `json:"profile_id" db:"profile_id"`

	// ExternalID and Source form the dedupe key for imported sessions.
	// Manual entries carry no external id and never deduplicate.
	ExternalID string `json:"external_id,omitempty" db:"external_id"`
	Source     string `json:"source" db:"source"`

	Type      string    `json:"type" db:"type"`
	StartedAt time.Time `json:"started_at" db:"started_at"`
	EndedAt   time.Time `json:"ended_at" db:"ended_at"`

	DurationSec    int     `json:"duration_sec" db:"duration_sec"`
	DistanceKm     float64 `json:"distance_km" db:"distance_km"`
	Steps          int     `json:"steps" db:"steps"`
	Calories       float64 `json:"calories" db:"calories"`
	ActiveCalories float64 `json:"active_calories" db:"active_calories"`

	HeartRateMin    *int     `json:"heart_rate_min,omitempty" db:"heart_rate_min"`
	HeartRateAvg    *float64 `json:"heart_rate_avg,omitempty" db:"heart_rate_avg"`
	HeartRateMax    *int     `json:"heart_rate_max,omitempty" db:"heart_rate_max"`
	AvgPaceSecPerKm *float64 `json:"avg_pace_sec_per_km,omitempty" db:"avg_pace_sec_per_km"`
	AvgSpeedKmh     *float64 `json:"avg_speed_kmh,omitempty" db:"avg_speed_kmh"`

	ElevationGainM float64 `json:"elevation_gain_m" db:"elevation_gain_m"`
	ElevationLossM float64 `json:"elevation_loss_m" db:"elevation_loss_m"`

	Route      []RoutePoint `json:"route,omitempty" db:"-"`
	Splits     []Split      `json:"splits,omitempty" db:"-"`
	BestSplit  int          `json:"best_split" db:"best_split"`
	WorstSplit int          `json:"worst_split" db:"worst_split"`

	Points int `json:"points" db:"points"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func validActivityType(t string) bool {
	switch t {
	case ActivityWalk, ActivityRun, ActivityCommute, ActivityHike, ActivityTreadmill:
		return true
	}
	return false
}

func validSource(s string) bool {
	switch s {
	case SourceApp, SourceManual, SourcePhone, SourceFitbit, SourceGarmin, SourceAppleHealth:
		return true
	}
	return false
}

func NewActivitySession(profileID, externalID, source, activityType string, startedAt, endedAt time.Time) (*ActivitySession, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, ErrSessionInvalidProfileID
	}
	if !validActivityType(activityType) {
		return nil, ErrInvalidActivityType
	}
	if !validSource(source) {
		return nil, ErrInvalidSource
	}
	if startedAt.IsZero() || endedAt.Before(startedAt) {
		return nil, ErrInvalidTimeRange
	}

	// Manual entries are never matched against each other.
	if source == SourceManual {
		externalID = ""
	}

	now := time.Now().UTC()

	return &ActivitySession{
		ID:          uuid.NewString(),
		ProfileID:   profileID,
		ExternalID:  strings.TrimSpace(externalID),
		Source:      source,
		Type:        activityType,
		StartedAt:   startedAt.UTC(),
		EndedAt:     endedAt.UTC(),
		DurationSec: int(endedAt.Sub(startedAt).Seconds()),
		BestSplit:   -1,
		WorstSplit:  -1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *ActivitySession) Validate() error {
	if strings.TrimSpace(s.ProfileID) == "" {
		return ErrSessionInvalidProfileID
	}
	if !validActivityType(s.Type) {
		return ErrInvalidActivityType
	}
	if !validSource(s.Source) {
		return ErrInvalidSource
	}
	if s.StartedAt.IsZero() || s.EndedAt.Before(s.StartedAt) {
		return ErrInvalidTimeRange
	}
	if s.DurationSec < 0 || s.DistanceKm < 0 || s.Steps < 0 || s.Calories < 0 || s.ActiveCalories < 0 {
		return ErrNegativeMetric
	}
	return nil
}

// Day returns the UTC calendar date the session belongs to. Summaries are
// keyed on this value.
func (s *ActivitySession) Day() string {
	return s.StartedAt.UTC().Format(DayLayout)
}

// Dedupable reports whether the session participates in source-based
// deduplication.
func (s *ActivitySession) Dedupable() bool {
	return s.ExternalID != "" && s.Source != SourceManual
}

func (s *ActivitySession) IsDeleted() bool {
	return s.DeletedAt != nil
}

// ActiveMinutes is the session's contribution to the daily active-minutes
// total.
func (s *ActivitySession) ActiveMinutes() int {
	return s.DurationSec / 60
}

func (s *ActivitySession) SoftDelete() {
	if s.DeletedAt != nil {
		return
	}
	now := time.Now().UTC()
	s.DeletedAt = &now
	s.UpdatedAt = now
}

func (s *ActivitySession) Restore() {
	if s.DeletedAt == nil {
		return
	}
	s.DeletedAt = nil
	s.UpdatedAt = time.Now().UTC()
}
