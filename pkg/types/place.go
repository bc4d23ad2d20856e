// Package types defines the shared domain types for the Placemark data layer.
package types

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// TriState represents an optional yes/no attribute where "not recorded" is a
// meaningful third value. It is stored as NULL / 0 / 1 in the database.
type TriState int

const (
	// TriStateUnset means the attribute was never recorded.
	TriStateUnset TriState = iota

	// TriStateNo means the attribute was explicitly recorded as absent.
	TriStateNo

	// TriStateYes means the attribute was explicitly recorded as present.
	TriStateYes
)

// Place is a persisted location record with monitoring and metadata.
// ID is assigned once at creation and never reused. UpdatedAt is rewritten on
// every mutation and is monotonically non-decreasing.
type Place struct {
	// ID is an opaque, globally unique identifier (place_<uuid>).
	ID string `json:"id"`

	// Name is the display name shown in notifications and reminder lists.
	Name string `json:"name"`

	// Note is an optional free-text annotation on the place itself.
	Note string `json:"note,omitempty"`

	// Latitude and Longitude are always present and finite.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// ExternalRef is an optional reference into an external place directory.
	ExternalRef string `json:"externalRef,omitempty"`

	// Enabled controls whether the place participates in geofence monitoring.
	Enabled bool `json:"enabled"`

	// TimeBand is an optional categorical wait-time band (e.g. "short").
	TimeBand string `json:"timeBand,omitempty"`

	// MoodTags and SceneTags are optional free-form tag sets.
	MoodTags  []string `json:"moodTags,omitempty"`
	SceneTags []string `json:"sceneTags,omitempty"`

	// Parking and Smoking are optional tri-state attributes.
	Parking TriState `json:"parking,omitempty"`
	Smoking TriState `json:"smoking,omitempty"`

	// Seating is an optional categorical seating type.
	Seating string `json:"seating,omitempty"`

	IsFavorite bool `json:"isFavorite"`

	// RemindEnabled and RemindRadiusM are per-place reminder defaults.
	RemindEnabled bool `json:"remindEnabled"`
	RemindRadiusM int  `json:"remindRadiusM,omitempty"`

	// CreatedAt and UpdatedAt are epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`

	// LastNotifiedAt is the epoch-millisecond time of the last geofence
	// notification for this place, or 0 if it has never been notified.
	// Local-only: never uploaded to the remote store.
	LastNotifiedAt int64 `json:"-"`
}

// PlacePatch is a partial update applied to a Place. Nil fields are left
// unchanged. A patch is applied atomically: either every supplied field
// persists or none do.
type PlacePatch struct {
	Name          *string
	Note          *string
	Latitude      *float64
	Longitude     *float64
	ExternalRef   *string
	Enabled       *bool
	TimeBand      *string
	MoodTags      *[]string
	SceneTags     *[]string
	Parking       *TriState
	Smoking       *TriState
	Seating       *string
	IsFavorite    *bool
	RemindEnabled *bool
	RemindRadiusM *int
}

// AffectsMonitoring reports whether applying the patch can change the derived
// geofence region set (enabled flag or coordinates).
func (p *PlacePatch) AffectsMonitoring() bool {
	return p.Enabled != nil || p.Latitude != nil || p.Longitude != nil
}

// Apply merges the patch onto the place, mutating it in place.
func (p *PlacePatch) Apply(place *Place) {
	if p.Name != nil {
		place.Name = *p.Name
	}
	if p.Note != nil {
		place.Note = *p.Note
	}
	if p.Latitude != nil {
		place.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		place.Longitude = *p.Longitude
	}
	if p.ExternalRef != nil {
		place.ExternalRef = *p.ExternalRef
	}
	if p.Enabled != nil {
		place.Enabled = *p.Enabled
	}
	if p.TimeBand != nil {
		place.TimeBand = *p.TimeBand
	}
	if p.MoodTags != nil {
		place.MoodTags = *p.MoodTags
	}
	if p.SceneTags != nil {
		place.SceneTags = *p.SceneTags
	}
	if p.Parking != nil {
		place.Parking = *p.Parking
	}
	if p.Smoking != nil {
		place.Smoking = *p.Smoking
	}
	if p.Seating != nil {
		place.Seating = *p.Seating
	}
	if p.IsFavorite != nil {
		place.IsFavorite = *p.IsFavorite
	}
	if p.RemindEnabled != nil {
		place.RemindEnabled = *p.RemindEnabled
	}
	if p.RemindRadiusM != nil {
		place.RemindRadiusM = *p.RemindRadiusM
	}
}

// ValidateCoordinates reports an error for non-finite or out-of-range
// coordinates. NaN and infinities must be rejected before any mutation.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates must be finite (got %v, %v)", lat, lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude out of range: %v", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude out of range: %v", lng)
	}
	return nil
}

// NewID generates a prefixed opaque identifier, e.g. place_2c1f…
func NewID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}
