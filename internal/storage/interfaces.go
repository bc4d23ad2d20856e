package storage

import (
	"context"
	"time"

	"github.com/scrypster/placemark/pkg/types"
)

// PlaceStore provides CRUD operations for places.
type PlaceStore interface {
	// ListPlaces returns all places, most-recently-created first.
	ListPlaces(ctx context.Context) ([]*types.Place, error)

	// GetPlace retrieves a place by ID. Returns ErrNotFound if absent.
	GetPlace(ctx context.Context, id string) (*types.Place, error)

	// InsertPlace persists a fully-populated place row.
	InsertPlace(ctx context.Context, place *types.Place) error

	// UpdatePlace rewrites the full row from the given state in a single
	// statement. Returns ErrNotFound if the place does not exist.
	UpdatePlace(ctx context.Context, place *types.Place) error

	// DeletePlace removes the place and, via FK cascade, its notes.
	// Deleting a non-existent ID is a no-op, not an error.
	DeletePlace(ctx context.Context, id string) error

	// CountPlaces returns the number of place rows.
	CountPlaces(ctx context.Context) (int, error)

	// ClaimNotificationSlot conditionally sets last_notified_at = now if the
	// place exists and was last notified at least cooldown ago (or never).
	// The read-modify-write is a single conditional UPDATE, so concurrent
	// geofence events race safely. Returns true when the claim won.
	ClaimNotificationSlot(ctx context.Context, placeID string, now time.Time, cooldown time.Duration) (bool, error)
}

// NoteStore provides CRUD operations for notes and the reminder view.
type NoteStore interface {
	// ListNotes returns the notes of one place, most-recently-created first.
	ListNotes(ctx context.Context, placeID string) ([]*types.Note, error)

	// ListAllNotes returns every note across all places.
	ListAllNotes(ctx context.Context) ([]*types.Note, error)

	// GetNote retrieves a note by ID. Returns ErrNotFound if absent.
	GetNote(ctx context.Context, id string) (*types.Note, error)

	// InsertNote persists a note row.
	InsertNote(ctx context.Context, note *types.Note) error

	// UpdateNote rewrites the full row in a single statement, so reminder
	// transitions are never observable half-applied.
	// Returns ErrNotFound if the note does not exist.
	UpdateNote(ctx context.Context, note *types.Note) error

	// DeleteNote removes a note. Idempotent.
	DeleteNote(ctx context.Context, id string) error

	// DeleteCheckedNotes removes all checked notes of one place and returns
	// the removed rows so callers can cancel lingering reminder handles.
	DeleteCheckedNotes(ctx context.Context, placeID string) ([]*types.Note, error)

	// ListActiveReminders returns every non-checked note with a reminder
	// strictly after now, joined with its place name, soonest first.
	ListActiveReminders(ctx context.Context, now time.Time) ([]*types.ReminderItem, error)
}

// SettingsStore provides the flat string-keyed settings map.
type SettingsStore interface {
	// GetSetting returns the value for key, or "" and ErrNotFound.
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting upserts a key (insert-or-replace, never a raw insert).
	SetSetting(ctx context.Context, key, value string) error

	// AllSettings returns the full settings map.
	AllSettings(ctx context.Context) (map[string]string, error)

	// DeleteSetting removes a key. Idempotent.
	DeleteSetting(ctx context.Context, key string) error
}

// TravelStore provides CRUD operations for travel entries.
type TravelStore interface {
	ListTravelEntries(ctx context.Context) ([]*types.TravelEntry, error)
	InsertTravelEntry(ctx context.Context, entry *types.TravelEntry) error
	UpdateTravelEntry(ctx context.Context, entry *types.TravelEntry) error
	DeleteTravelEntry(ctx context.Context, id string) error
}

// RecordStore is the single source of truth for the data layer.
type RecordStore interface {
	PlaceStore
	NoteStore
	SettingsStore
	TravelStore

	// ClearAll wipes places, notes, travel entries, and settings in one
	// transaction. Used only by the bulk-download path of the sync engine.
	ClearAll(ctx context.Context) error

	// Close releases the underlying database resources.
	Close() error
}
