package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

// placeColumns is the SELECT column list shared by every place query. Order
// must match scanPlace.
const placeColumns = `
	id, name, note, lat, lng, external_ref, enabled, time_band,
	mood_tags, scene_tags, parking, smoking, seating, is_favorite,
	remind_enabled, remind_radius_m, created_at, updated_at, last_notified_at
`

// ListPlaces returns all places, most-recently-created first.
func (s *RecordStore) ListPlaces(ctx context.Context) ([]*types.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+placeColumns+" FROM places ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	var places []*types.Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}

	return places, nil
}

// GetPlace retrieves a place by ID. Returns storage.ErrNotFound if absent.
func (s *RecordStore) GetPlace(ctx context.Context, id string) (*types.Place, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: place ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+placeColumns+" FROM places WHERE id = ?", id)

	place, err := scanPlace(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return place, nil
}

// InsertPlace persists a fully-populated place row.
func (s *RecordStore) InsertPlace(ctx context.Context, place *types.Place) error {
	if place == nil || place.ID == "" {
		return fmt.Errorf("%w: place ID is required", storage.ErrInvalidInput)
	}

	moodJSON, sceneJSON, err := marshalTags(place)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO places (
			id, name, note, lat, lng, external_ref, enabled, time_band,
			mood_tags, scene_tags, parking, smoking, seating, is_favorite,
			remind_enabled, remind_radius_m, created_at, updated_at, last_notified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		place.ID,
		place.Name,
		nullableString(place.Note),
		place.Latitude,
		place.Longitude,
		nullableString(place.ExternalRef),
		boolToInt(place.Enabled),
		nullableString(place.TimeBand),
		moodJSON,
		sceneJSON,
		triStateToDB(place.Parking),
		triStateToDB(place.Smoking),
		nullableString(place.Seating),
		boolToInt(place.IsFavorite),
		boolToInt(place.RemindEnabled),
		nullableInt(place.RemindRadiusM),
		place.CreatedAt,
		place.UpdatedAt,
		nullableMillis(place.LastNotifiedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to insert place: %w", err)
	}

	return nil
}

// UpdatePlace rewrites the full row from the given state in a single
// statement, so a patch is either fully applied or not at all.
// Returns storage.ErrNotFound if the place does not exist.
func (s *RecordStore) UpdatePlace(ctx context.Context, place *types.Place) error {
	if place == nil || place.ID == "" {
		return fmt.Errorf("%w: place ID is required", storage.ErrInvalidInput)
	}

	moodJSON, sceneJSON, err := marshalTags(place)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE places SET
			name = ?, note = ?, lat = ?, lng = ?, external_ref = ?, enabled = ?,
			time_band = ?, mood_tags = ?, scene_tags = ?, parking = ?, smoking = ?,
			seating = ?, is_favorite = ?, remind_enabled = ?, remind_radius_m = ?,
			updated_at = ?, last_notified_at = ?
		WHERE id = ?`,
		place.Name,
		nullableString(place.Note),
		place.Latitude,
		place.Longitude,
		nullableString(place.ExternalRef),
		boolToInt(place.Enabled),
		nullableString(place.TimeBand),
		moodJSON,
		sceneJSON,
		triStateToDB(place.Parking),
		triStateToDB(place.Smoking),
		nullableString(place.Seating),
		boolToInt(place.IsFavorite),
		boolToInt(place.RemindEnabled),
		nullableInt(place.RemindRadiusM),
		place.UpdatedAt,
		nullableMillis(place.LastNotifiedAt),
		place.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// DeletePlace removes the place and, via the FK cascade, its notes.
// Deleting a non-existent ID is a no-op, not an error.
func (s *RecordStore) DeletePlace(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: place ID is required", storage.ErrInvalidInput)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM places WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}

	return nil
}

// CountPlaces returns the number of place rows.
func (s *RecordStore) CountPlaces(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM places").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count places: %w", err)
	}
	return count, nil
}

// ClaimNotificationSlot conditionally sets last_notified_at = now when the
// place was last notified at least cooldown ago, or never. The check and the
// write are a single conditional UPDATE so near-simultaneous geofence events
// cannot both win.
func (s *RecordStore) ClaimNotificationSlot(ctx context.Context, placeID string, now time.Time, cooldown time.Duration) (bool, error) {
	if placeID == "" {
		return false, fmt.Errorf("%w: place ID is required", storage.ErrInvalidInput)
	}

	nowMillis := now.UnixMilli()
	threshold := nowMillis - cooldown.Milliseconds()

	res, err := s.db.ExecContext(ctx, `
		UPDATE places SET last_notified_at = ?, updated_at = ?
		WHERE id = ? AND (last_notified_at IS NULL OR last_notified_at <= ?)`,
		nowMillis, nowMillis, placeID, threshold,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification slot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}

	return affected > 0, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPlace reads one row in placeColumns order.
func scanPlace(row scanner) (*types.Place, error) {
	var place types.Place
	var name, note, externalRef, timeBand, seating sql.NullString
	var moodJSON, sceneJSON sql.NullString
	var parking, smoking sql.NullInt64
	var remindRadius sql.NullInt64
	var lastNotified sql.NullInt64
	var enabled, isFavorite, remindEnabled int

	err := row.Scan(
		&place.ID,
		&name,
		&note,
		&place.Latitude,
		&place.Longitude,
		&externalRef,
		&enabled,
		&timeBand,
		&moodJSON,
		&sceneJSON,
		&parking,
		&smoking,
		&seating,
		&isFavorite,
		&remindEnabled,
		&remindRadius,
		&place.CreatedAt,
		&place.UpdatedAt,
		&lastNotified,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan place: %w", err)
	}

	place.Name = name.String
	place.Note = note.String
	place.ExternalRef = externalRef.String
	place.Enabled = enabled == 1
	place.TimeBand = timeBand.String
	place.Parking = triStateFromDB(parking)
	place.Smoking = triStateFromDB(smoking)
	place.Seating = seating.String
	place.IsFavorite = isFavorite == 1
	place.RemindEnabled = remindEnabled == 1
	place.RemindRadiusM = int(remindRadius.Int64)
	place.LastNotifiedAt = lastNotified.Int64

	if moodJSON.Valid && moodJSON.String != "" {
		if err := json.Unmarshal([]byte(moodJSON.String), &place.MoodTags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mood tags: %w", err)
		}
	}
	if sceneJSON.Valid && sceneJSON.String != "" {
		if err := json.Unmarshal([]byte(sceneJSON.String), &place.SceneTags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scene tags: %w", err)
		}
	}

	return &place, nil
}

// marshalTags serialises the optional tag sets to JSON, or NULL when empty.
func marshalTags(place *types.Place) (interface{}, interface{}, error) {
	var moodJSON, sceneJSON interface{}

	if len(place.MoodTags) > 0 {
		data, err := json.Marshal(place.MoodTags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal mood tags: %w", err)
		}
		moodJSON = string(data)
	}

	if len(place.SceneTags) > 0 {
		data, err := json.Marshal(place.SceneTags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal scene tags: %w", err)
		}
		sceneJSON = string(data)
	}

	return moodJSON, sceneJSON, nil
}

// triStateToDB maps TriState onto NULL / 0 / 1.
func triStateToDB(t types.TriState) interface{} {
	switch t {
	case types.TriStateNo:
		return 0
	case types.TriStateYes:
		return 1
	default:
		return nil
	}
}

// triStateFromDB maps NULL / 0 / 1 back onto TriState.
func triStateFromDB(v sql.NullInt64) types.TriState {
	if !v.Valid {
		return types.TriStateUnset
	}
	if v.Int64 == 1 {
		return types.TriStateYes
	}
	return types.TriStateNo
}
