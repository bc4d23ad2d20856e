package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

// ListTravelEntries returns all travel entries, most-recently-created first.
func (s *RecordStore) ListTravelEntries(ctx context.Context) ([]*types.TravelEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region_code, restaurant_name, genre, visited_at, rating, note, created_at
		FROM travel_entries ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list travel entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.TravelEntry
	for rows.Next() {
		var entry types.TravelEntry
		var name, genre, note sql.NullString
		var visitedAt, rating sql.NullInt64
		if err := rows.Scan(
			&entry.ID,
			&entry.RegionCode,
			&name,
			&genre,
			&visitedAt,
			&rating,
			&note,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan travel entry: %w", err)
		}
		entry.RestaurantName = name.String
		entry.Genre = genre.String
		entry.VisitedAt = visitedAt.Int64
		entry.Rating = int(rating.Int64)
		entry.Note = note.String
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate travel entries: %w", err)
	}

	return entries, nil
}

// InsertTravelEntry persists a travel entry row.
func (s *RecordStore) InsertTravelEntry(ctx context.Context, entry *types.TravelEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("%w: travel entry ID is required", storage.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO travel_entries (id, region_code, restaurant_name, genre, visited_at, rating, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.RegionCode,
		entry.RestaurantName,
		entry.Genre,
		entry.VisitedAt,
		entry.Rating,
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert travel entry: %w", err)
	}

	return nil
}

// UpdateTravelEntry rewrites the full row.
// Returns storage.ErrNotFound if the entry does not exist.
func (s *RecordStore) UpdateTravelEntry(ctx context.Context, entry *types.TravelEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("%w: travel entry ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE travel_entries SET
			region_code = ?, restaurant_name = ?, genre = ?, visited_at = ?,
			rating = ?, note = ?
		WHERE id = ?`,
		entry.RegionCode,
		entry.RestaurantName,
		entry.Genre,
		entry.VisitedAt,
		entry.Rating,
		entry.Note,
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update travel entry: %w", err)
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

// DeleteTravelEntry removes an entry. Idempotent.
func (s *RecordStore) DeleteTravelEntry(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: travel entry ID is required", storage.ErrInvalidInput)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM travel_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete travel entry: %w", err)
	}

	return nil
}
