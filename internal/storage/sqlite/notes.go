package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

const noteColumns = `
	id, place_id, text, checked, reminder_at, reminder_handle, created_at
`

// ListNotes returns the notes of one place, most-recently-created first.
func (s *RecordStore) ListNotes(ctx context.Context, placeID string) ([]*types.Note, error) {
	if placeID == "" {
		return nil, fmt.Errorf("%w: place ID is required", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE place_id = ? ORDER BY created_at DESC, id", placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	return collectNotes(rows)
}

// ListAllNotes returns every note across all places.
func (s *RecordStore) ListAllNotes(ctx context.Context) ([]*types.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	return collectNotes(rows)
}

// GetNote retrieves a note by ID. Returns storage.ErrNotFound if absent.
func (s *RecordStore) GetNote(ctx context.Context, id string) (*types.Note, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id = ?", id)

	note, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return note, nil
}

// InsertNote persists a note row. The owning place must exist (FK).
func (s *RecordStore) InsertNote(ctx context.Context, note *types.Note) error {
	if note == nil || note.ID == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}
	if note.PlaceID == "" {
		return fmt.Errorf("%w: owning place ID is required", storage.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, place_id, text, checked, reminder_at, reminder_handle, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.PlaceID,
		note.Text,
		boolToInt(note.Checked),
		nullableMillis(note.ReminderAt),
		nullableString(note.ReminderHandle),
		note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	return nil
}

// UpdateNote rewrites the full row in a single statement: text, checked flag
// and both reminder fields change together, so a reminder transition is never
// observable half-applied. Returns storage.ErrNotFound if the note is absent.
func (s *RecordStore) UpdateNote(ctx context.Context, note *types.Note) error {
	if note == nil || note.ID == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE notes SET text = ?, checked = ?, reminder_at = ?, reminder_handle = ?
		WHERE id = ?`,
		note.Text,
		boolToInt(note.Checked),
		nullableMillis(note.ReminderAt),
		nullableString(note.ReminderHandle),
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
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

// DeleteNote removes a note. Idempotent.
func (s *RecordStore) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: note ID is required", storage.ErrInvalidInput)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	return nil
}

// DeleteCheckedNotes removes all checked notes of one place and returns the
// removed rows so the caller can cancel any lingering reminder handles.
func (s *RecordStore) DeleteCheckedNotes(ctx context.Context, placeID string) ([]*types.Note, error) {
	if placeID == "" {
		return nil, fmt.Errorf("%w: place ID is required", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE place_id = ? AND checked = 1", placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checked notes: %w", err)
	}
	checked, err := collectNotes(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE place_id = ? AND checked = 1", placeID); err != nil {
		return nil, fmt.Errorf("failed to delete checked notes: %w", err)
	}

	return checked, nil
}

// ListActiveReminders returns every non-checked note whose reminder is
// strictly in the future, joined with its owning place's name, soonest first.
// This query is the sole basis for any upcoming-reminders view.
func (s *RecordStore) ListActiveReminders(ctx context.Context, now time.Time) ([]*types.ReminderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.place_id, COALESCE(p.name, ''), n.id, n.text, n.reminder_at
		FROM notes n
		JOIN places p ON p.id = n.place_id
		WHERE n.checked = 0 AND n.reminder_at IS NOT NULL AND n.reminder_at > ?
		ORDER BY n.reminder_at ASC, n.id`,
		now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reminders: %w", err)
	}
	defer rows.Close()

	var items []*types.ReminderItem
	for rows.Next() {
		var item types.ReminderItem
		if err := rows.Scan(&item.PlaceID, &item.PlaceName, &item.NoteID, &item.Text, &item.ReminderAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}

	return items, nil
}

func collectNotes(rows *sql.Rows) ([]*types.Note, error) {
	var notes []*types.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

func scanNote(row scanner) (*types.Note, error) {
	var note types.Note
	var checked int
	var reminderAt sql.NullInt64
	var reminderHandle sql.NullString

	err := row.Scan(
		&note.ID,
		&note.PlaceID,
		&note.Text,
		&checked,
		&reminderAt,
		&reminderHandle,
		&note.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan note: %w", err)
	}

	note.Checked = checked == 1
	note.ReminderAt = reminderAt.Int64
	note.ReminderHandle = reminderHandle.String

	return &note, nil
}
