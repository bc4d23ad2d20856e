package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

// minReminderLead is the minimum distance into the future a reminder time
// must be. Anything closer would fire before the schedule round-trip settles.
const minReminderLead = 5 * time.Second

// ListNotes returns the notes of one place.
func (s *Service) ListNotes(ctx context.Context, placeID string) ([]*types.Note, error) {
	return s.store.ListNotes(ctx, placeID)
}

// CreateNote persists a new note for an existing place. Text is trimmed and
// must be non-empty; new notes start unchecked with no reminder.
func (s *Service) CreateNote(ctx context.Context, placeID, text string) (*types.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: note text is required", storage.ErrValidation)
	}

	if _, err := s.store.GetPlace(ctx, placeID); err != nil {
		return nil, err
	}

	note := &types.Note{
		ID:        types.NewID("note"),
		PlaceID:   placeID,
		Text:      text,
		CreatedAt: s.now().UnixMilli(),
	}

	if err := s.store.InsertNote(ctx, note); err != nil {
		return nil, err
	}

	s.hooks.NoteSaved(note)
	return note, nil
}

// UpdateNoteText replaces the note body. When the note carries a live future
// reminder, the scheduled notification is rebuilt at the same time so its
// body matches the new text.
func (s *Service) UpdateNoteText(ctx context.Context, noteID, text string) (*types.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: note text is required", storage.ErrValidation)
	}

	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	note.Text = text

	if note.HasActiveReminder(s.now().UnixMilli()) {
		place, err := s.store.GetPlace(ctx, note.PlaceID)
		if err != nil {
			return nil, err
		}

		s.cancelHandle(ctx, note.ReminderHandle)
		handle, err := s.notifier.ScheduleAt(ctx,
			time.UnixMilli(note.ReminderAt), reminderTitle(place.Name), text)
		if err != nil {
			// Old notification is gone and the new one failed: persist the
			// note without a reminder rather than leave a stale handle.
			note.ReminderAt = 0
			note.ReminderHandle = ""
			s.log.WithError(err).Warn("records: failed to reschedule reminder on text edit")
		} else {
			note.ReminderHandle = handle
		}
	}

	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, err
	}

	s.hooks.NoteSaved(note)
	return note, nil
}

// SetNoteReminder sets or clears a note's reminder.
//
// With a non-nil time the sequence is validate, cancel the old notification,
// schedule the new one, persist. Validation failures leave the note and its
// scheduled notification untouched. A nil time clears the reminder and
// cancels any scheduled notification.
func (s *Service) SetNoteReminder(ctx context.Context, noteID string, at *time.Time) (*types.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if at == nil {
		s.cancelHandle(ctx, note.ReminderHandle)
		note.ReminderAt = 0
		note.ReminderHandle = ""
		if err := s.store.UpdateNote(ctx, note); err != nil {
			return nil, err
		}
		s.hooks.NoteSaved(note)
		return note, nil
	}

	if note.Checked {
		return nil, fmt.Errorf("%w: cannot set a reminder on a checked note", storage.ErrValidation)
	}
	if at.Before(s.now().Add(minReminderLead)) {
		return nil, fmt.Errorf("%w: reminder time must be in the future", storage.ErrValidation)
	}

	place, err := s.store.GetPlace(ctx, note.PlaceID)
	if err != nil {
		return nil, err
	}

	s.cancelHandle(ctx, note.ReminderHandle)

	handle, err := s.notifier.ScheduleAt(ctx, *at, reminderTitle(place.Name), note.Text)
	if err != nil {
		// The old notification is already cancelled; persist the cleared
		// state so the row never points at a dead handle.
		note.ReminderAt = 0
		note.ReminderHandle = ""
		if updateErr := s.store.UpdateNote(ctx, note); updateErr != nil {
			s.log.WithError(updateErr).Error("records: failed to clear reminder after schedule failure")
		}
		return nil, fmt.Errorf("failed to schedule reminder: %w", err)
	}

	note.ReminderAt = at.UnixMilli()
	note.ReminderHandle = handle

	if err := s.store.UpdateNote(ctx, note); err != nil {
		// Persist failed after scheduling: the notification must not outlive
		// the row state that would own it.
		s.cancelHandle(ctx, handle)
		return nil, err
	}

	s.hooks.NoteSaved(note)
	return note, nil
}

// ToggleNoteChecked flips the checked flag. Checking a note cancels and
// clears any reminder; unchecking never restores one.
func (s *Service) ToggleNoteChecked(ctx context.Context, noteID string) (*types.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	note.Checked = !note.Checked
	if note.Checked {
		s.cancelHandle(ctx, note.ReminderHandle)
		note.ReminderAt = 0
		note.ReminderHandle = ""
	}

	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, err
	}

	s.hooks.NoteSaved(note)
	return note, nil
}

// DeleteNote removes a note, cancelling its scheduled notification first.
// Deleting a non-existent ID is a no-op.
func (s *Service) DeleteNote(ctx context.Context, noteID string) error {
	note, err := s.store.GetNote(ctx, noteID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.cancelHandle(ctx, note.ReminderHandle)

	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return err
	}

	s.hooks.NoteDeleted(noteID)
	return nil
}

// ClearCheckedNotes removes every checked note of one place. Checked notes
// cannot hold reminders, but any handle that slipped through is cancelled
// anyway.
func (s *Service) ClearCheckedNotes(ctx context.Context, placeID string) (int, error) {
	removed, err := s.store.DeleteCheckedNotes(ctx, placeID)
	if err != nil {
		return 0, err
	}

	for _, note := range removed {
		s.cancelHandle(ctx, note.ReminderHandle)
		s.hooks.NoteDeleted(note.ID)
	}

	return len(removed), nil
}

// ListActiveReminders returns the upcoming-reminders view: every non-checked
// note with a strictly future reminder, soonest first.
func (s *Service) ListActiveReminders(ctx context.Context) ([]*types.ReminderItem, error) {
	return s.store.ListActiveReminders(ctx, s.now())
}

func reminderTitle(placeName string) string {
	return fmt.Sprintf("Reminder: %s", placeName)
}
