package geofence

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/placemark/internal/platform"
	"github.com/scrypster/placemark/internal/storage"
)

// EventType distinguishes region entry from exit.
type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
)

// Event is a geofence event delivered by the OS. RegionID equals the place ID
// the region was derived from.
type Event struct {
	Type     EventType
	RegionID string
}

// EventHandler reacts to region-entry events in a background execution slot.
// The OS gives it a hard time budget and no error channel, so HandleEvent
// never fails: every error and even a panic is logged and absorbed.
//
// The checks run cheapest-first: enabled flag, note existence, and the time
// window are all local reads that short-circuit before the cooldown write and
// the notification side effect.
type EventHandler struct {
	places   storage.PlaceStore
	notes    storage.NoteStore
	notifier platform.NotificationScheduler
	log      *logrus.Logger

	// now is the clock; replaced in tests to pin the lunch window.
	now func() time.Time
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(places storage.PlaceStore, notes storage.NoteStore, notifier platform.NotificationScheduler, log *logrus.Logger) *EventHandler {
	return &EventHandler{
		places:   places,
		notes:    notes,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// HandleEvent processes one geofence event. It always returns normally.
func (h *EventHandler) HandleEvent(ctx context.Context, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).Error("geofence: event handler panicked")
		}
	}()

	if evt.Type != EventEnter || evt.RegionID == "" {
		return
	}

	place, err := h.places.GetPlace(ctx, evt.RegionID)
	if err != nil {
		// Includes ErrNotFound: the place may have been deleted while its
		// region was still registered.
		return
	}
	if !place.Enabled {
		return
	}

	notes, err := h.notes.ListNotes(ctx, place.ID)
	if err != nil || len(notes) == 0 {
		return
	}

	now := h.now()
	if !InLunchWindow(now) {
		return
	}

	// The cooldown read and the last_notified_at write are one conditional
	// UPDATE: of two near-simultaneous entry events, exactly one wins.
	won, err := h.places.ClaimNotificationSlot(ctx, place.ID, now, NotifyCooldown)
	if err != nil {
		h.log.WithError(err).Warn("geofence: failed to claim notification slot")
		return
	}
	if !won {
		return
	}

	title := fmt.Sprintf("You're near %s", place.Name)
	body := "You have notes for this place"
	if err := h.notifier.ShowNow(ctx, title, body); err != nil {
		h.log.WithError(err).Warn("geofence: failed to show notification")
	}
}

// InLunchWindow reports whether t (in its own location) falls in the
// notification window: Monday through Friday, 11:00–12:59 local time.
func InLunchWindow(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := t.Hour()
	return hour >= 11 && hour < 13
}
