package geofence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/placemark/internal/storage/sqlite"
	"github.com/scrypster/placemark/pkg/types"
)

// fakeShower records immediate notifications.
type fakeShower struct {
	shown []string
}

func (f *fakeShower) ScheduleAt(context.Context, time.Time, string, string) (string, error) {
	return "", nil
}
func (f *fakeShower) Cancel(context.Context, string) error { return nil }
func (f *fakeShower) ShowNow(_ context.Context, title, _ string) error {
	f.shown = append(f.shown, title)
	return nil
}

// tuesdayLunch is a weekday time inside the notification window.
var tuesdayLunch = time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)

type handlerFixture struct {
	store    *sqlite.RecordStore
	notifier *fakeShower
	handler  *EventHandler
}

func newHandlerFixture(t *testing.T, now time.Time) *handlerFixture {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	notifier := &fakeShower{}
	handler := NewEventHandler(store, store, notifier, quietLogger())
	handler.now = func() time.Time { return now }

	return &handlerFixture{store: store, notifier: notifier, handler: handler}
}

func (fx *handlerFixture) seed(t *testing.T, enabled bool, noteTexts ...string) {
	t.Helper()
	ctx := context.Background()

	p := place("place_1", enabled)
	require.NoError(t, fx.store.InsertPlace(ctx, p))
	for i, text := range noteTexts {
		require.NoError(t, fx.store.InsertNote(ctx, &types.Note{
			ID: types.NewID("note"), PlaceID: "place_1", Text: text, CreatedAt: int64(i),
		}))
	}
}

func TestHandleEventNotifiesOnce(t *testing.T) {
	fx := newHandlerFixture(t, tuesdayLunch)
	fx.seed(t, true, "try the karaage")

	evt := Event{Type: EventEnter, RegionID: "place_1"}

	fx.handler.HandleEvent(context.Background(), evt)
	require.Len(t, fx.notifier.shown, 1)
	assert.Contains(t, fx.notifier.shown[0], "place_1")

	// A second entry within the cooldown is silent.
	fx.handler.HandleEvent(context.Background(), evt)
	assert.Len(t, fx.notifier.shown, 1)
}

func TestHandleEventCooldownExpires(t *testing.T) {
	fx := newHandlerFixture(t, tuesdayLunch)
	fx.seed(t, true, "note")

	evt := Event{Type: EventEnter, RegionID: "place_1"}
	fx.handler.HandleEvent(context.Background(), evt)
	require.Len(t, fx.notifier.shown, 1)

	// Next day's lunch hour, past the cooldown.
	later := tuesdayLunch.Add(24 * time.Hour)
	require.True(t, InLunchWindow(later), "test times must stay inside the window")
	fx.handler.now = func() time.Time { return later }

	fx.handler.HandleEvent(context.Background(), evt)
	assert.Len(t, fx.notifier.shown, 2)
}

func TestHandleEventShortCircuits(t *testing.T) {
	t.Run("exit events ignored", func(t *testing.T) {
		fx := newHandlerFixture(t, tuesdayLunch)
		fx.seed(t, true, "note")
		fx.handler.HandleEvent(context.Background(), Event{Type: EventExit, RegionID: "place_1"})
		assert.Empty(t, fx.notifier.shown)
	})

	t.Run("unknown place", func(t *testing.T) {
		fx := newHandlerFixture(t, tuesdayLunch)
		fx.handler.HandleEvent(context.Background(), Event{Type: EventEnter, RegionID: "place_gone"})
		assert.Empty(t, fx.notifier.shown)
	})

	t.Run("disabled place", func(t *testing.T) {
		fx := newHandlerFixture(t, tuesdayLunch)
		fx.seed(t, false, "note")
		fx.handler.HandleEvent(context.Background(), Event{Type: EventEnter, RegionID: "place_1"})
		assert.Empty(t, fx.notifier.shown)
	})

	t.Run("no notes", func(t *testing.T) {
		fx := newHandlerFixture(t, tuesdayLunch)
		fx.seed(t, true)
		fx.handler.HandleEvent(context.Background(), Event{Type: EventEnter, RegionID: "place_1"})
		assert.Empty(t, fx.notifier.shown)
	})

	t.Run("outside lunch window", func(t *testing.T) {
		evening := time.Date(2025, 3, 11, 19, 0, 0, 0, time.UTC)
		fx := newHandlerFixture(t, evening)
		fx.seed(t, true, "note")
		fx.handler.HandleEvent(context.Background(), Event{Type: EventEnter, RegionID: "place_1"})
		assert.Empty(t, fx.notifier.shown)
	})
}

// The no-notes short-circuit runs before the cooldown write: an event with
// nothing to say must not burn the notification slot.
func TestHandleEventNoNotesDoesNotClaimCooldown(t *testing.T) {
	fx := newHandlerFixture(t, tuesdayLunch)
	fx.seed(t, true)

	fx.handler.HandleEvent(context.Background(), Event{Type: EventEnter, RegionID: "place_1"})

	got, err := fx.store.GetPlace(context.Background(), "place_1")
	require.NoError(t, err)
	assert.Zero(t, got.LastNotifiedAt)
}

func TestInLunchWindow(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"weekday noon", time.Date(2025, 3, 11, 12, 30, 0, 0, time.UTC), true},
		{"weekday 11:00", time.Date(2025, 3, 11, 11, 0, 0, 0, time.UTC), true},
		{"weekday 13:00", time.Date(2025, 3, 11, 13, 0, 0, 0, time.UTC), false},
		{"weekday 10:59", time.Date(2025, 3, 11, 10, 59, 0, 0, time.UTC), false},
		{"saturday noon", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), false},
		{"sunday noon", time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InLunchWindow(tc.t))
		})
	}
}

func TestHandleEventAbsorbsPanic(t *testing.T) {
	fx := newHandlerFixture(t, tuesdayLunch)
	fx.handler.places = nil // force a nil-pointer panic inside

	assert.NotPanics(t, func() {
		fx.handler.HandleEvent(context.Background(), Event{Type: EventEnter, RegionID: "place_1"})
	})
}
