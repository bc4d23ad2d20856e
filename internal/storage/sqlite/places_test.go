package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

// newTestStore creates an in-memory SQLite store for testing. Open runs the
// full migration set, so no additional DDL is required in tests.
func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testPlace(id string, createdAt int64) *types.Place {
	return &types.Place{
		ID:        id,
		Name:      "Ramen Koji",
		Latitude:  35.6812,
		Longitude: 139.7671,
		Enabled:   true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestPlaceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	place := testPlace("place_1", 1000)
	place.Note = "great tsukemen"
	place.ExternalRef = "ext-abc"
	place.TimeBand = "short"
	place.MoodTags = []string{"quick", "solo"}
	place.SceneTags = []string{"rainy-day"}
	place.Parking = types.TriStateNo
	place.Smoking = types.TriStateUnset
	place.Seating = "counter"
	place.IsFavorite = true
	place.RemindEnabled = true
	place.RemindRadiusM = 150

	if err := store.InsertPlace(ctx, place); err != nil {
		t.Fatalf("InsertPlace() failed: %v", err)
	}

	got, err := store.GetPlace(ctx, "place_1")
	if err != nil {
		t.Fatalf("GetPlace() failed: %v", err)
	}

	if got.Name != place.Name {
		t.Errorf("Name: got %q, want %q", got.Name, place.Name)
	}
	if got.Note != place.Note {
		t.Errorf("Note: got %q, want %q", got.Note, place.Note)
	}
	if got.Latitude != place.Latitude || got.Longitude != place.Longitude {
		t.Errorf("coordinates: got (%v, %v), want (%v, %v)",
			got.Latitude, got.Longitude, place.Latitude, place.Longitude)
	}
	if got.Parking != types.TriStateNo {
		t.Errorf("Parking: got %v, want TriStateNo", got.Parking)
	}
	if got.Smoking != types.TriStateUnset {
		t.Errorf("Smoking: got %v, want TriStateUnset", got.Smoking)
	}
	if len(got.MoodTags) != 2 || got.MoodTags[0] != "quick" {
		t.Errorf("MoodTags: got %v, want %v", got.MoodTags, place.MoodTags)
	}
	if !got.IsFavorite || !got.RemindEnabled {
		t.Error("boolean flags did not round-trip")
	}
	if got.RemindRadiusM != 150 {
		t.Errorf("RemindRadiusM: got %d, want 150", got.RemindRadiusM)
	}
	if got.LastNotifiedAt != 0 {
		t.Errorf("LastNotifiedAt: got %d, want 0", got.LastNotifiedAt)
	}
}

func TestGetPlaceNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPlace(context.Background(), "place_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetPlace() error: got %v, want ErrNotFound", err)
	}
}

func TestListPlacesOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []*types.Place{
		testPlace("place_old", 1000),
		testPlace("place_new", 3000),
		testPlace("place_mid", 2000),
	} {
		if err := store.InsertPlace(ctx, p); err != nil {
			t.Fatalf("InsertPlace(%s) failed: %v", p.ID, err)
		}
	}

	places, err := store.ListPlaces(ctx)
	if err != nil {
		t.Fatalf("ListPlaces() failed: %v", err)
	}

	want := []string{"place_new", "place_mid", "place_old"}
	if len(places) != len(want) {
		t.Fatalf("ListPlaces() returned %d places, want %d", len(places), len(want))
	}
	for i, id := range want {
		if places[i].ID != id {
			t.Errorf("places[%d].ID: got %q, want %q", i, places[i].ID, id)
		}
	}
}

func TestUpdatePlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	place := testPlace("place_1", 1000)
	if err := store.InsertPlace(ctx, place); err != nil {
		t.Fatalf("InsertPlace() failed: %v", err)
	}

	place.Name = "Renamed"
	place.Enabled = false
	place.UpdatedAt = 2000
	if err := store.UpdatePlace(ctx, place); err != nil {
		t.Fatalf("UpdatePlace() failed: %v", err)
	}

	got, err := store.GetPlace(ctx, "place_1")
	if err != nil {
		t.Fatalf("GetPlace() failed: %v", err)
	}
	if got.Name != "Renamed" || got.Enabled || got.UpdatedAt != 2000 {
		t.Errorf("update not applied: got %+v", got)
	}
}

func TestUpdatePlaceNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdatePlace(context.Background(), testPlace("place_ghost", 1000))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("UpdatePlace() error: got %v, want ErrNotFound", err)
	}
}

func TestDeletePlaceIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertPlace(ctx, testPlace("place_1", 1000)); err != nil {
		t.Fatalf("InsertPlace() failed: %v", err)
	}

	if err := store.DeletePlace(ctx, "place_1"); err != nil {
		t.Fatalf("first DeletePlace() failed: %v", err)
	}
	if err := store.DeletePlace(ctx, "place_1"); err != nil {
		t.Fatalf("second DeletePlace() failed: %v", err)
	}

	count, err := store.CountPlaces(ctx)
	if err != nil {
		t.Fatalf("CountPlaces() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("CountPlaces(): got %d, want 0", count)
	}
}

func TestDeletePlaceCascadesNotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertPlace(ctx, testPlace("place_1", 1000)); err != nil {
		t.Fatalf("InsertPlace() failed: %v", err)
	}
	note := &types.Note{ID: "note_1", PlaceID: "place_1", Text: "try the gyoza", CreatedAt: 1000}
	if err := store.InsertNote(ctx, note); err != nil {
		t.Fatalf("InsertNote() failed: %v", err)
	}

	if err := store.DeletePlace(ctx, "place_1"); err != nil {
		t.Fatalf("DeletePlace() failed: %v", err)
	}

	notes, err := store.ListNotes(ctx, "place_1")
	if err != nil {
		t.Fatalf("ListNotes() failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("notes survived place deletion: %d remaining", len(notes))
	}
}

func TestClaimNotificationSlot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cooldown := 12 * time.Hour

	if err := store.InsertPlace(ctx, testPlace("place_1", 1000)); err != nil {
		t.Fatalf("InsertPlace() failed: %v", err)
	}

	now := time.Now()

	won, err := store.ClaimNotificationSlot(ctx, "place_1", now, cooldown)
	if err != nil {
		t.Fatalf("first ClaimNotificationSlot() failed: %v", err)
	}
	if !won {
		t.Fatal("first claim should win: place was never notified")
	}

	// Within the cooldown the claim must lose.
	won, err = store.ClaimNotificationSlot(ctx, "place_1", now.Add(time.Hour), cooldown)
	if err != nil {
		t.Fatalf("second ClaimNotificationSlot() failed: %v", err)
	}
	if won {
		t.Error("claim within cooldown should lose")
	}

	// After the cooldown it wins again.
	won, err = store.ClaimNotificationSlot(ctx, "place_1", now.Add(cooldown+time.Minute), cooldown)
	if err != nil {
		t.Fatalf("third ClaimNotificationSlot() failed: %v", err)
	}
	if !won {
		t.Error("claim after cooldown should win")
	}
}

func TestClaimNotificationSlotUnknownPlace(t *testing.T) {
	store := newTestStore(t)

	won, err := store.ClaimNotificationSlot(context.Background(), "place_missing", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("ClaimNotificationSlot() failed: %v", err)
	}
	if won {
		t.Error("claim on a missing place should lose")
	}
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertPlace(ctx, testPlace("place_1", 1000)); err != nil {
		t.Fatalf("InsertPlace() failed: %v", err)
	}
	if err := store.InsertNote(ctx, &types.Note{ID: "note_1", PlaceID: "place_1", Text: "x", CreatedAt: 1}); err != nil {
		t.Fatalf("InsertNote() failed: %v", err)
	}
	if err := store.SetSetting(ctx, "themeMode", "dark"); err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}
	if err := store.InsertTravelEntry(ctx, &types.TravelEntry{ID: "travel_1", RegionCode: "JP-13", CreatedAt: 1}); err != nil {
		t.Fatalf("InsertTravelEntry() failed: %v", err)
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() failed: %v", err)
	}

	count, _ := store.CountPlaces(ctx)
	if count != 0 {
		t.Errorf("places remain after ClearAll: %d", count)
	}
	notes, _ := store.ListAllNotes(ctx)
	if len(notes) != 0 {
		t.Errorf("notes remain after ClearAll: %d", len(notes))
	}
	settings, _ := store.AllSettings(ctx)
	if len(settings) != 0 {
		t.Errorf("settings remain after ClearAll: %d", len(settings))
	}
	entries, _ := store.ListTravelEntries(ctx)
	if len(entries) != 0 {
		t.Errorf("travel entries remain after ClearAll: %d", len(entries))
	}
}
