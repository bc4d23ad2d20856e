package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/placemark/internal/storage/sqlite"
	"github.com/scrypster/placemark/pkg/types"
)

// memDocStore is an in-memory DocumentStore with per-collection failure
// injection.
type memDocStore struct {
	mu       sync.Mutex
	docs     map[string][]byte // key: owner/collection/docID
	failList map[string]error  // collection -> error returned by List
}

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: map[string][]byte{}, failList: map[string]error{}}
}

func docKey(owner, collection, docID string) string {
	return fmt.Sprintf("%s/%s/%s", owner, collection, docID)
}

func (m *memDocStore) Get(_ context.Context, owner, collection, docID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.docs[docKey(owner, collection, docID)]
	if !ok {
		return nil, ErrRemoteNotFound
	}
	return body, nil
}

func (m *memDocStore) List(_ context.Context, owner, collection string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failList[collection]; err != nil {
		return nil, err
	}
	out := map[string][]byte{}
	prefix := owner + "/" + collection + "/"
	for key, body := range m.docs {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out[key[len(prefix):]] = body
		}
	}
	return out, nil
}

func (m *memDocStore) Set(_ context.Context, owner, collection, docID string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docKey(owner, collection, docID)] = body
	return nil
}

func (m *memDocStore) Delete(_ context.Context, owner, collection, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docKey(owner, collection, docID))
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newEngineFixture(t *testing.T) (*Engine, *sqlite.RecordStore, *memDocStore) {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	remote := newMemDocStore()
	return NewEngine(store, remote, quietLogger()), store, remote
}

func seedLocal(t *testing.T, store *sqlite.RecordStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.InsertPlace(ctx, &types.Place{
		ID: "place_1", Name: "Gyoza no Ohsho", Latitude: 35.0, Longitude: 135.0,
		Enabled: true, CreatedAt: 100, UpdatedAt: 100,
	}))
	require.NoError(t, store.InsertNote(ctx, &types.Note{
		ID: "note_1", PlaceID: "place_1", Text: "extra gyoza", CreatedAt: 110,
	}))
	require.NoError(t, store.InsertTravelEntry(ctx, &types.TravelEntry{
		ID: "travel_1", RegionCode: "JP-27", RestaurantName: "551 Horai", CreatedAt: 120,
	}))
	require.NoError(t, store.SetSetting(ctx, "themeMode", "dark"))
}

func TestUploadAllWritesEveryCollection(t *testing.T) {
	engine, store, remote := newEngineFixture(t)
	seedLocal(t, store)
	ctx := context.Background()

	require.NoError(t, engine.UploadAll(ctx, "user-1"))

	body, err := remote.Get(ctx, "user-1", CollectionPlaces, "place_1")
	require.NoError(t, err)
	var place types.Place
	require.NoError(t, json.Unmarshal(body, &place))
	assert.Equal(t, "Gyoza no Ohsho", place.Name)

	_, err = remote.Get(ctx, "user-1", CollectionNotes, "note_1")
	require.NoError(t, err)
	_, err = remote.Get(ctx, "user-1", CollectionTravelEntries, "travel_1")
	require.NoError(t, err)

	body, err = remote.Get(ctx, "user-1", CollectionData, DocSettings)
	require.NoError(t, err)
	var settings map[string]string
	require.NoError(t, json.Unmarshal(body, &settings))
	assert.Equal(t, "dark", settings["themeMode"])
}

// Local-only reminder state must never reach the remote store.
func TestUploadStripsReminderFields(t *testing.T) {
	engine, store, remote := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPlace(ctx, &types.Place{
		ID: "place_1", Name: "x", Latitude: 1, Longitude: 2,
		Enabled: true, CreatedAt: 1, UpdatedAt: 1, LastNotifiedAt: 999,
	}))
	require.NoError(t, store.InsertNote(ctx, &types.Note{
		ID: "note_1", PlaceID: "place_1", Text: "y",
		ReminderAt: 12345, ReminderHandle: "os-handle", CreatedAt: 1,
	}))

	require.NoError(t, engine.UploadAll(ctx, "user-1"))

	body, err := remote.Get(ctx, "user-1", CollectionNotes, "note_1")
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NotContains(t, raw, "reminderAt")
	assert.NotContains(t, raw, "reminderHandle")

	body, err = remote.Get(ctx, "user-1", CollectionPlaces, "place_1")
	require.NoError(t, err)
	raw = nil
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NotContains(t, raw, "lastNotifiedAt")
}

func TestDownloadAllReplacesLocal(t *testing.T) {
	engine, store, _ := newEngineFixture(t)
	seedLocal(t, store)
	ctx := context.Background()

	require.NoError(t, engine.UploadAll(ctx, "user-1"))

	// Diverge locally, then restore the remote snapshot.
	require.NoError(t, store.InsertPlace(ctx, &types.Place{
		ID: "place_local_only", Name: "gone after download", Latitude: 1, Longitude: 2,
		Enabled: true, CreatedAt: 1, UpdatedAt: 1,
	}))

	require.NoError(t, engine.DownloadAll(ctx, "user-1"))

	places, err := store.ListPlaces(ctx)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "place_1", places[0].ID, "remote identifiers are preserved")

	notes, err := store.ListNotes(ctx, "place_1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "note_1", notes[0].ID)

	theme, err := store.GetSetting(ctx, "themeMode")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)
}

// The core correctness property: a remote read failure during download
// leaves local data completely untouched.
func TestDownloadAtomicityOnRemoteFailure(t *testing.T) {
	for _, failing := range []string{CollectionPlaces, CollectionNotes, CollectionTravelEntries} {
		t.Run("fail "+failing, func(t *testing.T) {
			engine, store, remote := newEngineFixture(t)
			seedLocal(t, store)
			ctx := context.Background()

			before, err := store.ListPlaces(ctx)
			require.NoError(t, err)
			beforeNotes, err := store.ListAllNotes(ctx)
			require.NoError(t, err)
			beforeSettings, err := store.AllSettings(ctx)
			require.NoError(t, err)

			remote.failList[failing] = errors.New("network down")

			err = engine.DownloadAll(ctx, "user-1")
			require.Error(t, err)

			after, err := store.ListPlaces(ctx)
			require.NoError(t, err)
			assert.Equal(t, before, after, "places must be untouched")

			afterNotes, err := store.ListAllNotes(ctx)
			require.NoError(t, err)
			assert.Equal(t, beforeNotes, afterNotes, "notes must be untouched")

			afterSettings, err := store.AllSettings(ctx)
			require.NoError(t, err)
			assert.Equal(t, beforeSettings, afterSettings, "settings must be untouched")
		})
	}
}

// Notes whose place vanished remotely are dropped instead of violating the
// foreign key during restore.
func TestDownloadDropsOrphanNotes(t *testing.T) {
	engine, store, remote := newEngineFixture(t)
	ctx := context.Background()

	placeBody, _ := json.Marshal(&types.Place{
		ID: "place_1", Name: "kept", Latitude: 1, Longitude: 2,
		Enabled: true, CreatedAt: 1, UpdatedAt: 1,
	})
	require.NoError(t, remote.Set(ctx, "user-1", CollectionPlaces, "place_1", placeBody))

	kept, _ := json.Marshal(&types.Note{ID: "note_kept", PlaceID: "place_1", Text: "ok", CreatedAt: 1})
	orphan, _ := json.Marshal(&types.Note{ID: "note_orphan", PlaceID: "place_gone", Text: "orphan", CreatedAt: 1})
	require.NoError(t, remote.Set(ctx, "user-1", CollectionNotes, "note_kept", kept))
	require.NoError(t, remote.Set(ctx, "user-1", CollectionNotes, "note_orphan", orphan))

	require.NoError(t, engine.DownloadAll(ctx, "user-1"))

	notes, err := store.ListAllNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "note_kept", notes[0].ID)
}

func TestCheckRemoteDataExistsAndCounts(t *testing.T) {
	engine, store, _ := newEngineFixture(t)
	ctx := context.Background()

	exists, err := engine.CheckRemoteDataExists(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, exists)

	seedLocal(t, store)
	require.NoError(t, engine.UploadAll(ctx, "user-1"))

	exists, err = engine.CheckRemoteDataExists(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, exists)

	counts, err := engine.Counts(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, RemoteCounts{Places: 1, Notes: 1, TravelEntries: 1}, counts)
}

func TestDeleteAllRemoteData(t *testing.T) {
	engine, store, remote := newEngineFixture(t)
	seedLocal(t, store)
	ctx := context.Background()

	require.NoError(t, engine.UploadAll(ctx, "user-1"))
	require.NoError(t, engine.DeleteAllRemoteData(ctx, "user-1"))

	counts, err := engine.Counts(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, RemoteCounts{}, counts)

	_, err = remote.Get(ctx, "user-1", CollectionData, DocSettings)
	assert.ErrorIs(t, err, ErrRemoteNotFound)
}
