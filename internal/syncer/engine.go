package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

// Engine performs the bulk snapshot protocols. Both directions are full
// overwrites: upload replaces remote documents by ID, download replaces the
// entire local store. Every document write is an overwrite-by-id, so a failed
// upload is safely retried by re-running the whole operation.
type Engine struct {
	store  storage.RecordStore
	remote DocumentStore
	log    *logrus.Logger
}

// NewEngine creates an Engine.
func NewEngine(store storage.RecordStore, remote DocumentStore, log *logrus.Logger) *Engine {
	return &Engine{store: store, remote: remote, log: log}
}

// RemoteCounts is the per-collection document count of one owner.
type RemoteCounts struct {
	Places        int
	Notes         int
	TravelEntries int
}

// CheckRemoteDataExists reports whether the owner has any remote places.
func (e *Engine) CheckRemoteDataExists(ctx context.Context, owner string) (bool, error) {
	docs, err := e.remote.List(ctx, owner, CollectionPlaces)
	if err != nil {
		return false, fmt.Errorf("failed to list remote places: %w", err)
	}
	return len(docs) > 0, nil
}

// Counts returns the remote document counts for the owner.
func (e *Engine) Counts(ctx context.Context, owner string) (RemoteCounts, error) {
	var counts RemoteCounts
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{CollectionPlaces, &counts.Places},
		{CollectionNotes, &counts.Notes},
		{CollectionTravelEntries, &counts.TravelEntries},
	} {
		docs, err := e.remote.List(ctx, owner, c.name)
		if err != nil {
			return RemoteCounts{}, fmt.Errorf("failed to list remote %s: %w", c.name, err)
		}
		*c.dst = len(docs)
	}
	return counts, nil
}

// UploadAll overwrites the owner's remote data with the local snapshot.
// There is no transaction: a failure partway leaves some documents updated
// and others stale, and the caller retries the whole operation.
func (e *Engine) UploadAll(ctx context.Context, owner string) error {
	places, err := e.store.ListPlaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local places: %w", err)
	}
	notes, err := e.store.ListAllNotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local notes: %w", err)
	}
	entries, err := e.store.ListTravelEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local travel entries: %w", err)
	}
	settings, err := e.store.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local settings: %w", err)
	}

	if err := e.setDoc(ctx, owner, CollectionData, DocSettings, settings); err != nil {
		return err
	}
	for _, p := range places {
		if err := e.setDoc(ctx, owner, CollectionPlaces, p.ID, p); err != nil {
			return err
		}
	}
	for _, n := range notes {
		if err := e.setDoc(ctx, owner, CollectionNotes, n.ID, n); err != nil {
			return err
		}
	}
	for _, t := range entries {
		if err := e.setDoc(ctx, owner, CollectionTravelEntries, t.ID, t); err != nil {
			return err
		}
	}

	e.log.WithFields(logrus.Fields{
		"owner":          owner,
		"places":         len(places),
		"notes":          len(notes),
		"travel_entries": len(entries),
	}).Info("syncer: upload complete")

	return nil
}

// DownloadAll replaces local data with the owner's remote snapshot.
//
// Every remote collection is fetched completely before any local mutation:
// a remote read failure leaves local data untouched. Only once all fetches
// succeed is the local store cleared and rebuilt, preserving remote
// identifiers so note-to-place references stay valid.
func (e *Engine) DownloadAll(ctx context.Context, owner string) error {
	settingsDoc, err := e.remote.Get(ctx, owner, CollectionData, DocSettings)
	if err != nil && !errors.Is(err, ErrRemoteNotFound) {
		return fmt.Errorf("failed to fetch remote settings: %w", err)
	}
	placeDocs, err := e.remote.List(ctx, owner, CollectionPlaces)
	if err != nil {
		return fmt.Errorf("failed to fetch remote places: %w", err)
	}
	noteDocs, err := e.remote.List(ctx, owner, CollectionNotes)
	if err != nil {
		return fmt.Errorf("failed to fetch remote notes: %w", err)
	}
	travelDocs, err := e.remote.List(ctx, owner, CollectionTravelEntries)
	if err != nil {
		return fmt.Errorf("failed to fetch remote travel entries: %w", err)
	}

	// Decode everything before the destructive step too: a malformed remote
	// document must not strand a half-cleared store.
	places, err := decodeAll[types.Place](placeDocs)
	if err != nil {
		return fmt.Errorf("failed to decode remote place: %w", err)
	}
	notes, err := decodeAll[types.Note](noteDocs)
	if err != nil {
		return fmt.Errorf("failed to decode remote note: %w", err)
	}
	entries, err := decodeAll[types.TravelEntry](travelDocs)
	if err != nil {
		return fmt.Errorf("failed to decode remote travel entry: %w", err)
	}
	var settings map[string]string
	if len(settingsDoc) > 0 {
		if err := json.Unmarshal(settingsDoc, &settings); err != nil {
			return fmt.Errorf("failed to decode remote settings: %w", err)
		}
	}

	if err := e.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}

	placeIDs := make(map[string]bool, len(places))
	for _, p := range places {
		if p.ID == "" {
			continue
		}
		if err := e.store.InsertPlace(ctx, p); err != nil {
			return fmt.Errorf("failed to restore place %s: %w", p.ID, err)
		}
		placeIDs[p.ID] = true
	}

	for _, n := range notes {
		if n.ID == "" || !placeIDs[n.PlaceID] {
			// Orphaned note: its place was deleted remotely after the note
			// was propagated. Dropping it matches the FK cascade locally.
			continue
		}
		if err := e.store.InsertNote(ctx, n); err != nil {
			return fmt.Errorf("failed to restore note %s: %w", n.ID, err)
		}
	}

	for _, t := range entries {
		if t.ID == "" {
			continue
		}
		if err := e.store.InsertTravelEntry(ctx, t); err != nil {
			return fmt.Errorf("failed to restore travel entry %s: %w", t.ID, err)
		}
	}

	for key, value := range settings {
		if err := e.store.SetSetting(ctx, key, value); err != nil {
			return fmt.Errorf("failed to restore setting %s: %w", key, err)
		}
	}

	e.log.WithFields(logrus.Fields{
		"owner":          owner,
		"places":         len(places),
		"notes":          len(notes),
		"travel_entries": len(entries),
	}).Info("syncer: download complete")

	return nil
}

// DeleteAllRemoteData removes every remote document of the owner.
func (e *Engine) DeleteAllRemoteData(ctx context.Context, owner string) error {
	for _, collection := range []string{CollectionPlaces, CollectionNotes, CollectionTravelEntries} {
		docs, err := e.remote.List(ctx, owner, collection)
		if err != nil {
			return fmt.Errorf("failed to list remote %s: %w", collection, err)
		}
		for docID := range docs {
			if err := e.remote.Delete(ctx, owner, collection, docID); err != nil {
				return fmt.Errorf("failed to delete remote %s/%s: %w", collection, docID, err)
			}
		}
	}

	if err := e.remote.Delete(ctx, owner, CollectionData, DocSettings); err != nil {
		return fmt.Errorf("failed to delete remote settings: %w", err)
	}

	return nil
}

func (e *Engine) setDoc(ctx context.Context, owner, collection, docID string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, docID, err)
	}
	if err := e.remote.Set(ctx, owner, collection, docID, body); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, docID, err)
	}
	return nil
}

func decodeAll[T any](docs map[string][]byte) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for docID, body := range docs {
		v := new(T)
		if err := json.Unmarshal(body, v); err != nil {
			return nil, fmt.Errorf("document %s: %w", docID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
