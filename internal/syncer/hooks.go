package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/scrypster/placemark/pkg/types"
)

const (
	// fireTimeout bounds a single fire-and-forget remote write.
	fireTimeout = 10 * time.Second

	// firesPerSecond and fireBurst bound the rate of background remote
	// writes so a burst of local edits cannot saturate the connection.
	firesPerSecond = 5
	fireBurst      = 20
)

// Hooks propagates single-record mutations to the remote store on a
// best-effort basis. It satisfies the records.SyncHooks contract: every
// method returns immediately, spawning a detached write whose result is
// discarded. Callers get no completion signal; the bulk upload path is the
// guaranteed propagation mechanism.
//
// Propagation only runs for a non-anonymous identity. Remote failures trip a
// circuit breaker so a dead network stops producing doomed goroutines, and a
// rate limiter drops excess writes rather than queueing them. The local
// store is authoritative either way.
//
// A Hooks lives for the process duration; construct a fresh one per test.
type Hooks struct {
	remote   DocumentStore
	identity Identity
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	log      *logrus.Logger
}

// NewHooks creates a Hooks.
func NewHooks(remote DocumentStore, identity Identity, log *logrus.Logger) *Hooks {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "incremental-sync",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"from": from.String(),
				"to":   to.String(),
			}).Debug("syncer: circuit breaker state changed")
		},
	})

	return &Hooks{
		remote:   remote,
		identity: identity,
		breaker:  breaker,
		limiter:  rate.NewLimiter(rate.Limit(firesPerSecond), fireBurst),
		log:      log,
	}
}

func (h *Hooks) PlaceSaved(place *types.Place) {
	h.fireSet(CollectionPlaces, place.ID, place)
}

func (h *Hooks) PlaceDeleted(placeID string) {
	h.fireDelete(CollectionPlaces, placeID)
}

func (h *Hooks) NoteSaved(note *types.Note) {
	h.fireSet(CollectionNotes, note.ID, note)
}

func (h *Hooks) NoteDeleted(noteID string) {
	h.fireDelete(CollectionNotes, noteID)
}

func (h *Hooks) TravelEntrySaved(entry *types.TravelEntry) {
	h.fireSet(CollectionTravelEntries, entry.ID, entry)
}

func (h *Hooks) SettingSaved(key, value string) {
	owner, ok := h.identity.CurrentOwner()
	if !ok {
		return
	}

	// Settings live in one remote document, so a single-key change is a
	// read-modify-write of that document.
	h.fire(func(ctx context.Context) error {
		body, err := h.remote.Get(ctx, owner, CollectionData, DocSettings)
		settings := map[string]string{}
		if err == nil && len(body) > 0 {
			if err := json.Unmarshal(body, &settings); err != nil {
				settings = map[string]string{}
			}
		} else if err != nil && err != ErrRemoteNotFound {
			return err
		}

		settings[key] = value
		merged, err := json.Marshal(settings)
		if err != nil {
			return err
		}
		return h.remote.Set(ctx, owner, CollectionData, DocSettings, merged)
	})
}

func (h *Hooks) fireSet(collection, docID string, v interface{}) {
	owner, ok := h.identity.CurrentOwner()
	if !ok {
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Debug("syncer: failed to marshal record for propagation")
		return
	}

	h.fire(func(ctx context.Context) error {
		return h.remote.Set(ctx, owner, collection, docID, body)
	})
}

func (h *Hooks) fireDelete(collection, docID string) {
	owner, ok := h.identity.CurrentOwner()
	if !ok {
		return
	}

	h.fire(func(ctx context.Context) error {
		return h.remote.Delete(ctx, owner, collection, docID)
	})
}

// fire spawns the detached write. Drops are silent beyond a debug log: the
// local mutation has already committed.
func (h *Hooks) fire(op func(ctx context.Context) error) {
	if !h.limiter.Allow() {
		h.log.Debug("syncer: incremental write dropped by rate limit")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
		defer cancel()

		_, err := h.breaker.Execute(func() (interface{}, error) {
			return nil, op(ctx)
		})
		if err != nil {
			h.log.WithError(err).Debug("syncer: incremental write failed (dropped)")
		}
	}()
}
