// Package syncer replicates the record store to and from a remote keyed
// document store. Two protocols coexist: explicit full-snapshot bulk
// upload/download, and best-effort fire-and-forget propagation of single
// record writes.
package syncer

import (
	"context"
	"errors"
)

// ErrRemoteNotFound is returned by DocumentStore.Get for an absent document.
var ErrRemoteNotFound = errors.New("remote document not found")

// Collection names of the remote layout. Settings live as a single document
// rather than a collection of per-key documents.
const (
	CollectionPlaces        = "places"
	CollectionNotes         = "memos"
	CollectionTravelEntries = "travelEntries"
	CollectionData          = "data"
	DocSettings             = "settings"
)

// DocumentStore is the remote backend: JSON documents keyed by
// (owner, collection, document ID). No cross-document transactions are
// assumed; every correctness property of the engine is built on ordering
// alone.
type DocumentStore interface {
	// Get returns one document's JSON body, or ErrRemoteNotFound.
	Get(ctx context.Context, owner, collection, docID string) ([]byte, error)

	// List returns all documents of a collection, keyed by document ID.
	List(ctx context.Context, owner, collection string) (map[string][]byte, error)

	// Set overwrites one document.
	Set(ctx context.Context, owner, collection, docID string, body []byte) error

	// Delete removes one document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, owner, collection, docID string) error
}

// Identity reports the current authenticated user. Incremental propagation
// only runs for a non-anonymous identity; bulk operations take an explicit
// owner and do not consult this.
type Identity interface {
	// CurrentOwner returns the owner ID, or ("", false) when the user is
	// anonymous or signed out.
	CurrentOwner() (string, bool)
}

// StaticIdentity is an Identity fixed at construction, used by the CLI and
// in tests.
type StaticIdentity string

func (s StaticIdentity) CurrentOwner() (string, bool) {
	return string(s), s != ""
}
