package records

import (
	"github.com/scrypster/placemark/pkg/types"
)

// SyncHooks receives best-effort, fire-and-forget notifications after local
// single-record mutations so the sync engine can propagate them remotely.
// Implementations must return immediately and never surface errors: the
// local mutation has already committed and is authoritative.
type SyncHooks interface {
	PlaceSaved(place *types.Place)
	PlaceDeleted(placeID string)
	NoteSaved(note *types.Note)
	NoteDeleted(noteID string)
	TravelEntrySaved(entry *types.TravelEntry)
	SettingSaved(key, value string)
}

// NopHooks is the SyncHooks used when no remote propagation is configured.
type NopHooks struct{}

func (NopHooks) PlaceSaved(*types.Place)            {}
func (NopHooks) PlaceDeleted(string)                {}
func (NopHooks) NoteSaved(*types.Note)              {}
func (NopHooks) NoteDeleted(string)                 {}
func (NopHooks) TravelEntrySaved(*types.TravelEntry) {}
func (NopHooks) SettingSaved(string, string)        {}
