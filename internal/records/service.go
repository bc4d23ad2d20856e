// Package records is the mutation boundary of the data layer. It validates
// input before any write, keeps the note-reminder invariant, triggers
// geofence resynchronization after place-affecting mutations, and fires
// best-effort incremental sync for every single-record write.
package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/placemark/internal/platform"
	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

// GeofenceResyncer reconciles OS monitoring with the enabled place set.
// Implemented by geofence.Coordinator.
type GeofenceResyncer interface {
	Resync(ctx context.Context)
}

// nopResyncer is used when no geofencing is wired (headless tooling).
type nopResyncer struct{}

func (nopResyncer) Resync(context.Context) {}

// Service is the mutation boundary for places, notes, settings and travel
// entries. All validation happens here, before any write.
// It owns no locking: write serialization happens in the storage engine.
type Service struct {
	store     storage.RecordStore
	notifier  platform.NotificationScheduler
	geo       GeofenceResyncer
	hooks     SyncHooks
	analytics platform.Capability[platform.AnalyticsSink]
	log       *logrus.Logger

	// now is the clock; replaced in tests.
	now func() time.Time
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithGeofence wires the geofence coordinator resynced after every
// place-affecting mutation.
func WithGeofence(geo GeofenceResyncer) Option {
	return func(s *Service) { s.geo = geo }
}

// WithSyncHooks wires incremental remote propagation.
func WithSyncHooks(hooks SyncHooks) Option {
	return func(s *Service) { s.hooks = hooks }
}

// WithAnalytics wires the optional host analytics module.
func WithAnalytics(sink platform.Capability[platform.AnalyticsSink]) Option {
	return func(s *Service) { s.analytics = sink }
}

// NewService creates a Service over the given store and notification
// scheduler.
func NewService(store storage.RecordStore, notifier platform.NotificationScheduler, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		notifier:  notifier,
		geo:       nopResyncer{},
		hooks:     NopHooks{},
		analytics: platform.Missing[platform.AnalyticsSink](),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the startup reconciliation: the legacy importer has run and
// the store is ready, so the monitored region set is rebuilt once.
func (s *Service) Start(ctx context.Context) {
	s.geo.Resync(ctx)
}

// CreatePlaceOptions carries the optional fields accepted at creation.
type CreatePlaceOptions struct {
	Note          string
	ExternalRef   string
	TimeBand      string
	MoodTags      []string
	SceneTags     []string
	Parking       types.TriState
	Smoking       types.TriState
	Seating       string
	IsFavorite    bool
	RemindEnabled bool
	RemindRadiusM int

	// Enabled defaults to true when nil.
	Enabled *bool
}

// ListPlaces returns all places, most-recently-created first.
func (s *Service) ListPlaces(ctx context.Context) ([]*types.Place, error) {
	return s.store.ListPlaces(ctx)
}

// GetPlace retrieves a place by ID.
func (s *Service) GetPlace(ctx context.Context, id string) (*types.Place, error) {
	return s.store.GetPlace(ctx, id)
}

// CreatePlace assigns a fresh identifier and persists a new place. Non-finite
// coordinates are rejected before any mutation.
func (s *Service) CreatePlace(ctx context.Context, name string, lat, lng float64, opts *CreatePlaceOptions) (*types.Place, error) {
	if err := types.ValidateCoordinates(lat, lng); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	if opts == nil {
		opts = &CreatePlaceOptions{}
	}

	now := s.now().UnixMilli()
	place := &types.Place{
		ID:            types.NewID("place"),
		Name:          name,
		Note:          opts.Note,
		Latitude:      lat,
		Longitude:     lng,
		ExternalRef:   opts.ExternalRef,
		Enabled:       opts.Enabled == nil || *opts.Enabled,
		TimeBand:      opts.TimeBand,
		MoodTags:      opts.MoodTags,
		SceneTags:     opts.SceneTags,
		Parking:       opts.Parking,
		Smoking:       opts.Smoking,
		Seating:       opts.Seating,
		IsFavorite:    opts.IsFavorite,
		RemindEnabled: opts.RemindEnabled,
		RemindRadiusM: opts.RemindRadiusM,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.InsertPlace(ctx, place); err != nil {
		return nil, err
	}

	s.geo.Resync(ctx)
	s.hooks.PlaceSaved(place)
	s.event("place_created")

	return place, nil
}

// PatchPlace merges the patch onto the current row and persists the result
// with updatedAt = now. The write is a single statement: either every
// supplied field persists or none do. Returns storage.ErrNotFound when the
// ID is absent.
func (s *Service) PatchPlace(ctx context.Context, id string, patch *types.PlacePatch) (*types.Place, error) {
	if patch == nil {
		return nil, fmt.Errorf("%w: patch is required", storage.ErrInvalidInput)
	}

	if patch.Latitude != nil || patch.Longitude != nil {
		// Validate against the merged coordinates, not just the new ones.
		current, err := s.store.GetPlace(ctx, id)
		if err != nil {
			return nil, err
		}
		lat, lng := current.Latitude, current.Longitude
		if patch.Latitude != nil {
			lat = *patch.Latitude
		}
		if patch.Longitude != nil {
			lng = *patch.Longitude
		}
		if err := types.ValidateCoordinates(lat, lng); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
		}
	}

	place, err := s.store.GetPlace(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(place)
	place.UpdatedAt = s.now().UnixMilli()

	if err := s.store.UpdatePlace(ctx, place); err != nil {
		return nil, err
	}

	if patch.AffectsMonitoring() {
		s.geo.Resync(ctx)
	}
	s.hooks.PlaceSaved(place)

	return place, nil
}

// DeletePlace removes a place, its notes (cascade), and every live reminder
// handle the notes held. Deleting a non-existent ID is a no-op.
func (s *Service) DeletePlace(ctx context.Context, id string) error {
	_, err := s.store.GetPlace(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Cancel before removing rows: a scheduled notification must never
	// outlive the note that owns it.
	notes, err := s.store.ListNotes(ctx, id)
	if err != nil {
		return err
	}
	for _, note := range notes {
		s.cancelHandle(ctx, note.ReminderHandle)
	}

	if err := s.store.DeletePlace(ctx, id); err != nil {
		return err
	}

	s.geo.Resync(ctx)
	s.hooks.PlaceDeleted(id)
	s.event("place_deleted")

	return nil
}

// GetSetting returns a setting value, or storage.ErrNotFound.
func (s *Service) GetSetting(ctx context.Context, key string) (string, error) {
	return s.store.GetSetting(ctx, key)
}

// SetSetting upserts a setting and fires incremental propagation.
func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	if err := s.store.SetSetting(ctx, key, value); err != nil {
		return err
	}
	s.hooks.SettingSaved(key, value)
	return nil
}

// LoginStreak is the state of the daily login counters.
type LoginStreak struct {
	Streak    int
	MaxStreak int
	TotalDays int
}

// ClaimLoginStreak advances the daily login counters at most once per local
// calendar day. It reports whether today's claim was awarded by this call.
func (s *Service) ClaimLoginStreak(ctx context.Context) (bool, LoginStreak, error) {
	now := s.now()
	today := now.Format("2006-01-02")

	last, err := s.store.GetSetting(ctx, types.SettingLastLoginDate)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, LoginStreak{}, err
	}

	streak := s.settingInt(ctx, types.SettingStreakDays)
	maxStreak := s.settingInt(ctx, types.SettingMaxStreakDays)
	total := s.settingInt(ctx, types.SettingTotalLoginDays)

	if last == today {
		return false, LoginStreak{Streak: streak, MaxStreak: maxStreak, TotalDays: total}, nil
	}

	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	if last == yesterday {
		streak++
	} else {
		streak = 1
	}
	if streak > maxStreak {
		maxStreak = streak
	}
	total++

	for key, value := range map[string]string{
		types.SettingLastLoginDate:  today,
		types.SettingStreakDays:     strconv.Itoa(streak),
		types.SettingMaxStreakDays:  strconv.Itoa(maxStreak),
		types.SettingTotalLoginDays: strconv.Itoa(total),
	} {
		if err := s.SetSetting(ctx, key, value); err != nil {
			return false, LoginStreak{}, err
		}
	}

	return true, LoginStreak{Streak: streak, MaxStreak: maxStreak, TotalDays: total}, nil
}

// ListTravelEntries returns all travel entries.
func (s *Service) ListTravelEntries(ctx context.Context) ([]*types.TravelEntry, error) {
	return s.store.ListTravelEntries(ctx)
}

// CreateTravelEntry persists a new travel entry with a fresh identifier.
func (s *Service) CreateTravelEntry(ctx context.Context, entry *types.TravelEntry) (*types.TravelEntry, error) {
	if entry == nil || entry.RegionCode == "" {
		return nil, fmt.Errorf("%w: region code is required", storage.ErrValidation)
	}

	entry.ID = types.NewID("travel")
	entry.CreatedAt = s.now().UnixMilli()

	if err := s.store.InsertTravelEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.hooks.TravelEntrySaved(entry)
	return entry, nil
}

// UpdateTravelEntry rewrites an existing travel entry in full.
func (s *Service) UpdateTravelEntry(ctx context.Context, entry *types.TravelEntry) (*types.TravelEntry, error) {
	if entry == nil || entry.ID == "" {
		return nil, fmt.Errorf("%w: entry id is required", storage.ErrValidation)
	}
	if entry.RegionCode == "" {
		return nil, fmt.Errorf("%w: region code is required", storage.ErrValidation)
	}

	if err := s.store.UpdateTravelEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.hooks.TravelEntrySaved(entry)
	return entry, nil
}

// DeleteTravelEntry removes a travel entry. Idempotent.
func (s *Service) DeleteTravelEntry(ctx context.Context, id string) error {
	return s.store.DeleteTravelEntry(ctx, id)
}

// cancelHandle cancels a scheduled notification, tolerating empty, unknown,
// and already-fired handles. Never an error condition.
func (s *Service) cancelHandle(ctx context.Context, handle string) {
	if handle == "" {
		return
	}
	if err := s.notifier.Cancel(ctx, handle); err != nil {
		s.log.WithError(err).Debug("records: cancel of reminder handle failed (ignored)")
	}
}

// event emits an analytics event when the host links an analytics module.
func (s *Service) event(name string) {
	if sink, ok := s.analytics.Get(); ok {
		sink.Event(name, nil)
	}
}

func (s *Service) settingInt(ctx context.Context, key string) int {
	value, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
