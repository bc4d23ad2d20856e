package geofence

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/placemark/internal/platform"
	"github.com/scrypster/placemark/internal/storage/sqlite"
	"github.com/scrypster/placemark/pkg/types"
)

// fakeMonitor records the last registered region set.
type fakeMonitor struct {
	regions   []platform.Region
	active    bool
	startErr  error
	stopCalls int
}

func (f *fakeMonitor) StartMonitoring(_ context.Context, _ string, regions []platform.Region) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.regions = regions
	f.active = true
	return nil
}

func (f *fakeMonitor) StopMonitoring(_ context.Context, _ string) error {
	f.regions = nil
	f.active = false
	f.stopCalls++
	return nil
}

func (f *fakeMonitor) HasActiveMonitoring(_ context.Context, _ string) (bool, error) {
	return f.active, nil
}

func (f *fakeMonitor) regionIDs() map[string]bool {
	ids := map[string]bool{}
	for _, r := range f.regions {
		ids[r.Identifier] = true
	}
	return ids
}

// fakePerms is a PermissionReader with a settable grant.
type fakePerms struct {
	granted bool
	err     error
}

func (f *fakePerms) BackgroundLocationGranted(context.Context) (bool, error) {
	return f.granted, f.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func seedPlaces(t *testing.T, store *sqlite.RecordStore, places ...*types.Place) {
	t.Helper()
	for _, p := range places {
		require.NoError(t, store.InsertPlace(context.Background(), p))
	}
}

func place(id string, enabled bool) *types.Place {
	return &types.Place{
		ID: id, Name: id, Latitude: 35.0, Longitude: 139.0,
		Enabled: enabled, CreatedAt: 1, UpdatedAt: 1,
	}
}

func TestResyncRegistersEnabledPlacesOnly(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	seedPlaces(t, store, place("place_a", true), place("place_b", false), place("place_c", true))

	monitor := &fakeMonitor{}
	coord := NewCoordinator(store, monitor, &fakePerms{granted: true}, quietLogger())

	coord.Resync(context.Background())

	ids := monitor.regionIDs()
	assert.True(t, ids["place_a"])
	assert.False(t, ids["place_b"], "disabled places must not be monitored")
	assert.True(t, ids["place_c"])

	for _, r := range monitor.regions {
		assert.Equal(t, float64(RadiusMeters), r.RadiusMeters)
		assert.True(t, r.NotifyOnEnter)
		assert.False(t, r.NotifyOnExit)
	}
}

// Full-replace semantics: disabling a place removes its region even though
// other places remain enabled.
func TestResyncFullReplaceDropsDisabledPlace(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	a, b := place("place_a", true), place("place_b", true)
	seedPlaces(t, store, a, b)

	monitor := &fakeMonitor{}
	coord := NewCoordinator(store, monitor, &fakePerms{granted: true}, quietLogger())
	coord.Resync(context.Background())
	require.Len(t, monitor.regions, 2)

	b.Enabled = false
	require.NoError(t, store.UpdatePlace(context.Background(), b))
	coord.Resync(context.Background())

	ids := monitor.regionIDs()
	assert.True(t, ids["place_a"])
	assert.False(t, ids["place_b"])
}

func TestResyncStopsWithoutPermission(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	seedPlaces(t, store, place("place_a", true))

	monitor := &fakeMonitor{}
	perms := &fakePerms{granted: true}
	coord := NewCoordinator(store, monitor, perms, quietLogger())

	coord.Resync(context.Background())
	require.True(t, monitor.active)

	perms.granted = false
	coord.Resync(context.Background())
	assert.False(t, monitor.active, "permission loss must fully stop monitoring")
}

func TestResyncStopsWhenNoEnabledPlaces(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	seedPlaces(t, store, place("place_a", false))

	monitor := &fakeMonitor{active: true}
	coord := NewCoordinator(store, monitor, &fakePerms{granted: true}, quietLogger())

	coord.Resync(context.Background())
	assert.False(t, monitor.active)
}

func TestResyncSwallowsRegistrationFailure(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	seedPlaces(t, store, place("place_a", true))

	monitor := &fakeMonitor{startErr: errors.New("os refused")}
	coord := NewCoordinator(store, monitor, &fakePerms{granted: true}, quietLogger())

	// Must not panic or propagate.
	coord.Resync(context.Background())
}
