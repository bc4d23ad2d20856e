// Package platform defines the boundaries to the host OS services the data
// layer consumes: geofence monitoring, notification scheduling, and
// permission state. The concrete implementations live in the host app;
// everything here is written against interfaces so the data layer can run,
// and be tested, without an OS.
package platform

import (
	"context"
	"time"
)

// Region is the geofencing projection of an enabled place: identifier equals
// the place ID, and only entry events are monitored. Regions are derived on
// demand from the live place set and never persisted.
type Region struct {
	Identifier    string
	Latitude      float64
	Longitude     float64
	RadiusMeters  float64
	NotifyOnEnter bool
	NotifyOnExit  bool
}

// GeofenceMonitor is the OS geofencing service. StartMonitoring replaces the
// full region set for the named task; there is no incremental add/remove.
type GeofenceMonitor interface {
	StartMonitoring(ctx context.Context, taskName string, regions []Region) error
	StopMonitoring(ctx context.Context, taskName string) error
	HasActiveMonitoring(ctx context.Context, taskName string) (bool, error)
}

// NotificationScheduler is the OS notification service.
type NotificationScheduler interface {
	// ScheduleAt schedules a notification and returns an opaque handle.
	ScheduleAt(ctx context.Context, at time.Time, title, body string) (string, error)

	// Cancel cancels a scheduled notification. Unknown or already-fired
	// handles are tolerated: implementations must not report them as errors.
	Cancel(ctx context.Context, handle string) error

	// ShowNow presents a notification immediately.
	ShowNow(ctx context.Context, title, body string) error
}

// PermissionReader reports the current OS permission state.
type PermissionReader interface {
	// BackgroundLocationGranted reports whether background location access
	// is currently granted. Without it, no geofence monitoring may run.
	BackgroundLocationGranted(ctx context.Context) (bool, error)
}
