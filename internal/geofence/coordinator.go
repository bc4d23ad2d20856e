// Package geofence keeps the OS-monitored region set in step with the
// enabled places, and reacts to region-entry events in the background.
package geofence

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/placemark/internal/platform"
	"github.com/scrypster/placemark/internal/storage"
)

const (
	// TaskName identifies the geofence monitoring task at the OS.
	TaskName = "placemark.geofence"

	// RadiusMeters is the fixed region radius. The event handler's cooldown
	// model assumes this constant; it is not configurable per place.
	RadiusMeters = 200

	// NotifyCooldown is the minimum interval between geofence notifications
	// for the same place.
	NotifyCooldown = 12 * time.Hour
)

// Coordinator reconciles OS geofence monitoring with the enabled place set.
// It runs opportunistically after every place-affecting mutation, so every
// failure is logged and swallowed: monitoring drift is repaired on the next
// resync, while a crash here would take the mutation path down with it.
type Coordinator struct {
	places  storage.PlaceStore
	monitor platform.GeofenceMonitor
	perms   platform.PermissionReader
	log     *logrus.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(places storage.PlaceStore, monitor platform.GeofenceMonitor, perms platform.PermissionReader, log *logrus.Logger) *Coordinator {
	return &Coordinator{places: places, monitor: monitor, perms: perms, log: log}
}

// Resync replaces the monitored region set with the regions of all enabled
// places. Without background permission, or with no enabled places,
// monitoring is fully stopped. The registration is one full-replace call, so
// a place that became disabled is guaranteed gone from monitoring even when
// an earlier resync was skipped.
func (c *Coordinator) Resync(ctx context.Context) {
	granted, err := c.perms.BackgroundLocationGranted(ctx)
	if err != nil {
		c.log.WithError(err).Warn("geofence: failed to read background permission")
		c.stopSafe(ctx)
		return
	}
	if !granted {
		c.stopSafe(ctx)
		return
	}

	places, err := c.places.ListPlaces(ctx)
	if err != nil {
		c.log.WithError(err).Warn("geofence: failed to list places")
		return
	}

	var regions []platform.Region
	for _, p := range places {
		if !p.Enabled {
			continue
		}
		regions = append(regions, platform.Region{
			Identifier:    p.ID,
			Latitude:      p.Latitude,
			Longitude:     p.Longitude,
			RadiusMeters:  RadiusMeters,
			NotifyOnEnter: true,
			NotifyOnExit:  false,
		})
	}

	if len(regions) == 0 {
		c.stopSafe(ctx)
		return
	}

	if err := c.monitor.StartMonitoring(ctx, TaskName, regions); err != nil {
		c.log.WithError(err).Warn("geofence: failed to register regions")
	}
}

// stopSafe stops monitoring if it is active, tolerating every failure.
func (c *Coordinator) stopSafe(ctx context.Context) {
	active, err := c.monitor.HasActiveMonitoring(ctx, TaskName)
	if err != nil {
		c.log.WithError(err).Warn("geofence: failed to query monitoring state")
		return
	}
	if !active {
		return
	}
	if err := c.monitor.StopMonitoring(ctx, TaskName); err != nil {
		c.log.WithError(err).Warn("geofence: failed to stop monitoring")
	}
}
