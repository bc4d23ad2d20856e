package legacy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/placemark/internal/storage"
	"github.com/scrypster/placemark/pkg/types"
)

// Importer performs the one-shot migration from the legacy flat store into
// the record store. After the completion flag is set, Run is permanently a
// no-op, including across process restarts.
type Importer struct {
	flat  FlatStore
	store storage.RecordStore
	log   *logrus.Logger

	now func() time.Time
}

// NewImporter creates an Importer.
func NewImporter(flat FlatStore, store storage.RecordStore, log *logrus.Logger) *Importer {
	return &Importer{flat: flat, store: store, log: log, now: time.Now}
}

// Run executes the migration if it has not completed yet.
//
// If any place rows already exist the store is treated as already effectively
// migrated: the flag is set and nothing is imported. A crash after the first
// inserted place but before the flag write therefore abandons the remaining
// legacy data on the next run; this matches the behavior the legacy data was
// written against, and changing it would change observable migration
// outcomes.
func (i *Importer) Run(ctx context.Context) error {
	done, err := i.store.GetSetting(ctx, types.SettingMigrationV1)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read migration flag: %w", err)
	}
	if done == "true" {
		return nil
	}

	count, err := i.store.CountPlaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to count places: %w", err)
	}
	if count > 0 {
		i.log.WithField("places", count).Info("legacy: store already populated, skipping import")
		return i.markComplete(ctx)
	}

	if err := i.importPlaces(ctx); err != nil {
		return err
	}
	if err := i.importSettings(ctx); err != nil {
		return err
	}

	return i.markComplete(ctx)
}

func (i *Importer) importPlaces(ctx context.Context) error {
	flatPlaces, err := Places(ctx, i.flat)
	if err != nil {
		return err
	}

	nowMillis := i.now().UnixMilli()
	imported, notesImported := 0, 0

	for _, fp := range flatPlaces {
		if fp.ID == "" {
			continue
		}
		if err := types.ValidateCoordinates(fp.Latitude, fp.Longitude); err != nil {
			i.log.WithField("id", fp.ID).Warn("legacy: skipping place with invalid coordinates")
			continue
		}

		notes, err := Notes(ctx, i.flat, fp.ID)
		if err != nil {
			return err
		}

		createdAt := fp.CreatedAt
		if createdAt == 0 {
			createdAt = nowMillis
		}
		updatedAt := fp.UpdatedAt
		if updatedAt == 0 {
			updatedAt = createdAt
		}

		place := &types.Place{
			ID:          fp.ID,
			Name:        strings.TrimSpace(fp.Name),
			Note:        noteSummary(notes),
			Latitude:    fp.Latitude,
			Longitude:   fp.Longitude,
			ExternalRef: fp.ExternalRef,
			Enabled:     fp.Enabled == nil || *fp.Enabled,
			CreatedAt:   createdAt,
			UpdatedAt:   updatedAt,
		}

		if err := i.store.InsertPlace(ctx, place); err != nil {
			return fmt.Errorf("failed to import place %s: %w", fp.ID, err)
		}
		imported++

		for _, fn := range notes {
			noteID := fn.ID
			if noteID == "" {
				noteID = types.NewID("note")
			}
			createdAt := fn.CreatedAt
			if createdAt == 0 {
				createdAt = nowMillis
			}

			note := &types.Note{
				ID:         noteID,
				PlaceID:    fp.ID,
				Text:       strings.TrimSpace(fn.Text),
				Checked:    fn.Checked,
				ReminderAt: fn.ReminderAt,
				CreatedAt:  createdAt,
			}
			if err := i.store.InsertNote(ctx, note); err != nil {
				return fmt.Errorf("failed to import note %s: %w", noteID, err)
			}
			notesImported++
		}
	}

	i.log.WithFields(logrus.Fields{
		"places": imported,
		"notes":  notesImported,
	}).Info("legacy: import complete")

	return nil
}

func (i *Importer) importSettings(ctx context.Context) error {
	bonus, err := LoginBonus(ctx, i.flat)
	if err != nil {
		return err
	}
	if bonus != nil {
		for key, value := range map[string]string{
			types.SettingLastLoginDate:  bonus.LastLoginDate,
			types.SettingStreakDays:     strconv.Itoa(bonus.StreakDays),
			types.SettingMaxStreakDays:  strconv.Itoa(bonus.MaxStreakDays),
			types.SettingTotalLoginDays: strconv.Itoa(bonus.TotalLoginDays),
		} {
			if value == "" || value == "0" {
				continue
			}
			if err := i.store.SetSetting(ctx, key, value); err != nil {
				return fmt.Errorf("failed to import setting %s: %w", key, err)
			}
		}
	}

	for key, value := range map[string]string{
		types.SettingNearbyRadiusM: types.DefaultNearbyRadiusM,
		types.SettingThemeMode:     types.DefaultThemeMode,
	} {
		if err := i.setDefault(ctx, key, value); err != nil {
			return err
		}
	}

	return nil
}

// setDefault writes a setting only when the key is absent.
func (i *Importer) setDefault(ctx context.Context, key, value string) error {
	_, err := i.store.GetSetting(ctx, key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if err := i.store.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write default setting %s: %w", key, err)
	}
	return nil
}

func (i *Importer) markComplete(ctx context.Context) error {
	if err := i.store.SetSetting(ctx, types.SettingMigrationV1, "true"); err != nil {
		return fmt.Errorf("failed to set migration flag: %w", err)
	}
	return nil
}

// noteSummary synthesizes the place-level note field from the first few
// legacy note texts, newest first as the legacy reader returned them.
func noteSummary(notes []FlatNote) string {
	var texts []string
	for _, n := range notes {
		if len(texts) == 3 {
			break
		}
		texts = append(texts, strings.TrimSpace(n.Text))
	}
	return strings.Join(texts, "\n")
}
