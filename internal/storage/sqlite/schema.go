package sqlite

import "github.com/scrypster/placemark/internal/storage"

// migrations is the full schema history. Version 1 is the base relational
// schema; version 2 adds the tag columns introduced after the first release
// (kept as a separate step so existing databases upgrade in place).
var migrations = []storage.Migration{
	{
		Version: 1,
		Name:    "base_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS places (
				id TEXT PRIMARY KEY NOT NULL,
				name TEXT,
				note TEXT,
				lat REAL NOT NULL,
				lng REAL NOT NULL,
				external_ref TEXT,
				enabled INTEGER NOT NULL DEFAULT 1,
				time_band TEXT,
				parking INTEGER,
				smoking INTEGER,
				seating TEXT,
				is_favorite INTEGER NOT NULL DEFAULT 0,
				remind_enabled INTEGER NOT NULL DEFAULT 0,
				remind_radius_m INTEGER,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				last_notified_at INTEGER
			);

			CREATE TABLE IF NOT EXISTS notes (
				id TEXT PRIMARY KEY NOT NULL,
				place_id TEXT NOT NULL,
				text TEXT NOT NULL,
				checked INTEGER NOT NULL DEFAULT 0,
				reminder_at INTEGER,
				reminder_handle TEXT,
				created_at INTEGER NOT NULL,
				FOREIGN KEY(place_id) REFERENCES places(id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS travel_entries (
				id TEXT PRIMARY KEY NOT NULL,
				region_code TEXT NOT NULL,
				restaurant_name TEXT,
				genre TEXT,
				visited_at INTEGER,
				rating INTEGER,
				note TEXT,
				created_at INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY NOT NULL,
				value TEXT NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_places_lat_lng ON places (lat, lng);
			CREATE INDEX IF NOT EXISTS idx_notes_place_id ON notes (place_id);
		`,
	},
	{
		Version: 2,
		Name:    "place_tags",
		SQL: `
			ALTER TABLE places ADD COLUMN mood_tags TEXT;
			ALTER TABLE places ADD COLUMN scene_tags TEXT;
		`,
	},
}
