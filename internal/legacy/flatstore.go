// Package legacy migrates data out of the old flat key-value representation
// into the record store. The importer runs once per installation, gated by a
// persisted completion flag.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Flat store key layout of the old representation.
const (
	keyPlaces     = "stores:v1"
	keyNotePrefix = "memos:v1:"
	keyLoginBonus = "loginBonus:v1"
)

// FlatStore reads the legacy string→JSON key-value store. Read-only: the
// importer never mutates the legacy data, so a crashed import can re-run
// against it.
type FlatStore interface {
	// Get returns the raw JSON value for key, or ("", false) when absent.
	Get(ctx context.Context, key string) (string, bool, error)
}

// FlatPlace is the legacy place record as serialized under "stores:v1".
type FlatPlace struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ExternalRef string  `json:"placeId"`
	Enabled     *bool   `json:"enabled"`
	CreatedAt   int64   `json:"createdAt"`
	UpdatedAt   int64   `json:"updatedAt"`
}

// FlatNote is the legacy note record as serialized under "memos:v1:<id>".
// Fields are loosely typed in the legacy data; absent fields decode to zero
// values.
type FlatNote struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Checked    bool   `json:"checked"`
	ReminderAt int64  `json:"reminderAt"`
	CreatedAt  int64  `json:"createdAt"`
}

// FlatLoginBonus is the legacy login-streak blob under "loginBonus:v1".
type FlatLoginBonus struct {
	LastLoginDate  string `json:"lastLoginDate"`
	StreakDays     int    `json:"streakDays"`
	MaxStreakDays  int    `json:"maxStreakDays"`
	TotalLoginDays int    `json:"totalLoginDays"`
}

// Places decodes the legacy place list. A missing or unparseable list reads
// as empty: the legacy store was written by code that tolerated corruption
// the same way.
func Places(ctx context.Context, fs FlatStore) ([]FlatPlace, error) {
	raw, ok, err := fs.Get(ctx, keyPlaces)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy place list: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var places []FlatPlace
	if err := json.Unmarshal([]byte(raw), &places); err != nil {
		return nil, nil
	}
	return places, nil
}

// Notes decodes the legacy note list of one place. Notes with empty trimmed
// text are dropped here, matching the legacy reader.
func Notes(ctx context.Context, fs FlatStore, placeID string) ([]FlatNote, error) {
	raw, ok, err := fs.Get(ctx, keyNotePrefix+placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy notes for %s: %w", placeID, err)
	}
	if !ok {
		return nil, nil
	}

	var notes []FlatNote
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return nil, nil
	}

	kept := notes[:0]
	for _, n := range notes {
		if strings.TrimSpace(n.Text) == "" {
			continue
		}
		kept = append(kept, n)
	}
	return kept, nil
}

// LoginBonus decodes the legacy login-streak blob, or nil when absent.
func LoginBonus(ctx context.Context, fs FlatStore) (*FlatLoginBonus, error) {
	raw, ok, err := fs.Get(ctx, keyLoginBonus)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy login bonus: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var bonus FlatLoginBonus
	if err := json.Unmarshal([]byte(raw), &bonus); err != nil {
		return nil, nil
	}
	return &bonus, nil
}

// FileFlatStore reads the legacy store from a single JSON file mapping keys
// to raw JSON values, the export format of the old app's key-value backend.
type FileFlatStore struct {
	entries map[string]json.RawMessage
}

// OpenFile loads a legacy export file. A missing file yields an empty store,
// not an error: an installation without legacy data has nothing to import.
func OpenFile(path string) (*FileFlatStore, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileFlatStore{entries: map[string]json.RawMessage{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy store %s: %w", path, err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse legacy store %s: %w", path, err)
	}

	return &FileFlatStore{entries: entries}, nil
}

func (f *FileFlatStore) Get(_ context.Context, key string) (string, bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return "", false, nil
	}
	return string(raw), true, nil
}

// MemFlatStore is an in-memory FlatStore for tests.
type MemFlatStore map[string]string

func (m MemFlatStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}
