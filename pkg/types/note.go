package types

// Note is a short text annotation attached to exactly one Place. Notes are
// deleted together with their owning place (ON DELETE CASCADE).
//
// Invariant: ReminderHandle is non-empty iff ReminderAt is set, in the
// future, and Checked is false. Checking a note or clearing its reminder
// atomically cancels any scheduled notification.
type Note struct {
	// ID is an opaque, globally unique identifier (note_<uuid>).
	ID string `json:"id"`

	// PlaceID is the owning place's identifier.
	PlaceID string `json:"placeId"`

	// Text is non-empty after trimming; enforced at the mutation boundary.
	Text string `json:"text"`

	// Checked marks the note as done.
	Checked bool `json:"checked"`

	// ReminderAt is the reminder time in epoch milliseconds, or 0 when the
	// note has no reminder. Local-only: never uploaded to the remote store.
	ReminderAt int64 `json:"-"`

	// ReminderHandle is the opaque OS notification handle realizing the
	// reminder. Local-only: handles are meaningless on another device.
	ReminderHandle string `json:"-"`

	// CreatedAt is epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// HasActiveReminder reports whether the note carries a live reminder as of
// the given time (epoch milliseconds).
func (n *Note) HasActiveReminder(nowMillis int64) bool {
	return !n.Checked && n.ReminderAt > nowMillis && n.ReminderHandle != ""
}

// ReminderItem is one row of the upcoming-reminders view: a non-checked note
// with a future reminder, joined with its owning place's name.
type ReminderItem struct {
	PlaceID    string `json:"storeId"`
	PlaceName  string `json:"storeName"`
	NoteID     string `json:"memoId"`
	Text       string `json:"text"`
	ReminderAt int64  `json:"reminderAt"`
}
