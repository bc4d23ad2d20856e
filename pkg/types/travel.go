package types

// TravelEntry records a meal logged while travelling. Travel entries have no
// relational ties to places or notes; they exist locally and sync as their
// own remote collection.
type TravelEntry struct {
	// ID is an opaque, globally unique identifier (travel_<uuid>).
	ID string `json:"id"`

	// RegionCode identifies the region the entry belongs to.
	RegionCode string `json:"regionCode"`

	RestaurantName string `json:"restaurantName"`
	Genre          string `json:"genre,omitempty"`

	// VisitedAt is epoch milliseconds.
	VisitedAt int64 `json:"visitedAt"`

	// Rating is a 1-5 score, or 0 when unrated.
	Rating int `json:"rating,omitempty"`

	Note string `json:"note,omitempty"`

	// CreatedAt is epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
}
