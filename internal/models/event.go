package models

import "time"

// Event represents a discoverable event at a geographic point. Title,
// description and the notification message are locale reference keys; the
// presentation layer resolves them.
type Event struct {
	ID             int64      `json:"id"`
	TitleKey       string     `json:"title_key"`
	DescriptionKey string     `json:"description_key,omitempty"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Address        string     `json:"address"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Capacity       *int       `json:"capacity,omitempty"`
	Price          float64    `json:"price"`
	CreatorID      int64      `json:"creator_id"`
	Categories     []Category `json:"categories,omitempty"`
	AvgRating      *float64   `json:"avg_rating,omitempty"` // nil until the first rating
	FavoriteCount  int64      `json:"favorite_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RankedEvent pairs an event with its distance from a query center.
type RankedEvent struct {
	Event
	DistanceMeters float64 `json:"distance_meters"`
}

// EventRating is one user's rating of an event; unique per (user, event).
type EventRating struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"` // 1-5
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
