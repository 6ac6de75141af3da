package models

import "time"

// Category labels events and user preferences. NameKey is a unique locale
// reference key; Icon is an optional icon identifier.
type Category struct {
	ID        int64     `json:"id"`
	NameKey   string    `json:"name_key"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
