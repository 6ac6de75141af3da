package models

import "time"

// MessageKeyUpcomingEvent is the locale reference key for event reminders.
const MessageKeyUpcomingEvent = "notifications.upcoming_event"

// Notification is a delivered reminder. Rows are created by the delivery
// worker when a scheduled entry fires, never by direct user action.
type Notification struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	EventID     int64     `json:"event_id"`
	MessageKey  string    `json:"message_key"`
	IsRead      bool      `json:"is_read"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
}
