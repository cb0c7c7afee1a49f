package domain

import "time"

// Notification is a derived, per-session record for the admin feed. It is
// materialized when the aggregator observes a newly inserted case and is
// never written back to the store.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	Source    Case      `json:"source,omitempty"`
}
