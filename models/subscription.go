package models

import "time"

// Subscription is one stored subscription source. Name, when present, is used
// as the namespace prefix for the source's proxies and groups during a merge;
// unnamed subscriptions fall back to a positional "subN" label.
type Subscription struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
