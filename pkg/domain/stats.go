package domain

import "time"

// Stats tracks the view counter and lifecycle timestamps of a pasty.
// Timestamps carry second resolution, matching the stored record.
type Stats struct {
	Views        uint32    `json:"views"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastViewedAt time.Time `json:"last_viewed_at"`
}

// NewStats returns a zero-view record with all timestamps set to now.
func NewStats() Stats {
	now := time.Now().UTC().Truncate(time.Second)
	return Stats{
		CreatedAt:    now,
		UpdatedAt:    now,
		LastViewedAt: now,
	}
}

// View counts one view and stamps it. The counter wraps at the width of
// the stored field.
func (s Stats) View() Stats {
	s.Views++
	s.LastViewedAt = time.Now().UTC().Truncate(time.Second)
	return s
}

// Update stamps a content change, leaving views, creation and last-view
// times untouched.
func (s Stats) Update() Stats {
	s.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return s
}
