package domain

import (
	"errors"
	"strings"
	"time"
)

// DefaultCategories seeds a fresh store.
var DefaultCategories = []string{"Easy", "Medium", "Hard"}

// Task represents one unit of work on the board.
type Task struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Priority         string    `json:"priority,omitempty"`
	DueDate          time.Time `json:"due_date"`
	CreatedAt        time.Time `json:"created_at"`
	Completed        bool      `json:"completed"`
	NotificationSent bool      `json:"notification_sent"`
}

// ErrInvalidDueDate is returned when a due date string matches none of the
// accepted layouts.
var ErrInvalidDueDate = errors.New("invalid due date")

// Layouts accepted from clients: RFC 3339 plus the zone-less formats a
// datetime-local form field submits. Zone-less values are interpreted in the
// server's local zone.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseDueDate parses a client-supplied due date string.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDueDate
	}
	for _, layout := range dueDateLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}

// NewTask validates creation fields and returns a task without an ID or
// creation stamp; the store assigns both on insert.
func NewTask(title, description, category, priority string, due time.Time) (Task, error) {
	title = strings.TrimSpace(title)
	category = strings.TrimSpace(category)
	if title == "" {
		return Task{}, errors.New("title is required")
	}
	if category == "" {
		return Task{}, errors.New("category is required")
	}
	if due.IsZero() {
		return Task{}, errors.New("due date is required")
	}
	return Task{
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		DueDate:     due,
	}, nil
}

// DueWithin reports whether the task's due date falls within d of now.
// Past-due tasks satisfy any window; tasks without a due date never do.
func (t Task) DueWithin(now time.Time, d time.Duration) bool {
	if t.DueDate.IsZero() {
		return false
	}
	return t.DueDate.Sub(now) <= d
}
