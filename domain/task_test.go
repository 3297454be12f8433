package domain

import (
	"testing"
	"time"
)

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "rfc3339", input: "2026-09-01T15:04:05+02:00"},
		{name: "datetimeLocal", input: "2026-09-01T15:04"},
		{name: "spaceSeparated", input: "2026-09-01 15:04:05"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "dateOnly", input: "2026-09-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDueDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tt.input, err)
			}
			if got.IsZero() {
				t.Fatalf("expected non-zero time for %q", tt.input)
			}
		})
	}
}

func TestNewTaskValidation(t *testing.T) {
	due := time.Now().Add(time.Hour)

	if _, err := NewTask("", "desc", "Easy", "High", due); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, err := NewTask("Write report", "desc", "", "High", due); err == nil {
		t.Fatal("expected error for missing category")
	}
	if _, err := NewTask("Write report", "desc", "Easy", "High", time.Time{}); err == nil {
		t.Fatal("expected error for missing due date")
	}

	task, err := NewTask("  Write report ", "desc", "Medium", "High", due)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Title != "Write report" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.ID != 0 || task.Completed || task.NotificationSent {
		t.Fatalf("expected zero-valued lifecycle fields, got %+v", task)
	}
}

func TestDueWithin(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		due    time.Time
		window time.Duration
		want   bool
	}{
		{name: "insideWindow", due: now.Add(59 * time.Minute), window: time.Hour, want: true},
		{name: "exactBoundary", due: now.Add(time.Hour), window: time.Hour, want: true},
		{name: "outsideWindow", due: now.Add(61 * time.Minute), window: time.Hour, want: false},
		{name: "pastDue", due: now.Add(-2 * time.Hour), window: time.Hour, want: true},
		{name: "noDueDate", due: time.Time{}, window: time.Hour, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{DueDate: tt.due}
			if got := task.DueWithin(now, tt.window); got != tt.want {
				t.Fatalf("DueWithin(%v, %v) = %v, want %v", tt.due, tt.window, got, tt.want)
			}
		})
	}
}
