package api

import (
	"context"

	"taskpulse/broker"
	"taskpulse/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	Categories(ctx context.Context) ([]string, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	CompleteTask(ctx context.Context, id int) (bool, error)
	MarkNotified(ctx context.Context, id int) (bool, error)
}

// Notifier sends a reminder for a task and reports transport acceptance.
type Notifier interface {
	Notify(ctx context.Context, t domain.Task) bool
}

// Broker fans live-update events out to subscribed connections.
type Broker interface {
	Subscribe() *broker.Subscriber
	Unsubscribe(sub *broker.Subscriber)
	Publish(eventType string, data any)
}
