package domain

// Event types pushed to live-update subscribers.
const (
	EventNewTask       = "new_task"
	EventTaskCompleted = "task_completed"
)

// Event is one live-update frame: a type tag plus its payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
