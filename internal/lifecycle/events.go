package lifecycle

// Event represents a lifecycle event.
// Minimal and stable: name + instance ID and optional fields via key/values.
type Event struct {
	Name       string
	InstanceID string
	Fields     map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// Event names.
const (
	EventResolved        = "resolved"
	EventTrainingStarted = "training_started"
	EventTrainingDone    = "training_done"
	EventTrainingFailed  = "training_failed"
	EventPruned          = "pruned"
	EventCacheCleared    = "cache_cleared"
)
