package events

// Event represents a structured state change emitted while executing a
// marketplace action.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (indexers, UIs). The
// emitter is observational: nothing it does can influence the state
// transition that produced the event.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for components that optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
