package types

// Event is a typed record emitted while executing a marketplace action. Events
// are observational only; they never feed back into state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
