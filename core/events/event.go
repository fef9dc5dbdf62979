package events

// Event represents a structured state change emitted by the staking node.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Emitter broadcasts events to downstream subscribers (RPC, indexers, logs).
type Emitter interface {
	Emit(*Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wherever a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(*Event) {}

// CaptureEmitter records every emitted event in order. Test helper.
type CaptureEmitter struct {
	Events []*Event
}

// Emit implements the Emitter interface.
func (c *CaptureEmitter) Emit(evt *Event) {
	if evt == nil {
		return
	}
	c.Events = append(c.Events, evt)
}
