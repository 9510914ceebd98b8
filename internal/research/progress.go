package research

// Progress is a structured event emitted as the loop advances. The zero-value
// fields of a given status are omitted from the wire form.
type Progress struct {
	Type          string `json:"type"`
	Iteration     int    `json:"iteration,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	Query         string `json:"query,omitempty"`
	Status        string `json:"status"`
	SourcesFound  *int   `json:"sources_found,omitempty"`
}

// ProgressSink receives progress events while research runs. The agent
// publishes synchronously between rounds, so implementations should hand off
// quickly and must not depend on a return value.
type ProgressSink interface {
	Publish(p Progress)
}

// SinkFunc adapts a plain function to a ProgressSink.
type SinkFunc func(Progress)

func (f SinkFunc) Publish(p Progress) { f(p) }

// ChannelSink forwards events into a channel for a draining consumer, the
// shape a streaming transport wants.
type ChannelSink chan Progress

func (c ChannelSink) Publish(p Progress) { c <- p }

// Collector gathers events in order for non-streaming callers and tests.
type Collector struct {
	Events []Progress
}

func (c *Collector) Publish(p Progress) { c.Events = append(c.Events, p) }

func publish(sink ProgressSink, p Progress) {
	if sink != nil {
		sink.Publish(p)
	}
}
