package observe

import (
	"fmt"
	"sync"
)

// Recorder is an Observer that keeps everything it receives in memory.
// Tests use it to assert on emitted events.
type Recorder struct {
	mu       sync.Mutex
	events   []Event
	messages []string
	fields   map[string]string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{fields: make(map[string]string)}
}

// Printf implements Logger.
func (r *Recorder) Printf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (r *Recorder) Event(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, mergeFields(event, r.fields))
}

// WithFields implements Observer. The child shares the parent's buffers.
func (r *Recorder) WithFields(fields map[string]string) Observer {
	child := &Recorder{fields: combine(r.fields, fields)}
	return &recorderChild{parent: r, child: child}
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// EventsOfType returns the recorded events with the given type.
func (r *Recorder) EventsOfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns a copy of all Printf lines.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type recorderChild struct {
	parent *Recorder
	child  *Recorder
}

func (c *recorderChild) Printf(format string, v ...interface{}) { c.parent.Printf(format, v...) }

func (c *recorderChild) Event(event Event) {
	c.parent.Event(mergeFields(event, c.child.fields))
}

func (c *recorderChild) WithFields(fields map[string]string) Observer {
	return &recorderChild{parent: c.parent, child: &Recorder{fields: combine(c.child.fields, fields)}}
}
