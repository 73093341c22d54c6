package observe

import (
	"fmt"

	"github.com/go-logr/logr"
)

// LogrObserver implements Observer on top of a logr.Logger.
type LogrObserver struct {
	log    logr.Logger
	fields map[string]string
}

// NewLogrObserver creates an observer that forwards to the given logger.
func NewLogrObserver(logger logr.Logger) *LogrObserver {
	return &LogrObserver{log: logger, fields: make(map[string]string)}
}

// Printf implements Logger.
func (o *LogrObserver) Printf(format string, v ...interface{}) {
	o.log.Info(fmt.Sprintf(format, v...))
}

// Event implements Observer. Failure and warning events are logged at the
// error level so they survive a verbosity filter.
func (o *LogrObserver) Event(event Event) {
	event = mergeFields(event, o.fields)

	kv := make([]interface{}, 0, 6+2*len(event.Fields))
	kv = append(kv, "event", string(event.Type))
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}

	switch event.Type {
	case EventPhaseFailed, EventResourceFailed:
		o.log.Error(nil, event.Message, kv...)
	default:
		o.log.Info(event.Message, kv...)
	}
}

// WithFields implements Observer.
func (o *LogrObserver) WithFields(fields map[string]string) Observer {
	return &LogrObserver{log: o.log, fields: combine(o.fields, fields)}
}
