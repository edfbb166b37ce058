package event

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventHandler consumes an outbox event. It returns nil for events it does not handle.
type EventHandler func(e *EventRecord) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var EventHandlers []EventHandler

var InvokeHandlersFunc = invokeHandlers

// invokeHandlers runs every registered handler on record. A panicking handler counts as a failure so that the
// event stays pending for the next relay.
func invokeHandlers(record *EventRecord) []EventHandleResult {
	results := []EventHandleResult{}
	for _, handler := range EventHandlers {
		r := invokeHandler(handler, record)
		if r == nil {
			continue
		}
		results = append(results, *r)

		entry := logrus.WithFields(logrus.Fields{
			"eventId": record.ID, "sourceType": record.SourceType, "sourceId": record.SourceId, "handler": r.HandlerIdentifier,
		})
		if r.Success {
			entry.Debug("event handled")
		} else {
			entry.Errorf("event handling failed: %s", r.Message)
		}
	}
	return results
}

func invokeHandler(handler EventHandler, record *EventRecord) (r *EventHandleResult) {
	defer func() {
		if err := recover(); err != nil {
			r = &EventHandleResult{Success: false, Message: fmt.Sprintf("panic: %v", err)}
		}
	}()
	return handler(record)
}
