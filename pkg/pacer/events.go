package pacer

import (
	"context"
	"reflect"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// EventStarted is published on the event bus when the pacing loop starts.
type EventStarted struct{}

// EventStopped is published when the pacing loop fully stops.
type EventStopped struct{}

// EventFPSUpdated is published about once a second with the measured
// output frame rate.
type EventFPSUpdated struct {
	FPS float64
}

// EventError is published when an iteration of the pacing loop fails.
type EventError struct {
	Err error
}

func eventTopic(event any) string {
	t := reflect.ValueOf(event).Type()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func (l *Loop) publishEvent(ctx context.Context, event any) {
	if l.EventBus == nil {
		return
	}
	topic := eventTopic(event)
	logger.Tracef(ctx, "publishEvent: %s", topic)
	l.EventBus.Publish(topic, event)
}
