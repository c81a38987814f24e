package service

import (
	"time"

	"ai-research-chat-be/pkg/events"
)

// eventFor wraps a payload in the bus event envelope.
func eventFor(eventType string, data map[string]interface{}) events.Event {
	return events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
