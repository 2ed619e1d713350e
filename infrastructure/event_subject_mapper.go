package infrastructure

import (
	"fmt"
	"strings"

	"blocklucky/events"
)

// SubjectPrefix is the root of every lottery subject
const SubjectPrefix = "lottery"

// EventStreamName is the JetStream stream holding lottery events
const EventStreamName = "lottery_events"

// EventSubjectMapper handles mapping between lottery events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject returns lottery.<id>.<event type>
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return fmt.Sprintf("%s.%d.%s", SubjectPrefix, event.Ref().LotteryID, event.Type())
}

// MapSubjectToEventType extracts the event type from a lottery subject
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) (events.EventType, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != SubjectPrefix {
		return "", false
	}
	for _, t := range events.AllEventTypes {
		if string(t) == parts[2] {
			return t, true
		}
	}
	return "", false
}

// GetAllSubjects returns the wildcard subjects the event stream captures
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{SubjectPrefix + ".*.*"}
}
