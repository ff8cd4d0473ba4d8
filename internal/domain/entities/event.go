package entities

import "time"

// EventType is the kind of procedural event recorded on a case.
type EventType string

const (
	EventDemandStart           EventType = "DEMAND_START"
	EventDispatchStart         EventType = "DISPATCH_START"
	EventDispatchResolution    EventType = "DISPATCH_RESOLUTION"
	EventNotification          EventType = "NOTIFICATION"
	EventExceptions            EventType = "EXCEPTIONS"
	EventExceptionsResponse    EventType = "EXCEPTIONS_RESPONSE"
	EventTranslationEvacuation EventType = "TRANSLATION_EVACUATION"
	EventResolution            EventType = "RESOLUTION"
	EventTrialStart            EventType = "TRIAL_START"
	EventSentence              EventType = "SENTENCE"
	EventRequest               EventType = "REQUEST"
	EventCompromise            EventType = "COMPROMISE"
	EventOther                 EventType = "OTHER"
)

var knownEventTypes = map[EventType]struct{}{
	EventDemandStart:           {},
	EventDispatchStart:         {},
	EventDispatchResolution:    {},
	EventNotification:          {},
	EventExceptions:            {},
	EventExceptionsResponse:    {},
	EventTranslationEvacuation: {},
	EventResolution:            {},
	EventTrialStart:            {},
	EventSentence:              {},
	EventRequest:               {},
	EventCompromise:            {},
	EventOther:                 {},
}

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// CaseEvent is one node of a case's event chain. The chain is represented
// only through PreviousEventID/NextEventID; both always reference events of
// the same case.
type CaseEvent struct {
	ID              string     `json:"id"`
	CaseID          string     `json:"case_id"`
	Title           string     `json:"title"`
	SourceParty     Party      `json:"source_party"`
	TargetParty     Party      `json:"target_party"`
	Type            EventType  `json:"type"`
	Simulated       bool       `json:"simulated"`
	ProcedureDate   *time.Time `json:"procedure_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PreviousEventID *string    `json:"previous_event_id,omitempty"`
	NextEventID     *string    `json:"next_event_id,omitempty"`
}

// IsRoot reports whether the event has no predecessor.
func (e *CaseEvent) IsRoot() bool {
	return e.PreviousEventID == nil
}

// HasSuccessor reports whether the event's next pointer is set.
func (e *CaseEvent) HasSuccessor() bool {
	return e.NextEventID != nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
