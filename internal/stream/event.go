// Package stream folds the event stream of a generating agent into a
// readable chat transcript and runs the completion and failure hooks of
// a generation session.
package stream

import (
	"context"
	"io"
)

// EventType is the kind of an agent event.
type EventType string

const (
	EventAIResponse   EventType = "ai_response"
	EventToolRequest  EventType = "tool_request"
	EventToolExecuted EventType = "tool_executed"
)

// Event is one message of the agent stream.
//
//	{"type":"ai_response","data":"..."}
//	{"type":"tool_request","id":"t1","name":"writeFile"}
//	{"type":"tool_executed","name":"writeFile","arguments":"{...}"}
type Event struct {
	Type      EventType `json:"type"`
	Data      string    `json:"data,omitempty"`
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Arguments string    `json:"arguments,omitempty"`
}

// Source yields events in arrival order. Next returns io.EOF once the
// stream has completed normally; any other error fails the session.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// Events returns a Source replaying evs, then io.EOF.
func Events(evs ...Event) Source {
	return &sliceSource{events: evs}
}

type sliceSource struct {
	events []Event
	pos    int
}

func (s *sliceSource) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	e := s.events[s.pos]
	s.pos++
	return e, nil
}
