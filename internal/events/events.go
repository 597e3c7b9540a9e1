// Package events publishes domain events to the message broker. The mail
// service consumes auth.otp_requested to deliver verification codes.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event types
const (
	TypeOTPRequested        = "auth.otp_requested"
	TypePlanChanged         = "plan.changed"
	TypeGenerationCompleted = "generation.completed"
)

// Event is the envelope written to the topic. Key routes all of a user's
// events to the same partition.
type Event struct {
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// New builds an event keyed by user id
func New(eventType, userID string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:       eventType,
		Key:        userID,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// OTPRequested asks the mail service to deliver a verification code
type OTPRequested struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	OTP   string `json:"otp"`
}

// PlanChanged is emitted after a plan selection or admin override
type PlanChanged struct {
	UserID         string `json:"userId"`
	Plan           string `json:"plan"`
	PreviousPlan   string `json:"previousPlan"`
	Direction      string `json:"direction"`
	Balance        int    `json:"balance"`
	TotalPurchased int    `json:"totalPurchased"`
	ByAdmin        bool   `json:"byAdmin"`
}

// GenerationCompleted is emitted after a credit was charged for a generation
type GenerationCompleted struct {
	UserID    string `json:"userId"`
	Mode      string `json:"mode"`
	RecordID  string `json:"recordId"`
	ResultURL string `json:"resultUrl"`
	Balance   int    `json:"balance"`
}

// Publisher sends events to the broker
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close implements Publisher
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events with the given type
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
