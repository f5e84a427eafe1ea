// Package webhooks notifies HTTP endpoints about finished model loads.
package webhooks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of webhook event
type EventType string

const (
	EventModelLoaded     EventType = "model_loaded"
	EventModelLoadFailed EventType = "model_load_failed"
)

// DeliveryStatus represents the status of a webhook delivery
type DeliveryStatus string

const (
	DeliveryQueued    DeliveryStatus = "queued"
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryDead      DeliveryStatus = "dead"
)

// Format represents the payload format
type Format string

const (
	FormatJSON    Format = "json"
	FormatSlack   Format = "slack"
	FormatDiscord Format = "discord"
)

// Endpoint defines a webhook in configuration
type Endpoint struct {
	Name    string            `json:"name" mapstructure:"name"`
	URL     string            `json:"url" mapstructure:"url"`
	Secret  string            `json:"secret,omitempty" mapstructure:"secret"`
	Events  []EventType       `json:"events,omitempty" mapstructure:"events"`
	Format  Format            `json:"format,omitempty" mapstructure:"format"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}

// Wants reports whether the endpoint subscribes to t. No events means all.
func (e Endpoint) Wants(t EventType) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, want := range e.Events {
		if want == t {
			return true
		}
	}
	return false
}

// LoadReport is the event data of a finished load.
type LoadReport struct {
	Model       string `json:"model"`
	Resource    string `json:"resource"`
	Parser      string `json:"parserVersion"`
	AttemptID   string `json:"attemptId,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Elements    int    `json:"elements"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	Infos       int    `json:"infos"`
	Failure     string `json:"failure,omitempty"`
}

// Event represents a webhook event
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Model     string          `json:"model"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new webhook event
func NewEvent(eventType EventType, model string, data interface{}) (*Event, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Model:     model,
		Data:      dataJSON,
	}, nil
}

// Delivery is one event on its way to one endpoint.
type Delivery struct {
	ID            string         `json:"id"`
	Endpoint      string         `json:"endpoint"`
	EventID       string         `json:"eventId"`
	EventType     EventType      `json:"eventType"`
	Payload       string         `json:"payload"`
	Status        DeliveryStatus `json:"status"`
	Attempts      int            `json:"attempts"`
	LastAttemptAt *time.Time     `json:"lastAttemptAt,omitempty"`
	LastError     string         `json:"lastError,omitempty"`
	ResponseCode  int            `json:"responseCode,omitempty"`
	NextRetryAt   *time.Time     `json:"nextRetryAt,omitempty"`

	target Endpoint
}

// MarkDelivered marks the delivery as successful
func (d *Delivery) MarkDelivered(responseCode int) {
	now := time.Now()
	d.Status = DeliveryDelivered
	d.ResponseCode = responseCode
	d.LastAttemptAt = &now
	d.Attempts++
}

// MarkFailed records a failed attempt. The delay before the next one grows
// linearly with the attempt count; after maxAttempts the delivery is dead.
func (d *Delivery) MarkFailed(err error, maxAttempts int, retryDelay time.Duration) {
	now := time.Now()
	d.LastAttemptAt = &now
	d.LastError = err.Error()
	d.Attempts++

	if d.Attempts >= maxAttempts {
		d.Status = DeliveryDead
		d.NextRetryAt = nil
		return
	}
	d.Status = DeliveryPending
	next := now.Add(retryDelay * time.Duration(d.Attempts))
	d.NextRetryAt = &next
}
