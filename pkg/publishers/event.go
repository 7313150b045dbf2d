package publishers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Outcome values carried on every event and as a message attribute.
const (
	OutcomeSuccess   = "success"
	OutcomeHTTPError = "http_error"
	OutcomeFailure   = "failure"
)

// Event is the audit record emitted for one completed or failed call.
type Event struct {
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event stamped with the current time.
func NewEvent(endpoint, method, url string, duration time.Duration) Event {
	return Event{
		Endpoint:   endpoint,
		Method:     method,
		URL:        url,
		DurationMs: duration.Milliseconds(),
		OccurredAt: time.Now().UTC(),
	}
}

// Outcome classifies the call: transport failure, non-2xx status or success.
func (e Event) Outcome() string {
	switch {
	case e.Error != "":
		return OutcomeFailure
	case e.StatusCode < 200 || e.StatusCode > 299:
		return OutcomeHTTPError
	default:
		return OutcomeSuccess
	}
}

// Attributes are the routing keys sinks attach next to the JSON payload so
// subscribers can filter without decoding it.
func (e Event) Attributes() map[string]string {
	attrs := map[string]string{
		"endpoint": e.Endpoint,
		"method":   e.Method,
		"outcome":  e.Outcome(),
	}
	if e.StatusCode != 0 {
		attrs["status"] = strconv.Itoa(e.StatusCode)
	}
	return attrs
}

func encodeEvent(evt Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return payload, nil
}
