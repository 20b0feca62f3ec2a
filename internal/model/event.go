package model

import "encoding/json"

type EventType string

const (
	EventConnected          EventType = "CONNECTED"
	EventPing               EventType = "PING"
	EventPong               EventType = "PONG"
	EventGetLeaderboard     EventType = "GET_LEADERBOARD"
	EventCurrentLeaderboard EventType = "CURRENT_LEADERBOARD"
	EventSubmissionStatus   EventType = "SUBMISSION_STATUS"
	EventMatchFound         EventType = "MATCH_FOUND"
	EventError              EventType = "ERROR"
)

// Event is the frame exchanged over the realtime channel in both directions.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event. A nil payload leaves Payload empty.
func NewEvent(eventType EventType, payload any) (Event, error) {
	ev := Event{Type: eventType}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = raw
	return ev, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

type ConnectedPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type SubmissionStatusPayload struct {
	SubmissionID string           `json:"submissionId"`
	ProblemID    string           `json:"problemId"`
	Status       SubmissionStatus `json:"status"`
	Message      string           `json:"message,omitempty"`
}

type LeaderboardPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
