// Package event integrates the scoring pipeline with the platform
// message broker. Score requests arrive on a topic exchange, results
// and failures are published back on it.
package event

import (
	"github.com/edulytic/mastery-service/internal/mastery"
)

// Routing keys on the mastery.events exchange.
const (
	RouteScoreRequested = "mastery.score.requested"
	RouteScoreCompleted = "mastery.score.completed"
	RouteScoreFailed    = "mastery.score.failed"
)

// ScoreRequested asks the service to compute mastery for a student's
// interaction history.
type ScoreRequested struct {
	EventID      string                `json:"eventId"`
	EventType    string                `json:"eventType"`
	UserID       string                `json:"userId"`
	Interactions []mastery.Interaction `json:"interactions"`
	Metadata     map[string]any        `json:"metadata,omitempty"`
}

// ScoreCompleted carries a computed mastery map back to interested
// services.
type ScoreCompleted struct {
	EventID           string             `json:"eventId"`
	EventType         string             `json:"eventType"`
	SourceEventID     string             `json:"sourceEventId"`
	UserID            string             `json:"userId"`
	MasteryScores     map[string]float64 `json:"masteryScores"`
	TotalSkills       int                `json:"totalSkills"`
	TotalInteractions int                `json:"totalInteractions"`
}

// ScoreFailed reports that a request could not be scored.
type ScoreFailed struct {
	EventID       string `json:"eventId"`
	EventType     string `json:"eventType"`
	SourceEventID string `json:"sourceEventId"`
	UserID        string `json:"userId"`
	Reason        string `json:"reason"`
}
