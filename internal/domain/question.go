package domain

import "time"

// QuestionType discriminates free-text questions from multiple choice.
type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeMultipleChoice QuestionType = "multiple_choice"
)

// Status is the lifecycle state of a question.
//
// OPEN and PARTIAL accept responses. CLOSED and EXPIRED are terminal:
// CLOSED is reached by response count, EXPIRED by the clock.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusPartial Status = "PARTIAL"
	StatusClosed  Status = "CLOSED"
	StatusExpired Status = "EXPIRED"
)

// Validation limits and defaults for question creation.
const (
	MaxPromptLength       = 2000
	MaxAnswerLength       = 5000
	DefaultMinResponses   = 5
	MaxMinResponses       = 50
	DefaultTimeoutSeconds = 3600
	MinTimeoutSeconds     = 60
	MaxTimeoutSeconds     = 86400
	MinOptions            = 2
	MaxOptions            = 10
)

// DefaultAudience is applied when a question is created without audience tags.
var DefaultAudience = []string{"general"}

// Question is a prompt posed by an agent, answered by humans until
// MinResponses is reached or the question expires.
type Question struct {
	QuestionID       string
	Prompt           string
	Type             QuestionType
	Options          []string
	Status           Status
	MinResponses     int
	CurrentResponses int
	CreatedAt        time.Time
	ExpiresAt        time.Time
	ClosedAt         time.Time
	Audience         []string
	AgentID          string
}

// Terminal reports whether the status accepts no further responses.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusExpired
}

// NextStatus returns the status a question holds after its response count
// reaches count against the given threshold.
func NextStatus(count, minResponses int) Status {
	switch {
	case count >= minResponses:
		return StatusClosed
	case count > 0:
		return StatusPartial
	default:
		return StatusOpen
	}
}

// EffectiveStatus applies lazy expiry: a stored OPEN or PARTIAL question past
// its expiry reads as EXPIRED. The stored status is never rewritten.
func (q Question) EffectiveStatus(now time.Time) Status {
	if !q.Status.Terminal() && now.After(q.ExpiresAt) {
		return StatusExpired
	}
	return q.Status
}

// Accepting reports whether the question can take another response at now.
func (q Question) Accepting(now time.Time) bool {
	return !q.EffectiveStatus(now).Terminal()
}

// ResponsesNeeded is how many more responses the question wants, floored at 0.
func (q Question) ResponsesNeeded() int {
	n := q.MinResponses - q.CurrentResponses
	if n < 0 {
		return 0
	}
	return n
}
