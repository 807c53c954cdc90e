package askhuman

import "time"

// QuestionType selects free-form or multiple-choice answers.
type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeMultipleChoice QuestionType = "multiple_choice"
)

// Status is a question's lifecycle state.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusPartial Status = "PARTIAL"
	StatusClosed  Status = "CLOSED"
	StatusExpired Status = "EXPIRED"
)

// Terminal reports whether the question will never accept more responses.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusExpired
}

// SubmitQuestionInput is a question to put in front of humans. Zero values
// for MinResponses and TimeoutSeconds take the server defaults (5 and 3600).
type SubmitQuestionInput struct {
	Prompt         string       `json:"prompt"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options,omitempty"`
	Audience       []string     `json:"audience,omitempty"`
	MinResponses   int          `json:"min_responses,omitempty"`
	TimeoutSeconds int          `json:"timeout_seconds,omitempty"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
}

// Submission acknowledges an accepted question.
type Submission struct {
	QuestionID string    `json:"question_id"`
	Status     Status    `json:"status"`
	PollURL    string    `json:"poll_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// HumanAnswer is one human's response. Answer is set for text questions,
// SelectedOption for multiple choice.
type HumanAnswer struct {
	Answer         string `json:"answer,omitempty"`
	SelectedOption *int   `json:"selected_option,omitempty"`
	Confidence     *int   `json:"confidence,omitempty"`
}

// QuestionState is a polled question: its status, the responses gathered so
// far, and for multiple choice the per-option vote counts.
type QuestionState struct {
	QuestionID        string         `json:"question_id"`
	Status            Status         `json:"status"`
	Prompt            string         `json:"prompt"`
	Type              QuestionType   `json:"type"`
	Options           []string       `json:"options,omitempty"`
	RequiredResponses int            `json:"required_responses"`
	CurrentResponses  int            `json:"current_responses"`
	ExpiresAt         time.Time      `json:"expires_at"`
	ClosedAt          time.Time      `json:"closed_at"`
	Responses         []HumanAnswer  `json:"responses"`
	Summary           map[string]int `json:"summary,omitempty"`
}

// Done reports whether waiting on this question can stop: it is terminal or
// has gathered at least minResponses.
func (q QuestionState) Done(minResponses int) bool {
	return q.Status.Terminal() || q.CurrentResponses >= minResponses
}

// Winner returns the option with the most votes for a multiple-choice
// question. Ties go to the earliest-declared option. ok is false when there
// is no summary to judge from.
func (q QuestionState) Winner() (option string, votes int, ok bool) {
	if len(q.Summary) == 0 || len(q.Options) == 0 {
		return "", 0, false
	}
	option, votes = q.Options[0], q.Summary[q.Options[0]]
	for _, opt := range q.Options[1:] {
		if q.Summary[opt] > votes {
			option, votes = opt, q.Summary[opt]
		}
	}
	return option, votes, true
}
