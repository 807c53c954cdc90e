package domain

import "time"

// Response is one human's answer to a question. Responses are append-only:
// created once, never mutated or deleted.
//
// Answer is set for text questions; SelectedOption for multiple choice.
// Confidence, when present, is an integer in [1,5]. FingerprintHash is an
// opaque tag identifying the responding human for deduplication.
type Response struct {
	ResponseID      string
	QuestionID      string
	Answer          string
	SelectedOption  *int
	Confidence      *int
	FingerprintHash string
	CreatedAt       time.Time
}
