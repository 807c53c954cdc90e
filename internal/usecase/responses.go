package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/dx-tooling/ask-a-human/internal/domain"
	"github.com/dx-tooling/ask-a-human/internal/ids"
	"github.com/dx-tooling/ask-a-human/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
	maxListFetch     = 100

	// Bounded retries for the accept-a-response compare-and-swap. Each retry
	// re-reads the question, so a conflict only means another human answered
	// in the same instant.
	maxSubmitAttempts = 5

	// Gamification is out of scope; the acknowledgement carries a fixed
	// placeholder value.
	placeholderPoints = 10
)

// ResponseStore defines the persistence operations the human service needs.
type ResponseStore interface {
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	ListOpenQuestions(ctx context.Context, limit int) ([]domain.Question, error)
	AnsweredQuestionIDs(ctx context.Context, fingerprintHash string) (map[string]struct{}, error)
	ApplyResponse(ctx context.Context, resp domain.Response, expectedCount int, newStatus domain.Status, closedAt time.Time) error
}

// HumanService implements the human-facing operations: browsing open
// questions and submitting responses, which drives the question lifecycle.
type HumanService struct {
	store ResponseStore
	now   func() time.Time
}

// NewHumanService creates the human-facing service.
func NewHumanService(store ResponseStore) (*HumanService, error) {
	if store == nil {
		return nil, errors.New("usecase: response store must not be nil")
	}
	return &HumanService{store: store, now: time.Now}, nil
}

// QuestionSummary is a list entry formatted for humans browsing questions.
type QuestionSummary struct {
	QuestionID      string
	Prompt          string
	Type            domain.QuestionType
	Options         []string
	ResponsesNeeded int
	CreatedAt       time.Time
	Audience        []string
}

// QuestionDetail is a single question formatted for answering.
type QuestionDetail struct {
	QuestionID      string
	Prompt          string
	Type            domain.QuestionType
	Options         []string
	ResponsesNeeded int
	CanAnswer       bool
	Audience        []string
}

// SubmitResponseInput is a candidate response from a human.
type SubmitResponseInput struct {
	QuestionID      string
	Answer          string
	SelectedOption  *int
	Confidence      *int
	FingerprintHash string
}

// SubmitResponseOutput acknowledges an accepted response.
type SubmitResponseOutput struct {
	ResponseID   string
	PointsEarned int
}

var newResponseID = ids.NewResponseID

// ListQuestions returns open questions for the human browse view, most
// recent first, OPEN before PARTIAL. Questions the fingerprint already
// answered and questions past expiry are filtered out. A nil requested
// limit means the default of 20; a supplied one is clamped to [1, 50].
func (s *HumanService) ListQuestions(ctx context.Context, requested *int, fingerprintHash string) ([]QuestionSummary, error) {
	limit := defaultListLimit
	if requested != nil {
		limit = *requested
		if limit < 1 {
			limit = 1
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}

	answered := map[string]struct{}{}
	if fingerprintHash != "" {
		var err error
		answered, err = s.store.AnsweredQuestionIDs(ctx, fingerprintHash)
		if err != nil {
			return nil, newError(ErrorInternal, "failed to load answered questions", err)
		}
	}

	// Over-fetch to compensate for entries the filters will drop.
	fetchLimit := limit + len(answered)
	if fetchLimit > maxListFetch {
		fetchLimit = maxListFetch
	}
	questions, err := s.store.ListOpenQuestions(ctx, fetchLimit)
	if err != nil {
		return nil, newError(ErrorInternal, "failed to list questions", err)
	}

	now := s.now()
	summaries := make([]QuestionSummary, 0, limit)
	for _, q := range questions {
		if len(summaries) == limit {
			break
		}
		if q.EffectiveStatus(now).Terminal() {
			continue
		}
		if _, done := answered[q.QuestionID]; done {
			continue
		}
		summaries = append(summaries, QuestionSummary{
			QuestionID:      q.QuestionID,
			Prompt:          q.Prompt,
			Type:            q.Type,
			Options:         q.Options,
			ResponsesNeeded: q.ResponsesNeeded(),
			CreatedAt:       q.CreatedAt,
			Audience:        q.Audience,
		})
	}

	slog.Info("listed open questions", "count", len(summaries), "filtered_answered", len(answered))
	return summaries, nil
}

// GetQuestionDetail returns a single question for answering. Questions that
// are CLOSED or EXPIRED (including lazily expired) report as closed.
func (s *HumanService) GetQuestionDetail(ctx context.Context, questionID, fingerprintHash string) (QuestionDetail, error) {
	if questionID == "" {
		return QuestionDetail{}, requiredField("question_id", "question_id is required")
	}

	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return QuestionDetail{}, newError(ErrorQuestionNotFound, "The requested question does not exist or has expired.", nil)
		}
		return QuestionDetail{}, newError(ErrorInternal, "failed to load question", err)
	}
	if q.EffectiveStatus(s.now()).Terminal() {
		return QuestionDetail{}, questionClosedError()
	}

	canAnswer := true
	if fingerprintHash != "" {
		answered, err := s.store.AnsweredQuestionIDs(ctx, fingerprintHash)
		if err != nil {
			return QuestionDetail{}, newError(ErrorInternal, "failed to load answered questions", err)
		}
		_, done := answered[q.QuestionID]
		canAnswer = !done
	}

	return QuestionDetail{
		QuestionID:      q.QuestionID,
		Prompt:          q.Prompt,
		Type:            q.Type,
		Options:         q.Options,
		ResponsesNeeded: q.ResponsesNeeded(),
		CanAnswer:       canAnswer,
		Audience:        q.Audience,
	}, nil
}

// SubmitResponse validates and appends one response, advancing the
// question's lifecycle. Nothing is persisted on any validation failure or
// when the question no longer accepts responses.
//
// The count/status advance is a compare-and-swap on the count read in the
// same attempt; on conflict with a concurrent accept the whole attempt is
// retried with a fresh read, so no increment is ever lost and a terminal
// status never regresses.
func (s *HumanService) SubmitResponse(ctx context.Context, in SubmitResponseInput) (SubmitResponseOutput, error) {
	if in.QuestionID == "" {
		return SubmitResponseOutput{}, requiredField("question_id", "question_id is required")
	}

	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		q, err := s.store.GetQuestion(ctx, in.QuestionID)
		if err != nil {
			if errors.Is(err, repository.ErrQuestionNotFound) {
				return SubmitResponseOutput{}, newError(ErrorQuestionNotFound, "The requested question does not exist or has expired.", nil)
			}
			return SubmitResponseOutput{}, newError(ErrorInternal, "failed to load question", err)
		}

		// Terminal questions are rejected on the first read only. A conflict
		// retry means this response raced a concurrent accept; an accept that
		// found the question open must still land even if the racer's
		// increment closed it, so the count reflects every accepted response.
		now := s.now().UTC()
		if attempt == 0 && !q.Accepting(now) {
			return SubmitResponseOutput{}, questionClosedError()
		}

		resp, err := buildResponse(q, in, now)
		if err != nil {
			return SubmitResponseOutput{}, err
		}

		newCount := q.CurrentResponses + 1
		newStatus := domain.NextStatus(newCount, q.MinResponses)

		// closed_at marks the transition into CLOSED; accepts that land after
		// it leave the timestamp untouched.
		var closedAt time.Time
		if newStatus == domain.StatusClosed && q.Status != domain.StatusClosed {
			closedAt = now
		}

		err = s.store.ApplyResponse(ctx, resp, q.CurrentResponses, newStatus, closedAt)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return SubmitResponseOutput{}, newError(ErrorInternal, "failed to store response", err)
		}

		slog.Info("accepted response",
			"response_id", resp.ResponseID,
			"question_id", q.QuestionID,
			"new_count", newCount,
			"new_status", newStatus,
		)
		return SubmitResponseOutput{ResponseID: resp.ResponseID, PointsEarned: placeholderPoints}, nil
	}

	return SubmitResponseOutput{}, newError(ErrorInternal, "response submission lost repeated update races", nil)
}

// buildResponse validates the candidate against its question's type and
// constructs the response to persist.
func buildResponse(q domain.Question, in SubmitResponseInput, now time.Time) (domain.Response, error) {
	resp := domain.Response{
		ResponseID:      newResponseID(),
		QuestionID:      q.QuestionID,
		Confidence:      in.Confidence,
		FingerprintHash: in.FingerprintHash,
		CreatedAt:       now,
	}

	switch q.Type {
	case domain.TypeText:
		if in.Answer == "" {
			return domain.Response{}, requiredField("answer", "answer is required for text questions")
		}
		if utf8.RuneCountInString(in.Answer) > domain.MaxAnswerLength {
			return domain.Response{}, validationError(
				fmt.Sprintf("answer must be at most %d characters", domain.MaxAnswerLength),
				map[string]any{"field": "answer", "constraint": "length", "max": domain.MaxAnswerLength},
			)
		}
		resp.Answer = in.Answer
	case domain.TypeMultipleChoice:
		if in.SelectedOption == nil {
			return domain.Response{}, requiredField("selected_option", "selected_option is required for multiple choice questions")
		}
		if *in.SelectedOption < 0 || *in.SelectedOption >= len(q.Options) {
			return domain.Response{}, rangeField("selected_option",
				fmt.Sprintf("selected_option must be between 0 and %d", len(q.Options)-1),
				0, len(q.Options)-1)
		}
		resp.SelectedOption = in.SelectedOption
	default:
		return domain.Response{}, newError(ErrorInternal, fmt.Sprintf("question %s has unknown type %q", q.QuestionID, q.Type), nil)
	}

	if in.Confidence != nil && (*in.Confidence < 1 || *in.Confidence > 5) {
		return domain.Response{}, rangeField("confidence", "confidence must be between 1 and 5", 1, 5)
	}
	return resp, nil
}

func questionClosedError() *Error {
	return newError(ErrorQuestionClosed, "This question is no longer accepting responses.", nil)
}
