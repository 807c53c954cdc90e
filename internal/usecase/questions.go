package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dx-tooling/ask-a-human/internal/domain"
	"github.com/dx-tooling/ask-a-human/internal/ids"
	"github.com/dx-tooling/ask-a-human/internal/integrations/paramstore"
	"github.com/dx-tooling/ask-a-human/internal/repository"
)

// QuestionStore defines the persistence operations the agent service needs.
type QuestionStore interface {
	PutQuestion(ctx context.Context, q domain.Question) error
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	ListResponses(ctx context.Context, questionID string) ([]domain.Response, error)
	CountOpenForAgent(ctx context.Context, agentID string) (int, error)
}

// ParamGetter resolves runtime configuration values.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// AgentService implements the agent-facing question operations: creation
// with validation and quota enforcement, and polling reads with lazy expiry
// and vote aggregation.
type AgentService struct {
	store       QuestionStore
	params      ParamGetter
	paramPrefix string
	now         func() time.Time

	quotaMu     sync.RWMutex
	quotaLoaded bool
	quota       int // open questions allowed per agent; 0 disables the check
}

// CreateQuestionInput carries a validated-on-entry question submission.
// MinResponses and TimeoutSeconds must be resolved (defaults already
// applied) before the call.
type CreateQuestionInput struct {
	Prompt         string
	Type           string
	Options        []string
	MinResponses   int
	TimeoutSeconds int
	Audience       []string
	AgentID        string
}

// CreateQuestionOutput is the acknowledgement returned on creation.
type CreateQuestionOutput struct {
	QuestionID string
	Status     domain.Status
	PollURL    string
	ExpiresAt  time.Time
}

// QuestionView is the full polling read: the question with its effective
// status, every response so far, and the derived vote tally for
// multiple-choice questions.
type QuestionView struct {
	Question  domain.Question
	Responses []domain.Response
	Summary   []OptionVotes
}

// NewAgentService creates the agent-facing service. params may be nil, which
// disables quota enforcement.
func NewAgentService(store QuestionStore, params ParamGetter, paramPrefix string) (*AgentService, error) {
	if store == nil {
		return nil, errors.New("usecase: question store must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if params != nil && paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	return &AgentService{
		store:       store,
		params:      params,
		paramPrefix: paramPrefix,
		now:         time.Now,
	}, nil
}

var newQuestionID = ids.NewQuestionID

// CreateQuestion validates the submission, enforces the agent quota, and
// persists a new OPEN question.
func (s *AgentService) CreateQuestion(ctx context.Context, in CreateQuestionInput) (CreateQuestionOutput, error) {
	if in.Prompt == "" {
		return CreateQuestionOutput{}, requiredField("prompt", "prompt is required")
	}
	if utf8.RuneCountInString(in.Prompt) > domain.MaxPromptLength {
		return CreateQuestionOutput{}, validationError(
			fmt.Sprintf("prompt must be at most %d characters", domain.MaxPromptLength),
			map[string]any{"field": "prompt", "constraint": "length", "max": domain.MaxPromptLength},
		)
	}

	qType := domain.QuestionType(in.Type)
	if qType != domain.TypeText && qType != domain.TypeMultipleChoice {
		return CreateQuestionOutput{}, validationError(
			"type must be 'text' or 'multiple_choice'",
			map[string]any{"field": "type", "constraint": "enum", "allowed": []string{string(domain.TypeText), string(domain.TypeMultipleChoice)}},
		)
	}

	options := in.Options
	if qType == domain.TypeMultipleChoice {
		if len(options) == 0 {
			return CreateQuestionOutput{}, requiredField("options", "options is required for multiple_choice questions")
		}
		if len(options) < domain.MinOptions || len(options) > domain.MaxOptions {
			return CreateQuestionOutput{}, validationError(
				fmt.Sprintf("options must have %d-%d items", domain.MinOptions, domain.MaxOptions),
				map[string]any{"field": "options", "constraint": "length", "min": domain.MinOptions, "max": domain.MaxOptions},
			)
		}
	} else {
		// Text questions carry no options even if the caller sent some.
		options = nil
	}

	if in.MinResponses < 1 || in.MinResponses > domain.MaxMinResponses {
		return CreateQuestionOutput{}, rangeField("min_responses",
			fmt.Sprintf("min_responses must be between 1 and %d", domain.MaxMinResponses),
			1, domain.MaxMinResponses)
	}
	if in.TimeoutSeconds < domain.MinTimeoutSeconds || in.TimeoutSeconds > domain.MaxTimeoutSeconds {
		return CreateQuestionOutput{}, rangeField("timeout_seconds",
			fmt.Sprintf("timeout_seconds must be between %d and %d", domain.MinTimeoutSeconds, domain.MaxTimeoutSeconds),
			domain.MinTimeoutSeconds, domain.MaxTimeoutSeconds)
	}

	if in.AgentID != "" {
		if err := s.checkQuota(ctx, in.AgentID); err != nil {
			return CreateQuestionOutput{}, err
		}
	}

	audience := in.Audience
	if len(audience) == 0 {
		audience = domain.DefaultAudience
	}

	now := s.now().UTC()
	q := domain.Question{
		QuestionID:   newQuestionID(),
		Prompt:       in.Prompt,
		Type:         qType,
		Options:      options,
		Status:       domain.StatusOpen,
		MinResponses: in.MinResponses,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(in.TimeoutSeconds) * time.Second),
		Audience:     audience,
		AgentID:      in.AgentID,
	}

	if err := s.store.PutQuestion(ctx, q); err != nil {
		return CreateQuestionOutput{}, newError(ErrorInternal, "failed to store question", err)
	}

	slog.Info("created question", "question_id", q.QuestionID, "type", q.Type, "min_responses", q.MinResponses)

	return CreateQuestionOutput{
		QuestionID: q.QuestionID,
		Status:     q.Status,
		PollURL:    "/agent/questions/" + q.QuestionID,
		ExpiresAt:  q.ExpiresAt,
	}, nil
}

// GetQuestion returns the question with its responses and, for multiple
// choice, the vote tally. The returned status has lazy expiry applied.
func (s *AgentService) GetQuestion(ctx context.Context, questionID string) (QuestionView, error) {
	if questionID == "" {
		return QuestionView{}, requiredField("question_id", "question_id is required")
	}

	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return QuestionView{}, newError(ErrorQuestionNotFound, "The requested question does not exist or has expired.", nil)
		}
		return QuestionView{}, newError(ErrorInternal, "failed to load question", err)
	}

	responses, err := s.store.ListResponses(ctx, questionID)
	if err != nil {
		return QuestionView{}, newError(ErrorInternal, "failed to load responses", err)
	}

	q.Status = q.EffectiveStatus(s.now())

	view := QuestionView{Question: q, Responses: responses}
	if q.Type == domain.TypeMultipleChoice {
		view.Summary = TallyVotes(q.Options, responses)
	}
	return view, nil
}

// checkQuota rejects creation when the agent already has the configured
// number of open questions.
func (s *AgentService) checkQuota(ctx context.Context, agentID string) error {
	limit := s.quotaLimit(ctx)
	if limit <= 0 {
		return nil
	}
	open, err := s.store.CountOpenForAgent(ctx, agentID)
	if err != nil {
		return newError(ErrorInternal, "failed to count open questions", err)
	}
	if open >= limit {
		return &Error{
			Code:    ErrorQuotaExceeded,
			Message: "Too many concurrent open questions; wait for some to close.",
			Details: map[string]any{"limit": limit, "open": open},
		}
	}
	return nil
}

// quotaLimit resolves the per-agent quota from parameter store once per
// process lifetime. An absent or unreadable parameter disables the check.
func (s *AgentService) quotaLimit(ctx context.Context) int {
	s.quotaMu.RLock()
	if s.quotaLoaded {
		defer s.quotaMu.RUnlock()
		return s.quota
	}
	s.quotaMu.RUnlock()

	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()
	if s.quotaLoaded {
		return s.quota
	}

	s.quota = 0
	if s.params != nil {
		raw, err := s.params.GetParameter(ctx, s.paramPrefix+"/config/agent_quota")
		switch {
		case errors.Is(err, paramstore.ErrParameterNotFound):
			// Missing parameter is the normal "no quota configured" case.
			slog.Info("agent quota parameter not set, quota disabled")
		case err != nil:
			slog.Warn("agent quota parameter unavailable, quota disabled", "err", err)
		default:
			if n, convErr := strconv.Atoi(strings.TrimSpace(raw)); convErr != nil {
				slog.Warn("agent quota parameter malformed, quota disabled", "value", raw)
			} else {
				s.quota = n
			}
		}
	}
	s.quotaLoaded = true
	return s.quota
}
