// Package agentapi handles the agent-facing API Gateway routes:
//
//	POST /agent/questions               create a question
//	GET  /agent/questions/{question_id} poll for responses
package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dx-tooling/ask-a-human/internal/apiresp"
	"github.com/dx-tooling/ask-a-human/internal/domain"
	"github.com/dx-tooling/ask-a-human/internal/usecase"
)

// QuestionService is the slice of the agent service the handler needs.
type QuestionService interface {
	CreateQuestion(ctx context.Context, in usecase.CreateQuestionInput) (usecase.CreateQuestionOutput, error)
	GetQuestion(ctx context.Context, questionID string) (usecase.QuestionView, error)
}

// Handler routes agent API Gateway events.
type Handler struct {
	questions QuestionService
}

// New creates the agent API handler.
func New(questions QuestionService) (*Handler, error) {
	if questions == nil {
		return nil, errors.New("agentapi: question service must not be nil")
	}
	return &Handler{questions: questions}, nil
}

// Handle dispatches on the HTTP method of the incoming event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	switch event.RequestContext.HTTP.Method {
	case http.MethodPost:
		return h.createQuestion(ctx, event), nil
	case http.MethodGet:
		return h.getQuestion(ctx, event), nil
	default:
		return apiresp.ValidationError(fmt.Sprintf("Unsupported method: %s", event.RequestContext.HTTP.Method), nil), nil
	}
}

type createQuestionRequest struct {
	Prompt         string   `json:"prompt"`
	Type           string   `json:"type"`
	Options        []string `json:"options"`
	MinResponses   *int     `json:"min_responses"`
	TimeoutSeconds *int     `json:"timeout_seconds"`
	Audience       []string `json:"audience"`
}

type createQuestionResponse struct {
	QuestionID string `json:"question_id"`
	Status     string `json:"status"`
	PollURL    string `json:"poll_url"`
	ExpiresAt  string `json:"expires_at"`
}

func (h *Handler) createQuestion(ctx context.Context, event events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	var req createQuestionRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return apiresp.ValidationError("Invalid JSON in request body", nil)
	}

	// Absent optional fields take the service defaults; explicit zero values
	// stay as sent and fail range validation.
	minResponses := domain.DefaultMinResponses
	if req.MinResponses != nil {
		minResponses = *req.MinResponses
	}
	timeoutSeconds := domain.DefaultTimeoutSeconds
	if req.TimeoutSeconds != nil {
		timeoutSeconds = *req.TimeoutSeconds
	}

	out, err := h.questions.CreateQuestion(ctx, usecase.CreateQuestionInput{
		Prompt:         req.Prompt,
		Type:           req.Type,
		Options:        req.Options,
		MinResponses:   minResponses,
		TimeoutSeconds: timeoutSeconds,
		Audience:       req.Audience,
		AgentID:        header(event, "x-agent-id"),
	})
	if err != nil {
		return apiresp.FromError(err)
	}

	return apiresp.Created(createQuestionResponse{
		QuestionID: out.QuestionID,
		Status:     string(out.Status),
		PollURL:    out.PollURL,
		ExpiresAt:  out.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

type pollResponseItem struct {
	Answer         string `json:"answer,omitempty"`
	SelectedOption *int   `json:"selected_option,omitempty"`
	Confidence     *int   `json:"confidence,omitempty"`
}

type pollQuestionResponse struct {
	QuestionID        string             `json:"question_id"`
	Status            string             `json:"status"`
	Prompt            string             `json:"prompt"`
	Type              string             `json:"type"`
	RequiredResponses int                `json:"required_responses"`
	CurrentResponses  int                `json:"current_responses"`
	ExpiresAt         string             `json:"expires_at"`
	ClosedAt          string             `json:"closed_at,omitempty"`
	Options           []string           `json:"options,omitempty"`
	Responses         []pollResponseItem `json:"responses"`
	Summary           map[string]int     `json:"summary,omitempty"`
}

func (h *Handler) getQuestion(ctx context.Context, event events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	questionID := event.PathParameters["question_id"]
	if questionID == "" {
		return apiresp.ValidationError("question_id is required in path", nil)
	}

	view, err := h.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return apiresp.FromError(err)
	}

	q := view.Question
	body := pollQuestionResponse{
		QuestionID:        q.QuestionID,
		Status:            string(q.Status),
		Prompt:            q.Prompt,
		Type:              string(q.Type),
		RequiredResponses: q.MinResponses,
		CurrentResponses:  q.CurrentResponses,
		ExpiresAt:         q.ExpiresAt.UTC().Format(time.RFC3339),
		Options:           q.Options,
		Responses:         make([]pollResponseItem, 0, len(view.Responses)),
		Summary:           usecase.SummaryMap(view.Summary),
	}
	if !q.ClosedAt.IsZero() {
		body.ClosedAt = q.ClosedAt.UTC().Format(time.RFC3339)
	}
	// Internal fields (response IDs, fingerprints) stay off the agent wire.
	for _, r := range view.Responses {
		body.Responses = append(body.Responses, pollResponseItem{
			Answer:         r.Answer,
			SelectedOption: r.SelectedOption,
			Confidence:     r.Confidence,
		})
	}

	return apiresp.Success(body)
}

// header returns the named header regardless of the casing API Gateway
// delivered it with.
func header(event events.APIGatewayV2HTTPRequest, name string) string {
	for k, v := range event.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
