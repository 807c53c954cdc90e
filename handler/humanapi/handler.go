// Package humanapi handles the human-facing API Gateway routes:
//
//	GET  /human/questions               list open questions
//	GET  /human/questions/{question_id} fetch one question for answering
//	POST /human/responses               submit an answer
package humanapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dx-tooling/ask-a-human/internal/apiresp"
	"github.com/dx-tooling/ask-a-human/internal/usecase"
)

// ResponseService is the slice of the human service the handler needs.
type ResponseService interface {
	ListQuestions(ctx context.Context, limit *int, fingerprintHash string) ([]usecase.QuestionSummary, error)
	GetQuestionDetail(ctx context.Context, questionID, fingerprintHash string) (usecase.QuestionDetail, error)
	SubmitResponse(ctx context.Context, in usecase.SubmitResponseInput) (usecase.SubmitResponseOutput, error)
}

// Handler routes human API Gateway events.
type Handler struct {
	responses ResponseService
}

// New creates the human API handler.
func New(responses ResponseService) (*Handler, error) {
	if responses == nil {
		return nil, errors.New("humanapi: response service must not be nil")
	}
	return &Handler{responses: responses}, nil
}

// Handle dispatches on the HTTP method and path of the incoming event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := event.RequestContext.HTTP.Method
	switch {
	case method == http.MethodGet && strings.Contains(event.RequestContext.HTTP.Path, "/questions/"):
		return h.getQuestion(ctx, event), nil
	case method == http.MethodGet:
		return h.listQuestions(ctx, event), nil
	case method == http.MethodPost:
		return h.submitResponse(ctx, event), nil
	default:
		return apiresp.ValidationError(fmt.Sprintf("Unsupported method: %s", method), nil), nil
	}
}

type listItem struct {
	QuestionID      string   `json:"question_id"`
	Prompt          string   `json:"prompt"`
	Type            string   `json:"type"`
	ResponsesNeeded int      `json:"responses_needed"`
	CreatedAt       string   `json:"created_at"`
	Options         []string `json:"options,omitempty"`
	Audience        []string `json:"audience,omitempty"`
}

func (h *Handler) listQuestions(ctx context.Context, event events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	// Absent or malformed limit means the service default; a supplied value
	// is passed through for the service to clamp.
	var limit *int
	if raw, ok := event.QueryStringParameters["limit"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = &n
		}
	}

	summaries, err := h.responses.ListQuestions(ctx, limit, header(event, "x-fingerprint"))
	if err != nil {
		return apiresp.FromError(err)
	}

	items := make([]listItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, listItem{
			QuestionID:      s.QuestionID,
			Prompt:          s.Prompt,
			Type:            string(s.Type),
			ResponsesNeeded: s.ResponsesNeeded,
			CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
			Options:         s.Options,
			Audience:        s.Audience,
		})
	}
	return apiresp.Success(map[string]any{"questions": items})
}

type detailResponse struct {
	QuestionID      string   `json:"question_id"`
	Prompt          string   `json:"prompt"`
	Type            string   `json:"type"`
	ResponsesNeeded int      `json:"responses_needed"`
	CanAnswer       bool     `json:"can_answer"`
	Options         []string `json:"options,omitempty"`
	Audience        []string `json:"audience,omitempty"`
}

func (h *Handler) getQuestion(ctx context.Context, event events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	questionID := event.PathParameters["question_id"]
	if questionID == "" {
		return apiresp.ValidationError("question_id is required in path", nil)
	}

	detail, err := h.responses.GetQuestionDetail(ctx, questionID, header(event, "x-fingerprint"))
	if err != nil {
		return apiresp.FromError(err)
	}

	return apiresp.Success(detailResponse{
		QuestionID:      detail.QuestionID,
		Prompt:          detail.Prompt,
		Type:            string(detail.Type),
		ResponsesNeeded: detail.ResponsesNeeded,
		CanAnswer:       detail.CanAnswer,
		Options:         detail.Options,
		Audience:        detail.Audience,
	})
}

type submitRequest struct {
	QuestionID     string `json:"question_id"`
	Answer         string `json:"answer"`
	SelectedOption *int   `json:"selected_option"`
	Confidence     *int   `json:"confidence"`
}

type submitResponse struct {
	ResponseID   string `json:"response_id"`
	PointsEarned int    `json:"points_earned"`
}

func (h *Handler) submitResponse(ctx context.Context, event events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	var req submitRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return apiresp.ValidationError("Invalid JSON in request body", nil)
	}

	out, err := h.responses.SubmitResponse(ctx, usecase.SubmitResponseInput{
		QuestionID:      req.QuestionID,
		Answer:          req.Answer,
		SelectedOption:  req.SelectedOption,
		Confidence:      req.Confidence,
		FingerprintHash: header(event, "x-fingerprint"),
	})
	if err != nil {
		return apiresp.FromError(err)
	}

	return apiresp.Created(submitResponse{ResponseID: out.ResponseID, PointsEarned: out.PointsEarned})
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
