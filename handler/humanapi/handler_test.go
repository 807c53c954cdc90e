package humanapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/dx-tooling/ask-a-human/internal/domain"
	"github.com/dx-tooling/ask-a-human/internal/usecase"
)

type stubResponses struct {
	summaries       []usecase.QuestionSummary
	listErr         error
	listLimit       *int
	listFingerprint string

	detail      usecase.QuestionDetail
	detailErr   error
	detailID    string
	detailPrint string

	submitOut usecase.SubmitResponseOutput
	submitErr error
	submitIn  usecase.SubmitResponseInput
}

func (s *stubResponses) ListQuestions(_ context.Context, limit *int, fingerprintHash string) ([]usecase.QuestionSummary, error) {
	s.listLimit = limit
	s.listFingerprint = fingerprintHash
	return s.summaries, s.listErr
}

func (s *stubResponses) GetQuestionDetail(_ context.Context, questionID, fingerprintHash string) (usecase.QuestionDetail, error) {
	s.detailID = questionID
	s.detailPrint = fingerprintHash
	return s.detail, s.detailErr
}

func (s *stubResponses) SubmitResponse(_ context.Context, in usecase.SubmitResponseInput) (usecase.SubmitResponseOutput, error) {
	s.submitIn = in
	return s.submitOut, s.submitErr
}

func newTestHandler(t *testing.T, stub *stubResponses) *Handler {
	t.Helper()
	h, err := New(stub)
	require.NoError(t, err)
	return h
}

func listEvent(query map[string]string, headers map[string]string) events.APIGatewayV2HTTPRequest {
	e := events.APIGatewayV2HTTPRequest{QueryStringParameters: query, Headers: headers}
	e.RequestContext.HTTP.Method = http.MethodGet
	e.RequestContext.HTTP.Path = "/human/questions"
	return e
}

func detailEvent(questionID string, headers map[string]string) events.APIGatewayV2HTTPRequest {
	e := events.APIGatewayV2HTTPRequest{Headers: headers}
	e.RequestContext.HTTP.Method = http.MethodGet
	e.RequestContext.HTTP.Path = "/human/questions/" + questionID
	if questionID != "" {
		e.PathParameters = map[string]string{"question_id": questionID}
	}
	return e
}

func submitEvent(body string, headers map[string]string) events.APIGatewayV2HTTPRequest {
	e := events.APIGatewayV2HTTPRequest{Body: body, Headers: headers}
	e.RequestContext.HTTP.Method = http.MethodPost
	e.RequestContext.HTTP.Path = "/human/responses"
	return e
}

func TestNew_NilService(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestHandle_UnsupportedMethod(t *testing.T) {
	h := newTestHandler(t, &stubResponses{})
	e := events.APIGatewayV2HTTPRequest{}
	e.RequestContext.HTTP.Method = http.MethodPut

	resp, err := h.Handle(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListQuestions(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stub := &stubResponses{summaries: []usecase.QuestionSummary{{
		QuestionID:      "q_abc123def456",
		Prompt:          "Which headline?",
		Type:            domain.TypeMultipleChoice,
		Options:         []string{"A", "B"},
		ResponsesNeeded: 3,
		CreatedAt:       created,
		Audience:        []string{"general"},
	}}}
	h := newTestHandler(t, stub)

	resp, err := h.Handle(context.Background(), listEvent(
		map[string]string{"limit": "7"},
		map[string]string{"X-Fingerprint": "fp-1"},
	))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, stub.listLimit)
	require.Equal(t, 7, *stub.listLimit)
	require.Equal(t, "fp-1", stub.listFingerprint)

	require.JSONEq(t, `{"questions":[{
		"question_id": "q_abc123def456",
		"prompt": "Which headline?",
		"type": "multiple_choice",
		"responses_needed": 3,
		"created_at": "2026-03-01T12:00:00Z",
		"options": ["A", "B"],
		"audience": ["general"]
	}]}`, resp.Body)
}

func TestListQuestions_MalformedLimitFallsBack(t *testing.T) {
	stub := &stubResponses{}
	h := newTestHandler(t, stub)

	resp, err := h.Handle(context.Background(), listEvent(map[string]string{"limit": "lots"}, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, stub.listLimit, "service applies the default")
	require.JSONEq(t, `{"questions":[]}`, resp.Body)
}

// A supplied limit reaches the service untouched even when it is zero, so
// the service can clamp it instead of mistaking it for an absent parameter.
func TestListQuestions_ExplicitZeroLimitPassedThrough(t *testing.T) {
	stub := &stubResponses{}
	h := newTestHandler(t, stub)

	resp, err := h.Handle(context.Background(), listEvent(map[string]string{"limit": "0"}, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, stub.listLimit)
	require.Zero(t, *stub.listLimit)
}

func TestGetQuestion(t *testing.T) {
	stub := &stubResponses{detail: usecase.QuestionDetail{
		QuestionID:      "q_abc123def456",
		Prompt:          "Which headline?",
		Type:            domain.TypeText,
		ResponsesNeeded: 5,
		CanAnswer:       true,
	}}
	h := newTestHandler(t, stub)

	resp, err := h.Handle(context.Background(), detailEvent("q_abc123def456", map[string]string{"x-fingerprint": "fp-1"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "q_abc123def456", stub.detailID)
	require.Equal(t, "fp-1", stub.detailPrint)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	require.Equal(t, true, body["can_answer"])
	require.NotContains(t, body, "options")
}

func TestGetQuestion_Closed(t *testing.T) {
	stub := &stubResponses{detailErr: &usecase.Error{Code: usecase.ErrorQuestionClosed, Message: "no longer accepting"}}
	h := newTestHandler(t, stub)

	resp, err := h.Handle(context.Background(), detailEvent("q_abc123def456", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusGone, resp.StatusCode)
	require.Contains(t, resp.Body, "QUESTION_CLOSED")
}

func TestGetQuestion_MissingPathParameter(t *testing.T) {
	h := newTestHandler(t, &stubResponses{})
	resp, err := h.Handle(context.Background(), detailEvent("", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitResponse(t *testing.T) {
	stub := &stubResponses{submitOut: usecase.SubmitResponseOutput{ResponseID: "r_000000000001", PointsEarned: 10}}
	h := newTestHandler(t, stub)

	resp, err := h.Handle(context.Background(), submitEvent(
		`{"question_id":"q_abc123def456","selected_option":1,"confidence":4}`,
		map[string]string{"X-Fingerprint": "fp-1"},
	))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.JSONEq(t, `{"response_id":"r_000000000001","points_earned":10}`, resp.Body)

	require.Equal(t, "q_abc123def456", stub.submitIn.QuestionID)
	require.Equal(t, 1, *stub.submitIn.SelectedOption)
	require.Equal(t, 4, *stub.submitIn.Confidence)
	require.Equal(t, "fp-1", stub.submitIn.FingerprintHash)
}

func TestSubmitResponse_InvalidJSON(t *testing.T) {
	h := newTestHandler(t, &stubResponses{})
	resp, err := h.Handle(context.Background(), submitEvent(`{`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, resp.Body, "Invalid JSON")
}

func TestSubmitResponse_Closed(t *testing.T) {
	stub := &stubResponses{submitErr: &usecase.Error{Code: usecase.ErrorQuestionClosed, Message: "no longer accepting"}}
	h := newTestHandler(t, stub)

	resp, err := h.Handle(context.Background(), submitEvent(`{"question_id":"q_abc123def456","answer":"a"}`, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusGone, resp.StatusCode)
}
