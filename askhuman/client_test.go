package askhuman

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitQuestion(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/agent/questions", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "agent-1", r.Header.Get("X-Agent-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"question_id": "q_abc123def456",
			"status": "OPEN",
			"poll_url": "/agent/questions/q_abc123def456",
			"expires_at": "2026-03-01T13:00:00Z"
		}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithAgentID("agent-1"))
	sub, err := client.SubmitQuestion(context.Background(), SubmitQuestionInput{
		Prompt:         "Which headline reads better?",
		Type:           TypeMultipleChoice,
		Options:        []string{"A", "B"},
		MinResponses:   10,
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)

	require.Equal(t, "q_abc123def456", sub.QuestionID)
	require.Equal(t, StatusOpen, sub.Status)
	require.Equal(t, "/agent/questions/q_abc123def456", sub.PollURL)
	require.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), sub.ExpiresAt)

	require.Equal(t, float64(10), gotBody["min_responses"])
	require.Equal(t, "idem-1", gotBody["idempotency_key"])
	require.NotContains(t, gotBody, "timeout_seconds", "unset fields take the server default")
}

func TestSubmitQuestion_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"VALIDATION_ERROR","message":"prompt is required","details":{"field":"prompt"}}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.SubmitQuestion(context.Background(), SubmitQuestionInput{Type: TypeText})
	require.True(t, IsValidation(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	require.Equal(t, "prompt is required", apiErr.Message)
	require.Equal(t, "prompt", apiErr.Details["field"])
}

func TestGetQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agent/questions/q_abc123def456", r.URL.Path)
		w.Write([]byte(`{
			"question_id": "q_abc123def456",
			"status": "CLOSED",
			"prompt": "Which headline reads better?",
			"type": "multiple_choice",
			"options": ["A", "B"],
			"required_responses": 3,
			"current_responses": 3,
			"expires_at": "2026-03-01T13:00:00Z",
			"closed_at": "2026-03-01T12:30:00Z",
			"responses": [
				{"selected_option": 0, "confidence": 4},
				{"selected_option": 0},
				{"selected_option": 1}
			],
			"summary": {"A": 2, "B": 1}
		}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	state, err := client.GetQuestion(context.Background(), "q_abc123def456")
	require.NoError(t, err)

	require.Equal(t, StatusClosed, state.Status)
	require.True(t, state.Status.Terminal())
	require.Equal(t, 3, state.CurrentResponses)
	require.Equal(t, time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC), state.ClosedAt)
	require.Len(t, state.Responses, 3)
	require.Equal(t, 4, *state.Responses[0].Confidence)

	winner, votes, ok := state.Winner()
	require.True(t, ok)
	require.Equal(t, "A", winner)
	require.Equal(t, 2, votes)
}

func TestGetQuestion_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"QUESTION_NOT_FOUND","message":"The requested question does not exist or has expired."}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetQuestion(context.Background(), "q_missing000000")
	require.True(t, IsNotFound(err))
}

func TestGetQuestion_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"slow down"}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetQuestion(context.Background(), "q_abc123def456")
	require.True(t, IsRateLimited(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 7*time.Second, apiErr.RetryAfter)
}

func TestGetQuestion_ServerErrorWithOpaqueBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetQuestion(context.Background(), "q_abc123def456")
	require.True(t, IsServerError(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "HTTP 502", apiErr.Message)
	require.Empty(t, apiErr.Code)
}

func TestGetQuestion_EmptyID(t *testing.T) {
	client := NewClient(WithBaseURL("http://example.invalid"))
	_, err := client.GetQuestion(context.Background(), "")
	require.Error(t, err)
}

func TestNewClient_EnvironmentFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "env-agent", r.Header.Get("X-Agent-Id"))
		w.Write([]byte(`{"question_id":"q_abc123def456","status":"OPEN","prompt":"p","type":"text","required_responses":5,"current_responses":0,"expires_at":"2026-03-01T13:00:00Z","responses":[]}`))
	}))
	defer srv.Close()

	t.Setenv(envBaseURL, srv.URL+"/")
	t.Setenv(envAgentID, "env-agent")

	client := NewClient()
	_, err := client.GetQuestion(context.Background(), "q_abc123def456")
	require.NoError(t, err)
}
