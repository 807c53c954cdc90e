// Package apiresp builds API Gateway responses in the service's standard
// shape: bare JSON bodies on success, an {"error": {code, message, details}}
// envelope on failure.
package apiresp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dx-tooling/ask-a-human/internal/usecase"
)

type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON marshals body into a response with the given status.
func JSON(status int, body any) events.APIGatewayV2HTTPResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		slog.Error("failed to marshal response body", "err", err)
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":{"code":"SERVER_ERROR","message":"An internal error occurred"}}`,
		}
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(encoded),
	}
}

// Success returns a 200 response.
func Success(body any) events.APIGatewayV2HTTPResponse {
	return JSON(http.StatusOK, body)
}

// Created returns a 201 response.
func Created(body any) events.APIGatewayV2HTTPResponse {
	return JSON(http.StatusCreated, body)
}

// Error returns an error-envelope response with the given status.
func Error(status int, code, message string, details map[string]any) events.APIGatewayV2HTTPResponse {
	return JSON(status, errorEnvelope{Error: errorDetail{Code: code, Message: message, Details: details}})
}

// ValidationError returns a 400 VALIDATION_ERROR response.
func ValidationError(message string, details map[string]any) events.APIGatewayV2HTTPResponse {
	return Error(http.StatusBadRequest, string(usecase.ErrorValidation), message, details)
}

// ServerError returns a generic 500 response. The underlying error is logged,
// never surfaced on the wire.
func ServerError(err error) events.APIGatewayV2HTTPResponse {
	slog.Error("request failed", "err", err)
	return Error(http.StatusInternalServerError, string(usecase.ErrorInternal), "An internal error occurred", nil)
}

// FromError maps a service error to its wire status and envelope.
func FromError(err error) events.APIGatewayV2HTTPResponse {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return ServerError(err)
	}
	status, ok := statusByCode[ue.Code]
	if !ok || status == http.StatusInternalServerError {
		return ServerError(err)
	}
	return Error(status, string(ue.Code), ue.Message, ue.Details)
}

var statusByCode = map[usecase.ErrorCode]int{
	usecase.ErrorValidation:       http.StatusBadRequest,
	usecase.ErrorQuestionNotFound: http.StatusNotFound,
	usecase.ErrorQuestionClosed:   http.StatusGone,
	usecase.ErrorQuotaExceeded:    http.StatusForbidden,
	usecase.ErrorInternal:         http.StatusInternalServerError,
}
