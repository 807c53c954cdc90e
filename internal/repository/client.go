// Package repository persists questions and responses in DynamoDB.
//
// Two tables back the service: a questions table keyed by question_id with
// ByStatus and ByAgent secondary indexes, and a responses table keyed by
// question_id + response_id with a ByFingerprint secondary index.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	indexByStatus      = "ByStatus"
	indexByAgent       = "ByAgent"
	indexByFingerprint = "ByFingerprint"
)

var (
	// ErrQuestionNotFound is returned when a question_id has no item.
	ErrQuestionNotFound = errors.New("repository: question not found")

	// ErrConflict is returned when the conditional accept-a-response write
	// loses to a concurrent writer. Callers re-read and retry.
	ErrConflict = errors.New("repository: conditional update conflict")
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps the DynamoDB tables holding question and response state.
type Client struct {
	api            dynamodbAPI
	questionsTable string
	responsesTable string
}

// New creates a repository Client over the given tables.
func New(api dynamodbAPI, questionsTable, responsesTable string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(questionsTable) == "" {
		return nil, errors.New("repository: questions table name must not be empty")
	}
	if strings.TrimSpace(responsesTable) == "" {
		return nil, errors.New("repository: responses table name must not be empty")
	}
	return &Client{api: api, questionsTable: questionsTable, responsesTable: responsesTable}, nil
}
