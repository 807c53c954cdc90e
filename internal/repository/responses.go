package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dx-tooling/ask-a-human/internal/domain"
)

// ApplyResponse appends a response and advances its question's count and
// status in one transaction. The question update is a compare-and-swap on
// the count the caller read, so two concurrent accepts cannot both act on
// the same count: the loser's transaction cancels and surfaces as
// ErrConflict. Every status transition changes the count, so the count
// condition alone serializes accepts.
//
// closedAt is written only when non-zero, i.e. on the transition that
// actually closes the question; later accepts that race past the threshold
// leave it untouched.
func (c *Client) ApplyResponse(ctx context.Context, resp domain.Response, expectedCount int, newStatus domain.Status, closedAt time.Time) error {
	if resp.QuestionID == "" || resp.ResponseID == "" {
		return errors.New("repository: ApplyResponse: question_id and response_id are required")
	}

	update := "SET current_responses = :count, #status = :new_status"
	values := map[string]types.AttributeValue{
		":count":      numVal(expectedCount + 1),
		":new_status": strVal(string(newStatus)),
		":expected":   numVal(expectedCount),
	}
	if !closedAt.IsZero() {
		update += ", closed_at = :closed_at"
		values[":closed_at"] = timeVal(closedAt)
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.responsesTable),
					Item:                responseItem(resp),
					ConditionExpression: aws.String("attribute_not_exists(question_id) AND attribute_not_exists(response_id)"),
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(c.questionsTable),
					Key:                 map[string]types.AttributeValue{"question_id": strVal(resp.QuestionID)},
					UpdateExpression:    aws.String(update),
					ConditionExpression: aws.String("current_responses = :expected"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: values,
				},
			},
		},
	})
	if err != nil {
		if isConditionalCancellation(err) {
			return ErrConflict
		}
		return fmt.Errorf("repository: ApplyResponse: %w", err)
	}
	return nil
}

// isConditionalCancellation reports whether a transaction failed because a
// condition expression did not hold, as opposed to a transport or capacity
// error.
func isConditionalCancellation(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// ListResponses returns all responses recorded for a question.
func (c *Client) ListResponses(ctx context.Context, questionID string) ([]domain.Response, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.responsesTable),
		KeyConditionExpression: aws.String("question_id = :qid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qid": strVal(questionID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListResponses: %w", err)
	}

	responses := make([]domain.Response, 0, len(out.Items))
	for _, item := range out.Items {
		r, err := itemToResponse(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListResponses unmarshal: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, nil
}

// AnsweredQuestionIDs returns the set of questions the given fingerprint has
// already answered, via the ByFingerprint index.
func (c *Client) AnsweredQuestionIDs(ctx context.Context, fingerprintHash string) (map[string]struct{}, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.responsesTable),
		IndexName:              aws.String(indexByFingerprint),
		KeyConditionExpression: aws.String("fingerprint_hash = :fp"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fp": strVal(fingerprintHash),
		},
		ProjectionExpression: aws.String("question_id"),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: AnsweredQuestionIDs: %w", err)
	}

	answered := make(map[string]struct{}, len(out.Items))
	for _, item := range out.Items {
		qid, err := strAttr(item, "question_id")
		if err != nil {
			return nil, fmt.Errorf("repository: AnsweredQuestionIDs unmarshal: %w", err)
		}
		answered[qid] = struct{}{}
	}
	return answered, nil
}

func responseItem(r domain.Response) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"question_id": strVal(r.QuestionID),
		"response_id": strVal(r.ResponseID),
		"created_at":  timeVal(r.CreatedAt),
	}
	if r.Answer != "" {
		item["answer"] = strVal(r.Answer)
	}
	if r.SelectedOption != nil {
		item["selected_option"] = numVal(*r.SelectedOption)
	}
	if r.Confidence != nil {
		item["confidence"] = numVal(*r.Confidence)
	}
	if r.FingerprintHash != "" {
		item["fingerprint_hash"] = strVal(r.FingerprintHash)
	}
	return item
}

func itemToResponse(item map[string]types.AttributeValue) (domain.Response, error) {
	questionID, err := strAttr(item, "question_id")
	if err != nil {
		return domain.Response{}, err
	}
	responseID, err := strAttr(item, "response_id")
	if err != nil {
		return domain.Response{}, err
	}
	createdAt, err := timeAttr(item, "created_at")
	if err != nil {
		return domain.Response{}, err
	}
	selected, err := optIntAttr(item, "selected_option")
	if err != nil {
		return domain.Response{}, err
	}
	confidence, err := optIntAttr(item, "confidence")
	if err != nil {
		return domain.Response{}, err
	}

	return domain.Response{
		ResponseID:      responseID,
		QuestionID:      questionID,
		Answer:          optStrAttr(item, "answer"),
		SelectedOption:  selected,
		Confidence:      confidence,
		FingerprintHash: optStrAttr(item, "fingerprint_hash"),
		CreatedAt:       createdAt,
	}, nil
}
