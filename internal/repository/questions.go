package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dx-tooling/ask-a-human/internal/domain"
)

// PutQuestion persists a newly created question. The condition guards
// against identifier collisions; questions are never overwritten.
func (c *Client) PutQuestion(ctx context.Context, q domain.Question) error {
	if q.QuestionID == "" {
		return fmt.Errorf("repository: PutQuestion: question_id is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.questionsTable),
		Item:                questionItem(q),
		ConditionExpression: aws.String("attribute_not_exists(question_id)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutQuestion: %w", err)
	}
	return nil
}

// GetQuestion fetches a question by ID with a consistent read.
// Returns ErrQuestionNotFound if no item exists.
func (c *Client) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.questionsTable),
		Key: map[string]types.AttributeValue{
			"question_id": strVal(questionID),
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Question{}, fmt.Errorf("repository: GetQuestion: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Question{}, ErrQuestionNotFound
	}
	q, err := itemToQuestion(out.Item)
	if err != nil {
		return domain.Question{}, fmt.Errorf("repository: GetQuestion unmarshal: %w", err)
	}
	return q, nil
}

// ListOpenQuestions returns up to limit questions with OPEN status followed
// by PARTIAL, each group most-recently-created first, using the ByStatus
// index.
func (c *Client) ListOpenQuestions(ctx context.Context, limit int) ([]domain.Question, error) {
	questions, err := c.queryByStatus(ctx, domain.StatusOpen, limit)
	if err != nil {
		return nil, err
	}
	remaining := limit - len(questions)
	if remaining > 0 {
		partial, err := c.queryByStatus(ctx, domain.StatusPartial, remaining)
		if err != nil {
			return nil, err
		}
		questions = append(questions, partial...)
	}
	return questions, nil
}

func (c *Client) queryByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Question, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.questionsTable),
		IndexName:              aws.String(indexByStatus),
		KeyConditionExpression: aws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": strVal(string(status)),
		},
		// Newest first within each status.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListOpenQuestions query %s: %w", status, err)
	}

	questions := make([]domain.Question, 0, len(out.Items))
	for _, item := range out.Items {
		q, err := itemToQuestion(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListOpenQuestions unmarshal: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// CountOpenForAgent counts the agent's questions still in OPEN or PARTIAL
// status, via the ByAgent index.
func (c *Client) CountOpenForAgent(ctx context.Context, agentID string) (int, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.questionsTable),
		IndexName:              aws.String(indexByAgent),
		KeyConditionExpression: aws.String("agent_id = :agent"),
		FilterExpression:       aws.String("#status = :open OR #status = :partial"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":agent":   strVal(agentID),
			":open":    strVal(string(domain.StatusOpen)),
			":partial": strVal(string(domain.StatusPartial)),
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("repository: CountOpenForAgent: %w", err)
	}
	return int(out.Count), nil
}

func questionItem(q domain.Question) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"question_id":       strVal(q.QuestionID),
		"prompt":            strVal(q.Prompt),
		"type":              strVal(string(q.Type)),
		"status":            strVal(string(q.Status)),
		"min_responses":     numVal(q.MinResponses),
		"current_responses": numVal(q.CurrentResponses),
		"created_at":        timeVal(q.CreatedAt),
		"expires_at":        timeVal(q.ExpiresAt),
	}
	if len(q.Options) > 0 {
		item["options"] = strListVal(q.Options)
	}
	if len(q.Audience) > 0 {
		item["audience"] = strListVal(q.Audience)
	}
	if q.AgentID != "" {
		item["agent_id"] = strVal(q.AgentID)
	}
	if !q.ClosedAt.IsZero() {
		item["closed_at"] = timeVal(q.ClosedAt)
	}
	return item
}

func itemToQuestion(item map[string]types.AttributeValue) (domain.Question, error) {
	questionID, err := strAttr(item, "question_id")
	if err != nil {
		return domain.Question{}, err
	}
	prompt, err := strAttr(item, "prompt")
	if err != nil {
		return domain.Question{}, err
	}
	qType, err := strAttr(item, "type")
	if err != nil {
		return domain.Question{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.Question{}, err
	}
	minResponses, err := intAttr(item, "min_responses")
	if err != nil {
		return domain.Question{}, err
	}
	current, err := optIntAttr(item, "current_responses")
	if err != nil {
		return domain.Question{}, err
	}
	createdAt, err := timeAttr(item, "created_at")
	if err != nil {
		return domain.Question{}, err
	}
	expiresAt, err := timeAttr(item, "expires_at")
	if err != nil {
		return domain.Question{}, err
	}
	closedAt, err := optTimeAttr(item, "closed_at")
	if err != nil {
		return domain.Question{}, err
	}
	options, err := strSliceAttr(item, "options")
	if err != nil {
		return domain.Question{}, err
	}
	audience, err := strSliceAttr(item, "audience")
	if err != nil {
		return domain.Question{}, err
	}

	q := domain.Question{
		QuestionID:   questionID,
		Prompt:       prompt,
		Type:         domain.QuestionType(qType),
		Options:      options,
		Status:       domain.Status(status),
		MinResponses: minResponses,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
		ClosedAt:     closedAt,
		Audience:     audience,
		AgentID:      optStrAttr(item, "agent_id"),
	}
	if current != nil {
		q.CurrentResponses = *current
	}
	return q, nil
}
