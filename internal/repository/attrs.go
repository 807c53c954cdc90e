package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Timestamps are stored as RFC 3339 strings so they sort lexicographically
// in range queries.
const timeFormat = time.RFC3339Nano

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func optStrAttr(item map[string]types.AttributeValue, key string) string {
	s, _ := strAttr(item, key)
	return s
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

// optIntAttr returns a pointer so callers can distinguish absent from zero.
func optIntAttr(item map[string]types.AttributeValue, key string) (*int, error) {
	if _, ok := item[key]; !ok {
		return nil, nil
	}
	n, err := intAttr(item, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q as time: %w", key, err)
	}
	return ts, nil
}

func optTimeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	if _, ok := item[key]; !ok {
		return time.Time{}, nil
	}
	return timeAttr(item, key)
}

func strSliceAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return nil, nil
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	out := make([]string, 0, len(l.Value))
	for _, el := range l.Value {
		s, ok := el.(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("repository: attribute %q has a non-string element", key)
		}
		out = append(out, s.Value)
	}
	return out, nil
}

func strVal(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

func numVal(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func timeVal(t time.Time) types.AttributeValue {
	return strVal(t.UTC().Format(timeFormat))
}

func strListVal(ss []string) types.AttributeValue {
	els := make([]types.AttributeValue, 0, len(ss))
	for _, s := range ss {
		els = append(els, strVal(s))
	}
	return &types.AttributeValueMemberL{Value: els}
}
