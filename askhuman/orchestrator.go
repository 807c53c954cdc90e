package askhuman

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultPollInterval      = 30 * time.Second
	DefaultMaxBackoff        = 5 * time.Minute
	DefaultBackoffMultiplier = 1.5
	DefaultAwaitTimeout      = time.Hour

	// Mirrors the server-side min_responses default applied to submissions
	// that leave the field unset.
	defaultMinResponses = 5
)

// QuestionAPI is the slice of Client the orchestrator needs.
type QuestionAPI interface {
	SubmitQuestion(ctx context.Context, in SubmitQuestionInput) (Submission, error)
	GetQuestion(ctx context.Context, questionID string) (QuestionState, error)
}

// Orchestrator layers polling, deadlines, and exponential backoff over the
// low-level client for blocking ask-then-wait workflows.
type Orchestrator struct {
	client       QuestionAPI
	pollInterval time.Duration
	maxBackoff   time.Duration
	multiplier   float64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPollInterval sets the base interval between polls.
func WithPollInterval(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.pollInterval = d }
}

// WithMaxBackoff caps the interval the backoff can grow to.
func WithMaxBackoff(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.maxBackoff = d }
}

// WithBackoffMultiplier sets the per-poll interval growth factor.
func WithBackoffMultiplier(m float64) OrchestratorOption {
	return func(o *Orchestrator) { o.multiplier = m }
}

// NewOrchestrator wraps an API client, usually a *Client.
func NewOrchestrator(client QuestionAPI, opts ...OrchestratorOption) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("askhuman: client must not be nil")
	}
	o := &Orchestrator{
		client:       client,
		pollInterval: DefaultPollInterval,
		maxBackoff:   DefaultMaxBackoff,
		multiplier:   DefaultBackoffMultiplier,
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.pollInterval <= 0 {
		o.pollInterval = DefaultPollInterval
	}
	if o.maxBackoff < o.pollInterval {
		o.maxBackoff = o.pollInterval
	}
	if o.multiplier < 1 {
		o.multiplier = 1
	}
	return o, nil
}

// Submit forwards to the client.
func (o *Orchestrator) Submit(ctx context.Context, in SubmitQuestionInput) (Submission, error) {
	return o.client.SubmitQuestion(ctx, in)
}

// PollOnce fetches the current state of each question without blocking.
func (o *Orchestrator) PollOnce(ctx context.Context, questionIDs []string) (map[string]QuestionState, error) {
	results := make(map[string]QuestionState, len(questionIDs))
	for _, id := range questionIDs {
		state, err := o.client.GetQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		results[id] = state
	}
	return results, nil
}

// AwaitResponses polls until every question is terminal or has gathered at
// least minResponses, or until timeout elapses, whichever is first. On
// timeout or context cancellation the states from the last completed poll
// are returned, so callers always see the freshest partial results.
//
// The interval between polls grows by the backoff multiplier up to the
// configured cap. A timeout shorter than the first interval still costs
// exactly one fetch: the deadline is re-checked after every sleep, before
// the next poll.
func (o *Orchestrator) AwaitResponses(ctx context.Context, questionIDs []string, minResponses int, timeout time.Duration) (map[string]QuestionState, error) {
	if minResponses < 1 {
		minResponses = 1
	}
	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}

	deadline := o.now().Add(timeout)
	interval := o.pollInterval

	for {
		results, err := o.PollOnce(ctx, questionIDs)
		if err != nil {
			return nil, err
		}
		if allDone(results, minResponses) {
			return results, nil
		}

		remaining := deadline.Sub(o.now())
		if remaining <= 0 {
			return results, nil
		}
		pause := interval
		if pause > remaining {
			pause = remaining
		}
		if err := o.sleep(ctx, pause); err != nil {
			return results, err
		}
		if !o.now().Before(deadline) {
			return results, nil
		}

		interval = time.Duration(float64(interval) * o.multiplier)
		if interval > o.maxBackoff {
			interval = o.maxBackoff
		}
	}
}

// SubmitAndWait submits one question and blocks until it resolves.
// waitTimeout zero means wait as long as the question can stay open.
func (o *Orchestrator) SubmitAndWait(ctx context.Context, in SubmitQuestionInput, waitTimeout time.Duration) (QuestionState, error) {
	submission, err := o.Submit(ctx, in)
	if err != nil {
		return QuestionState{}, err
	}

	minResponses := in.MinResponses
	if minResponses == 0 {
		minResponses = defaultMinResponses
	}
	if waitTimeout <= 0 && in.TimeoutSeconds > 0 {
		waitTimeout = time.Duration(in.TimeoutSeconds) * time.Second
	}

	results, err := o.AwaitResponses(ctx, []string{submission.QuestionID}, minResponses, waitTimeout)
	if err != nil {
		return QuestionState{}, err
	}
	return results[submission.QuestionID], nil
}

func allDone(results map[string]QuestionState, minResponses int) bool {
	for _, state := range results {
		if !state.Done(minResponses) {
			return false
		}
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
