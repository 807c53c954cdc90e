package usecase

import "github.com/dx-tooling/ask-a-human/internal/domain"

// OptionVotes pairs an option with its vote count, in declaration order.
type OptionVotes struct {
	Option string
	Votes  int
}

// TallyVotes folds the responses of a multiple-choice question into a
// per-option count. Every option appears, zero-voted ones included, in the
// question's declaration order. The tally is derived state: recomputed from
// the response ledger on every read, never persisted.
func TallyVotes(options []string, responses []domain.Response) []OptionVotes {
	tally := make([]OptionVotes, len(options))
	for i, opt := range options {
		tally[i] = OptionVotes{Option: opt}
	}
	for _, r := range responses {
		if r.SelectedOption == nil {
			continue
		}
		idx := *r.SelectedOption
		if idx < 0 || idx >= len(tally) {
			continue
		}
		tally[idx].Votes++
	}
	return tally
}

// SummaryMap converts a tally to the option→count map used on the wire.
func SummaryMap(tally []OptionVotes) map[string]int {
	if tally == nil {
		return nil
	}
	m := make(map[string]int, len(tally))
	for _, ov := range tally {
		m[ov.Option] = ov.Votes
	}
	return m
}

// Winner returns the option with the strictly greatest vote count. Ties go
// to the earliest-declared option. ok is false only for an empty tally.
func Winner(tally []OptionVotes) (winner string, ok bool) {
	if len(tally) == 0 {
		return "", false
	}
	best := tally[0]
	for _, ov := range tally[1:] {
		if ov.Votes > best.Votes {
			best = ov
		}
	}
	return best.Option, true
}
