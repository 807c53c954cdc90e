// askctl is a command line front end for the Ask-a-Human agent API. It
// submits questions, optionally waits for the answers, and inspects
// questions in flight.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dx-tooling/ask-a-human/askhuman"
)

var (
	baseURL string
	agentID string
)

func main() {
	root := &cobra.Command{
		Use:           "askctl",
		Short:         "Ask anonymous humans a question from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (defaults to ASK_A_HUMAN_BASE_URL)")
	root.PersistentFlags().StringVar(&agentID, "agent-id", "", "agent identifier (defaults to ASK_A_HUMAN_AGENT_ID)")

	root.AddCommand(newAskCommand(), newStatusCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "askctl:", err)
		os.Exit(1)
	}
}

func newClient() *askhuman.Client {
	var opts []askhuman.ClientOption
	if baseURL != "" {
		opts = append(opts, askhuman.WithBaseURL(baseURL))
	}
	if agentID != "" {
		opts = append(opts, askhuman.WithAgentID(agentID))
	}
	return askhuman.NewClient(opts...)
}

func newAskCommand() *cobra.Command {
	var (
		questionType   string
		options        []string
		audience       []string
		minResponses   int
		timeoutSeconds int
		wait           bool
		waitTimeout    time.Duration
		pollInterval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Submit a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := askhuman.SubmitQuestionInput{
				Prompt:         args[0],
				Type:           askhuman.QuestionType(questionType),
				Options:        options,
				Audience:       audience,
				MinResponses:   minResponses,
				TimeoutSeconds: timeoutSeconds,
			}

			orchestrator, err := askhuman.NewOrchestrator(newClient(), askhuman.WithPollInterval(pollInterval))
			if err != nil {
				return err
			}

			if !wait {
				submission, err := orchestrator.Submit(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Printf("submitted %s (expires %s)\n", submission.QuestionID, submission.ExpiresAt.Local().Format(time.RFC1123))
				fmt.Printf("poll with: askctl status %s\n", submission.QuestionID)
				return nil
			}

			state, err := orchestrator.SubmitAndWait(cmd.Context(), in, waitTimeout)
			if err != nil {
				return err
			}
			printState(state)
			return nil
		},
	}

	cmd.Flags().StringVar(&questionType, "type", "text", "question type: text or multiple_choice")
	cmd.Flags().StringArrayVar(&options, "option", nil, "answer option (repeat for each, multiple_choice only)")
	cmd.Flags().StringArrayVar(&audience, "audience", nil, "audience tag (repeatable)")
	cmd.Flags().IntVar(&minResponses, "min-responses", 0, "responses needed to close (server default 5)")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout-seconds", 0, "question lifetime in seconds (server default 3600)")
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the question resolves")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 0, "how long to wait with --wait (default: question lifetime)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", askhuman.DefaultPollInterval, "base interval between polls with --wait")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <question-id>",
		Short: "Show a question's status and responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := newClient().GetQuestion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printState(state)
			return nil
		},
	}
}

func printState(state askhuman.QuestionState) {
	fmt.Printf("%s  %s\n", state.QuestionID, state.Status)
	fmt.Printf("  %q\n", state.Prompt)
	fmt.Printf("  responses: %d/%d\n", state.CurrentResponses, state.RequiredResponses)
	if !state.ClosedAt.IsZero() {
		fmt.Printf("  closed at: %s\n", state.ClosedAt.Local().Format(time.RFC1123))
	}

	if state.Type == askhuman.TypeMultipleChoice {
		for _, option := range state.Options {
			fmt.Printf("  %4d  %s\n", state.Summary[option], option)
		}
		if winner, votes, ok := state.Winner(); ok {
			fmt.Printf("  winner: %s (%d votes)\n", winner, votes)
		}
		return
	}
	for _, r := range state.Responses {
		if r.Confidence != nil {
			fmt.Printf("  - %s (confidence %d)\n", r.Answer, *r.Confidence)
			continue
		}
		fmt.Printf("  - %s\n", r.Answer)
	}
}
