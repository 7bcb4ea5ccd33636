// Package confirm provides dispatch.Confirmer implementations: a terminal
// prompt backed by survey and fixed answers for scripts and tests.
package confirm

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-configpage/pkg/dispatch"
)

// AskFunc matches survey.AskOne so tests can run without a terminal.
type AskFunc func(prompt survey.Prompt, response any, opts ...survey.AskOpt) error

// Option customises a Terminal confirmer.
type Option func(*Terminal)

// WithAsk replaces the survey prompt runner.
func WithAsk(ask AskFunc) Option {
	return func(t *Terminal) {
		if ask != nil {
			t.ask = ask
		}
	}
}

// WithDefault sets the pre-selected answer.
func WithDefault(answer bool) Option {
	return func(t *Terminal) {
		t.defaultAnswer = answer
	}
}

// WithStdio redirects prompt input and output.
func WithStdio(in terminal.FileReader, out terminal.FileWriter, errOut terminal.FileWriter) Option {
	return func(t *Terminal) {
		t.askOpts = append(t.askOpts, survey.WithStdio(in, out, errOut))
	}
}

// Terminal asks for confirmation on the controlling terminal. Ctrl+C counts
// as a cancellation, not an error.
type Terminal struct {
	ask           AskFunc
	askOpts       []survey.AskOpt
	defaultAnswer bool
}

var _ dispatch.Confirmer = (*Terminal)(nil)

// NewTerminal builds a terminal confirmer.
func NewTerminal(options ...Option) *Terminal {
	t := &Terminal{ask: survey.AskOne}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(t)
	}
	return t
}

// Confirm shows the operation's confirm message as a yes/no prompt.
func (t *Terminal) Confirm(ctx context.Context, prompt dispatch.Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	message := prompt.Message
	if message == "" {
		message = fmt.Sprintf("Run %s on %s?", prompt.OperationKey, prompt.NodeID)
	}
	q := &survey.Confirm{
		Message: message,
		Help:    fmt.Sprintf("operation %q on node %q", prompt.OperationKey, prompt.NodeID),
		Default: t.defaultAnswer,
	}

	var answer bool
	if err := t.ask(q, &answer, t.askOpts...); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, nil
		}
		return false, fmt.Errorf("confirm: %w", err)
	}
	return answer, nil
}

// Static always gives the same answer.
type Static bool

// Confirm returns the fixed answer.
func (s Static) Confirm(ctx context.Context, _ dispatch.Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

var (
	// Always accepts every confirmation.
	Always dispatch.Confirmer = Static(true)
	// Never declines every confirmation.
	Never dispatch.Confirmer = Static(false)
)
