package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/coordinator"
)

// Prompt describes a confirmation request.
type Prompt struct {
	NodeID       string
	OperationKey string
	Message      string
}

// Confirmer asks the user to confirm an operation. Returning false cancels
// the dispatch without error.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// ConfirmFunc adapts plain functions to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt Prompt) (bool, error)

// Confirm executes the wrapped function.
func (fn ConfirmFunc) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	return fn(ctx, prompt)
}

// Navigation describes a jump out of the current scenario.
type Navigation struct {
	NodeID       string
	OperationKey string
	Target       string
	Params       map[string]any
	Query        map[string]any
}

// Navigator performs navigations on behalf of the host.
type Navigator interface {
	Navigate(ctx context.Context, nav Navigation) error
}

// NavigateFunc adapts plain functions to Navigator.
type NavigateFunc func(ctx context.Context, nav Navigation) error

// Navigate executes the wrapped function.
func (fn NavigateFunc) Navigate(ctx context.Context, nav Navigation) error {
	return fn(ctx, nav)
}

// Fetcher issues coordinated fetches. *coordinator.Coordinator satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req coordinator.Request) (coordinator.Result, error)
}

var _ Fetcher = (*coordinator.Coordinator)(nil)

// rejectConfirmer is used when the host did not configure a Confirmer.
type rejectConfirmer struct {
	logger zerolog.Logger
}

func (r rejectConfirmer) Confirm(_ context.Context, prompt Prompt) (bool, error) {
	r.logger.Warn().
		Str("node", prompt.NodeID).
		Str("operation", prompt.OperationKey).
		Msg("operation requires confirmation but no confirmer is configured; cancelling")
	return false, nil
}

type logNavigator struct {
	logger zerolog.Logger
}

func (l logNavigator) Navigate(_ context.Context, nav Navigation) error {
	l.logger.Info().
		Str("node", nav.NodeID).
		Str("operation", nav.OperationKey).
		Str("target", nav.Target).
		Msg("navigation requested but no navigator is configured")
	return nil
}
