package confirm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-configpage/pkg/confirm"
	"github.com/goliatone/go-configpage/pkg/dispatch"
)

func TestTerminal_Answers(t *testing.T) {
	var asked *survey.Confirm
	c := confirm.NewTerminal(
		confirm.WithDefault(true),
		confirm.WithAsk(func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
			asked = p.(*survey.Confirm)
			*(response.(*bool)) = true
			return nil
		}),
	)

	ok, err := c.Confirm(context.Background(), dispatch.Prompt{NodeID: "toolbar", OperationKey: "archive", Message: "Archive?"})
	if err != nil || !ok {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}
	if asked.Message != "Archive?" || !asked.Default {
		t.Fatalf("unexpected prompt %+v", asked)
	}
}

func TestTerminal_FallbackMessage(t *testing.T) {
	var message string
	c := confirm.NewTerminal(confirm.WithAsk(func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
		message = p.(*survey.Confirm).Message
		return nil
	}))
	ok, err := c.Confirm(context.Background(), dispatch.Prompt{NodeID: "list", OperationKey: "purge"})
	if err != nil || ok {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}
	if message != "Run purge on list?" {
		t.Fatalf("unexpected fallback message %q", message)
	}
}

func TestTerminal_InterruptCancels(t *testing.T) {
	c := confirm.NewTerminal(confirm.WithAsk(func(survey.Prompt, any, ...survey.AskOpt) error {
		return terminal.InterruptErr
	}))
	ok, err := c.Confirm(context.Background(), dispatch.Prompt{Message: "x"})
	if err != nil || ok {
		t.Fatalf("interrupt should cancel quietly, got %v, %v", ok, err)
	}
}

func TestTerminal_Errors(t *testing.T) {
	boom := errors.New("no tty")
	c := confirm.NewTerminal(confirm.WithAsk(func(survey.Prompt, any, ...survey.AskOpt) error { return boom }))
	if _, err := c.Confirm(context.Background(), dispatch.Prompt{Message: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected ask error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Confirm(ctx, dispatch.Prompt{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	if ok, _ := confirm.Always.Confirm(context.Background(), dispatch.Prompt{}); !ok {
		t.Fatalf("Always declined")
	}
	if ok, _ := confirm.Never.Confirm(context.Background(), dispatch.Prompt{}); ok {
		t.Fatalf("Never accepted")
	}
}
