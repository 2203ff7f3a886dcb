package bakery

import (
	"context"
	"fmt"
)

// ConfirmationHandler receives each accepted confirmation.
type ConfirmationHandler func(ctx context.Context, rec ConfirmationRecord) error

// NewCallbackArchiver adapts fn into an Archiver so confirmations can be
// forwarded to any system without implementing the interface by hand.
func NewCallbackArchiver(name string, fn ConfirmationHandler) Archiver {
	if name == "" {
		name = "callback"
	}
	return &callbackArchiver{name: name, fn: fn}
}

type callbackArchiver struct {
	name string
	fn   ConfirmationHandler
}

func (a *callbackArchiver) Archive(ctx context.Context, rec ConfirmationRecord) error {
	if a.fn == nil {
		return nil
	}
	if err := a.fn(ctx, rec); err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	return nil
}

func (a *callbackArchiver) Name() string { return a.name }
