package session

import (
	"context"
	"errors"

	"github.com/payvo/payvo/internal/speech"
)

// Runner feeds a speech provider into a session until the provider runs dry
// or ctx ends.
type Runner struct {
	Session  *Session
	Provider speech.Provider
	// OnResult, when set, sees every processed utterance.
	OnResult func(utterance string, res Result)
}

// Run blocks until the provider is exhausted (returns nil) or ctx ends. A
// failed recognition counts as no utterance and the loop keeps listening.
func (r *Runner) Run(ctx context.Context) error {
	for {
		text, err := r.Provider.Listen(ctx)
		if errors.Is(err, speech.ErrExhausted) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.Session.logger.Warn("speech provider failed", "session", r.Session.ID, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		res := r.Session.Process(ctx, text)
		if r.OnResult != nil {
			r.OnResult(text, res)
		}
	}
}
