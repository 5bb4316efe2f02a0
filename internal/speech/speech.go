// Package speech defines where utterances come from. Recognition itself is
// external; providers hand over finished transcripts.
package speech

import (
	"context"
	"errors"
	"sync"
)

// ErrExhausted is returned when a provider has no more utterances.
var ErrExhausted = errors.New("speech provider exhausted")

// Provider yields one complete utterance per call. An error or an empty
// string means there is nothing to process.
type Provider interface {
	Listen(ctx context.Context) (string, error)
}

// Static replays a fixed script of utterances, then reports ErrExhausted.
type Static struct {
	mu         sync.Mutex
	utterances []string
}

// NewStatic builds a provider that returns utterances in order.
func NewStatic(utterances ...string) *Static {
	return &Static{utterances: append([]string(nil), utterances...)}
}

// Listen returns the next scripted utterance.
func (s *Static) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.utterances) == 0 {
		return "", ErrExhausted
	}
	next := s.utterances[0]
	s.utterances = s.utterances[1:]
	return next, nil
}

// Channel adapts a stream of transcripts, such as lines typed into the
// console, into a Provider.
type Channel <-chan string

// Listen blocks until a transcript arrives, the channel closes or ctx ends.
func (c Channel) Listen(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text, ok := <-c:
		if !ok {
			return "", ErrExhausted
		}
		return text, nil
	}
}
