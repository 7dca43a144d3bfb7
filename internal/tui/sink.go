package tui

import "github.com/billie-coop/volley/internal/dispatch"

// Sink carries dispatcher mutations into the bubbletea event loop. Apply
// blocks once the buffer fills instead of dropping, so response text is
// never lost; the model drains one mutation per Update pass.
type Sink struct {
	ch chan dispatch.Mutation
}

// NewSink returns a sink buffered for a burst of body chunks.
func NewSink() *Sink {
	return &Sink{ch: make(chan dispatch.Mutation, 256)}
}

// Apply implements dispatch.Sink.
func (s *Sink) Apply(m dispatch.Mutation) {
	s.ch <- m
}

// Mutations is the feed the model listens on.
func (s *Sink) Mutations() <-chan dispatch.Mutation {
	return s.ch
}
