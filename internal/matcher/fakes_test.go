package matcher

import (
	"context"
	"sync"

	"github.com/spigell/joe-enricher/internal/ai"
	"github.com/spigell/joe-enricher/internal/job"
)

type stubCaller struct {
	mu       sync.Mutex
	answer   func(req ai.Request) (string, bool)
	requests []ai.Request
}

func answering(s string) *stubCaller {
	return &stubCaller{answer: func(ai.Request) (string, bool) { return s, s != "" }}
}

func (c *stubCaller) Call(_ context.Context, req ai.Request) (string, bool) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	return c.answer(req)
}

type memStore struct {
	mu      sync.Mutex
	patches map[string]job.Patch
	err     error
}

func newMemStore() *memStore {
	return &memStore{patches: map[string]job.Patch{}}
}

func (s *memStore) Update(_ context.Context, id string, patch job.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.patches[id] = patch
	return nil
}
