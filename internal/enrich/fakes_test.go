package enrich

import (
	"context"

	"sync"

	"github.com/spigell/joe-enricher/internal/ai"
	"github.com/spigell/joe-enricher/internal/job"
	"github.com/spigell/joe-enricher/internal/store"
)

// fakeCaller answers by stage. A missing answer simulates a failed call.
type fakeCaller struct {
	mu      sync.Mutex
	answers map[string]func(req ai.Request) string
	calls   map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{answers: map[string]func(ai.Request) string{}, calls: map[string]int{}}
}

func (f *fakeCaller) on(stage string, answer func(req ai.Request) string) *fakeCaller {
	f.answers[stage] = answer
	return f
}

func (f *fakeCaller) Call(_ context.Context, req ai.Request) (string, bool) {
	stage := stageOf(req)
	f.mu.Lock()
	f.calls[stage]++
	answer := f.answers[stage]
	f.mu.Unlock()
	if answer == nil {
		return "", false
	}
	out := answer(req)
	return out, out != ""
}

func (f *fakeCaller) count(stage string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stage]
}

func stageOf(req ai.Request) string {
	switch req.System {
	case detailsSystemPrompt:
		return "details"
	case deadlineSystemPrompt:
		return "deadline"
	case classifySystemPrompt:
		return "classify"
	case trackSystemPrompt:
		return "track"
	}
	return "unknown"
}

func fixed(s string) func(ai.Request) string {
	return func(ai.Request) string { return s }
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]*job.Record
	updates map[string][]job.Patch
	failFor map[string]error
}

func newFakeStore(records ...*job.Record) *fakeStore {
	s := &fakeStore{
		records: map[string]*job.Record{},
		updates: map[string][]job.Patch{},
		failFor: map[string]error{},
	}
	for _, rec := range records {
		s.records[rec.JobID] = rec.Clone()
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id string) (*job.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *fakeStore) Update(_ context.Context, id string, patch job.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[id]; err != nil {
		return err
	}
	rec, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := rec.Apply(patch); err != nil {
		return err
	}
	s.updates[id] = append(s.updates[id], patch)
	return nil
}
