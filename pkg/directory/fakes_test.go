package directory

import (
	"context"
	"sync"
	"time"
)

type scriptedSource struct {
	mu      sync.Mutex
	results [][]GroupSummary
	errs    []error
	calls   int
}

func (s *scriptedSource) EnumerateGroups(ctx context.Context) ([]GroupSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], err
	}
	return nil, err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(d time.Duration) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

type fakeResolver struct {
	group     *RawGroup
	err       error
	names     map[string]string
	nameErrs  map[string]error
	resolves  int
	lookupsMu sync.Mutex
	lookups   int
}

func (f *fakeResolver) ResolveGroup(ctx context.Context, groupID string) (*RawGroup, error) {
	f.resolves++
	return f.group, f.err
}

func (f *fakeResolver) LookupName(ctx context.Context, participantID string) (string, error) {
	f.lookupsMu.Lock()
	f.lookups++
	f.lookupsMu.Unlock()
	if err := f.nameErrs[participantID]; err != nil {
		return "", err
	}
	return f.names[participantID], nil
}
