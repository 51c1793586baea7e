package async

import (
	"context"
	"sync"

	"codeduel/internal/duel"
)

// Session is the non-blocking face of duel.Session. Futures issued on the
// same session never overlap; their relative order is not guaranteed.
type Session struct {
	inner  *duel.Session
	client *Client
	mu     sync.Mutex
}

// Blocking exposes the wrapped session for reading its fields. Read it only
// after the futures issued on this session have completed.
func (s *Session) Blocking() *duel.Session { return s.inner }

func (s *Session) Handle() string { return s.inner.Handle() }

func (s *Session) run(ctx context.Context, fn func(context.Context) error) *Future[struct{}] {
	return goLocked(ctx, &s.mu, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

func (s *Session) Refresh(ctx context.Context) *Future[struct{}] {
	return s.run(ctx, s.inner.Refresh)
}

func (s *Session) Join(ctx context.Context, opts ...duel.CallOption) *Future[struct{}] {
	return s.run(ctx, func(ctx context.Context) error { return s.inner.Join(ctx, opts...) })
}

func (s *Session) Start(ctx context.Context, opts ...duel.CallOption) *Future[struct{}] {
	return s.run(ctx, func(ctx context.Context) error { return s.inner.Start(ctx, opts...) })
}

func (s *Session) Leave(ctx context.Context, opts ...duel.CallOption) *Future[struct{}] {
	return s.run(ctx, func(ctx context.Context) error { return s.inner.Leave(ctx, opts...) })
}

func (s *Session) Question(ctx context.Context, opts ...duel.CallOption) *Future[*duel.Puzzle] {
	return goLocked(ctx, &s.mu, func(ctx context.Context) (*duel.Puzzle, error) {
		return s.inner.Question(ctx, opts...)
	})
}

// PlayTestCases runs the selected test cases one after another inside a
// single future.
func (s *Session) PlayTestCases(ctx context.Context, languageID, code string, indexes []int, opts ...duel.CallOption) *Future[map[int]duel.TestCaseResult] {
	indexes = append([]int(nil), indexes...)
	return goLocked(ctx, &s.mu, func(ctx context.Context) (map[int]duel.TestCaseResult, error) {
		return s.inner.PlayTestCases(ctx, languageID, code, indexes, opts...)
	})
}

func (s *Session) Submit(ctx context.Context, languageID, code string, opts ...duel.CallOption) *Future[*duel.Solution] {
	return goLocked(ctx, &s.mu, func(ctx context.Context) (*duel.Solution, error) {
		return s.inner.Submit(ctx, languageID, code, opts...)
	})
}

// Share publishes a solution obtained from this session.
func (s *Session) Share(ctx context.Context, solution *duel.Solution) *Future[struct{}] {
	return s.run(ctx, solution.Share)
}

// ParticipantSolution fetches the solution shared by p, a participant of
// this session.
func (s *Session) ParticipantSolution(ctx context.Context, p *duel.Participant) *Future[*duel.Solution] {
	return goLocked(ctx, &s.mu, p.Solution)
}
