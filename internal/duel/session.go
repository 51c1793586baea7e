package duel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"codeduel/internal/duel/model"
	appErr "codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// sessionState is the public snapshot of a session. Refresh swaps it whole.
type sessionState struct {
	handle          string
	visibility      model.Visibility
	minPlayers      int
	maxPlayers      int
	modes           []Mode
	languages       []string
	started         bool
	finished        bool
	mode            Mode
	creationTime    time.Time
	startTime       time.Time
	endTime         time.Time
	timeBeforeStart time.Duration
	timeBeforeEnd   *time.Duration
	participants    []*Participant
}

// Session is one coding duel. Public fields are read through accessors and
// only change on Refresh or on lifecycle calls made with WithRefresh.
//
// The sandbox handle and puzzle are a session-scoped cache: written by the
// first successful acquisition and never cleared by Refresh.
type Session struct {
	client *Client
	state  sessionState

	sandboxHandle string
	puzzle        *Puzzle
}

// CallOption tunes a session operation.
type CallOption func(*callOptions)

type callOptions struct {
	refresh bool
}

// WithRefresh re-fetches the session's public fields after the operation succeeds.
func WithRefresh() CallOption {
	return func(o *callOptions) {
		o.refresh = true
	}
}

func buildOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// apply validates snap and replaces the public state with it. The session is
// left untouched when snap breaks an invariant.
func (s *Session) apply(snap model.SessionSnapshot) error {
	if snap.PublicHandle == "" {
		return appErr.ValidationError("handle", "snapshot has no handle")
	}
	if snap.Finished && !snap.Started {
		return appErr.ValidationError("finished", "finished session was never started").
			WithDetail("handle", snap.PublicHandle)
	}
	if snap.NbPlayersMax > 0 && len(snap.Players) > snap.NbPlayersMax {
		return appErr.ValidationError("players", fmt.Sprintf("%d participants exceed the maximum of %d", len(snap.Players), snap.NbPlayersMax)).
			WithDetail("handle", snap.PublicHandle)
	}

	visibility := snap.Type
	if visibility == "" {
		visibility = model.VisibilityPublic
	}
	next := sessionState{
		handle:          snap.PublicHandle,
		visibility:      visibility,
		minPlayers:      snap.NbPlayersMin,
		maxPlayers:      snap.NbPlayersMax,
		modes:           append([]Mode(nil), snap.Modes...),
		languages:       append([]string(nil), snap.ProgrammingLanguages...),
		started:         snap.Started,
		finished:        snap.Finished,
		mode:            snap.Mode,
		creationTime:    fromMillis(snap.CreationTime),
		startTime:       fromMillis(snap.StartTimestamp),
		endTime:         fromMillis(snap.EndTime),
		timeBeforeStart: time.Duration(snap.MsBeforeStart) * time.Millisecond,
	}
	if snap.Modes == nil {
		next.modes = nil
	}
	if snap.ProgrammingLanguages == nil {
		next.languages = nil
	}
	if snap.MsBeforeEnd != nil {
		d := time.Duration(*snap.MsBeforeEnd) * time.Millisecond
		next.timeBeforeEnd = &d
	}
	next.participants = make([]*Participant, 0, len(snap.Players))
	for _, p := range snap.Players {
		next.participants = append(next.participants, newParticipant(s, p))
	}

	s.state = next
	return nil
}

func (s *Session) Handle() string { return s.state.handle }
func (s *Session) Visibility() model.Visibility { return s.state.visibility }
func (s *Session) Public() bool { return s.state.visibility != model.VisibilityPrivate }
func (s *Session) MinPlayers() int { return s.state.minPlayers }
func (s *Session) MaxPlayers() int { return s.state.maxPlayers }
func (s *Session) Started() bool { return s.state.started }
func (s *Session) Finished() bool { return s.state.finished }
func (s *Session) Mode() Mode { return s.state.mode }
func (s *Session) CreationTime() time.Time { return s.state.creationTime }
func (s *Session) StartTime() time.Time { return s.state.startTime }
func (s *Session) EndTime() time.Time { return s.state.endTime }
func (s *Session) TimeBeforeStart() time.Duration { return s.state.timeBeforeStart }

// JoinURL is the link players open to join the session.
func (s *Session) JoinURL() string {
	return s.client.siteURL + "/clashofcode/clash/" + s.state.handle
}

// Modes returns the allowed modes; nil before start for public sessions.
func (s *Session) Modes() []Mode {
	if s.state.modes == nil {
		return nil
	}
	return append([]Mode(nil), s.state.modes...)
}

// ProgrammingLanguages returns the allowed language ids; nil before start
// for public sessions.
func (s *Session) ProgrammingLanguages() []string {
	if s.state.languages == nil {
		return nil
	}
	return append([]string(nil), s.state.languages...)
}

// TimeBeforeEnd is known only once the session has started.
func (s *Session) TimeBeforeEnd() (time.Duration, bool) {
	if s.state.timeBeforeEnd == nil {
		return 0, false
	}
	return *s.state.timeBeforeEnd, true
}

// Participants returns the participants in join order.
func (s *Session) Participants() []*Participant {
	return append([]*Participant(nil), s.state.participants...)
}

// Participant looks up a participant by user id.
func (s *Session) Participant(id int64) (*Participant, bool) {
	for _, p := range s.state.participants {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// Owner returns the owning participant, if the snapshot names one.
func (s *Session) Owner() (*Participant, bool) {
	for _, p := range s.state.participants {
		if p.IsOwner() {
			return p, true
		}
	}
	return nil, false
}

// Ranking returns the participants ordered by rank. Unranked participants
// come last; ties keep join order. The authoritative list is not modified.
func (s *Session) Ranking() []*Participant {
	ranked := s.Participants()
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, iok := ranked[i].Rank()
		rj, jok := ranked[j].Rank()
		if iok != jok {
			return iok
		}
		return iok && ri < rj
	})
	return ranked
}

func (s *Session) String() string {
	return fmt.Sprintf("Session(handle=%s visibility=%s started=%t finished=%t participants=%d/%d)",
		s.state.handle, s.state.visibility, s.state.started, s.state.finished,
		len(s.state.participants), s.state.maxPlayers)
}

func (s *Session) logContext(ctx context.Context) context.Context {
	ctx = logger.WithSession(ctx, s.state.handle)
	if s.client.actor != nil {
		ctx = logger.WithActor(ctx, s.client.actor.ID)
	}
	return ctx
}

// Refresh re-fetches the session and overwrites every public field in place.
// The sandbox handle and puzzle are kept.
func (s *Session) Refresh(ctx context.Context) error {
	ctx = s.logContext(ctx)
	snap, err := s.client.service.FetchSession(ctx, s.state.handle)
	if err != nil {
		return mapConflict(err)
	}
	if err := s.apply(snap); err != nil {
		return err
	}
	logger.Debug(ctx, "session refreshed",
		zap.Bool("started", s.state.started),
		zap.Bool("finished", s.state.finished),
		zap.Int("participants", len(s.state.participants)),
	)
	return nil
}

func (s *Session) after(ctx context.Context, o callOptions) error {
	if !o.refresh {
		return nil
	}
	return s.Refresh(ctx)
}

// lifecycle runs one join/start/leave call through the conflict table.
func (s *Session) lifecycle(ctx context.Context, action string, call func(context.Context, int64, string) error, opts []CallOption) error {
	actorID, err := s.client.requireActor()
	if err != nil {
		return err
	}
	ctx = s.logContext(ctx)
	if err := call(ctx, actorID, s.state.handle); err != nil {
		mapped := mapConflict(err)
		logger.Warn(ctx, "session "+action+" failed",
			zap.Int("code", int(appErr.GetCode(mapped))),
			zap.Error(mapped),
		)
		return mapped
	}
	logger.Info(ctx, "session "+action)
	return s.after(ctx, buildOptions(opts))
}

// Join adds the actor to the session. The call returns no snapshot; use
// WithRefresh to observe the new membership.
func (s *Session) Join(ctx context.Context, opts ...CallOption) error {
	return s.lifecycle(ctx, "join", s.client.service.JoinSession, opts)
}

// Start asks the platform to start the session. Only the owner may do so.
// The platform starts a short countdown: Started flips a few seconds later,
// so callers refresh after a delay. Start is not assumed safe to retry;
// after an ambiguous failure refresh and inspect Started instead.
func (s *Session) Start(ctx context.Context, opts ...CallOption) error {
	return s.lifecycle(ctx, "start", s.client.service.StartSession, opts)
}

// Leave removes the actor from the session. Leaving a session the actor
// never joined is a no-op on the platform.
func (s *Session) Leave(ctx context.Context, opts ...CallOption) error {
	return s.lifecycle(ctx, "leave", s.client.service.LeaveSession, opts)
}

// SandboxHandle returns the cached sandbox handle, if one was allocated.
func (s *Session) SandboxHandle() (string, bool) {
	return s.sandboxHandle, s.sandboxHandle != ""
}

// Question returns the session's puzzle. The first call opens a sandbox and
// initializes it; later calls return the cached puzzle without any network
// call. Opening a sandbox allocates remote resources, so a failure here is
// never retried automatically.
func (s *Session) Question(ctx context.Context, opts ...CallOption) (*Puzzle, error) {
	actorID, err := s.client.requireActor()
	if err != nil {
		return nil, err
	}
	ctx = s.logContext(ctx)
	if s.puzzle == nil {
		if s.sandboxHandle == "" {
			handle, err := s.client.service.OpenSandbox(ctx, actorID, s.state.handle)
			if err != nil {
				return nil, mapConflict(err)
			}
			s.sandboxHandle = handle
			logger.Debug(ctx, "sandbox opened", zap.String("sandbox", handle))
		}
		snap, err := s.client.service.InitSandbox(ctx, s.sandboxHandle)
		if err != nil {
			return nil, mapConflict(err)
		}
		s.puzzle = newPuzzle(s, snap)
		logger.Info(ctx, "puzzle acquired",
			zap.Int64("puzzle_id", snap.ID),
			zap.Int("test_cases", len(s.puzzle.testCases)),
		)
	}
	if err := s.after(ctx, buildOptions(opts)); err != nil {
		return nil, err
	}
	return s.puzzle, nil
}

// PlayTestCases runs code against the selected test cases, in index order,
// one remote call each. With no indexes every test case runs; indexes that
// match no test case are ignored. The first failed call aborts the batch
// and no partial results are returned.
func (s *Session) PlayTestCases(ctx context.Context, languageID, code string, indexes []int, opts ...CallOption) (map[int]TestCaseResult, error) {
	if _, err := s.client.requireActor(); err != nil {
		return nil, err
	}
	puzzle, err := s.Question(ctx)
	if err != nil {
		return nil, err
	}
	ctx = s.logContext(ctx)

	selected := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		selected[i] = true
	}

	results := make(map[int]TestCaseResult)
	for _, tc := range puzzle.testCases {
		if len(selected) > 0 && !selected[tc.index] {
			continue
		}
		raw, err := s.client.service.RunTestCase(ctx, s.sandboxHandle, languageID, code, tc.index)
		if err != nil {
			logger.Warn(ctx, "test case run failed", zap.Int("index", tc.index), zap.Error(err))
			return nil, mapConflict(err)
		}
		results[tc.index] = newTestCaseResult(tc, raw)
	}
	logger.Debug(ctx, "test cases played", zap.Int("count", len(results)), zap.String("language", languageID))

	if err := s.after(ctx, buildOptions(opts)); err != nil {
		return nil, err
	}
	return results, nil
}

// Submit sends code for final grading and returns the graded solution.
func (s *Session) Submit(ctx context.Context, languageID, code string, opts ...CallOption) (*Solution, error) {
	actorID, err := s.client.requireActor()
	if err != nil {
		return nil, err
	}
	if _, err := s.Question(ctx); err != nil {
		return nil, err
	}
	ctx = s.logContext(ctx)

	submissionID, err := s.client.service.SubmitSandbox(ctx, s.sandboxHandle, languageID, code)
	if err != nil {
		return nil, mapConflict(err)
	}
	snap, err := s.client.service.FetchSolution(ctx, actorID, submissionID)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "solution submitted", zap.Int64("submission_id", submissionID), zap.String("language", languageID))

	if err := s.after(ctx, buildOptions(opts)); err != nil {
		return nil, err
	}
	return newSolution(s.client, s, snap), nil
}
