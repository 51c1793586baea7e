package testutil

import (
	"context"
	"sync"

	"codeduel/internal/duel/model"
	"codeduel/internal/duel/remote"
)

// Handle is a well-formed session handle for tests.
const Handle = "1234567" + "0123456789abcdef0123456789abcdef"

// FakeService is an in-memory remote.Service that counts calls. Errors
// keyed by method name are returned instead of the canned responses.
type FakeService struct {
	mu sync.Mutex

	Sessions    map[string]model.SessionSnapshot
	Pending     []model.SessionSnapshot
	Created     model.SessionSnapshot
	SandboxID   string
	Puzzle      model.PuzzleSnapshot
	Results     map[int]model.ComparisonResult
	RunErrors   map[int]error
	SubmitID    int64
	Solutions   map[int64]model.SolutionSnapshot
	Actor       model.Actor
	Languages   []string
	Errors      map[string]error
	OnJoin      func(actorID int64, handle string)
	calls       map[string]int
	runIndexes  []int
	createdArgs []interface{}
}

// NewFakeService returns a fake serving snap under its handle.
func NewFakeService(snap model.SessionSnapshot) *FakeService {
	return &FakeService{
		Sessions:  map[string]model.SessionSnapshot{snap.PublicHandle: snap},
		SandboxID: "sandbox-1",
		Results:   map[int]model.ComparisonResult{},
		RunErrors: map[int]error{},
		Solutions: map[int64]model.SolutionSnapshot{},
		Errors:    map[string]error{},
		calls:     map[string]int{},
	}
}

// Calls returns how many times method was invoked.
func (f *FakeService) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// RunIndexes returns the test case indexes played, in call order.
func (f *FakeService) RunIndexes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.runIndexes...)
}

// CreatedArgs returns the arguments of the last CreatePrivateSession call.
func (f *FakeService) CreatedArgs() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createdArgs
}

// SetSession replaces the snapshot served for its handle.
func (f *FakeService) SetSession(snap model.SessionSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sessions[snap.PublicHandle] = snap
}

func (f *FakeService) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.Errors[method]
}

func (f *FakeService) FetchSession(ctx context.Context, handle string) (model.SessionSnapshot, error) {
	if err := f.enter("FetchSession"); err != nil {
		return model.SessionSnapshot{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.Sessions[handle]
	if !ok {
		return model.SessionSnapshot{}, &remote.Error{StatusCode: 422, Code: 502, Message: "clash not found"}
	}
	return snap, nil
}

func (f *FakeService) JoinSession(ctx context.Context, actorID int64, handle string) error {
	if err := f.enter("JoinSession"); err != nil {
		return err
	}
	if f.OnJoin != nil {
		f.OnJoin(actorID, handle)
	}
	return nil
}

func (f *FakeService) StartSession(ctx context.Context, actorID int64, handle string) error {
	return f.enter("StartSession")
}

func (f *FakeService) LeaveSession(ctx context.Context, actorID int64, handle string) error {
	return f.enter("LeaveSession")
}

func (f *FakeService) CreatePrivateSession(ctx context.Context, actorID int64, languageIDs []string, modes []model.Mode) (model.SessionSnapshot, error) {
	if err := f.enter("CreatePrivateSession"); err != nil {
		return model.SessionSnapshot{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdArgs = []interface{}{actorID, languageIDs, modes}
	return f.Created, nil
}

func (f *FakeService) PendingSessions(ctx context.Context) ([]model.SessionSnapshot, error) {
	if err := f.enter("PendingSessions"); err != nil {
		return nil, err
	}
	return f.Pending, nil
}

func (f *FakeService) OpenSandbox(ctx context.Context, actorID int64, handle string) (string, error) {
	if err := f.enter("OpenSandbox"); err != nil {
		return "", err
	}
	return f.SandboxID, nil
}

func (f *FakeService) InitSandbox(ctx context.Context, sandboxHandle string) (model.PuzzleSnapshot, error) {
	if err := f.enter("InitSandbox"); err != nil {
		return model.PuzzleSnapshot{}, err
	}
	return f.Puzzle, nil
}

func (f *FakeService) RunTestCase(ctx context.Context, sandboxHandle, languageID, code string, index int) (model.ComparisonResult, error) {
	if err := f.enter("RunTestCase"); err != nil {
		return model.ComparisonResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runIndexes = append(f.runIndexes, index)
	if err := f.RunErrors[index]; err != nil {
		return model.ComparisonResult{}, err
	}
	return f.Results[index], nil
}

func (f *FakeService) SubmitSandbox(ctx context.Context, sandboxHandle, languageID, code string) (int64, error) {
	if err := f.enter("SubmitSandbox"); err != nil {
		return 0, err
	}
	return f.SubmitID, nil
}

func (f *FakeService) FetchSolution(ctx context.Context, actorID, submissionID int64) (model.SolutionSnapshot, error) {
	if err := f.enter("FetchSolution"); err != nil {
		return model.SolutionSnapshot{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Solutions[submissionID], nil
}

func (f *FakeService) ShareSolution(ctx context.Context, actorID int64, handle string) error {
	return f.enter("ShareSolution")
}

func (f *FakeService) Login(ctx context.Context, email, password string) (model.Actor, error) {
	if err := f.enter("Login"); err != nil {
		return model.Actor{}, err
	}
	return f.Actor, nil
}

func (f *FakeService) LanguageIDs(ctx context.Context) ([]string, error) {
	if err := f.enter("LanguageIDs"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.Languages...), nil
}

var _ remote.Service = (*FakeService)(nil)
