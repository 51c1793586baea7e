package command

import (
	"context"
	"fmt"
	"strings"

	"codeduel/internal/duel"
	"codeduel/internal/duel/async"
	appErr "codeduel/pkg/errors"
)

// Env is the state commands run against. Sessions are kept by handle so
// that the sandbox and puzzle acquired by one command are reused by the
// next one.
//
// A client built with non-blocking scheduling is driven through package
// async: every remote call becomes a future that the command awaits.
type Env struct {
	Client    *duel.Client
	Async     *async.Client
	sessions  map[string]*duel.Session
	futures   map[string]*async.Session
	solutions map[string]*duel.Solution
	current   string
}

func NewEnv(client *duel.Client) *Env {
	env := &Env{
		Client:    client,
		sessions:  make(map[string]*duel.Session),
		futures:   make(map[string]*async.Session),
		solutions: make(map[string]*duel.Solution),
	}
	if client.Scheduling() == duel.NonBlocking {
		// Wrap only rejects blocking clients.
		env.Async, _ = async.Wrap(client)
	}
	return env
}

// Execute checks required fields and authentication, then runs cmd.
func (e *Env) Execute(ctx context.Context, cmd Command, params Params) (interface{}, error) {
	params.Canonicalize(cmd.Fields)
	for _, field := range cmd.Fields {
		if field.Required && !params.Provided(field) {
			return nil, appErr.New(appErr.RequiredFieldEmpty).WithMessage(fmt.Sprintf("%s is required", field.Name))
		}
	}
	if cmd.RequiresAuth && !e.Client.LoggedIn() {
		return nil, appErr.LoginRequiredError()
	}
	return cmd.Run(ctx, e, params)
}

// Current is the handle of the last session a command touched.
func (e *Env) Current() string {
	return e.current
}

// Track registers s as the current session.
func (e *Env) Track(s *duel.Session) *duel.Session {
	e.sessions[s.Handle()] = s
	e.current = s.Handle()
	return s
}

// Forget drops all tracked sessions, used on logout.
func (e *Env) Forget() {
	e.sessions = make(map[string]*duel.Session)
	e.futures = make(map[string]*async.Session)
	e.solutions = make(map[string]*duel.Solution)
	e.current = ""
}

// Session resolves handle, falling back to the current session when empty.
// Unknown handles are fetched once and tracked.
func (e *Env) Session(ctx context.Context, handle string) (*duel.Session, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		handle = e.current
	}
	if handle == "" {
		return nil, appErr.ValidationError("handle", "no current session, pass handle=")
	}
	if s, ok := e.sessions[handle]; ok {
		e.current = handle
		return s, nil
	}
	s, err := e.driveSession(ctx,
		func() (*duel.Session, error) { return e.Client.Session(ctx, handle) },
		func(c *async.Client) *async.Future[*async.Session] { return c.Session(ctx, handle) })
	if err != nil {
		return nil, err
	}
	return e.Track(s), nil
}

// Tracked returns a session already known to the environment.
func (e *Env) Tracked(handle string) (*duel.Session, bool) {
	if handle == "" {
		handle = e.current
	}
	s, ok := e.sessions[strings.TrimSpace(handle)]
	return s, ok
}

// futureOf returns the non-blocking face of a tracked session.
func (e *Env) futureOf(s *duel.Session) *async.Session {
	if f, ok := e.futures[s.Handle()]; ok && f.Blocking() == s {
		return f
	}
	f := e.Async.Adopt(s)
	e.futures[s.Handle()] = f
	return f
}

// drive runs a client call on the caller's goroutine, or through its
// future when the client is non-blocking.
func drive[T any](ctx context.Context, e *Env, blocking func() (T, error), future func(*async.Client) *async.Future[T]) (T, error) {
	if e.Async == nil {
		return blocking()
	}
	return future(e.Async).Await(ctx)
}

// driveSession is drive for calls that produce a session.
func (e *Env) driveSession(ctx context.Context, blocking func() (*duel.Session, error), future func(*async.Client) *async.Future[*async.Session]) (*duel.Session, error) {
	if e.Async == nil {
		return blocking()
	}
	f, err := future(e.Async).Await(ctx)
	if err != nil || f == nil {
		return nil, err
	}
	e.futures[f.Handle()] = f
	return f.Blocking(), nil
}

// driveOn is drive for calls made on session s.
func driveOn[T any](ctx context.Context, e *Env, s *duel.Session, blocking func() (T, error), future func(*async.Session) *async.Future[T]) (T, error) {
	if e.Async == nil {
		return blocking()
	}
	return future(e.futureOf(s)).Await(ctx)
}

func (e *Env) runOn(ctx context.Context, s *duel.Session, blocking func() error, future func(*async.Session) *async.Future[struct{}]) error {
	_, err := driveOn(ctx, e, s, func() (struct{}, error) { return struct{}{}, blocking() }, future)
	return err
}

func (e *Env) lastSolution(handle string) (*duel.Solution, bool) {
	s, ok := e.solutions[handle]
	return s, ok
}

func (e *Env) keepSolution(s *duel.Solution) {
	if s.Session() != nil {
		e.solutions[s.Session().Handle()] = s
	}
}
