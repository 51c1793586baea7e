package async

import (
	"context"
	"sync"

	"codeduel/internal/duel"
	"codeduel/internal/duel/model"
	"codeduel/internal/duel/remote"
	appErr "codeduel/pkg/errors"
)

// Client is the non-blocking face of duel.Client.
type Client struct {
	inner *duel.Client
	mu    sync.Mutex
}

// NewClient builds a non-blocking client over service. opts.Scheduling is
// forced to duel.NonBlocking.
func NewClient(service remote.Service, opts duel.Options) *Client {
	opts.Scheduling = duel.NonBlocking
	return &Client{inner: duel.NewClient(service, opts)}
}

// Wrap adopts an existing client, which must have been built non-blocking.
func Wrap(c *duel.Client) (*Client, error) {
	if c.Scheduling() != duel.NonBlocking {
		return nil, appErr.ValidationError("scheduling", "client was built with "+c.Scheduling().String()+" scheduling")
	}
	return &Client{inner: c}, nil
}

// Blocking exposes the wrapped client. Do not use it while futures of this
// client are pending.
func (c *Client) Blocking() *duel.Client { return c.inner }

// Operations touching the actor are serialized.
func goLocked[T any](ctx context.Context, mu *sync.Mutex, fn func(context.Context) (T, error)) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		mu.Lock()
		defer mu.Unlock()
		return fn(ctx)
	})
}

func (c *Client) wrapSession(s *duel.Session, err error) (*Session, error) {
	if err != nil || s == nil {
		return nil, err
	}
	return c.Adopt(s), nil
}

// Adopt wraps a session built by the wrapped client, such as one restored
// from a snapshot with NewSession.
func (c *Client) Adopt(s *duel.Session) *Session {
	return &Session{inner: s, client: c}
}

// Login sets the actor used by every session of this client. Do not call it
// while session futures are pending.
func (c *Client) Login(ctx context.Context, email, password string) *Future[model.Actor] {
	return goLocked(ctx, &c.mu, func(ctx context.Context) (model.Actor, error) {
		return c.inner.Login(ctx, email, password)
	})
}

func (c *Client) Session(ctx context.Context, handle string) *Future[*Session] {
	return goLocked(ctx, &c.mu, func(ctx context.Context) (*Session, error) {
		return c.wrapSession(c.inner.Session(ctx, handle))
	})
}

// PendingSession resolves to nil when no public session is waiting.
func (c *Client) PendingSession(ctx context.Context) *Future[*Session] {
	return goLocked(ctx, &c.mu, func(ctx context.Context) (*Session, error) {
		return c.wrapSession(c.inner.PendingSession(ctx))
	})
}

func (c *Client) CreatePrivateSession(ctx context.Context, languageIDs []string, modes []duel.Mode) *Future[*Session] {
	languageIDs = append([]string(nil), languageIDs...)
	modes = append([]duel.Mode(nil), modes...)
	return goLocked(ctx, &c.mu, func(ctx context.Context) (*Session, error) {
		return c.wrapSession(c.inner.CreatePrivateSession(ctx, languageIDs, modes))
	})
}

func (c *Client) JoinByHandle(ctx context.Context, handle string) *Future[*Session] {
	return goLocked(ctx, &c.mu, func(ctx context.Context) (*Session, error) {
		return c.wrapSession(c.inner.JoinByHandle(ctx, handle))
	})
}

func (c *Client) LanguageIDs(ctx context.Context) *Future[[]string] {
	return Go(ctx, c.inner.LanguageIDs)
}

// Solution fetches a graded submission; session may be nil.
func (c *Client) Solution(ctx context.Context, submissionID int64, session *Session) *Future[*duel.Solution] {
	var inner *duel.Session
	if session != nil {
		inner = session.inner
	}
	return goLocked(ctx, &c.mu, func(ctx context.Context) (*duel.Solution, error) {
		return c.inner.Solution(ctx, submissionID, inner)
	})
}
