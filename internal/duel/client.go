// Package duel models timed multiplayer coding sessions hosted by a remote
// platform: the session lifecycle, its participants, the puzzle served by a
// per-session sandbox, test execution and graded submissions.
//
// A Session is owned by one caller at a time. Methods are not safe for
// concurrent use on the same Session; distinct sessions are independent.
package duel

import (
	"context"
	"strings"

	"codeduel/internal/duel/model"
	"codeduel/internal/duel/remote"
	appErr "codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// Mode re-exports the session game mode.
type Mode = model.Mode

const (
	ModeFastest  = model.ModeFastest
	ModeReverse  = model.ModeReverse
	ModeShortest = model.ModeShortest
)

// Scheduling selects how operations are driven. It is fixed for the
// lifetime of a Client.
//
// The methods of Client and Session always block. A NonBlocking client is
// meant to be driven through package async, which only accepts clients
// built that way and is the sole non-blocking surface.
type Scheduling int

const (
	// Blocking runs every operation to completion on the caller's goroutine.
	Blocking Scheduling = iota
	// NonBlocking hands every operation back as a future (see package async).
	NonBlocking
)

func (s Scheduling) String() string {
	if s == NonBlocking {
		return "non-blocking"
	}
	return "blocking"
}

// DefaultSiteURL is used to build join links.
const DefaultSiteURL = "https://www.codingame.com"

// LanguageValidator checks language ids before a private session is created.
type LanguageValidator interface {
	Validate(ctx context.Context, languageIDs []string) error
}

// Options configures a Client.
type Options struct {
	Scheduling Scheduling
	SiteURL    string
	Languages  LanguageValidator
	Actor      *model.Actor
}

// Client holds the authenticated actor and the remote service seam shared
// by every Session it creates.
type Client struct {
	service    remote.Service
	scheduling Scheduling
	siteURL    string
	languages  LanguageValidator
	actor      *model.Actor
}

// NewClient creates a Client over service.
func NewClient(service remote.Service, opts Options) *Client {
	site := strings.TrimRight(opts.SiteURL, "/")
	if site == "" {
		site = DefaultSiteURL
	}
	c := &Client{
		service:    service,
		scheduling: opts.Scheduling,
		siteURL:    site,
		languages:  opts.Languages,
	}
	if opts.Actor != nil && opts.Actor.ID != 0 {
		actor := *opts.Actor
		c.actor = &actor
	}
	return c
}

// Scheduling returns the model chosen at construction.
func (c *Client) Scheduling() Scheduling {
	return c.scheduling
}

// LoggedIn reports whether an actor is set.
func (c *Client) LoggedIn() bool {
	return c.actor != nil
}

// Actor returns the authenticated actor, if any.
func (c *Client) Actor() (model.Actor, bool) {
	if c.actor == nil {
		return model.Actor{}, false
	}
	return *c.actor, true
}

// Login authenticates against the platform and makes the result the actor
// for every later call.
func (c *Client) Login(ctx context.Context, email, password string) (model.Actor, error) {
	if strings.TrimSpace(email) == "" {
		return model.Actor{}, appErr.New(appErr.EmailRequired)
	}
	if password == "" {
		return model.Actor{}, appErr.New(appErr.PasswordRequired)
	}
	actor, err := c.service.Login(ctx, email, password)
	if err != nil {
		return model.Actor{}, mapLogin(err)
	}
	c.actor = &actor
	logger.Info(logger.WithActor(ctx, actor.ID), "logged in", zap.String("nickname", actor.Nickname))
	return actor, nil
}

// Logout forgets the actor locally.
func (c *Client) Logout() {
	c.actor = nil
}

func (c *Client) requireActor() (int64, error) {
	if c.actor == nil {
		return 0, appErr.LoginRequiredError()
	}
	return c.actor.ID, nil
}

// Session fetches a session by handle.
func (c *Client) Session(ctx context.Context, handle string) (*Session, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	snap, err := c.service.FetchSession(logger.WithSession(ctx, handle), handle)
	if err != nil {
		return nil, mapConflict(err)
	}
	return c.NewSession(snap)
}

// NewSession builds a Session from a snapshot already obtained from the platform.
func (c *Client) NewSession(snap model.SessionSnapshot) (*Session, error) {
	s := &Session{client: c}
	if err := s.apply(snap); err != nil {
		return nil, err
	}
	return s, nil
}

// PendingSession returns one public session waiting for players, or nil
// when there is none.
func (c *Client) PendingSession(ctx context.Context) (*Session, error) {
	snaps, err := c.service.PendingSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return c.NewSession(snaps[0])
}

// CreatePrivateSession creates a private session owned by the actor.
// Modes and languages are validated locally before any network call.
func (c *Client) CreatePrivateSession(ctx context.Context, languageIDs []string, modes []Mode) (*Session, error) {
	actorID, err := c.requireActor()
	if err != nil {
		return nil, err
	}
	if err := validateLanguages(languageIDs); err != nil {
		return nil, err
	}
	if err := validateModes(modes); err != nil {
		return nil, err
	}
	if c.languages != nil {
		if err := c.languages.Validate(ctx, languageIDs); err != nil {
			return nil, err
		}
	}

	ctx = logger.WithActor(ctx, actorID)
	snap, err := c.service.CreatePrivateSession(ctx, actorID, languageIDs, modes)
	if err != nil {
		return nil, mapConflict(err)
	}
	s, err := c.NewSession(snap)
	if err != nil {
		return nil, err
	}
	logger.Info(logger.WithSession(ctx, s.Handle()), "private session created",
		zap.Strings("languages", languageIDs),
	)
	return s, nil
}

// JoinByHandle joins the session with the given handle and returns its
// refreshed state.
func (c *Client) JoinByHandle(ctx context.Context, handle string) (*Session, error) {
	actorID, err := c.requireActor()
	if err != nil {
		return nil, err
	}
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	if err := c.service.JoinSession(ctx, actorID, handle); err != nil {
		return nil, mapConflict(err)
	}
	return c.Session(ctx, handle)
}

// LanguageIDs lists every language id the platform accepts.
func (c *Client) LanguageIDs(ctx context.Context) ([]string, error) {
	return c.service.LanguageIDs(ctx)
}

// Solution fetches a graded submission by id. session may be nil when the
// originating session is unknown.
func (c *Client) Solution(ctx context.Context, submissionID int64, session *Session) (*Solution, error) {
	actorID, err := c.requireActor()
	if err != nil {
		return nil, err
	}
	snap, err := c.service.FetchSolution(ctx, actorID, submissionID)
	if err != nil {
		return nil, err
	}
	return newSolution(c, session, snap), nil
}
