package command

import (
	"context"
	"sort"
	"strings"

	"codeduel/internal/duel"
	"codeduel/internal/duel/async"
	"codeduel/internal/duel/model"
	appErr "codeduel/pkg/errors"
)

var (
	handleField   = Field{Name: "handle", Aliases: []string{"h", "session"}, Prompt: "session handle", Type: FieldString}
	refreshField  = Field{Name: "refresh", Prompt: "refresh", Type: FieldBool}
	languageField = Field{Name: "language", Aliases: []string{"lang"}, Prompt: "language id", Type: FieldString, Required: true}
	codeField     = Field{Name: "code", Prompt: "code", Type: FieldFile, Required: true}
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service: "user",
			Action:  "login",
			Summary: "authenticate with email and password",
			Fields: []Field{
				{Name: "email", Prompt: "email", Type: FieldString, Required: true},
				{Name: "password", Prompt: "password", Type: FieldString, Required: true},
			},
			Run: runLogin,
		},
		{
			Service: "user",
			Action:  "logout",
			Summary: "forget the authenticated actor",
			Run:     runLogout,
		},
		{
			Service:      "user",
			Action:       "whoami",
			Summary:      "show the authenticated actor",
			RequiresAuth: true,
			Run:          runWhoami,
		},
		{
			Service: "language",
			Action:  "list",
			Summary: "list the platform language ids",
			Run:     runLanguages,
		},
		{
			Service: "session",
			Action:  "fetch",
			Summary: "fetch a session by handle",
			Fields:  []Field{handleField},
			Run:     runFetch,
		},
		{
			Service:      "session",
			Action:       "pending",
			Summary:      "show a public session waiting for players",
			RequiresAuth: true,
			Run:          runPending,
		},
		{
			Service:      "session",
			Action:       "create",
			Summary:      "create a private session",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "languages", Aliases: []string{"langs"}, Prompt: "language ids", Type: FieldStringList},
				{Name: "modes", Prompt: "modes", Type: FieldStringList},
			},
			Run: runCreate,
		},
		{
			Service:      "session",
			Action:       "join",
			Summary:      "join a session",
			RequiresAuth: true,
			Fields:       []Field{withRequired(handleField), refreshField},
			Run:          lifecycle((*duel.Session).Join, (*async.Session).Join, true),
		},
		{
			Service:      "session",
			Action:       "start",
			Summary:      "start a session you own; it begins after a countdown",
			RequiresAuth: true,
			Fields:       []Field{handleField, refreshField},
			Run:          lifecycle((*duel.Session).Start, (*async.Session).Start, false),
		},
		{
			Service:      "session",
			Action:       "leave",
			Summary:      "leave a session",
			RequiresAuth: true,
			Fields:       []Field{handleField, refreshField},
			Run:          lifecycle((*duel.Session).Leave, (*async.Session).Leave, true),
		},
		{
			Service: "session",
			Action:  "refresh",
			Summary: "re-fetch the session state",
			Fields:  []Field{handleField},
			Run:     runRefresh,
		},
		{
			Service: "session",
			Action:  "ranking",
			Summary: "show participants by rank",
			Fields:  []Field{handleField},
			Run:     runRanking,
		},
		{
			Service:      "session",
			Action:       "question",
			Summary:      "show the puzzle of a started session",
			RequiresAuth: true,
			Fields:       []Field{handleField},
			Run:          runQuestion,
		},
		{
			Service:      "session",
			Action:       "play",
			Summary:      "run code against test cases",
			RequiresAuth: true,
			Fields: []Field{
				handleField, languageField, codeField,
				{Name: "tests", Aliases: []string{"test"}, Prompt: "test case indexes", Type: FieldIntList},
			},
			Run: runPlay,
		},
		{
			Service:      "session",
			Action:       "submit",
			Summary:      "submit code for grading",
			RequiresAuth: true,
			Fields:       []Field{handleField, languageField, codeField, refreshField},
			Run:          runSubmit,
		},
		{
			Service:      "session",
			Action:       "share",
			Summary:      "share your submitted solution",
			RequiresAuth: true,
			Fields: []Field{
				handleField,
				{Name: "submission", Aliases: []string{"id"}, Prompt: "submission id", Type: FieldInt64},
			},
			Run: runShare,
		},
		{
			Service:      "solution",
			Action:       "get",
			Summary:      "fetch a graded solution",
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission"}, Prompt: "submission id", Type: FieldInt64, Required: true},
			},
			Run: runSolution,
		},
		{
			Service:      "participant",
			Action:       "solution",
			Summary:      "fetch the shared solution of a participant",
			RequiresAuth: true,
			Fields: []Field{
				handleField,
				{Name: "id", Aliases: []string{"user"}, Prompt: "participant id", Type: FieldInt64, Required: true},
			},
			Run: runParticipantSolution,
		},
	}

	registry := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		registry[cmd.Key()] = cmd
	}
	return registry
}

// Keys returns the registry keys sorted for help output.
func Keys(registry map[string]Command) []string {
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func withRequired(f Field) Field {
	f.Required = true
	return f
}

// refreshOptions refreshes after the call when refresh= says so, or when
// it is absent and byDefault is set.
func refreshOptions(params Params, byDefault bool) ([]duel.CallOption, error) {
	enabled := byDefault
	if params.Has("refresh") {
		var err error
		if enabled, err = ParseBool(params.Get("refresh")); err != nil {
			return nil, appErr.ValidationError("refresh", err.Error())
		}
	}
	if !enabled {
		return nil, nil
	}
	return []duel.CallOption{duel.WithRefresh()}, nil
}

func runLogin(ctx context.Context, env *Env, params Params) (interface{}, error) {
	email, password := params.Get("email"), params.Get("password")
	return drive(ctx, env,
		func() (model.Actor, error) { return env.Client.Login(ctx, email, password) },
		func(c *async.Client) *async.Future[model.Actor] { return c.Login(ctx, email, password) })
}

func runLogout(ctx context.Context, env *Env, params Params) (interface{}, error) {
	env.Client.Logout()
	env.Forget()
	return map[string]bool{"logged_out": true}, nil
}

func runWhoami(ctx context.Context, env *Env, params Params) (interface{}, error) {
	actor, _ := env.Client.Actor()
	return actor, nil
}

func runLanguages(ctx context.Context, env *Env, params Params) (interface{}, error) {
	return drive(ctx, env,
		func() ([]string, error) { return env.Client.LanguageIDs(ctx) },
		func(c *async.Client) *async.Future[[]string] { return c.LanguageIDs(ctx) })
}

// runFetch always hits the platform; a tracked session is refreshed in
// place so its sandbox and puzzle survive.
func runFetch(ctx context.Context, env *Env, params Params) (interface{}, error) {
	if s, ok := env.Tracked(params.Get("handle")); ok {
		if err := refresh(ctx, env, s); err != nil {
			return nil, err
		}
		return NewSessionView(env.Track(s)), nil
	}
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	return NewSessionView(s), nil
}

func runPending(ctx context.Context, env *Env, params Params) (interface{}, error) {
	s, err := env.driveSession(ctx,
		func() (*duel.Session, error) { return env.Client.PendingSession(ctx) },
		func(c *async.Client) *async.Future[*async.Session] { return c.PendingSession(ctx) })
	if err != nil {
		return nil, err
	}
	if s == nil {
		return map[string]interface{}{"pending": nil}, nil
	}
	return NewSessionView(env.Track(s)), nil
}

func runCreate(ctx context.Context, env *Env, params Params) (interface{}, error) {
	var modes []duel.Mode
	for _, m := range ParseStringList(params.Get("modes")) {
		modes = append(modes, model.Mode(strings.ToUpper(m)))
	}
	languages := ParseStringList(params.Get("languages"))
	s, err := env.driveSession(ctx,
		func() (*duel.Session, error) { return env.Client.CreatePrivateSession(ctx, languages, modes) },
		func(c *async.Client) *async.Future[*async.Session] { return c.CreatePrivateSession(ctx, languages, modes) })
	if err != nil {
		return nil, err
	}
	return NewSessionView(env.Track(s)), nil
}

// lifecycle adapts a join/start/leave method, in both its blocking and
// future form, into a Handler.
func lifecycle(
	call func(*duel.Session, context.Context, ...duel.CallOption) error,
	future func(*async.Session, context.Context, ...duel.CallOption) *async.Future[struct{}],
	refreshByDefault bool,
) Handler {
	return func(ctx context.Context, env *Env, params Params) (interface{}, error) {
		opts, err := refreshOptions(params, refreshByDefault)
		if err != nil {
			return nil, err
		}
		s, err := env.Session(ctx, params.Get("handle"))
		if err != nil {
			return nil, err
		}
		err = env.runOn(ctx, s,
			func() error { return call(s, ctx, opts...) },
			func(f *async.Session) *async.Future[struct{}] { return future(f, ctx, opts...) })
		if err != nil {
			return nil, err
		}
		return NewSessionView(s), nil
	}
}

func refresh(ctx context.Context, env *Env, s *duel.Session) error {
	return env.runOn(ctx, s,
		func() error { return s.Refresh(ctx) },
		func(f *async.Session) *async.Future[struct{}] { return f.Refresh(ctx) })
}

func runRefresh(ctx context.Context, env *Env, params Params) (interface{}, error) {
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	if err := refresh(ctx, env, s); err != nil {
		return nil, err
	}
	return NewSessionView(s), nil
}

func runRanking(ctx context.Context, env *Env, params Params) (interface{}, error) {
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	ranking := s.Ranking()
	views := make([]ParticipantView, 0, len(ranking))
	for _, p := range ranking {
		views = append(views, NewParticipantView(p))
	}
	return views, nil
}

func runQuestion(ctx context.Context, env *Env, params Params) (interface{}, error) {
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	puzzle, err := driveOn(ctx, env, s,
		func() (*duel.Puzzle, error) { return s.Question(ctx) },
		func(f *async.Session) *async.Future[*duel.Puzzle] { return f.Question(ctx) })
	if err != nil {
		return nil, err
	}
	return NewPuzzleView(puzzle), nil
}

func runPlay(ctx context.Context, env *Env, params Params) (interface{}, error) {
	indexes, err := ParseIntList(params.Get("tests"))
	if err != nil {
		return nil, appErr.ValidationError("tests", err.Error())
	}
	code, err := params.File("code")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.InvalidParams)
	}
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	language := params.Get("language")
	results, err := driveOn(ctx, env, s,
		func() (map[int]duel.TestCaseResult, error) { return s.PlayTestCases(ctx, language, code, indexes) },
		func(f *async.Session) *async.Future[map[int]duel.TestCaseResult] {
			return f.PlayTestCases(ctx, language, code, indexes)
		})
	if err != nil {
		return nil, err
	}
	return NewResultViews(results), nil
}

func runSubmit(ctx context.Context, env *Env, params Params) (interface{}, error) {
	opts, err := refreshOptions(params, true)
	if err != nil {
		return nil, err
	}
	code, err := params.File("code")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.InvalidParams)
	}
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	language := params.Get("language")
	solution, err := driveOn(ctx, env, s,
		func() (*duel.Solution, error) { return s.Submit(ctx, language, code, opts...) },
		func(f *async.Session) *async.Future[*duel.Solution] { return f.Submit(ctx, language, code, opts...) })
	if err != nil {
		return nil, err
	}
	env.keepSolution(solution)
	return NewSolutionView(solution), nil
}

// runShare shares the given submission, or the last one submitted from
// this environment for the session.
func runShare(ctx context.Context, env *Env, params Params) (interface{}, error) {
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	solution, ok := env.lastSolution(s.Handle())
	if raw := params.Get("submission"); raw != "" {
		id, err := ParseInt64(raw)
		if err != nil {
			return nil, appErr.ValidationError("submission", err.Error())
		}
		solution, err = driveOn(ctx, env, s,
			func() (*duel.Solution, error) { return env.Client.Solution(ctx, id, s) },
			func(f *async.Session) *async.Future[*duel.Solution] { return env.Async.Solution(ctx, id, f) })
		if err != nil {
			return nil, err
		}
	} else if !ok {
		return nil, appErr.ValidationError("submission", "nothing submitted in this session, pass submission=")
	}
	err = env.runOn(ctx, s,
		func() error { return solution.Share(ctx) },
		func(f *async.Session) *async.Future[struct{}] { return f.Share(ctx, solution) })
	if err != nil {
		return nil, err
	}
	env.keepSolution(solution)
	return NewSolutionView(solution), nil
}

func runSolution(ctx context.Context, env *Env, params Params) (interface{}, error) {
	id, err := ParseInt64(params.Get("id"))
	if err != nil {
		return nil, appErr.ValidationError("id", err.Error())
	}
	solution, err := drive(ctx, env,
		func() (*duel.Solution, error) { return env.Client.Solution(ctx, id, nil) },
		func(c *async.Client) *async.Future[*duel.Solution] { return c.Solution(ctx, id, nil) })
	if err != nil {
		return nil, err
	}
	return NewSolutionView(solution), nil
}

func runParticipantSolution(ctx context.Context, env *Env, params Params) (interface{}, error) {
	id, err := ParseInt64(params.Get("id"))
	if err != nil {
		return nil, appErr.ValidationError("id", err.Error())
	}
	s, err := env.Session(ctx, params.Get("handle"))
	if err != nil {
		return nil, err
	}
	p, ok := s.Participant(id)
	if !ok {
		return nil, appErr.New(appErr.NotFound).WithMessage("participant not in session").WithDetail("participant_id", id)
	}
	solution, err := driveOn(ctx, env, s,
		func() (*duel.Solution, error) { return p.Solution(ctx) },
		func(f *async.Session) *async.Future[*duel.Solution] { return f.ParticipantSolution(ctx, p) })
	if err != nil {
		return nil, err
	}
	return NewSolutionView(solution), nil
}
