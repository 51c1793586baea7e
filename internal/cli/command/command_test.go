package command_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeduel/internal/cli/command"
	"codeduel/internal/duel"
	"codeduel/internal/duel/model"
	"codeduel/internal/testutil"
	appErr "codeduel/pkg/errors"
)

func newEnv(t *testing.T, loggedIn bool) (*command.Env, *testutil.FakeService) {
	t.Helper()
	return newEnvWith(t, loggedIn, duel.Blocking)
}

func newEnvWith(t *testing.T, loggedIn bool, scheduling duel.Scheduling) (*command.Env, *testutil.FakeService) {
	t.Helper()
	fake := testutil.NewFakeService(model.SessionSnapshot{
		PublicHandle: testutil.Handle,
		NbPlayersMin: 1,
		NbPlayersMax: 8,
		Type:         model.VisibilityPrivate,
		Started:      true,
		Mode:         model.ModeFastest,
		Players: []model.ParticipantSnapshot{
			{CodingamerID: 42, CodingamerNickname: "actor", Status: model.StatusOwner},
			{CodingamerID: 7, CodingamerNickname: "rival", Status: model.StatusStandard,
				SolutionShared: model.Ptr(true), SubmissionID: model.Ptr(int64(700))},
		},
	})
	fake.Puzzle = model.PuzzleSnapshot{
		ID:        5,
		Title:     "Echo",
		Duration:  900,
		TestCases: []model.TestCaseSnapshot{{Index: 2, Label: "Two"}, {Index: 1, Label: "One"}},
	}
	fake.SubmitID = 900
	fake.Solutions[900] = model.SolutionSnapshot{TestSessionQuestionSubmissionID: 900, CodingamerID: 42, Code: "print(1)"}
	fake.Solutions[700] = model.SolutionSnapshot{TestSessionQuestionSubmissionID: 700, CodingamerID: 7, Shared: true}
	opts := duel.Options{Scheduling: scheduling}
	if loggedIn {
		opts.Actor = &model.Actor{ID: 42, Nickname: "actor"}
	}
	return command.NewEnv(duel.NewClient(fake, opts)), fake
}

func run(t *testing.T, env *command.Env, key string, kv ...string) (interface{}, error) {
	t.Helper()
	cmd, ok := command.Registry()[key]
	testutil.AssertTrue(t, ok, "command "+key+" should exist")
	params := command.Params{}
	for i := 0; i+1 < len(kv); i += 2 {
		params.Set(kv[i], kv[i+1])
	}
	return env.Execute(context.Background(), cmd, params)
}

func TestRegistryIsConsistent(t *testing.T) {
	registry := command.Registry()
	for key, cmd := range registry {
		testutil.AssertEqual(t, cmd.Key(), key)
		testutil.AssertTrue(t, cmd.Run != nil, key+" should have a handler")
		testutil.AssertTrue(t, cmd.Summary != "", key+" should have a summary")
	}
	keys := command.Keys(registry)
	testutil.AssertEqual(t, len(keys), len(registry))
	testutil.AssertEqual(t, keys[0], "language list")
}

func TestParamsAliases(t *testing.T) {
	params := command.Params{}
	params.Set("Lang", "Go")
	params.Set("h", testutil.Handle)
	params.Canonicalize(command.Registry()["session play"].Fields)
	testutil.AssertEqual(t, params.Get("language"), "Go")
	testutil.AssertEqual(t, params.Get("handle"), testutil.Handle)
	testutil.AssertFalse(t, params.Has("lang"), "alias should be removed")
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"": false, "yes": true, "off": false, "true": true, "0": false} {
		got, err := command.ParseBool(in)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, want)
	}
	_, err := command.ParseBool("maybe")
	testutil.AssertTrue(t, err != nil, "maybe is not a bool")
}

func TestExecuteRejectsMissingFields(t *testing.T) {
	env, fake := newEnv(t, true)
	_, err := run(t, env, "session play", "handle", testutil.Handle, "code", "x")
	testutil.AssertCode(t, err, appErr.RequiredFieldEmpty)
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 0)
}

func TestExecuteRequiresLogin(t *testing.T) {
	env, fake := newEnv(t, false)
	_, err := run(t, env, "session create", "languages", "Go")
	testutil.AssertCode(t, err, appErr.LoginRequired)
	testutil.AssertEqual(t, fake.Calls("CreatePrivateSession"), 0)
}

func TestHandleFallsBackToCurrentSession(t *testing.T) {
	env, _ := newEnv(t, true)
	_, err := run(t, env, "session refresh")
	testutil.AssertCode(t, err, appErr.ValidationFailed)

	out, err := run(t, env, "session fetch", "handle", testutil.Handle)
	testutil.AssertNoError(t, err)
	view := out.(command.SessionView)
	testutil.AssertEqual(t, view.Handle, testutil.Handle)
	testutil.AssertEqual(t, len(view.Participants), 2)
	testutil.AssertEqual(t, env.Current(), testutil.Handle)

	_, err = run(t, env, "session refresh")
	testutil.AssertNoError(t, err)
}

func TestQuestionReusesTrackedSession(t *testing.T) {
	env, fake := newEnv(t, true)
	out, err := run(t, env, "session question", "handle", testutil.Handle)
	testutil.AssertNoError(t, err)
	puzzle := out.(command.PuzzleView)
	testutil.AssertEqual(t, puzzle.TestCases[0].Index, 1)
	testutil.AssertEqual(t, puzzle.Duration, "15m0s")

	_, err = run(t, env, "session fetch")
	testutil.AssertNoError(t, err)
	_, err = run(t, env, "session question")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fake.Calls("OpenSandbox"), 1)
	testutil.AssertEqual(t, fake.Calls("InitSandbox"), 1)
}

func TestPlayReadsCodeFile(t *testing.T) {
	env, fake := newEnv(t, true)
	path := filepath.Join(t.TempDir(), "main.py")
	if err := os.WriteFile(path, []byte("print(input())"), 0o600); err != nil {
		t.Fatalf("write temp source failed: %v", err)
	}
	fake.Results[2] = model.ComparisonResult{
		Comparison: model.Comparison{Success: false, Found: model.Ptr("a"), Expected: model.Ptr("b")},
	}

	out, err := run(t, env, "session play", "handle", testutil.Handle, "lang", "Python3", "code_file", path, "tests", "2,9")
	testutil.AssertNoError(t, err)
	results := out.([]command.ResultView)
	testutil.AssertEqual(t, len(results), 1)
	testutil.AssertEqual(t, results[0].Label, "Two")
	testutil.AssertEqual(t, results[0].Expected, "b")
	testutil.AssertDeepEqual(t, fake.RunIndexes(), []int{2})
}

func TestPlayRejectsBadIndexes(t *testing.T) {
	env, fake := newEnv(t, true)
	_, err := run(t, env, "session play", "handle", testutil.Handle, "language", "Go", "code", "x", "tests", "1,two")
	testutil.AssertCode(t, err, appErr.ValidationFailed)
	testutil.AssertEqual(t, fake.Calls("RunTestCase"), 0)
}

func TestShareUsesLastSubmission(t *testing.T) {
	env, fake := newEnv(t, true)
	_, err := run(t, env, "session share", "handle", testutil.Handle)
	testutil.AssertCode(t, err, appErr.ValidationFailed)

	out, err := run(t, env, "session submit", "language", "Python3", "code", "print(1)", "refresh", "no")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.(command.SolutionView).SubmissionID, int64(900))
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 1)

	out, err = run(t, env, "session share")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, out.(command.SolutionView).Shared, "solution should be shared")
	testutil.AssertEqual(t, fake.Calls("ShareSolution"), 1)
}

func TestParticipantSolution(t *testing.T) {
	env, _ := newEnv(t, true)
	out, err := run(t, env, "participant solution", "handle", testutil.Handle, "user", "7")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.(command.SolutionView).SubmissionID, int64(700))

	_, err = run(t, env, "participant solution", "id", "42")
	testutil.AssertCode(t, err, appErr.SolutionNotShared)

	_, err = run(t, env, "participant solution", "id", "3")
	testutil.AssertCode(t, err, appErr.NotFound)
}

func TestLoginAndLogout(t *testing.T) {
	env, fake := newEnv(t, false)
	fake.Actor = model.Actor{ID: 42, Nickname: "actor"}
	out, err := run(t, env, "user login", "email", "ada@example.com", "password", "secret")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.(model.Actor).ID, int64(42))
	testutil.AssertTrue(t, env.Client.LoggedIn(), "client should be logged in")

	_, err = run(t, env, "session fetch", "handle", testutil.Handle)
	testutil.AssertNoError(t, err)
	_, err = run(t, env, "user logout")
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, env.Client.LoggedIn(), "client should be logged out")
	testutil.AssertEqual(t, env.Current(), "")
}

func TestStartDoesNotRefreshByDefault(t *testing.T) {
	env, fake := newEnv(t, true)
	_, err := run(t, env, "session start", "handle", testutil.Handle)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fake.Calls("StartSession"), 1)
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 1)

	_, err = run(t, env, "session start", "refresh", "yes")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 2)

	_, err = run(t, env, "session join")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 3)
}

func TestNonBlockingEnvRunsThroughFutures(t *testing.T) {
	env, fake := newEnvWith(t, true, duel.NonBlocking)
	testutil.AssertTrue(t, env.Async != nil, "non-blocking env should wrap the client")
	testutil.AssertTrue(t, env.Async.Blocking() == env.Client, "async client should wrap env.Client")

	blocking, _ := newEnv(t, true)
	testutil.AssertTrue(t, blocking.Async == nil, "blocking env should not wrap the client")

	out, err := run(t, env, "session question", "handle", testutil.Handle)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(out.(command.PuzzleView).TestCases), 2)

	out, err = run(t, env, "session play", "language", "Go", "code", "x")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(out.([]command.ResultView)), 2)

	_, err = run(t, env, "session submit", "language", "Go", "code", "x", "refresh", "no")
	testutil.AssertNoError(t, err)
	out, err = run(t, env, "session share")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, out.(command.SolutionView).Shared, "solution should be shared")

	out, err = run(t, env, "participant solution", "id", "7")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.(command.SolutionView).SubmissionID, int64(700))
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 1)
	testutil.AssertEqual(t, fake.Calls("OpenSandbox"), 1)
}

func TestNonBlockingWaitCanBeAbandoned(t *testing.T) {
	env, fake := newEnvWith(t, true, duel.NonBlocking)
	_, err := run(t, env, "session fetch", "handle", testutil.Handle)
	testutil.AssertNoError(t, err)

	entered, release := make(chan struct{}, 1), make(chan struct{})
	fake.OnJoin = func(int64, string) {
		entered <- struct{}{}
		<-release
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = env.Execute(ctx, command.Registry()["session join"], command.Params{"refresh": "no"})
	testutil.AssertTrue(t, errors.Is(err, context.DeadlineExceeded), "wait should end with the context")
	<-entered

	close(release)
	_, err = run(t, env, "session refresh")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fake.Calls("JoinSession"), 1)
}
