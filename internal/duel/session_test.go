package duel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeduel/internal/duel"
	"codeduel/internal/duel/model"
	"codeduel/internal/duel/remote"
	"codeduel/internal/testutil"
	appErr "codeduel/pkg/errors"
)

func TestSessionAccessors(t *testing.T) {
	snap := lobbySnapshot()
	snap.Started = true
	snap.Modes = []model.Mode{model.ModeReverse}
	snap.MsBeforeEnd = model.Ptr[int64](60000)
	snap.StartTimestamp = 1700000000000
	client := duel.NewClient(testutil.NewFakeService(snap), duel.Options{SiteURL: "https://duel.example/"})

	session, err := client.NewSession(snap)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, session.JoinURL(), "https://duel.example/clashofcode/clash/"+testutil.Handle)
	testutil.AssertDeepEqual(t, session.Modes(), []duel.Mode{duel.ModeReverse})
	testutil.AssertTrue(t, session.ProgrammingLanguages() == nil, "languages should be unknown")
	left, ok := session.TimeBeforeEnd()
	testutil.AssertTrue(t, ok, "time before end should be known once started")
	testutil.AssertEqual(t, left, time.Minute)
	testutil.AssertEqual(t, session.StartTime().UnixMilli(), int64(1700000000000))
	testutil.AssertTrue(t, session.EndTime().IsZero(), "end time unset")
	testutil.AssertEqual(t, len(session.Participants()), 2)

	p, ok := session.Participant(7)
	testutil.AssertTrue(t, ok, "participant 7 expected")
	testutil.AssertEqual(t, p.Nickname(), "rival")
	testutil.AssertFalse(t, p.IsOwner(), "rival is not the owner")
	_, ok = p.Rank()
	testutil.AssertFalse(t, ok, "rank unknown in lobby")
}

func TestRefreshOverwritesState(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	before := session.Participants()[0]

	next := lobbySnapshot()
	next.Started = true
	next.Players = next.Players[:1]
	fake.SetSession(next)

	testutil.AssertNoError(t, session.Refresh(context.Background()))
	testutil.AssertTrue(t, session.Started(), "refresh should apply started")
	testutil.AssertEqual(t, len(session.Participants()), 1)
	testutil.AssertEqual(t, before.Nickname(), "actor")
}

func TestRefreshRejectsInvalidSnapshot(t *testing.T) {
	_, fake, session := newLoggedIn(t)

	broken := lobbySnapshot()
	broken.Finished = true
	fake.SetSession(broken)

	testutil.AssertCode(t, session.Refresh(context.Background()), appErr.ValidationFailed)
	testutil.AssertFalse(t, session.Finished(), "rejected snapshot must leave the session unchanged")
	testutil.AssertEqual(t, len(session.Participants()), 2)
}

func TestJoinWithRefresh(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	fake.OnJoin = func(actorID int64, handle string) {
		snap := lobbySnapshot()
		snap.Players = append(snap.Players, model.ParticipantSnapshot{CodingamerID: 8, CodingamerNickname: "late"})
		fake.SetSession(snap)
	}

	testutil.AssertNoError(t, session.Join(context.Background()))
	testutil.AssertEqual(t, len(session.Participants()), 2)

	testutil.AssertNoError(t, session.Join(context.Background(), duel.WithRefresh()))
	testutil.AssertEqual(t, len(session.Participants()), 3)
	testutil.AssertEqual(t, fake.Calls("JoinSession"), 2)
}

func TestLifecycleConflicts(t *testing.T) {
	tests := []struct {
		method string
		id     int
		want   appErr.ErrorCode
	}{
		{"JoinSession", 506, appErr.SessionFull},
		{"JoinSession", 505, appErr.SessionFinished},
		{"StartSession", 504, appErr.SessionStarted},
		{"LeaveSession", 502, appErr.SessionNotFound},
	}
	for _, tt := range tests {
		_, fake, session := newLoggedIn(t)
		fake.Errors[tt.method] = &remote.Error{StatusCode: 422, Code: tt.id, Message: "conflict"}

		var err error
		switch tt.method {
		case "JoinSession":
			err = session.Join(context.Background())
		case "StartSession":
			err = session.Start(context.Background())
		case "LeaveSession":
			err = session.Leave(context.Background())
		}
		testutil.AssertCode(t, err, tt.want)
		var remoteErr *remote.Error
		testutil.AssertTrue(t, errors.As(err, &remoteErr), "platform error should stay in the chain")
	}
}

func TestUnknownRemoteCodePassesThrough(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	raw := &remote.Error{StatusCode: 500, Code: 999, Message: "weird"}
	fake.Errors["StartSession"] = raw

	err := session.Start(context.Background())
	var remoteErr *remote.Error
	testutil.AssertTrue(t, errors.As(err, &remoteErr), "expected *remote.Error")
	testutil.AssertEqual(t, remoteErr.Code, 999)
	testutil.AssertEqual(t, remoteErr.Message, "weird")
	testutil.AssertFalse(t, appErr.GetCode(err).Conflict(), "unknown id is not a conflict")
}

func TestQuestionIsMemoized(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	ctx := context.Background()

	first, err := session.Question(ctx)
	testutil.AssertNoError(t, err)
	second, err := session.Question(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, first == second, "puzzle should be cached")

	testutil.AssertNoError(t, session.Refresh(ctx))
	_, err = session.Question(ctx)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, fake.Calls("OpenSandbox"), 1)
	testutil.AssertEqual(t, fake.Calls("InitSandbox"), 1)
	handle, ok := session.SandboxHandle()
	testutil.AssertTrue(t, ok, "sandbox handle cached")
	testutil.AssertEqual(t, handle, "sandbox-1")
}

func TestQuestionFailedInitKeepsSandbox(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	ctx := context.Background()
	fake.Errors["InitSandbox"] = errors.New("timeout")

	_, err := session.Question(ctx)
	testutil.AssertTrue(t, err != nil, "init failure expected")

	delete(fake.Errors, "InitSandbox")
	_, err = session.Question(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fake.Calls("OpenSandbox"), 1)
	testutil.AssertEqual(t, fake.Calls("InitSandbox"), 2)
}

func TestPuzzleTestCasesSorted(t *testing.T) {
	_, _, session := newLoggedIn(t)

	puzzle, err := session.Question(context.Background())
	testutil.AssertNoError(t, err)
	var indexes []int
	for _, tc := range puzzle.TestCases() {
		indexes = append(indexes, tc.Index())
	}
	testutil.AssertDeepEqual(t, indexes, []int{0, 1, 2, 3})
	testutil.AssertEqual(t, puzzle.Duration(), 15*time.Minute)
	testutil.AssertDeepEqual(t, puzzle.AllowedLanguageIDs(), []string{"Python3", "Go"})
	tc, ok := puzzle.TestCase(2)
	testutil.AssertTrue(t, ok, "test case 2 expected")
	testutil.AssertEqual(t, tc.Label(), "Empty")
	tc, ok = puzzle.TestCase(0)
	testutil.AssertTrue(t, ok, "test case 0 expected")
	testutil.AssertEqual(t, tc.Label(), "Zero")
}

func TestPlayTestCasesSelection(t *testing.T) {
	_, fake, session := newLoggedIn(t)

	results, err := session.PlayTestCases(context.Background(), "Python3", "print(input())", []int{2})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(results), 1)
	_, ok := results[2]
	testutil.AssertTrue(t, ok, "result for index 2 expected")
	testutil.AssertDeepEqual(t, fake.RunIndexes(), []int{2})

	results, err = session.PlayTestCases(context.Background(), "Python3", "print(input())", []int{0, 42})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(results), 1)
	zero, ok := results[0]
	testutil.AssertTrue(t, ok, "result for index 0 expected")
	testutil.AssertEqual(t, zero.TestCase().Label(), "Zero")
	testutil.AssertDeepEqual(t, fake.RunIndexes(), []int{2, 0})
}

func TestPlayTestCasesRunsAllInOrder(t *testing.T) {
	_, fake, session := newLoggedIn(t)

	results, err := session.PlayTestCases(context.Background(), "Python3", "print(input())", nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(results), 4)
	testutil.AssertDeepEqual(t, fake.RunIndexes(), []int{0, 1, 2, 3})
}

func TestPlayTestCasesAbortsOnFailure(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	fake.RunErrors[2] = &remote.Error{StatusCode: 422, Code: 505, Message: "finished"}

	results, err := session.PlayTestCases(context.Background(), "Python3", "x", nil)
	testutil.AssertCode(t, err, appErr.SessionFinished)
	testutil.AssertTrue(t, results == nil, "no partial results on failure")
	testutil.AssertDeepEqual(t, fake.RunIndexes(), []int{0, 1, 2})
}

func TestTestCaseResultConstruction(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	fake.Results[1] = model.ComparisonResult{
		Comparison: model.Comparison{Success: true},
		Output:     model.Ptr("hello"),
	}
	fake.Results[2] = model.ComparisonResult{
		Comparison: model.Comparison{Success: false, Found: model.Ptr("hell"), Expected: model.Ptr("hello")},
		Output:     model.Ptr("hell"),
	}
	fake.Results[3] = model.ComparisonResult{
		Comparison: model.Comparison{Success: false, Expected: model.Ptr("42")},
		Error:      &model.RunError{Message: "SyntaxError"},
	}

	results, err := session.PlayTestCases(context.Background(), "Python3", "x", nil)
	testutil.AssertNoError(t, err)

	pass := results[1]
	testutil.AssertTrue(t, pass.Success(), "index 1 passes")
	testutil.AssertEqual(t, pass.Found(), "hello")
	testutil.AssertEqual(t, pass.Expected(), "hello")

	fail := results[2]
	testutil.AssertFalse(t, fail.Success(), "index 2 fails")
	testutil.AssertEqual(t, fail.Found(), "hell")
	testutil.AssertEqual(t, fail.Expected(), "hello")
	testutil.AssertEqual(t, fail.TestCase().Label(), "Empty")

	crash := results[3]
	testutil.AssertEqual(t, crash.Found(), "")
	testutil.AssertEqual(t, crash.Expected(), "42")
	testutil.AssertEqual(t, crash.ErrorMessage(), "SyntaxError")
}

func TestSubmitAcquiresQuestionFirst(t *testing.T) {
	_, fake, session := newLoggedIn(t)
	fake.SubmitID = 555
	fake.Solutions[555] = model.SolutionSnapshot{
		TestSessionQuestionSubmissionID: 555,
		CodingamerID:                    42,
		ProgrammingLanguageID:           "Python3",
		Code:                            "print(input())",
		CreationTime:                    1700000000000,
	}

	solution, err := session.Submit(context.Background(), "Python3", "print(input())")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, solution.SubmissionID(), int64(555))
	testutil.AssertEqual(t, solution.Author().ID, int64(42))
	testutil.AssertTrue(t, solution.Session() == session, "solution should point back to the session")
	testutil.AssertFalse(t, solution.Shared(), "fresh solution is not shared")
	testutil.AssertEqual(t, fake.Calls("OpenSandbox"), 1)
	testutil.AssertEqual(t, fake.Calls("InitSandbox"), 1)
	testutil.AssertEqual(t, fake.Calls("SubmitSandbox"), 1)
	testutil.AssertEqual(t, fake.Calls("FetchSolution"), 1)
}

func TestSolutionShare(t *testing.T) {
	client, fake, session := newLoggedIn(t)
	ctx := context.Background()
	solution, err := session.Submit(ctx, "Python3", "x")
	testutil.AssertNoError(t, err)

	fake.Errors["ShareSolution"] = errors.New("unavailable")
	testutil.AssertTrue(t, solution.Share(ctx) != nil, "share failure expected")
	testutil.AssertFalse(t, solution.Shared(), "failed share must not flip the flag")

	delete(fake.Errors, "ShareSolution")
	testutil.AssertNoError(t, solution.Share(ctx))
	testutil.AssertTrue(t, solution.Shared(), "share should flip the flag")

	orphan, err := client.Solution(ctx, 1, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertCode(t, orphan.Share(ctx), appErr.ValidationFailed)
}

func TestParticipantSolution(t *testing.T) {
	snap := lobbySnapshot()
	snap.Started = true
	snap.Finished = true
	snap.Players[0].SolutionShared = model.Ptr(false)
	snap.Players[0].SubmissionID = model.Ptr[int64](10)
	snap.Players[1].SolutionShared = model.Ptr(true)
	snap.Players[1].SubmissionID = model.Ptr[int64](11)

	client, fake, _ := newLoggedIn(t)
	fake.Solutions[11] = model.SolutionSnapshot{TestSessionQuestionSubmissionID: 11, Code: "shared code"}
	session, err := client.NewSession(snap)
	testutil.AssertNoError(t, err)

	_, err = session.Participants()[0].Solution(context.Background())
	testutil.AssertCode(t, err, appErr.SolutionNotShared)

	solution, err := session.Participants()[1].Solution(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, solution.Code(), "shared code")
}

func TestRanking(t *testing.T) {
	snap := lobbySnapshot()
	snap.Started = true
	snap.Finished = true
	snap.Players = []model.ParticipantSnapshot{
		{CodingamerID: 1, Rank: model.Ptr(2)},
		{CodingamerID: 2},
		{CodingamerID: 3, Rank: model.Ptr(1)},
		{CodingamerID: 4, Rank: model.Ptr(2)},
	}
	client := duel.NewClient(testutil.NewFakeService(snap), duel.Options{})
	session, err := client.NewSession(snap)
	testutil.AssertNoError(t, err)

	var ids []int64
	for _, p := range session.Ranking() {
		ids = append(ids, p.ID())
	}
	testutil.AssertDeepEqual(t, ids, []int64{3, 1, 4, 2})
	testutil.AssertEqual(t, session.Participants()[0].ID(), int64(1))
}

func TestCodeLengthOnlyInShortestMode(t *testing.T) {
	snap := lobbySnapshot()
	snap.Started = true
	snap.Mode = model.ModeFastest
	snap.Players[0].Criterion = model.Ptr(120)
	client := duel.NewClient(testutil.NewFakeService(snap), duel.Options{})

	session, err := client.NewSession(snap)
	testutil.AssertNoError(t, err)
	_, ok := session.Participants()[0].CodeLength()
	testutil.AssertFalse(t, ok, "code length is meaningless outside shortest mode")

	snap.Mode = model.ModeShortest
	session, err = client.NewSession(snap)
	testutil.AssertNoError(t, err)
	n, ok := session.Participants()[0].CodeLength()
	testutil.AssertTrue(t, ok, "code length expected")
	testutil.AssertEqual(t, n, 120)
}
