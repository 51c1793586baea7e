package duel_test

import (
	"context"
	"errors"
	"testing"

	"codeduel/internal/duel"
	"codeduel/internal/duel/model"
	"codeduel/internal/duel/remote"
	"codeduel/internal/testutil"
	appErr "codeduel/pkg/errors"
)

func TestValidHandle(t *testing.T) {
	cases := map[string]bool{
		testutil.Handle: true,
		"123456":        false,
		"1234567" + "0123456789ABCDEF0123456789abcdef": false,
		"abcdefg" + "0123456789abcdef0123456789abcdef": false,
		testutil.Handle + "0":                          false,
	}
	for handle, want := range cases {
		testutil.AssertEqual(t, duel.ValidHandle(handle), want)
	}
}

func TestSessionRejectsMalformedHandleLocally(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	client := duel.NewClient(fake, duel.Options{})

	_, err := client.Session(context.Background(), "not-a-handle")
	testutil.AssertCode(t, err, appErr.ValidationFailed)
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 0)
}

func TestSessionNotFound(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	client := duel.NewClient(fake, duel.Options{})

	_, err := client.Session(context.Background(), "7654321"+"0123456789abcdef0123456789abcdef")
	testutil.AssertCode(t, err, appErr.SessionNotFound)
}

func TestNewSessionRejectsBrokenSnapshots(t *testing.T) {
	client := duel.NewClient(testutil.NewFakeService(lobbySnapshot()), duel.Options{})

	finished := lobbySnapshot()
	finished.Finished = true
	_, err := client.NewSession(finished)
	testutil.AssertCode(t, err, appErr.ValidationFailed)

	crowded := lobbySnapshot()
	crowded.NbPlayersMax = 1
	_, err = client.NewSession(crowded)
	testutil.AssertCode(t, err, appErr.ValidationFailed)

	unbounded := lobbySnapshot()
	unbounded.NbPlayersMax = 0
	_, err = client.NewSession(unbounded)
	testutil.AssertNoError(t, err)
}

func TestOperationsRequireLogin(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	client := duel.NewClient(fake, duel.Options{})
	ctx := context.Background()
	session, err := client.Session(ctx, testutil.Handle)
	testutil.AssertNoError(t, err)

	_, err = client.CreatePrivateSession(ctx, []string{"Python3"}, []duel.Mode{duel.ModeFastest})
	testutil.AssertCode(t, err, appErr.LoginRequired)
	_, err = client.JoinByHandle(ctx, testutil.Handle)
	testutil.AssertCode(t, err, appErr.LoginRequired)
	_, err = client.Solution(ctx, 1, nil)
	testutil.AssertCode(t, err, appErr.LoginRequired)
	testutil.AssertCode(t, session.Join(ctx), appErr.LoginRequired)
	testutil.AssertCode(t, session.Start(ctx), appErr.LoginRequired)
	testutil.AssertCode(t, session.Leave(ctx), appErr.LoginRequired)
	_, err = session.Question(ctx)
	testutil.AssertCode(t, err, appErr.LoginRequired)
	_, err = session.PlayTestCases(ctx, "Python3", "print(1)", nil)
	testutil.AssertCode(t, err, appErr.LoginRequired)
	_, err = session.Submit(ctx, "Python3", "print(1)")
	testutil.AssertCode(t, err, appErr.LoginRequired)

	for _, method := range []string{"JoinSession", "StartSession", "LeaveSession", "OpenSandbox", "CreatePrivateSession", "FetchSolution"} {
		testutil.AssertEqual(t, fake.Calls(method), 0)
	}
}

func TestLogin(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	fake.Actor = actor
	client := duel.NewClient(fake, duel.Options{})

	got, err := client.Login(context.Background(), "a@b.c", "secret")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, actor)
	testutil.AssertTrue(t, client.LoggedIn(), "client should be logged in")

	client.Logout()
	testutil.AssertFalse(t, client.LoggedIn(), "client should be logged out")
}

func TestLoginLocalChecks(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	client := duel.NewClient(fake, duel.Options{})

	_, err := client.Login(context.Background(), " ", "secret")
	testutil.AssertCode(t, err, appErr.EmailRequired)
	_, err = client.Login(context.Background(), "a@b.c", "")
	testutil.AssertCode(t, err, appErr.PasswordRequired)
	testutil.AssertEqual(t, fake.Calls("Login"), 0)
}

func TestLoginRemoteCodes(t *testing.T) {
	tests := []struct {
		id   int
		want appErr.ErrorCode
	}{
		{332, appErr.EmailRequired},
		{334, appErr.MalformedEmail},
		{336, appErr.PasswordRequired},
		{393, appErr.EmailNotLinked},
		{396, appErr.IncorrectPassword},
		{777, appErr.LoginFailed},
	}
	for _, tt := range tests {
		fake := testutil.NewFakeService(lobbySnapshot())
		fake.Errors["Login"] = &remote.Error{StatusCode: 422, Code: tt.id, Message: "nope"}
		client := duel.NewClient(fake, duel.Options{})

		_, err := client.Login(context.Background(), "a@b.c", "secret")
		testutil.AssertCode(t, err, tt.want)
		testutil.AssertFalse(t, client.LoggedIn(), "failed login must not set an actor")
	}
}

func TestCreatePrivateSessionValidatesLocally(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		modes     []duel.Mode
	}{
		{"no modes", []string{"Python3"}, nil},
		{"duplicate mode", []string{"Python3"}, []duel.Mode{duel.ModeFastest, duel.ModeFastest}},
		{"unknown mode", []string{"Python3"}, []duel.Mode{"LONGEST"}},
		{"no languages", nil, []duel.Mode{duel.ModeFastest}},
		{"empty language", []string{""}, []duel.Mode{duel.ModeFastest}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeService(lobbySnapshot())
			a := actor
			client := duel.NewClient(fake, duel.Options{Actor: &a})

			_, err := client.CreatePrivateSession(context.Background(), tt.languages, tt.modes)
			testutil.AssertCode(t, err, appErr.ValidationFailed)
			testutil.AssertEqual(t, fake.Calls("CreatePrivateSession"), 0)
		})
	}
}

type rejectAll struct{}

func (rejectAll) Validate(ctx context.Context, ids []string) error {
	return appErr.ValidationError("programming_languages", "unknown "+ids[0])
}

func TestCreatePrivateSessionConsultsLanguageValidator(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	a := actor
	client := duel.NewClient(fake, duel.Options{Actor: &a, Languages: rejectAll{}})

	_, err := client.CreatePrivateSession(context.Background(), []string{"Brainfuck"}, []duel.Mode{duel.ModeFastest})
	testutil.AssertCode(t, err, appErr.ValidationFailed)
	testutil.AssertEqual(t, fake.Calls("CreatePrivateSession"), 0)
}

func TestCreatePrivateSession(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	fake.Created = lobbySnapshot()
	fake.Created.Modes = []model.Mode{model.ModeShortest, model.ModeFastest}
	fake.Created.ProgrammingLanguages = []string{"Python3"}
	a := actor
	client := duel.NewClient(fake, duel.Options{Actor: &a})

	modes := []duel.Mode{duel.ModeShortest, duel.ModeFastest}
	session, err := client.CreatePrivateSession(context.Background(), []string{"Python3"}, modes)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, session.Public(), "private session reported public")
	testutil.AssertDeepEqual(t, session.ProgrammingLanguages(), []string{"Python3"})
	owner, ok := session.Owner()
	testutil.AssertTrue(t, ok, "owner expected")
	testutil.AssertEqual(t, owner.ID(), actor.ID)
	testutil.AssertDeepEqual(t, fake.CreatedArgs(), []interface{}{actor.ID, []string{"Python3"}, modes})
}

func TestJoinByHandleConflict(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	fake.Errors["JoinSession"] = &remote.Error{StatusCode: 422, Code: 504, Message: "already started"}
	a := actor
	client := duel.NewClient(fake, duel.Options{Actor: &a})

	_, err := client.JoinByHandle(context.Background(), testutil.Handle)
	testutil.AssertCode(t, err, appErr.SessionStarted)
	testutil.AssertEqual(t, fake.Calls("FetchSession"), 0)
}

func TestPendingSession(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	client := duel.NewClient(fake, duel.Options{})

	session, err := client.PendingSession(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, session == nil, "no pending session expected")

	pending := lobbySnapshot()
	pending.Type = ""
	fake.Pending = []model.SessionSnapshot{pending}
	session, err = client.PendingSession(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, session.Public(), "pending session defaults to public")
}

func TestTransportErrorsPassThrough(t *testing.T) {
	fake := testutil.NewFakeService(lobbySnapshot())
	boom := errors.New("connection reset")
	fake.Errors["FetchSession"] = boom
	client := duel.NewClient(fake, duel.Options{})

	_, err := client.Session(context.Background(), testutil.Handle)
	testutil.AssertTrue(t, errors.Is(err, boom), "transport error should be returned as is")
}
