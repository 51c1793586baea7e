package duel_test

import (
	"context"
	"testing"

	"codeduel/internal/duel"
	"codeduel/internal/duel/model"
	"codeduel/internal/testutil"
)

var actor = model.Actor{ID: 42, Handle: "actor-handle", Nickname: "actor"}

func lobbySnapshot() model.SessionSnapshot {
	return model.SessionSnapshot{
		PublicHandle: testutil.Handle,
		NbPlayersMin: 1,
		NbPlayersMax: 8,
		Type:         model.VisibilityPrivate,
		Players: []model.ParticipantSnapshot{
			{CodingamerID: 42, CodingamerNickname: "actor", Status: model.StatusOwner},
			{CodingamerID: 7, CodingamerNickname: "rival", Status: model.StatusStandard},
		},
	}
}

func puzzleSnapshot() model.PuzzleSnapshot {
	return model.PuzzleSnapshot{
		ID:        99,
		Title:     "Echo",
		Statement: "Print the input.",
		Duration:  900,
		TestCases: []model.TestCaseSnapshot{
			{Index: 3, Label: "Big"},
			{Index: 1, Label: "Simple"},
			{Index: 2, Label: "Empty"},
			{Index: 0, Label: "Zero"},
		},
		AvailableLanguages: []model.LanguageSnapshot{{ID: "Python3"}, {ID: "Go"}},
	}
}

func newLoggedIn(t *testing.T) (*duel.Client, *testutil.FakeService, *duel.Session) {
	t.Helper()
	fake := testutil.NewFakeService(lobbySnapshot())
	fake.Puzzle = puzzleSnapshot()
	a := actor
	client := duel.NewClient(fake, duel.Options{Actor: &a})
	session, err := client.Session(context.Background(), testutil.Handle)
	testutil.AssertNoError(t, err)
	return client, fake, session
}
