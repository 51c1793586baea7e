package emulator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"codeduel/internal/duel/model"

	"github.com/google/uuid"
)

// Conflict ids the client maps to session errors.
const (
	idSessionNotFound = 502
	idSessionStarted  = 504
	idSessionFinished = 505
	idSessionFull     = 506
)

type sessionRecord struct {
	snap     model.SessionSnapshot
	duration time.Duration
}

type sandboxRecord struct {
	handle        string
	sessionHandle string
	actorID       int64
}

type solutionRecord struct {
	snap          model.SolutionSnapshot
	sessionHandle string
}

type testCase struct {
	model.TestCaseSnapshot
	input    string
	expected string
}

// puzzleCases is the fixed question served by every sandbox.
var puzzleCases = []testCase{
	{TestCaseSnapshot: model.TestCaseSnapshot{Index: 1, Label: "Simple", InputBinaryID: 9101, OutputBinaryID: 9201}, input: "hello", expected: "hello"},
	{TestCaseSnapshot: model.TestCaseSnapshot{Index: 2, Label: "Number", InputBinaryID: 9102, OutputBinaryID: 9202}, input: "42", expected: "42"},
	{TestCaseSnapshot: model.TestCaseSnapshot{Index: 3, Label: "Spaces", InputBinaryID: 9103, OutputBinaryID: 9203}, input: "code duel", expected: "code duel"},
	{TestCaseSnapshot: model.TestCaseSnapshot{Index: 4, Label: "Validator", InputBinaryID: 9104, OutputBinaryID: 9204}, input: "Echo!", expected: "Echo!"},
}

func findTestCase(index int) (testCase, bool) {
	for _, tc := range puzzleCases {
		if tc.Index == index {
			return tc, true
		}
	}
	return testCase{}, false
}

// newHandle builds a 7 digit serial followed by 32 hex characters.
func (s *Server) newHandle() string {
	s.nextSerial++
	return fmt.Sprintf("%07d%s", s.nextSerial%10000000, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// tick finishes sessions whose time ran out.
func (s *Server) tick(rec *sessionRecord) {
	if !rec.snap.Started || rec.snap.Finished {
		return
	}
	end := time.UnixMilli(rec.snap.StartTimestamp).Add(rec.duration)
	if !s.now().Before(end) {
		s.finish(rec)
	}
}

func (s *Server) finish(rec *sessionRecord) {
	rec.snap.Finished = true
	rec.snap.EndTime = millis(s.now())
	rec.snap.MsBeforeEnd = nil
	s.rank(rec)
}

// render copies the record into the snapshot a caller sees. Public sessions
// hide their modes and languages until they start.
func (s *Server) render(rec *sessionRecord) model.SessionSnapshot {
	s.tick(rec)
	snap := rec.snap
	snap.Players = append([]model.ParticipantSnapshot(nil), rec.snap.Players...)
	if snap.Type == model.VisibilityPublic && !snap.Started {
		snap.Modes = nil
		snap.ProgrammingLanguages = nil
	}
	if snap.Started && !snap.Finished {
		left := time.UnixMilli(snap.StartTimestamp).Add(rec.duration).Sub(s.now())
		snap.MsBeforeEnd = model.Ptr(left.Milliseconds())
	}
	if !snap.Started {
		snap.MsBeforeStart = rec.duration.Milliseconds()
	} else {
		snap.MsBeforeStart = 0
	}
	return snap
}

func (rec *sessionRecord) player(actorID int64) (int, bool) {
	for i, p := range rec.snap.Players {
		if p.CodingamerID == actorID {
			return i, true
		}
	}
	return -1, false
}

func (rec *sessionRecord) allCompleted() bool {
	for _, p := range rec.snap.Players {
		if p.TestSessionStatus != model.SandboxCompleted {
			return false
		}
	}
	return len(rec.snap.Players) > 0
}

// rank orders completed participants by score, then by code length in the
// shortest mode and by duration otherwise.
func (s *Server) rank(rec *sessionRecord) {
	var done []int
	for i, p := range rec.snap.Players {
		if p.TestSessionStatus == model.SandboxCompleted {
			done = append(done, i)
		}
	}
	players := rec.snap.Players
	value := func(v *int) int {
		if v == nil {
			return 0
		}
		return *v
	}
	duration := func(v *int64) int64 {
		if v == nil {
			return 0
		}
		return *v
	}
	sort.SliceStable(done, func(a, b int) bool {
		pa, pb := players[done[a]], players[done[b]]
		if value(pa.Score) != value(pb.Score) {
			return value(pa.Score) > value(pb.Score)
		}
		if rec.snap.Mode == model.ModeShortest && value(pa.Criterion) != value(pb.Criterion) {
			return value(pa.Criterion) < value(pb.Criterion)
		}
		return duration(pa.Duration) < duration(pb.Duration)
	})
	for rank, i := range done {
		players[i].Rank = model.Ptr(rank + 1)
	}
}
