package command

import (
	"sort"
	"time"

	"codeduel/internal/duel"
	"codeduel/internal/duel/model"
)

// SessionView is the printable form of a session.
type SessionView struct {
	Handle          string            `json:"handle"`
	JoinURL         string            `json:"join_url"`
	Public          bool              `json:"public"`
	MinPlayers      int               `json:"min_players"`
	MaxPlayers      int               `json:"max_players"`
	Started         bool              `json:"started"`
	Finished        bool              `json:"finished"`
	Mode            model.Mode        `json:"mode,omitempty"`
	Modes           []model.Mode      `json:"modes,omitempty"`
	Languages       []string          `json:"languages,omitempty"`
	StartTime       *time.Time        `json:"start_time,omitempty"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	TimeBeforeStart string            `json:"time_before_start,omitempty"`
	TimeBeforeEnd   string            `json:"time_before_end,omitempty"`
	Participants    []ParticipantView `json:"participants"`
}

// ParticipantView is the printable form of a participant.
type ParticipantView struct {
	ID             int64  `json:"id"`
	Nickname       string `json:"nickname,omitempty"`
	Status         string `json:"status"`
	Rank           *int   `json:"rank,omitempty"`
	Score          *int   `json:"score,omitempty"`
	Language       string `json:"language,omitempty"`
	Duration       string `json:"duration,omitempty"`
	CodeLength     *int   `json:"code_length,omitempty"`
	SolutionShared bool   `json:"solution_shared,omitempty"`
	SolutionID     *int64 `json:"solution_id,omitempty"`
}

// PuzzleView is the printable form of a puzzle.
type PuzzleView struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title,omitempty"`
	Mode      model.Mode     `json:"mode,omitempty"`
	Duration  string         `json:"duration"`
	Statement string         `json:"statement"`
	Languages []string       `json:"languages"`
	TestCases []TestCaseView `json:"test_cases"`
}

type TestCaseView struct {
	Index int    `json:"index"`
	Label string `json:"label,omitempty"`
}

// ResultView is one test case verdict.
type ResultView struct {
	Index    int    `json:"index"`
	Label    string `json:"label,omitempty"`
	Success  bool   `json:"success"`
	Found    string `json:"found"`
	Expected string `json:"expected,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SolutionView is the printable form of a graded submission.
type SolutionView struct {
	SubmissionID int64     `json:"submission_id"`
	AuthorID     int64     `json:"author_id"`
	Author       string    `json:"author,omitempty"`
	Language     string    `json:"language"`
	Created      time.Time `json:"created"`
	Shared       bool      `json:"shared"`
	Code         string    `json:"code"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func NewSessionView(s *duel.Session) SessionView {
	v := SessionView{
		Handle:     s.Handle(),
		JoinURL:    s.JoinURL(),
		Public:     s.Public(),
		MinPlayers: s.MinPlayers(),
		MaxPlayers: s.MaxPlayers(),
		Started:    s.Started(),
		Finished:   s.Finished(),
		Mode:       s.Mode(),
		Modes:      s.Modes(),
		Languages:  s.ProgrammingLanguages(),
		StartTime:  optionalTime(s.StartTime()),
		EndTime:    optionalTime(s.EndTime()),
	}
	if !s.Started() {
		v.TimeBeforeStart = s.TimeBeforeStart().String()
	}
	if left, ok := s.TimeBeforeEnd(); ok {
		v.TimeBeforeEnd = left.String()
	}
	participants := s.Participants()
	if s.Finished() {
		participants = s.Ranking()
	}
	v.Participants = make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		v.Participants = append(v.Participants, NewParticipantView(p))
	}
	return v
}

func NewParticipantView(p *duel.Participant) ParticipantView {
	v := ParticipantView{
		ID:         p.ID(),
		Nickname:   p.Nickname(),
		Status:     string(p.Status()),
		Rank:       optional(p.Rank()),
		Score:      optional(p.Score()),
		CodeLength: optional(p.CodeLength()),
		SolutionID: optional(p.SolutionID()),
	}
	v.Language, _ = p.LanguageID()
	if d, ok := p.Duration(); ok {
		v.Duration = d.String()
	}
	v.SolutionShared, _ = p.SolutionShared()
	return v
}

func NewPuzzleView(p *duel.Puzzle) PuzzleView {
	v := PuzzleView{
		ID:        p.ID(),
		Title:     p.Title(),
		Mode:      p.Mode(),
		Duration:  p.Duration().String(),
		Statement: p.Statement(),
		Languages: p.AllowedLanguageIDs(),
	}
	for _, tc := range p.TestCases() {
		v.TestCases = append(v.TestCases, TestCaseView{Index: tc.Index(), Label: tc.Label()})
	}
	return v
}

// NewResultViews flattens results ordered by test case index.
func NewResultViews(results map[int]duel.TestCaseResult) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, r := range results {
		v := ResultView{
			Index:   r.TestCase().Index(),
			Label:   r.TestCase().Label(),
			Success: r.Success(),
			Found:   r.Found(),
			Error:   r.ErrorMessage(),
		}
		if !r.Success() {
			v.Expected = r.Expected()
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Index < views[j].Index })
	return views
}

func NewSolutionView(s *duel.Solution) SolutionView {
	return SolutionView{
		SubmissionID: s.SubmissionID(),
		AuthorID:     s.Author().ID,
		Author:       s.Author().Nickname,
		Language:     s.LanguageID(),
		Created:      s.CreationTime(),
		Shared:       s.Shared(),
		Code:         s.Code(),
	}
}
