package duel

import (
	"sort"
	"time"

	"codeduel/internal/duel/model"
)

// User is the partial identity embedded in puzzles and solutions.
type User struct {
	ID       int64
	Handle   string
	Nickname string
}

func newUser(raw model.UserSnapshot) User {
	return User{ID: raw.UserID, Handle: raw.PublicHandle, Nickname: raw.Pseudo}
}

// Contribution describes who moderated a puzzle and its review status.
type Contribution struct {
	Type       string
	Status     string
	Moderators []User
}

// TestCase references externally stored input/output payloads.
type TestCase struct {
	index          int
	label          string
	inputBinaryID  int64
	outputBinaryID int64
}

func (t TestCase) Index() int { return t.index }
func (t TestCase) Label() string { return t.label }
func (t TestCase) InputBinaryID() int64 { return t.inputBinaryID }
func (t TestCase) OutputBinaryID() int64 { return t.outputBinaryID }

// Puzzle is the statement and ordered test cases of a session.
type Puzzle struct {
	session       *Session
	id            int64
	title         string
	mode          Mode
	statement     string
	stubGenerator string
	duration      time.Duration
	testCases     []TestCase
	languageIDs   []string
	contributor   User
	contribution  Contribution
}

func newPuzzle(session *Session, raw model.PuzzleSnapshot) *Puzzle {
	p := &Puzzle{
		session:       session,
		id:            raw.ID,
		title:         raw.Title,
		mode:          raw.Mode,
		statement:     raw.Statement,
		stubGenerator: raw.StubGenerator,
		duration:      time.Duration(raw.Duration) * time.Second,
		contributor:   newUser(raw.Contributor),
		contribution: Contribution{
			Type:   raw.Contribution.Type,
			Status: raw.Contribution.Status,
		},
	}
	for _, tc := range raw.TestCases {
		p.testCases = append(p.testCases, TestCase{
			index:          tc.Index,
			label:          tc.Label,
			inputBinaryID:  tc.InputBinaryID,
			outputBinaryID: tc.OutputBinaryID,
		})
	}
	sort.SliceStable(p.testCases, func(i, j int) bool {
		return p.testCases[i].index < p.testCases[j].index
	})
	for _, lang := range raw.AvailableLanguages {
		p.languageIDs = append(p.languageIDs, lang.ID)
	}
	for _, mod := range raw.Contribution.Moderators {
		p.contribution.Moderators = append(p.contribution.Moderators, newUser(mod))
	}
	return p
}

func (p *Puzzle) Session() *Session { return p.session }
func (p *Puzzle) ID() int64 { return p.id }
func (p *Puzzle) Title() string { return p.title }
func (p *Puzzle) Mode() Mode { return p.mode }
func (p *Puzzle) Statement() string { return p.statement }
func (p *Puzzle) StubGenerator() string { return p.stubGenerator }
func (p *Puzzle) Duration() time.Duration { return p.duration }
func (p *Puzzle) Contributor() User { return p.contributor }
func (p *Puzzle) Contribution() Contribution { return p.contribution }

// TestCases returns the test cases sorted by index.
func (p *Puzzle) TestCases() []TestCase {
	return append([]TestCase(nil), p.testCases...)
}

// TestCase looks up a test case by index.
func (p *Puzzle) TestCase(index int) (TestCase, bool) {
	for _, tc := range p.testCases {
		if tc.index == index {
			return tc, true
		}
	}
	return TestCase{}, false
}

// AllowedLanguageIDs lists the languages accepted for this puzzle.
func (p *Puzzle) AllowedLanguageIDs() []string {
	return append([]string(nil), p.languageIDs...)
}

// TestCaseResult is the outcome of running code against one test case.
type TestCaseResult struct {
	testCase TestCase
	success  bool
	found    string
	expected string
	output   string
	errMsg   string
}

// newTestCaseResult builds a result from the raw comparison payload. The
// platform omits the expected value on success, so expected falls back to
// the raw output then; found falls back to the raw output when absent.
func newTestCaseResult(tc TestCase, raw model.ComparisonResult) TestCaseResult {
	output, _ := deref(raw.Output)
	r := TestCaseResult{
		testCase: tc,
		success:  raw.Comparison.Success,
		output:   output,
	}
	if found, ok := deref(raw.Comparison.Found); ok {
		r.found = found
	} else {
		r.found = output
	}
	if r.success {
		r.expected = output
	} else {
		r.expected, _ = deref(raw.Comparison.Expected)
	}
	if raw.Error != nil {
		r.errMsg = raw.Error.Message
	}
	return r
}

func (r TestCaseResult) TestCase() TestCase { return r.testCase }
func (r TestCaseResult) Success() bool { return r.success }
func (r TestCaseResult) Found() string { return r.found }

// Expected is only trustworthy when Success is false.
func (r TestCaseResult) Expected() string { return r.expected }

// Output is the raw output field of the run.
func (r TestCaseResult) Output() string { return r.output }

// ErrorMessage is set when the code failed to compile or crashed.
func (r TestCaseResult) ErrorMessage() string { return r.errMsg }
