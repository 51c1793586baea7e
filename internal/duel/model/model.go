package model

// Mode is a session game mode.
type Mode string

const (
	ModeFastest  Mode = "FASTEST"
	ModeReverse  Mode = "REVERSE"
	ModeShortest Mode = "SHORTEST"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeFastest, ModeReverse, ModeShortest:
		return true
	default:
		return false
	}
}

// ParticipantStatus is the role of a participant inside a session.
type ParticipantStatus string

const (
	StatusOwner    ParticipantStatus = "OWNER"
	StatusStandard ParticipantStatus = "STANDARD"
)

// SandboxStatus is the progress of a participant's sandbox.
type SandboxStatus string

const (
	SandboxReady     SandboxStatus = "READY"
	SandboxCompleted SandboxStatus = "COMPLETED"
)

// Visibility of a session.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// SessionSnapshot is the public state of a session as served by the platform.
// Timestamps are unix milliseconds.
type SessionSnapshot struct {
	PublicHandle         string                `json:"publicHandle"`
	NbPlayersMin         int                   `json:"nbPlayersMin"`
	NbPlayersMax         int                   `json:"nbPlayersMax"`
	Type                 Visibility            `json:"type,omitempty"`
	Modes                []Mode                `json:"modes,omitempty"`
	ProgrammingLanguages []string              `json:"programmingLanguages,omitempty"`
	Started              bool                  `json:"started"`
	Finished             bool                  `json:"finished"`
	Mode                 Mode                  `json:"mode,omitempty"`
	CreationTime         int64                 `json:"creationTime,omitempty"`
	StartTimestamp       int64                 `json:"startTimestamp"`
	EndTime              int64                 `json:"endTime,omitempty"`
	MsBeforeStart        int64                 `json:"msBeforeStart"`
	MsBeforeEnd          *int64                `json:"msBeforeEnd,omitempty"`
	Players              []ParticipantSnapshot `json:"players"`
}

// ParticipantSnapshot is one player row of a SessionSnapshot.
// Only CodingamerID is guaranteed; progress fields appear as the session advances.
type ParticipantSnapshot struct {
	CodingamerID       int64             `json:"codingamerId"`
	CodingamerHandle   string            `json:"codingamerHandle,omitempty"`
	CodingamerNickname string            `json:"codingamerNickname,omitempty"`
	CodingamerAvatarID *int64            `json:"codingamerAvatarId,omitempty"`
	Status             ParticipantStatus `json:"status"`
	Position           *int              `json:"position,omitempty"`
	Rank               *int              `json:"rank,omitempty"`
	Duration           *int64            `json:"duration,omitempty"`
	LanguageID         *string           `json:"languageId,omitempty"`
	Score              *int              `json:"score,omitempty"`
	Criterion          *int              `json:"criterion,omitempty"`
	SolutionShared     *bool             `json:"solutionShared,omitempty"`
	SubmissionID       *int64            `json:"submissionId,omitempty"`
	TestSessionStatus  SandboxStatus     `json:"testSessionStatus,omitempty"`
	TestSessionHandle  string            `json:"testSessionHandle,omitempty"`
}

// SandboxTicket is returned when a sandbox is opened for a session.
type SandboxTicket struct {
	Handle string `json:"handle"`
	Direct bool   `json:"direct"`
}

// TestCaseSnapshot references externally stored test payloads.
type TestCaseSnapshot struct {
	Index          int    `json:"index"`
	Label          string `json:"label,omitempty"`
	InputBinaryID  int64  `json:"inputBinaryId"`
	OutputBinaryID int64  `json:"outputBinaryId"`
}

// LanguageSnapshot is an allowed language of a puzzle.
type LanguageSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UserSnapshot is the partial user identity embedded in puzzles and solutions.
type UserSnapshot struct {
	UserID       int64  `json:"userId"`
	PublicHandle string `json:"publicHandle,omitempty"`
	Pseudo       string `json:"pseudo,omitempty"`
	Avatar       *int64 `json:"avatar,omitempty"`
}

// ContributionSnapshot is the moderation metadata of a puzzle.
type ContributionSnapshot struct {
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	Moderators []UserSnapshot `json:"moderators"`
}

// PuzzleSnapshot is the question served by an initialized sandbox.
type PuzzleSnapshot struct {
	ID                 int64                `json:"id"`
	Title              string               `json:"title,omitempty"`
	Mode               Mode                 `json:"mode,omitempty"`
	Statement          string               `json:"statement"`
	StubGenerator      string               `json:"stubGenerator,omitempty"`
	Duration           int                  `json:"duration"`
	TestCases          []TestCaseSnapshot   `json:"testCases"`
	AvailableLanguages []LanguageSnapshot   `json:"availableLanguages"`
	Contributor        UserSnapshot         `json:"contributor"`
	Contribution       ContributionSnapshot `json:"contribution"`
}

// SandboxSnapshot is the payload of an initialized sandbox.
type SandboxSnapshot struct {
	CurrentQuestion struct {
		Question PuzzleSnapshot `json:"question"`
	} `json:"currentQuestion"`
}

// Comparison is the verdict part of a test case run.
type Comparison struct {
	Success  bool    `json:"success"`
	Found    *string `json:"found,omitempty"`
	Expected *string `json:"expected,omitempty"`
}

// RunError is set when the code failed to compile or crashed.
type RunError struct {
	Message string `json:"message"`
}

// ComparisonResult is the raw outcome of running code against one test case.
type ComparisonResult struct {
	Comparison Comparison `json:"comparison"`
	Output     *string    `json:"output,omitempty"`
	Error      *RunError  `json:"error,omitempty"`
}

// SolutionSnapshot is a graded submission.
type SolutionSnapshot struct {
	TestSessionQuestionSubmissionID int64  `json:"testSessionQuestionSubmissionId"`
	CodingamerID                    int64  `json:"codingamerId"`
	CodingamerHandle                string `json:"codingamerHandle,omitempty"`
	Pseudo                          string `json:"pseudo,omitempty"`
	CommentableID                   int64  `json:"commentableId"`
	VotableID                       int64  `json:"votableId"`
	CreationTime                    int64  `json:"creationTime"`
	ProgrammingLanguageID           string `json:"programmingLanguageId"`
	Code                            string `json:"code"`
	Shared                          bool   `json:"shared"`
}

// Actor is the authenticated user on whose behalf calls are made.
type Actor struct {
	ID       int64  `json:"userId"`
	Handle   string `json:"publicHandle,omitempty"`
	Nickname string `json:"pseudo,omitempty"`
}

// LoginResult is the payload returned by the login endpoint.
type LoginResult struct {
	CodinGamer Actor `json:"codinGamer"`
}

// Ptr returns a pointer to v; handy for optional snapshot fields.
func Ptr[T any](v T) *T {
	return &v
}
