package emulator

import (
	"encoding/json"
	"net/http"
	"strings"

	"codeduel/internal/duel/model"
	"codeduel/internal/duel/remote"
	"codeduel/pkg/utils/logger"
	"codeduel/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// lookup fetches a session or writes the not-found failure. Callers hold s.mu.
func (s *Server) lookup(c *gin.Context, handle string) (*sessionRecord, bool) {
	rec, ok := s.sessions[handle]
	if !ok {
		response.Fail(c, idSessionNotFound, "clash not found")
		return nil, false
	}
	s.tick(rec)
	return rec, true
}

func (s *Server) actorAndHandle(c *gin.Context, args []json.RawMessage) (int64, string, bool) {
	var actorID int64
	var handle string
	if !decodeArg(args, 0, &actorID) || !decodeArg(args, 1, &handle) {
		response.BadRequest(c, "expected [userId, publicHandle]")
		return 0, "", false
	}
	if _, ok := s.account(actorID); !ok {
		response.Fail(c, idUnknownUser, "unknown codingamer")
		return 0, "", false
	}
	return actorID, handle, true
}

func (s *Server) findSession(c *gin.Context, args []json.RawMessage) {
	var handle string
	if !decodeArg(args, 0, &handle) {
		response.BadRequest(c, "expected [publicHandle]")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(c, handle)
	if !ok {
		return
	}
	response.Success(c, s.render(rec))
}

func (s *Server) pendingSessions(c *gin.Context, args []json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]model.SessionSnapshot, 0)
	for _, handle := range s.order {
		rec := s.sessions[handle]
		s.tick(rec)
		if rec.snap.Type == model.VisibilityPublic && !rec.snap.Started && len(rec.snap.Players) < rec.snap.NbPlayersMax {
			pending = append(pending, s.render(rec))
		}
	}
	response.Success(c, pending)
}

func (s *Server) joinSession(c *gin.Context, args []json.RawMessage) {
	actorID, handle, ok := s.actorAndHandle(c, args)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(c, handle)
	if !ok {
		return
	}
	switch {
	case rec.snap.Finished:
		response.Fail(c, idSessionFinished, "clash is finished")
		return
	case rec.snap.Started:
		response.Fail(c, idSessionStarted, "clash has already started")
		return
	}
	if _, joined := rec.player(actorID); joined {
		response.Empty(c)
		return
	}
	if len(rec.snap.Players) >= rec.snap.NbPlayersMax {
		response.Fail(c, idSessionFull, "clash is full")
		return
	}
	rec.snap.Players = append(rec.snap.Players, s.newPlayer(actorID, model.StatusStandard))
	logger.Info(c.Request.Context(), "player joined", zap.Int64("actor_id", actorID), zap.String("session_handle", handle))
	response.Empty(c)
}

func (s *Server) startSession(c *gin.Context, args []json.RawMessage) {
	actorID, handle, ok := s.actorAndHandle(c, args)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(c, handle)
	if !ok {
		return
	}
	switch {
	case rec.snap.Finished:
		response.Fail(c, idSessionFinished, "clash is finished")
		return
	case rec.snap.Started:
		response.Fail(c, idSessionStarted, "clash has already started")
		return
	}
	i, joined := rec.player(actorID)
	if !joined || rec.snap.Players[i].Status != model.StatusOwner {
		response.Fail(c, idNotOwner, "only the owner can start the clash")
		return
	}

	rec.snap.Started = true
	rec.snap.StartTimestamp = millis(s.now())
	rec.snap.Mode = model.ModeFastest
	if len(rec.snap.Modes) > 0 {
		rec.snap.Mode = rec.snap.Modes[0]
	}
	if len(rec.snap.ProgrammingLanguages) == 0 {
		rec.snap.ProgrammingLanguages = append([]string(nil), s.cfg.Languages...)
	}
	for i := range rec.snap.Players {
		rec.snap.Players[i].Position = model.Ptr(i + 1)
	}
	logger.Info(c.Request.Context(), "clash started", zap.String("session_handle", handle), zap.String("mode", string(rec.snap.Mode)))
	response.Empty(c)
}

func (s *Server) leaveSession(c *gin.Context, args []json.RawMessage) {
	actorID, handle, ok := s.actorAndHandle(c, args)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(c, handle)
	if !ok {
		return
	}
	if rec.snap.Started {
		response.Fail(c, idSessionStarted, "clash has already started")
		return
	}
	i, joined := rec.player(actorID)
	if !joined {
		response.Empty(c)
		return
	}
	wasOwner := rec.snap.Players[i].Status == model.StatusOwner
	rec.snap.Players = append(rec.snap.Players[:i], rec.snap.Players[i+1:]...)
	if wasOwner && len(rec.snap.Players) > 0 {
		rec.snap.Players[0].Status = model.StatusOwner
	}
	response.Empty(c)
}

func (s *Server) createPrivateSession(c *gin.Context, args []json.RawMessage) {
	var actorID int64
	var languages []string
	var modes []model.Mode
	if !decodeArg(args, 0, &actorID) || !decodeArg(args, 2, &languages) || !decodeArg(args, 3, &modes) {
		response.BadRequest(c, "expected [userId, duration, languages, modes]")
		return
	}
	if len(languages) == 0 || len(modes) == 0 {
		response.BadRequest(c, "languages and modes are required")
		return
	}
	for _, m := range modes {
		if !m.Valid() {
			response.BadRequest(c, "unknown mode "+string(m))
			return
		}
	}
	if _, ok := s.account(actorID); !ok {
		response.Fail(c, idUnknownUser, "unknown codingamer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.open(actorID, model.VisibilityPrivate, languages, modes)
	logger.Info(c.Request.Context(), "private clash created", zap.String("session_handle", rec.snap.PublicHandle))
	response.Success(c, s.render(rec))
}

// open registers a new session owned by actorID. Callers hold s.mu.
func (s *Server) open(actorID int64, visibility model.Visibility, languages []string, modes []model.Mode) *sessionRecord {
	rec := &sessionRecord{
		duration: s.cfg.Duration,
		snap: model.SessionSnapshot{
			PublicHandle:         s.newHandle(),
			NbPlayersMin:         1,
			NbPlayersMax:         s.cfg.MaxPlayers,
			Type:                 visibility,
			Modes:                append([]model.Mode(nil), modes...),
			ProgrammingLanguages: append([]string(nil), languages...),
			CreationTime:         millis(s.now()),
			Players:              []model.ParticipantSnapshot{s.newPlayer(actorID, model.StatusOwner)},
		},
	}
	s.sessions[rec.snap.PublicHandle] = rec
	s.order = append(s.order, rec.snap.PublicHandle)
	return rec
}

// OpenPublicSession seeds a public session owned by actorID and returns its handle.
func (s *Server) OpenPublicSession(actorID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open(actorID, model.VisibilityPublic, nil, []model.Mode{model.ModeFastest, model.ModeShortest, model.ModeReverse}).snap.PublicHandle
}

func (s *Server) newPlayer(actorID int64, status model.ParticipantStatus) model.ParticipantSnapshot {
	acc, _ := s.account(actorID)
	return model.ParticipantSnapshot{
		CodingamerID:       acc.ID,
		CodingamerHandle:   acc.Handle,
		CodingamerNickname: acc.Nickname,
		Status:             status,
		TestSessionStatus:  model.SandboxReady,
	}
}

func (s *Server) openSandbox(c *gin.Context, args []json.RawMessage) {
	actorID, handle, ok := s.actorAndHandle(c, args)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(c, handle)
	if !ok {
		return
	}
	i, joined := rec.player(actorID)
	if !joined {
		response.Fail(c, idNotParticipant, "not a participant of this clash")
		return
	}
	if existing := rec.snap.Players[i].TestSessionHandle; existing != "" {
		response.Success(c, model.SandboxTicket{Handle: existing})
		return
	}
	sandbox := &sandboxRecord{
		handle:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		sessionHandle: handle,
		actorID:       actorID,
	}
	s.sandboxes[sandbox.handle] = sandbox
	rec.snap.Players[i].TestSessionHandle = sandbox.handle
	response.Success(c, model.SandboxTicket{Handle: sandbox.handle})
}

// sandbox resolves a sandbox and its session. Callers hold s.mu.
func (s *Server) sandbox(c *gin.Context, args []json.RawMessage) (*sandboxRecord, *sessionRecord, bool) {
	var handle string
	if !decodeArg(args, 0, &handle) {
		response.BadRequest(c, "expected [testSessionHandle, ...]")
		return nil, nil, false
	}
	sandbox, ok := s.sandboxes[handle]
	if !ok {
		response.Fail(c, idUnknownSandbox, "unknown test session")
		return nil, nil, false
	}
	rec, ok := s.lookup(c, sandbox.sessionHandle)
	if !ok {
		return nil, nil, false
	}
	return sandbox, rec, true
}

func (s *Server) initSandbox(c *gin.Context, args []json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec, ok := s.sandbox(c, args)
	if !ok {
		return
	}
	languages := rec.snap.ProgrammingLanguages
	if len(languages) == 0 {
		languages = s.cfg.Languages
	}
	puzzle := model.PuzzleSnapshot{
		ID:            77,
		Title:         "Echo",
		Mode:          rec.snap.Mode,
		Statement:     "Print the line you are given.",
		StubGenerator: "read line:string(256)\nwrite answer",
		Duration:      int(rec.duration.Seconds()),
		Contributor:   model.UserSnapshot{UserID: 1003, PublicHandle: "00112233445566778899aabbccddeeff", Pseudo: "grace"},
		Contribution: model.ContributionSnapshot{
			Type:       "CLASHOFCODE",
			Status:     "ACCEPTED",
			Moderators: []model.UserSnapshot{{UserID: 1001, Pseudo: "ada"}},
		},
	}
	for _, tc := range puzzleCases {
		puzzle.TestCases = append(puzzle.TestCases, tc.TestCaseSnapshot)
	}
	for _, id := range languages {
		puzzle.AvailableLanguages = append(puzzle.AvailableLanguages, model.LanguageSnapshot{ID: id, Name: id})
	}
	var out model.SandboxSnapshot
	out.CurrentQuestion.Question = puzzle
	response.Success(c, out)
}

func judge(tc testCase, code string) model.ComparisonResult {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.ComparisonResult{
			Comparison: model.Comparison{Success: false, Expected: model.Ptr(tc.expected)},
			Error:      &model.RunError{Message: "no output"},
		}
	}
	if strings.Contains(code, tc.expected) {
		return model.ComparisonResult{
			Comparison: model.Comparison{Success: true},
			Output:     model.Ptr(tc.expected),
		}
	}
	found := strings.SplitN(code, "\n", 2)[0]
	return model.ComparisonResult{
		Comparison: model.Comparison{Success: false, Found: model.Ptr(found), Expected: model.Ptr(tc.expected)},
		Output:     model.Ptr(found),
	}
}

func (s *Server) play(c *gin.Context, args []json.RawMessage) {
	var payload remote.CodePayload
	if !decodeArg(args, 1, &payload) || payload.MultipleLanguages == nil {
		response.BadRequest(c, "expected [testSessionHandle, {code, programmingLanguageId, multipleLanguages}]")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec, ok := s.sandbox(c, args)
	if !ok {
		return
	}
	if rec.snap.Finished {
		response.Fail(c, idSessionFinished, "clash is finished")
		return
	}
	tc, ok := findTestCase(payload.MultipleLanguages.TestIndex)
	if !ok {
		response.Fail(c, idUnknownTest, "unknown test case")
		return
	}
	response.Success(c, judge(tc, payload.Code))
}

func (s *Server) submit(c *gin.Context, args []json.RawMessage) {
	var payload remote.CodePayload
	if !decodeArg(args, 1, &payload) {
		response.BadRequest(c, "expected [testSessionHandle, {code, programmingLanguageId}, null]")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sandbox, rec, ok := s.sandbox(c, args)
	if !ok {
		return
	}
	if rec.snap.Finished {
		response.Fail(c, idSessionFinished, "clash is finished")
		return
	}
	i, joined := rec.player(sandbox.actorID)
	if !joined {
		response.Fail(c, idNotParticipant, "not a participant of this clash")
		return
	}

	passed := 0
	for _, tc := range puzzleCases {
		if judge(tc, payload.Code).Comparison.Success {
			passed++
		}
	}
	s.nextSubmit++
	submissionID := s.nextSubmit
	now := s.now()
	acc, _ := s.account(sandbox.actorID)
	s.solutions[submissionID] = &solutionRecord{
		sessionHandle: rec.snap.PublicHandle,
		snap: model.SolutionSnapshot{
			TestSessionQuestionSubmissionID: submissionID,
			CodingamerID:                    acc.ID,
			CodingamerHandle:                acc.Handle,
			Pseudo:                          acc.Nickname,
			CommentableID:                   submissionID + 1,
			VotableID:                       submissionID + 2,
			CreationTime:                    millis(now),
			ProgrammingLanguageID:           payload.ProgrammingLanguageID,
			Code:                            payload.Code,
		},
	}

	since := rec.snap.StartTimestamp
	if since == 0 {
		since = rec.snap.CreationTime
	}
	p := &rec.snap.Players[i]
	p.Score = model.Ptr(passed * 100 / len(puzzleCases))
	p.Criterion = model.Ptr(len(payload.Code))
	p.Duration = model.Ptr(millis(now) - since)
	p.LanguageID = model.Ptr(payload.ProgrammingLanguageID)
	p.SubmissionID = model.Ptr(submissionID)
	p.SolutionShared = model.Ptr(false)
	p.TestSessionStatus = model.SandboxCompleted

	s.rank(rec)
	if rec.snap.Started && rec.allCompleted() {
		s.finish(rec)
	}
	logger.Info(c.Request.Context(), "solution submitted",
		zap.Int64("submission_id", submissionID),
		zap.Int("score", *p.Score),
	)
	c.JSON(http.StatusOK, submissionID)
}

func (s *Server) findSolution(c *gin.Context, args []json.RawMessage) {
	var actorID, submissionID int64
	if !decodeArg(args, 0, &actorID) || !decodeArg(args, 1, &submissionID) {
		response.BadRequest(c, "expected [userId, submissionId]")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sol, ok := s.solutions[submissionID]
	if !ok {
		response.Fail(c, idUnknownSolution, "solution not found")
		return
	}
	if sol.snap.CodingamerID != actorID && !sol.snap.Shared {
		response.Fail(c, idNotShared, "solution is not shared")
		return
	}
	response.Success(c, sol.snap)
}

func (s *Server) shareSolution(c *gin.Context, args []json.RawMessage) {
	actorID, handle, ok := s.actorAndHandle(c, args)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(c, handle)
	if !ok {
		return
	}
	i, joined := rec.player(actorID)
	if !joined {
		response.Fail(c, idNotParticipant, "not a participant of this clash")
		return
	}
	p := &rec.snap.Players[i]
	if p.SubmissionID == nil {
		response.Fail(c, idNoSubmission, "nothing submitted yet")
		return
	}
	p.SolutionShared = model.Ptr(true)
	if sol, ok := s.solutions[*p.SubmissionID]; ok {
		sol.snap.Shared = true
	}
	response.Empty(c)
}

// Login ids the client maps to authentication errors.
const (
	idEmailRequired     = 332
	idMalformedEmail    = 334
	idPasswordRequired  = 336
	idEmailNotLinked    = 393
	idIncorrectPassword = 396
)

func (s *Server) login(c *gin.Context, args []json.RawMessage) {
	var email, password string
	_ = decodeArg(args, 0, &email)
	_ = decodeArg(args, 1, &password)
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		response.Fail(c, idEmailRequired, "email is required")
		return
	case !strings.Contains(email, "@"):
		response.Fail(c, idMalformedEmail, "malformed email")
		return
	case password == "":
		response.Fail(c, idPasswordRequired, "password is required")
		return
	}
	for _, acc := range s.cfg.Accounts {
		if !strings.EqualFold(acc.Email, email) {
			continue
		}
		if acc.Password != password {
			response.Fail(c, idIncorrectPassword, "incorrect password")
			return
		}
		c.SetCookie("rememberMe", uuid.NewString(), 3600, "/", "", false, true)
		response.Success(c, model.LoginResult{CodinGamer: model.Actor{ID: acc.ID, Handle: acc.Handle, Nickname: acc.Nickname}})
		return
	}
	response.Fail(c, idEmailNotLinked, "no account linked to this email")
}

func (s *Server) languageIDs(c *gin.Context, args []json.RawMessage) {
	response.Success(c, s.cfg.Languages)
}
