package remote

import (
	"context"
	"encoding/json"

	httpclient "codeduel/internal/cli/http"
	"codeduel/internal/duel/model"
	appErr "codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// ServicesPrefix is the path under which the platform exposes its RPC endpoints.
const ServicesPrefix = "/services/"

// Endpoint names, relative to ServicesPrefix.
const (
	EndpointFindSession   = "ClashOfCode/findClashByHandle"
	EndpointPending       = "ClashOfCode/findPendingClashes"
	EndpointJoin          = "ClashOfCode/joinClashByHandle"
	EndpointStart         = "ClashOfCode/startClashByHandle"
	EndpointLeave         = "ClashOfCode/leaveClashByHandle"
	EndpointCreatePrivate = "ClashOfCode/createPrivateClash"
	EndpointOpenSandbox   = "ClashOfCode/startClashTestSession"
	EndpointShareSolution = "ClashOfCode/shareCodinGamerSolutionByHandle"
	EndpointInitSandbox   = "TestSession/startTestSession"
	EndpointPlay          = "TestSession/play"
	EndpointSubmit        = "TestSession/submit"
	EndpointFindSolution  = "Solution/findSolution"
	EndpointLogin         = "CodinGamer/loginSiteV2"
	EndpointLanguageIDs   = "ProgrammingLanguage/findAllIds"
)

// durationShort is the only duration type the platform offers for private sessions.
var durationShort = map[string]bool{"SHORT": true}

// CodePayload is the code body sent to play and submit.
type CodePayload struct {
	Code                  string         `json:"code"`
	ProgrammingLanguageID string         `json:"programmingLanguageId"`
	MultipleLanguages     *TestSelection `json:"multipleLanguages,omitempty"`
}

// TestSelection picks the test case a play call runs.
type TestSelection struct {
	TestIndex int `json:"testIndex"`
}

// HTTPService implements Service over the platform's JSON RPC convention:
// POST /services/<Service>/<method> with a JSON array of positional arguments.
type HTTPService struct {
	client *httpclient.Client
}

// NewHTTPService creates a new HTTPService.
func NewHTTPService(client *httpclient.Client) *HTTPService {
	return &HTTPService{client: client}
}

// call performs one round trip. Transport failures are wrapped as
// TransportError; platform failures come back as *Error.
func (s *HTTPService) call(ctx context.Context, endpoint string, args []interface{}, out interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return appErr.Wrapf(err, appErr.InvalidParams, "encode %s arguments failed", endpoint)
	}

	resp, err := s.client.Post(ctx, ServicesPrefix+endpoint, body)
	if err != nil {
		logger.Warn(ctx, "remote call failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", resp.RequestID),
			zap.Error(err),
		)
		return appErr.Wrapf(err, appErr.TransportError, "%s: %v", endpoint, err)
	}
	logger.Debug(ctx, "remote call",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration),
		zap.String("request_id", resp.RequestID),
	)

	if !resp.OK() {
		remoteErr := &Error{}
		if jsonErr := json.Unmarshal(resp.Body, remoteErr); jsonErr != nil {
			remoteErr = &Error{Message: string(resp.Body)}
		}
		remoteErr.StatusCode = resp.StatusCode
		return remoteErr
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return appErr.Wrapf(err, appErr.InvalidFormat, "decode %s response failed", endpoint)
	}
	return nil
}

func (s *HTTPService) FetchSession(ctx context.Context, handle string) (model.SessionSnapshot, error) {
	var snap model.SessionSnapshot
	err := s.call(ctx, EndpointFindSession, []interface{}{handle}, &snap)
	return snap, err
}

func (s *HTTPService) PendingSessions(ctx context.Context) ([]model.SessionSnapshot, error) {
	var snaps []model.SessionSnapshot
	err := s.call(ctx, EndpointPending, nil, &snaps)
	return snaps, err
}

func (s *HTTPService) JoinSession(ctx context.Context, actorID int64, handle string) error {
	return s.call(ctx, EndpointJoin, []interface{}{actorID, handle}, nil)
}

func (s *HTTPService) StartSession(ctx context.Context, actorID int64, handle string) error {
	return s.call(ctx, EndpointStart, []interface{}{actorID, handle}, nil)
}

func (s *HTTPService) LeaveSession(ctx context.Context, actorID int64, handle string) error {
	return s.call(ctx, EndpointLeave, []interface{}{actorID, handle}, nil)
}

func (s *HTTPService) CreatePrivateSession(ctx context.Context, actorID int64, languageIDs []string, modes []model.Mode) (model.SessionSnapshot, error) {
	var snap model.SessionSnapshot
	err := s.call(ctx, EndpointCreatePrivate, []interface{}{actorID, durationShort, languageIDs, modes}, &snap)
	return snap, err
}

func (s *HTTPService) OpenSandbox(ctx context.Context, actorID int64, handle string) (string, error) {
	var ticket model.SandboxTicket
	if err := s.call(ctx, EndpointOpenSandbox, []interface{}{actorID, handle}, &ticket); err != nil {
		return "", err
	}
	if ticket.Handle == "" {
		return "", appErr.Newf(appErr.InvalidFormat, "%s returned an empty sandbox handle", EndpointOpenSandbox)
	}
	return ticket.Handle, nil
}

func (s *HTTPService) InitSandbox(ctx context.Context, sandboxHandle string) (model.PuzzleSnapshot, error) {
	var snap model.SandboxSnapshot
	if err := s.call(ctx, EndpointInitSandbox, []interface{}{sandboxHandle}, &snap); err != nil {
		return model.PuzzleSnapshot{}, err
	}
	return snap.CurrentQuestion.Question, nil
}

func (s *HTTPService) RunTestCase(ctx context.Context, sandboxHandle, languageID, code string, index int) (model.ComparisonResult, error) {
	var result model.ComparisonResult
	payload := CodePayload{
		Code:                  code,
		ProgrammingLanguageID: languageID,
		MultipleLanguages:     &TestSelection{TestIndex: index},
	}
	err := s.call(ctx, EndpointPlay, []interface{}{sandboxHandle, payload}, &result)
	return result, err
}

func (s *HTTPService) SubmitSandbox(ctx context.Context, sandboxHandle, languageID, code string) (int64, error) {
	var submissionID int64
	payload := CodePayload{Code: code, ProgrammingLanguageID: languageID}
	err := s.call(ctx, EndpointSubmit, []interface{}{sandboxHandle, payload, nil}, &submissionID)
	return submissionID, err
}

func (s *HTTPService) FetchSolution(ctx context.Context, actorID, submissionID int64) (model.SolutionSnapshot, error) {
	var snap model.SolutionSnapshot
	err := s.call(ctx, EndpointFindSolution, []interface{}{actorID, submissionID}, &snap)
	return snap, err
}

func (s *HTTPService) ShareSolution(ctx context.Context, actorID int64, handle string) error {
	return s.call(ctx, EndpointShareSolution, []interface{}{actorID, handle}, nil)
}

func (s *HTTPService) Login(ctx context.Context, email, password string) (model.Actor, error) {
	var result model.LoginResult
	if err := s.call(ctx, EndpointLogin, []interface{}{email, password, true}, &result); err != nil {
		return model.Actor{}, err
	}
	if result.CodinGamer.ID == 0 {
		return model.Actor{}, appErr.Newf(appErr.InvalidFormat, "%s returned no user", EndpointLogin)
	}
	return result.CodinGamer, nil
}

func (s *HTTPService) LanguageIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.call(ctx, EndpointLanguageIDs, nil, &ids)
	return ids, err
}

var _ Service = (*HTTPService)(nil)
