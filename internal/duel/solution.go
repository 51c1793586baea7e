package duel

import (
	"context"
	"time"

	"codeduel/internal/duel/model"
	appErr "codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// Solution is a graded submission.
type Solution struct {
	client        *Client
	session       *Session
	submissionID  int64
	author        User
	commentableID int64
	votableID     int64
	creationTime  time.Time
	languageID    string
	code          string
	shared        bool
}

func newSolution(client *Client, session *Session, raw model.SolutionSnapshot) *Solution {
	return &Solution{
		client:       client,
		session:      session,
		submissionID: raw.TestSessionQuestionSubmissionID,
		author: User{
			ID:       raw.CodingamerID,
			Handle:   raw.CodingamerHandle,
			Nickname: raw.Pseudo,
		},
		commentableID: raw.CommentableID,
		votableID:     raw.VotableID,
		creationTime:  fromMillis(raw.CreationTime),
		languageID:    raw.ProgrammingLanguageID,
		code:          raw.Code,
		shared:        raw.Shared,
	}
}

func (s *Solution) SubmissionID() int64 { return s.submissionID }
func (s *Solution) Author() User { return s.author }
func (s *Solution) CommentableID() int64 { return s.commentableID }
func (s *Solution) VotableID() int64 { return s.votableID }
func (s *Solution) CreationTime() time.Time { return s.creationTime }
func (s *Solution) LanguageID() string { return s.languageID }
func (s *Solution) Code() string { return s.code }
func (s *Solution) Shared() bool { return s.shared }

// Session is the originating session, nil when unknown.
func (s *Solution) Session() *Session { return s.session }

// Share publishes the solution to the other participants. Shared only
// becomes true once the platform accepted the call; it never goes back.
func (s *Solution) Share(ctx context.Context) error {
	actorID, err := s.client.requireActor()
	if err != nil {
		return err
	}
	if s.session == nil {
		return appErr.ValidationError("session", "solution has no originating session")
	}
	ctx = s.session.logContext(ctx)
	if err := s.client.service.ShareSolution(ctx, actorID, s.session.Handle()); err != nil {
		return mapConflict(err)
	}
	s.shared = true
	logger.Info(ctx, "solution shared", zap.Int64("submission_id", s.submissionID))
	return nil
}
