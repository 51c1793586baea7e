// Package remote is the boundary to the platform that hosts coding duels.
// Every Service method is a single request/response round trip.
package remote

import (
	"context"
	"fmt"

	"codeduel/internal/duel/model"
)

// Service is the facade of the remote platform.
type Service interface {
	FetchSession(ctx context.Context, handle string) (model.SessionSnapshot, error)
	JoinSession(ctx context.Context, actorID int64, handle string) error
	StartSession(ctx context.Context, actorID int64, handle string) error
	LeaveSession(ctx context.Context, actorID int64, handle string) error
	CreatePrivateSession(ctx context.Context, actorID int64, languageIDs []string, modes []model.Mode) (model.SessionSnapshot, error)
	PendingSessions(ctx context.Context) ([]model.SessionSnapshot, error)

	OpenSandbox(ctx context.Context, actorID int64, handle string) (string, error)
	InitSandbox(ctx context.Context, sandboxHandle string) (model.PuzzleSnapshot, error)
	RunTestCase(ctx context.Context, sandboxHandle, languageID, code string, index int) (model.ComparisonResult, error)
	SubmitSandbox(ctx context.Context, sandboxHandle, languageID, code string) (int64, error)

	FetchSolution(ctx context.Context, actorID, submissionID int64) (model.SolutionSnapshot, error)
	ShareSolution(ctx context.Context, actorID int64, handle string) error

	Login(ctx context.Context, email, password string) (model.Actor, error)
	LanguageIDs(ctx context.Context) ([]string, error)
}

// Error is a structured failure reported by the platform: a numeric id
// plus a message. StatusCode is the HTTP status it arrived with, when known.
type Error struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"id"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error %d (http %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}
