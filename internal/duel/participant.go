package duel

import (
	"context"
	"fmt"
	"time"

	"codeduel/internal/duel/model"
	appErr "codeduel/pkg/errors"
)

// Participant is one joined user of a Session. Participants are rebuilt on
// every refresh; a reference taken before a refresh keeps the old values.
type Participant struct {
	session *Session
	raw     model.ParticipantSnapshot
}

func newParticipant(session *Session, raw model.ParticipantSnapshot) *Participant {
	return &Participant{session: session, raw: raw}
}

// Session returns the session the participant belongs to.
func (p *Participant) Session() *Session { return p.session }

// ID is the user id; it is always present.
func (p *Participant) ID() int64 { return p.raw.CodingamerID }

// Handle is the public user handle. The platform sometimes withholds it.
func (p *Participant) Handle() (string, bool) {
	return p.raw.CodingamerHandle, p.raw.CodingamerHandle != ""
}

func (p *Participant) Nickname() string { return p.raw.CodingamerNickname }

func (p *Participant) AvatarID() (int64, bool) { return deref(p.raw.CodingamerAvatarID) }

func (p *Participant) Status() model.ParticipantStatus { return p.raw.Status }

func (p *Participant) IsOwner() bool { return p.raw.Status == model.StatusOwner }

// JoinPosition is available once the session has started.
func (p *Participant) JoinPosition() (int, bool) { return deref(p.raw.Position) }

// Rank is not reliable until the session is finished.
func (p *Participant) Rank() (int, bool) { return deref(p.raw.Rank) }

// Duration is the time the participant spent solving.
func (p *Participant) Duration() (time.Duration, bool) {
	ms, ok := deref(p.raw.Duration)
	return time.Duration(ms) * time.Millisecond, ok
}

func (p *Participant) LanguageID() (string, bool) { return deref(p.raw.LanguageID) }

// Score is the percentage of passed test cases, 0 to 100.
func (p *Participant) Score() (int, bool) { return deref(p.raw.Score) }

// CodeLength is only meaningful in the shortest-code mode.
func (p *Participant) CodeLength() (int, bool) {
	if p.session != nil && p.session.state.mode != "" && p.session.state.mode != model.ModeShortest {
		return 0, false
	}
	return deref(p.raw.Criterion)
}

func (p *Participant) SolutionShared() (bool, bool) { return deref(p.raw.SolutionShared) }

func (p *Participant) SolutionID() (int64, bool) { return deref(p.raw.SubmissionID) }

func (p *Participant) SandboxStatus() model.SandboxStatus { return p.raw.TestSessionStatus }

func (p *Participant) SandboxHandle() string { return p.raw.TestSessionHandle }

func (p *Participant) String() string {
	return fmt.Sprintf("Participant(id=%d nickname=%q status=%s)", p.raw.CodingamerID, p.raw.CodingamerNickname, p.raw.Status)
}

// Solution fetches the participant's graded solution. It fails with
// SolutionNotShared unless the participant shared it.
func (p *Participant) Solution(ctx context.Context) (*Solution, error) {
	if _, err := p.session.client.requireActor(); err != nil {
		return nil, err
	}
	shared, _ := p.SolutionShared()
	id, ok := p.SolutionID()
	if !shared || !ok {
		return nil, appErr.New(appErr.SolutionNotShared).WithDetail("participant_id", p.ID())
	}
	return p.session.client.Solution(ctx, id, p.session)
}

func deref[T any](v *T) (T, bool) {
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}
