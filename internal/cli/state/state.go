package state

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"codeduel/internal/duel/model"
)

// Cookie is the persisted form of a session cookie.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// ActorState stores the logged-in actor between CLI runs.
type ActorState struct {
	UserID   int64     `json:"user_id"`
	Handle   string    `json:"public_handle,omitempty"`
	Nickname string    `json:"nickname,omitempty"`
	Cookies  []Cookie  `json:"cookies,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// FromActor captures an actor and the transport's cookies.
func FromActor(actor model.Actor, cookies []*http.Cookie) ActorState {
	st := ActorState{
		UserID:   actor.ID,
		Handle:   actor.Handle,
		Nickname: actor.Nickname,
		SavedAt:  time.Now().UTC(),
	}
	for _, c := range cookies {
		st.Cookies = append(st.Cookies, Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain, Expires: c.Expires})
	}
	return st
}

// Actor returns the stored actor, or false when nobody is logged in.
func (st ActorState) Actor() (model.Actor, bool) {
	if st.UserID == 0 {
		return model.Actor{}, false
	}
	return model.Actor{ID: st.UserID, Handle: st.Handle, Nickname: st.Nickname}, true
}

// HTTPCookies converts the stored cookies back for the transport jar.
func (st ActorState) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain, Expires: c.Expires})
	}
	return out
}

func Load(path string) (ActorState, error) {
	var st ActorState
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read actor state failed: %w", err)
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse actor state failed: %w", err)
	}
	return st, nil
}

func Save(path string, st ActorState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create actor state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal actor state failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write actor state failed: %w", err)
	}
	return nil
}

func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove actor state failed: %w", err)
	}
	return nil
}
