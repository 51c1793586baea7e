package duel

import (
	"errors"
	"regexp"

	"codeduel/internal/duel/model"
	"codeduel/internal/duel/remote"
	appErr "codeduel/pkg/errors"
)

// handlePattern matches session handles: 7 digits then 32 hex characters.
var handlePattern = regexp.MustCompile(`^[0-9]{7}[0-9a-f]{32}$`)

// ValidHandle reports whether handle has the session handle format.
func ValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

func validateHandle(handle string) error {
	if !ValidHandle(handle) {
		return appErr.ValidationError("handle", "expected 7 digits followed by 32 lowercase hex characters").
			WithDetail("value", handle)
	}
	return nil
}

func validateModes(modes []model.Mode) error {
	if len(modes) == 0 {
		return appErr.ValidationError("modes", "at least one mode is required")
	}
	seen := make(map[model.Mode]bool, len(modes))
	for _, m := range modes {
		if !m.Valid() {
			return appErr.ValidationError("modes", "unknown mode "+string(m))
		}
		if seen[m] {
			return appErr.ValidationError("modes", "duplicate mode "+string(m))
		}
		seen[m] = true
	}
	return nil
}

func validateLanguages(languageIDs []string) error {
	if len(languageIDs) == 0 {
		return appErr.ValidationError("programming_languages", "at least one language is required")
	}
	for _, id := range languageIDs {
		if id == "" {
			return appErr.ValidationError("programming_languages", "empty language id")
		}
	}
	return nil
}

// mapConflict funnels a failed session call through the conflict table.
// Anything that is not a platform error, or carries an unknown id, is
// returned as is.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	var remoteErr *remote.Error
	if !errors.As(err, &remoteErr) {
		return err
	}
	return appErr.FromRemote(remoteErr.Code, remoteErr.Message, err)
}

// mapLogin funnels a failed login call through the login table.
func mapLogin(err error) error {
	var remoteErr *remote.Error
	if !errors.As(err, &remoteErr) {
		return err
	}
	return appErr.FromLoginRemote(remoteErr.Code, remoteErr.Message, err)
}
