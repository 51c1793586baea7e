// Package testutil holds assertions and fakes shared by package tests.
package testutil

import (
	"encoding/json"
	"reflect"
	"testing"

	appErr "codeduel/pkg/errors"
)

// AssertEqual checks if two values are equal
func AssertEqual(t testing.TB, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertDeepEqual compares slices, maps and structs.
func AssertDeepEqual(t testing.TB, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

// AssertTrue checks if a condition is true
func AssertTrue(t testing.TB, condition bool, message string) {
	t.Helper()
	if !condition {
		t.Errorf("assertion failed: %s", message)
	}
}

// AssertFalse checks if a condition is false
func AssertFalse(t testing.TB, condition bool, message string) {
	t.Helper()
	if condition {
		t.Errorf("assertion failed: %s", message)
	}
}

// AssertNoError fails the test immediately on err.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertCode checks that err carries the given application error code.
func AssertCode(t testing.TB, err error, want appErr.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", want)
	}
	if got := appErr.GetCode(err); got != want {
		t.Errorf("error code = %d, want %d (%v)", got, want, err)
	}
}

// MustMarshalJSON marshals an object to JSON or fails the test
func MustMarshalJSON(t testing.TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data or fails the test
func MustUnmarshalJSON(t testing.TB, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
