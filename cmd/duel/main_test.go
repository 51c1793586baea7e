package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"codeduel/internal/cli/config"
	"codeduel/internal/emulator"
	"codeduel/internal/testutil"
	appErr "codeduel/pkg/errors"
)

func TestFetchAgainstEmulator(t *testing.T) {
	srv := emulator.New(emulator.DefaultConfig())
	handle := srv.OpenPublicSession(1001)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	t.Setenv(config.EnvStatePath, filepath.Join(t.TempDir(), "state.json"))

	for _, mode := range []string{"blocking", "non-blocking"} {
		root := newRootCmd()
		root.SetArgs([]string{"--config", "", "--base", ts.URL, "--scheduling", mode, "fetch", handle})
		testutil.AssertNoError(t, root.ExecuteContext(context.Background()))
	}

	root := newRootCmd()
	root.SetArgs([]string{"--config", "", "--base", ts.URL, "fetch", "9999999" + "ffffffffffffffffffffffffffffffff"})
	testutil.AssertCode(t, root.ExecuteContext(context.Background()), appErr.SessionNotFound)
}

func TestRejectsUnknownScheduling(t *testing.T) {
	t.Setenv(config.EnvStatePath, filepath.Join(t.TempDir(), "state.json"))
	root := newRootCmd()
	root.SetArgs([]string{"--config", "", "--scheduling", "eventually", "fetch", "x"})
	testutil.AssertCode(t, root.ExecuteContext(context.Background()), appErr.ValidationFailed)
}
