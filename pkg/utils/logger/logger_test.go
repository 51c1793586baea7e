package logger

import (
	"context"
	"testing"

	"codeduel/pkg/utils/contextkey"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(New(zap.New(core)))
	defer Set(nil)

	ctx := context.WithValue(context.Background(), contextkey.RequestID, "req-1")
	ctx = WithActor(ctx, 42)
	ctx = WithSession(ctx, "1234567abcdef")
	Info(ctx, "joined")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Errorf("request_id = %v", fields["request_id"])
	}
	if fields["actor_id"] != int64(42) {
		t.Errorf("actor_id = %v", fields["actor_id"])
	}
	if fields["session_handle"] != "1234567abcdef" {
		t.Errorf("session_handle = %v", fields["session_handle"])
	}
}

func TestNoGlobalLogger(t *testing.T) {
	Set(nil)
	Info(context.Background(), "dropped")
	if err := Sync(); err != nil {
		t.Fatalf("Sync() = %v", err)
	}
}
