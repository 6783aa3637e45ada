package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/hfi/privacy-gateway/internal/conversation/redisstore"
	"github.com/hfi/privacy-gateway/internal/domain"
)

func open(t *testing.T) *redisstore.Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	s, err := redisstore.New(context.Background(), redisstore.Config{Address: mr.Addr()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendRead_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{1}

	if err := s.Append(ctx, thread, []domain.Message{{ID: "1", Role: domain.RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, thread, []domain.Message{{ID: "2", Role: domain.RoleAssistant, Content: "hello"}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := s.Read(ctx, thread)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 2 || got[0].Content != "hi" || got[1].Content != "hello" {
		t.Errorf("Read() = %+v, want [hi, hello] in order", got)
	}
}

func TestExists_TrueOnlyAfterAppend(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{2}

	exists, err := s.Exists(ctx, thread)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true before any Append, want false")
	}

	if err := s.Append(ctx, thread, []domain.Message{{ID: "1", Role: domain.RoleUser, Content: "x"}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	exists, err = s.Exists(ctx, thread)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false after Append, want true")
	}
}

func TestAppend_EmptyIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{3}

	if err := s.Append(ctx, thread, nil); err != nil {
		t.Fatalf("Append(nil) error = %v", err)
	}
	exists, err := s.Exists(ctx, thread)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true after appending nothing, want false")
	}
}

func TestClear_RemovesThread(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{4}

	if err := s.Append(ctx, thread, []domain.Message{{ID: "1", Role: domain.RoleUser, Content: "x"}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Clear(ctx, thread); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	exists, err := s.Exists(ctx, thread)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true after Clear, want false")
	}
}
