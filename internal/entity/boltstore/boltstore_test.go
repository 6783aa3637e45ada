package boltstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
	"github.com/hfi/privacy-gateway/internal/entity/boltstore"
)

func open(t *testing.T) *boltstore.Store {
	t.Helper()
	s, err := boltstore.Open(filepath.Join(t.TempDir(), "entity.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetPlaceholderGetOriginal_RoundTrips(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{1}
	m := domain.Mapping{Original: "jane@example.com", Label: "email", Placeholder: "[EMAIL_01]"}

	if err := s.Put(ctx, thread, m); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	ph, err := s.GetPlaceholder(ctx, thread, m.Original, m.Label)
	if err != nil {
		t.Fatalf("GetPlaceholder() error = %v", err)
	}
	if ph != m.Placeholder {
		t.Errorf("GetPlaceholder() = %q, want %q", ph, m.Placeholder)
	}

	got, err := s.GetOriginal(ctx, thread, m.Placeholder)
	if err != nil {
		t.Fatalf("GetOriginal() error = %v", err)
	}
	if got.Original != m.Original || got.Label != m.Label {
		t.Errorf("GetOriginal() = %+v, want %+v", got, m)
	}
}

func TestGetPlaceholder_UnknownThreadIsNotFound(t *testing.T) {
	s := open(t)
	if _, err := s.GetPlaceholder(context.Background(), domain.ThreadID{9}, "x", "person"); err != entity.ErrNotFound {
		t.Errorf("GetPlaceholder() error = %v, want ErrNotFound", err)
	}
}

func TestIncLabelCounter_IncrementsPerThreadPerLabel(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{2}

	for want := 1; want <= 3; want++ {
		got, err := s.IncLabelCounter(ctx, thread, "person")
		if err != nil {
			t.Fatalf("IncLabelCounter() error = %v", err)
		}
		if got != want {
			t.Errorf("IncLabelCounter() = %d, want %d", got, want)
		}
	}

	// a different label in the same thread starts its own sequence
	got, err := s.IncLabelCounter(ctx, thread, "email")
	if err != nil {
		t.Fatalf("IncLabelCounter() error = %v", err)
	}
	if got != 1 {
		t.Errorf("IncLabelCounter() for new label = %d, want 1", got)
	}
}

func TestListPlaceholders_ReturnsAllMappingsForThread(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{3}

	mappings := []domain.Mapping{
		{Original: "John", Label: "person", Placeholder: "[PERSON_01]"},
		{Original: "jane@example.com", Label: "email", Placeholder: "[EMAIL_01]"},
	}
	for _, m := range mappings {
		if err := s.Put(ctx, thread, m); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	got, err := s.ListPlaceholders(ctx, thread)
	if err != nil {
		t.Fatalf("ListPlaceholders() error = %v", err)
	}
	if len(got) != len(mappings) {
		t.Fatalf("ListPlaceholders() returned %d mappings, want %d", len(got), len(mappings))
	}
}

func TestListPlaceholders_UnknownThreadReturnsEmpty(t *testing.T) {
	s := open(t)
	got, err := s.ListPlaceholders(context.Background(), domain.ThreadID{42})
	if err != nil {
		t.Fatalf("ListPlaceholders() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListPlaceholders() for unknown thread = %v, want empty", got)
	}
}

func TestClear_RemovesThreadData(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	thread := domain.ThreadID{4}

	if err := s.Put(ctx, thread, domain.Mapping{Original: "x", Label: "person", Placeholder: "[PERSON_01]"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Clear(ctx, thread); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := s.GetPlaceholder(ctx, thread, "x", "person"); err != entity.ErrNotFound {
		t.Errorf("GetPlaceholder() after Clear() error = %v, want ErrNotFound", err)
	}

	// clearing an already-empty/unknown thread is a no-op, not an error
	if err := s.Clear(ctx, domain.ThreadID{99}); err != nil {
		t.Errorf("Clear() on unknown thread error = %v, want nil", err)
	}
}
