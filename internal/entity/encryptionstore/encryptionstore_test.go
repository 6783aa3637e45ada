package encryptionstore

import (
	"context"
	"testing"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity"
)

func TestEncryptGetOriginal_RoundTrips(t *testing.T) {
	s := New([]byte("master-secret"))
	thread := domain.ThreadID{1}

	token, err := s.Encrypt(thread, "Max Mustermann")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	mapping, err := s.GetOriginal(context.Background(), thread, token)
	if err != nil {
		t.Fatalf("GetOriginal() error = %v", err)
	}
	if mapping.Original != "Max Mustermann" {
		t.Errorf("GetOriginal() = %q, want %q", mapping.Original, "Max Mustermann")
	}
}

func TestGetOriginal_WrongThreadFails(t *testing.T) {
	s := New([]byte("master-secret"))
	token, err := s.Encrypt(domain.ThreadID{1}, "secret value")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := s.GetOriginal(context.Background(), domain.ThreadID{2}, token); err == nil {
		t.Error("GetOriginal() with wrong thread succeeded, want error")
	}
}

func TestGetPlaceholder_AlwaysNotFound(t *testing.T) {
	s := New([]byte("master"))
	_, err := s.GetPlaceholder(context.Background(), domain.ThreadID{1}, "x", "person")
	if err != entity.ErrNotFound {
		t.Errorf("GetPlaceholder() error = %v, want ErrNotFound", err)
	}
}

func TestListPlaceholdersAndIncLabelCounter_Unsupported(t *testing.T) {
	s := New([]byte("master"))
	if _, err := s.ListPlaceholders(context.Background(), domain.ThreadID{1}); err != entity.ErrUnsupportedByBackend {
		t.Errorf("ListPlaceholders() error = %v, want ErrUnsupportedByBackend", err)
	}
	if _, err := s.IncLabelCounter(context.Background(), domain.ThreadID{1}, "person"); err != entity.ErrUnsupportedByBackend {
		t.Errorf("IncLabelCounter() error = %v, want ErrUnsupportedByBackend", err)
	}
}

func TestRestoreInline_DecryptsTokensAndSkipsForeignOnes(t *testing.T) {
	s := New([]byte("master"))
	thread := domain.ThreadID{1}
	other := domain.ThreadID{2}

	tokenA, err := s.Encrypt(thread, "Alice")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	tokenForeign, err := s.Encrypt(other, "Bob")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	text := "met " + tokenA + " and also " + tokenForeign
	restored, err := s.RestoreInline(context.Background(), thread, text)
	if err != nil {
		t.Fatalf("RestoreInline() error = %v", err)
	}

	want := "met Alice and also " + tokenForeign
	if restored != want {
		t.Errorf("RestoreInline() = %q, want %q", restored, want)
	}
}
