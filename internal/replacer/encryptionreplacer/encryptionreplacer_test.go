package encryptionreplacer_test

import (
	"context"
	"testing"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/entity/encryptionstore"
	"github.com/hfi/privacy-gateway/internal/replacer"
	"github.com/hfi/privacy-gateway/internal/replacer/encryptionreplacer"
)

func TestReplaceRestore_RoundTripsThroughInlineTokens(t *testing.T) {
	ctx := context.Background()
	store := encryptionstore.New([]byte("master-secret"))
	rep := replacer.New(encryptionreplacer.New(store), store)
	thread := domain.ThreadID{7}

	text := "My IBAN is DE12500105170648489890."
	entities := []domain.Entity{
		{Start: 11, End: 33, Text: "DE12500105170648489890", Label: "iban"},
	}

	redacted, err := rep.Replace(ctx, thread, text, entities)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if redacted == text {
		t.Fatal("Replace() did not change the text")
	}

	restored, err := rep.Restore(ctx, thread, redacted)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored != text {
		t.Errorf("Restore() = %q, want %q", restored, text)
	}
}

func TestReplace_SameEntityTwiceRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := encryptionstore.New([]byte("master-secret"))
	rep := replacer.New(encryptionreplacer.New(store), store)
	thread := domain.ThreadID{8}

	text := "John and John again."
	entities := []domain.Entity{
		{Start: 0, End: 4, Text: "John", Label: "person"},
		{Start: 9, End: 13, Text: "John", Label: "person"},
	}

	redacted, err := rep.Replace(ctx, thread, text, entities)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	restored, err := rep.Restore(ctx, thread, redacted)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored != text {
		t.Errorf("Restore() = %q, want %q", restored, text)
	}
}
