// Package llm defines the narrow collaborator interface the Privacy
// Wrapper invokes: "the wrapped LLM" from spec §4.5, named here as a
// concrete Go interface so the wrapper compiles and tests against a fake
// without depending on any one provider SDK.
package llm

import (
	"context"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// Client sends a redacted message history to a model and returns its
// reply. Implementations own their own retry/backoff policy for transport
// errors; a failure here surfaces to the Wrapper as LLMUnavailable.
type Client interface {
	Complete(ctx context.Context, messages []domain.Message) (domain.Message, error)
}
