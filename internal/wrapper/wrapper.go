// Package wrapper implements the Privacy Wrapper (component E), the heart
// of the system: incremental per-turn detection, redaction, dispatch to
// the wrapped LLM, durable append, and restoration. Grounded directly on
// original_source's PrivacyEnabledChatModel._generate/_detect_entities/
// _replace_entities/_restore_entities control flow, restructured into the
// teacher's internal/proxy.SecretService-shaped single-entry orchestration.
package wrapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hfi/privacy-gateway/internal/audit"
	"github.com/hfi/privacy-gateway/internal/conversation"
	"github.com/hfi/privacy-gateway/internal/detector"
	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/llm"
	"github.com/hfi/privacy-gateway/internal/replacer"
	"github.com/hfi/privacy-gateway/internal/threadid"
)

// StageRecorder receives the duration of one named suspension point; the
// reference implementation is internal/metrics's
// process_turn_stage_duration_seconds histogram. A nil StageRecorder means
// no metrics are recorded.
type StageRecorder interface {
	RecordStage(stage string, d time.Duration)
}

// AuditRecorder receives the privacy-relevant events named in spec §9's
// observability expansion, matching internal/audit.Logger's method set. A
// nil AuditRecorder disables auditing.
type AuditRecorder interface {
	LogEntityDetected(thread, label string, count int)
	LogPlaceholderRestored(thread string, count int)
	LogTurnProcessed(thread string, durationMs float64)
	LogError(eventType audit.EventType, thread, errorMsg string)
}

// Wrapper coordinates the Conversation Store, Detector, Replacer, and the
// wrapped LLM client to implement ProcessTurn.
type Wrapper struct {
	Conversations conversation.Store
	Detector      detector.Detector
	Replacer      *replacer.Replacer
	LLM           llm.Client
	Metrics       StageRecorder
	Audit         AuditRecorder
}

func (w *Wrapper) recordStage(stage string, start time.Time) {
	if w.Metrics != nil {
		w.Metrics.RecordStage(stage, time.Since(start))
	}
}

// ProcessTurn implements spec §4.5's incremental algorithm in full. key is
// the caller's arbitrary thread key (possibly empty); history is the
// complete chronological message history the caller holds. It returns the
// assistant's response with all placeholders restored to their originals.
func (w *Wrapper) ProcessTurn(ctx context.Context, key string, history []domain.Message) (domain.Message, error) {
	turnStart := time.Now()
	thread, persisted, err := threadid.Normalise(key)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: normalising thread key: %v", ErrInvalidInput, err)
	}
	log := log.With().Str("thread", thread.String()).Logger()

	start := time.Now()
	var prefix []domain.Message
	if persisted {
		prefix, err = w.Conversations.Read(ctx, thread)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: reading conversation store: %v", ErrStoreUnavailable, err)
		}
	}
	w.recordStage("conversation_read", start)

	k := len(prefix)
	var tail []domain.Message
	if k <= len(history) {
		tail = history[k:]
	}
	log.Info().Int("prefix_len", k).Int("new_len", len(tail)).Msg("process_turn: computed new tail")

	tail, err = assignIDs(tail)
	if err != nil {
		return domain.Message{}, err
	}

	payloads, sites, err := collectPayloads(tail)
	if err != nil {
		return domain.Message{}, err
	}

	start = time.Now()
	var entitiesPerPayload [][]domain.Entity
	if len(payloads) > 0 {
		entitiesPerPayload, err = w.Detector.Detect(ctx, payloads, 0)
		if err != nil {
			if w.Audit != nil {
				w.Audit.LogError(audit.EventDetectorError, thread.String(), err.Error())
			}
			return domain.Message{}, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
		}
	}
	w.recordStage("detect", start)
	if w.Audit != nil {
		for _, label := range countLabels(entitiesPerPayload) {
			w.Audit.LogEntityDetected(thread.String(), label.name, label.count)
		}
	}

	start = time.Now()
	redactedTail, err := w.replaceTail(ctx, thread, tail, sites, entitiesPerPayload)
	if err != nil {
		return domain.Message{}, err
	}
	w.recordStage("replace", start)

	dispatch := make([]domain.Message, 0, len(prefix)+len(redactedTail))
	dispatch = append(dispatch, prefix...)
	dispatch = append(dispatch, redactedTail...)

	start = time.Now()
	response, err := w.LLM.Complete(ctx, dispatch)
	if err != nil {
		if w.Audit != nil {
			w.Audit.LogError(audit.EventLLMError, thread.String(), err.Error())
		}
		return domain.Message{}, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	w.recordStage("llm_invoke", start)

	if persisted && len(redactedTail) > 0 {
		start = time.Now()
		toAppend := make([]domain.Message, 0, len(redactedTail)+1)
		toAppend = append(toAppend, redactedTail...)
		toAppend = append(toAppend, response)
		if err := w.Conversations.Append(ctx, thread, toAppend); err != nil {
			if w.Audit != nil {
				w.Audit.LogError(audit.EventStoreError, thread.String(), err.Error())
			}
			return domain.Message{}, fmt.Errorf("%w: appending conversation store: %v", ErrStoreUnavailable, err)
		}
		w.recordStage("conversation_append", start)
	} else {
		log.Info().Msg("process_turn: no new messages to store")
	}

	start = time.Now()
	restored, err := w.restoreMessage(ctx, thread, response)
	if err != nil {
		return domain.Message{}, err
	}
	w.recordStage("restore", start)
	if w.Audit != nil {
		w.Audit.LogPlaceholderRestored(thread.String(), countPlaceholders(response))
		w.Audit.LogTurnProcessed(thread.String(), float64(time.Since(turnStart).Milliseconds()))
	}

	return restored, nil
}

type labelCount struct {
	name  string
	count int
}

// countLabels tallies how many entities of each label were detected across
// every payload in one turn, for a single audit event per label rather than
// one per entity.
func countLabels(entitiesPerPayload [][]domain.Entity) []labelCount {
	counts := map[string]int{}
	var order []string
	for _, entities := range entitiesPerPayload {
		for _, e := range entities {
			if _, seen := counts[e.Label]; !seen {
				order = append(order, e.Label)
			}
			counts[e.Label]++
		}
	}
	out := make([]labelCount, len(order))
	for i, label := range order {
		out[i] = labelCount{name: label, count: counts[label]}
	}
	return out
}

// countPlaceholders returns the number of '[' characters in the LLM's raw
// response (content and tool-call args combined), the count reported as
// restored placeholders. Every '[' is counted, whether it opens a
// placeholder or not, and placeholders without brackets (such as the
// pseudonym strategy's) are not counted.
func countPlaceholders(response domain.Message) int {
	n := countBrackets(response.Content)
	for _, tc := range response.ToolCalls {
		n += countBrackets(string(tc.Args))
	}
	return n
}

func countBrackets(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			n++
		}
	}
	return n
}

// assignIDs gives every message in tail a fresh id if it is missing one,
// matching _detect_entities's id-assignment pass. It returns a new slice
// so the caller's history is never mutated.
func assignIDs(tail []domain.Message) ([]domain.Message, error) {
	out := make([]domain.Message, len(tail))
	for i, m := range tail {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		for j, tc := range m.ToolCalls {
			if tc.ID == "" {
				return nil, fmt.Errorf("%w: message %s tool call %d", ErrMissingToolCallID, m.ID, j)
			}
		}
		out[i] = m
	}
	return out, nil
}

// payloadSite locates one detectable payload within tail: either a
// message's content, or one of its tool-calls' serialised args.
type payloadSite struct {
	messageIndex  int
	toolCallIndex int // -1 for message content
}

// collectPayloads flattens every detectable string out of tail, skipping
// system messages (trusted, passed through unchanged) per spec §4.5 step 3.
func collectPayloads(tail []domain.Message) ([]string, []payloadSite, error) {
	var payloads []string
	var sites []payloadSite
	for i, m := range tail {
		if m.Role == domain.RoleSystem {
			continue
		}
		payloads = append(payloads, m.Content)
		sites = append(sites, payloadSite{messageIndex: i, toolCallIndex: -1})

		for j, tc := range m.ToolCalls {
			if tc.ID == "" {
				return nil, nil, fmt.Errorf("%w: message %s tool call %d", ErrMissingToolCallID, m.ID, j)
			}
			payloads = append(payloads, string(tc.Args))
			sites = append(sites, payloadSite{messageIndex: i, toolCallIndex: j})
		}
	}
	return payloads, sites, nil
}

// replaceTail runs the Replacer over every collected payload and splices
// the redacted text back into a copy of tail.
func (w *Wrapper) replaceTail(ctx context.Context, thread domain.ThreadID, tail []domain.Message, sites []payloadSite, entitiesPerPayload [][]domain.Entity) ([]domain.Message, error) {
	out := make([]domain.Message, len(tail))
	for i, m := range tail {
		out[i] = m.Clone()
	}

	for idx, site := range sites {
		var entities []domain.Entity
		if idx < len(entitiesPerPayload) {
			entities = entitiesPerPayload[idx]
		}
		if len(entities) == 0 {
			continue
		}

		// The detector's emission order is stable but unspecified (spec
		// §4.3); Replace requires entities sorted by Start, so sort a copy
		// here rather than relying on detector implementation order.
		entities = append([]domain.Entity(nil), entities...)
		sort.Slice(entities, func(i, j int) bool { return entities[i].Start < entities[j].Start })

		var original string
		if site.toolCallIndex < 0 {
			original = out[site.messageIndex].Content
		} else {
			original = string(out[site.messageIndex].ToolCalls[site.toolCallIndex].Args)
		}

		redacted, err := w.Replacer.Replace(ctx, thread, original, entities)
		if err != nil {
			return nil, wrapReplaceError(err)
		}

		if site.toolCallIndex < 0 {
			out[site.messageIndex].Content = redacted
		} else {
			out[site.messageIndex].ToolCalls[site.toolCallIndex].Args = json.RawMessage(redacted)
		}
	}
	return out, nil
}

// wrapReplaceError maps a Replacer.Replace failure onto the spec §7 error
// taxonomy by inspecting the underlying sentinel, rather than collapsing
// every failure mode into ErrUnsupportedEntity: a genuine overlapping-span
// input is an integrity error, while a lookup/store failure means the
// Entity Store itself is unavailable.
func wrapReplaceError(err error) error {
	switch {
	case errors.Is(err, replacer.ErrOverlappingEntities):
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	case errors.Is(err, replacer.ErrUnsupportedEntity):
		return fmt.Errorf("%w: %v", ErrUnsupportedEntity, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// restoreMessage runs the Restorer over response's content and every
// tool-call's args, per spec §4.5 step 9.
func (w *Wrapper) restoreMessage(ctx context.Context, thread domain.ThreadID, response domain.Message) (domain.Message, error) {
	restored := response.Clone()

	content, err := w.Replacer.Restore(ctx, thread, restored.Content)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: restoring content: %v", ErrIntegrity, err)
	}
	restored.Content = content

	for i, tc := range restored.ToolCalls {
		args, err := w.Replacer.Restore(ctx, thread, string(tc.Args))
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: restoring tool call args: %v", ErrIntegrity, err)
		}
		restored.ToolCalls[i].Args = json.RawMessage(args)
	}
	return restored, nil
}
