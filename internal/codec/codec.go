// Package codec converts between the wire format of a chat-completions
// style request/response body and the domain.Message tagged union the rest
// of the pipeline operates on (component G). It generalizes the teacher's
// OpenAI-specific internal/protocol.Message into a single, protocol-neutral
// shape, keeping the teacher's json.RawMessage "preserve unknown fields"
// trick for forward compatibility.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/hfi/privacy-gateway/internal/domain"
)

// wireMessage mirrors the teacher's openAIMessage: known fields are typed.
// Of the per-message fields only the ones typed here are kept (tool_call_id
// travels in domain.Message.Extra); any other per-message field is dropped
// on Decode. Unknown top-level fields are kept in Envelope.Extra.
type wireMessage struct {
	ID         string          `json:"id,omitempty"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  []wireToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Status string          `json:"status,omitempty"`
}

// Envelope is the minimal request/response body this codec round-trips:
// a message list plus an opaque Extra bag for every other top-level field
// (model, temperature, stream, ...), so a field this codec doesn't model is
// preserved verbatim on the way back out.
type Envelope struct {
	Messages []domain.Message
	Extra    map[string]json.RawMessage
}

// Decode parses body into an Envelope, extracting "messages" and keeping
// every other top-level key in Extra.
func Decode(body []byte) (Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Envelope{}, fmt.Errorf("codec: decoding envelope: %w", err)
	}

	var wire []wireMessage
	if msgs, ok := raw["messages"]; ok {
		if err := json.Unmarshal(msgs, &wire); err != nil {
			return Envelope{}, fmt.Errorf("codec: decoding messages: %w", err)
		}
	}
	delete(raw, "messages")

	messages := make([]domain.Message, len(wire))
	for i, w := range wire {
		messages[i] = fromWire(w, i)
	}

	return Envelope{Messages: messages, Extra: raw}, nil
}

// Encode serializes an Envelope back to a JSON body, re-attaching Extra's
// top-level fields alongside the (possibly redacted or restored) messages.
func Encode(e Envelope) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Extra)+1)
	for k, v := range e.Extra {
		out[k] = v
	}

	wire := make([]wireMessage, len(e.Messages))
	for i, m := range e.Messages {
		wire[i] = toWire(m)
	}
	encoded, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("codec: encoding messages: %w", err)
	}
	out["messages"] = encoded

	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("codec: encoding envelope: %w", err)
	}
	return body, nil
}

func fromWire(w wireMessage, position int) domain.Message {
	m := domain.Message{
		ID:       w.ID,
		Role:     domain.Role(w.Role),
		Content:  w.Content,
		Position: position,
	}
	if w.ToolCallID != "" {
		extra, _ := json.Marshal(map[string]string{"tool_call_id": w.ToolCallID})
		m.Extra = extra
	}
	if len(w.ToolCalls) > 0 {
		m.ToolCalls = make([]domain.ToolCall, len(w.ToolCalls))
		for i, tc := range w.ToolCalls {
			m.ToolCalls[i] = domain.ToolCall{
				ID:     tc.ID,
				Name:   tc.Name,
				Args:   tc.Args,
				Status: domain.ToolCallStatus(tc.Status),
			}
		}
	}
	return m
}

func toWire(m domain.Message) wireMessage {
	w := wireMessage{
		ID:      m.ID,
		Role:    string(m.Role),
		Content: m.Content,
	}
	if len(m.Extra) > 0 {
		var extra map[string]string
		if err := json.Unmarshal(m.Extra, &extra); err == nil {
			w.ToolCallID = extra["tool_call_id"]
		}
	}
	if len(m.ToolCalls) > 0 {
		w.ToolCalls = make([]wireToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			w.ToolCalls[i] = wireToolCall{
				ID:     tc.ID,
				Name:   tc.Name,
				Args:   tc.Args,
				Status: string(tc.Status),
			}
		}
	}
	return w
}
