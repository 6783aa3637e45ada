package codec_test

import (
	"encoding/json"
	"testing"

	"github.com/hfi/privacy-gateway/internal/codec"
)

func TestDecodeEncode_RoundTripsMessagesAndExtra(t *testing.T) {
	body := []byte(`{
		"model": "claude-3",
		"temperature": 0.2,
		"messages": [
			{"id": "1", "role": "user", "content": "hi"},
			{"id": "2", "role": "assistant", "content": "hello"}
		]
	}`)

	env, err := codec.Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(env.Messages) != 2 {
		t.Fatalf("Decode() produced %d messages, want 2", len(env.Messages))
	}
	if _, ok := env.Extra["model"]; !ok {
		t.Error("Decode() did not keep the model field in Extra")
	}
	if _, ok := env.Extra["messages"]; ok {
		t.Error("Decode() left messages in Extra")
	}

	out, err := codec.Encode(env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var roundTripped map[string]json.RawMessage
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("unmarshaling Encode() output: %v", err)
	}
	if _, ok := roundTripped["model"]; !ok {
		t.Error("Encode() output missing model field")
	}
	if _, ok := roundTripped["messages"]; !ok {
		t.Error("Encode() output missing messages field")
	}
}

func TestDecode_PreservesToolCallID(t *testing.T) {
	body := []byte(`{"messages": [{"id": "1", "role": "tool", "content": "result", "tool_call_id": "call_123"}]}`)

	env, err := codec.Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(env.Messages) != 1 {
		t.Fatalf("Decode() produced %d messages, want 1", len(env.Messages))
	}

	out, err := codec.Encode(env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	env2, err := codec.Decode(out)
	if err != nil {
		t.Fatalf("Decode() of re-encoded body error = %v", err)
	}
	var extra map[string]string
	if err := json.Unmarshal(env2.Messages[0].Extra, &extra); err != nil {
		t.Fatalf("unmarshaling Extra: %v", err)
	}
	if extra["tool_call_id"] != "call_123" {
		t.Errorf("tool_call_id round-tripped as %q, want %q", extra["tool_call_id"], "call_123")
	}
}

func TestDecode_ToolCallsSurviveRoundTrip(t *testing.T) {
	body := []byte(`{"messages": [{"id": "1", "role": "assistant", "content": "", "tool_calls": [{"id": "call_1", "name": "lookup", "args": {"q": "weather"}}]}]}`)

	env, err := codec.Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(env.Messages[0].ToolCalls) != 1 {
		t.Fatalf("Decode() produced %d tool calls, want 1", len(env.Messages[0].ToolCalls))
	}
	if env.Messages[0].ToolCalls[0].Name != "lookup" {
		t.Errorf("tool call name = %q, want %q", env.Messages[0].ToolCalls[0].Name, "lookup")
	}

	out, err := codec.Encode(env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	env2, err := codec.Decode(out)
	if err != nil {
		t.Fatalf("Decode() of re-encoded body error = %v", err)
	}
	if len(env2.Messages[0].ToolCalls) != 1 || env2.Messages[0].ToolCalls[0].ID != "call_1" {
		t.Errorf("tool calls did not survive round trip: %+v", env2.Messages[0].ToolCalls)
	}
}

func TestDecode_EmptyMessagesIsNotAnError(t *testing.T) {
	env, err := codec.Decode([]byte(`{"model": "claude-3"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(env.Messages) != 0 {
		t.Errorf("Decode() produced %d messages, want 0", len(env.Messages))
	}
}

func TestDecode_InvalidJSONErrors(t *testing.T) {
	if _, err := codec.Decode([]byte(`not json`)); err == nil {
		t.Error("Decode() of invalid JSON succeeded, want error")
	}
}
