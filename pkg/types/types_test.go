package types

import (
	"encoding/json"
	"testing"
)

func TestParseModelRef(t *testing.T) {
	ref := ParseModelRef("openrouter/google/gemini-2.5-flash")
	if ref.ProviderID != "openrouter" || ref.ModelID != "google/gemini-2.5-flash" {
		t.Errorf("unexpected ref: %+v", ref)
	}

	bare := ParseModelRef("claude-3-5-haiku-20241022")
	if bare.ProviderID != "" || bare.ModelID != "claude-3-5-haiku-20241022" {
		t.Errorf("unexpected bare ref: %+v", bare)
	}
}

func TestFrameKindTerminal(t *testing.T) {
	for kind, want := range map[FrameKind]bool{
		FrameStatus:   false,
		FrameDelta:    false,
		FrameSnapshot: false,
		FrameComplete: true,
		FrameError:    true,
	} {
		if kind.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", kind, kind.Terminal(), want)
		}
	}
}

func TestErrorFramePayloadText(t *testing.T) {
	if got := (ErrorFramePayload{Message: "m", Error: "e"}).Text(); got != "m" {
		t.Errorf("Message should win, got %q", got)
	}
	if got := (ErrorFramePayload{Error: "e"}).Text(); got != "e" {
		t.Errorf("Error fallback broken, got %q", got)
	}
}

func TestDeltaFramePayloadShape(t *testing.T) {
	frame := DeltaFrame("chunk")

	var p map[string]string
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p["delta"] != "chunk" {
		t.Errorf("unexpected payload: %v", p)
	}

	snap := SnapshotFrame("all text")
	if err := json.Unmarshal(snap.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if _, ok := p["text_chunk"]; !ok {
		t.Error("snapshot payload must use text_chunk key")
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	for status, want := range map[SessionStatus]bool{
		StatusIdle:       false,
		StatusInitiating: false,
		StatusStreaming:  false,
		StatusComplete:   true,
		StatusStopped:    true,
		StatusErrored:    true,
	} {
		if status.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, status.Terminal(), want)
		}
	}
}
