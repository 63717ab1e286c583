package voice

import "testing"

func TestTranscriptBufferUpdateAndFinalize(t *testing.T) {
	var b TranscriptBuffer

	if !b.Update("what is") {
		t.Fatal("expected update to succeed on fresh buffer")
	}
	if !b.Update("what is 2 plus 2") {
		t.Fatal("expected second update to succeed")
	}
	if got := b.Interim(); got != "what is 2 plus 2" {
		t.Errorf("interim = %q, want latest update", got)
	}

	text, ok := b.Finalize()
	if !ok || text != "what is 2 plus 2" {
		t.Fatalf("Finalize() = (%q, %v), want (interim text, true)", text, ok)
	}
}

func TestTranscriptBufferImmutableOnceFinal(t *testing.T) {
	var b TranscriptBuffer
	b.Update("hello")
	b.Finalize()

	if b.Update("late update") {
		t.Error("update after finalize should be rejected")
	}
	if text, _ := b.Final(); text != "hello" {
		t.Errorf("final text mutated after finalize: %q", text)
	}
	if _, ok := b.Finalize(); ok {
		t.Error("second Finalize should report already-finalized")
	}
}

func TestTranscriptBufferReset(t *testing.T) {
	var b TranscriptBuffer
	b.Update("hello")
	b.Finalize()
	b.Reset()

	if !b.Update("next utterance") {
		t.Error("expected update to succeed after reset")
	}
	if _, ok := b.Final(); ok {
		t.Error("reset buffer should not be finalized")
	}
}
