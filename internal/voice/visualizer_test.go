package voice

import "testing"

func TestVisualizerIdlePattern(t *testing.T) {
	v := NewVisualizer(24)

	frame := v.Frame()
	if len(frame) != 24 {
		t.Fatalf("frame length = %d, want 24", len(frame))
	}
	for i, amp := range frame {
		if amp < 0.01 || amp > 0.15 {
			t.Errorf("idle bar %d = %v, want a low placeholder amplitude", i, amp)
		}
	}
}

func TestVisualizerIngest(t *testing.T) {
	v := NewVisualizer(8)
	v.Ingest(tone(0.1, 0.9, 512))

	frame := v.Frame()
	var energy float64
	for _, amp := range frame {
		energy += amp
	}
	if energy == 0 {
		t.Error("ingested audio should produce non-zero bars")
	}

	// silence flattens the frame but stays live
	v.Ingest(make([]int16, 512))
	for i, amp := range v.Frame() {
		if amp != 0 {
			t.Errorf("bar %d = %v after silence, want 0", i, amp)
		}
	}
}

func TestVisualizerInactiveFallsBackToIdle(t *testing.T) {
	v := NewVisualizer(8)
	v.Ingest(tone(0.1, 0.9, 512))
	v.SetActive(false)

	for i, amp := range v.Frame() {
		if amp < 0.01 || amp > 0.15 {
			t.Errorf("bar %d = %v, want idle placeholder after deactivation", i, amp)
		}
	}
}
