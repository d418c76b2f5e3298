package playback

import (
	"testing"

	"github.com/lumenplay/StoryEngine/internal/caption"
)

type manualClock struct {
	t float64
}

func (c *manualClock) now() float64 { return c.t }

func twoCues() []caption.Cue {
	return []caption.Cue{
		{Start: 0.0, End: 2.0, Text: "A"},
		{Start: 2.5, End: 4.0, Text: "B"},
	}
}

func TestDriverTimingScenario(t *testing.T) {
	display := &fakeDisplay{}
	clock := &manualClock{}
	d := NewDriver(display, clock.now, 0, true)
	d.SetCues(twoCues())

	clock.t = 1.0
	d.Tick()
	if display.text != "A" {
		t.Errorf("at t=1.0 expected %q, got %q", "A", display.text)
	}

	clock.t = 2.2
	d.Tick()
	if display.text != "" {
		t.Errorf("at t=2.2 (gap) expected cleared display, got %q", display.text)
	}

	clock.t = 3.0
	d.Tick()
	if display.text != "B" {
		t.Errorf("at t=3.0 expected %q, got %q", "B", display.text)
	}
}

func TestDriverAppliesOffset(t *testing.T) {
	display := &fakeDisplay{}
	clock := &manualClock{t: 2.0}
	d := NewDriver(display, clock.now, 0.75, true)
	d.SetCues(twoCues())

	// 2.0 + 0.75 lands inside the second cue.
	d.Tick()
	if display.text != "B" {
		t.Errorf("expected offset to shift into cue B, got %q", display.text)
	}
}

func TestDriverNoCuesClearsDisplay(t *testing.T) {
	display := &fakeDisplay{text: "stale"}
	clock := &manualClock{t: 1.0}
	d := NewDriver(display, clock.now, 0, true)

	d.Tick()
	if display.text != "" {
		t.Errorf("expected cleared display with no cues, got %q", display.text)
	}

	// Only the first clear may bypass the write dedup.
	writes := display.writes
	d.Tick()
	d.Tick()
	if display.writes != writes {
		t.Errorf("empty display rewritten on every tick: %d -> %d", writes, display.writes)
	}
}

func TestDriverWritesOnlyOnChange(t *testing.T) {
	display := &fakeDisplay{}
	clock := &manualClock{t: 1.0}
	d := NewDriver(display, clock.now, 0, true)
	d.SetCues(twoCues())

	d.Tick()
	writes := display.writes
	clock.t = 1.2
	d.Tick()
	clock.t = 1.4
	d.Tick()

	if display.writes != writes {
		t.Errorf("display rewritten inside the same cue: %d -> %d", writes, display.writes)
	}
}

func TestDriverKeepsTextInGapsWhenConfigured(t *testing.T) {
	display := &fakeDisplay{}
	clock := &manualClock{t: 1.0}
	d := NewDriver(display, clock.now, 0, false)
	d.SetCues(twoCues())

	d.Tick()
	clock.t = 2.2
	d.Tick()
	if display.text != "A" {
		t.Errorf("with clear-in-gaps off, expected %q held through the gap, got %q", "A", display.text)
	}

	clock.t = 3.0
	d.Tick()
	if display.text != "B" {
		t.Errorf("next cue must still replace the held text, got %q", display.text)
	}
}

func TestDriverHandlesBackwardSeek(t *testing.T) {
	display := &fakeDisplay{}
	clock := &manualClock{t: 3.0}
	d := NewDriver(display, clock.now, 0, true)
	d.SetCues(twoCues())

	d.Tick()
	if display.text != "B" {
		t.Fatalf("expected B before seek, got %q", display.text)
	}

	clock.t = 0.5
	d.Tick()
	if display.text != "A" {
		t.Errorf("after seeking back expected A, got %q", display.text)
	}
}

func TestDriverSetCuesResetsState(t *testing.T) {
	display := &fakeDisplay{}
	clock := &manualClock{t: 1.0}
	d := NewDriver(display, clock.now, 0, true)
	d.SetCues(twoCues())
	d.Tick()

	d.SetCues([]caption.Cue{{Start: 10.0, End: 12.0, Text: "Z"}})
	if display.text != "" {
		t.Errorf("replacing cues must clear the display, got %q", display.text)
	}

	clock.t = 11.0
	d.Tick()
	if display.text != "Z" {
		t.Errorf("expected cue from the new list, got %q", display.text)
	}
}

func TestDriverBeforeFirstCue(t *testing.T) {
	display := &fakeDisplay{}
	clock := &manualClock{t: 0.0}
	d := NewDriver(display, clock.now, 0, true)
	d.SetCues([]caption.Cue{{Start: 5.0, End: 6.0, Text: "late"}})

	d.Tick()
	if display.text != "" {
		t.Errorf("expected empty display before the first cue, got %q", display.text)
	}
}
