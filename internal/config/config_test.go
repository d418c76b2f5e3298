package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumenplay/StoryEngine/internal/show"
)

func TestLoadShowConfig(t *testing.T) {
	cfg, err := LoadShowConfig("testdata/show.yaml")
	if err != nil {
		t.Fatalf("failed to load show.yaml: %v", err)
	}

	if cfg.Show.ID != "lobby-quiz" {
		t.Errorf("expected show id lobby-quiz, got %s", cfg.Show.ID)
	}
	if len(cfg.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(cfg.Questions))
	}
	if cfg.Subtitles.OffsetSeconds != -0.15 {
		t.Errorf("expected offset -0.15, got %v", cfg.Subtitles.OffsetSeconds)
	}
	if !cfg.ClearInGaps() {
		t.Error("expected clear_in_gaps true")
	}
	if cfg.UIPort() != 8090 {
		t.Errorf("expected ui port 8090, got %d", cfg.UIPort())
	}
	if cfg.TickMillis() != 33 {
		t.Errorf("expected tick 33ms, got %d", cfg.TickMillis())
	}
}

func TestShowConfigDefaults(t *testing.T) {
	cfg := &ShowConfig{Version: 1}
	if cfg.UIPort() != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.UIPort())
	}
	if cfg.TickMillis() != 33 {
		t.Errorf("expected default tick 33ms, got %d", cfg.TickMillis())
	}
	if !cfg.ClearInGaps() {
		t.Error("expected clear_in_gaps to default to true")
	}
}

func TestShowConfigSequence(t *testing.T) {
	cfg, err := LoadShowConfig("testdata/show.yaml")
	if err != nil {
		t.Fatalf("failed to load show.yaml: %v", err)
	}

	seq := cfg.Sequence()
	if err := seq.Validate(); err != nil {
		t.Fatalf("sequence from testdata should validate: %v", err)
	}
	if seq.Len() != 2 {
		t.Fatalf("expected sequence length 2, got %d", seq.Len())
	}

	q1 := seq.At(0)
	if q1.Question.Video != "media/q1.mp4" {
		t.Errorf("unexpected question video: %s", q1.Question.Video)
	}
	if q1.Bundle(show.PhaseFailure).Video != "media/q1_lose.mp4" {
		t.Errorf("unexpected failure video: %s", q1.Bundle(show.PhaseFailure).Video)
	}
	if q1.Failure.Narration != "" {
		t.Errorf("expected no narration for q1 failure, got %s", q1.Failure.Narration)
	}
}

func TestLoadShowConfigRejectsBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.yaml")
	if err := os.WriteFile(path, []byte("version: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadShowConfig(path); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestLoadDevicesConfig(t *testing.T) {
	cfg, err := LoadDevicesConfig("testdata/devices.yaml")
	if err != nil {
		t.Fatalf("failed to load devices.yaml: %v", err)
	}
	if len(cfg.Devices) != 5 {
		t.Fatalf("expected 5 devices, got %d", len(cfg.Devices))
	}
	video, ok := cfg.Devices["video"]
	if !ok {
		t.Fatal("missing video device")
	}
	if video.CommandTopic != "story/video/cmd" || video.EventTopic != "story/video/evt" {
		t.Errorf("unexpected video topics: %+v", video)
	}
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("STORY_TEST_SECRET", "from-env")
	v, err := ResolveSecret("STORY_TEST_SECRET")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "from-env" {
		t.Errorf("expected from-env, got %q", v)
	}

	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORY_TEST_SECRET_FILE", path)
	v, err = ResolveSecret("STORY_TEST_SECRET")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "from-file" {
		t.Errorf("expected file to take precedence, got %q", v)
	}
}
