package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lumenplay/StoryEngine/internal/show"
)

// ClipConfig names the media references for one bundle. Video is mandatory
// for question clips; everything else may be omitted.
type ClipConfig struct {
	Video     string `yaml:"video"`
	Narration string `yaml:"narration"`
	Music     string `yaml:"music"`
	Captions  string `yaml:"captions"`
}

// QuestionConfig is one narrative step: a question clip and its two outcomes.
type QuestionConfig struct {
	Question ClipConfig `yaml:"question"`
	Success  ClipConfig `yaml:"success"`
	Failure  ClipConfig `yaml:"failure"`
}

type ShowConfig struct {
	Version int `yaml:"version"`
	Show    struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"show"`
	Questions []QuestionConfig `yaml:"questions"`
	Subtitles struct {
		OffsetSeconds float64 `yaml:"offset_seconds"`
		ClearInGaps   *bool   `yaml:"clear_in_gaps"`
	} `yaml:"subtitles"`
	Playback struct {
		TickMillis int `yaml:"tick_millis"`
	} `yaml:"playback"`
	Network struct {
		UIPort int `yaml:"ui_port"`
	} `yaml:"network"`
}

// UIPort returns the configured operator UI port, defaulting to 8080.
func (c *ShowConfig) UIPort() int {
	if c.Network.UIPort == 0 {
		return 8080
	}
	return c.Network.UIPort
}

// TickMillis returns the scheduling tick interval, defaulting to 33ms
// (roughly one video frame).
func (c *ShowConfig) TickMillis() int {
	if c.Playback.TickMillis <= 0 {
		return 33
	}
	return c.Playback.TickMillis
}

// ClearInGaps reports whether captions are cleared between cues. Defaults
// to true: a stale caption showing into silence is worse than a blank gap.
func (c *ShowConfig) ClearInGaps() bool {
	if c.Subtitles.ClearInGaps == nil {
		return true
	}
	return *c.Subtitles.ClearInGaps
}

// Sequence converts the configured questions into the immutable show model.
func (c *ShowConfig) Sequence() show.Sequence {
	sets := make([]show.QuestionSet, 0, len(c.Questions))
	for _, q := range c.Questions {
		sets = append(sets, show.QuestionSet{
			Question: bundle(q.Question),
			Success:  bundle(q.Success),
			Failure:  bundle(q.Failure),
		})
	}
	return show.NewSequence(sets)
}

func bundle(c ClipConfig) show.Bundle {
	return show.Bundle{
		Video:     c.Video,
		Narration: c.Narration,
		Music:     c.Music,
		Captions:  c.Captions,
	}
}

// DeviceConfig holds the MQTT topics for one media device.
type DeviceConfig struct {
	CommandTopic string `yaml:"command_topic"`
	EventTopic   string `yaml:"event_topic"`
}

type DevicesConfig struct {
	Version int                     `yaml:"version"`
	Devices map[string]DeviceConfig `yaml:"devices"`
}

func LoadShowConfig(path string) (*ShowConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ShowConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported show.yaml version: %d", cfg.Version)
	}

	return &cfg, nil
}

func LoadDevicesConfig(path string) (*DevicesConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg DevicesConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported devices.yaml version: %d", cfg.Version)
	}

	return &cfg, nil
}
