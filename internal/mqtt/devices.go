package mqtt

import (
	"encoding/json"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/lumenplay/StoryEngine/internal/events"
	"github.com/lumenplay/StoryEngine/internal/playback"
	"github.com/lumenplay/StoryEngine/internal/show"
)

// Command is the JSON payload published to a device's command topic.
type Command struct {
	Signal  string                 `json:"signal"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// DeviceEvent is the JSON payload a device publishes on its event topic.
// Prepared and finished reports must echo the generation from the set_clip
// command they answer; a report without one never matches a live load.
type DeviceEvent struct {
	Signal     string  `json:"signal"`
	Generation uint64  `json:"generation,omitempty"`
	Position   float64 `json:"position,omitempty"`
	Choice     string  `json:"choice,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func publishCommand(bus Bus, topic, deviceName string, cmd Command) {
	b, err := json.Marshal(cmd)
	if err != nil {
		events.Emit("error", "device.error", "failed to marshal command", map[string]interface{}{
			"device": deviceName,
			"signal": cmd.Signal,
			"error":  err.Error(),
		})
		return
	}
	if err := bus.Publish(topic, b); err != nil {
		events.Emit("error", "device.error", "command publish failed", map[string]interface{}{
			"device": deviceName,
			"topic":  topic,
			"signal": cmd.Signal,
			"error":  err.Error(),
		})
	}
}

func decodeEvent(deviceName string, msg paho.Message) (DeviceEvent, bool) {
	var evt DeviceEvent
	if err := json.Unmarshal(msg.Payload(), &evt); err != nil {
		events.Emit("error", "device.error", "unparseable device event", map[string]interface{}{
			"device": deviceName,
			"topic":  msg.Topic(),
			"error":  err.Error(),
		})
		return evt, false
	}
	return evt, true
}

// VideoDevice fronts the installation's video player. It implements
// playback.VideoBackend: commands go out on the command topic, and the
// player's prepared/finished/position reports come back on the event topic.
// set_clip carries the load generation and the player echoes it back in its
// prepared/finished reports, so a report for a superseded clip keeps its old
// generation and the session discards it.
type VideoDevice struct {
	bus  Bus
	dev  *MediaDevice
	sink func(playback.Signal)
	mon  *Monitor

	mu       sync.Mutex
	gen      uint64
	playing  bool
	position float64
}

// NewVideoDevice creates the video frontend. sink receives backend signals;
// mon may be nil when heartbeat tracking is not wanted.
func NewVideoDevice(bus Bus, dev *MediaDevice, sink func(playback.Signal), mon *Monitor) *VideoDevice {
	return &VideoDevice{bus: bus, dev: dev, sink: sink, mon: mon}
}

// Listen subscribes to the device's event topic.
func (d *VideoDevice) Listen() error {
	if d.dev.EventTopic == "" {
		return nil
	}
	return d.bus.Subscribe(d.dev.EventTopic, d.handleMessage)
}

func (d *VideoDevice) handleMessage(_ paho.Client, msg paho.Message) {
	evt, ok := decodeEvent(d.dev.Name, msg)
	if !ok {
		return
	}

	switch evt.Signal {
	case "prepared":
		d.sink(playback.Signal{Kind: playback.SignalPrepared, Generation: evt.Generation})
	case "finished":
		d.mu.Lock()
		if evt.Generation == d.gen {
			d.playing = false
		}
		d.mu.Unlock()
		d.sink(playback.Signal{Kind: playback.SignalFinished, Generation: evt.Generation})
	case "position":
		d.mu.Lock()
		d.position = evt.Position
		d.mu.Unlock()
	case "heartbeat":
		if d.mon != nil {
			d.mon.Touch(d.dev.Name)
		}
	case "error":
		events.Emit("error", "device.error", evt.Error, map[string]interface{}{
			"device": d.dev.Name,
		})
	}
}

func (d *VideoDevice) SetClip(ref string, gen uint64) {
	d.mu.Lock()
	d.gen = gen
	d.position = 0
	d.playing = false
	d.mu.Unlock()
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{
		Signal:  "set_clip",
		Payload: map[string]interface{}{"clip": ref, "generation": gen},
	})
}

func (d *VideoDevice) Prepare() {
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{Signal: "prepare"})
}

func (d *VideoDevice) Play() {
	d.mu.Lock()
	d.playing = true
	d.mu.Unlock()
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{Signal: "play"})
}

func (d *VideoDevice) Stop() {
	d.mu.Lock()
	d.playing = false
	d.mu.Unlock()
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{Signal: "stop"})
}

func (d *VideoDevice) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// CurrentTime returns the player's last reported position in seconds.
func (d *VideoDevice) CurrentTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// AudioDevice fronts one audio player (narration or music). It implements
// playback.AudioBackend; audio players emit no playback signals the session
// depends on, only position and heartbeat reports.
type AudioDevice struct {
	bus Bus
	dev *MediaDevice
	mon *Monitor

	mu       sync.Mutex
	clip     string
	playing  bool
	position float64
}

func NewAudioDevice(bus Bus, dev *MediaDevice, mon *Monitor) *AudioDevice {
	return &AudioDevice{bus: bus, dev: dev, mon: mon}
}

func (d *AudioDevice) Listen() error {
	if d.dev.EventTopic == "" {
		return nil
	}
	return d.bus.Subscribe(d.dev.EventTopic, d.handleMessage)
}

func (d *AudioDevice) handleMessage(_ paho.Client, msg paho.Message) {
	evt, ok := decodeEvent(d.dev.Name, msg)
	if !ok {
		return
	}

	switch evt.Signal {
	case "position":
		d.mu.Lock()
		d.position = evt.Position
		d.mu.Unlock()
	case "finished":
		d.mu.Lock()
		d.playing = false
		d.mu.Unlock()
	case "heartbeat":
		if d.mon != nil {
			d.mon.Touch(d.dev.Name)
		}
	case "error":
		events.Emit("error", "device.error", evt.Error, map[string]interface{}{
			"device": d.dev.Name,
		})
	}
}

func (d *AudioDevice) SetClip(ref string) {
	d.mu.Lock()
	d.clip = ref
	d.playing = false
	d.position = 0
	d.mu.Unlock()
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{
		Signal:  "set_clip",
		Payload: map[string]interface{}{"clip": ref},
	})
}

func (d *AudioDevice) Play() {
	d.mu.Lock()
	empty := d.clip == ""
	if !empty {
		d.playing = true
	}
	d.mu.Unlock()
	if empty {
		return
	}
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{Signal: "play"})
}

func (d *AudioDevice) Stop() {
	d.mu.Lock()
	d.playing = false
	d.mu.Unlock()
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{Signal: "stop"})
}

func (d *AudioDevice) SetTime(seconds float64) {
	d.mu.Lock()
	empty := d.clip == ""
	d.position = seconds
	d.mu.Unlock()
	if empty {
		return
	}
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{
		Signal:  "set_time",
		Payload: map[string]interface{}{"seconds": seconds},
	})
}

func (d *AudioDevice) CurrentTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

func (d *AudioDevice) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// ChoiceDevice fronts the operator's choice controls. Show/hide go out as
// commands; pressed choices come back on the event topic.
type ChoiceDevice struct {
	bus  Bus
	dev  *MediaDevice
	sink func(playback.Signal)
	mon  *Monitor
}

func NewChoiceDevice(bus Bus, dev *MediaDevice, sink func(playback.Signal), mon *Monitor) *ChoiceDevice {
	return &ChoiceDevice{bus: bus, dev: dev, sink: sink, mon: mon}
}

func (d *ChoiceDevice) Listen() error {
	if d.dev.EventTopic == "" {
		return nil
	}
	return d.bus.Subscribe(d.dev.EventTopic, d.handleMessage)
}

func (d *ChoiceDevice) handleMessage(_ paho.Client, msg paho.Message) {
	evt, ok := decodeEvent(d.dev.Name, msg)
	if !ok {
		return
	}

	switch evt.Signal {
	case "choice":
		switch show.Choice(evt.Choice) {
		case show.ChoiceSuccess, show.ChoiceFailure:
			events.Emit("info", "device.input", "", map[string]interface{}{
				"device": d.dev.Name,
				"choice": evt.Choice,
			})
			d.sink(playback.Signal{Kind: playback.SignalChoice, Choice: show.Choice(evt.Choice)})
		default:
			events.Emit("error", "device.error", "unknown choice value", map[string]interface{}{
				"device": d.dev.Name,
				"choice": evt.Choice,
			})
		}
	case "heartbeat":
		if d.mon != nil {
			d.mon.Touch(d.dev.Name)
		}
	}
}

func (d *ChoiceDevice) Show() {
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{Signal: "show"})
}

func (d *ChoiceDevice) Hide() {
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{Signal: "hide"})
}

// CaptionDevice fronts the caption display. Output-only.
type CaptionDevice struct {
	bus Bus
	dev *MediaDevice
}

func NewCaptionDevice(bus Bus, dev *MediaDevice) *CaptionDevice {
	return &CaptionDevice{bus: bus, dev: dev}
}

func (d *CaptionDevice) SetText(text string) {
	publishCommand(d.bus, d.dev.CommandTopic, d.dev.Name, Command{
		Signal:  "set_text",
		Payload: map[string]interface{}{"text": text},
	})
}
