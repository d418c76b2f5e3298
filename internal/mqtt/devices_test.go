package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/lumenplay/StoryEngine/internal/playback"
	"github.com/lumenplay/StoryEngine/internal/show"
)

// fakeBus is an in-memory broker implementing Bus.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	handlers  map[string]paho.MessageHandler
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][][]byte),
		handlers:  make(map[string]paho.MessageHandler),
	}
}

func (b *fakeBus) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic] = append(b.published[topic], payload)
	return nil
}

func (b *fakeBus) Subscribe(topic string, handler paho.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBus) deliver(t *testing.T, topic string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	b.mu.Lock()
	handler, ok := b.handlers[topic]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no handler subscribed to %s", topic)
	}
	handler(nil, &fakeMessage{topic: topic, payload: raw})
}

func (b *fakeBus) lastCommand(t *testing.T, topic string) Command {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.published[topic]
	if len(msgs) == 0 {
		t.Fatalf("nothing published to %s", topic)
	}
	var cmd Command
	if err := json.Unmarshal(msgs[len(msgs)-1], &cmd); err != nil {
		t.Fatalf("unparseable command on %s: %v", topic, err)
	}
	return cmd
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type signalRecorder struct {
	mu      sync.Mutex
	signals []playback.Signal
}

func (r *signalRecorder) sink(sig playback.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
}

func (r *signalRecorder) all() []playback.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]playback.Signal{}, r.signals...)
}

func videoTopics() *MediaDevice {
	return &MediaDevice{Name: "video", CommandTopic: "story/video/cmd", EventTopic: "story/video/evt"}
}

func TestVideoDeviceCommands(t *testing.T) {
	bus := newFakeBus()
	rec := &signalRecorder{}
	d := NewVideoDevice(bus, videoTopics(), rec.sink, nil)

	d.SetClip("media/q1.mp4", 3)
	cmd := bus.lastCommand(t, "story/video/cmd")
	if cmd.Signal != "set_clip" || cmd.Payload["clip"] != "media/q1.mp4" {
		t.Errorf("unexpected set_clip command: %+v", cmd)
	}
	if cmd.Payload["generation"] != float64(3) {
		t.Errorf("set_clip must carry the load generation, got %v", cmd.Payload["generation"])
	}

	d.Prepare()
	if cmd := bus.lastCommand(t, "story/video/cmd"); cmd.Signal != "prepare" {
		t.Errorf("expected prepare, got %s", cmd.Signal)
	}

	d.Play()
	if !d.IsPlaying() {
		t.Error("expected playing after Play")
	}
	d.Stop()
	if d.IsPlaying() {
		t.Error("expected stopped after Stop")
	}
}

func TestVideoDeviceSignalsCarryEchoedGeneration(t *testing.T) {
	bus := newFakeBus()
	rec := &signalRecorder{}
	d := NewVideoDevice(bus, videoTopics(), rec.sink, nil)
	if err := d.Listen(); err != nil {
		t.Fatal(err)
	}

	d.SetClip("a.mp4", 7)
	bus.deliver(t, "story/video/evt", DeviceEvent{Signal: "prepared", Generation: 7})
	bus.deliver(t, "story/video/evt", DeviceEvent{Signal: "finished", Generation: 7})

	sigs := rec.all()
	if len(sigs) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(sigs))
	}
	if sigs[0].Kind != playback.SignalPrepared || sigs[0].Generation != 7 {
		t.Errorf("unexpected prepared signal: %+v", sigs[0])
	}
	if sigs[1].Kind != playback.SignalFinished || sigs[1].Generation != 7 {
		t.Errorf("unexpected finished signal: %+v", sigs[1])
	}
}

func TestVideoDeviceLateReportKeepsSupersededGeneration(t *testing.T) {
	bus := newFakeBus()
	rec := &signalRecorder{}
	d := NewVideoDevice(bus, videoTopics(), rec.sink, nil)
	if err := d.Listen(); err != nil {
		t.Fatal(err)
	}

	// The player answers the first set_clip only after a second one
	// superseded it. Its report still carries the old generation, so the
	// session's stale guard can reject it.
	d.SetClip("a.mp4", 1)
	d.SetClip("b.mp4", 2)
	bus.deliver(t, "story/video/evt", DeviceEvent{Signal: "prepared", Generation: 1})

	sigs := rec.all()
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sigs))
	}
	if sigs[0].Generation != 1 {
		t.Errorf("late prepared must keep generation 1, got %d", sigs[0].Generation)
	}

	// A finished report for the old clip must not mark the current one
	// as stopped.
	d.Play()
	bus.deliver(t, "story/video/evt", DeviceEvent{Signal: "finished", Generation: 1})
	if !d.IsPlaying() {
		t.Error("finished for a superseded clip must not clear playing")
	}
	bus.deliver(t, "story/video/evt", DeviceEvent{Signal: "finished", Generation: 2})
	if d.IsPlaying() {
		t.Error("finished for the current clip must clear playing")
	}
}

func TestVideoDeviceTracksPosition(t *testing.T) {
	bus := newFakeBus()
	rec := &signalRecorder{}
	d := NewVideoDevice(bus, videoTopics(), rec.sink, nil)
	if err := d.Listen(); err != nil {
		t.Fatal(err)
	}

	bus.deliver(t, "story/video/evt", DeviceEvent{Signal: "position", Position: 12.5})
	if got := d.CurrentTime(); got != 12.5 {
		t.Errorf("expected position 12.5, got %v", got)
	}

	// A new clip resets the cached position.
	d.SetClip("b.mp4", 8)
	if got := d.CurrentTime(); got != 0 {
		t.Errorf("expected position reset on SetClip, got %v", got)
	}
}

func TestVideoDeviceIgnoresGarbagePayload(t *testing.T) {
	bus := newFakeBus()
	rec := &signalRecorder{}
	d := NewVideoDevice(bus, videoTopics(), rec.sink, nil)
	if err := d.Listen(); err != nil {
		t.Fatal(err)
	}

	bus.mu.Lock()
	handler := bus.handlers["story/video/evt"]
	bus.mu.Unlock()
	handler(nil, &fakeMessage{topic: "story/video/evt", payload: []byte("not json")})

	if len(rec.all()) != 0 {
		t.Error("garbage payload must not produce signals")
	}
}

func TestAudioDeviceSkipsEmptyDeck(t *testing.T) {
	bus := newFakeBus()
	dev := &MediaDevice{Name: "narration", CommandTopic: "story/narration/cmd", EventTopic: "story/narration/evt"}
	d := NewAudioDevice(bus, dev, nil)

	d.SetClip("")
	d.Play()
	d.SetTime(0)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	for _, raw := range bus.published["story/narration/cmd"] {
		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			t.Fatal(err)
		}
		if cmd.Signal == "play" || cmd.Signal == "set_time" {
			t.Errorf("empty deck must not receive %s", cmd.Signal)
		}
	}
	if d.IsPlaying() {
		t.Error("empty deck must not report playing")
	}
}

func TestAudioDeviceCommands(t *testing.T) {
	bus := newFakeBus()
	dev := &MediaDevice{Name: "music", CommandTopic: "story/music/cmd", EventTopic: "story/music/evt"}
	d := NewAudioDevice(bus, dev, nil)

	d.SetClip("bed.ogg")
	d.SetTime(0)
	if cmd := bus.lastCommand(t, "story/music/cmd"); cmd.Signal != "set_time" {
		t.Errorf("expected set_time, got %s", cmd.Signal)
	}

	d.Play()
	if cmd := bus.lastCommand(t, "story/music/cmd"); cmd.Signal != "play" {
		t.Errorf("expected play, got %s", cmd.Signal)
	}
	if !d.IsPlaying() {
		t.Error("expected playing")
	}
}

func TestChoiceDeviceForwardsChoices(t *testing.T) {
	bus := newFakeBus()
	rec := &signalRecorder{}
	dev := &MediaDevice{Name: "choices", CommandTopic: "story/choices/cmd", EventTopic: "story/choices/evt"}
	d := NewChoiceDevice(bus, dev, rec.sink, nil)
	if err := d.Listen(); err != nil {
		t.Fatal(err)
	}

	d.Show()
	if cmd := bus.lastCommand(t, "story/choices/cmd"); cmd.Signal != "show" {
		t.Errorf("expected show, got %s", cmd.Signal)
	}

	bus.deliver(t, "story/choices/evt", DeviceEvent{Signal: "choice", Choice: "success"})
	bus.deliver(t, "story/choices/evt", DeviceEvent{Signal: "choice", Choice: "bogus"})

	sigs := rec.all()
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal (bogus dropped), got %d", len(sigs))
	}
	if sigs[0].Kind != playback.SignalChoice || sigs[0].Choice != show.ChoiceSuccess {
		t.Errorf("unexpected choice signal: %+v", sigs[0])
	}
}

func TestCaptionDevicePublishesText(t *testing.T) {
	bus := newFakeBus()
	dev := &MediaDevice{Name: "captions", CommandTopic: "story/captions/cmd"}
	d := NewCaptionDevice(bus, dev)

	d.SetText("hello")
	cmd := bus.lastCommand(t, "story/captions/cmd")
	if cmd.Signal != "set_text" || cmd.Payload["text"] != "hello" {
		t.Errorf("unexpected caption command: %+v", cmd)
	}
}

func TestMonitorHeartbeatTransitions(t *testing.T) {
	m := NewMonitor(10*time.Millisecond, 2.0)

	if m.IsConnected("video") {
		t.Error("unknown device must not be connected")
	}

	m.Touch("video")
	if !m.IsConnected("video") {
		t.Error("expected connected after heartbeat")
	}

	// Silence past the tolerance window flips the device to disconnected.
	time.Sleep(30 * time.Millisecond)
	m.sweep()
	if m.IsConnected("video") {
		t.Error("expected disconnected after missed heartbeats")
	}

	m.Touch("video")
	if !m.IsConnected("video") {
		t.Error("expected reconnect on next heartbeat")
	}
}
