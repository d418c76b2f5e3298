package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumenplay/StoryEngine/internal/api"
	"github.com/lumenplay/StoryEngine/internal/config"
	"github.com/lumenplay/StoryEngine/internal/events"
	"github.com/lumenplay/StoryEngine/internal/flow"
	"github.com/lumenplay/StoryEngine/internal/mqtt"
	"github.com/lumenplay/StoryEngine/internal/playback"
	"github.com/lumenplay/StoryEngine/internal/show"
	"github.com/lumenplay/StoryEngine/internal/storage/postgres"
	"github.com/lumenplay/StoryEngine/internal/version"
)

type LogLine struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func logEvent(level, event, msg string, fields map[string]interface{}) {
	line := LogLine{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Event:     event,
		Message:   msg,
		Fields:    fields,
	}
	b, _ := json.Marshal(line)
	fmt.Println(string(b))
}

// flowStatus reads machine state on the loop goroutine for /status.
type flowStatus struct {
	loop    *playback.Loop
	machine *flow.Machine
}

func (f *flowStatus) Status() api.FlowStatus {
	var s api.FlowStatus
	f.loop.Do(func() {
		s = api.FlowStatus{
			Started:  f.machine.Started(),
			Index:    f.machine.Index(),
			Phase:    string(f.machine.Phase()),
			Awaiting: f.machine.Awaiting(),
			Complete: f.machine.Complete(),
		}
	})
	return s
}

// flowControl starts and stops the show on the loop goroutine.
type flowControl struct {
	loop    *playback.Loop
	machine *flow.Machine
}

func (f *flowControl) StartFlow() error {
	var err error
	f.loop.Do(func() {
		f.machine.Stop()
		f.loop.Session().Stop()
		err = f.machine.Start()
	})
	return err
}

func (f *flowControl) StopFlow() error {
	f.loop.Do(func() {
		f.machine.Stop()
		f.loop.Session().Stop()
	})
	return nil
}

// choiceRelay feeds operator choices through the signal queue, the same
// path the physical choice panel uses.
type choiceRelay struct {
	loop *playback.Loop
}

func (c *choiceRelay) InjectChoice(choice show.Choice) {
	c.loop.Post(playback.Signal{Kind: playback.SignalChoice, Choice: choice})
}

func readCaptionFile(ref string) (string, error) {
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func main() {
	showPath := flag.String("show", "config/show.yaml", "path to the show configuration")
	devicesPath := flag.String("devices", "config/devices.yaml", "path to the device topic map")
	autostart := flag.Bool("autostart", true, "start the flow immediately instead of waiting for the operator")
	flag.Parse()

	hostname, _ := os.Hostname()
	logEvent("info", "system.startup", "storyengine starting", map[string]interface{}{
		"service":  "storyengine",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})

	showCfg, err := config.LoadShowConfig(*showPath)
	if err != nil {
		logEvent("error", "system.error", "failed to load show config", map[string]interface{}{
			"path": *showPath, "error": err.Error(),
		})
		os.Exit(1)
	}
	devCfg, err := config.LoadDevicesConfig(*devicesPath)
	if err != nil {
		logEvent("error", "system.error", "failed to load devices config", map[string]interface{}{
			"path": *devicesPath, "error": err.Error(),
		})
		os.Exit(1)
	}

	// Event persistence is best-effort: a show runs fine without Postgres.
	if pg, err := postgres.New(showCfg.Show.ID); err != nil {
		logEvent("warn", "system.error", "postgres unavailable, events will not be persisted", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		events.SetPostgresClient(pg)
		defer pg.Close()
	}

	bus := mqtt.NewClient("storyengine-" + showCfg.Show.ID)
	if !bus.StartWithRetry() {
		logEvent("warn", "system.error", "mqtt broker unreachable at startup, reconnecting in background", nil)
	}

	registry, err := mqtt.NewDeviceRegistry(devCfg)
	if err != nil {
		logEvent("error", "system.error", "invalid devices config", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	mon := mqtt.NewMonitor(5*time.Second, 2.0)
	mon.Start()
	defer mon.Stop()

	lookup := func(name string) *mqtt.MediaDevice {
		dev, err := registry.Get(name)
		if err != nil {
			logEvent("error", "system.error", "device missing from devices config", map[string]interface{}{
				"device": name,
			})
			os.Exit(1)
		}
		return dev
	}

	// The loop is constructed after the devices, but devices only hold its
	// Post method, which is safe before Run starts.
	var loop *playback.Loop
	sink := func(sig playback.Signal) { loop.Post(sig) }

	video := mqtt.NewVideoDevice(bus, lookup("video"), sink, mon)
	narration := mqtt.NewAudioDevice(bus, lookup("narration"), mon)
	music := mqtt.NewAudioDevice(bus, lookup("music"), mon)
	choices := mqtt.NewChoiceDevice(bus, lookup("choices"), sink, mon)
	captions := mqtt.NewCaptionDevice(bus, lookup("captions"))

	driver := playback.NewDriver(captions, video.CurrentTime, showCfg.Subtitles.OffsetSeconds, showCfg.ClearInGaps())
	session := playback.NewSession(video, narration, music, driver, readCaptionFile)
	loop = playback.NewLoop(session, driver, time.Duration(showCfg.TickMillis())*time.Millisecond)

	machine := flow.New(showCfg.Sequence(), loop, choices)
	loop.SetMachine(machine)

	for name, dev := range map[string]interface{ Listen() error }{
		"video":     video,
		"narration": narration,
		"music":     music,
		"choices":   choices,
	} {
		if err := dev.Listen(); err != nil {
			logEvent("warn", "device.error", "failed to subscribe to device events", map[string]interface{}{
				"device": name, "error": err.Error(),
			})
		}
	}

	api.InitAuth()
	api.InitMetrics(showCfg.Show.Name)
	api.SetStatusProvider(&flowStatus{loop: loop, machine: machine})
	api.SetController(&flowControl{loop: loop, machine: machine})
	api.SetChoiceInjector(&choiceRelay{loop: loop})
	api.Start(showCfg.UIPort())

	stop := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		close(stop)
	}()

	if *autostart {
		if err := machine.Start(); err != nil {
			logEvent("error", "system.error", "show cannot start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	loop.Run(stop)

	machine.Stop()
	session.Stop()
	bus.Disconnect()
	events.Emit("info", "system.shutdown", "storyengine stopping", nil)
	logEvent("info", "system.shutdown", "storyengine stopped", nil)
}
