package mqtt

import (
	"sync"
	"time"

	"github.com/lumenplay/StoryEngine/internal/events"
)

// deviceHealth tracks one device's heartbeat state.
type deviceHealth struct {
	lastSeen  time.Time
	connected bool
}

// Monitor tracks media-device heartbeats and emits device.connected /
// device.disconnected transitions. Devices publish a heartbeat on their
// event topic; a device silent for longer than the tolerance window is
// considered disconnected.
type Monitor struct {
	mu        sync.RWMutex
	devices   map[string]*deviceHealth
	interval  time.Duration
	tolerance float64
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewMonitor creates a monitor. interval is the expected heartbeat period;
// tolerance is the multiplier before a silent device counts as disconnected.
func NewMonitor(interval time.Duration, tolerance float64) *Monitor {
	if tolerance <= 1.0 {
		tolerance = 2.0 // miss one heartbeat
	}
	return &Monitor{
		devices:   make(map[string]*deviceHealth),
		interval:  interval,
		tolerance: tolerance,
		stopCh:    make(chan struct{}),
	}
}

// Touch records a heartbeat from the named device.
func (m *Monitor) Touch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, ok := m.devices[name]
	if !ok {
		dev = &deviceHealth{}
		m.devices[name] = dev
	}
	dev.lastSeen = time.Now()
	if !dev.connected {
		dev.connected = true
		events.Emit("info", "device.connected", "", map[string]interface{}{
			"device": name,
		})
	}
}

// IsConnected reports whether the named device has a live heartbeat.
func (m *Monitor) IsConnected(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dev, ok := m.devices[name]
	return ok && dev.connected
}

// Start begins the background heartbeat check.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// Stop terminates the background check and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) sweep() {
	limit := time.Duration(float64(m.interval) * m.tolerance)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, dev := range m.devices {
		if dev.connected && now.Sub(dev.lastSeen) > limit {
			dev.connected = false
			events.Emit("error", "device.disconnected", "heartbeat lost", map[string]interface{}{
				"device":    name,
				"last_seen": dev.lastSeen.UTC().Format(time.RFC3339Nano),
			})
		}
	}
}
