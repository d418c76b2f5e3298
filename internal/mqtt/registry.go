package mqtt

import (
	"fmt"
	"sync"

	"github.com/lumenplay/StoryEngine/internal/config"
)

// MediaDevice holds the resolved topics for one named device on the bus.
type MediaDevice struct {
	Name         string
	CommandTopic string
	EventTopic   string
}

// DeviceRegistry maps device names from devices.yaml to their topics.
// Devices are statically configured; there is no dynamic registration.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]*MediaDevice
}

// NewDeviceRegistry builds a registry from the devices configuration.
// Every device needs a command topic; the event topic is optional for
// output-only devices like the caption display.
func NewDeviceRegistry(cfg *config.DevicesConfig) (*DeviceRegistry, error) {
	r := &DeviceRegistry{
		devices: make(map[string]*MediaDevice),
	}
	for name, dc := range cfg.Devices {
		if dc.CommandTopic == "" {
			return nil, fmt.Errorf("device %s has no command_topic", name)
		}
		r.devices[name] = &MediaDevice{
			Name:         name,
			CommandTopic: dc.CommandTopic,
			EventTopic:   dc.EventTopic,
		}
	}
	return r, nil
}

// Get returns a device by name, or an error naming the missing device.
func (r *DeviceRegistry) Get(name string) (*MediaDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[name]
	if !ok {
		return nil, fmt.Errorf("device not configured: %s", name)
	}
	cpy := *dev
	return &cpy, nil
}

// All returns every configured device.
func (r *DeviceRegistry) All() []*MediaDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MediaDevice, 0, len(r.devices))
	for _, dev := range r.devices {
		cpy := *dev
		out = append(out, &cpy)
	}
	return out
}
