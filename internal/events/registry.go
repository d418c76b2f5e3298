package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// flow
	"flow.started":         {},
	"flow.question":        {},
	"flow.outcome":         {},
	"flow.awaiting_choice": {},
	"flow.completed":       {},
	"flow.stopped":         {},

	// bundle
	"bundle.loaded":   {},
	"bundle.started":  {},
	"bundle.finished": {},
	"bundle.rejected": {},
	"bundle.stale":    {},

	// caption
	"caption.loaded": {},
	"caption.empty":  {},
	"caption.error":  {},

	// choice
	"choice.made":    {},
	"choice.ignored": {},

	// device
	"device.connected":    {},
	"device.disconnected": {},
	"device.input":        {},
	"device.error":        {},

	// operator
	"operator.choice": {},
	"operator.start":  {},
	"operator.stop":   {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
