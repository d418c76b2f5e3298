package playback

import (
	"time"

	"github.com/lumenplay/StoryEngine/internal/events"
	"github.com/lumenplay/StoryEngine/internal/flow"
	"github.com/lumenplay/StoryEngine/internal/show"
)

// Loop is the single-threaded cooperative scheduler. One goroutine owns the
// session, the subtitle driver, and the flow machine; backend signals are
// queued onto it so none of those components ever run concurrently.
type Loop struct {
	session *Session
	driver  *Driver
	machine *flow.Machine

	signals  chan Signal
	commands chan func()
	interval time.Duration
}

// NewLoop creates a scheduling loop over the session and subtitle driver.
func NewLoop(session *Session, driver *Driver, interval time.Duration) *Loop {
	return &Loop{
		session:  session,
		driver:   driver,
		signals:  make(chan Signal, 64),
		commands: make(chan func(), 16),
		interval: interval,
	}
}

// Session returns the loop's playback session.
func (l *Loop) Session() *Session {
	return l.session
}

// SetMachine attaches the flow machine. The machine's bundle loads come back
// through LoadBundle, so attachment happens after construction.
func (l *Loop) SetMachine(m *flow.Machine) {
	l.machine = m
}

// LoadBundle implements flow.Loader on the loop's goroutine.
func (l *Loop) LoadBundle(b show.Bundle, p show.Phase) error {
	return l.session.Load(b, p)
}

// Post queues a backend signal for processing. Safe to call from transport
// callbacks. If the queue is full the signal is dropped and reported; a
// backend flooding signals must not wedge the scheduler.
func (l *Loop) Post(sig Signal) {
	select {
	case l.signals <- sig:
	default:
		events.Emit("error", "system.error", "signal queue full, dropping signal", map[string]interface{}{
			"kind": string(sig.Kind),
		})
	}
}

// Dispatch processes one signal synchronously. Exposed so tests can step the
// loop deterministically; Run feeds it from the signal queue.
func (l *Loop) Dispatch(sig Signal) {
	switch sig.Kind {
	case SignalPrepared:
		// All three tracks start inside HandlePrepared, before any other
		// queued event is looked at.
		l.session.HandlePrepared(sig.Generation)

	case SignalFinished:
		phase, ok := l.session.HandleFinished(sig.Generation)
		if ok && l.machine != nil {
			l.machine.HandleFinished(phase)
		}

	case SignalChoice:
		if l.machine != nil {
			l.machine.HandleChoice(sig.Choice)
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish. The session,
// driver and machine are only touched from that goroutine, so callers on
// other goroutines (the operator API) funnel through here.
func (l *Loop) Do(fn func()) {
	done := make(chan struct{})
	l.commands <- func() {
		fn()
		close(done)
	}
	<-done
}

// Tick runs one subtitle update.
func (l *Loop) Tick() {
	l.driver.Tick()
}

// Run drives the loop until stop is closed. Signals are favored over ticks
// only by arrival; both are handled on this goroutine.
func (l *Loop) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case sig := <-l.signals:
			l.Dispatch(sig)
		case fn := <-l.commands:
			fn()
		case <-ticker.C:
			l.Tick()
		}
	}
}
