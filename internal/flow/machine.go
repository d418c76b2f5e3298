// Package flow holds the question/outcome finite automaton. It exclusively
// owns the sequence index and the active phase; both mutate only inside its
// transition handlers.
package flow

import (
	"fmt"

	"github.com/lumenplay/StoryEngine/internal/events"
	"github.com/lumenplay/StoryEngine/internal/show"
)

// Loader starts playback of a bundle. Implemented by the playback loop.
type Loader interface {
	LoadBundle(b show.Bundle, p show.Phase) error
}

// ChoicePanel is the external choice UI. It must be visible only while the
// flow awaits a decision.
type ChoicePanel interface {
	Show()
	Hide()
}

// Machine reacts to "bundle finished" and "choice made" events and decides
// the next bundle to load or terminates the sequence.
type Machine struct {
	seq    show.Sequence
	loader Loader
	panel  ChoicePanel

	index    int
	phase    show.Phase
	awaiting bool
	complete bool
	started  bool
}

// New creates a machine over an already-validated sequence.
func New(seq show.Sequence, loader Loader, panel ChoicePanel) *Machine {
	return &Machine{
		seq:    seq,
		loader: loader,
		panel:  panel,
	}
}

// Start validates the configuration and loads the first question. A sequence
// that cannot start is a configuration error; the machine stays unstarted.
func (m *Machine) Start() error {
	if err := m.seq.Validate(); err != nil {
		return fmt.Errorf("flow cannot start: %w", err)
	}

	m.started = true
	m.complete = false
	events.Emit("info", "flow.started", "", map[string]interface{}{
		"questions": m.seq.Len(),
	})
	return m.load(0, show.PhaseQuestion)
}

// Stop halts a running flow. The machine returns to the unstarted state and
// can be restarted from the first question with Start.
func (m *Machine) Stop() {
	if !m.started {
		return
	}
	m.started = false
	m.awaiting = false
	m.panel.Hide()
	events.Emit("info", "flow.stopped", "", map[string]interface{}{
		"index": m.index,
	})
}

// HandleChoice reacts to an operator decision. Choices arriving while media
// is still playing, or after completion, are ignored as out-of-order input;
// the choice UI is hidden then, so these are races or double-clicks.
func (m *Machine) HandleChoice(c show.Choice) {
	if !m.awaiting {
		events.Emit("debug", "choice.ignored", "choice received while not awaiting one", map[string]interface{}{
			"choice": string(c),
			"index":  m.index,
		})
		return
	}

	var p show.Phase
	switch c {
	case show.ChoiceSuccess:
		p = show.PhaseSuccess
	case show.ChoiceFailure:
		p = show.PhaseFailure
	default:
		events.Emit("debug", "choice.ignored", "unknown choice value", map[string]interface{}{
			"choice": string(c),
		})
		return
	}

	events.Emit("info", "choice.made", "", map[string]interface{}{
		"choice": string(c),
		"index":  m.index,
	})
	m.awaiting = false
	if err := m.load(m.index, p); err != nil {
		events.Emit("error", "system.error", "failed to load outcome bundle", map[string]interface{}{
			"index": m.index,
			"phase": string(p),
			"error": err.Error(),
		})
	}
}

// HandleFinished reacts to the end of the current bundle's playback.
func (m *Machine) HandleFinished(p show.Phase) {
	if !m.started || m.complete {
		return
	}

	switch p {
	case show.PhaseQuestion:
		// The question played out; hold position and wait for a decision.
		m.awaiting = true
		m.panel.Show()
		events.Emit("info", "flow.awaiting_choice", "", map[string]interface{}{
			"index": m.index,
		})

	case show.PhaseSuccess:
		next := m.index + 1
		if next >= m.seq.Len() || m.seq.At(next).Question.Video == "" {
			m.index = next
			m.complete = true
			events.Emit("info", "flow.completed", "", map[string]interface{}{
				"questions": m.seq.Len(),
			})
			return
		}
		if err := m.load(next, show.PhaseQuestion); err != nil {
			events.Emit("error", "system.error", "failed to load next question", map[string]interface{}{
				"index": next,
				"error": err.Error(),
			})
		}

	case show.PhaseFailure:
		// Retry semantics: the same question plays again, never the next one.
		if err := m.load(m.index, show.PhaseQuestion); err != nil {
			events.Emit("error", "system.error", "failed to reload question", map[string]interface{}{
				"index": m.index,
				"error": err.Error(),
			})
		}
	}
}

func (m *Machine) load(i int, p show.Phase) error {
	m.panel.Hide()
	m.awaiting = false
	m.index = i
	m.phase = p

	name := "flow.question"
	if p != show.PhaseQuestion {
		name = "flow.outcome"
	}
	events.Emit("info", name, "", map[string]interface{}{
		"index": i,
		"phase": string(p),
	})

	return m.loader.LoadBundle(m.seq.At(i).Bundle(p), p)
}

// Index returns the current zero-based sequence index. Once the sequence
// completes normally it equals the sequence length.
func (m *Machine) Index() int {
	return m.index
}

// Phase returns the phase of the bundle loaded most recently.
func (m *Machine) Phase() show.Phase {
	return m.phase
}

// Awaiting reports whether the flow is paused on an operator choice.
func (m *Machine) Awaiting() bool {
	return m.awaiting
}

// Complete reports whether the sequence has terminated.
func (m *Machine) Complete() bool {
	return m.complete
}

// Started reports whether Start succeeded.
func (m *Machine) Started() bool {
	return m.started
}
