// Package show defines the immutable show data model: question sets, their
// per-phase media bundles, and the ordered sequence the flow machine walks.
package show

import "fmt"

// Phase identifies which part of the current question is active.
type Phase string

const (
	PhaseQuestion Phase = "question"
	PhaseSuccess  Phase = "outcome_success"
	PhaseFailure  Phase = "outcome_failure"
)

// Choice is an operator decision delivered while the flow awaits one.
type Choice string

const (
	ChoiceSuccess Choice = "success"
	ChoiceFailure Choice = "failure"
)

// Bundle groups the media references for one phase of one question. Video is
// the only mandatory reference; empty strings mean "no clip" and that track
// is silently skipped.
type Bundle struct {
	Video     string
	Narration string
	Music     string
	Captions  string
}

// QuestionSet holds the three bundles of one narrative step. The question
// bundle's video reference is mandatory; everything else is optional.
type QuestionSet struct {
	Question Bundle
	Success  Bundle
	Failure  Bundle
}

// Bundle returns the bundle for the given phase.
func (q QuestionSet) Bundle(p Phase) Bundle {
	switch p {
	case PhaseSuccess:
		return q.Success
	case PhaseFailure:
		return q.Failure
	default:
		return q.Question
	}
}

// Sequence is the ordered, read-only list of question sets.
type Sequence struct {
	sets []QuestionSet
}

// NewSequence copies the given sets into an immutable sequence.
func NewSequence(sets []QuestionSet) Sequence {
	cpy := make([]QuestionSet, len(sets))
	copy(cpy, sets)
	return Sequence{sets: cpy}
}

// Len returns the number of question sets.
func (s Sequence) Len() int {
	return len(s.sets)
}

// At returns the question set at index i.
func (s Sequence) At(i int) QuestionSet {
	return s.sets[i]
}

// Validate checks the invariants required to start a flow: the sequence is
// non-empty and the first question has a video reference. Later questions
// with a missing video reference truncate the sequence at runtime instead of
// failing here.
func (s Sequence) Validate() error {
	if len(s.sets) == 0 {
		return fmt.Errorf("show sequence is empty")
	}
	if s.sets[0].Question.Video == "" {
		return fmt.Errorf("question 0 has no video reference")
	}
	return nil
}
