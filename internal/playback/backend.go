// Package playback sequences one media bundle at a time across the external
// video, audio, and caption devices, and drives subtitle timing off the
// playback clock.
package playback

import "github.com/lumenplay/StoryEngine/internal/show"

// SignalKind identifies an asynchronous backend signal.
type SignalKind string

const (
	// SignalPrepared: the video backend finished preparing the current clip.
	SignalPrepared SignalKind = "prepared"
	// SignalFinished: playback reached the end of the current clip.
	SignalFinished SignalKind = "finished"
	// SignalChoice: the choice UI reported an operator decision.
	SignalChoice SignalKind = "choice"
)

// Signal is a discrete external event delivered to the scheduling loop.
// Prepared and finished signals carry the generation of the bundle load they
// belong to; signals for a superseded load are discarded.
type Signal struct {
	Kind       SignalKind
	Generation uint64
	Choice     show.Choice
}

// VideoBackend is the contract the external video player must satisfy.
// SetClip tags the clip with a load generation; the backend stamps every
// subsequent prepared/finished signal with that generation so stale signals
// from a superseded clip can be told apart.
type VideoBackend interface {
	SetClip(ref string, gen uint64)
	Prepare()
	Play()
	Stop()
	IsPlaying() bool
	CurrentTime() float64
}

// AudioBackend is the contract for the narration and music players.
// SetClip("") means "no clip"; Play and SetTime on an empty deck are no-ops.
type AudioBackend interface {
	SetClip(ref string)
	Play()
	Stop()
	SetTime(seconds float64)
	CurrentTime() float64
	IsPlaying() bool
}

// CaptionDisplay renders the current caption line. An empty string clears it.
type CaptionDisplay interface {
	SetText(text string)
}

// CaptionLoader resolves a caption document reference to its raw text.
type CaptionLoader func(ref string) (string, error)
