package playback

import (
	"fmt"

	"github.com/lumenplay/StoryEngine/internal/caption"
	"github.com/lumenplay/StoryEngine/internal/events"
	"github.com/lumenplay/StoryEngine/internal/show"
)

// SessionState is the lifecycle state of the playback session.
type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionPreparing SessionState = "preparing"
	SessionPlaying   SessionState = "playing"
)

// Session executes the playback protocol for one bundle at a time: stop any
// prior playback, assign tracks, prepare the video, start every track in the
// same tick once prepared, and report the finish. It never runs two bundles
// concurrently.
type Session struct {
	video     VideoBackend
	narration AudioBackend
	music     AudioBackend
	subtitles *Driver
	captions  CaptionLoader

	gen          uint64
	phase        show.Phase
	state        SessionState
	hasNarration bool
	hasMusic     bool
}

// NewSession creates a session over the given backends. loader resolves
// caption document references; subtitles receives the rebuilt cue list on
// every bundle load.
func NewSession(video VideoBackend, narration, music AudioBackend, subtitles *Driver, loader CaptionLoader) *Session {
	return &Session{
		video:     video,
		narration: narration,
		music:     music,
		subtitles: subtitles,
		captions:  loader,
		state:     SessionIdle,
	}
}

// Load supersedes any in-flight playback and begins preparing the bundle.
// The caption track is rebuilt immediately, independent of media readiness.
// A bundle without a video reference is rejected before anything is stopped.
func (s *Session) Load(b show.Bundle, p show.Phase) error {
	if b.Video == "" {
		events.Emit("error", "bundle.rejected", "bundle has no video reference", map[string]interface{}{
			"phase": string(p),
		})
		return fmt.Errorf("bundle for phase %s has no video reference", p)
	}

	s.stopTracks()

	// Any prepared/finished signal still in flight for the previous load now
	// carries a stale generation and will be discarded.
	s.gen++
	s.phase = p
	s.state = SessionPreparing

	s.hasNarration = b.Narration != ""
	s.hasMusic = b.Music != ""
	s.narration.SetClip(b.Narration)
	s.music.SetClip(b.Music)
	if s.hasNarration {
		s.narration.SetTime(0)
	}
	if s.hasMusic {
		s.music.SetTime(0)
	}

	s.video.SetClip(b.Video, s.gen)
	s.video.Prepare()

	s.loadCaptions(b.Captions)

	events.Emit("info", "bundle.loaded", "", map[string]interface{}{
		"phase":      string(p),
		"video":      b.Video,
		"generation": s.gen,
	})
	return nil
}

// HandlePrepared resumes the session once the backend reports readiness.
// All three tracks start within the same call, bounding inter-track skew to
// sub-tick magnitude. Returns false for stale or unexpected signals.
func (s *Session) HandlePrepared(gen uint64) bool {
	if s.state != SessionPreparing || gen != s.gen {
		events.Emit("debug", "bundle.stale", "discarding prepared signal", map[string]interface{}{
			"signal_generation":  gen,
			"current_generation": s.gen,
			"state":              string(s.state),
		})
		return false
	}

	s.state = SessionPlaying

	if s.hasNarration {
		s.narration.SetTime(0)
	}
	if s.hasMusic {
		s.music.SetTime(0)
	}
	s.video.Play()
	if s.hasNarration {
		s.narration.Play()
	}
	if s.hasMusic {
		s.music.Play()
	}

	events.Emit("info", "bundle.started", "", map[string]interface{}{
		"phase":      string(s.phase),
		"generation": s.gen,
	})
	return true
}

// HandleFinished returns the session to idle when the current clip ends and
// reports which phase just finished. Stale or unexpected signals are
// discarded and reported with ok=false.
func (s *Session) HandleFinished(gen uint64) (show.Phase, bool) {
	if s.state != SessionPlaying || gen != s.gen {
		events.Emit("debug", "bundle.stale", "discarding finished signal", map[string]interface{}{
			"signal_generation":  gen,
			"current_generation": s.gen,
			"state":              string(s.state),
		})
		return "", false
	}

	// The video ended on its own; stopping it again lets the backend settle
	// its playing state. Audio beds may be longer and must not bleed into
	// the next bundle.
	s.video.Stop()
	if s.hasNarration {
		s.narration.Stop()
	}
	if s.hasMusic {
		s.music.Stop()
	}
	s.state = SessionIdle

	events.Emit("info", "bundle.finished", "", map[string]interface{}{
		"phase":      string(s.phase),
		"generation": s.gen,
	})
	return s.phase, true
}

// Stop halts all tracks and invalidates any in-flight signals. Subsequent
// prepared/finished deliveries for the old load carry a stale generation.
func (s *Session) Stop() {
	s.stopTracks()
	s.gen++
	if s.subtitles != nil {
		s.subtitles.SetCues(nil)
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// Generation returns the current load generation.
func (s *Session) Generation() uint64 {
	return s.gen
}

// Phase returns the phase of the currently loaded bundle.
func (s *Session) Phase() show.Phase {
	return s.phase
}

func (s *Session) stopTracks() {
	if s.state == SessionIdle {
		return
	}
	s.video.Stop()
	if s.hasNarration {
		s.narration.Stop()
	}
	if s.hasMusic {
		s.music.Stop()
	}
	s.state = SessionIdle
}

func (s *Session) loadCaptions(ref string) {
	if s.subtitles == nil {
		return
	}
	if ref == "" {
		s.subtitles.SetCues(nil)
		return
	}

	doc, err := s.captions(ref)
	if err != nil {
		events.Emit("error", "caption.error", "failed to load caption document", map[string]interface{}{
			"ref":   ref,
			"error": err.Error(),
		})
		s.subtitles.SetCues(nil)
		return
	}

	cues := caption.Parse(doc)
	if len(cues) == 0 && len(doc) > 0 {
		events.Emit("warn", "caption.empty", "caption document produced no cues", map[string]interface{}{
			"ref": ref,
		})
	} else {
		events.Emit("info", "caption.loaded", "", map[string]interface{}{
			"ref":  ref,
			"cues": len(cues),
		})
	}
	s.subtitles.SetCues(cues)
}
