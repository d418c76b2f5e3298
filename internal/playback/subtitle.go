package playback

import "github.com/lumenplay/StoryEngine/internal/caption"

// Driver maps the advancing playback clock to the active caption each tick.
// It owns the cue list and the remembered cue index exclusively; both are
// replaced wholesale on every bundle load.
type Driver struct {
	display     CaptionDisplay
	clock       func() float64
	offset      float64
	clearInGaps bool

	cues  []caption.Cue
	last  int
	shown string
	wrote bool
}

// NewDriver creates a subtitle driver. clock reads the authoritative
// playback position in seconds; offset is a signed correction for backend
// latency. clearInGaps controls whether the display is blanked between cues.
func NewDriver(display CaptionDisplay, clock func() float64, offset float64, clearInGaps bool) *Driver {
	return &Driver{
		display:     display,
		clock:       clock,
		offset:      offset,
		clearInGaps: clearInGaps,
		last:        -1,
	}
}

// SetCues replaces the cue list and clears the display.
func (d *Driver) SetCues(cues []caption.Cue) {
	d.cues = cues
	d.last = -1
	d.setText("")
}

// Tick advances caption display for the current clock reading. The common
// case, staying inside the same cue, costs one interval check; everything
// else is a binary search.
func (d *Driver) Tick() {
	if len(d.cues) == 0 {
		d.setText("")
		return
	}

	t := d.clock() + d.offset

	if d.last >= 0 && d.last < len(d.cues) {
		c := d.cues[d.last]
		if t >= c.Start && t <= c.End {
			return
		}
		// Left the remembered cue's range; blank before searching so a stale
		// caption never shows into a gap.
		if d.clearInGaps {
			d.setText("")
		}
	}

	if i := caption.Locate(d.cues, t); i >= 0 {
		d.last = i
		d.setText(d.cues[i].Text)
		return
	}

	// No active cue. Park on the last passed cue so future ticks keep the
	// cheap revalidation path instead of re-scanning from the start.
	d.last = caption.LastStartAtOrBefore(d.cues, t)
	if d.clearInGaps {
		d.setText("")
	}
}

// Shown returns the currently displayed text.
func (d *Driver) Shown() string {
	return d.shown
}

// setText writes to the display only on change. The first write always goes
// through: the display may still be rendering text from before this driver
// existed, so the empty-string cache cannot be trusted until we have written
// something ourselves.
func (d *Driver) setText(s string) {
	if d.wrote && s == d.shown {
		return
	}
	d.wrote = true
	d.shown = s
	d.display.SetText(s)
}
