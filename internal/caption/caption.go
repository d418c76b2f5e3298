// Package caption parses SRT-style caption documents and maps playback
// time to the active cue.
package caption

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Cue is a single timed caption entry. Times are seconds from clip start.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// Timing line: "HH:MM:SS,mmm --> HH:MM:SS,mmm". A dot separator is accepted
// because some authoring tools emit it.
var timingRe = regexp.MustCompile(
	`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`,
)

// Parse converts a caption document into cues sorted ascending by start time.
// It never fails: malformed blocks are dropped and parsing continues with the
// rest of the document. Blocks whose end precedes their start are dropped.
func Parse(doc string) []Cue {
	doc = strings.TrimPrefix(doc, "\ufeff")
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\r", "\n")

	lines := strings.Split(doc, "\n")
	var cues []Cue

	i := 0
	for i < len(lines) {
		// Skip blank lines between blocks.
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i >= len(lines) {
			break
		}

		// Optional numeric index line.
		line := strings.TrimSpace(lines[i])
		if _, err := strconv.Atoi(line); err == nil {
			i++
			if i >= len(lines) {
				break
			}
			line = strings.TrimSpace(lines[i])
		}

		m := timingRe.FindStringSubmatch(line)
		if m == nil {
			// Not a block we understand; skip to the next blank line.
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
				i++
			}
			continue
		}
		i++

		start := toSeconds(m[1], m[2], m[3], m[4])
		end := toSeconds(m[5], m[6], m[7], m[8])

		var text []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			text = append(text, lines[i])
			i++
		}

		if end < start {
			continue
		}
		body := strings.TrimSpace(strings.Join(text, "\n"))
		if body == "" {
			continue
		}

		cues = append(cues, Cue{Start: start, End: end, Text: body})
	}

	// Authoring order is not trusted.
	sort.SliceStable(cues, func(a, b int) bool {
		return cues[a].Start < cues[b].Start
	})

	return cues
}

// toSeconds converts already-validated timestamp components to seconds.
func toSeconds(hours, minutes, seconds, millis string) float64 {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000
}
