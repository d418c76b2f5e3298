package playback

import "fmt"

// In-process fakes for the backend contracts, mirroring what the MQTT
// devices do without a broker.

type fakeVideo struct {
	clip     string
	gen      uint64
	prepares int
	playing  bool
	stops    int
	position float64
	log      []string
}

func (f *fakeVideo) SetClip(ref string, gen uint64) {
	f.clip = ref
	f.gen = gen
	f.position = 0
	f.log = append(f.log, fmt.Sprintf("set_clip:%s", ref))
}

func (f *fakeVideo) Prepare() {
	f.prepares++
	f.log = append(f.log, "prepare")
}

func (f *fakeVideo) Play() {
	f.playing = true
	f.log = append(f.log, "play")
}

func (f *fakeVideo) Stop() {
	f.playing = false
	f.stops++
	f.log = append(f.log, "stop")
}

func (f *fakeVideo) IsPlaying() bool { return f.playing }

func (f *fakeVideo) CurrentTime() float64 { return f.position }

type fakeAudio struct {
	clip    string
	playing bool
	time    float64
	plays   int
	stops   int
	seeks   []float64
}

func (f *fakeAudio) SetClip(ref string) { f.clip = ref }

func (f *fakeAudio) Play() { f.playing = true; f.plays++ }

func (f *fakeAudio) Stop() { f.playing = false; f.stops++ }

func (f *fakeAudio) SetTime(s float64) { f.time = s; f.seeks = append(f.seeks, s) }

func (f *fakeAudio) CurrentTime() float64 { return f.time }

func (f *fakeAudio) IsPlaying() bool { return f.playing }

type fakeDisplay struct {
	text   string
	writes int
}

func (f *fakeDisplay) SetText(s string) {
	f.text = s
	f.writes++
}

type fakePanel struct {
	visible bool
}

func (f *fakePanel) Show() { f.visible = true }
func (f *fakePanel) Hide() { f.visible = false }
