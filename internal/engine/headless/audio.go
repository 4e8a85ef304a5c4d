package headless

import (
	"context"
	"sync"

	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/pkg/core"
)

// Clip is a recorded PlayAt call.
type Clip struct {
	URL     string
	At      core.Vec3
	Stopped bool
}

// Audio records what would have been played.
type Audio struct {
	mu    sync.Mutex
	clips []*Clip
}

// NewAudio creates an empty recorder.
func NewAudio() *Audio {
	return &Audio{}
}

// PlayAt implements engine.Audio.
func (a *Audio) PlayAt(_ context.Context, url string, at core.Vec3) (engine.Playback, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := &Clip{URL: url, At: at}
	a.clips = append(a.clips, c)
	return &playback{audio: a, clip: c}, nil
}

// Clips returns copies of the recorded clips.
func (a *Audio) Clips() []Clip {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Clip, len(a.clips))
	for i, c := range a.clips {
		out[i] = *c
	}
	return out
}

type playback struct {
	audio *Audio
	clip  *Clip
}

func (p *playback) Stop() {
	p.audio.mu.Lock()
	defer p.audio.mu.Unlock()
	p.clip.Stopped = true
}
