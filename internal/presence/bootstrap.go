package presence

import (
	"context"

	"github.com/gearxr/gear/internal/signal"
)

// Subscriber is the part of the signal bus a Bootstrapper needs.
type Subscriber interface {
	Subscribe(name string, h signal.Handler, opts ...signal.Option) func()
}

// Bootstrapper starts a Sync once its viewer announces the scene is ready.
type Bootstrapper struct {
	sync        *Sync
	unsubscribe func()
}

// Bind subscribes s to the scene-ready signal of its own course module.
// Signals of other viewers sharing the bus are ignored, and the loop is
// started at most once per binding.
func Bind(bus Subscriber, s *Sync) *Bootstrapper {
	b := &Bootstrapper{sync: s}
	b.unsubscribe = bus.Subscribe(signal.SceneLoaded, func(ctx context.Context, _ signal.Signal) error {
		return s.Start(ctx)
	}, signal.ForCMID(s.deps.Source.CMID()), signal.Once(), signal.Logged())
	return b
}

// Sync returns the bound loop.
func (b *Bootstrapper) Sync() *Sync { return b.sync }

// Release unsubscribes from the bus and stops the loop.
func (b *Bootstrapper) Release() {
	b.unsubscribe()
	b.sync.Stop()
}
