package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Ticker calls fn once immediately and then on every interval until the
// context ends, Stop is called, or fn returns false. Each view that needs a
// live countdown owns its own Ticker.
type Ticker struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func Start(ctx context.Context, interval time.Duration, fn func(now time.Time) bool) *Ticker {
	ctx, cancel := context.WithCancel(ctx)
	t := &Ticker{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		if !fn(time.Now()) {
			return
		}
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tk.C:
				if !fn(now) {
					return
				}
			}
		}
	}()
	return t
}

// Stop ends the ticker and waits for an in-flight fn to return.
func (t *Ticker) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

func (t *Ticker) Done() <-chan struct{} { return t.done }
