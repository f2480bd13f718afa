package remote

import (
	"context"
	"encoding/json"
	"sync"
)

// FetchFunc reads the full current contents of one collection.
type FetchFunc func(ctx context.Context) ([]json.RawMessage, error)

// Feed runs the delivery loop behind a subscription. Change signals are
// coalesced: however many arrive while a fetch is running, one more fetch
// follows, so the last delivery always reflects the latest state.
type Feed struct {
	Path string

	fetch      FetchFunc
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewFeed starts the loop. Nothing is fetched until the first Kick, so the
// owner can register the feed for change signals before the initial snapshot.
func NewFeed(ctx context.Context, path string, fetch FetchFunc, onSnapshot SnapshotFunc, onError ErrorFunc) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		Path:       path,
		fetch:      fetch,
		onSnapshot: onSnapshot,
		onError:    onError,
		kick:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go f.run()
	return f
}

// Kick requests a fresh snapshot.
func (f *Feed) Kick() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Fail reports a listener error to the subscriber unless the feed is cancelled.
func (f *Feed) Fail(err error) {
	if f.ctx.Err() != nil || f.onError == nil {
		return
	}
	f.onError(err)
}

// Cancel stops deliveries and waits for an in-progress callback to return.
func (f *Feed) Cancel() {
	f.once.Do(func() {
		f.cancel()
		<-f.done
	})
}

// Done is closed once the loop has exited.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

func (f *Feed) run() {
	defer close(f.done)
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-f.kick:
		}

		docs, err := f.fetch(f.ctx)
		if f.ctx.Err() != nil {
			return
		}
		if err != nil {
			f.Fail(err)
			continue
		}
		f.onSnapshot(docs)
	}
}
