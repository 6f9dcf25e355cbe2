package factsync

import (
	"context"
	"slices"
	"sync"
)

// Subscription is a continuous query: it emits a fresh snapshot of its query
// result on Updates every time a committed write changes that result.
//
// The first emission is the current snapshot. Consecutive emissions are never
// equal; writes that leave the result unchanged produce nothing. Notifications
// coalesce, so a slow consumer skips intermediate states but always receives
// the latest one.
type Subscription struct {
	id      uint64
	store   *Store
	query   Query
	updates chan []Fact
	notify  chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// Observe registers a continuous query on the store.
// The subscription ends when ctx is cancelled, Close is called, or the store is closed.
func (s *Store) Observe(ctx context.Context, q Query) (*Subscription, error) {
	if _, _, err := q.compile(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		store:   s,
		query:   q,
		updates: make(chan []Fact),
		notify:  make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	// Pending notification produces the initial snapshot.
	sub.notify <- struct{}{}

	// Registered before the first read, so no commit after this point is missed.
	s.subsMu.Lock()
	s.nextSubID++
	sub.id = s.nextSubID
	s.subs[sub.id] = sub
	s.subsMu.Unlock()

	go sub.run(ctx)
	return sub, nil
}

// Updates returns the snapshot channel. It is closed when the subscription ends.
func (sub *Subscription) Updates() <-chan []Fact {
	return sub.updates
}

// Err returns why the subscription ended, or nil while it is active.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Close ends the subscription and waits for its goroutine to exit.
func (sub *Subscription) Close() {
	sub.stop(ErrSubscriptionClosed)
}

func (sub *Subscription) stop(reason error) {
	sub.setErr(reason)
	sub.cancel()
	<-sub.done
}

func (sub *Subscription) setErr(err error) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.err == nil {
		sub.err = err
	}
}

func (sub *Subscription) run(ctx context.Context) {
	defer close(sub.done)
	defer close(sub.updates)
	defer sub.store.removeSubscription(sub.id)

	var (
		last    []Fact
		emitted bool
	)
	for {
		select {
		case <-ctx.Done():
			sub.setErr(ctx.Err())
			return
		case <-sub.notify:
		}

		facts, err := sub.store.ReadAll(ctx, sub.query)
		if err != nil {
			if ctx.Err() != nil {
				sub.setErr(ctx.Err())
				return
			}
			sub.store.log.Error(err, "re-run continuous query")
			sub.setErr(err)
			return
		}

		if emitted && slices.Equal(last, facts) {
			continue
		}

		select {
		case sub.updates <- facts:
			last = facts
			emitted = true
		case <-ctx.Done():
			sub.setErr(ctx.Err())
			return
		}
	}
}

func (s *Store) notifySubscribers() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, sub := range s.subs {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

func (s *Store) removeSubscription(id uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subs, id)
}
