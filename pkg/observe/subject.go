// Package observe provides a small replaying publish/subscribe primitive used
// to push profile, statistics, settings and practice state to their readers.
package observe

import "sync"

// Subject holds the latest published value and fans every update out to its
// subscribers. New subscribers receive the latest value first. Each
// subscriber has its own queue, so a slow reader never blocks Publish.
type Subject[T any] struct {
	mu    sync.Mutex
	value T
	has   bool
	subs  map[*Subscription[T]]struct{}
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: make(map[*Subscription[T]]struct{})}
}

// NewSubjectWith returns a subject that already holds initial.
func NewSubjectWith[T any](initial T) *Subject[T] {
	s := NewSubject[T]()
	s.value = initial
	s.has = true
	return s
}

func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.has = true
	for sub := range s.subs {
		sub.enqueue(v)
	}
}

// Value returns the latest published value.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

func (s *Subject[T]) Subscribe() *Subscription[T] {
	out := make(chan T)
	sub := &Subscription[T]{
		C:      out,
		out:    out,
		done:   make(chan struct{}),
		parent: s,
	}
	sub.cond = sync.NewCond(&sub.mu)

	s.mu.Lock()
	if s.has {
		sub.queue = append(sub.queue, s.value)
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go sub.pump()
	return sub
}

func (s *Subject[T]) remove(sub *Subscription[T]) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// Subscription delivers values on C in publish order until Close is called.
// C is closed once the subscription stops.
type Subscription[T any] struct {
	C <-chan T

	out    chan T
	done   chan struct{}
	parent *Subject[T]

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	once   sync.Once
}

func (sub *Subscription[T]) enqueue(v T) {
	sub.mu.Lock()
	if !sub.closed {
		sub.queue = append(sub.queue, v)
		sub.cond.Signal()
	}
	sub.mu.Unlock()
}

func (sub *Subscription[T]) pump() {
	defer close(sub.out)
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.closed {
			sub.cond.Wait()
		}
		if sub.closed {
			sub.mu.Unlock()
			return
		}
		v := sub.queue[0]
		var zero T
		sub.queue[0] = zero
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- v:
		case <-sub.done:
			return
		}
	}
}

// Close stops delivery. Pending values are dropped.
func (sub *Subscription[T]) Close() {
	sub.once.Do(func() {
		sub.parent.remove(sub)
		sub.mu.Lock()
		sub.closed = true
		sub.queue = nil
		sub.cond.Broadcast()
		sub.mu.Unlock()
		close(sub.done)
	})
}
