package pty

import (
	"sync"
	"sync/atomic"
)

// Subscription receives a copy of every output chunk in order. When its
// buffer is full the oldest chunk is dropped to admit the newest, so a slow
// reader never stalls the session.
type Subscription struct {
	ch        chan []byte
	dropped   atomic.Int64
	closeOnce sync.Once
	unsub     func(*Subscription)
}

func newSubscription(size int, unsub func(*Subscription)) *Subscription {
	return &Subscription{ch: make(chan []byte, size), unsub: unsub}
}

// C returns the chunk channel. It is closed when the session ends or the
// subscription is closed.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Dropped returns how many chunks were discarded for this subscriber.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	if s.unsub != nil {
		s.unsub(s)
	}
}

// deliver enqueues chunk, evicting the oldest entries as needed. It reports
// how many chunks were evicted. Only the session's reader calls it.
func (s *Subscription) deliver(chunk []byte) int {
	evicted := 0
	for {
		select {
		case s.ch <- chunk:
			return evicted
		default:
		}
		select {
		case <-s.ch:
			evicted++
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Subscription) closeChannel() {
	s.closeOnce.Do(func() { close(s.ch) })
}
