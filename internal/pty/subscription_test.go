package pty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionDropsOldest(t *testing.T) {
	sub := newSubscription(2, nil)

	total := 0
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		total += sub.deliver([]byte(c))
	}

	assert.Equal(t, 3, total)
	assert.Equal(t, int64(3), sub.Dropped())
	assert.Equal(t, "d", string(<-sub.C()))
	assert.Equal(t, "e", string(<-sub.C()))
}

func TestSubscriptionCloseTwice(t *testing.T) {
	calls := 0
	var sub *Subscription
	sub = newSubscription(1, func(s *Subscription) {
		calls++
		s.closeChannel()
	})

	sub.Close()
	sub.Close()
	assert.Equal(t, 2, calls)

	_, ok := <-sub.C()
	assert.False(t, ok)
}
