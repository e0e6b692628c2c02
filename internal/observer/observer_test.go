package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyInSubscriptionOrder(t *testing.T) {
	var s Set[int]
	var got []string
	s.Subscribe(func(v int) { got = append(got, "a") })
	s.Subscribe(func(v int) { got = append(got, "b") })

	s.Notify(1)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, s.Len())
}

func TestUnsubscribe(t *testing.T) {
	var s Set[string]
	var a, b int
	unsubA := s.Subscribe(func(string) { a++ })
	s.Subscribe(func(string) { b++ })

	s.Notify("x")
	unsubA()
	unsubA()
	s.Notify("y")

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, s.Len())
}

func TestCallbackMaySubscribe(t *testing.T) {
	var s Set[int]
	calls := 0
	s.Subscribe(func(int) {
		calls++
		s.Subscribe(func(int) { calls++ })
	})
	s.Notify(0)
	assert.Equal(t, 1, calls)
	s.Notify(0)
	assert.Equal(t, 3, calls)
}
