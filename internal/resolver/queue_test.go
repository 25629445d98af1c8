package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkQueueOrdering(t *testing.T) {
	var q workQueue

	q.pushBack(workItem{kind: KindHost, key: "1.2.3.4"})
	q.pushBack(workItem{kind: KindHost, key: "5.6.7.8"})
	q.pushFront(workItem{kind: KindClass, key: "1.2.3"})

	assert.Equal(t, 3, q.len())

	w, ok := q.popFront()
	assert.True(t, ok)
	assert.Equal(t, workItem{kind: KindClass, key: "1.2.3"}, w, "classes preempt hosts")

	w, _ = q.popFront()
	assert.Equal(t, "1.2.3.4", w.key)
	w, _ = q.popFront()
	assert.Equal(t, "5.6.7.8", w.key)

	_, ok = q.popFront()
	assert.False(t, ok)
	assert.Zero(t, q.len())
}

func TestWorkQueuePushFrontOnEmpty(t *testing.T) {
	var q workQueue
	q.pushFront(workItem{kind: KindClass, key: "10.0.0"})

	w, ok := q.popFront()
	assert.True(t, ok)
	assert.Equal(t, "10.0.0", w.key)
}
