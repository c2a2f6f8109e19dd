package tools

import (
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when pushing into a queue at capacity
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueEmpty is returned when popping from an empty queue
	ErrQueueEmpty = errors.New("queue is empty")
)

// ConcurrentQueue is a bounded FIFO that is thread safe. Workers building a
// tree level drain one until Pop reports ErrQueueEmpty.
type ConcurrentQueue[T any] struct {
	queue    []T
	capacity int
	head     int
	tail     int
	empty    bool
	sync.RWMutex
}

// NewConcurrentQueue returns a new empty ConcurrentQueue with the given max capacity
func NewConcurrentQueue[T any](capacity int) *ConcurrentQueue[T] {
	return &ConcurrentQueue[T]{
		queue:    make([]T, capacity),
		capacity: capacity,
		head:     0,
		tail:     0,
		empty:    true,
		RWMutex:  sync.RWMutex{},
	}
}

// Push appends el, or returns ErrQueueFull when the queue is at capacity
func (q *ConcurrentQueue[T]) Push(el T) error {
	q.Lock()
	defer q.Unlock()
	if q.isFull() {
		return ErrQueueFull
	}

	q.queue[q.tail] = el
	q.tail = (q.tail + 1) % q.capacity
	q.empty = false
	return nil
}

// Pop removes the oldest element, or returns ErrQueueEmpty
func (q *ConcurrentQueue[T]) Pop() (T, error) {
	q.Lock()
	defer q.Unlock()
	var zero T
	if q.empty {
		return zero, ErrQueueEmpty
	}

	el := q.queue[q.head]
	// release the reference held by the ring
	q.queue[q.head] = zero
	q.head = (q.head + 1) % q.capacity
	if q.head == q.tail {
		q.empty = true
	}
	return el, nil
}

// Len returns the number of queued elements
func (q *ConcurrentQueue[T]) Len() int {
	q.RLock()
	defer q.RUnlock()
	if q.empty {
		return 0
	}
	if q.tail > q.head {
		return q.tail - q.head
	}
	return q.capacity - q.head + q.tail
}

func (q *ConcurrentQueue[T]) isFull() bool {
	return q.capacity == 0 || (q.tail == q.head && !q.empty)
}
