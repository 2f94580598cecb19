package rocket

import "sync"

// CommandQueue collects commands from any goroutine until the simulation drains
// them at the next tick boundary.
type CommandQueue struct {
	mu      sync.Mutex
	pending Command
}

// NewCommandQueue returns an empty command queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

// Push merges c into the pending command.
func (q *CommandQueue) Push(c Command) {
	q.mu.Lock()
	q.pending = q.pending.Merge(c)
	q.mu.Unlock()
}

// Drain returns the pending command and empties the queue.
func (q *CommandQueue) Drain() Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	c := q.pending
	q.pending = Command{}
	return c
}
