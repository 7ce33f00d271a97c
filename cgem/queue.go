package cgem

import (
	"fmt"
	"sync"
	"time"
)

const (
	// Tickets wrap well above any plausible number of live waiters.
	ticketModulus = 10000

	// Safety net against a lost wakeup: waiters re-check their position
	// at least this often even if no broadcast arrives.
	wakeInterval = 250 * time.Millisecond
)

// Ticket marks a caller's position in the command arbitration queue.
type Ticket uint32

// queue serializes access to the half-duplex serial line. Tickets are
// served strictly in enqueue order; exactly one ticket is at the head
// at a time. Misuse (releasing a ticket you do not hold, awaiting one
// never enqueued) is a programming error and panics.
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	counter uint32
	waiting []Ticket
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue claims the next ticket and joins the waiting list.
func (q *queue) Enqueue() Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counter = (q.counter + 1) % ticketModulus
	t := Ticket(q.counter)
	q.waiting = append(q.waiting, t)
	return t
}

// AwaitTurn blocks until t reaches the head of the waiting list. Every
// broadcast wakes all waiters and each re-checks its own position, so a
// single Release cannot be missed or consumed by the wrong waiter.
func (q *queue) AwaitTurn(t Ticket) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.position(t) != 0 {
		timer := time.AfterFunc(wakeInterval, q.cond.Broadcast)
		q.cond.Wait()
		timer.Stop()
	}
}

// Release pops t from the head of the waiting list and wakes the rest.
func (q *queue) Release(t Ticket) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiting) == 0 || q.waiting[0] != t {
		panic(fmt.Sprintf("cgem: release of ticket %d out of turn", t))
	}
	q.waiting = q.waiting[1:]
	q.cond.Broadcast()
}

// position returns the index of t in the waiting list. Callers must
// hold q.mu.
func (q *queue) position(t Ticket) int {
	for i, w := range q.waiting {
		if w == t {
			return i
		}
	}
	panic(fmt.Sprintf("cgem: ticket %d was never enqueued", t))
}
