package cgem

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQueueFairness(t *testing.T) {
	const n = 50
	q := newQueue()
	tickets := make([]Ticket, n)
	for i := range tickets {
		tickets[i] = q.Enqueue()
	}

	var mu sync.Mutex
	var order []Ticket
	var wg sync.WaitGroup
	// Start the waiters in shuffled order; completion must still
	// follow ticket order.
	perm := rand.Perm(n)
	for _, i := range perm {
		wg.Add(1)
		go func(ticket Ticket) {
			defer wg.Done()
			q.AwaitTurn(ticket)
			mu.Lock()
			order = append(order, ticket)
			mu.Unlock()
			q.Release(ticket)
		}(tickets[i])
	}
	wg.Wait()

	if diff := cmp.Diff(tickets, order); diff != "" {
		t.Errorf("completion order != enqueue order (-want +got):\n%s", diff)
	}
}

func TestQueueTicketWrap(t *testing.T) {
	q := newQueue()
	q.counter = ticketModulus - 1
	first := q.Enqueue()
	second := q.Enqueue()
	if first != 0 {
		t.Errorf("ticket at wrap = %d, want 0", first)
	}
	if second != 1 {
		t.Errorf("ticket after wrap = %d, want 1", second)
	}
	q.AwaitTurn(first)
	q.Release(first)
	q.AwaitTurn(second)
	q.Release(second)
}

func TestQueueReleaseOutOfTurn(t *testing.T) {
	q := newQueue()
	first := q.Enqueue()
	second := q.Enqueue()
	defer func() {
		if recover() == nil {
			t.Error("expected panic releasing out of turn")
		}
		_ = first
	}()
	q.Release(second)
}

func TestQueueAwaitUnknownTicket(t *testing.T) {
	q := newQueue()
	q.Enqueue()
	defer func() {
		if recover() == nil {
			t.Error("expected panic awaiting a ticket never enqueued")
		}
	}()
	q.AwaitTurn(Ticket(4242))
}
