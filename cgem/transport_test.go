package cgem

import (
	"sync"
	"testing"
	"time"
)

// scriptTransport answers each written frame via reply and fails the
// test if a second write arrives before the previous reply was read.
type scriptTransport struct {
	t     *testing.T
	reply func(frame []byte) []byte

	mu       sync.Mutex
	inFlight bool
	pending  []byte
	writes   [][]byte
}

func newScriptTransport(t *testing.T, reply func(frame []byte) []byte) *scriptTransport {
	return &scriptTransport{t: t, reply: reply}
}

func (st *scriptTransport) Write(p []byte) (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.inFlight {
		st.t.Errorf("write of % x interleaved with an unread reply", p)
	}
	st.inFlight = true
	frame := append([]byte(nil), p...)
	st.writes = append(st.writes, frame)
	st.pending = st.reply(frame)
	return len(p), nil
}

func (st *scriptTransport) ReadReply(n int, timeout time.Duration) ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.inFlight {
		st.t.Error("read without a preceding write")
	}
	st.inFlight = false
	r := st.pending
	st.pending = nil
	if len(r) > n {
		r = r[:n]
	}
	return r, nil
}

func (st *scriptTransport) written() [][]byte {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([][]byte, len(st.writes))
	copy(out, st.writes)
	return out
}

// ack replies to any frame with just the terminator.
func ack([]byte) []byte {
	return []byte{replyTerminator}
}
