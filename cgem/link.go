package cgem

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// replyTimeout bounds the wait for a motor controller reply. The hand
// controller answers well inside this on a healthy line.
const replyTimeout = 250 * time.Millisecond

// Transport is the minimal serial channel contract. The link never
// opens, configures, or closes the underlying port.
type Transport interface {
	Write(p []byte) (n int, err error)
	// ReadReply collects up to n bytes, returning whatever arrived
	// before the timeout. Only I/O failures are errors; a short read
	// after the timeout is not.
	ReadReply(n int, timeout time.Duration) ([]byte, error)
}

// Link couples the frame codec with the arbitration queue to provide
// atomic write-then-read transactions on the shared line.
type Link struct {
	t Transport
	q *queue

	mu     sync.Mutex
	angles [2]float64
	valid  [2]bool
}

func NewLink(t Transport) *Link {
	return &Link{t: t, q: newQueue()}
}

// Transact writes one frame and reads its reply while holding the
// line. The write+read pair of one ticket is never interleaved with
// another's.
func (l *Link) Transact(f Frame) ([]byte, error) {
	ticket := l.q.Enqueue()
	l.q.AwaitTurn(ticket)
	defer l.q.Release(ticket)
	if _, err := l.t.Write(f.Bytes()); err != nil {
		return nil, fmt.Errorf("writing frame % x: %w", f.Bytes(), err)
	}
	reply, err := l.t.ReadReply(f.ReplyLen(), replyTimeout)
	if err != nil {
		return nil, fmt.Errorf("reading reply to % x: %w", f.Bytes(), err)
	}
	return reply, nil
}

// ReadMotorAngle polls one axis's position. A reply of the wrong
// length is logged and the last good angle returned; the line is noisy
// and self-corrects on the next poll.
func (l *Link) ReadMotorAngle(axis Axis) (float64, error) {
	f := PositionFrame(axis)
	reply, err := l.Transact(f)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(reply) != f.ReplyLen() {
		log.Printf("cgem: malformed %v position reply % x, keeping %.4f", axis, reply, l.angles[axis])
		return l.angles[axis], nil
	}
	l.angles[axis] = DecodeAngle(reply[0], reply[1], reply[2])
	l.valid[axis] = true
	return l.angles[axis], nil
}

// CachedAngle returns the last angle successfully read for axis.
func (l *Link) CachedAngle(axis Axis) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.angles[axis]
}

// NamedFrame is one entry of a startup command sequence.
type NamedFrame struct {
	Name string `yaml:"name"`
	Hex  string `yaml:"frame"`
}

// Initialize replays an ordered command sequence, one transaction at a
// time. Any failure here is fatal to the session.
func (l *Link) Initialize(ctx context.Context, seq []NamedFrame) error {
	for _, nf := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := RawFrame(nf.Hex)
		if err != nil {
			return fmt.Errorf("init command %q: %w", nf.Name, err)
		}
		if _, err := l.Transact(f); err != nil {
			return fmt.Errorf("init command %q: %w", nf.Name, err)
		}
		log.Printf("cgem: init command %q sent", nf.Name)
	}
	return nil
}
