package cgem

import (
	"context"
	"log"
	"sync"
	"time"
)

// SiderealTimeFunc returns the current local apparent sidereal time in
// hours. The mount treats astronomy as a black box.
type SiderealTimeFunc func() float64

// Mount is a CGEM-family equatorial mount session. All callers share
// one Mount per physical mount; the link's ticket queue serializes
// their transactions onto the half-duplex line.
type Mount struct {
	link *Link
	lst  SiderealTimeFunc

	statusCallback StatusCallback

	mu      sync.Mutex
	status  Status
	slewing bool

	abortMu   sync.Mutex
	abortFlag bool
}

// New wires a mount session onto a transport. statusCallback may be
// nil; lst must not be.
func New(t Transport, lst SiderealTimeFunc, statusCallback StatusCallback) *Mount {
	return &Mount{
		link:           NewLink(t),
		lst:            lst,
		statusCallback: statusCallback,
		status:         Status{SlewPhase: phaseIdle.String()},
	}
}

// Link exposes the transaction layer for raw command callers.
func (m *Mount) Link() *Link {
	return m.link
}

// Initialize replays the startup command sequence.
func (m *Mount) Initialize(ctx context.Context, seq []NamedFrame) error {
	return m.link.Initialize(ctx, seq)
}

// PollPositions reads both motor angles once and updates the status
// snapshot, including the derived RA/Dec.
func (m *Mount) PollPositions() error {
	a1, err := m.link.ReadMotorAngle(Motor1)
	if err != nil {
		return err
	}
	a2, err := m.link.ReadMotorAngle(Motor2)
	if err != nil {
		return err
	}
	ra, dec := RADecFromMotors(a1, a2, m.lst())
	m.mu.Lock()
	m.status.Mot1Pos = a1
	m.status.Mot2Pos = a2
	m.status.RAPos = ra
	m.status.DecPos = dec
	m.mu.Unlock()
	m.notifyStatus()
	return nil
}

// Watch polls positions at the given interval until ctx is canceled.
// Poll failures are logged and retried; a dead link keeps failing and
// is the caller's problem to resolve.
func (m *Mount) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := m.PollPositions(); err != nil {
			log.Printf("cgem: polling positions: %v", err)
		}
	}
}

// Status returns the current snapshot.
func (m *Mount) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// RADec returns the pointing derived from the cached motor angles and
// the current sidereal time.
func (m *Mount) RADec() (float64, float64) {
	m.mu.Lock()
	a1, a2 := m.status.Mot1Pos, m.status.Mot2Pos
	m.mu.Unlock()
	return RADecFromMotors(a1, a2, m.lst())
}

// Move starts a hand-paddle move on one axis at rate level -9..9.
// Axis 0 is motor 1; level 0 stops the move.
func (m *Mount) Move(axis, level int) error {
	_, err := m.link.Transact(MoveFrame(Axis(axis), level))
	return err
}

// Stop halts all commanded motion. An active slew is aborted
// cooperatively and issues its own stop frame; otherwise the stop
// frame is sent directly.
func (m *Mount) Stop() error {
	m.mu.Lock()
	slewing := m.slewing
	m.mu.Unlock()
	if slewing {
		m.AbortSlew()
		return nil
	}
	_, err := m.link.Transact(StopFrame())
	return err
}

func (m *Mount) notifyStatus() {
	if m.statusCallback == nil {
		return
	}
	m.mu.Lock()
	status := m.status
	m.mu.Unlock()
	m.statusCallback(status)
}
