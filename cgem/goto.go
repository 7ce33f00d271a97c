package cgem

import (
	"context"
	"errors"
	"log"
)

var (
	// ErrSlewAborted is the expected outcome of an aborted slew, not a
	// fault. A new slew may be started afterward.
	ErrSlewAborted = errors.New("cgem: slew aborted")
	// ErrSlewInProgress is returned when a slew is started while
	// another is still active.
	ErrSlewInProgress = errors.New("cgem: slew already in progress")
)

type slewPhase int

const (
	phaseIdle slewPhase = iota
	phaseFast
	phaseSlow
	phaseConverged
	phaseAborted
)

func (p slewPhase) String() string {
	switch p {
	case phaseIdle:
		return "NONE"
	case phaseFast:
		return "FAST"
	case phaseSlow:
		return "SLOW"
	case phaseConverged:
		return "CONVERGED"
	case phaseAborted:
		return "ABORTED"
	}
	return "UNKNOWN"
}

// SlewTo drives the mount to an RA (hours) / Dec (degrees) target and
// blocks until the mount settles, the slew is aborted, or the link
// fails.
func (m *Mount) SlewTo(ctx context.Context, ra, dec float64) error {
	a1, a2 := MotorTargets(ra, dec, m.lst())
	log.Printf("cgem: slewing to RA %.4fh Dec %.4f: motor1 %.4f motor2 %.4f", ra, dec, a1, a2)
	return m.SlewToMotors(ctx, a1, a2)
}

// SlewToMotors runs the two-phase slew to absolute motor angles: a
// full-rate pass to close gross distance, then a precision pass that
// kills residual velocity. Each phase submits one goto frame per axis
// and polls the slew-done frame until both axes report stopped.
func (m *Mount) SlewToMotors(ctx context.Context, angle1, angle2 float64) error {
	if !m.beginSlew(angle1, angle2) {
		return ErrSlewInProgress
	}
	defer m.endSlew()

	m.setPhase(phaseFast)
	if err := m.submitGoto(angle1, angle2, true); err != nil {
		return err
	}
	if err := m.pollUntilStopped(ctx); err != nil {
		return err
	}

	m.setPhase(phaseSlow)
	if err := m.submitGoto(angle1, angle2, false); err != nil {
		return err
	}
	if err := m.pollUntilStopped(ctx); err != nil {
		return err
	}

	m.setPhase(phaseConverged)
	return nil
}

// AbortSlew requests a cooperative abort. It does not interrupt the
// in-flight transaction; the slewing goroutine observes the flag at
// its next poll, issues one stop frame, and returns ErrSlewAborted.
func (m *Mount) AbortSlew() {
	m.abortMu.Lock()
	m.abortFlag = true
	m.abortMu.Unlock()
}

func (m *Mount) beginSlew(angle1, angle2 float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slewing {
		return false
	}
	m.slewing = true
	m.status.SlewActive = true
	m.status.CommandMot1Pos = normalize(angle1)
	m.status.CommandMot2Pos = normalize(angle2)
	m.abortMu.Lock()
	m.abortFlag = false
	m.abortMu.Unlock()
	return true
}

func (m *Mount) endSlew() {
	m.mu.Lock()
	m.slewing = false
	m.status.SlewActive = false
	m.mu.Unlock()
	m.notifyStatus()
}

func (m *Mount) setPhase(p slewPhase) {
	m.mu.Lock()
	m.status.SlewPhase = p.String()
	m.mu.Unlock()
	m.notifyStatus()
}

// submitGoto sends the phase's goto pair, motor2 first as the hand
// controller expects.
func (m *Mount) submitGoto(angle1, angle2 float64, fast bool) error {
	for _, f := range []Frame{
		GotoFrame(Motor2, angle2, fast),
		GotoFrame(Motor1, angle1, fast),
	} {
		if _, err := m.link.Transact(f); err != nil {
			return err
		}
	}
	return nil
}

// pollUntilStopped spins on the per-axis slew-done frame until both
// axes report the stopped sentinel. There is deliberately no delay in
// the loop: the queue's arbitration and the transport timeout pace it.
// The abort flag and ctx are sampled once per iteration.
func (m *Mount) pollUntilStopped(ctx context.Context) error {
	running := [2]bool{true, true}
	for running[Motor1] || running[Motor2] {
		if m.aborted(ctx) {
			m.setPhase(phaseAborted)
			if _, err := m.link.Transact(StopFrame()); err != nil {
				log.Printf("cgem: sending stop frame: %v", err)
			}
			return ErrSlewAborted
		}
		for _, axis := range []Axis{Motor1, Motor2} {
			if !running[axis] {
				continue
			}
			reply, err := m.link.Transact(SlewDoneFrame(axis))
			if err != nil {
				return err
			}
			// A short or garbled reply keeps the axis marked running;
			// the next poll self-corrects.
			if len(reply) > 0 && reply[0] == stoppedSentinel {
				running[axis] = false
			}
		}
	}
	return nil
}

func (m *Mount) aborted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	m.abortMu.Lock()
	defer m.abortMu.Unlock()
	return m.abortFlag
}
