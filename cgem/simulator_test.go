package cgem

import (
	"context"
	"math"
	"testing"
	"time"
)

// startSim runs a simulator for the duration of the test and returns a
// transport connected to it.
func startSim(t *testing.T) (*Simulator, Transport) {
	t.Helper()
	sim, conn := NewSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sim.Run(ctx)
	return sim, NewConnTransport(conn)
}

func TestSimulatorSlew(t *testing.T) {
	sim, tr := startSim(t)
	sim.SetPositions(10, 350)
	m := New(tr, func() float64 { return 0 }, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.SlewToMotors(ctx, 55, 300); err != nil {
		t.Fatalf("slew failed: %v", err)
	}
	if err := m.PollPositions(); err != nil {
		t.Fatal(err)
	}
	status := m.Status()
	if math.Abs(status.Mot1Pos-55) > 0.01 {
		t.Errorf("motor1 settled at %v, want 55", status.Mot1Pos)
	}
	if math.Abs(status.Mot2Pos-300) > 0.01 {
		t.Errorf("motor2 settled at %v, want 300", status.Mot2Pos)
	}
}

func TestSimulatorSlewToRADec(t *testing.T) {
	sim, tr := startSim(t)
	sim.SetPositions(0, 0)
	lst := func() float64 { return 10 }
	m := New(tr, lst, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.SlewTo(ctx, 4, 20); err != nil {
		t.Fatalf("slew failed: %v", err)
	}
	if err := m.PollPositions(); err != nil {
		t.Fatal(err)
	}
	ra, dec := m.RADec()
	if math.Abs(ra-4) > 0.01 {
		t.Errorf("read back RA %v, want 4", ra)
	}
	if math.Abs(dec-20) > 0.01 {
		t.Errorf("read back Dec %v, want 20", dec)
	}
}

func TestSimulatorAbort(t *testing.T) {
	sim, tr := startSim(t)
	sim.SetPositions(0, 0)
	m := New(tr, func() float64 { return 0 }, nil)

	done := make(chan error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() {
		// A long way round; the abort lands mid fast phase.
		done <- m.SlewToMotors(ctx, 179, 179)
	}()
	time.Sleep(20 * time.Millisecond)
	m.AbortSlew()
	if err := <-done; err != ErrSlewAborted {
		t.Fatalf("slew returned %v, want ErrSlewAborted", err)
	}
	if err := m.PollPositions(); err != nil {
		t.Fatal(err)
	}
	// The mount stopped short of the target.
	status := m.Status()
	if math.Abs(status.Mot1Pos-179) < 0.01 && math.Abs(status.Mot2Pos-179) < 0.01 {
		t.Error("aborted slew still reached its target")
	}
}

func TestSimulatorTracking(t *testing.T) {
	sim, tr := startSim(t)
	sim.SetPositions(100, 100)
	m := New(tr, func() float64 { return 0 }, nil)
	// An exaggerated rate so the sim moves measurably fast:
	// 7200 arcsec/sec = 2 deg/s.
	if err := m.SetTracking(7200, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.PollPositions(); err != nil {
		t.Fatal(err)
	}
	before := m.Status().Mot1Pos
	time.Sleep(200 * time.Millisecond)
	if err := m.PollPositions(); err != nil {
		t.Fatal(err)
	}
	after := m.Status().Mot1Pos
	if after <= before {
		t.Errorf("tracking did not advance motor1: %v -> %v", before, after)
	}
	if got := m.Status().Mot2Pos; math.Abs(got-100) > 0.01 {
		t.Errorf("motor2 moved to %v with zero rate", got)
	}
}
