package cgem

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mountDouble scripts a mount that reports each axis still running for
// a fixed number of slew-done polls per phase. A negative perPhase
// holds the axes running forever, so the slew can only end by abort.
type mountDouble struct {
	mu        sync.Mutex
	pollsLeft map[Axis]int
	perPhase  int
	onPoll    func()
}

func newMountDouble(perPhase int) *mountDouble {
	return &mountDouble{
		pollsLeft: map[Axis]int{Motor1: perPhase, Motor2: perPhase},
		perPhase:  perPhase,
	}
}

func (d *mountDouble) reply(frame []byte) []byte {
	if len(frame) != 8 || frame[0] != framePassthrough {
		return []byte{replyTerminator}
	}
	axis := Motor1
	if frame[2] == devMotor2 {
		axis = Motor2
	}
	switch frame[3] {
	case cmdGotoFast, cmdGotoSlow:
		d.mu.Lock()
		d.pollsLeft[axis] = d.perPhase
		d.mu.Unlock()
		return []byte{replyTerminator}
	case cmdSlewDone:
		if d.onPoll != nil {
			d.onPoll()
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.perPhase < 0 {
			return []byte{0x00, replyTerminator}
		}
		if d.pollsLeft[axis] > 0 {
			d.pollsLeft[axis]--
			return []byte{0x00, replyTerminator}
		}
		return []byte{stoppedSentinel, replyTerminator}
	}
	return []byte{replyTerminator}
}

func countFrames(writes [][]byte, dev, cmd byte) int {
	n := 0
	for _, w := range writes {
		if len(w) == 8 && w[0] == framePassthrough && w[2] == dev && w[3] == cmd {
			n++
		}
	}
	return n
}

func countStops(writes [][]byte) int {
	n := 0
	for _, w := range writes {
		if len(w) == 1 && w[0] == frameStop {
			n++
		}
	}
	return n
}

func phasesSeen(statuses []Status) []string {
	var out []string
	for _, s := range statuses {
		if len(out) == 0 || out[len(out)-1] != s.SlewPhase {
			out = append(out, s.SlewPhase)
		}
	}
	return out
}

func TestSlewConverges(t *testing.T) {
	double := newMountDouble(3)
	st := newScriptTransport(t, double.reply)
	var statuses []Status
	m := New(st, func() float64 { return 0 }, func(s Status) {
		statuses = append(statuses, s)
	})

	if err := m.SlewToMotors(context.Background(), 120, 45); err != nil {
		t.Fatalf("slew failed: %v", err)
	}

	want := []string{"FAST", "SLOW", "CONVERGED"}
	if diff := cmp.Diff(want, phasesSeen(statuses)); diff != "" {
		t.Errorf("phase sequence (-want +got):\n%s", diff)
	}

	writes := st.written()
	for _, test := range []struct {
		name      string
		dev, cmd  byte
		wantCount int
	}{
		{"motor1 fast goto", devMotor1, cmdGotoFast, 1},
		{"motor2 fast goto", devMotor2, cmdGotoFast, 1},
		{"motor1 slow goto", devMotor1, cmdGotoSlow, 1},
		{"motor2 slow goto", devMotor2, cmdGotoSlow, 1},
	} {
		if got := countFrames(writes, test.dev, test.cmd); got != test.wantCount {
			t.Errorf("%s issued %d times, want %d", test.name, got, test.wantCount)
		}
	}
	if got := countStops(writes); got != 0 {
		t.Errorf("converged slew issued %d stop frames, want 0", got)
	}
	status := m.Status()
	if status.SlewActive {
		t.Error("slew still marked active after convergence")
	}
}

func TestSlewAbort(t *testing.T) {
	double := newMountDouble(1000)
	st := newScriptTransport(t, double.reply)
	var statuses []Status
	m := New(st, func() float64 { return 0 }, func(s Status) {
		statuses = append(statuses, s)
	})
	polls := 0
	double.onPoll = func() {
		polls++
		if polls == 3 {
			m.AbortSlew()
		}
	}

	err := m.SlewToMotors(context.Background(), 200, 10)
	if !errors.Is(err, ErrSlewAborted) {
		t.Fatalf("slew returned %v, want ErrSlewAborted", err)
	}

	writes := st.written()
	if got := countStops(writes); got != 1 {
		t.Errorf("aborted slew issued %d stop frames, want exactly 1", got)
	}
	if got := countFrames(writes, devMotor1, cmdGotoSlow) + countFrames(writes, devMotor2, cmdGotoSlow); got != 0 {
		t.Errorf("aborted slew issued %d slow-phase frames, want 0", got)
	}
	phases := phasesSeen(statuses)
	if phases[len(phases)-1] != "ABORTED" {
		t.Errorf("final phase = %q, want ABORTED", phases[len(phases)-1])
	}
	for _, p := range phases {
		if p == "SLOW" {
			t.Error("abort during fast phase must never reach SLOW")
		}
	}

	// Aborted is terminal; a fresh slew starts from scratch.
	double.onPoll = nil
	double.mu.Lock()
	double.perPhase = 1
	double.mu.Unlock()
	if err := m.SlewToMotors(context.Background(), 10, 10); err != nil {
		t.Fatalf("slew after abort failed: %v", err)
	}
}

func TestSlewContextCancel(t *testing.T) {
	double := newMountDouble(1000)
	st := newScriptTransport(t, double.reply)
	m := New(st, func() float64 { return 0 }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	polls := 0
	double.onPoll = func() {
		polls++
		if polls == 2 {
			cancel()
		}
	}
	if err := m.SlewToMotors(ctx, 10, 20); !errors.Is(err, ErrSlewAborted) {
		t.Fatalf("slew returned %v, want ErrSlewAborted", err)
	}
	if got := countStops(st.written()); got != 1 {
		t.Errorf("canceled slew issued %d stop frames, want 1", got)
	}
}

func TestSlewRejectsConcurrent(t *testing.T) {
	// Hold the axes running so the first slew cannot converge before
	// the second one is attempted.
	double := newMountDouble(-1)
	st := newScriptTransport(t, double.reply)
	m := New(st, func() float64 { return 0 }, nil)
	started := make(chan struct{})
	var once sync.Once
	double.onPoll = func() {
		once.Do(func() { close(started) })
	}
	done := make(chan error, 1)
	go func() {
		done <- m.SlewToMotors(context.Background(), 100, 100)
	}()
	<-started
	if err := m.SlewToMotors(context.Background(), 1, 2); !errors.Is(err, ErrSlewInProgress) {
		t.Errorf("second slew returned %v, want ErrSlewInProgress", err)
	}
	m.AbortSlew()
	if err := <-done; !errors.Is(err, ErrSlewAborted) {
		t.Errorf("first slew returned %v, want ErrSlewAborted", err)
	}
}

type faultTransport struct {
	scriptTransport
	err error
}

func (ft *faultTransport) Write(p []byte) (int, error) {
	return 0, ft.err
}

func TestSlewTransportFault(t *testing.T) {
	ft := &faultTransport{err: errors.New("port gone")}
	m := New(ft, func() float64 { return 0 }, nil)
	err := m.SlewToMotors(context.Background(), 10, 20)
	if err == nil || errors.Is(err, ErrSlewAborted) {
		t.Fatalf("slew returned %v, want transport fault", err)
	}
}
