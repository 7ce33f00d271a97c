package cgem

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ConnTransport adapts a net.Conn (a serial-to-TCP bridge or the
// simulator's pipe) to the Transport contract using read deadlines.
type ConnTransport struct {
	c net.Conn
}

func NewConnTransport(c net.Conn) *ConnTransport {
	return &ConnTransport{c: c}
}

func (t *ConnTransport) Write(p []byte) (int, error) {
	return t.c.Write(p)
}

func (t *ConnTransport) ReadReply(n int, timeout time.Duration) ([]byte, error) {
	if err := t.c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	defer t.c.SetReadDeadline(time.Time{})
	buf := make([]byte, n)
	got, err := io.ReadFull(t.c, buf)
	if err != nil {
		if os.IsTimeout(err) {
			return buf[:got], nil
		}
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return buf[:got], nil
		}
		return buf[:got], err
	}
	return buf, nil
}

// Simulated motion rates, in degrees per simulator second.
const (
	simFastRate = 720
	simSlowRate = 90
	simStep     = 5 * time.Millisecond
)

type simAxis struct {
	pos     float64
	target  float64
	running bool
	fast    bool
	// tracking rate in deg/s, derived from the 4x arcsec/sec payload
	track float64
}

// Simulator speaks the mount's binary protocol over one end of a
// net.Pipe, with a crude kinematic model behind it. It exists for
// tests and for running the daemon without hardware.
type Simulator struct {
	conn net.Conn
	mu   sync.Mutex
	axes [2]simAxis
}

// NewSimulator returns a simulator and the peer end of its pipe.
func NewSimulator() (*Simulator, net.Conn) {
	a, b := net.Pipe()
	return &Simulator{conn: a}, b
}

// SetPositions seeds the simulated motor angles.
func (s *Simulator) SetPositions(angle1, angle2 float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.axes[Motor1].pos = normalize(angle1)
	s.axes[Motor2].pos = normalize(angle2)
}

func (s *Simulator) Run(ctx context.Context) error {
	defer s.conn.Close()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.NewTicker(simStep)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
			s.step(simStep.Seconds())
		}
	})
	g.Go(s.reader)
	return g.Wait()
}

func (s *Simulator) step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.axes {
		ax := &s.axes[i]
		if ax.running {
			rate := float64(simSlowRate)
			if ax.fast {
				rate = simFastRate
			}
			delta := shortestArc(ax.pos, ax.target)
			step := rate * dt
			if math.Abs(delta) <= step {
				ax.pos = ax.target
				ax.running = false
			} else {
				ax.pos = normalize(ax.pos + math.Copysign(step, delta))
			}
		} else if ax.track != 0 {
			ax.pos = normalize(ax.pos + ax.track*dt)
		}
	}
}

// shortestArc returns the signed shortest rotation from a to b.
func shortestArc(a, b float64) float64 {
	d := pmod(b-a, 360)
	if d > 180 {
		d -= 360
	}
	return d
}

func (s *Simulator) reader() error {
	buf := make([]byte, 8)
	for {
		if _, err := io.ReadFull(s.conn, buf[:1]); err != nil {
			if err == io.EOF || err == io.ErrClosedPipe {
				return nil
			}
			return fmt.Errorf("reading command: %w", err)
		}
		switch buf[0] {
		case frameStop:
			s.mu.Lock()
			for i := range s.axes {
				s.axes[i].running = false
			}
			s.mu.Unlock()
			if err := s.reply(nil); err != nil {
				return err
			}
		case framePassthrough:
			if _, err := io.ReadFull(s.conn, buf[1:]); err != nil {
				return fmt.Errorf("reading command body: %w", err)
			}
			if err := s.handle(buf); err != nil {
				return err
			}
		default:
			log.Printf("simulator: unknown command byte %#x", buf[0])
		}
	}
}

func (s *Simulator) handle(frame []byte) error {
	var axis Axis
	switch frame[2] {
	case devMotor1:
		axis = Motor1
	case devMotor2:
		axis = Motor2
	default:
		log.Printf("simulator: unknown device %#x", frame[2])
		return s.reply(nil)
	}
	s.mu.Lock()
	ax := &s.axes[axis]
	var data []byte
	switch frame[3] {
	case cmdGotoFast, cmdGotoSlow:
		ax.target = DecodeAngle(frame[4], frame[5], frame[6])
		ax.running = true
		ax.fast = frame[3] == cmdGotoFast
	case cmdSlewDone:
		b := byte(0x00)
		if !ax.running {
			b = stoppedSentinel
		}
		data = []byte{b}
	case cmdGetPosition:
		b1, b2, b3 := EncodeAngle(ax.pos)
		data = []byte{b1, b2, b3}
	case cmdTrackPos, cmdTrackNeg:
		rate := float64(uint16(frame[4])<<8|uint16(frame[5])) / 4 / 3600
		if frame[3] == cmdTrackNeg {
			rate = -rate
		}
		ax.track = rate
	case cmdMoveRatePos, cmdMoveRateNeg:
		rate := float64(frame[4]) / 2
		if frame[3] == cmdMoveRateNeg {
			rate = -rate
		}
		ax.track = rate
	default:
		log.Printf("simulator: unknown command %#x", frame[3])
	}
	s.mu.Unlock()
	return s.reply(data)
}

func (s *Simulator) reply(data []byte) error {
	_, err := s.conn.Write(append(data, replyTerminator))
	return err
}
