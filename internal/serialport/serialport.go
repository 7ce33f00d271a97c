// Package serialport implements the mount transport over a local
// serial device.
package serialport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// readSlice is the port-level read timeout; ReadReply loops in slices
// of this until its own deadline.
const readSlice = 50 * time.Millisecond

type Port struct {
	s *serial.Port
}

// Open opens the serial device. The CGEM hand controller talks 9600
// 8N1.
func Open(name string, baud int) (*Port, error) {
	c := &serial.Config{Name: name, Baud: baud, ReadTimeout: readSlice}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", name, err)
	}
	return &Port{s: s}, nil
}

func (p *Port) Write(b []byte) (int, error) {
	return p.s.Write(b)
}

// ReadReply collects up to n bytes, giving up at the deadline and
// returning whatever arrived. Hard I/O errors are returned as-is.
func (p *Port) ReadReply(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)
	deadline := time.Now().Add(timeout)
	for len(buf) < n && time.Now().Before(deadline) {
		got, err := p.s.Read(chunk[:n-len(buf)])
		buf = append(buf, chunk[:got]...)
		if err == io.EOF {
			// Port-level timeout slice; keep waiting until the
			// deadline.
			continue
		}
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}

func (p *Port) Close() error {
	return p.s.Close()
}
