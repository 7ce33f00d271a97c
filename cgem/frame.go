package cgem

import (
	"encoding/hex"
	"fmt"
	"math"
)

// Axis selects one of the two mount motors.
type Axis int

const (
	Motor1 Axis = iota // hour angle / azimuth
	Motor2             // declination / altitude
)

func (a Axis) String() string {
	switch a {
	case Motor1:
		return "motor1"
	case Motor2:
		return "motor2"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

func (a Axis) device() byte {
	if a == Motor2 {
		return devMotor2
	}
	return devMotor1
}

// Passthrough frame layout: 0x50, n, dest, cmd, d1, d2, d3, r.
// n counts the command byte plus data bytes; r is the number of data
// bytes the motor controller promises in its reply. Every reply is
// terminated by '#'. The protocol has no length prefix or checksum, so
// both sides rely on these fixed widths.
const (
	framePassthrough = 0x50
	frameStop        = 0x4d
	replyTerminator  = '#'

	devMotor1 = 0x10
	devMotor2 = 0x11

	cmdGetPosition = 0x01
	cmdGotoFast    = 0x02
	cmdTrackPos    = 0x06
	cmdTrackNeg    = 0x07
	cmdSlewDone    = 0x13
	cmdGotoSlow    = 0x17
	cmdMoveRatePos = 0x24
	cmdMoveRateNeg = 0x25

	// First reply byte of a slew-done poll once the axis has stopped.
	stoppedSentinel = 0xFF
)

// Frame is an immutable command frame plus the exact reply length
// (terminator included) the transport must collect for it.
type Frame struct {
	buf      []byte
	replyLen int
}

func (f Frame) Bytes() []byte { return f.buf }

func (f Frame) ReplyLen() int { return f.replyLen }

func passthrough(dest, cmd byte, data ...byte) Frame {
	if len(data) > 3 {
		panic(fmt.Sprintf("cgem: frame data too long: %d", len(data)))
	}
	buf := []byte{framePassthrough, byte(1 + len(data)), dest, cmd, 0, 0, 0, 0}
	copy(buf[4:], data)
	var reply byte
	switch cmd {
	case cmdGetPosition:
		reply = 3
	case cmdSlewDone:
		reply = 1
	}
	buf[7] = reply
	return Frame{buf: buf, replyLen: int(reply) + 1}
}

// GotoFrame commands a slew of one axis to an absolute angle. The fast
// variant closes gross distance at full step rate; the slow variant
// re-targets at precision rate to settle out residual velocity.
func GotoFrame(axis Axis, angle float64, fast bool) Frame {
	cmd := byte(cmdGotoSlow)
	if fast {
		cmd = cmdGotoFast
	}
	b1, b2, b3 := EncodeAngle(angle)
	return passthrough(axis.device(), cmd, b1, b2, b3)
}

// SlewDoneFrame polls whether an axis has finished a commanded slew.
// The single reply byte equals stoppedSentinel once motion has ceased.
func SlewDoneFrame(axis Axis) Frame {
	return passthrough(axis.device(), cmdSlewDone)
}

// PositionFrame requests the current encoded angle of an axis.
func PositionFrame(axis Axis) Frame {
	return passthrough(axis.device(), cmdGetPosition)
}

// TrackFrame commands a sustained tracking rate in arcsec/sec. The sign
// selects the direction opcode; the payload is 4x the magnitude as a
// 16-bit big-endian value.
func TrackFrame(axis Axis, rate float64) Frame {
	cmd := byte(cmdTrackPos)
	if rate < 0 {
		cmd = cmdTrackNeg
		rate = -rate
	}
	v := uint16(math.Round(rate * 4))
	return passthrough(axis.device(), cmd, byte(v>>8), byte(v))
}

// MoveFrame commands a hand-paddle move at a rate level 0-9. Negative
// levels reverse direction; level 0 stops the move.
func MoveFrame(axis Axis, level int) Frame {
	cmd := byte(cmdMoveRatePos)
	if level < 0 {
		cmd = cmdMoveRateNeg
		level = -level
	}
	if level > 9 {
		level = 9
	}
	return passthrough(axis.device(), cmd, byte(level))
}

// StopFrame halts a slew in progress on both axes.
func StopFrame() Frame {
	return Frame{buf: []byte{frameStop}, replyLen: 1}
}

// RawFrame builds a frame from a hex string, as used for the startup
// command sequences. The reply length is taken from the frame's own
// promised-reply byte when it has passthrough shape, else one byte.
func RawFrame(hexStr string) (Frame, error) {
	buf, err := hex.DecodeString(hexStr)
	if err != nil {
		return Frame{}, fmt.Errorf("decoding frame %q: %w", hexStr, err)
	}
	if len(buf) == 0 {
		return Frame{}, fmt.Errorf("empty frame %q", hexStr)
	}
	replyLen := 1
	if buf[0] == framePassthrough && len(buf) == 8 {
		replyLen = int(buf[7]) + 1
	}
	return Frame{buf: buf, replyLen: replyLen}, nil
}
