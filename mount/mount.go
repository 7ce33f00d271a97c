package mount

import "context"

// Mount is a two-axis equatorial mount.
type Mount interface {
	// SlewTo drives both motors to an RA/Dec target and returns once the
	// mount has settled. Returns ErrSlewAborted from the implementation if
	// the slew was aborted.
	SlewTo(ctx context.Context, ra, dec float64) error
	AbortSlew()
	Stop() error
	SetTracking(rate1, rate2 float64) error
	StopTracking() error
}

type StatusCallback func(status Status)

type Status interface {
	// MotorAngles returns the last known motor angles in degrees.
	MotorAngles() (float64, float64)
	RADec() (float64, float64)
	Slewing() bool

	Clone() Status
}

// Mover is implemented by mounts that support hand-paddle rate moves,
// level -9..9, 0 stopping the move.
type Mover interface {
	Move(axis, level int) error
}
