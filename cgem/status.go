package cgem

import "github.com/ugoe-astro/cgem_interface/mount"

type StatusCallback func(status Status)

// Status is a snapshot of the mount session. Callbacks receive a copy;
// concurrent readers never see partial updates.
type Status struct {
	// Mot1Pos and Mot2Pos are the last known motor angles in decimal
	// degrees, [0, 360).
	Mot1Pos float64
	Mot2Pos float64
	// RAPos is in hours, DecPos in degrees, derived from the motor
	// angles and the sidereal time at the last poll.
	RAPos  float64
	DecPos float64

	// Commanded slew targets in motor degrees.
	CommandMot1Pos float64
	CommandMot2Pos float64
	// SlewPhase is NONE, FAST, SLOW, CONVERGED or ABORTED.
	SlewPhase  string
	SlewActive bool

	// Commanded tracking rates in arcsec/sec.
	TrackRate1 float64
	TrackRate2 float64
}

func (s Status) Clone() mount.Status {
	return s
}

func (s Status) MotorAngles() (float64, float64) {
	return s.Mot1Pos, s.Mot2Pos
}

func (s Status) RADec() (float64, float64) {
	return s.RAPos, s.DecPos
}

func (s Status) Slewing() bool {
	return s.SlewActive
}
