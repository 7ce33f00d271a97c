package cgem

import "math"

// Pointing math between RA/Dec and motor angles. The meridian-side
// branch below matches the mount's asymmetric axis wrap; it is kept in
// these two pure functions so a future hardware recheck touches
// nothing else.

// pmod is a modulo that is never negative, like Python's %.
func pmod(x, m float64) float64 {
	x = math.Mod(x, m)
	if x < 0 {
		x += m
	}
	return x
}

// hourAngle returns the signed hour angle LST-RA in degrees, wrapped
// to (-180, 180].
func hourAngle(ra, lst float64) float64 {
	h := pmod(lst-ra, 24)
	if h > 12 {
		h -= 24
	}
	return h * 15
}

// MotorTargets maps an RA (hours) / Dec (degrees) target at the given
// local sidereal time (hours) to absolute motor angles in degrees.
// Which side of the meridian the target lies on selects the wrap.
func MotorTargets(ra, dec, lst float64) (angle1, angle2 float64) {
	tau := hourAngle(ra, lst)
	if tau >= 0 {
		angle1 = tau
		angle2 = pmod(180-dec, 360)
	} else {
		angle1 = pmod(tau, 180)
		angle2 = pmod(dec, 360)
	}
	return angle1, angle2
}

// RADecFromMotors is the inverse of MotorTargets for the same sidereal
// time: it recovers the RA (hours) and Dec (degrees) a pair of motor
// angles points at.
func RADecFromMotors(angle1, angle2, lst float64) (ra, dec float64) {
	m2 := pmod(angle2+90, 360)
	west := m2 >= 180
	if west {
		dec = 270 - m2
	} else {
		dec = m2 - 90
	}
	if west {
		ra = -angle1 / 15
	} else {
		ra = (180 - angle1) / 15
	}
	ra = pmod(ra+lst, 24)
	return ra, dec
}
