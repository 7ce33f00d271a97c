package cgem

import "math"

// Angles on the wire are 24-bit unsigned fractions of a full turn,
// big-endian. One count is 360/2^24 degrees, about 0.077 arcsec.
const angleCounts = 1 << 24

// normalize wraps an angle into [0, 360).
func normalize(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}

// EncodeAngle converts an angle in degrees to its three wire bytes.
func EncodeAngle(angle float64) (byte, byte, byte) {
	counts := uint32(math.Round(normalize(angle)/360*angleCounts)) % angleCounts
	return byte(counts >> 16), byte(counts >> 8), byte(counts)
}

// DecodeAngle converts three wire bytes back to degrees in [0, 360).
func DecodeAngle(b1, b2, b3 byte) float64 {
	counts := uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
	return 360 * float64(counts) / angleCounts
}
