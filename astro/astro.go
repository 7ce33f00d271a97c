// Package astro supplies the sidereal time the pointing math needs,
// backed by the NOVAS library's calendar/Julian date conversion. The
// mount core only ever sees an hours-valued function.
package astro

import (
	"time"

	"github.com/pebbe/novas"
)

const j2000 = 2451545.0

// Observer is a fixed site on Earth.
type Observer struct {
	// Latitude and Longitude in degrees, east positive. Height in
	// meters above sea level.
	Latitude  float64
	Longitude float64
	Height    float64

	place *novas.Place
}

func NewObserver(latitude, longitude, height float64) *Observer {
	return &Observer{
		Latitude:  latitude,
		Longitude: longitude,
		Height:    height,
		place:     novas.NewPlace(latitude, longitude, height, 10, 1010),
	}
}

// Place returns the NOVAS observing place for topocentric lookups.
func (o *Observer) Place() *novas.Place {
	return o.place
}

// SiderealTime returns the local mean sidereal time at t, in hours
// [0, 24). UTC stands in for UT1; the difference is under a second,
// well below the mount's pointing resolution.
func (o *Observer) SiderealTime(t time.Time) float64 {
	nt := novas.Time{Time: t.UTC()}
	return normalizeHours(gmst(nt.ToJulian()) + o.Longitude/15)
}

// Now is SiderealTime at the current instant, shaped for the mount's
// SiderealTimeFunc collaborator.
func (o *Observer) Now() float64 {
	return o.SiderealTime(time.Now())
}

// gmst is Greenwich mean sidereal time in hours for a UT1-scale
// Julian date, per the IAU 1982 expression.
func gmst(jd float64) float64 {
	d := jd - j2000
	tc := d / 36525
	deg := 280.46061837 + 360.98564736629*d + 0.000387933*tc*tc - tc*tc*tc/38710000
	return normalizeHours(deg / 15)
}

func normalizeHours(h float64) float64 {
	h -= 24 * float64(int(h/24))
	if h < 0 {
		h += 24
	}
	return h
}
