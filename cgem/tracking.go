package cgem

import "fmt"

// SetTracking commands sustained per-axis rates in arcsec/sec. The two
// frames are independent, not jointly atomic; the firmware holds each
// rate until countermanded. There is no polling: tracking is
// fire-and-forget.
func (m *Mount) SetTracking(rate1, rate2 float64) error {
	if _, err := m.link.Transact(TrackFrame(Motor1, rate1)); err != nil {
		return fmt.Errorf("motor1 tracking rate: %w", err)
	}
	if _, err := m.link.Transact(TrackFrame(Motor2, rate2)); err != nil {
		return fmt.Errorf("motor2 tracking rate: %w", err)
	}
	m.mu.Lock()
	m.status.TrackRate1 = rate1
	m.status.TrackRate2 = rate2
	m.mu.Unlock()
	m.notifyStatus()
	return nil
}

// StopTracking zeroes both axes' rates.
func (m *Mount) StopTracking() error {
	return m.SetTracking(0, 0)
}
