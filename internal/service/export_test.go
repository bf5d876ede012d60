package service

import "time"

// SetClock replaces the dashboard's clock.
func (d *Dashboard) SetClock(now func() time.Time) {
	d.now = now
}
