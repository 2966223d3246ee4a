package scheduling

import (
	"time"

	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
)

// Business hours: appointments run from 09:00 to 18:00 UTC in 30-minute
// steps, so the last bookable start is 17:30.
const (
	OpeningMinute = 9 * 60
	ClosingMinute = 18 * 60

	slotMinutes   = 30
	SlotsPerDay   = (ClosingMinute - OpeningMinute) / slotMinutes
	slotTimeLabel = "15:04"
)

// WithinBusinessHours reports whether a normalized start time begins a slot
// that fits entirely inside business hours.
func WithinBusinessHours(t time.Time) bool {
	minute := t.Hour()*60 + t.Minute()
	return minute >= OpeningMinute && minute+slotMinutes <= ClosingMinute
}

// BookableFrom returns the earliest instant an appointment may be scheduled
// for: the start of the UTC day after now. Same-day booking is not allowed.
func BookableFrom(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

// SlotGrid returns the ordered candidate slot starts for the UTC day of date.
func SlotGrid(date time.Time) []time.Time {
	date = date.UTC()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	grid := make([]time.Time, 0, SlotsPerDay)
	for m := OpeningMinute; m < ClosingMinute; m += slotMinutes {
		grid = append(grid, day.Add(time.Duration(m)*time.Minute))
	}
	return grid
}

// AvailableSlots returns the "HH:MM" labels of the business-hour slots on the
// UTC day of date not taken by any of the given appointments, in ascending
// order. The appointment identified by exclude is ignored, as are cancelled
// appointments. Recomputed from current state on every call.
func AvailableSlots(existing []entity.Appointment, date time.Time, exclude uuid.UUID) []string {
	labels := make([]string, 0, SlotsPerDay)
	for _, start := range SlotGrid(date) {
		if HasConflict(existing, start, exclude) {
			continue
		}
		labels = append(labels, start.Format(slotTimeLabel))
	}
	return labels
}
