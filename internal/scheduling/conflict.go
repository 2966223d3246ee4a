package scheduling

import (
	"time"

	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
)

// SlotDuration is the fixed length of every appointment. The system does not
// model per-appointment durations.
const SlotDuration = 30 * time.Minute

// Overlaps reports whether the half-open windows [a, a+30m) and [b, b+30m)
// intersect. Touching boundaries (one slot ending exactly when the other
// starts) do not overlap.
func Overlaps(a, b time.Time) bool {
	return a.Before(b.Add(SlotDuration)) && b.Before(a.Add(SlotDuration))
}

// HasConflict reports whether the candidate start collides with any existing
// non-cancelled appointment, skipping the appointment identified by exclude
// (uuid.Nil to exclude nothing). Callers pass the appointments of a single
// doctor; cancelled appointments free their slot for reuse.
func HasConflict(existing []entity.Appointment, start time.Time, exclude uuid.UUID) bool {
	for i := range existing {
		e := &existing[i]
		if e.ID == exclude || e.IsCancelled() {
			continue
		}
		if Overlaps(e.ScheduledAt, start) {
			return true
		}
	}
	return false
}
