package scheduling

import (
	"testing"
	"time"

	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
)

func TestWithinBusinessHours(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"opening slot", at(9, 0), true},
		{"last bookable slot", at(17, 30), true},
		{"closing time", at(18, 0), false},
		{"slot spilling past closing", at(17, 45), false},
		{"before opening", at(8, 30), false},
		{"mid morning", at(10, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinBusinessHours(tt.t); got != tt.want {
				t.Fatalf("WithinBusinessHours(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestBookableFrom(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if got := BookableFrom(now); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// A zoned clock still rolls over on the UTC day.
	zone := time.FixedZone("ART", -3*60*60)
	now = time.Date(2026, 3, 10, 22, 0, 0, 0, zone) // 01:00 UTC on the 11th
	want = time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	if got := BookableFrom(now); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSlotGridCoversBusinessHours(t *testing.T) {
	grid := SlotGrid(time.Date(2026, 3, 10, 13, 45, 0, 0, time.UTC))
	if len(grid) != SlotsPerDay {
		t.Fatalf("grid has %d slots, want %d", len(grid), SlotsPerDay)
	}
	if !grid[0].Equal(at(9, 0)) {
		t.Fatalf("first slot %v, want 09:00", grid[0])
	}
	if !grid[len(grid)-1].Equal(at(17, 30)) {
		t.Fatalf("last slot %v, want 17:30", grid[len(grid)-1])
	}
	for i := 1; i < len(grid); i++ {
		if grid[i].Sub(grid[i-1]) != SlotDuration {
			t.Fatalf("grid step %v between %v and %v", grid[i].Sub(grid[i-1]), grid[i-1], grid[i])
		}
	}
}

func TestAvailableSlotsExcludesBookedSlot(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	existing := []entity.Appointment{{
		ID:          uuid.New(),
		DoctorID:    uuid.New(),
		ScheduledAt: at(10, 0),
		Status:      entity.AppointmentStatusConfirmed,
	}}

	slots := AvailableSlots(existing, day, uuid.Nil)
	if len(slots) != SlotsPerDay-1 {
		t.Fatalf("got %d slots, want %d", len(slots), SlotsPerDay-1)
	}
	if slots[0] != "09:00" {
		t.Fatalf("first slot %q, want 09:00", slots[0])
	}
	if slots[len(slots)-1] != "17:30" {
		t.Fatalf("last slot %q, want 17:30", slots[len(slots)-1])
	}
	for _, s := range slots {
		if s == "10:00" {
			t.Fatal("booked slot 10:00 listed as available")
		}
	}
	// Ascending, no duplicates.
	for i := 1; i < len(slots); i++ {
		if slots[i] <= slots[i-1] {
			t.Fatalf("slots out of order: %q before %q", slots[i-1], slots[i])
		}
	}
}

// Cancelled appointments free their slot for enumeration as well as for the
// availability check; the two views of the calendar must agree.
func TestAvailableSlotsIgnoreCancelled(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	existing := []entity.Appointment{{
		ID:          uuid.New(),
		DoctorID:    uuid.New(),
		ScheduledAt: at(10, 0),
		Status:      entity.AppointmentStatusCancelled,
	}}

	slots := AvailableSlots(existing, day, uuid.Nil)
	if len(slots) != SlotsPerDay {
		t.Fatalf("got %d slots, want the full grid of %d", len(slots), SlotsPerDay)
	}
}

func TestAvailableSlotsExcludesEditedAppointment(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	edited := entity.Appointment{
		ID:          uuid.New(),
		DoctorID:    uuid.New(),
		ScheduledAt: at(11, 0),
		Status:      entity.AppointmentStatusPending,
	}

	slots := AvailableSlots([]entity.Appointment{edited}, day, edited.ID)
	if len(slots) != SlotsPerDay {
		t.Fatalf("got %d slots, want %d: the edited appointment must not block its own slot", len(slots), SlotsPerDay)
	}
}
