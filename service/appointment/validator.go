package appointment

import (
	"errors"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"gorm.io/gorm"
)

var (
	// ErrSlotConflict means an active appointment already occupies part of
	// the requested interval.
	ErrSlotConflict = errors.New("conflicting appointment")
	// ErrExpertUnavailable means the requested start does not fall inside
	// any available weekly window for the expert.
	ErrExpertUnavailable = errors.New("expert not available at that time")
)

// activeStatuses are the appointment states that block a time slot.
// Cancelled, completed and rescheduled bookings never conflict.
var activeStatuses = []string{models.StatusPending, models.StatusConfirmed}

// ValidateBooking decides whether [start, end) can be booked with the expert.
// It is a pure read-then-decide check: no locks, no writes. Callers that go
// on to insert must hold the per-expert lock and run both steps on the same
// transaction.
//
// Two checks are made:
//
//  1. Overlap: two half-open intervals [s1,e1) and [s2,e2) overlap iff
//     s1 < e2 && s2 < e1, so back-to-back bookings are allowed.
//  2. Availability: the start instant, viewed in the expert's configured
//     timezone, must land inside a weekly window that is marked available.
func ValidateBooking(tx *gorm.DB, expert *models.Expert, start, end time.Time) error {
	var conflict models.Appointment
	err := tx.Where("expert_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
		expert.ID, activeStatuses, end, start).
		First(&conflict).Error
	if err == nil {
		return ErrSlotConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	loc, err := time.LoadLocation(expert.Timezone)
	if err != nil {
		return err
	}

	local := start.In(loc)
	dayOfWeek := int(local.Weekday()) // 0=Sunday .. 6=Saturday
	timeOfDay := local.Format("15:04")

	// Window times are fixed-width "HH:MM", so string comparison in SQL is
	// the same as numeric comparison. The window bounds are inclusive.
	var window models.ExpertSchedule
	err = tx.Where("expert_id = ? AND day_of_week = ? AND is_available = ? AND start_time <= ? AND end_time >= ?",
		expert.ID, dayOfWeek, true, timeOfDay, timeOfDay).
		First(&window).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrExpertUnavailable
	}
	return err
}
