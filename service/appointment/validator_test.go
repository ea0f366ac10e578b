package appointment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aayseekaya/CounselEase/cmd/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Expert{},
		&models.ExpertSchedule{},
		&models.Appointment{},
	)
	if err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func createExpert(t *testing.T, db *gorm.DB, timezone string) *models.Expert {
	t.Helper()

	user := models.User{
		FullName:     "Test Expert",
		Email:        fmt.Sprintf("expert-%s@example.com", t.Name()),
		PasswordHash: "x",
		UserType:     models.UserTypeExpert,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("creating user: %v", err)
	}
	expert := models.Expert{UserID: user.ID, Expertise: "counseling", Timezone: timezone}
	if err := db.Create(&expert).Error; err != nil {
		t.Fatalf("creating expert: %v", err)
	}
	return &expert
}

func addWindow(t *testing.T, db *gorm.DB, expertID uint, day int, start, end string, available bool) {
	t.Helper()

	window := models.ExpertSchedule{
		ExpertID:    expertID,
		DayOfWeek:   day,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: available,
	}
	if err := db.Create(&window).Error; err != nil {
		t.Fatalf("creating schedule window: %v", err)
	}
}

// 2026-09-02 is a Wednesday (weekday 3).
func wednesdayAt(hour, min int) time.Time {
	return time.Date(2026, 9, 2, hour, min, 0, 0, time.UTC)
}

func TestValidateBooking_WeeklyWindow(t *testing.T) {
	db := newTestDB(t)
	expert := createExpert(t, db, "UTC")
	addWindow(t, db, expert.ID, 3, "09:00", "17:00", true)

	if err := ValidateBooking(db, expert, wednesdayAt(10, 0), wednesdayAt(11, 0)); err != nil {
		t.Fatalf("expected 10:00 inside 09:00-17:00 window to be accepted, got %v", err)
	}

	err := ValidateBooking(db, expert, wednesdayAt(8, 0), wednesdayAt(9, 0))
	if !errors.Is(err, ErrExpertUnavailable) {
		t.Fatalf("expected unavailability for 08:00 start, got %v", err)
	}

	// Thursday is outside the schedule entirely.
	thursday := wednesdayAt(10, 0).AddDate(0, 0, 1)
	err = ValidateBooking(db, expert, thursday, thursday.Add(time.Hour))
	if !errors.Is(err, ErrExpertUnavailable) {
		t.Fatalf("expected unavailability on a day without windows, got %v", err)
	}
}

func TestValidateBooking_UnavailableWindowDoesNotCount(t *testing.T) {
	db := newTestDB(t)
	expert := createExpert(t, db, "UTC")
	addWindow(t, db, expert.ID, 3, "09:00", "17:00", false)

	err := ValidateBooking(db, expert, wednesdayAt(10, 0), wednesdayAt(11, 0))
	if !errors.Is(err, ErrExpertUnavailable) {
		t.Fatalf("expected window with is_available=false to be ignored, got %v", err)
	}
}

func TestValidateBooking_NoWindowsConfigured(t *testing.T) {
	db := newTestDB(t)
	expert := createExpert(t, db, "UTC")

	err := ValidateBooking(db, expert, wednesdayAt(10, 0), wednesdayAt(11, 0))
	if !errors.Is(err, ErrExpertUnavailable) {
		t.Fatalf("expected unavailability with zero windows, got %v", err)
	}
}

func TestValidateBooking_OverlapBoundaries(t *testing.T) {
	db := newTestDB(t)
	expert := createExpert(t, db, "UTC")
	addWindow(t, db, expert.ID, 3, "00:00", "23:59", true)

	existing := models.Appointment{
		ClientID:  1,
		ExpertID:  expert.ID,
		StartTime: wednesdayAt(10, 0),
		EndTime:   wednesdayAt(11, 0),
		Status:    models.StatusConfirmed,
		Type:      models.TypeOnline,
	}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatalf("creating existing appointment: %v", err)
	}

	tests := []struct {
		name       string
		start, end time.Time
		wantErr    error
	}{
		{"overlapping tail", wednesdayAt(10, 30), wednesdayAt(11, 30), ErrSlotConflict},
		{"overlapping head", wednesdayAt(9, 30), wednesdayAt(10, 30), ErrSlotConflict},
		{"contained", wednesdayAt(10, 15), wednesdayAt(10, 45), ErrSlotConflict},
		{"containing", wednesdayAt(9, 0), wednesdayAt(12, 0), ErrSlotConflict},
		{"back-to-back after", wednesdayAt(11, 0), wednesdayAt(12, 0), nil},
		{"back-to-back before", wednesdayAt(9, 0), wednesdayAt(10, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBooking(db, expert, tt.start, tt.end)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateBooking(%s, %s) = %v, want %v",
					tt.start.Format("15:04"), tt.end.Format("15:04"), err, tt.wantErr)
			}
		})
	}
}

func TestValidateBooking_CancelledDoesNotBlock(t *testing.T) {
	db := newTestDB(t)
	expert := createExpert(t, db, "UTC")
	addWindow(t, db, expert.ID, 3, "09:00", "17:00", true)

	cancelled := models.Appointment{
		ClientID:  1,
		ExpertID:  expert.ID,
		StartTime: wednesdayAt(10, 0),
		EndTime:   wednesdayAt(11, 0),
		Status:    models.StatusCancelled,
		Type:      models.TypeInPerson,
	}
	if err := db.Create(&cancelled).Error; err != nil {
		t.Fatalf("creating cancelled appointment: %v", err)
	}

	if err := ValidateBooking(db, expert, wednesdayAt(10, 0), wednesdayAt(11, 0)); err != nil {
		t.Fatalf("expected the exact slot of a cancelled booking to be free, got %v", err)
	}
}

func TestValidateBooking_ExpertTimezone(t *testing.T) {
	db := newTestDB(t)

	// 06:00 UTC on Wednesday is 09:00 in Istanbul (UTC+3, no DST).
	start := time.Date(2026, 9, 2, 6, 0, 0, 0, time.UTC)

	istanbulExpert := createExpert(t, db, "Europe/Istanbul")
	addWindow(t, db, istanbulExpert.ID, 3, "09:00", "17:00", true)
	if err := ValidateBooking(db, istanbulExpert, start, start.Add(time.Hour)); err != nil {
		t.Fatalf("expected 06:00Z to match Istanbul 09:00 window, got %v", err)
	}

	utcExpert := createExpert(t, db, "UTC")
	addWindow(t, db, utcExpert.ID, 3, "09:00", "17:00", true)
	err := ValidateBooking(db, utcExpert, start, start.Add(time.Hour))
	if !errors.Is(err, ErrExpertUnavailable) {
		t.Fatalf("expected 06:00Z to miss a UTC 09:00 window, got %v", err)
	}
}
