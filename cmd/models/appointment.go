package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending     = "PENDING"
	StatusConfirmed   = "CONFIRMED"
	StatusCancelled   = "CANCELLED"
	StatusCompleted   = "COMPLETED"
	StatusRescheduled = "RESCHEDULED"

	TypeOnline   = "ONLINE"
	TypeInPerson = "IN_PERSON"
)

type Appointment struct {
	gorm.Model
	ClientID     uint      `gorm:"column:client_id;not null;index" json:"client_id"`
	ExpertID     uint      `gorm:"column:expert_id;not null;index" json:"expert_id"`
	StartTime    time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime      time.Time `gorm:"column:end_time;not null" json:"end_time"`
	Status       string    `gorm:"column:status;size:20;not null;default:'PENDING'" json:"status"`
	Type         string    `gorm:"column:type;size:20;not null" json:"type"`
	Notes        string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	MeetingLink  string    `gorm:"column:meeting_link;size:255" json:"meeting_link,omitempty"`
	CancelReason string    `gorm:"column:cancel_reason;type:text" json:"cancel_reason,omitempty"`

	Client *User   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Expert *Expert `gorm:"foreignKey:ExpertID" json:"expert,omitempty"`
}

// ExpertSchedule is one weekly recurring availability window. Times are
// zero-padded "HH:MM" in the expert's configured timezone, so lexicographic
// comparison is equivalent to numeric comparison.
type ExpertSchedule struct {
	gorm.Model
	ExpertID    uint   `gorm:"column:expert_id;not null;index" json:"expert_id"`
	DayOfWeek   int    `gorm:"column:day_of_week;not null" json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime   string `gorm:"column:start_time;size:5;not null" json:"start_time"`
	EndTime     string `gorm:"column:end_time;size:5;not null" json:"end_time"`
	IsAvailable bool   `gorm:"column:is_available;default:true" json:"is_available"`

	Expert *Expert `gorm:"foreignKey:ExpertID" json:"-"`
}

func (ExpertSchedule) TableName() string {
	return "expert_schedules"
}

// ValidStatus reports whether s is one of the appointment status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusRescheduled:
		return true
	}
	return false
}

var statusTransitions = map[string][]string{
	StatusPending:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed:   {StatusCompleted, StatusCancelled, StatusRescheduled},
	StatusRescheduled: {StatusConfirmed, StatusCancelled},
	// CANCELLED and COMPLETED are terminal.
}

// CanTransition reports whether an appointment may move from one status to
// another. Arbitrary overwrites are rejected so terminal states stay terminal.
func CanTransition(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
