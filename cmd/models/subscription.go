package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	SubscriptionActive    = "ACTIVE"
	SubscriptionCancelled = "CANCELLED"
	SubscriptionExpired   = "EXPIRED"
)

// StringList stores a list of strings as a native text[] on Postgres and as
// the pq array literal on other dialects (the sqlite test database).
type StringList []string

func (l *StringList) Scan(v interface{}) error {
	return (*pq.StringArray)(l).Scan(v)
}

func (l StringList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

// GormDataType gives schema parsing a concrete data type; without it gorm
// treats the slice field as a relationship. Migration types still come from
// GormDBDataType below.
func (StringList) GormDataType() string {
	return "text"
}

func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

type SubscriptionPlan struct {
	gorm.Model
	Name        string     `gorm:"column:name;size:255;not null" json:"name"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	Price       float64    `gorm:"column:price;not null" json:"price"`
	Duration    int        `gorm:"column:duration;not null" json:"duration"` // months
	Features    StringList `json:"features"`
}

type Subscription struct {
	gorm.Model
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	PlanID    uint      `gorm:"column:plan_id;not null" json:"plan_id"`
	StartDate time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;not null" json:"end_date"`
	Status    string    `gorm:"column:status;size:20;not null;default:'ACTIVE'" json:"status"`

	User *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
