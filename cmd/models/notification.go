package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationPending = "PENDING"
	NotificationSent    = "SENT"
	NotificationFailed  = "FAILED"

	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
	ChannelBoth  = "BOTH"
)

type Notification struct {
	gorm.Model
	UserID  uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Type    string    `gorm:"column:type;size:50;not null" json:"type"`
	Channel string    `gorm:"column:channel;size:10;not null" json:"channel"`
	Title   string    `gorm:"column:title;size:255;not null" json:"title"`
	Content string    `gorm:"column:content;type:text;not null" json:"content"`
	Status  string    `gorm:"column:status;size:20;not null;default:'PENDING'" json:"status"`
	SentAt  time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	// JSON string of extra payload, including the failure message when
	// delivery does not succeed.
	Metadata string `gorm:"column:metadata;type:text" json:"metadata,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
