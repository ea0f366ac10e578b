package models

import (
	"gorm.io/gorm"
)

const (
	UserTypeClient = "CLIENT"
	UserTypeExpert = "EXPERT"
)

type User struct {
	gorm.Model
	FullName     string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email        string `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	UserType     string `gorm:"column:user_type;size:50;not null" json:"user_type"`
	Phone        string `gorm:"column:phone;size:20" json:"phone,omitempty"`

	Expert *Expert `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"expert,omitempty"`
}

type Expert struct {
	gorm.Model
	UserID    uint   `gorm:"column:user_id;not null" json:"user_id"`
	Expertise string `gorm:"column:expertise;size:255" json:"expertise"`
	Bio       string `gorm:"column:bio;type:text" json:"bio"`
	// IANA zone that governs how booking instants map onto this expert's
	// weekly schedule grid.
	Timezone string `gorm:"column:timezone;size:64;not null;default:'Europe/Istanbul'" json:"timezone"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Expert) TableName() string {
	return "experts"
}
