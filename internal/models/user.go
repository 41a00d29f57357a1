package models

import (
	"time"
)

// User mirrors the auth provider's user record. Rows are provisioned by the
// auth collaborator; the backend only reads the profile and flips the IBKR
// connection flag.
type User struct {
	ID            string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Email         string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName   *string   `gorm:"column:display_name;type:varchar(100)" json:"display_name"`
	IBKRConnected bool      `gorm:"column:ibkr_connected;not null;default:false" json:"ibkr_connected"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`

	Portfolios []Portfolio `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string { return "users" }
