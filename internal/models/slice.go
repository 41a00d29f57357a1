package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Slice is a single ticker holding within a pie. Symbol is stored upper-case
// and unique within its pie; TargetWeight is a percentage of the pie.
type Slice struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	PieID        string    `gorm:"column:pie_id;type:varchar(36);not null;uniqueIndex:uq_slice_pie_symbol" json:"pie_id"`
	Symbol       string    `gorm:"column:symbol;type:varchar(20);not null;uniqueIndex:uq_slice_pie_symbol" json:"symbol"`
	Name         *string   `gorm:"column:name;type:varchar(100)" json:"name"`
	TargetWeight float64   `gorm:"column:target_weight;type:decimal(5,2);not null" json:"target_weight"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"display_order"`
	Notes        *string   `gorm:"column:notes;type:text" json:"notes"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Slice) TableName() string { return "slices" }

func (s *Slice) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
