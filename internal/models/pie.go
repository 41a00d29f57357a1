package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pie is a themed allocation group within a portfolio. TargetAllocation is a
// percentage of the portfolio; the sum over active pies must stay <= 100.
type Pie struct {
	ID               string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	PortfolioID      string    `gorm:"column:portfolio_id;type:varchar(36);not null;index" json:"portfolio_id"`
	Name             string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Description      *string   `gorm:"column:description;type:text" json:"description"`
	Color            string    `gorm:"column:color;type:varchar(7);not null;default:'#3B82F6'" json:"color"`
	Icon             *string   `gorm:"column:icon;type:varchar(50)" json:"icon"`
	TargetAllocation float64   `gorm:"column:target_allocation;type:decimal(5,2);not null;default:0" json:"target_allocation"`
	DisplayOrder     int       `gorm:"column:display_order;not null;default:0" json:"display_order"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`

	Slices []Slice `gorm:"foreignKey:PieID;constraint:OnDelete:CASCADE" json:"slices,omitempty"`
}

func (Pie) TableName() string { return "pies" }

func (p *Pie) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TotalSliceWeight sums the weights of loaded active slices. Derived on read,
// never stored.
func (p *Pie) TotalSliceWeight() float64 {
	var total float64
	for _, s := range p.Slices {
		if s.IsActive {
			total += s.TargetWeight
		}
	}
	return total
}

// SliceCount counts loaded active slices.
func (p *Pie) SliceCount() int {
	n := 0
	for _, s := range p.Slices {
		if s.IsActive {
			n++
		}
	}
	return n
}
