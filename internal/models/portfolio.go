package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Portfolio is a user-owned container of pies. Name is unique per owner; the
// composite index also backs the default-portfolio create race (the loser gets
// a duplicate-key error and re-queries).
type Portfolio struct {
	ID                string         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID            string         `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_portfolio_owner_name" json:"user_id"`
	Name              string         `gorm:"column:name;type:varchar(100);not null;uniqueIndex:idx_portfolio_owner_name" json:"name"`
	Description       *string        `gorm:"column:description;type:text" json:"description"`
	AccountType       *string        `gorm:"column:account_type;type:varchar(50)" json:"account_type"`
	IBKRAccountID     *string        `gorm:"column:ibkr_account_id;type:varchar(50)" json:"ibkr_account_id"`
	AccountMeta       datatypes.JSON `gorm:"column:account_meta" json:"account_meta,omitempty"`
	AutoInvestEnabled bool           `gorm:"column:auto_invest_enabled;not null;default:false" json:"auto_invest_enabled"`
	CreatedAt         time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at" json:"updated_at"`

	Pies []Pie `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"pies,omitempty"`
}

func (Portfolio) TableName() string { return "portfolios" }

func (p *Portfolio) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
