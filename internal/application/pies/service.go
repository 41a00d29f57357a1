package pies

import (
	"context"
	"errors"

	"piefolio-backend/internal/application/policies/allocation"
	"piefolio-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("Pie not found")

const defaultColor = "#3B82F6"

// Service owns pie CRUD within a portfolio scope. The allocation guard runs
// inside the same transaction as the write so concurrent creates in one
// portfolio cannot jointly pass the 100% check.
type Service struct {
	DB *gorm.DB
}

// CreateInput carries the fields for a new pie.
type CreateInput struct {
	Name             string
	Description      *string
	Color            string
	Icon             *string
	TargetAllocation float64
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name             *string
	Description      *string
	Color            *string
	Icon             *string
	TargetAllocation *float64
	IsActive         *bool
}

// GetByID returns a pie scoped strictly by portfolio: an existing pie in a
// different portfolio is a not-found, never a visible foreign resource.
func (s *Service) GetByID(ctx context.Context, pieID, portfolioID string) (*models.Pie, error) {
	var pie models.Pie
	err := s.DB.WithContext(ctx).
		Preload("Slices", func(db *gorm.DB) *gorm.DB { return db.Order("display_order, created_at") }).
		Where("id = ? AND portfolio_id = ?", pieID, portfolioID).
		First(&pie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pie, nil
}

// GetAllByPortfolio lists pies ordered for display. Inactive pies are excluded
// unless asked for.
func (s *Service) GetAllByPortfolio(ctx context.Context, portfolioID string, includeInactive bool) ([]models.Pie, error) {
	q := s.DB.WithContext(ctx).
		Preload("Slices", func(db *gorm.DB) *gorm.DB { return db.Order("display_order, created_at") }).
		Where("portfolio_id = ?", portfolioID).
		Order("display_order, created_at")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Pie
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TotalAllocation sums target_allocation over active pies of the portfolio.
func (s *Service) TotalAllocation(ctx context.Context, portfolioID string) (float64, error) {
	return totalAllocation(s.DB.WithContext(ctx), portfolioID)
}

// Create appends a pie at the end of the portfolio's display order after the
// allocation guard passes.
func (s *Service) Create(ctx context.Context, portfolioID string, in CreateInput) (*models.Pie, error) {
	color := in.Color
	if color == "" {
		color = defaultColor
	}
	pie := &models.Pie{
		PortfolioID:      portfolioID,
		Name:             in.Name,
		Description:      in.Description,
		Color:            color,
		Icon:             in.Icon,
		TargetAllocation: in.TargetAllocation,
		IsActive:         true,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPortfolio(tx, portfolioID); err != nil {
			return err
		}
		total, err := totalAllocation(tx, portfolioID)
		if err != nil {
			return err
		}
		if err := allocation.Check("allocation", total, 0, in.TargetAllocation); err != nil {
			return err
		}
		maxOrder, err := maxDisplayOrder(tx, portfolioID)
		if err != nil {
			return err
		}
		pie.DisplayOrder = maxOrder + 1
		return tx.Create(pie).Error
	})
	if err != nil {
		return nil, err
	}
	pie.Slices = []models.Slice{}
	return pie, nil
}

// Update applies the present fields. A changed target_allocation re-runs the
// guard with the pie's previous value excluded from the current total.
func (s *Service) Update(ctx context.Context, pieID, portfolioID string, in UpdateInput) (*models.Pie, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pie models.Pie
		if err := tx.Where("id = ? AND portfolio_id = ?", pieID, portfolioID).First(&pie).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.TargetAllocation != nil && *in.TargetAllocation != pie.TargetAllocation {
			if err := lockPortfolio(tx, portfolioID); err != nil {
				return err
			}
			total, err := totalAllocation(tx, portfolioID)
			if err != nil {
				return err
			}
			// Inactive pies are not in the sum, so there is nothing to exclude.
			previous := 0.0
			if pie.IsActive {
				previous = pie.TargetAllocation
			}
			if err := allocation.Check("allocation", total, previous, *in.TargetAllocation); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Color != nil {
			updates["color"] = *in.Color
		}
		if in.Icon != nil {
			updates["icon"] = *in.Icon
		}
		if in.TargetAllocation != nil {
			updates["target_allocation"] = *in.TargetAllocation
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&pie).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, pieID, portfolioID)
}

// Delete removes a pie and all its slices.
func (s *Service) Delete(ctx context.Context, pieID, portfolioID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND portfolio_id = ?", pieID, portfolioID).Delete(&models.Pie{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// Fan-out delete keeps the cascade explicit regardless of the
		// database's foreign-key enforcement.
		return tx.Where("pie_id = ?", pieID).Delete(&models.Slice{}).Error
	})
}

// Reorder assigns display_order = list index per id. Ids outside the portfolio
// are skipped silently; siblings missing from the list keep their old order.
func (s *Service) Reorder(ctx context.Context, portfolioID string, pieIDs []string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, pieID := range pieIDs {
			if err := tx.Model(&models.Pie{}).
				Where("id = ? AND portfolio_id = ?", pieID, portfolioID).
				Update("display_order", index).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// lockPortfolio takes a row lock on the portfolio so concurrent guard checks
// in the same scope serialize instead of both reading the pre-write total at
// READ COMMITTED. SQLite has no FOR UPDATE; its single-writer transaction
// already serializes the check with the write.
func lockPortfolio(tx *gorm.DB, portfolioID string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	var portfolio models.Portfolio
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", portfolioID).
		First(&portfolio).Error
}

func totalAllocation(tx *gorm.DB, portfolioID string) (float64, error) {
	var total float64
	err := tx.Model(&models.Pie{}).
		Where("portfolio_id = ? AND is_active = ?", portfolioID, true).
		Select("COALESCE(SUM(target_allocation), 0)").
		Scan(&total).Error
	return total, err
}

func maxDisplayOrder(tx *gorm.DB, portfolioID string) (int, error) {
	var max int
	err := tx.Model(&models.Pie{}).
		Where("portfolio_id = ?", portfolioID).
		Select("COALESCE(MAX(display_order), 0)").
		Scan(&max).Error
	return max, err
}
