package slices

import (
	"context"
	"errors"

	"piefolio-backend/internal/application/policies/allocation"
	"piefolio-backend/internal/models"
	"piefolio-backend/internal/pkg/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound        = errors.New("Slice not found")
	ErrPieNotFound     = errors.New("Pie not found")
	ErrDuplicateSymbol = errors.New("Symbol already exists in this pie")
)

// Service owns slice CRUD. Every operation first walks the ownership chain
// (portfolio -> pie -> slice); a slice id alone never authorizes access.
type Service struct {
	DB *gorm.DB
}

// CreateInput carries the fields for a new slice.
type CreateInput struct {
	Symbol       string
	Name         *string
	TargetWeight float64
	Notes        *string
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Symbol       *string
	Name         *string
	TargetWeight *float64
	Notes        *string
	IsActive     *bool
}

// GetByID returns a slice reachable through a pie of the given portfolio.
func (s *Service) GetByID(ctx context.Context, sliceID, portfolioID string) (*models.Slice, error) {
	return getByID(s.DB.WithContext(ctx), sliceID, portfolioID)
}

// GetAllByPie lists slices for a pie in display order. A pie outside the
// portfolio yields an empty list, same as an empty pie.
func (s *Service) GetAllByPie(ctx context.Context, pieID, portfolioID string, includeInactive bool) ([]models.Slice, error) {
	owned, err := pieOwned(s.DB.WithContext(ctx), pieID, portfolioID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return []models.Slice{}, nil
	}

	q := s.DB.WithContext(ctx).
		Where("pie_id = ?", pieID).
		Order("display_order, created_at")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	out := []models.Slice{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TotalWeight sums target_weight over active slices of the pie.
func (s *Service) TotalWeight(ctx context.Context, pieID string) (float64, error) {
	return totalWeight(s.DB.WithContext(ctx), pieID)
}

// Create adds a slice to the pie after the ownership, symbol-uniqueness and
// weight-guard checks pass, appending it to the display order.
func (s *Service) Create(ctx context.Context, pieID, portfolioID string, in CreateInput) (*models.Slice, error) {
	symbol := validation.NormalizeSymbol(in.Symbol)
	slice := &models.Slice{
		PieID:        pieID,
		Symbol:       symbol,
		Name:         in.Name,
		TargetWeight: in.TargetWeight,
		Notes:        in.Notes,
		IsActive:     true,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := pieOwned(tx, pieID, portfolioID)
		if err != nil {
			return err
		}
		if !owned {
			return ErrPieNotFound
		}
		if err := lockPie(tx, pieID); err != nil {
			return err
		}
		taken, err := symbolTaken(tx, pieID, symbol, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateSymbol
		}
		total, err := totalWeight(tx, pieID)
		if err != nil {
			return err
		}
		if err := allocation.Check("weight", total, 0, in.TargetWeight); err != nil {
			return err
		}
		maxOrder, err := maxDisplayOrder(tx, pieID)
		if err != nil {
			return err
		}
		slice.DisplayOrder = maxOrder + 1
		return tx.Create(slice).Error
	})
	if err != nil {
		return nil, err
	}
	return slice, nil
}

// Update applies the present fields to a slice of the given pie. A changed
// target_weight re-runs the guard with the slice's previous value excluded.
func (s *Service) Update(ctx context.Context, sliceID, pieID, portfolioID string, in UpdateInput) (*models.Slice, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slice, err := getByID(tx, sliceID, portfolioID)
		if err != nil {
			return err
		}
		if slice.PieID != pieID {
			return ErrNotFound
		}
		if err := lockPie(tx, pieID); err != nil {
			return err
		}

		if in.TargetWeight != nil && *in.TargetWeight != slice.TargetWeight {
			total, err := totalWeight(tx, slice.PieID)
			if err != nil {
				return err
			}
			previous := 0.0
			if slice.IsActive {
				previous = slice.TargetWeight
			}
			if err := allocation.Check("weight", total, previous, *in.TargetWeight); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if in.Symbol != nil {
			symbol := validation.NormalizeSymbol(*in.Symbol)
			if symbol != slice.Symbol {
				taken, err := symbolTaken(tx, slice.PieID, symbol, slice.ID)
				if err != nil {
					return err
				}
				if taken {
					return ErrDuplicateSymbol
				}
			}
			updates["symbol"] = symbol
		}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.TargetWeight != nil {
			updates["target_weight"] = *in.TargetWeight
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(slice).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	slice, err := getByID(s.DB.WithContext(ctx), sliceID, portfolioID)
	if err != nil {
		return nil, err
	}
	return slice, nil
}

// Delete removes a slice reachable through the pie+portfolio chain. This is a
// hard row removal, unlike the is_active soft state.
func (s *Service) Delete(ctx context.Context, sliceID, pieID, portfolioID string) error {
	slice, err := s.GetByID(ctx, sliceID, portfolioID)
	if err != nil {
		return err
	}
	if slice.PieID != pieID {
		return ErrNotFound
	}
	res := s.DB.WithContext(ctx).Where("id = ?", sliceID).Delete(&models.Slice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reorder assigns display_order = list index per id within the pie. Ids not in
// the pie are skipped silently; omitted slices keep their old order.
func (s *Service) Reorder(ctx context.Context, pieID, portfolioID string, sliceIDs []string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := pieOwned(tx, pieID, portfolioID)
		if err != nil {
			return err
		}
		if !owned {
			return ErrPieNotFound
		}
		for index, sliceID := range sliceIDs {
			if err := tx.Model(&models.Slice{}).
				Where("id = ? AND pie_id = ?", sliceID, pieID).
				Update("display_order", index).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func getByID(tx *gorm.DB, sliceID, portfolioID string) (*models.Slice, error) {
	var slice models.Slice
	err := tx.
		Joins("JOIN pies ON pies.id = slices.pie_id").
		Where("slices.id = ? AND pies.portfolio_id = ?", sliceID, portfolioID).
		First(&slice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &slice, nil
}

func pieOwned(tx *gorm.DB, pieID, portfolioID string) (bool, error) {
	var count int64
	err := tx.Model(&models.Pie{}).
		Where("id = ? AND portfolio_id = ?", pieID, portfolioID).
		Count(&count).Error
	return count > 0, err
}

// lockPie takes a row lock on the pie so concurrent weight-guard and
// symbol-uniqueness checks serialize instead of both reading pre-write state
// at READ COMMITTED. SQLite has no FOR UPDATE; its single-writer transaction
// already serializes the check with the write.
func lockPie(tx *gorm.DB, pieID string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	var pie models.Pie
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", pieID).
		First(&pie).Error
}

func symbolTaken(tx *gorm.DB, pieID, symbol, excludeID string) (bool, error) {
	var count int64
	q := tx.Model(&models.Slice{}).
		Where("pie_id = ? AND symbol = ?", pieID, symbol)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func totalWeight(tx *gorm.DB, pieID string) (float64, error) {
	var total float64
	err := tx.Model(&models.Slice{}).
		Where("pie_id = ? AND is_active = ?", pieID, true).
		Select("COALESCE(SUM(target_weight), 0)").
		Scan(&total).Error
	return total, err
}

func maxDisplayOrder(tx *gorm.DB, pieID string) (int, error) {
	var max int
	err := tx.Model(&models.Slice{}).
		Where("pie_id = ?", pieID).
		Select("COALESCE(MAX(display_order), 0)").
		Scan(&max).Error
	return max, err
}
