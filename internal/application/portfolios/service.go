package portfolios

import (
	"context"
	"errors"
	"strings"

	"piefolio-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// DefaultPortfolioName is matched literally (case-sensitive) when
	// resolving the implicit portfolio.
	DefaultPortfolioName        = "Default Portfolio"
	defaultPortfolioDescription = "Default portfolio for pies"
)

var (
	ErrNotFound      = errors.New("Portfolio not found")
	ErrForbidden     = errors.New("Portfolio does not belong to the user")
	ErrDuplicateName = errors.New("Portfolio with this name already exists")
)

// Service owns portfolio CRUD, ownership checks and default-portfolio
// resolution.
type Service struct {
	DB *gorm.DB
}

// CreateInput carries the fields for a new portfolio.
type CreateInput struct {
	Name              string
	Description       *string
	AccountType       *string
	IBKRAccountID     *string
	AccountMeta       datatypes.JSON
	AutoInvestEnabled bool
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name              *string
	Description       *string
	AccountType       *string
	IBKRAccountID     *string
	AccountMeta       datatypes.JSON
	AutoInvestEnabled *bool
}

// GetUserPortfolios returns all portfolios owned by the user, ordered by name.
func (s *Service) GetUserPortfolios(ctx context.Context, userID string) ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := s.DB.WithContext(ctx).
		Preload("Pies").
		Where("user_id = ?", userID).
		Order("name").
		Find(&portfolios).Error; err != nil {
		return nil, err
	}
	return portfolios, nil
}

// GetByID returns a portfolio without scoping; callers must check ownership.
func (s *Service) GetByID(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	if err := s.DB.WithContext(ctx).Where("id = ?", portfolioID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &portfolio, nil
}

// GetWithDetails returns a portfolio with its pies and their slices loaded.
func (s *Service) GetWithDetails(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	if err := s.DB.WithContext(ctx).
		Preload("Pies", func(db *gorm.DB) *gorm.DB { return db.Order("display_order, created_at") }).
		Preload("Pies.Slices", func(db *gorm.DB) *gorm.DB { return db.Order("display_order") }).
		Where("id = ?", portfolioID).
		First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &portfolio, nil
}

// Create creates a portfolio after checking the per-owner name is free
// (case-insensitive).
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Portfolio, error) {
	taken, err := s.nameTaken(ctx, userID, in.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateName
	}

	portfolio := &models.Portfolio{
		UserID:            userID,
		Name:              in.Name,
		Description:       in.Description,
		AccountType:       in.AccountType,
		IBKRAccountID:     in.IBKRAccountID,
		AccountMeta:       in.AccountMeta,
		AutoInvestEnabled: in.AutoInvestEnabled,
	}
	if err := s.DB.WithContext(ctx).Create(portfolio).Error; err != nil {
		return nil, err
	}
	return portfolio, nil
}

// Update applies the present fields of a partial update. Renames are checked
// against the per-owner uniqueness rule.
func (s *Service) Update(ctx context.Context, userID, portfolioID string, in UpdateInput) (*models.Portfolio, error) {
	portfolio, err := s.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil && *in.Name != portfolio.Name {
		taken, err := s.nameTaken(ctx, userID, *in.Name, portfolioID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateName
		}
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.AccountType != nil {
		updates["account_type"] = *in.AccountType
	}
	if in.IBKRAccountID != nil {
		updates["ibkr_account_id"] = *in.IBKRAccountID
	}
	if in.AccountMeta != nil {
		updates["account_meta"] = in.AccountMeta
	}
	if in.AutoInvestEnabled != nil {
		updates["auto_invest_enabled"] = *in.AutoInvestEnabled
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(portfolio).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetWithDetails(ctx, portfolioID)
}

// Delete removes a portfolio with an explicit transactional fan-out over its
// pies and their slices, so the cascade holds regardless of the database's
// foreign-key enforcement.
func (s *Service) Delete(ctx context.Context, portfolioID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", portfolioID).Delete(&models.Portfolio{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("pie_id IN (?)",
			tx.Model(&models.Pie{}).Select("id").Where("portfolio_id = ?", portfolioID),
		).Delete(&models.Slice{}).Error; err != nil {
			return err
		}
		return tx.Where("portfolio_id = ?", portfolioID).Delete(&models.Pie{}).Error
	})
}

// VerifyOwnership distinguishes foreign from missing portfolios so call sites
// can return 403 vs 404.
func (s *Service) VerifyOwnership(ctx context.Context, userID, portfolioID string) error {
	portfolio, err := s.GetByID(ctx, portfolioID)
	if err != nil {
		return err
	}
	if portfolio.UserID != userID {
		return ErrForbidden
	}
	return nil
}

// ResolveDefault returns the user's "Default Portfolio" id, creating the
// portfolio on first use. Two concurrent first-time callers race on the
// (user_id, name) unique index; the loser re-queries and returns the winner.
func (s *Service) ResolveDefault(ctx context.Context, userID string) (string, error) {
	id, err := s.findDefault(ctx, userID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	desc := defaultPortfolioDescription
	portfolio := &models.Portfolio{
		UserID:      userID,
		Name:        DefaultPortfolioName,
		Description: &desc,
	}
	if createErr := s.DB.WithContext(ctx).Create(portfolio).Error; createErr != nil {
		// Lost the creation race: the unique index rejected the row.
		if id, retryErr := s.findDefault(ctx, userID); retryErr == nil {
			return id, nil
		}
		return "", createErr
	}
	return portfolio.ID, nil
}

func (s *Service) findDefault(ctx context.Context, userID string) (string, error) {
	var portfolio models.Portfolio
	err := s.DB.WithContext(ctx).
		Select("id").
		Where("user_id = ? AND name = ?", userID, DefaultPortfolioName).
		First(&portfolio).Error
	if err != nil {
		return "", err
	}
	return portfolio.ID, nil
}

func (s *Service) nameTaken(ctx context.Context, userID, name, excludeID string) (bool, error) {
	var count int64
	q := s.DB.WithContext(ctx).Model(&models.Portfolio{}).
		Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
