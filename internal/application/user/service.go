package user

import (
	"context"
	"errors"

	"piefolio-backend/internal/models"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("User not found")

// Service reads and updates user profiles. User rows are provisioned by the
// auth provider; there is no create path here.
type Service struct {
	DB *gorm.DB
}

// UpdateInput carries a partial profile update; nil fields are left untouched.
type UpdateInput struct {
	DisplayName *string
}

// GetByID returns a user by id.
func (s *Service) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update applies the present fields and returns the fresh row.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.DisplayName != nil {
		updates["display_name"] = *in.DisplayName
	}
	if len(updates) > 0 {
		res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return s.GetByID(ctx, userID)
}

// SetIBKRConnected flips the brokerage-connection flag.
func (s *Service) SetIBKRConnected(ctx context.Context, userID string, connected bool) (*models.User, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("ibkr_connected", connected)
	if res.Error != nil {
		return nil, res.Error
	}
	return s.GetByID(ctx, userID)
}
