package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// GormSubscriptionStore implements domain.SubscriptionStore
type GormSubscriptionStore struct {
	db *gorm.DB
}

// NewGormSubscriptionStore creates a new subscription store
func NewGormSubscriptionStore(db *gorm.DB) *GormSubscriptionStore {
	return &GormSubscriptionStore{db: db}
}

// GetActivePlan returns the plan of the user's active subscription
func (s *GormSubscriptionStore) GetActivePlan(ctx context.Context, userID string) (domain.PlanTier, bool, error) {
	var sub domain.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(domain.SubscriptionActive)).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub.PlanType, true, nil
}

// SetPlan creates or replaces a user's subscription
func (s *GormSubscriptionStore) SetPlan(ctx context.Context, userID string, tier domain.PlanTier, status domain.SubscriptionStatus) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if !domain.ValidatePlanTier(tier) {
		return fmt.Errorf("invalid plan tier: %s", tier)
	}

	sub := domain.Subscription{
		UserID:    userID,
		PlanType:  tier,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_type", "status", "updated_at"}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}
