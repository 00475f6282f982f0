package domain

import (
	"context"
	"time"
)

// PlanTier represents a subscription plan
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

// ValidatePlanTier checks if a plan tier is valid
func ValidatePlanTier(tier PlanTier) bool {
	return tier == PlanFree || tier == PlanPro
}

// LinkedIdentity marks a third-party account linked to a user
type LinkedIdentity string

const (
	LinkedInstagram LinkedIdentity = "instagram"
)

// Principal is what the identity provider vouches for: a stable user id and linked accounts
type Principal struct {
	UserID           string
	LinkedIdentities []LinkedIdentity
}

// UserIdentity is the fully resolved caller, passed explicitly into the orchestrator and evaluator
type UserIdentity struct {
	ID               string           `json:"id"`
	PlanTier         PlanTier         `json:"plan_tier"`
	LinkedIdentities []LinkedIdentity `json:"linked_identities"`
}

// HasLinkedIdentity checks whether the given third-party account is linked
func (u UserIdentity) HasLinkedIdentity(link LinkedIdentity) bool {
	for _, l := range u.LinkedIdentities {
		if l == link {
			return true
		}
	}
	return false
}

// SubscriptionStatus is the billing state of a subscription row
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is a user's plan record. Only active rows grant their plan.
type Subscription struct {
	UserID    string             `json:"user_id" gorm:"primaryKey;size:128"`
	PlanType  PlanTier           `json:"plan_type" gorm:"not null;size:16"`
	Status    SubscriptionStatus `json:"status" gorm:"not null;size:16"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// IdentityProvider authenticates an opaque bearer credential
type IdentityProvider interface {
	// Authenticate returns ErrUnauthorized for missing, malformed or expired credentials
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// SubscriptionStore resolves a user's active plan
type SubscriptionStore interface {
	// GetActivePlan returns the active plan and true, or false when the user has none
	GetActivePlan(ctx context.Context, userID string) (PlanTier, bool, error)
}
