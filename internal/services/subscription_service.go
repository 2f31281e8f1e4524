package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospitalops/internal/models"
	"hospitalops/internal/repositories"
)

// QuotaStatus reports where a tenant stands against one contract quota.
type QuotaStatus struct {
	Allowed bool   `json:"allowed"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
	Reason  string `json:"reason,omitempty"`
}

// UserCounter counts the users provisioned in a tenant's database.
type UserCounter interface {
	CountUsers(ctx context.Context, tenantKey string) (int, error)
}

// SubscriptionService evaluates subscription contracts into access decisions.
// Every call re-reads the contract and re-evaluates; the decision itself is
// never cached, so a contract change takes effect on the next request.
type SubscriptionService interface {
	CheckSubscription(ctx context.Context, tenantKey string) (models.SubscriptionDecision, error)
	IsPlatformEnabled(ctx context.Context, tenantKey string, platform models.PlatformKey) (bool, error)
	IsFeatureEnabled(ctx context.Context, tenantKey, featureKey string) (bool, error)
	CheckUserLimit(ctx context.Context, tenantKey string) (*QuotaStatus, error)
}

type subscriptionService struct {
	contractRepo repositories.ContractRepository
	userCounter  UserCounter
	now          func() time.Time
}

// NewSubscriptionService creates the engine. userCounter may be nil when no
// quota enforcement is wired.
func NewSubscriptionService(contractRepo repositories.ContractRepository, userCounter UserCounter) SubscriptionService {
	return &subscriptionService{
		contractRepo: contractRepo,
		userCounter:  userCounter,
		now:          time.Now,
	}
}

// NewSubscriptionServiceAt creates the engine with a fixed clock.
func NewSubscriptionServiceAt(contractRepo repositories.ContractRepository, userCounter UserCounter, now func() time.Time) SubscriptionService {
	return &subscriptionService{contractRepo: contractRepo, userCounter: userCounter, now: now}
}

// EvaluateContract is the deterministic core of the engine: given one
// contract snapshot and one instant, it always produces the same decision.
func EvaluateContract(contract *models.SubscriptionContract, now time.Time) models.SubscriptionDecision {
	if contract == nil {
		return models.SubscriptionDecision{Allowed: false, Reason: models.ReasonNoContract}
	}

	if contract.Status == models.ContractStatusBlocked {
		// Blocked denies regardless of dates.
		return models.SubscriptionDecision{Allowed: false, Reason: models.ReasonBlocked}
	}

	pastEnd := contract.Status == models.ContractStatusExpired || now.After(contract.EndDate)
	if !pastEnd {
		return models.SubscriptionDecision{Allowed: true}
	}

	if contract.GracePeriodEnabled && !contract.GraceEndDate.IsZero() && !now.After(contract.GraceEndDate) {
		return models.SubscriptionDecision{Allowed: true, ReadOnly: true}
	}

	return models.SubscriptionDecision{Allowed: false, Reason: models.ReasonExpired}
}

// check evaluates the current contract snapshot once and returns both the
// decision and the snapshot it was made from.
func (s *subscriptionService) check(ctx context.Context, tenantKey string) (models.SubscriptionDecision, *models.SubscriptionContract, error) {
	contract, err := s.contractRepo.GetByTenantKey(ctx, tenantKey)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.SubscriptionDecision{Allowed: false, Reason: models.ReasonNoContract}, nil, nil
	}
	if err != nil {
		return models.SubscriptionDecision{}, nil, fmt.Errorf("contract lookup for %q: %w", tenantKey, err)
	}
	return EvaluateContract(contract, s.now()), contract, nil
}

func (s *subscriptionService) CheckSubscription(ctx context.Context, tenantKey string) (models.SubscriptionDecision, error) {
	decision, _, err := s.check(ctx, tenantKey)
	return decision, err
}

// IsPlatformEnabled reports whether the platform is enabled under the
// tenant's contract. A denied subscription short-circuits to false;
// entitlements never override a denial.
func (s *subscriptionService) IsPlatformEnabled(ctx context.Context, tenantKey string, platform models.PlatformKey) (bool, error) {
	decision, contract, err := s.check(ctx, tenantKey)
	if err != nil {
		return false, err
	}
	if !decision.Allowed || contract == nil {
		return false, nil
	}
	return contract.EnabledPlatforms[platform], nil
}

func (s *subscriptionService) IsFeatureEnabled(ctx context.Context, tenantKey, featureKey string) (bool, error) {
	decision, contract, err := s.check(ctx, tenantKey)
	if err != nil {
		return false, err
	}
	if !decision.Allowed || contract == nil {
		return false, nil
	}
	return contract.EnabledFeatures[featureKey], nil
}

func (s *subscriptionService) CheckUserLimit(ctx context.Context, tenantKey string) (*QuotaStatus, error) {
	decision, contract, err := s.check(ctx, tenantKey)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed || contract == nil {
		return &QuotaStatus{Allowed: false, Reason: "subscription not active"}, nil
	}
	max := contract.Quotas.MaxUsers

	current := 0
	if s.userCounter != nil {
		current, err = s.userCounter.CountUsers(ctx, tenantKey)
		if err != nil {
			return nil, fmt.Errorf("count users for %q: %w", tenantKey, err)
		}
	}

	if max > 0 && current >= max {
		return &QuotaStatus{
			Allowed: false,
			Current: current,
			Max:     max,
			Reason:  fmt.Sprintf("user limit reached (%d/%d)", current, max),
		}, nil
	}
	return &QuotaStatus{Allowed: true, Current: current, Max: max}, nil
}
