package retention

import (
	"context"
	"fmt"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/recorder"
)

// Policy bounds.
const (
	MinRetentionMonths = 1
	MaxRetentionMonths = 120
	MinAlertDays       = 1
	MaxAlertDays       = 365
)

// DefaultPolicy returns the policy used when none is stored: 3 months
// retention, a 15 day alert lead time and auto-delete off.
func DefaultPolicy() audit.RetentionConfig {
	return audit.RetentionConfig{
		RetentionMonths:   audit.DefaultRetentionMonths,
		AlertDays:         audit.DefaultAlertDays,
		AutoDeleteEnabled: false,
	}
}

// ResolvePolicy returns stored, or DefaultPolicy when stored is nil.
// Nothing is persisted.
func ResolvePolicy(stored *audit.RetentionConfig) audit.RetentionConfig {
	if stored == nil {
		return DefaultPolicy()
	}
	return *stored
}

// ValidatePolicy checks the policy bounds.
func ValidatePolicy(cfg audit.RetentionConfig) error {
	if cfg.RetentionMonths < MinRetentionMonths || cfg.RetentionMonths > MaxRetentionMonths {
		return fmt.Errorf("retention months must be between %d and %d, got %d",
			MinRetentionMonths, MaxRetentionMonths, cfg.RetentionMonths)
	}
	if cfg.AlertDays < MinAlertDays || cfg.AlertDays > MaxAlertDays {
		return fmt.Errorf("alert days must be between %d and %d, got %d",
			MinAlertDays, MaxAlertDays, cfg.AlertDays)
	}
	return nil
}

// PolicyUpdate changes selected policy fields. Nil fields keep their
// current value.
type PolicyUpdate struct {
	RetentionMonths   *int
	AlertDays         *int
	AutoDeleteEnabled *bool
}

// PolicyService reads and updates the stored retention policy.
type PolicyService struct {
	store audit.ConfigStore
	deps
}

// NewPolicyService creates a policy service.
func NewPolicyService(store audit.ConfigStore, opts ...Option) *PolicyService {
	return &PolicyService{
		store: store,
		deps:  newDeps("audit.retention.policy", opts),
	}
}

// Get returns the effective policy and whether it is stored.
func (s *PolicyService) Get(ctx context.Context) (audit.RetentionConfig, bool, error) {
	stored, err := s.store.GetRetentionConfig(ctx)
	if err != nil {
		return audit.RetentionConfig{}, false, err
	}
	return ResolvePolicy(stored), stored != nil, nil
}

// Update applies upd on top of the effective policy and persists the
// result. Existing events keep the retention date they were given.
func (s *PolicyService) Update(ctx context.Context, actor string, upd PolicyUpdate) (*audit.RetentionConfig, error) {
	if actor == "" {
		actor = audit.SystemActor
	}

	stored, err := s.store.GetRetentionConfig(ctx)
	if err != nil {
		return nil, err
	}
	before := ResolvePolicy(stored)

	next := before
	if upd.RetentionMonths != nil {
		next.RetentionMonths = *upd.RetentionMonths
	}
	if upd.AlertDays != nil {
		next.AlertDays = *upd.AlertDays
	}
	if upd.AutoDeleteEnabled != nil {
		next.AutoDeleteEnabled = *upd.AutoDeleteEnabled
	}

	if err := ValidatePolicy(next); err != nil {
		return nil, audit.NewRetentionError("update_policy", err)
	}

	now := s.now().UTC()
	next.UpdatedBy = actor
	next.UpdatedAt = now
	if stored == nil || stored.CreatedAt.IsZero() {
		next.CreatedAt = now
	}

	if err := s.store.SaveRetentionConfig(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "retention policy updated",
		"actor", actor,
		"retention_months", next.RetentionMonths,
		"alert_days", next.AlertDays,
		"auto_delete_enabled", next.AutoDeleteEnabled,
	)

	var beforeSnapshot any
	if stored != nil {
		beforeSnapshot = policySnapshot(before)
	}
	s.recorder.Log(ctx, recorder.Entry{
		Category:    "retention",
		Description: "Retention policy updated",
		UserID:      actor,
		Module:      "retention",
		Action:      "update",
		EntityType:  "retention_config",
		EntityID:    "1",
		Before:      beforeSnapshot,
		After:       policySnapshot(next),
	})

	return &next, nil
}

// policySnapshot is the audited shape of a policy.
func policySnapshot(cfg audit.RetentionConfig) map[string]any {
	return map[string]any{
		"retention_months":    cfg.RetentionMonths,
		"alert_days":          cfg.AlertDays,
		"auto_delete_enabled": cfg.AutoDeleteEnabled,
	}
}
