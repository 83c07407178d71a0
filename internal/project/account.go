package project

import (
	"context"
	"fmt"

	"github.com/pixora/pixora/backend-go/internal/plan"
)

// Account is the signed-in user's plan view: what they may use and how much
// of the free quotas they have spent.
type Account struct {
	UserID          string      `json:"userId"`
	Email           string      `json:"email"`
	DisplayName     string      `json:"displayName"`
	Plan            plan.Tier   `json:"plan"`
	RestrictedTools []plan.Tool `json:"restrictedTools"`
	ProjectLimit    int         `json:"projectLimit,omitempty"`
	ExportLimit     int         `json:"exportLimit,omitempty"`
	Usage           Usage       `json:"usage"`
}

func (s *Service) Account(ctx context.Context, userID string) (*Account, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	policy := plan.NewPolicy(plan.ParseTier(u.Plan), s.limits)
	exports, err := s.ExportsThisMonth(ctx, userID)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		UserID:          u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		Plan:            policy.Tier,
		RestrictedTools: policy.RestrictedTools(),
		Usage:           Usage{ProjectsUsed: int(u.ProjectsUsed), ExportsThisMonth: exports},
	}
	if !policy.IsPro() {
		acct.ProjectLimit = s.limits.Projects
		acct.ExportLimit = s.limits.Exports
	}
	return acct, nil
}
