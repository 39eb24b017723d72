// Package access centralizes role checks: every mutating engine entry point
// passes through Authorize instead of comparing principals ad hoc.
package access

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"predictionmarket/internal/models"
	"predictionmarket/internal/repository"
)

type Capability string

const (
	CapOwner     Capability = "owner"
	CapAdmin     Capability = "admin"
	CapModerator Capability = "moderator"
)

type Controller struct {
	Repo   repository.AccessStore
	Logger *zap.Logger
}

// Owner returns the initialized owner principal, or "" before initialization.
func (c *Controller) Owner(ctx context.Context) (string, error) {
	state, err := c.Repo.GetEngineState(ctx)
	if err != nil {
		return "", err
	}
	if state == nil {
		return "", nil
	}
	return state.Owner, nil
}

func (c *Controller) IsAdmin(ctx context.Context, principal string) (bool, error) {
	return c.hasRole(ctx, principal, CapAdmin)
}

func (c *Controller) IsModerator(ctx context.Context, principal string) (bool, error) {
	return c.hasRole(ctx, principal, CapModerator)
}

// Authorize fails with ErrUnauthorized unless the caller holds the required
// capability. The owner implicitly holds every capability.
func (c *Controller) Authorize(ctx context.Context, caller string, capability Capability) error {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return models.ErrUnauthorized
	}
	ok, err := c.hasRole(ctx, caller, capability)
	if err != nil {
		return err
	}
	if !ok {
		if c.Logger != nil {
			c.Logger.Debug("authorization denied",
				zap.String("caller", caller),
				zap.String("capability", string(capability)),
			)
		}
		return models.ErrUnauthorized
	}
	return nil
}

func (c *Controller) hasRole(ctx context.Context, principal string, capability Capability) (bool, error) {
	state, err := c.Repo.GetEngineState(ctx)
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, models.ErrNotInitialized
	}
	if principal == state.Owner {
		return true, nil
	}
	if capability == CapOwner {
		return false, nil
	}
	role, err := c.Repo.GetRole(ctx, principal)
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, nil
	}
	switch capability {
	case CapAdmin:
		return role.Admin, nil
	case CapModerator:
		return role.Moderator, nil
	default:
		return false, nil
	}
}
