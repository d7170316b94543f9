package discord

import (
	"context"

	"github.com/oklahomer/go-sarah/v4"
)

// NoPermissionMessage is the reply sent when a member without a moderator role calls a moderator command.
const NoPermissionMessage = "You don't have permission to use this command."

// RoleNameChecker resolves role IDs to names. Guild satisfies this interface.
type RoleNameChecker interface {
	HasAnyRoleName(ctx context.Context, roleIDs []string, names []string) (bool, error)
}

// Authorize tells if the author of the given message holds one of the named roles.
// Inputs other than guild messages are never authorized.
func Authorize(ctx context.Context, checker RoleNameChecker, input sarah.Input, names []string) (bool, error) {
	msg, ok := input.(*Input)
	if !ok || msg.GuildID() == "" {
		return false, nil
	}
	return checker.HasAnyRoleName(ctx, msg.RoleIDs(), names)
}
