package jail

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"

	"github.com/stewardbot/steward/discord"
)

// Guild is the subset of discord.Guild the jail uses.
type Guild interface {
	discord.RoleNameChecker
	ID() string
	SelfID() string
	OwnerID(ctx context.Context) (string, error)
	Roles(ctx context.Context) ([]*discordgo.Role, error)
	Member(ctx context.Context, userID string) (*discordgo.Member, error)
	ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error
}

// Warden jails and releases members.
type Warden struct {
	guild      Guild
	store      Store
	jailRoleID string
}

// NewWarden creates a Warden that uses the role identified by jailRoleID.
func NewWarden(guild Guild, store Store, jailRoleID string) *Warden {
	return &Warden{
		guild:      guild,
		store:      store,
		jailRoleID: jailRoleID,
	}
}

// Jail replaces the member's roles with the jail role after saving a snapshot of them.
// authorID and authorRoleIDs identify the moderator who asked for it.
func (w *Warden) Jail(ctx context.Context, authorID string, authorRoleIDs []string, userID string) error {
	roles, err := w.guild.Roles(ctx)
	if err != nil {
		return err
	}
	if !roleExists(roles, w.jailRoleID) {
		return ErrNoJailRole
	}

	bot, err := w.guild.Member(ctx, w.guild.SelfID())
	if err != nil {
		return fmt.Errorf("failed to fetch the bot member: %w", err)
	}
	if !discord.HasPermission(roles, w.guild.ID(), bot.Roles, discordgo.PermissionManageRoles) {
		return ErrBotCannotManageRoles
	}

	member, err := w.guild.Member(ctx, userID)
	if err != nil {
		return err
	}
	if slices.Contains(member.Roles, w.jailRoleID) {
		return ErrAlreadyJailed
	}

	target := discord.TopRolePosition(roles, member.Roles)
	if discord.TopRolePosition(roles, bot.Roles) <= target {
		return ErrBotBelowTarget
	}

	if discord.TopRolePosition(roles, authorRoleIDs) <= target {
		ownerID, err := w.guild.OwnerID(ctx)
		if err != nil {
			return err
		}
		if authorID != ownerID {
			return ErrAuthorBelowTarget
		}
	}

	snapshot := append(RoleIDs{}, member.Roles...)
	if _, err := w.store.Update(func(s *Snapshots) error {
		if *s == nil {
			*s = Snapshots{}
		}
		(*s)[userID] = snapshot
		return nil
	}); err != nil {
		return fmt.Errorf("failed to save the roles of %s: %w", userID, err)
	}

	if err := w.guild.ReplaceRoles(ctx, userID, []string{w.jailRoleID}); err != nil {
		if _, dropErr := w.store.Update(func(s *Snapshots) error {
			delete(*s, userID)
			return nil
		}); dropErr != nil {
			logger.Errorf("Failed to drop the role snapshot of %s: %+v", userID, dropErr)
		}
		return err
	}

	logger.Infof("Jailed %s, saved %d roles", userID, len(snapshot))
	return nil
}

// Release removes the jail role and restores the saved roles that still exist.
// It returns the IDs of the restored roles.
func (w *Warden) Release(ctx context.Context, userID string) ([]string, error) {
	roles, err := w.guild.Roles(ctx)
	if err != nil {
		return nil, err
	}
	if !roleExists(roles, w.jailRoleID) {
		return nil, ErrNoJailRole
	}

	member, err := w.guild.Member(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(member.Roles, w.jailRoleID) {
		return nil, ErrNotJailed
	}

	snapshots, err := w.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load role snapshots: %w", err)
	}

	var next []string
	for _, id := range member.Roles {
		if id != w.jailRoleID {
			next = append(next, id)
		}
	}
	var restored []string
	for _, id := range snapshots[userID] {
		if id == w.jailRoleID || !roleExists(roles, id) || slices.Contains(next, id) {
			continue
		}
		next = append(next, id)
		restored = append(restored, id)
	}

	if err := w.guild.ReplaceRoles(ctx, userID, next); err != nil {
		return nil, err
	}

	if _, err := w.store.Update(func(s *Snapshots) error {
		delete(*s, userID)
		return nil
	}); err != nil {
		logger.Errorf("Failed to drop the role snapshot of %s: %+v", userID, err)
	}

	logger.Infof("Released %s, restored %d roles", userID, len(restored))
	return restored, nil
}

func roleExists(roles []*discordgo.Role, roleID string) bool {
	return slices.ContainsFunc(roles, func(r *discordgo.Role) bool { return r.ID == roleID })
}
