package discord

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// membersPageSize is the maximum page size Discord accepts for guild member listing.
const membersPageSize = 1000

// guildSession abstracts the discordgo.Session REST methods used by Guild.
// *discordgo.Session satisfies this interface.
type guildSession interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberEdit(guildID, userID string, data *discordgo.GuildMemberParams, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// Guild performs REST operations against the single guild the bot moderates.
// Every returned error is passed through Classify.
type Guild struct {
	id      string
	session guildSession

	mu     sync.RWMutex
	selfID string
}

// NewGuild creates a Guild bound to the given guild ID.
func NewGuild(session guildSession, guildID string) *Guild {
	return &Guild{
		id:      guildID,
		session: session,
	}
}

// ID returns the guild ID.
func (g *Guild) ID() string {
	return g.id
}

// SetSelfID stores the bot's own user ID. Call this from the Ready handler.
func (g *Guild) SetSelfID(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selfID = userID
}

// SelfID returns the bot's own user ID, or an empty string before Ready is received.
func (g *Guild) SelfID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selfID
}

// GrantRole adds the role to the member.
func (g *Guild) GrantRole(ctx context.Context, userID, roleID string) error {
	err := g.session.GuildMemberRoleAdd(g.id, userID, roleID, discordgo.WithContext(ctx))
	return Classify(err)
}

// RevokeRole removes the role from the member.
func (g *Guild) RevokeRole(ctx context.Context, userID, roleID string) error {
	err := g.session.GuildMemberRoleRemove(g.id, userID, roleID, discordgo.WithContext(ctx))
	return Classify(err)
}

// ReplaceRoles sets the member's roles to exactly the given role IDs in one request.
func (g *Guild) ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error {
	roles := append([]string{}, roleIDs...)
	_, err := g.session.GuildMemberEdit(g.id, userID, &discordgo.GuildMemberParams{Roles: &roles}, discordgo.WithContext(ctx))
	return Classify(err)
}

// MembersWithRole returns the IDs of all members holding the given role.
func (g *Guild) MembersWithRole(ctx context.Context, roleID string) ([]string, error) {
	var ids []string
	var after string
	for {
		members, err := g.session.GuildMembers(g.id, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, Classify(err)
		}

		for _, m := range members {
			if m.User == nil {
				continue
			}
			if slices.Contains(m.Roles, roleID) {
				ids = append(ids, m.User.ID)
			}
		}

		if len(members) < membersPageSize {
			return ids, nil
		}

		last := members[len(members)-1]
		if last.User == nil {
			return ids, nil
		}
		after = last.User.ID
	}
}

// Member fetches a guild member.
func (g *Guild) Member(ctx context.Context, userID string) (*discordgo.Member, error) {
	m, err := g.session.GuildMember(g.id, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, Classify(err)
	}
	return m, nil
}

// Roles fetches all roles of the guild.
func (g *Guild) Roles(ctx context.Context) ([]*discordgo.Role, error) {
	roles, err := g.session.GuildRoles(g.id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, Classify(err)
	}
	return roles, nil
}

// OwnerID returns the user ID of the guild owner.
func (g *Guild) OwnerID(ctx context.Context) (string, error) {
	guild, err := g.session.Guild(g.id, discordgo.WithContext(ctx))
	if err != nil {
		return "", Classify(err)
	}
	return guild.OwnerID, nil
}

// HasAnyRoleName tells if any of the given role IDs resolves to one of the given role names.
func (g *Guild) HasAnyRoleName(ctx context.Context, roleIDs []string, names []string) (bool, error) {
	if len(roleIDs) == 0 || len(names) == 0 {
		return false, nil
	}

	roles, err := g.Roles(ctx)
	if err != nil {
		return false, err
	}

	for _, r := range roles {
		if !slices.Contains(roleIDs, r.ID) {
			continue
		}
		for _, name := range names {
			if r.Name == name {
				return true, nil
			}
		}
	}
	return false, nil
}

// SendDirect delivers the content to the user as a direct message.
func (g *Guild) SendDirect(ctx context.Context, userID, content string) error {
	ch, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return Classify(err)
	}

	_, err = g.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return Classify(err)
}

// SendChannel posts the content to the channel and returns the created message.
func (g *Guild) SendChannel(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	msg, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, Classify(err)
	}
	return msg, nil
}

// ChannelsInCategory returns the guild channels whose parent is the given category.
func (g *Guild) ChannelsInCategory(ctx context.Context, categoryID string) ([]*discordgo.Channel, error) {
	channels, err := g.session.GuildChannels(g.id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, Classify(err)
	}

	var found bool
	var children []*discordgo.Channel
	for _, ch := range channels {
		if ch.ID == categoryID && ch.Type == discordgo.ChannelTypeGuildCategory {
			found = true
			continue
		}
		if ch.ParentID == categoryID {
			children = append(children, ch)
		}
	}
	if !found {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrTargetNotFound)
	}
	return children, nil
}

// RecentMessages returns up to limit latest messages of the channel, newest first.
func (g *Guild) RecentMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	msgs, err := g.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, Classify(err)
	}
	return msgs, nil
}

// Message fetches a single message.
func (g *Guild) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	msg, err := g.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, Classify(err)
	}
	return msg, nil
}

// EditMessage replaces the content of a message the bot sent.
func (g *Guild) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := g.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return Classify(err)
}

// React adds a unicode emoji reaction to the message.
func (g *Guild) React(ctx context.Context, channelID, messageID, emoji string) error {
	err := g.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
	return Classify(err)
}

// TopRolePosition returns the highest position among the given role IDs.
// The @everyone role, whose position is 0, is the floor.
func TopRolePosition(roles []*discordgo.Role, roleIDs []string) int {
	top := 0
	for _, r := range roles {
		if slices.Contains(roleIDs, r.ID) && r.Position > top {
			top = r.Position
		}
	}
	return top
}

// HasPermission tells if any of the given role IDs, or the @everyone role, grants the permission.
// Administrator grants every permission.
func HasPermission(roles []*discordgo.Role, everyoneID string, roleIDs []string, permission int64) bool {
	for _, r := range roles {
		if r.ID != everyoneID && !slices.Contains(roleIDs, r.ID) {
			continue
		}
		if r.Permissions&discordgo.PermissionAdministrator != 0 || r.Permissions&permission != 0 {
			return true
		}
	}
	return false
}

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

var snowflakePattern = regexp.MustCompile(`^\d{15,21}$`)

// ParseUserMention extracts a user ID from a "<@id>" or "<@!id>" mention or a raw ID.
func ParseUserMention(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if match := mentionPattern.FindStringSubmatch(s); match != nil {
		return match[1], true
	}
	if snowflakePattern.MatchString(s) {
		return s, true
	}
	return "", false
}

// Mention formats a user mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// ChannelMention formats a channel mention.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}
