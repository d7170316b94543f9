package jail

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

func newInput(t *testing.T, content string) *discord.Input {
	t.Helper()
	input, err := discord.MessageToInput(&discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "msg",
			ChannelID: "channel",
			GuildID:   "guild",
			Content:   content,
			Author:    &discordgo.User{ID: "mod"},
			Member:    &discordgo.Member{Roles: []string{"mod"}},
			Timestamp: time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	return input
}

func TestCommands_Props(t *testing.T) {
	guild := newMockGuild()
	warden, _ := newTestWarden(t, guild)

	props := NewCommands(warden, guild, []string{"Mod"}).Props()

	if len(props) != 2 {
		t.Errorf("Expected 2 commands, got %d", len(props))
	}
}

func TestCommands_Replies(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(g *mockGuild)
		command  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error)
		message  string
		expected string
	}{
		{
			name:     "jail with reason",
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.jail },
			message:  ";jail <@100000000000000001> spamming links",
			expected: "<@100000000000000001> has been jailed for: spamming links",
		},
		{
			name:     "jail without reason",
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.jail },
			message:  ";jail <@100000000000000001>",
			expected: "<@100000000000000001> has been jailed.",
		},
		{
			name:     "missing member",
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.jail },
			message:  ";jail",
			expected: "Please mention a member to jail/unjail.",
		},
		{
			name:     "invalid member",
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.unjail },
			message:  ";unjail somebody",
			expected: "Please specify a valid member.",
		},
		{
			name: "not a moderator",
			setup: func(g *mockGuild) {
				g.isModerator = false
			},
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.jail },
			message:  ";jail <@100000000000000001>",
			expected: discord.NoPermissionMessage,
		},
		{
			name: "role edit forbidden",
			setup: func(g *mockGuild) {
				g.replaceRolesFunc = func(_ string, _ []string) error {
					return fmt.Errorf("%w: hierarchy", discord.ErrPermissionDenied)
				}
			},
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.jail },
			message:  ";jail <@100000000000000001>",
			expected: "I don't have permission to modify this member's roles.",
		},
		{
			name:     "unjail a free member",
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.unjail },
			message:  ";unjail <@100000000000000001>",
			expected: "<@100000000000000001> is not currently jailed.",
		},
		{
			name: "unjail",
			setup: func(g *mockGuild) {
				g.members[targetID].Roles = []string{"jail"}
			},
			command:  func(c *Commands) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) { return c.unjail },
			message:  ";unjail <@100000000000000001>",
			expected: "<@100000000000000001> has been released from jail.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guild := newMockGuild()
			if tt.setup != nil {
				tt.setup(guild)
			}
			warden, _ := newTestWarden(t, guild)
			commands := NewCommands(warden, guild, []string{"Mod"})

			res, err := tt.command(commands)(context.Background(), newInput(t, tt.message))
			if err != nil {
				t.Fatalf("Unexpected error: %s", err.Error())
			}
			if res == nil {
				t.Fatal("Expected a response")
			}
			if res.Content != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, res.Content)
			}
		})
	}
}
