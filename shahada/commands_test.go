package shahada

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

type mockChecker struct {
	hasAnyRoleNameFunc func(ctx context.Context, roleIDs []string, names []string) (bool, error)
}

func (m *mockChecker) HasAnyRoleName(ctx context.Context, roleIDs []string, names []string) (bool, error) {
	return m.hasAnyRoleNameFunc(ctx, roleIDs, names)
}

func moderator(ok bool) *mockChecker {
	return &mockChecker{
		hasAnyRoleNameFunc: func(_ context.Context, _ []string, _ []string) (bool, error) {
			return ok, nil
		},
	}
}

func newInput(t *testing.T, content string) *discord.Input {
	t.Helper()
	input, err := discord.MessageToInput(&discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "msg",
			ChannelID: "channel",
			GuildID:   "guild",
			Content:   content,
			Author:    &discordgo.User{ID: "mod"},
			Member:    &discordgo.Member{Roles: []string{"mod-role"}},
			Timestamp: time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	return input
}

func reply(t *testing.T, res *sarah.CommandResponse, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if res == nil {
		t.Fatal("Expected a response")
	}
	content, ok := res.Content.(string)
	if !ok {
		t.Fatalf("Expected string content, got %T", res.Content)
	}
	return content
}

func TestCommands_Props(t *testing.T) {
	commands := NewCommands(newTestCounter(t), moderator(true), []string{"Mod"})

	props := commands.Props()

	if len(props) != 3 {
		t.Errorf("Expected 3 commands, got %d", len(props))
	}
}

func TestCommands(t *testing.T) {
	steps := []struct {
		message  string
		expected string
	}{
		{";listshahadas", "No shahadas have been recorded yet."},
		{";shahadacounter", "Please provide either a member or a number to set the counter."},
		{";shahadacounter somebody", "Please provide a valid member or number."},
		{";shahadacounter 10", "Shahada counter has been set to 10"},
		{";shahadacounter <@123456789012345678>", "<@123456789012345678> has taken their shahada. Total count: 11! Alhamdulillah!"},
		{";shahadacounter <@!123456789012345678>", "<@123456789012345678> has already taken their shahada!"},
		{";listshahadas", "Members who have taken shahada:\n• <@123456789012345678>\n\nTotal count: 11"},
		{";removeshahada", "Please mention a member to track/remove their shahada."},
		{";removeshahada somebody", "Please specify a valid member."},
		{";removeshahada <@999999999999999999>", "<@999999999999999999> has not taken shahada yet."},
		{";removeshahada <@123456789012345678>", "Removed shahada count for <@123456789012345678>. New total count: 10"},
	}

	commands := NewCommands(newTestCounter(t), moderator(true), []string{"Mod"})
	handlers := map[string]func(context.Context, sarah.Input) (*sarah.CommandResponse, error){
		";shahadacounter": commands.moderated(counterPattern, commands.count),
		";removeshahada":  commands.moderated(removePattern, commands.remove),
		";listshahadas":   commands.moderated(listPattern, commands.list),
	}

	for _, step := range steps {
		var fnc func(context.Context, sarah.Input) (*sarah.CommandResponse, error)
		for prefix, h := range handlers {
			if len(step.message) >= len(prefix) && step.message[:len(prefix)] == prefix {
				fnc = h
			}
		}
		if fnc == nil {
			t.Fatalf("No handler for %q", step.message)
		}

		res, err := fnc(context.Background(), newInput(t, step.message))
		if got := reply(t, res, err); got != step.expected {
			t.Errorf("%s: expected %q, got %q", step.message, step.expected, got)
		}
	}
}

func TestCommands_NotModerator(t *testing.T) {
	counter := newTestCounter(t)
	commands := NewCommands(counter, moderator(false), []string{"Mod"})

	res, err := commands.moderated(counterPattern, commands.count)(context.Background(), newInput(t, ";shahadacounter 5"))
	if got := reply(t, res, err); got != discord.NoPermissionMessage {
		t.Errorf("Unexpected reply: %q", got)
	}

	state, err := counter.State()
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if state.Total != 0 {
		t.Errorf("Counter must not change: %+v", state)
	}
}
