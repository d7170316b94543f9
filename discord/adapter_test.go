package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"
)

// mockSession implements the session interface for testing.
type mockSession struct {
	addHandlerFunc                func(handler interface{}) func()
	openFunc                      func() error
	closeFunc                     func() error
	channelMessageSendFunc        func(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	channelMessageSendComplexFunc func(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	userChannelCreateFunc         func(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

func (m *mockSession) AddHandler(handler interface{}) func() {
	if m.addHandlerFunc != nil {
		return m.addHandlerFunc(handler)
	}
	return func() {}
}

func (m *mockSession) Open() error {
	if m.openFunc != nil {
		return m.openFunc()
	}
	return nil
}

func (m *mockSession) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.channelMessageSendFunc != nil {
		return m.channelMessageSendFunc(channelID, content, options...)
	}
	return &discordgo.Message{}, nil
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.channelMessageSendComplexFunc != nil {
		return m.channelMessageSendComplexFunc(channelID, data, options...)
	}
	return &discordgo.Message{}, nil
}

func (m *mockSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.userChannelCreateFunc != nil {
		return m.userChannelCreateFunc(recipientID, options...)
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func newMessage(channelID, authorID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ChannelID: channelID,
			GuildID:   "guild-1",
			Content:   content,
			Timestamp: time.Now(),
			Author:    &discordgo.User{ID: authorID},
		},
	}
}

func newReaction(channelID, messageID, userID, emoji string) *discordgo.MessageReactionAdd {
	return &discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    userID,
			MessageID: messageID,
			ChannelID: channelID,
			GuildID:   "guild-1",
			Emoji:     discordgo.Emoji{Name: emoji},
		},
	}
}

func TestNewAdapter(t *testing.T) {
	t.Run("with token", func(t *testing.T) {
		config := NewConfig()
		config.Token = "test-token"

		adapter, err := NewAdapter(config)
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if adapter.session == nil {
			t.Error("Expected session to be created")
		}

		s, ok := adapter.session.(*discordgo.Session)
		if !ok {
			t.Fatalf("Expected *discordgo.Session, got %T", adapter.session)
		}
		if s.Identify.Intents != config.Intents {
			t.Errorf("Expected intents %d, got %d", config.Intents, s.Identify.Intents)
		}
	})

	t.Run("without token and without session", func(t *testing.T) {
		_, err := NewAdapter(NewConfig())
		if !errors.Is(err, ErrEmptyToken) {
			t.Errorf("Expected ErrEmptyToken, got %+v", err)
		}
	})

	t.Run("with injected session", func(t *testing.T) {
		session := &discordgo.Session{}

		adapter, err := NewAdapter(NewConfig(), WithSession(session))
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if adapter.session != session {
			t.Error("Expected injected session to be used")
		}
	})
}

func TestAdapter_BotType(t *testing.T) {
	adapter := &Adapter{config: NewConfig()}

	if adapter.BotType() != DISCORD {
		t.Errorf("Expected BotType to be %q, got %q", DISCORD, adapter.BotType())
	}
}

func TestAdapter_Run(t *testing.T) {
	t.Run("Open fails", func(t *testing.T) {
		mock := &mockSession{
			openFunc: func() error {
				return fmt.Errorf("connection refused")
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		var notifiedErr error
		adapter.Run(context.Background(), func(sarah.Input) error { return nil }, func(err error) {
			notifiedErr = err
		})

		if notifiedErr == nil {
			t.Fatal("Expected notifyErr to be called when Open fails")
		}
		if !strings.Contains(notifiedErr.Error(), "connection refused") {
			t.Errorf("Expected error to contain 'connection refused', got %q", notifiedErr.Error())
		}
	})

	t.Run("message and reaction handlers are registered", func(t *testing.T) {
		var handlers []interface{}
		mock := &mockSession{
			addHandlerFunc: func(handler interface{}) func() {
				handlers = append(handlers, handler)
				return func() {}
			},
			openFunc: func() error {
				return fmt.Errorf("stop here")
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.Run(context.Background(), func(sarah.Input) error { return nil }, func(error) {})

		if len(handlers) != 2 {
			t.Fatalf("Expected 2 handlers, got %d", len(handlers))
		}
		if _, ok := handlers[0].(func(*discordgo.Session, *discordgo.MessageCreate)); !ok {
			t.Errorf("Expected a MessageCreate handler, got %T", handlers[0])
		}
		if _, ok := handlers[1].(func(*discordgo.Session, *discordgo.MessageReactionAdd)); !ok {
			t.Errorf("Expected a MessageReactionAdd handler, got %T", handlers[1])
		}
	})

	t.Run("context canceled calls Close", func(t *testing.T) {
		closed := make(chan struct{})
		mock := &mockSession{
			closeFunc: func() error {
				close(closed)
				return fmt.Errorf("close failed")
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			adapter.Run(ctx, func(sarah.Input) error { return nil }, func(error) {})
			close(done)
		}()

		cancel()
		<-done

		select {
		case <-closed:
		default:
			t.Error("Expected Close to be called after context cancellation")
		}
	})
}

func TestAdapter_handleMessage(t *testing.T) {
	botUserID := "bot-user-123"
	sessionWithState := &discordgo.Session{State: discordgo.NewState()}
	sessionWithState.State.User = &discordgo.User{ID: botUserID}

	tests := []struct {
		name     string
		message  *discordgo.MessageCreate
		helpCmd  string
		expected string
	}{
		{
			name:     "command is enqueued as Input",
			message:  newMessage("ch-1", "user-1", ";stats"),
			helpCmd:  ";help",
			expected: "*discord.Input",
		},
		{
			name:     "help command is wrapped as HelpInput",
			message:  newMessage("ch-1", "user-1", "  ;help "),
			helpCmd:  ";help",
			expected: "*sarah.HelpInput",
		},
		{
			name:     "abort command is wrapped as AbortInput",
			message:  newMessage("ch-1", "user-1", ";abort"),
			helpCmd:  ";help",
			expected: "*sarah.AbortInput",
		},
		{
			name:     "empty help command disables help detection",
			message:  newMessage("ch-1", "user-1", ";help"),
			helpCmd:  "",
			expected: "*discord.Input",
		},
		{
			name:     "bot's own message is ignored",
			message:  newMessage("ch-1", botUserID, "There are currently 2 open verification tickets"),
			helpCmd:  ";help",
			expected: "",
		},
		{
			name: "system message without author is ignored",
			message: &discordgo.MessageCreate{
				Message: &discordgo.Message{ChannelID: "ch-1", Content: "pinned"},
			},
			helpCmd:  ";help",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewConfig()
			config.HelpCommand = tt.helpCmd
			adapter := &Adapter{config: config, session: sessionWithState}

			var received sarah.Input
			adapter.handleMessage(sessionWithState, tt.message, func(input sarah.Input) error {
				received = input
				return nil
			})

			if tt.expected == "" {
				if received != nil {
					t.Errorf("Expected nothing to be enqueued, got %T", received)
				}
				return
			}

			if received == nil {
				t.Fatal("Expected input to be enqueued")
			}
			if typ := fmt.Sprintf("%T", received); typ != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, typ)
			}
		})
	}

	t.Run("session without state does not panic", func(t *testing.T) {
		sessionNoState := &discordgo.Session{}
		adapter := &Adapter{config: NewConfig(), session: sessionNoState}

		var received sarah.Input
		adapter.handleMessage(sessionNoState, newMessage("ch-1", "user-1", "hello"), func(input sarah.Input) error {
			received = input
			return nil
		})

		if received == nil {
			t.Fatal("Expected input to be enqueued")
		}
	})

	t.Run("enqueue error is handled gracefully", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), session: sessionWithState}

		adapter.handleMessage(sessionWithState, newMessage("ch-1", "user-1", "hello"), func(sarah.Input) error {
			return fmt.Errorf("queue full")
		})
	})
}

func TestAdapter_handleReaction(t *testing.T) {
	botUserID := "bot-user-123"
	sessionWithState := &discordgo.Session{State: discordgo.NewState()}
	sessionWithState.State.User = &discordgo.User{ID: botUserID}
	adapter := &Adapter{config: NewConfig(), session: sessionWithState}

	t.Run("member reaction is enqueued", func(t *testing.T) {
		var received sarah.Input
		adapter.handleReaction(sessionWithState, newReaction("ch-1", "msg-1", "user-1", "✅"), func(input sarah.Input) error {
			received = input
			return nil
		})

		reaction, ok := received.(*ReactionInput)
		if !ok {
			t.Fatalf("Expected *ReactionInput, got %T", received)
		}
		if reaction.MessageID != "msg-1" || reaction.UserID != "user-1" || reaction.Message() != "✅" {
			t.Errorf("Unexpected reaction input: %+v", reaction)
		}
	})

	t.Run("bot's own reaction is ignored", func(t *testing.T) {
		var received sarah.Input
		adapter.handleReaction(sessionWithState, newReaction("ch-1", "msg-1", botUserID, "✅"), func(input sarah.Input) error {
			received = input
			return nil
		})

		if received != nil {
			t.Errorf("Expected bot's own reaction to be ignored, got %T", received)
		}
	})
}

func TestAdapter_SendMessage(t *testing.T) {
	t.Run("string content to channel", func(t *testing.T) {
		var gotChannelID, gotContent string
		mock := &mockSession{
			channelMessageSendFunc: func(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
				gotChannelID = channelID
				gotContent = content
				return &discordgo.Message{}, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(ChannelID("ops"), "member failed to lose role"))

		if gotChannelID != "ops" {
			t.Errorf("Expected channelID %q, got %q", "ops", gotChannelID)
		}
		if gotContent != "member failed to lose role" {
			t.Errorf("Expected content %q, got %q", "member failed to lose role", gotContent)
		}
	})

	t.Run("string content to user opens a DM channel", func(t *testing.T) {
		var gotRecipient, gotChannelID string
		mock := &mockSession{
			userChannelCreateFunc: func(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
				gotRecipient = recipientID
				return &discordgo.Channel{ID: "dm-42"}, nil
			},
			channelMessageSendFunc: func(channelID, _ string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
				gotChannelID = channelID
				return &discordgo.Message{}, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(UserID("42"), "reminder"))

		if gotRecipient != "42" {
			t.Errorf("Expected DM to user %q, got %q", "42", gotRecipient)
		}
		if gotChannelID != "dm-42" {
			t.Errorf("Expected message in DM channel %q, got %q", "dm-42", gotChannelID)
		}
	})

	t.Run("DM channel failure skips the send", func(t *testing.T) {
		mock := &mockSession{
			userChannelCreateFunc: func(string, ...discordgo.RequestOption) (*discordgo.Channel, error) {
				return nil, fmt.Errorf("cannot DM")
			},
			channelMessageSendFunc: func(string, string, ...discordgo.RequestOption) (*discordgo.Message, error) {
				t.Error("ChannelMessageSend should not be called without a DM channel")
				return nil, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(UserID("42"), "reminder"))
	})

	t.Run("MessageSend content", func(t *testing.T) {
		var gotData *discordgo.MessageSend
		mock := &mockSession{
			channelMessageSendComplexFunc: func(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
				gotData = data
				return &discordgo.Message{}, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(ChannelID("ch-2"), &discordgo.MessageSend{Content: "stats"}))

		if gotData == nil || gotData.Content != "stats" {
			t.Error("Expected MessageSend to be passed through")
		}
	})

	t.Run("CommandHelps content", func(t *testing.T) {
		var gotContent string
		mock := &mockSession{
			channelMessageSendFunc: func(_, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
				gotContent = content
				return &discordgo.Message{}, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		helps := &sarah.CommandHelps{
			{Identifier: "jail", Instruction: "Input ;jail @member [reason]"},
			{Identifier: "stats", Instruction: "Input ;stats"},
		}
		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(ChannelID("ch-3"), helps))

		if !strings.Contains(gotContent, "**jail**: Input ;jail @member [reason]") {
			t.Errorf("Expected help text to contain jail, got %q", gotContent)
		}
		if !strings.Contains(gotContent, "**stats**: Input ;stats") {
			t.Errorf("Expected help text to contain stats, got %q", gotContent)
		}
	})

	t.Run("invalid destination type", func(t *testing.T) {
		mock := &mockSession{
			channelMessageSendFunc: func(string, string, ...discordgo.RequestOption) (*discordgo.Message, error) {
				t.Error("ChannelMessageSend should not be called for invalid destination")
				return nil, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage("not-a-channel-id", "hello"))
	})

	t.Run("unexpected content type", func(t *testing.T) {
		mock := &mockSession{
			channelMessageSendFunc: func(string, string, ...discordgo.RequestOption) (*discordgo.Message, error) {
				t.Error("ChannelMessageSend should not be called for unexpected content")
				return nil, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(ChannelID("ch-1"), 12345))
	})
}

func TestNewResponse(t *testing.T) {
	t.Run("message input", func(t *testing.T) {
		input, _ := MessageToInput(newMessage("ch", "user", ";stats"))

		resp, err := NewResponse(input, "no record yet")
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if resp.Content != "no record yet" {
			t.Errorf("Expected content %q, got %v", "no record yet", resp.Content)
		}
		if resp.UserContext != nil {
			t.Error("Expected nil UserContext for simple response")
		}
	})

	t.Run("reaction input", func(t *testing.T) {
		input, _ := ReactionToInput(newReaction("ch", "msg", "user", "✅"), time.Now())

		if _, err := NewResponse(input, "welcome"); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
	})

	t.Run("response with next", func(t *testing.T) {
		input, _ := MessageToInput(newMessage("ch", "user", ";challenge reset"))
		next := func(context.Context, sarah.Input) (*sarah.CommandResponse, error) {
			return &sarah.CommandResponse{Content: "done"}, nil
		}

		resp, err := NewResponse(input, "confirm?", RespWithNext(next))
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if resp.UserContext == nil || resp.UserContext.Next == nil {
			t.Error("Expected non-nil UserContext.Next")
		}
	})

	t.Run("response with serializable next", func(t *testing.T) {
		input, _ := MessageToInput(newMessage("ch", "user", ";challenge reset"))
		arg := &sarah.SerializableArgument{FuncIdentifier: "confirmReset", Argument: "yes"}

		resp, err := NewResponse(input, "confirm?", RespWithNextSerializable(arg))
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if resp.UserContext == nil || resp.UserContext.Serializable.FuncIdentifier != "confirmReset" {
			t.Error("Expected serializable argument to be set")
		}
	})

	t.Run("non-discord input returns error", func(t *testing.T) {
		input, _ := MessageToInput(newMessage("ch", "user", ";help"))

		if _, err := NewResponse(sarah.NewHelpInput(input), "should fail"); err == nil {
			t.Fatal("Expected an error for non-discord Input")
		}
	})
}

func TestDestinations(t *testing.T) {
	var _ sarah.OutputDestination = ChannelID("ch")
	var _ sarah.OutputDestination = UserID("user")
}

func TestAdapter_inGuild(t *testing.T) {
	config := NewConfig()
	config.GuildID = "guild-1"
	adapter := &Adapter{config: config, session: &discordgo.Session{}}

	var received []sarah.Input
	enqueue := func(input sarah.Input) error {
		received = append(received, input)
		return nil
	}

	other := newMessage("ch-1", "user-1", ";stats")
	other.GuildID = "guild-2"
	adapter.handleMessage(&discordgo.Session{}, other, enqueue)

	dm := newMessage("dm-1", "user-1", ";stats")
	dm.GuildID = ""
	adapter.handleMessage(&discordgo.Session{}, dm, enqueue)

	adapter.handleMessage(&discordgo.Session{}, newMessage("ch-1", "user-1", ";stats"), enqueue)

	reaction := newReaction("ch-1", "msg-1", "user-1", "✅")
	reaction.GuildID = "guild-2"
	adapter.handleReaction(&discordgo.Session{}, reaction, enqueue)

	if len(received) != 2 {
		t.Errorf("Expected the direct message and the guild message to be enqueued, got %d inputs", len(received))
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		limit    int
		expected []string
	}{
		{
			name:     "short text",
			text:     "a\nb",
			limit:    10,
			expected: []string{"a\nb"},
		},
		{
			name:     "breaks at line end",
			text:     "aaaa\nbbbb\ncc",
			limit:    9,
			expected: []string{"aaaa\nbbbb", "cc"},
		},
		{
			name:     "long line is cut",
			text:     "ab\ncdefghij",
			limit:    4,
			expected: []string{"ab", "cdef", "ghij"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitMessage(tt.text, tt.limit)
			if fmt.Sprint(chunks) != fmt.Sprint(tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, chunks)
			}
		})
	}
}
