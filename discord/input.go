package discord

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"
)

// Input is a sarah.Input implementation that represents a received Discord message.
type Input struct {
	Event     *discordgo.MessageCreate
	senderKey string
	text      string
	sentAt    time.Time
	channelID ChannelID
}

var _ sarah.Input = (*Input)(nil)

// SenderKey returns a unique key representing the sender in the channel.
func (i *Input) SenderKey() string {
	return i.senderKey
}

// Message returns the received text.
func (i *Input) Message() string {
	return i.text
}

// SentAt returns when the message was sent.
func (i *Input) SentAt() time.Time {
	return i.sentAt
}

// ReplyTo returns the Discord channel where the message was received.
func (i *Input) ReplyTo() sarah.OutputDestination {
	return i.channelID
}

// AuthorID returns the ID of the user who sent the message.
func (i *Input) AuthorID() string {
	if i.Event == nil || i.Event.Author == nil {
		return ""
	}
	return i.Event.Author.ID
}

// GuildID returns the guild the message was sent in, or an empty string for direct messages.
func (i *Input) GuildID() string {
	if i.Event == nil {
		return ""
	}
	return i.Event.GuildID
}

// RoleIDs returns the role IDs the author holds in the guild, as delivered with the gateway event.
func (i *Input) RoleIDs() []string {
	if i.Event == nil || i.Event.Member == nil {
		return nil
	}
	return i.Event.Member.Roles
}

// ImageCount returns the number of image attachments on the message.
func (i *Input) ImageCount() int {
	if i.Event == nil {
		return 0
	}

	cnt := 0
	for _, a := range i.Event.Attachments {
		if IsImage(a) {
			cnt++
		}
	}
	return cnt
}

// ReferencedMessageID returns the ID of the message this one replies to, if any.
func (i *Input) ReferencedMessageID() string {
	if i.Event == nil || i.Event.MessageReference == nil {
		return ""
	}
	return i.Event.MessageReference.MessageID
}

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// IsImage tells if the given attachment is an image.
// Discord does not always fill ContentType, so the file extension is checked as a fallback.
func IsImage(a *discordgo.MessageAttachment) bool {
	if a == nil {
		return false
	}
	if strings.HasPrefix(a.ContentType, "image/") {
		return true
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(a.Filename))]
	return ok
}

// MessageToInput converts a *discordgo.MessageCreate event to *Input.
func MessageToInput(m *discordgo.MessageCreate) (*Input, error) {
	if m.Author == nil {
		return nil, ErrNoAuthor
	}

	return &Input{
		Event:     m,
		senderKey: fmt.Sprintf("%s_%s", m.ChannelID, m.Author.ID),
		text:      m.Content,
		sentAt:    m.Timestamp,
		channelID: ChannelID(m.ChannelID),
	}, nil
}

// ReactionInput is a sarah.Input implementation that represents a reaction added to a message.
// Message returns the reacted emoji so commands can match on it.
type ReactionInput struct {
	Event     *discordgo.MessageReactionAdd
	UserID    string
	MessageID string
	GuildID   string
	Emoji     string
	sentAt    time.Time
	channelID ChannelID
}

var _ sarah.Input = (*ReactionInput)(nil)

// SenderKey returns a unique key representing the reacting user in the channel.
func (r *ReactionInput) SenderKey() string {
	return fmt.Sprintf("%s_%s", r.channelID, r.UserID)
}

// Message returns the emoji name of the reaction.
func (r *ReactionInput) Message() string {
	return r.Emoji
}

// SentAt returns when the reaction was received.
func (r *ReactionInput) SentAt() time.Time {
	return r.sentAt
}

// ReplyTo returns the Discord channel of the reacted message.
func (r *ReactionInput) ReplyTo() sarah.OutputDestination {
	return r.channelID
}

// ReactionToInput converts a *discordgo.MessageReactionAdd event to *ReactionInput.
// The gateway does not carry a timestamp for reactions, so receivedAt is used.
func ReactionToInput(r *discordgo.MessageReactionAdd, receivedAt time.Time) (*ReactionInput, error) {
	if r.MessageReaction == nil || r.UserID == "" {
		return nil, ErrNoAuthor
	}

	return &ReactionInput{
		Event:     r,
		UserID:    r.UserID,
		MessageID: r.MessageID,
		GuildID:   r.GuildID,
		Emoji:     r.Emoji.Name,
		sentAt:    receivedAt,
		channelID: ChannelID(r.ChannelID),
	}, nil
}
