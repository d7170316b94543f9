package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// ErrEmptyToken indicates that no token was provided and no session was injected via WithSession.
var ErrEmptyToken = errors.New("token must be set or a session must be provided via WithSession")

// ErrNoAuthor indicates that the given message has no author.
var ErrNoAuthor = errors.New("message has no author")

// ErrPermissionDenied indicates that the bot lacks the rights to perform the requested operation.
// Such failures are reported to operators and are not retried automatically.
var ErrPermissionDenied = errors.New("permission denied")

// ErrTargetNotFound indicates that the targeted member, user, role or channel no longer exists.
var ErrTargetNotFound = errors.New("target not found")

// ErrTransientDelivery indicates a failure that is expected to go away on a later attempt.
var ErrTransientDelivery = errors.New("transient delivery failure")

// Classify wraps the given error returned by discordgo with one of
// ErrPermissionDenied, ErrTargetNotFound or ErrTransientDelivery so callers can
// branch on errors.Is. A nil error stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return fmt.Errorf("%w: %w", ErrTransientDelivery, err)
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)

		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %w", ErrTargetNotFound, err)

		case discordgo.ErrCodeCannotSendMessagesToThisUser:
			// Closed DMs are never escalated.
			return fmt.Errorf("%w: %w", ErrTransientDelivery, err)

		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)

		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrTargetNotFound, err)

		}
	}

	return fmt.Errorf("%w: %w", ErrTransientDelivery, err)
}
