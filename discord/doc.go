// Package discord provides the Discord side of steward.
//
// Adapter is a sarah.Adapter implementation that converts discordgo message and
// reaction events into sarah.Input and dispatches sarah.Output as channel messages
// or direct messages. Guild wraps the REST calls the moderation features need
// (role mutation, member listing, channel history) and classifies their failures
// into ErrPermissionDenied, ErrTargetNotFound and ErrTransientDelivery.
package discord
