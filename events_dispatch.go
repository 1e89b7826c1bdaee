package crust

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
)

type DispatchHandler func(ctx context.Context, c *Client, msg discord.GatewayPayload) error

var dispatchHandlers = make(map[discord.EventType]DispatchHandler)

func registerDispatch(eventType discord.EventType, handler DispatchHandler) {
	dispatchHandlers[eventType] = handler
}

// onDispatch merges a dispatch into the state and emits the matching event.
// Dispatches without a handler are forwarded as a DispatchEvent.
func (c *Client) onDispatch(gc *gatewayConn, msg discord.GatewayPayload) error {
	RecordEvent(c.options.Name, msg.Type)

	handler, ok := dispatchHandlers[discord.ParseEventType(msg.Type)]
	if !ok {
		c.emit(DispatchEvent{Name: msg.Type, Data: msg.Data})

		return nil
	}

	err := handler(gc.ctx, c, msg)
	if err != nil {
		return fmt.Errorf("failed to handle %s: %w", msg.Type, err)
	}

	c.updateStateMetrics()

	return nil
}

func decodeDispatch(msg discord.GatewayPayload, v interface{}) error {
	err := crustjson.Unmarshal(msg.Data, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", msg.Type, err)
	}

	return nil
}

func onReady(ctx context.Context, c *Client, msg discord.GatewayPayload) error {
	var ready discord.Ready

	err := decodeDispatch(msg, &ready)
	if err != nil {
		return err
	}

	c.Logger.Debug().Int("servers", len(ready.Guilds)).Msg("Received READY payload")

	c.sessionID.Store(ready.SessionID)
	c.resumeGatewayURL.Store(ready.ResumeGatewayURL)
	c.bot.Store(ready.User.Bot)

	c.State.LoadReady(&ready)

	if ready.User.Bot {
		go c.fetchApplication(ctx)
	} else {
		go c.fetchSettings(ctx)
	}

	c.readyPending = true

	if c.readyTimer != nil {
		c.readyTimer.Stop()
	}

	c.readyTimer = time.AfterFunc(c.options.ReadyTimeout, func() {
		c.runTask(ctx, func() {
			c.checkReady(true)
		})
	})

	c.checkReady(false)

	return nil
}

// checkReady emits READY once every server is available, or when forced
// after the ready timeout.
func (c *Client) checkReady(force bool) {
	if !c.readyPending {
		return
	}

	pending := c.State.PendingServers()
	if pending > 0 && !force {
		return
	}

	c.readyPending = false

	if c.readyTimer != nil {
		c.readyTimer.Stop()
		c.readyTimer = nil
	}

	if pending > 0 {
		c.Logger.Warn().Int("pending", pending).Msg("Servers still unavailable after ready timeout")
	}

	c.ready.Store(true)
	c.setStatus(GatewayStatusReady)

	self, _ := c.State.Self()

	c.emit(ReadyEvent{User: self, SessionID: c.sessionID.Load()})
}

func (c *Client) fetchApplication(ctx context.Context) {
	var application discord.Application

	err := c.rest.Fetch(ctx, http.MethodGet, discord.EndpointOAuthApp, nil, &application)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("Failed to fetch oauth application")

		return
	}

	c.inviteURL.Store(discord.InviteURL(application.ID))
}

func (c *Client) fetchSettings(ctx context.Context) {
	var settings discord.UserSettings

	err := c.rest.Fetch(ctx, http.MethodGet, discord.EndpointUserSettings, nil, &settings)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("Failed to fetch user settings")

		return
	}

	c.runTask(ctx, func() {
		c.State.UpdateSettings(settings)
	})
}

func onResumed(_ context.Context, c *Client, _ discord.GatewayPayload) error {
	c.Logger.Info().Msg("Session resumed")

	if c.ready.Load() {
		c.setStatus(GatewayStatusReady)
	}

	c.emit(ResumedEvent{})

	return nil
}

func onMessageCreate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var message discord.Message

	err := decodeDispatch(msg, &message)
	if err != nil {
		return err
	}

	c.Messages.Put(&message)

	c.emit(MessageCreateEvent{Message: &message})

	return nil
}

func onMessageUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var key struct {
		ID        discord.Snowflake `json:"id"`
		ChannelID discord.Snowflake `json:"channel_id"`
	}

	err := decodeDispatch(msg, &key)
	if err != nil {
		return err
	}

	before, after, err := c.Messages.Update(key.ChannelID, key.ID, msg.Data)
	if err != nil {
		return fmt.Errorf("failed to merge message update: %w", err)
	}

	c.emit(MessageUpdateEvent{Before: before, After: after})

	return nil
}

func onMessageDelete(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var messageDelete discord.MessageDelete

	err := decodeDispatch(msg, &messageDelete)
	if err != nil {
		return err
	}

	before, _ := c.Messages.Delete(messageDelete.ChannelID, messageDelete.ID)

	c.emit(MessageDeleteEvent{
		ChannelID: messageDelete.ChannelID,
		MessageID: messageDelete.ID,
		Before:    before,
	})

	return nil
}

func onMessageDeleteBulk(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var bulk discord.MessageDeleteBulk

	err := decodeDispatch(msg, &bulk)
	if err != nil {
		return err
	}

	before := make([]*discord.Message, 0, len(bulk.IDs))

	for _, id := range bulk.IDs {
		if message, ok := c.Messages.Delete(bulk.ChannelID, id); ok {
			before = append(before, message)
		}
	}

	c.emit(MessageDeleteBulkEvent{
		ChannelID:  bulk.ChannelID,
		MessageIDs: bulk.IDs,
		Before:     before,
	})

	return nil
}

func onPresenceUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var presence discord.Presence

	err := decodeDispatch(msg, &presence)
	if err != nil {
		return err
	}

	before, after, ok := c.State.UpdatePresence(&presence)
	if !ok {
		return nil
	}

	c.emit(PresenceUpdateEvent{
		ServerID: presence.GuildID,
		Before:   before,
		After:    after,
		Presence: &presence,
	})

	return nil
}

func onUserUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var user discord.User

	err := decodeDispatch(msg, &user)
	if err != nil {
		return err
	}

	before := c.State.UpdateSelf(&user)
	after, _ := c.State.Self()

	c.emit(UserUpdateEvent{Before: before, After: after})

	return nil
}

func onUserSettingsUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var settings discord.UserSettings

	err := decodeDispatch(msg, &settings)
	if err != nil {
		return err
	}

	c.State.UpdateSettings(settings)

	c.emit(UserSettingsUpdateEvent{Settings: c.State.Settings()})

	return nil
}

func onGuildCreate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var guild discord.Guild

	err := decodeDispatch(msg, &guild)
	if err != nil {
		return err
	}

	server := c.State.CreateServer(&guild)

	c.emit(GuildCreateEvent{Server: server})

	c.checkReady(false)

	return nil
}

func onGuildUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var guild discord.Guild

	err := decodeDispatch(msg, &guild)
	if err != nil {
		return err
	}

	before, after, ok := c.State.UpdateServer(&guild)
	if !ok {
		c.Logger.Debug().Str("server_id", guild.ID.String()).Msg("Received update for unknown server")

		return nil
	}

	c.emit(GuildUpdateEvent{Before: before, After: after})

	return nil
}

func onGuildDelete(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var guild discord.UnavailableGuild

	err := decodeDispatch(msg, &guild)
	if err != nil {
		return err
	}

	before, ok := c.State.DeleteServer(guild.ID)
	if !ok {
		return nil
	}

	if session, exists := c.voiceSessions.Load(guild.ID); exists {
		_ = session.Close()
	}

	c.emit(GuildDeleteEvent{Server: before, Unavailable: guild.Unavailable})

	return nil
}

func onGuildMemberAdd(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var member discord.GuildMember

	err := decodeDispatch(msg, &member)
	if err != nil {
		return err
	}

	added, ok := c.State.AddMember(&member)
	if !ok {
		return nil
	}

	c.emit(GuildMemberAddEvent{Member: added})

	return nil
}

func onGuildMemberUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var update discord.GuildMemberUpdate

	err := decodeDispatch(msg, &update)
	if err != nil {
		return err
	}

	before, after, ok := c.State.UpdateMember(&update)
	if !ok {
		return nil
	}

	c.emit(GuildMemberUpdateEvent{Before: before, After: after})

	return nil
}

func onGuildMemberRemove(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var remove discord.GuildMemberRemove

	err := decodeDispatch(msg, &remove)
	if err != nil {
		return err
	}

	if remove.User == nil {
		return nil
	}

	before, ok := c.State.RemoveMember(remove.GuildID, remove.User.ID)
	if !ok {
		return nil
	}

	c.emit(GuildMemberRemoveEvent{
		ServerID: remove.GuildID,
		UserID:   remove.User.ID,
		Before:   before,
	})

	return nil
}

func onGuildRoleCreate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var guildRole discord.GuildRole

	err := decodeDispatch(msg, &guildRole)
	if err != nil {
		return err
	}

	if guildRole.Role == nil {
		return nil
	}

	role, ok := c.State.CreateRole(guildRole.GuildID, guildRole.Role)
	if !ok {
		return nil
	}

	c.emit(GuildRoleCreateEvent{ServerID: guildRole.GuildID, Role: role})

	return nil
}

func onGuildRoleUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var guildRole discord.GuildRole

	err := decodeDispatch(msg, &guildRole)
	if err != nil {
		return err
	}

	if guildRole.Role == nil {
		return nil
	}

	before, after, ok := c.State.UpdateRole(guildRole.GuildID, guildRole.Role)
	if !ok {
		return nil
	}

	c.emit(GuildRoleUpdateEvent{ServerID: guildRole.GuildID, Before: before, After: after})

	return nil
}

func onGuildRoleDelete(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var roleDelete discord.GuildRoleDelete

	err := decodeDispatch(msg, &roleDelete)
	if err != nil {
		return err
	}

	before, ok := c.State.DeleteRole(roleDelete.GuildID, roleDelete.RoleID)
	if !ok {
		return nil
	}

	c.emit(GuildRoleDeleteEvent{ServerID: roleDelete.GuildID, Before: before})

	return nil
}

func onChannelCreate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var channel discord.Channel

	err := decodeDispatch(msg, &channel)
	if err != nil {
		return err
	}

	c.State.CreateChannel(&channel)

	c.emit(ChannelCreateEvent{Channel: &channel})

	return nil
}

func onChannelUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var channel discord.Channel

	err := decodeDispatch(msg, &channel)
	if err != nil {
		return err
	}

	before, after, ok := c.State.UpdateChannel(&channel)
	if !ok {
		c.State.CreateChannel(&channel)
		after, _ = c.State.Channel(channel.ID)
	}

	c.emit(ChannelUpdateEvent{Before: before, After: after})

	return nil
}

func onChannelDelete(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var channel discord.Channel

	err := decodeDispatch(msg, &channel)
	if err != nil {
		return err
	}

	before, _ := c.State.DeleteChannel(&channel)

	c.emit(ChannelDeleteEvent{Channel: &channel, Before: before})

	return nil
}

func onGuildEmojisUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var update discord.GuildEmojisUpdate

	err := decodeDispatch(msg, &update)
	if err != nil {
		return err
	}

	before, ok := c.State.UpdateEmojis(&update)
	if !ok {
		return nil
	}

	c.emit(GuildEmojisUpdateEvent{ServerID: update.GuildID, Before: before, Emojis: update.Emojis})

	return nil
}

func onVoiceStateUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var voiceState discord.VoiceState

	err := decodeDispatch(msg, &voiceState)
	if err != nil {
		return err
	}

	previous := c.State.UpdateVoiceState(&voiceState)

	if self, ok := c.State.Self(); ok && self.ID == voiceState.UserID {
		c.onSelfVoiceState(&voiceState)
	}

	c.emit(VoiceStateUpdateEvent{VoiceState: &voiceState, PreviousChannelID: previous})

	return nil
}

func onVoiceServerUpdate(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var voiceServer discord.VoiceServerUpdate

	err := decodeDispatch(msg, &voiceServer)
	if err != nil {
		return err
	}

	if session, ok := c.voiceSessions.Load(voiceServer.GuildID); ok {
		session.UpdateServer(voiceServer.Token, voiceServer.Endpoint)
	}

	c.emit(VoiceServerUpdateEvent{VoiceServer: &voiceServer})

	return nil
}

func onGuildMembersChunk(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var chunk discord.GuildMembersChunk

	err := decodeDispatch(msg, &chunk)
	if err != nil {
		return err
	}

	if !c.State.AddMemberChunk(&chunk) {
		return nil
	}

	c.emit(GuildMembersChunkEvent{ServerID: chunk.GuildID, Members: len(chunk.Members)})

	c.checkAllUsers()

	return nil
}

func onGuildSync(_ context.Context, c *Client, msg discord.GatewayPayload) error {
	var sync discord.GuildSync

	err := decodeDispatch(msg, &sync)
	if err != nil {
		return err
	}

	if !c.State.SyncServer(&sync) {
		return nil
	}

	c.emit(GuildSyncEvent{ServerID: sync.ID})

	c.checkAllUsers()

	return nil
}

func (c *Client) checkAllUsers() {
	if c.State.AllMembersCollected() {
		c.emit(AllUsersEvent{})
	}
}

func init() {
	registerDispatch(discord.EventTypeReady, onReady)
	registerDispatch(discord.EventTypeResumed, onResumed)

	registerDispatch(discord.EventTypeMessageCreate, onMessageCreate)
	registerDispatch(discord.EventTypeMessageUpdate, onMessageUpdate)
	registerDispatch(discord.EventTypeMessageDelete, onMessageDelete)
	registerDispatch(discord.EventTypeMessageDeleteBulk, onMessageDeleteBulk)

	registerDispatch(discord.EventTypePresenceUpdate, onPresenceUpdate)
	registerDispatch(discord.EventTypeUserUpdate, onUserUpdate)
	registerDispatch(discord.EventTypeUserSettingsUpdate, onUserSettingsUpdate)

	registerDispatch(discord.EventTypeGuildCreate, onGuildCreate)
	registerDispatch(discord.EventTypeGuildUpdate, onGuildUpdate)
	registerDispatch(discord.EventTypeGuildDelete, onGuildDelete)

	registerDispatch(discord.EventTypeGuildMemberAdd, onGuildMemberAdd)
	registerDispatch(discord.EventTypeGuildMemberUpdate, onGuildMemberUpdate)
	registerDispatch(discord.EventTypeGuildMemberRemove, onGuildMemberRemove)

	registerDispatch(discord.EventTypeGuildRoleCreate, onGuildRoleCreate)
	registerDispatch(discord.EventTypeGuildRoleUpdate, onGuildRoleUpdate)
	registerDispatch(discord.EventTypeGuildRoleDelete, onGuildRoleDelete)

	registerDispatch(discord.EventTypeChannelCreate, onChannelCreate)
	registerDispatch(discord.EventTypeChannelUpdate, onChannelUpdate)
	registerDispatch(discord.EventTypeChannelDelete, onChannelDelete)
	registerDispatch(discord.EventTypeGuildEmojisUpdate, onGuildEmojisUpdate)

	registerDispatch(discord.EventTypeVoiceStateUpdate, onVoiceStateUpdate)
	registerDispatch(discord.EventTypeVoiceServerUpdate, onVoiceServerUpdate)

	registerDispatch(discord.EventTypeGuildMembersChunk, onGuildMembersChunk)
	registerDispatch(discord.EventTypeGuildSync, onGuildSync)
}
