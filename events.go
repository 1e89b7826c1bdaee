package crust

import (
	"github.com/WelcomerTeam/Crust/discord"
	"github.com/WelcomerTeam/Crust/state"
	jsoniter "github.com/json-iterator/go"
)

// Event is emitted by the client. Update events carry a snapshot of the
// entity taken before the change was applied.
type Event interface {
	Type() discord.EventType
}

// EventHandler receives client events. Handlers run on the dispatch
// goroutine and must not block. Calls that wait on later events, such as
// JoinVoiceChannel, have to be made from another goroutine.
type EventHandler func(Event)

type ReadyEvent struct {
	User      *state.User
	SessionID string
}

type ResumedEvent struct{}

// DisconnectEvent is emitted when the session ends. Code is zero when a
// reconnect attempt failed.
type DisconnectEvent struct {
	Reason string
	Code   int
}

// DispatchEvent carries a dispatch with no dedicated handler.
type DispatchEvent struct {
	Name string
	Data jsoniter.RawMessage
}

type MessageCreateEvent struct {
	Message *discord.Message
}

type MessageUpdateEvent struct {
	Before *discord.Message
	After  *discord.Message
}

type MessageDeleteEvent struct {
	ChannelID discord.Snowflake
	MessageID discord.Snowflake
	Before    *discord.Message
}

type MessageDeleteBulkEvent struct {
	ChannelID  discord.Snowflake
	MessageIDs []discord.Snowflake
	Before     []*discord.Message
}

type PresenceUpdateEvent struct {
	ServerID discord.Snowflake
	Before   *state.User
	After    *state.User
	Presence *discord.Presence
}

type UserUpdateEvent struct {
	Before *state.User
	After  *state.User
}

type UserSettingsUpdateEvent struct {
	Settings discord.UserSettings
}

type GuildCreateEvent struct {
	Server *state.Server
}

type GuildUpdateEvent struct {
	Before *state.Server
	After  *state.Server
}

// GuildDeleteEvent is emitted when the client leaves a server or the
// server becomes unavailable.
type GuildDeleteEvent struct {
	Server      *state.Server
	Unavailable bool
}

type GuildMemberAddEvent struct {
	Member *state.Member
}

type GuildMemberUpdateEvent struct {
	Before *state.Member
	After  *state.Member
}

type GuildMemberRemoveEvent struct {
	ServerID discord.Snowflake
	UserID   discord.Snowflake
	Before   *state.Member
}

type GuildRoleCreateEvent struct {
	ServerID discord.Snowflake
	Role     *state.Role
}

type GuildRoleUpdateEvent struct {
	ServerID discord.Snowflake
	Before   *state.Role
	After    *state.Role
}

type GuildRoleDeleteEvent struct {
	ServerID discord.Snowflake
	Before   *state.Role
}

type ChannelCreateEvent struct {
	Channel *discord.Channel
}

type ChannelUpdateEvent struct {
	Before *state.Channel
	After  *state.Channel
}

type ChannelDeleteEvent struct {
	Channel *discord.Channel
	Before  *state.Channel
}

type GuildEmojisUpdateEvent struct {
	ServerID discord.Snowflake
	Before   []*state.Emoji
	Emojis   []*discord.Emoji
}

type VoiceStateUpdateEvent struct {
	VoiceState        *discord.VoiceState
	PreviousChannelID discord.Snowflake
}

type VoiceServerUpdateEvent struct {
	VoiceServer *discord.VoiceServerUpdate
}

type GuildMembersChunkEvent struct {
	ServerID discord.Snowflake
	Members  int
}

type GuildSyncEvent struct {
	ServerID discord.Snowflake
}

// AllUsersEvent is emitted once every server holds all of its members.
type AllUsersEvent struct{}

func (ReadyEvent) Type() discord.EventType              { return discord.EventTypeReady }
func (ResumedEvent) Type() discord.EventType            { return discord.EventTypeResumed }
func (DisconnectEvent) Type() discord.EventType         { return discord.EventTypeDisconnect }
func (DispatchEvent) Type() discord.EventType           { return discord.EventTypeUnknown }
func (MessageCreateEvent) Type() discord.EventType      { return discord.EventTypeMessageCreate }
func (MessageUpdateEvent) Type() discord.EventType      { return discord.EventTypeMessageUpdate }
func (MessageDeleteEvent) Type() discord.EventType      { return discord.EventTypeMessageDelete }
func (MessageDeleteBulkEvent) Type() discord.EventType  { return discord.EventTypeMessageDeleteBulk }
func (PresenceUpdateEvent) Type() discord.EventType     { return discord.EventTypePresenceUpdate }
func (UserUpdateEvent) Type() discord.EventType         { return discord.EventTypeUserUpdate }
func (UserSettingsUpdateEvent) Type() discord.EventType { return discord.EventTypeUserSettingsUpdate }
func (GuildCreateEvent) Type() discord.EventType        { return discord.EventTypeGuildCreate }
func (GuildUpdateEvent) Type() discord.EventType        { return discord.EventTypeGuildUpdate }
func (GuildDeleteEvent) Type() discord.EventType        { return discord.EventTypeGuildDelete }
func (GuildMemberAddEvent) Type() discord.EventType     { return discord.EventTypeGuildMemberAdd }
func (GuildMemberUpdateEvent) Type() discord.EventType  { return discord.EventTypeGuildMemberUpdate }
func (GuildMemberRemoveEvent) Type() discord.EventType  { return discord.EventTypeGuildMemberRemove }
func (GuildRoleCreateEvent) Type() discord.EventType    { return discord.EventTypeGuildRoleCreate }
func (GuildRoleUpdateEvent) Type() discord.EventType    { return discord.EventTypeGuildRoleUpdate }
func (GuildRoleDeleteEvent) Type() discord.EventType    { return discord.EventTypeGuildRoleDelete }
func (ChannelCreateEvent) Type() discord.EventType      { return discord.EventTypeChannelCreate }
func (ChannelUpdateEvent) Type() discord.EventType      { return discord.EventTypeChannelUpdate }
func (ChannelDeleteEvent) Type() discord.EventType      { return discord.EventTypeChannelDelete }
func (GuildEmojisUpdateEvent) Type() discord.EventType  { return discord.EventTypeGuildEmojisUpdate }
func (VoiceStateUpdateEvent) Type() discord.EventType   { return discord.EventTypeVoiceStateUpdate }
func (VoiceServerUpdateEvent) Type() discord.EventType  { return discord.EventTypeVoiceServerUpdate }
func (GuildMembersChunkEvent) Type() discord.EventType  { return discord.EventTypeGuildMembersChunk }
func (GuildSyncEvent) Type() discord.EventType          { return discord.EventTypeGuildSync }
func (AllUsersEvent) Type() discord.EventType           { return discord.EventTypeAllUsers }
