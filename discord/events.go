package discord

// EventType is the kind of a dispatch event.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeReady
	EventTypeResumed
	EventTypeMessageCreate
	EventTypeMessageUpdate
	EventTypeMessageDelete
	EventTypeMessageDeleteBulk
	EventTypePresenceUpdate
	EventTypeUserUpdate
	EventTypeUserSettingsUpdate
	EventTypeGuildCreate
	EventTypeGuildUpdate
	EventTypeGuildDelete
	EventTypeGuildMemberAdd
	EventTypeGuildMemberUpdate
	EventTypeGuildMemberRemove
	EventTypeGuildRoleCreate
	EventTypeGuildRoleUpdate
	EventTypeGuildRoleDelete
	EventTypeChannelCreate
	EventTypeChannelUpdate
	EventTypeChannelDelete
	EventTypeGuildEmojisUpdate
	EventTypeVoiceStateUpdate
	EventTypeVoiceServerUpdate
	EventTypeGuildMembersChunk
	EventTypeGuildSync

	// Events produced locally rather than received from the gateway.
	EventTypeDisconnect
	EventTypeAllUsers
)

var eventTypeNames = map[EventType]string{
	EventTypeUnknown:            "UNKNOWN",
	EventTypeReady:              "READY",
	EventTypeResumed:            "RESUMED",
	EventTypeMessageCreate:      "MESSAGE_CREATE",
	EventTypeMessageUpdate:      "MESSAGE_UPDATE",
	EventTypeMessageDelete:      "MESSAGE_DELETE",
	EventTypeMessageDeleteBulk:  "MESSAGE_DELETE_BULK",
	EventTypePresenceUpdate:     "PRESENCE_UPDATE",
	EventTypeUserUpdate:         "USER_UPDATE",
	EventTypeUserSettingsUpdate: "USER_SETTINGS_UPDATE",
	EventTypeGuildCreate:        "GUILD_CREATE",
	EventTypeGuildUpdate:        "GUILD_UPDATE",
	EventTypeGuildDelete:        "GUILD_DELETE",
	EventTypeGuildMemberAdd:     "GUILD_MEMBER_ADD",
	EventTypeGuildMemberUpdate:  "GUILD_MEMBER_UPDATE",
	EventTypeGuildMemberRemove:  "GUILD_MEMBER_REMOVE",
	EventTypeGuildRoleCreate:    "GUILD_ROLE_CREATE",
	EventTypeGuildRoleUpdate:    "GUILD_ROLE_UPDATE",
	EventTypeGuildRoleDelete:    "GUILD_ROLE_DELETE",
	EventTypeChannelCreate:      "CHANNEL_CREATE",
	EventTypeChannelUpdate:      "CHANNEL_UPDATE",
	EventTypeChannelDelete:      "CHANNEL_DELETE",
	EventTypeGuildEmojisUpdate:  "GUILD_EMOJIS_UPDATE",
	EventTypeVoiceStateUpdate:   "VOICE_STATE_UPDATE",
	EventTypeVoiceServerUpdate:  "VOICE_SERVER_UPDATE",
	EventTypeGuildMembersChunk:  "GUILD_MEMBERS_CHUNK",
	EventTypeGuildSync:          "GUILD_SYNC",
	EventTypeDisconnect:         "DISCONNECT",
	EventTypeAllUsers:           "ALL_USERS",
}

var eventTypesByName = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypeNames))

	for eventType, name := range eventTypeNames {
		m[name] = eventType
	}

	return m
}()

// ParseEventType maps a dispatch name to its EventType. Unknown names map
// to EventTypeUnknown.
func ParseEventType(name string) EventType {
	return eventTypesByName[name]
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}

	return eventTypeNames[EventTypeUnknown]
}

// Ready is the first dispatch received after identifying.
type Ready struct {
	Version          int32        `json:"v"`
	User             User         `json:"user"`
	Guilds           []*Guild     `json:"guilds"`
	PrivateChannels  []*Channel   `json:"private_channels,omitempty"`
	SessionID        string       `json:"session_id"`
	ResumeGatewayURL string       `json:"resume_gateway_url,omitempty"`
	Shard            []int32      `json:"shard,omitempty"`
	UserSettings     UserSettings `json:"user_settings,omitempty"`
	Application      *Application `json:"application,omitempty"`
	Presences        []*Presence  `json:"presences,omitempty"`
}

// UserSettings is the free-form settings object of user accounts.
type UserSettings map[string]interface{}

// MessageDelete is received when a message is deleted.
type MessageDelete struct {
	ID        Snowflake `json:"id"`
	ChannelID Snowflake `json:"channel_id"`
	GuildID   Snowflake `json:"guild_id,omitempty"`
}

// MessageDeleteBulk is received when several messages are deleted at once.
type MessageDeleteBulk struct {
	IDs       []Snowflake `json:"ids"`
	ChannelID Snowflake   `json:"channel_id"`
	GuildID   Snowflake   `json:"guild_id,omitempty"`
}

// GuildMemberUpdate carries the fields of a changed member.
type GuildMemberUpdate struct {
	GuildID Snowflake   `json:"guild_id"`
	Roles   []Snowflake `json:"roles"`
	User    *User       `json:"user"`
	Nick    string      `json:"nick,omitempty"`
}

// GuildMemberRemove is received when a member leaves a guild.
type GuildMemberRemove struct {
	GuildID Snowflake `json:"guild_id"`
	User    *User     `json:"user"`
}

// GuildRoleCreate and GuildRoleUpdate share this payload.
type GuildRole struct {
	GuildID Snowflake `json:"guild_id"`
	Role    *Role     `json:"role"`
}

// GuildRoleDelete is received when a role is deleted.
type GuildRoleDelete struct {
	GuildID Snowflake `json:"guild_id"`
	RoleID  Snowflake `json:"role_id"`
}

// GuildEmojisUpdate replaces the emojis of a guild.
type GuildEmojisUpdate struct {
	GuildID Snowflake `json:"guild_id"`
	Emojis  []*Emoji  `json:"emojis"`
}

// GuildMembersChunk answers a request for offline members.
type GuildMembersChunk struct {
	GuildID    Snowflake      `json:"guild_id"`
	Members    []*GuildMember `json:"members"`
	Presences  []*Presence    `json:"presences,omitempty"`
	ChunkIndex int32          `json:"chunk_index"`
	ChunkCount int32          `json:"chunk_count"`
}

// GuildSync is received by user accounts after requesting a guild sync.
type GuildSync struct {
	ID        Snowflake      `json:"id"`
	Large     bool           `json:"large"`
	Members   []*GuildMember `json:"members"`
	Presences []*Presence    `json:"presences"`
}
