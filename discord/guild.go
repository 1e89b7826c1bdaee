package discord

// Guild represents a guild on discord.
type Guild struct {
	ID          Snowflake      `json:"id"`
	Name        string         `json:"name"`
	Icon        string         `json:"icon"`
	OwnerID     Snowflake      `json:"owner_id"`
	Region      string         `json:"region,omitempty"`
	JoinedAt    Timestamp      `json:"joined_at,omitempty"`
	Large       bool           `json:"large"`
	Unavailable bool           `json:"unavailable"`
	MemberCount int32          `json:"member_count"`
	Roles       []*Role        `json:"roles,omitempty"`
	Emojis      []*Emoji       `json:"emojis,omitempty"`
	Members     []*GuildMember `json:"members,omitempty"`
	Channels    []*Channel     `json:"channels,omitempty"`
	Presences   []*Presence    `json:"presences,omitempty"`
	VoiceStates []*VoiceState  `json:"voice_states,omitempty"`
}

// UnavailableGuild represents an unavailable guild.
type UnavailableGuild struct {
	ID          Snowflake `json:"id"`
	Unavailable bool      `json:"unavailable"`
}
