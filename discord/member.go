package discord

// GuildMember represents a member of a guild.
type GuildMember struct {
	User     *User       `json:"user,omitempty"`
	GuildID  Snowflake   `json:"guild_id,omitempty"`
	Nick     string      `json:"nick,omitempty"`
	Roles    []Snowflake `json:"roles"`
	JoinedAt Timestamp   `json:"joined_at"`
	Deaf     bool        `json:"deaf"`
	Mute     bool        `json:"mute"`
}
