package discord

import jsoniter "github.com/json-iterator/go"

// Message represents a message on discord.
type Message struct {
	ID              Snowflake             `json:"id"`
	ChannelID       Snowflake             `json:"channel_id"`
	GuildID         Snowflake             `json:"guild_id,omitempty"`
	Author          *User                 `json:"author,omitempty"`
	Content         string                `json:"content"`
	Timestamp       Timestamp             `json:"timestamp"`
	EditedTimestamp Timestamp             `json:"edited_timestamp,omitempty"`
	TTS             bool                  `json:"tts"`
	MentionEveryone bool                  `json:"mention_everyone"`
	Mentions        []*User               `json:"mentions,omitempty"`
	MentionRoles    []Snowflake           `json:"mention_roles,omitempty"`
	Attachments     []jsoniter.RawMessage `json:"attachments,omitempty"`
	Embeds          []jsoniter.RawMessage `json:"embeds,omitempty"`
	Pinned          bool                  `json:"pinned"`
	Type            uint8                 `json:"type"`
}
