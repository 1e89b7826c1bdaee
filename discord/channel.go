package discord

import (
	"bytes"
	"fmt"
	"strconv"

	gotils_strconv "github.com/savsgio/gotils/strconv"
)

// channel.go represents all structures for a discord channel.

// ChannelType represents a channel's type.
type ChannelType uint16

const (
	ChannelTypeGuildText ChannelType = iota
	ChannelTypeDM
	ChannelTypeGuildVoice
	ChannelTypeGroupDM
	ChannelTypeGuildCategory
	ChannelTypeGuildNews
)

// IsPrivate reports whether the channel lives outside of a server.
func (t ChannelType) IsPrivate() bool {
	return t == ChannelTypeDM || t == ChannelTypeGroupDM
}

// Channel represents a discord channel.
type Channel struct {
	ID                   Snowflake              `json:"id"`
	Type                 ChannelType            `json:"type"`
	GuildID              Snowflake              `json:"guild_id,omitempty"`
	Position             int32                  `json:"position,omitempty"`
	PermissionOverwrites []*PermissionOverwrite `json:"permission_overwrites,omitempty"`
	Name                 string                 `json:"name,omitempty"`
	Topic                string                 `json:"topic,omitempty"`
	NSFW                 bool                   `json:"nsfw"`
	LastMessageID        Snowflake              `json:"last_message_id,omitempty"`
	Bitrate              int32                  `json:"bitrate,omitempty"`
	UserLimit            int32                  `json:"user_limit,omitempty"`
	Recipients           []*User                `json:"recipients,omitempty"`
	ParentID             Snowflake              `json:"parent_id,omitempty"`
}

// OverwriteType is the target kind of a permission overwrite.
type OverwriteType uint8

const (
	OverwriteTypeRole OverwriteType = iota
	OverwriteTypeMember
)

// UnmarshalJSON accepts the numeric form as well as the older "role" and
// "member" strings.
func (t *OverwriteType) UnmarshalJSON(b []byte) error {
	switch {
	case bytes.Equal(b, null):
		*t = OverwriteTypeRole
	case bytes.Equal(b, []byte(`"role"`)):
		*t = OverwriteTypeRole
	case bytes.Equal(b, []byte(`"member"`)):
		*t = OverwriteTypeMember
	default:
		if len(b) >= 2 && b[0] == '"' {
			b = b[1 : len(b)-1]
		}

		i, err := strconv.ParseUint(gotils_strconv.B2S(b), 10, 8)
		if err != nil {
			return fmt.Errorf("invalid overwrite type %q: %w", b, err)
		}

		*t = OverwriteType(i)
	}

	return nil
}

// PermissionOverwrite represents a permission overwrite on a channel.
type PermissionOverwrite struct {
	ID    Snowflake     `json:"id"`
	Type  OverwriteType `json:"type"`
	Allow Permissions   `json:"allow"`
	Deny  Permissions   `json:"deny"`
}
