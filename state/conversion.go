package state

import "github.com/WelcomerTeam/Crust/discord"

func DiscordToStateUser(v *discord.User) *User {
	return &User{
		ID:            v.ID,
		Username:      v.Username,
		Discriminator: v.Discriminator,
		Avatar:        v.Avatar,
		Bot:           v.Bot,
	}
}

func DiscordToStateRole(v *discord.Role) *Role {
	return &Role{
		ID:          v.ID,
		Name:        v.Name,
		Color:       v.Color,
		Hoist:       v.Hoist,
		Position:    v.Position,
		Permissions: v.Permissions,
		Managed:     v.Managed,
		Mentionable: v.Mentionable,
	}
}

func DiscordToStateEmoji(v *discord.Emoji) *Emoji {
	return &Emoji{
		ID:            v.ID,
		Name:          v.Name,
		Roles:         append([]discord.Snowflake(nil), v.Roles...),
		RequireColons: v.RequireColons,
		Managed:       v.Managed,
		Animated:      v.Animated,
	}
}

func DiscordToStateChannel(v *discord.Channel) *Channel {
	channel := &Channel{
		ID:            v.ID,
		ServerID:      v.GuildID,
		Type:          v.Type,
		Name:          v.Name,
		Topic:         v.Topic,
		Position:      v.Position,
		NSFW:          v.NSFW,
		Bitrate:       v.Bitrate,
		UserLimit:     v.UserLimit,
		ParentID:      v.ParentID,
		LastMessageID: v.LastMessageID,
		Members:       make(map[discord.Snowflake]*VoiceState),
	}

	channel.Permissions = overwritesToPermissions(v.PermissionOverwrites)

	return channel
}

func overwritesToPermissions(overwrites []*discord.PermissionOverwrite) ChannelPermissions {
	permissions := ChannelPermissions{
		ByUser: make(map[discord.Snowflake]Overwrite),
		ByRole: make(map[discord.Snowflake]Overwrite),
	}

	for _, overwrite := range overwrites {
		value := Overwrite{Allow: overwrite.Allow, Deny: overwrite.Deny}

		if overwrite.Type == discord.OverwriteTypeMember {
			permissions.ByUser[overwrite.ID] = value
		} else {
			permissions.ByRole[overwrite.ID] = value
		}
	}

	return permissions
}

func DiscordToStateDMChannel(v *discord.Channel) *DMChannel {
	dm := &DMChannel{
		ID:            v.ID,
		Type:          v.Type,
		LastMessageID: v.LastMessageID,
	}

	if len(v.Recipients) > 0 {
		dm.RecipientID = v.Recipients[0].ID
	}

	return dm
}

func DiscordToStateVoiceState(v *discord.VoiceState) *VoiceState {
	return &VoiceState{
		UserID:    v.UserID,
		ChannelID: v.ChannelID,
		SessionID: v.SessionID,
		Deaf:      v.Deaf,
		Mute:      v.Mute,
		SelfDeaf:  v.SelfDeaf,
		SelfMute:  v.SelfMute,
	}
}
