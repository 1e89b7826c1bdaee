package crust

import (
	"testing"
	"time"

	"github.com/WelcomerTeam/Crust/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dispatchClient returns a client holding one server with a text and a
// voice channel.
func dispatchClient(t *testing.T) (*Client, *gatewayConn, *eventRecorder) {
	t.Helper()

	client, _, _ := newTestClient(t, "token")
	attachConn(client)

	client.State.LoadReady(&discord.Ready{
		User: discord.User{ID: 1, Username: "crust"},
		Guilds: []*discord.Guild{{
			ID:          10,
			Name:        "server",
			MemberCount: 2,
			Channels: []*discord.Channel{
				{ID: 100, Type: discord.ChannelTypeGuildText, Name: "general"},
				{ID: 101, Type: discord.ChannelTypeGuildVoice, Name: "voice"},
			},
			Members: []*discord.GuildMember{
				{User: &discord.User{ID: 1, Username: "crust"}},
			},
		}},
	})

	return client, client.currentConn(), newEventRecorder(client)
}

func TestDispatchMessageLifecycle(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "MESSAGE_CREATE", discord.Message{
		ID:        500,
		ChannelID: 100,
		Content:   "hello",
	})))

	created := events.wait(t, discord.EventTypeMessageCreate).(MessageCreateEvent)
	assert.Equal(t, "hello", created.Message.Content)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "MESSAGE_UPDATE", map[string]interface{}{
		"id":         "500",
		"channel_id": "100",
		"content":    "edited",
	})))

	updated := events.wait(t, discord.EventTypeMessageUpdate).(MessageUpdateEvent)
	require.NotNil(t, updated.Before)
	assert.Equal(t, "hello", updated.Before.Content)
	assert.Equal(t, "edited", updated.After.Content)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "MESSAGE_DELETE", discord.MessageDelete{
		ID:        500,
		ChannelID: 100,
	})))

	deleted := events.wait(t, discord.EventTypeMessageDelete).(MessageDeleteEvent)
	require.NotNil(t, deleted.Before)
	assert.Equal(t, "edited", deleted.Before.Content)

	_, ok := client.Messages.Get(100, 500)
	assert.False(t, ok)
}

func TestDispatchMessageDeleteBulk(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	client.Messages.Put(&discord.Message{ID: 1, ChannelID: 100})
	client.Messages.Put(&discord.Message{ID: 2, ChannelID: 100})

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "MESSAGE_DELETE_BULK", discord.MessageDeleteBulk{
		IDs:       []discord.Snowflake{1, 2, 3},
		ChannelID: 100,
	})))

	bulk := events.wait(t, discord.EventTypeMessageDeleteBulk).(MessageDeleteBulkEvent)
	assert.Len(t, bulk.MessageIDs, 3)
	assert.Len(t, bulk.Before, 2)
	assert.Equal(t, 0, client.Messages.Len())
}

func TestDispatchUnknownEvent(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "TYPING_START", map[string]string{"channel_id": "100"})))

	event := events.wait(t, discord.EventTypeUnknown).(DispatchEvent)
	assert.Equal(t, "TYPING_START", event.Name)
	assert.JSONEq(t, `{"channel_id":"100"}`, string(event.Data))
}

func TestDispatchChannelUpdateCreatesUnknownChannel(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "CHANNEL_UPDATE", discord.Channel{
		ID:      102,
		GuildID: 10,
		Type:    discord.ChannelTypeGuildText,
		Name:    "new",
	})))

	update := events.wait(t, discord.EventTypeChannelUpdate).(ChannelUpdateEvent)
	assert.Nil(t, update.Before)
	require.NotNil(t, update.After)
	assert.Equal(t, "new", update.After.Name)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "CHANNEL_UPDATE", discord.Channel{
		ID:      102,
		GuildID: 10,
		Type:    discord.ChannelTypeGuildText,
		Name:    "renamed",
	})))

	update = events.wait(t, discord.EventTypeChannelUpdate).(ChannelUpdateEvent)
	require.NotNil(t, update.Before)
	assert.Equal(t, "new", update.Before.Name)
	assert.Equal(t, "renamed", update.After.Name)
}

func TestDispatchMembersAndRoles(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "GUILD_ROLE_CREATE", discord.GuildRole{
		GuildID: 10,
		Role:    &discord.Role{ID: 20, Name: "mods", Color: 0xff0000, Position: 1},
	})))

	role := events.wait(t, discord.EventTypeGuildRoleCreate).(GuildRoleCreateEvent)
	assert.Equal(t, "mods", role.Role.Name)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "GUILD_MEMBER_ADD", discord.GuildMember{
		GuildID: 10,
		User:    &discord.User{ID: 2, Username: "friend"},
		Roles:   []discord.Snowflake{20},
	})))

	added := events.wait(t, discord.EventTypeGuildMemberAdd).(GuildMemberAddEvent)
	assert.Equal(t, discord.Snowflake(2), added.Member.ID)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "GUILD_MEMBER_REMOVE", discord.GuildMemberRemove{
		GuildID: 10,
		User:    &discord.User{ID: 2},
	})))

	removed := events.wait(t, discord.EventTypeGuildMemberRemove).(GuildMemberRemoveEvent)
	require.NotNil(t, removed.Before)
	assert.Equal(t, discord.Snowflake(2), removed.UserID)

	_, ok := client.State.Member(10, 2)
	assert.False(t, ok)
}

func TestDispatchGuildDelete(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "GUILD_DELETE", discord.UnavailableGuild{ID: 10})))

	deleted := events.wait(t, discord.EventTypeGuildDelete).(GuildDeleteEvent)
	assert.Equal(t, "server", deleted.Server.Name)
	assert.False(t, deleted.Unavailable)

	_, ok := client.State.Server(10)
	assert.False(t, ok)

	_, ok = client.State.Channel(100)
	assert.False(t, ok)
}

func TestDispatchPresenceWithoutServerIgnored(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "PRESENCE_UPDATE", discord.Presence{
		User:   &discord.User{ID: 1},
		Status: discord.StatusIdle,
	})))

	events.none(t, discord.EventTypePresenceUpdate, 20*time.Millisecond)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "PRESENCE_UPDATE", discord.Presence{
		User:    &discord.User{ID: 1},
		GuildID: 10,
		Status:  discord.StatusIdle,
		Game:    &discord.Activity{Name: "chess"},
	})))

	presence := events.wait(t, discord.EventTypePresenceUpdate).(PresenceUpdateEvent)
	assert.Equal(t, discord.Snowflake(10), presence.ServerID)
	assert.Equal(t, "chess", presence.After.Game.Name)
}

func TestDispatchSelfVoiceStateCreatesSession(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "VOICE_STATE_UPDATE", discord.VoiceState{
		GuildID:   10,
		ChannelID: 101,
		UserID:    1,
		SessionID: "voice-session",
	})))

	events.wait(t, discord.EventTypeVoiceStateUpdate)

	session, ok := client.VoiceSession(10)
	require.True(t, ok)
	assert.Equal(t, discord.Snowflake(101), session.ChannelID())

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "VOICE_STATE_UPDATE", discord.VoiceState{
		GuildID: 10,
		UserID:  1,
	})))

	update := events.wait(t, discord.EventTypeVoiceStateUpdate).(VoiceStateUpdateEvent)
	assert.Equal(t, discord.Snowflake(101), update.PreviousChannelID)

	<-session.Done()

	_, ok = client.VoiceSession(10)
	assert.False(t, ok)
}

func TestUserSettingsMerge(t *testing.T) {
	t.Parallel()

	client, gc, events := dispatchClient(t)

	require.NoError(t, client.onDispatch(gc, payloadFor(t, "USER_SETTINGS_UPDATE", discord.UserSettings{"theme": "light"})))

	settings := events.wait(t, discord.EventTypeUserSettingsUpdate).(UserSettingsUpdateEvent)
	assert.Equal(t, "light", settings.Settings["theme"])
}

func TestDispatchMalformedPayload(t *testing.T) {
	t.Parallel()

	client, gc, _ := dispatchClient(t)

	err := client.onDispatch(gc, discord.GatewayPayload{Op: discord.GatewayOpDispatch, Type: "GUILD_CREATE", Data: []byte(`{`)})
	assert.Error(t, err)

	_, ok := client.State.Server(10)
	assert.True(t, ok)
}
