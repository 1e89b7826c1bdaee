package discord_test

import (
	"testing"
	"time"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeTime(t *testing.T) {
	t.Parallel()

	id := discord.Snowflake(175928847299117063)

	assert.Equal(t, int64(1462015105796), id.Time().UnixMilli())
	assert.Equal(t, time.UnixMilli(discord.DiscordCreation), discord.Snowflake(0).Time())
}

func TestSnowflakeJSON(t *testing.T) {
	t.Parallel()

	var payload struct {
		A discord.Snowflake `json:"a"`
		B discord.Snowflake `json:"b"`
		C discord.Snowflake `json:"c"`
	}

	err := crustjson.Unmarshal([]byte(`{"a":"175928847299117063","b":12345,"c":null}`), &payload)
	require.NoError(t, err)

	assert.Equal(t, discord.Snowflake(175928847299117063), payload.A)
	assert.Equal(t, discord.Snowflake(12345), payload.B)
	assert.True(t, payload.C.IsNil())

	out, err := crustjson.Marshal(payload.A)
	require.NoError(t, err)
	assert.Equal(t, `"175928847299117063"`, string(out))
}

func TestAvatarURL(t *testing.T) {
	t.Parallel()

	user := discord.User{ID: 1234, Avatar: "abcdef"}
	assert.Equal(t, discord.EndpointCDN+"/avatars/1234/abcdef.webp", user.AvatarURL())

	user.Avatar = "a_abcdef"
	assert.Equal(t, discord.EndpointCDN+"/avatars/1234/a_abcdef.gif", user.AvatarURL())

	user.Avatar = ""
	assert.Empty(t, user.AvatarURL())
}

func TestCloseReason(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Authentication Failed (Incorrect token)", discord.CloseReason(discord.CloseAuthenticationFailed))
	assert.Equal(t, "Sharding Required (Too many guilds on one shard)", discord.CloseReason(4011))
	assert.Equal(t, "Gateway Error", discord.CloseReason(1234))
}

func TestPermissions(t *testing.T) {
	t.Parallel()

	var permissions discord.Permissions

	permissions = permissions.Set(discord.PermissionSendMessages, true)
	permissions = permissions.Set(discord.PermissionVoiceSpeak, true)

	assert.True(t, permissions.Has(discord.PermissionSendMessages))
	assert.True(t, permissions.Has(discord.PermissionVoiceSpeak))
	assert.False(t, permissions.Has(discord.PermissionAdministrator))

	permissions = permissions.Set(discord.PermissionSendMessages, false)
	assert.False(t, permissions.Has(discord.PermissionSendMessages))
	assert.Equal(t, discord.Permissions(1<<21), permissions)
}

func TestPermissionOverwriteType(t *testing.T) {
	t.Parallel()

	var overwrites []discord.PermissionOverwrite

	err := crustjson.Unmarshal([]byte(`[
		{"id":"1","type":"member","allow":"2048","deny":0},
		{"id":"2","type":0,"allow":8,"deny":"0"},
		{"id":"3","type":1,"allow":0,"deny":"1024"}
	]`), &overwrites)
	require.NoError(t, err)
	require.Len(t, overwrites, 3)

	assert.Equal(t, discord.OverwriteTypeMember, overwrites[0].Type)
	assert.True(t, overwrites[0].Allow.Has(discord.PermissionSendMessages))
	assert.Equal(t, discord.OverwriteTypeRole, overwrites[1].Type)
	assert.True(t, overwrites[1].Allow.Has(discord.PermissionAdministrator))
	assert.Equal(t, discord.OverwriteTypeMember, overwrites[2].Type)
	assert.True(t, overwrites[2].Deny.Has(discord.PermissionReadMessages))
}

func TestParseEventType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, discord.EventTypeMessageCreate, discord.ParseEventType("MESSAGE_CREATE"))
	assert.Equal(t, discord.EventTypeGuildSync, discord.ParseEventType("GUILD_SYNC"))
	assert.Equal(t, discord.EventTypeUnknown, discord.ParseEventType("TYPING_START"))
	assert.Equal(t, "VOICE_SERVER_UPDATE", discord.EventTypeVoiceServerUpdate.String())
}

func TestSpeakingFlag(t *testing.T) {
	t.Parallel()

	var speaking []discord.Speaking

	err := crustjson.Unmarshal([]byte(`[{"speaking":true,"ssrc":1},{"speaking":0,"ssrc":2},{"speaking":5,"ssrc":3}]`), &speaking)
	require.NoError(t, err)

	assert.Equal(t, discord.SpeakingFlag(1), speaking[0].Speaking)
	assert.Equal(t, discord.SpeakingFlag(0), speaking[1].Speaking)
	assert.Equal(t, discord.SpeakingFlag(5), speaking[2].Speaking)
}
