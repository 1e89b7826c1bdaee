package crust

import (
	"context"
	"testing"
	"time"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinVoiceChannelErrors(t *testing.T) {
	t.Parallel()

	client, _, _ := dispatchClient(t)

	_, err := client.JoinVoiceChannel(context.Background(), 999)
	assert.ErrorIs(t, err, ErrServerNotFound)

	_, err = client.JoinVoiceChannel(context.Background(), 100)
	assert.ErrorIs(t, err, ErrNotVoiceChannel)

	client.newVoiceSession(10, 101, 1)

	_, err = client.JoinVoiceChannel(context.Background(), 101)
	assert.ErrorIs(t, err, ErrVoiceChannelAlreadyActive)
}

func TestJoinVoiceChannelTimeoutLeaves(t *testing.T) {
	t.Parallel()

	client, gc, _ := dispatchClient(t)
	conn := gc.conn.(*fakeConn)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.JoinVoiceChannel(ctx, 101)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var join discord.UpdateVoiceState

	payload := conn.next(t)
	require.Equal(t, discord.GatewayOpVoiceStateUpdate, payload.Op)
	require.NoError(t, crustjson.Unmarshal(payload.Data, &join))
	require.NotNil(t, join.ChannelID)
	assert.Equal(t, discord.Snowflake(101), *join.ChannelID)

	payload = conn.next(t)
	require.Equal(t, discord.GatewayOpVoiceStateUpdate, payload.Op)
	assert.JSONEq(t, `{"guild_id":"10","channel_id":null,"self_mute":false,"self_deaf":false}`, string(payload.Data))

	_, ok := client.VoiceSession(10)
	assert.False(t, ok)
}

func TestLeaveVoiceChannel(t *testing.T) {
	t.Parallel()

	client, gc, _ := dispatchClient(t)
	conn := gc.conn.(*fakeConn)

	require.NoError(t, client.LeaveVoiceChannel(context.Background(), 101))

	select {
	case payload := <-conn.written:
		t.Fatalf("unexpected payload for a channel that was not joined: %+v", payload)
	default:
	}

	session := client.newVoiceSession(10, 101, 1)

	require.NoError(t, client.LeaveVoiceChannel(context.Background(), 101))

	<-session.Done()

	assert.Equal(t, discord.GatewayOpVoiceStateUpdate, conn.next(t).Op)

	_, ok := client.VoiceSession(10)
	assert.False(t, ok)
}

func TestGetAudioContext(t *testing.T) {
	t.Parallel()

	client, _, _ := dispatchClient(t)

	_, err := client.GetAudioContext(101)
	assert.ErrorIs(t, err, ErrNotJoined)

	client.newVoiceSession(10, 101, 1)

	_, err = client.GetAudioContext(101)
	assert.ErrorIs(t, err, ErrVoiceNotReady)
}

func TestJoinVoiceChannelFromHandlerGoroutine(t *testing.T) {
	t.Parallel()

	client, dialer, _ := newTestClient(t, "token")

	events := newEventRecorder(client)
	conn := connectClient(t, client, dialer)
	conn.next(t)

	conn.dispatch(t, "READY", 1, readyPayload(false, &discord.Guild{
		ID:   10,
		Name: "server",
		Channels: []*discord.Channel{
			{ID: 101, Type: discord.ChannelTypeGuildVoice, Name: "voice"},
		},
		Members: []*discord.GuildMember{
			{User: &discord.User{ID: 1, Username: "crust"}},
		},
	}))
	events.wait(t, discord.EventTypeReady)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	joined := make(chan error, 1)

	client.AddHandler(func(event Event) {
		if created, ok := event.(MessageCreateEvent); ok && created.Message.Content == "join" {
			go func() {
				_, err := client.JoinVoiceChannel(ctx, 101)
				joined <- err
			}()
		}
	})

	conn.dispatch(t, "MESSAGE_CREATE", 2, discord.Message{ID: 500, ChannelID: 101, Content: "join"})

	assert.Equal(t, discord.GatewayOpVoiceStateUpdate, conn.next(t).Op)

	// Dispatch keeps running while the join waits.
	conn.dispatch(t, "VOICE_STATE_UPDATE", 3, discord.VoiceState{
		GuildID:   10,
		ChannelID: 101,
		UserID:    1,
		SessionID: "voice-session",
	})
	events.wait(t, discord.EventTypeVoiceStateUpdate)

	select {
	case err := <-joined:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(testTimeout):
		t.Fatal("join did not return")
	}
}
