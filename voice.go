package crust

import (
	"context"

	"github.com/WelcomerTeam/Crust/discord"
	"github.com/WelcomerTeam/Crust/voice"
)

// JoinVoiceChannel joins a voice channel and blocks until the voice
// session is ready or ctx expires. On expiry the channel is left again.
//
// Readiness depends on VOICE_STATE_UPDATE and VOICE_SERVER_UPDATE, which
// are handled on the dispatch goroutine. Calling JoinVoiceChannel from an
// EventHandler directly therefore always waits until ctx expires; start a
// goroutine instead.
func (c *Client) JoinVoiceChannel(ctx context.Context, channelID discord.Snowflake) (*voice.Session, error) {
	channel, ok := c.State.Channel(channelID)
	if !ok || channel.ServerID == 0 {
		return nil, ErrServerNotFound
	}

	if channel.Type != discord.ChannelTypeGuildVoice {
		return nil, ErrNotVoiceChannel
	}

	existing, ok := c.voiceSessions.Load(channel.ServerID)
	if ok && existing.ChannelID() == channelID {
		return nil, ErrVoiceChannelAlreadyActive
	}

	self, ok := c.State.Self()
	if !ok {
		return nil, ErrNotConnected
	}

	if existing != nil {
		_ = existing.Close()
	}

	session := c.newVoiceSession(channel.ServerID, channelID, self.ID)

	err := c.SendEvent(ctx, discord.GatewayOpVoiceStateUpdate, discord.UpdateVoiceState{
		GuildID:   channel.ServerID,
		ChannelID: &channelID,
	})
	if err != nil {
		_ = session.Close()

		return nil, err
	}

	err = session.Wait(ctx)
	if err != nil {
		c.Logger.Warn().Err(err).Str("channel_id", channelID.String()).Msg("Voice session did not become ready")

		_ = c.LeaveVoiceChannel(context.Background(), channelID)

		return nil, err
	}

	return session, nil
}

// LeaveVoiceChannel leaves a voice channel. Leaving a channel the client
// is not in does nothing.
func (c *Client) LeaveVoiceChannel(ctx context.Context, channelID discord.Snowflake) error {
	channel, ok := c.State.Channel(channelID)
	if !ok || channel.ServerID == 0 {
		return ErrServerNotFound
	}

	session, ok := c.voiceSessions.Load(channel.ServerID)
	if !ok || session.ChannelID() != channelID {
		return nil
	}

	_ = session.Close()

	return c.SendEvent(ctx, discord.GatewayOpVoiceStateUpdate, discord.UpdateVoiceState{
		GuildID: channel.ServerID,
	})
}

// VoiceSession returns the voice session of a server.
func (c *Client) VoiceSession(serverID discord.Snowflake) (*voice.Session, bool) {
	return c.voiceSessions.Load(serverID)
}

func (c *Client) VoiceSessionCount() int {
	return c.voiceSessions.Count()
}

// GetAudioContext returns the audio context of the voice channel.
func (c *Client) GetAudioContext(channelID discord.Snowflake) (*voice.AudioContext, error) {
	channel, ok := c.State.Channel(channelID)
	if !ok || channel.ServerID == 0 {
		return nil, ErrServerNotFound
	}

	session, ok := c.voiceSessions.Load(channel.ServerID)
	if !ok || session.ChannelID() != channelID {
		return nil, ErrNotJoined
	}

	return session.AudioContext()
}

func (c *Client) newVoiceSession(serverID, channelID, userID discord.Snowflake) *voice.Session {
	options := c.options.Voice

	session := voice.NewSession(voice.Config{
		ServerID:      serverID,
		ChannelID:     channelID,
		UserID:        userID,
		Dialer:        options.Dialer,
		ListenPacket:  options.ListenPacket,
		Logger:        c.Logger,
		MaxStreamSize: options.MaxStreamSize,
		Decoder:       options.Decoder,
		Audio:         options.Audio,
		OnClose:       c.onVoiceClose,
	})

	c.voiceSessions.Store(serverID, session)

	UpdateVoiceSessions(c.voiceSessions.Count())

	return session
}

// onSelfVoiceState follows our own voice state. Leaving tears the session
// down and a move to another channel replaces it.
func (c *Client) onSelfVoiceState(voiceState *discord.VoiceState) {
	session, ok := c.voiceSessions.Load(voiceState.GuildID)

	if voiceState.ChannelID == 0 {
		if ok {
			_ = session.Close()
		}

		return
	}

	if !ok || session.ChannelID() != voiceState.ChannelID {
		if ok {
			_ = session.Close()
		}

		session = c.newVoiceSession(voiceState.GuildID, voiceState.ChannelID, voiceState.UserID)
	}

	session.UpdateState(voiceState.ChannelID, voiceState.SessionID)
}

func (c *Client) onVoiceClose(session *voice.Session) {
	if current, ok := c.voiceSessions.Load(session.ServerID()); ok && current == session {
		c.voiceSessions.Delete(session.ServerID())
	}

	UpdateVoiceSessions(c.voiceSessions.Count())
}

func (c *Client) closeVoiceSessions() {
	sessions := make([]*voice.Session, 0, c.voiceSessions.Count())

	c.voiceSessions.Range(func(_ discord.Snowflake, session *voice.Session) bool {
		sessions = append(sessions, session)

		return false
	})

	for _, session := range sessions {
		_ = session.Close()
	}
}
