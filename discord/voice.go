package discord

import (
	"bytes"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	gotils_strconv "github.com/savsgio/gotils/strconv"
)

// VoiceState is a user's connection state within a voice channel.
// A zero ChannelID means the user is not connected.
type VoiceState struct {
	GuildID   Snowflake    `json:"guild_id,omitempty"`
	ChannelID Snowflake    `json:"channel_id"`
	UserID    Snowflake    `json:"user_id"`
	Member    *GuildMember `json:"member,omitempty"`
	SessionID string       `json:"session_id"`
	Deaf      bool         `json:"deaf"`
	Mute      bool         `json:"mute"`
	SelfDeaf  bool         `json:"self_deaf"`
	SelfMute  bool         `json:"self_mute"`
	Suppress  bool         `json:"suppress"`
}

// VoiceServerUpdate carries the voice server a session should connect to.
type VoiceServerUpdate struct {
	Token    string    `json:"token"`
	GuildID  Snowflake `json:"guild_id"`
	Endpoint string    `json:"endpoint"`
}

// VoiceOp represents the operation codes of the voice gateway.
type VoiceOp uint8

const (
	VoiceOpIdentify VoiceOp = iota
	VoiceOpSelectProtocol
	VoiceOpReady
	VoiceOpHeartbeat
	VoiceOpSessionDescription
	VoiceOpSpeaking
	VoiceOpHeartbeatACK
	VoiceOpResume
	VoiceOpHello
	VoiceOpResumed
)

// VoicePayload represents a payload on the voice gateway.
type VoicePayload struct {
	Data jsoniter.RawMessage `json:"d"`
	Op   VoiceOp             `json:"op"`
}

// VoiceSentPayload represents a payload sent on the voice gateway.
type VoiceSentPayload struct {
	Data interface{} `json:"d"`
	Op   VoiceOp     `json:"op"`
}

// VoiceIdentify is the first payload sent on the voice gateway.
type VoiceIdentify struct {
	ServerID  Snowflake `json:"server_id"`
	UserID    Snowflake `json:"user_id"`
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
}

// VoiceReady describes the UDP endpoint assigned to the session.
type VoiceReady struct {
	SSRC              uint32   `json:"ssrc"`
	IP                string   `json:"ip"`
	Port              uint16   `json:"port"`
	Modes             []string `json:"modes"`
	HeartbeatInterval float64  `json:"heartbeat_interval,omitempty"`
}

// VoiceHello carries the voice heartbeat interval.
type VoiceHello struct {
	HeartbeatInterval float64 `json:"heartbeat_interval"`
}

type SelectProtocolData struct {
	Address string `json:"address"`
	Port    uint16 `json:"port"`
	Mode    string `json:"mode"`
}

type SelectProtocol struct {
	Protocol string             `json:"protocol"`
	Data     SelectProtocolData `json:"data"`
}

// SessionDescription carries the negotiated encryption mode and key.
type SessionDescription struct {
	Mode      string   `json:"mode"`
	SecretKey [32]byte `json:"secret_key"`
}

// SpeakingFlag accepts both the boolean and the bitfield form.
type SpeakingFlag uint8

func (f *SpeakingFlag) UnmarshalJSON(b []byte) error {
	switch {
	case bytes.Equal(b, []byte("true")):
		*f = 1
	case bytes.Equal(b, []byte("false")), bytes.Equal(b, null):
		*f = 0
	default:
		i, err := strconv.ParseUint(gotils_strconv.B2S(b), 10, 8)
		if err != nil {
			return err
		}

		*f = SpeakingFlag(i)
	}

	return nil
}

// Speaking announces that an SSRC started or stopped transmitting.
type Speaking struct {
	Speaking SpeakingFlag `json:"speaking"`
	Delay    int          `json:"delay"`
	SSRC     uint32       `json:"ssrc"`
	UserID   Snowflake    `json:"user_id,omitempty"`
}
