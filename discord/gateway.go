package discord

import (
	jsoniter "github.com/json-iterator/go"
)

// gateway.go contains the structures sent to and received from the gateway.

// GatewayOp represents the operation codes of a gateway message.
type GatewayOp uint8

const (
	GatewayOpDispatch GatewayOp = iota
	GatewayOpHeartbeat
	GatewayOpIdentify
	GatewayOpStatusUpdate
	GatewayOpVoiceStateUpdate
	_
	GatewayOpResume
	GatewayOpReconnect
	GatewayOpRequestGuildMembers
	GatewayOpInvalidSession
	GatewayOpHello
	GatewayOpHeartbeatACK
	GatewayOpGuildSync
)

// GatewayIntent represents a bitflag for intents.
type GatewayIntent uint32

const (
	IntentGuilds GatewayIntent = 1 << iota
	IntentGuildMembers
	IntentGuildBans
	IntentGuildEmojis
	IntentGuildIntegrations
	IntentGuildWebhooks
	IntentGuildInvites
	IntentGuildVoiceStates
	IntentGuildPresences
	IntentGuildMessages
	IntentGuildMessageReactions
	IntentGuildMessageTyping
	IntentDirectMessages
	IntentDirectMessageReactions
	IntentDirectMessageTyping
	IntentMessageContent
)

// Gateway close codes.
const (
	CloseUnknownError = 4000 + iota
	CloseUnknownOpCode
	CloseDecodeError
	CloseNotAuthenticated
	CloseAuthenticationFailed
	CloseAlreadyAuthenticated
	CloseSessionNotValid
	CloseInvalidSeq
	CloseRateLimited
	CloseSessionTimeout
	CloseInvalidShard
	CloseShardingRequired
	CloseInvalidAPIVersion
	CloseInvalidIntents
	CloseDisallowedIntents
)

// Transport close codes that are treated as a dropped connection.
const (
	CloseGoingAway       = 1001
	CloseAbnormalClosure = 1006
)

var closeReasons = map[int]string{
	0:                         "Gateway Error",
	CloseUnknownError:         "Unknown Error (Try reconnecting)",
	CloseUnknownOpCode:        "Unknown Opcode",
	CloseDecodeError:          "Decode Error",
	CloseNotAuthenticated:     "Not Authenticated",
	CloseAuthenticationFailed: "Authentication Failed (Incorrect token)",
	CloseAlreadyAuthenticated: "Already Authenticated (Identity sent twice)",
	CloseSessionNotValid:      "Session Not Valid",
	CloseInvalidSeq:           "Invalid Sequence Number (Resume error, re-create client)",
	CloseRateLimited:          "Rate Limited",
	CloseSessionTimeout:       "Session Timeout (Reconnect)",
	CloseInvalidShard:         "Invalid Shard (Double-check your shard configuration)",
	CloseShardingRequired:     "Sharding Required (Too many guilds on one shard)",
	CloseInvalidAPIVersion:    "Invalid API Version",
	CloseInvalidIntents:       "Invalid Intents",
	CloseDisallowedIntents:    "Disallowed Intents",
}

// CloseReason returns a human readable reason for a gateway close code.
func CloseReason(code int) string {
	if reason, ok := closeReasons[code]; ok {
		return reason
	}

	return closeReasons[0]
}

// GatewayPayload represents the base payload received from discord gateway.
type GatewayPayload struct {
	Type     string              `json:"t"`
	Data     jsoniter.RawMessage `json:"d"`
	Sequence int64               `json:"s"`
	Op       GatewayOp           `json:"op"`
}

// SentPayload represents the base payload we send to discords gateway.
type SentPayload struct {
	Data interface{} `json:"d"`
	Op   GatewayOp   `json:"op"`
}

// Hello is the first payload received after connecting.
type Hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// Gateway is the response of the gateway bootstrap endpoint.
type Gateway struct {
	URL string `json:"url"`
}

// Gateway Commands

// Identify represents the initial handshake with the gateway.
type Identify struct {
	Properties     *IdentifyProperties `json:"properties"`
	Presence       *UpdateStatus       `json:"presence,omitempty"`
	Shard          *[2]int32           `json:"shard,omitempty"`
	Token          string              `json:"token"`
	LargeThreshold int32               `json:"large_threshold"`
	Intents        int32               `json:"intents"`
	Compress       bool                `json:"compress"`
}

// IdentifyProperties are the extra properties sent in the identify packet.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// Resume resumes a dropped gateway connection.
type Resume struct {
	Shard     *[2]int32 `json:"shard,omitempty"`
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	Sequence  int64     `json:"seq"`
}

// RequestGuildMembers requests offline members for a set of guilds.
type RequestGuildMembers struct {
	GuildIDs []Snowflake `json:"guild_id"`
	Query    string      `json:"query"`
	Limit    int32       `json:"limit"`
}

// UpdateStatus updates the client's presence.
type UpdateStatus struct {
	Status     string      `json:"status"`
	Activities []*Activity `json:"activities"`
	Since      int64       `json:"since"`
	AFK        bool        `json:"afk"`
}

// UpdateVoiceState joins, moves or leaves a voice channel. A nil ChannelID leaves.
type UpdateVoiceState struct {
	GuildID   Snowflake  `json:"guild_id"`
	ChannelID *Snowflake `json:"channel_id"`
	SelfMute  bool       `json:"self_mute"`
	SelfDeaf  bool       `json:"self_deaf"`
}
