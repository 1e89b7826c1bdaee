package crust

import (
	"errors"

	"github.com/WelcomerTeam/Crust/voice"
)

var (
	ErrMissingToken     = errors.New("client missing token")
	ErrAlreadyConnected = errors.New("client is already connected")
	ErrNotConnected     = errors.New("client is not connected")

	ErrInvalidHeartbeatInterval = errors.New("invalid heartbeat interval")
	ErrNoHeartbeat              = errors.New("no heartbeat received")

	ErrNoGatewayHandler = errors.New("no gateway handler found")

	ErrNoUsersToCollect = errors.New("there are no users to be collected")
	ErrNotBot           = errors.New("only bot accounts have an invite url")

	ErrServerNotFound            = errors.New("cannot find the server related to the channel provided")
	ErrNotVoiceChannel           = errors.New("channel is not a voice channel")
	ErrVoiceChannelAlreadyActive = errors.New("already connected to this voice channel")
	ErrNotJoined                 = errors.New("not connected to a voice channel in this server")

	ErrVoiceNotReady = voice.ErrNotReady
	ErrNoEncoder     = voice.ErrNoEncoder
)
