package voice

import "errors"

var (
	ErrNotReady      = errors.New("voice connection has not been initialized yet")
	ErrNoEncoder     = errors.New("you need either 'ffmpeg' or 'avconv' and they need to be added to PATH")
	ErrSessionClosed = errors.New("voice session closed")
	ErrAudioClosed   = errors.New("audio context closed")

	ErrPacketTooShort    = errors.New("packet too short")
	ErrInvalidRTPVersion = errors.New("invalid rtp version")
	ErrDecrypt           = errors.New("failed to decrypt packet")
	ErrDiscoveryReply    = errors.New("invalid ip discovery reply")
)
