package voice

import (
	"sync"

	"github.com/WelcomerTeam/Crust/discord"
)

// EventType is the kind of a voice event.
type EventType uint8

const (
	EventTypeSpeaking EventType = iota
	EventTypeIncoming
	EventTypeNewMemberStream
	EventTypeDisconnect
	EventTypeDone
	EventTypeError
)

// Event is emitted by a voice session.
type Event interface {
	Type() EventType
}

// SpeakingEvent is emitted when a user starts or stops transmitting.
type SpeakingEvent struct {
	UserID   discord.Snowflake
	SSRC     uint32
	Speaking bool
}

// IncomingEvent carries a decoded frame received from an SSRC.
type IncomingEvent struct {
	UserID discord.Snowflake
	SSRC   uint32
	Data   []byte
}

// NewMemberStreamEvent is emitted the first time a speaker is seen.
type NewMemberStreamEvent struct {
	UserID discord.Snowflake
	SSRC   uint32
	Stream *MemberStream
}

// DisconnectEvent is emitted once when the session is torn down.
type DisconnectEvent struct {
	ChannelID discord.Snowflake
	Err       error
}

// DoneEvent is emitted when the encoder finishes a track.
type DoneEvent struct{}

// ErrorEvent reports an encoder failure.
type ErrorEvent struct {
	Err error
}

func (SpeakingEvent) Type() EventType        { return EventTypeSpeaking }
func (IncomingEvent) Type() EventType        { return EventTypeIncoming }
func (NewMemberStreamEvent) Type() EventType { return EventTypeNewMemberStream }
func (DisconnectEvent) Type() EventType      { return EventTypeDisconnect }
func (DoneEvent) Type() EventType            { return EventTypeDone }
func (ErrorEvent) Type() EventType           { return EventTypeError }

// Handler receives voice events.
type Handler func(Event)

type emitter struct {
	mu       sync.RWMutex
	handlers []Handler
}

func (e *emitter) AddHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = append(e.handlers, handler)
}

func (e *emitter) emit(event Event) {
	e.mu.RLock()
	handlers := e.handlers
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (e *emitter) detach() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = nil
}
