package voice

import (
	"io"
	"sync"

	"github.com/WelcomerTeam/Crust/discord"
)

// DefaultMaxStreamSize bounds the buffered audio of a member stream.
const DefaultMaxStreamSize = 64 << 10

// MemberStream buffers the received audio of a single speaker. When the
// buffer is full the oldest data is dropped. Read blocks until data arrives
// or the stream is closed.
type MemberStream struct {
	SSRC   uint32
	UserID discord.Snowflake

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	max     int
	dropped int
	closed  bool
}

func NewMemberStream(ssrc uint32, userID discord.Snowflake, maxSize int) *MemberStream {
	if maxSize <= 0 {
		maxSize = DefaultMaxStreamSize
	}

	stream := &MemberStream{
		SSRC:   ssrc,
		UserID: userID,
		max:    maxSize,
	}

	stream.cond = sync.NewCond(&stream.mu)

	return stream
}

// Push appends data, discarding the oldest buffered bytes to make room.
func (s *MemberStream) Push(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if len(data) > s.max {
		s.dropped += len(data) - s.max
		data = data[len(data)-s.max:]
	}

	if overflow := len(s.buf) + len(data) - s.max; overflow > 0 {
		s.dropped += overflow
		s.buf = s.buf[overflow:]
	}

	s.buf = append(s.buf, data...)

	s.cond.Broadcast()
}

func (s *MemberStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}

	if len(s.buf) == 0 {
		return 0, io.EOF
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]

	return n, nil
}

// Len returns the number of buffered bytes.
func (s *MemberStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.buf)
}

// Dropped returns how many bytes were discarded because the buffer was full.
func (s *MemberStream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dropped
}

// Close ends the stream. Buffered data can still be read.
func (s *MemberStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cond.Broadcast()

	return nil
}
