package voice

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
	"github.com/rs/zerolog"
	gotils_strconv "github.com/savsgio/gotils/strconv"
	"nhooyr.io/websocket"
)

const (
	EncryptionMode = "xsalsa20_poly1305"

	KeepaliveInterval = 5 * time.Second

	discoveryTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	udpBufferSize    = 4096
)

// Config describes the voice channel a session connects to.
type Config struct {
	ServerID  discord.Snowflake
	ChannelID discord.Snowflake
	UserID    discord.Snowflake

	Dialer       Dialer
	ListenPacket func(network, address string) (net.PacketConn, error)

	Logger zerolog.Logger

	MaxStreamSize int
	Decoder       DecoderFactory
	Audio         AudioConfig

	// OnClose is called once the session has been torn down.
	OnClose func(*Session)
}

// Session is a connection to a single voice channel. It is created when
// joining and becomes usable once the voice server has handed out a
// secret key.
type Session struct {
	emitter

	Logger zerolog.Logger

	config Config

	ctx    context.Context
	cancel context.CancelFunc

	ready     chan struct{}
	readyOnce sync.Once

	done      chan struct{}
	closeOnce sync.Once

	mu                sync.Mutex
	channelID         discord.Snowflake
	sessionID         string
	token             string
	endpoint          string
	connectedEndpoint string
	connecting        bool
	closed            bool
	conn              Conn
	heartbeatConn     Conn
	udp               net.PacketConn
	remote            net.Addr
	ssrc              uint32
	mode              string
	secretKey         [32]byte
	audio             *AudioContext

	sendMu    sync.Mutex
	sequence  uint16
	timestamp uint32

	streamsMu    sync.Mutex
	users        map[uint32]discord.Snowflake
	streams      map[uint32]*MemberStream
	decoders     map[uint32]Decoder
	mixed        *MemberStream
	mixedDecoder Decoder
}

func NewSession(config Config) *Session {
	if config.Dialer == nil {
		config.Dialer = WebsocketDialer{}
	}

	if config.ListenPacket == nil {
		config.ListenPacket = net.ListenPacket
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		Logger: config.Logger.With().
			Str("server_id", config.ServerID.String()).
			Str("channel_id", config.ChannelID.String()).
			Logger(),

		config: config,

		ctx:    ctx,
		cancel: cancel,

		ready: make(chan struct{}),
		done:  make(chan struct{}),

		channelID: config.ChannelID,

		users:        make(map[uint32]discord.Snowflake),
		streams:      make(map[uint32]*MemberStream),
		decoders:     make(map[uint32]Decoder),
		mixed:        NewMemberStream(0, 0, config.MaxStreamSize),
		mixedDecoder: newDecoder(config.Decoder, config.Audio.channels()),
	}
}

func (s *Session) ServerID() discord.Snowflake {
	return s.config.ServerID
}

func (s *Session) ChannelID() discord.Snowflake {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.channelID
}

// UpdateState records the channel and session id from a voice state
// update for the current user.
func (s *Session) UpdateState(channelID discord.Snowflake, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !channelID.IsNil() {
		s.channelID = channelID
	}

	s.sessionID = sessionID

	s.maybeConnectLocked()
}

// UpdateServer records the token and endpoint from a voice server update.
func (s *Session) UpdateServer(token, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.endpoint = endpoint

	s.maybeConnectLocked()
}

func (s *Session) maybeConnectLocked() {
	if s.closed || s.connecting || s.sessionID == "" || s.token == "" || s.endpoint == "" {
		return
	}

	if s.conn != nil && s.connectedEndpoint == s.endpoint {
		return
	}

	s.connecting = true

	go s.connect(s.endpoint, s.token, s.sessionID)
}

// Ready reports whether the session has received its secret key.
func (s *Session) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the session is ready, closed or ctx expires.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SSRC returns the synchronisation source assigned to us.
func (s *Session) SSRC() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ssrc
}

// Mode returns the negotiated encryption mode.
func (s *Session) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// AudioContext returns the send path of the session, creating it on first
// use.
func (s *Session) AudioContext() (*AudioContext, error) {
	if !s.Ready() {
		return nil, ErrNotReady
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	if s.audio != nil {
		return s.audio, nil
	}

	audio, err := newAudioContext(s.ctx, s.Logger, s, s.emit, s.config.Audio)
	if err != nil {
		return nil, err
	}

	s.audio = audio

	return audio, nil
}

// MemberStream returns the stream of the given SSRC, if it has spoken.
func (s *Session) MemberStream(ssrc uint32) (*MemberStream, bool) {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()

	stream, ok := s.streams[ssrc]

	return stream, ok
}

// MixedStream receives audio from SSRCs with no known speaker.
func (s *Session) MixedStream() *MemberStream {
	return s.mixed
}

// Speaking announces that we started or stopped transmitting.
func (s *Session) Speaking(speaking bool) error {
	return s.speaking(speaking)
}

// Close tears the session down.
func (s *Session) Close() error {
	s.teardown(nil)

	return nil
}

func (s *Session) connect(endpoint, token, sessionID string) {
	url := "wss://" + endpointHost(endpoint) + "/?v=4"

	s.Logger.Debug().Str("url", url).Msg("Connecting to voice gateway")

	conn, err := s.config.Dialer.Dial(s.ctx, url)

	s.mu.Lock()
	s.connecting = false

	if err != nil {
		s.mu.Unlock()

		s.Logger.Error().Err(err).Msg("Failed to connect to voice gateway")
		s.teardown(fmt.Errorf("failed to connect to voice gateway: %w", err))

		return
	}

	if s.closed {
		s.mu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")

		return
	}

	previous := s.conn
	s.conn = conn
	s.connectedEndpoint = endpoint
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Close(websocket.StatusNormalClosure, "")
	}

	go s.listen(conn)

	err = s.send(conn, discord.VoiceOpIdentify, discord.VoiceIdentify{
		ServerID:  s.config.ServerID,
		UserID:    s.config.UserID,
		SessionID: sessionID,
		Token:     token,
	})
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to send voice identify")
		s.teardown(err)
	}
}

func (s *Session) current(conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn == conn
}

func (s *Session) listen(conn Conn) {
	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			if s.current(conn) {
				s.Logger.Debug().Err(err).Msg("Voice gateway closed")
				s.teardown(err)
			}

			return
		}

		s.Logger.Trace().Msg(">>> " + gotils_strconv.B2S(data))

		var payload discord.VoicePayload

		err = crustjson.Unmarshal(data, &payload)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("Failed to unmarshal voice payload")

			continue
		}

		s.handlePayload(conn, payload)
	}
}

func (s *Session) handlePayload(conn Conn, payload discord.VoicePayload) {
	switch payload.Op {
	case discord.VoiceOpReady:
		var ready discord.VoiceReady

		if err := crustjson.Unmarshal(payload.Data, &ready); err != nil {
			s.Logger.Warn().Err(err).Msg("Failed to unmarshal voice ready")

			return
		}

		s.mu.Lock()
		s.ssrc = ready.SSRC
		s.mu.Unlock()

		if ready.HeartbeatInterval > 0 {
			s.startHeartbeat(conn, ready.HeartbeatInterval)
		}

		go s.setupUDP(conn, ready)
	case discord.VoiceOpHello:
		var hello discord.VoiceHello

		if err := crustjson.Unmarshal(payload.Data, &hello); err != nil {
			s.Logger.Warn().Err(err).Msg("Failed to unmarshal voice hello")

			return
		}

		s.startHeartbeat(conn, hello.HeartbeatInterval)
	case discord.VoiceOpSessionDescription:
		var description discord.SessionDescription

		if err := crustjson.Unmarshal(payload.Data, &description); err != nil {
			s.Logger.Warn().Err(err).Msg("Failed to unmarshal session description")

			return
		}

		s.mu.Lock()
		s.mode = description.Mode
		s.secretKey = description.SecretKey
		s.mu.Unlock()

		s.readyOnce.Do(func() {
			s.Logger.Info().Str("mode", description.Mode).Msg("Voice session ready")

			close(s.ready)
		})
	case discord.VoiceOpSpeaking:
		var speaking discord.Speaking

		if err := crustjson.Unmarshal(payload.Data, &speaking); err != nil {
			s.Logger.Warn().Err(err).Msg("Failed to unmarshal speaking")

			return
		}

		s.handleSpeaking(speaking)
	case discord.VoiceOpHeartbeatACK:
		s.Logger.Trace().Msg("Received voice heartbeat ack")
	default:
		s.Logger.Debug().Int("op", int(payload.Op)).Msg("Unhandled voice op")
	}
}

func (s *Session) handleSpeaking(speaking discord.Speaking) {
	s.streamsMu.Lock()

	s.users[speaking.SSRC] = speaking.UserID

	stream, ok := s.streams[speaking.SSRC]
	if !ok {
		stream = NewMemberStream(speaking.SSRC, speaking.UserID, s.config.MaxStreamSize)
		s.streams[speaking.SSRC] = stream
		s.decoders[speaking.SSRC] = newDecoder(s.config.Decoder, s.config.Audio.channels())
	}

	s.streamsMu.Unlock()

	if !ok {
		s.emit(NewMemberStreamEvent{UserID: speaking.UserID, SSRC: speaking.SSRC, Stream: stream})
	}

	s.emit(SpeakingEvent{UserID: speaking.UserID, SSRC: speaking.SSRC, Speaking: speaking.Speaking != 0})
}

func (s *Session) startHeartbeat(conn Conn, interval float64) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	if s.heartbeatConn == conn {
		s.mu.Unlock()

		return
	}

	s.heartbeatConn = conn
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Duration(interval * float64(time.Millisecond)))
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if !s.current(conn) {
					return
				}

				err := s.send(conn, discord.VoiceOpHeartbeat, time.Now().UnixMilli())
				if err != nil {
					s.Logger.Warn().Err(err).Msg("Failed to send voice heartbeat")

					return
				}
			}
		}
	}()
}

func (s *Session) setupUDP(conn Conn, ready discord.VoiceReady) {
	ip := ready.IP
	if ip == "" {
		s.mu.Lock()
		ip = endpointHost(s.connectedEndpoint)
		s.mu.Unlock()
	}

	remote, err := net.ResolveUDPAddr("udp", hostPort(ip, ready.Port))
	if err != nil {
		s.teardown(fmt.Errorf("failed to resolve voice server: %w", err))

		return
	}

	pc, err := s.config.ListenPacket("udp", ":0")
	if err != nil {
		s.teardown(fmt.Errorf("failed to open voice socket: %w", err))

		return
	}

	address, port, err := discover(pc, remote, ready.SSRC)
	if err != nil {
		_ = pc.Close()

		s.teardown(fmt.Errorf("failed to discover external address: %w", err))

		return
	}

	s.Logger.Debug().Str("address", address).Uint16("port", port).Msg("Discovered external address")

	s.mu.Lock()

	if s.closed || s.conn != conn {
		s.mu.Unlock()

		_ = pc.Close()

		return
	}

	previous := s.udp
	s.udp = pc
	s.remote = remote
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	go s.receive(pc)
	go s.keepalive(pc, remote)

	err = s.send(conn, discord.VoiceOpSelectProtocol, discord.SelectProtocol{
		Protocol: "udp",
		Data: discord.SelectProtocolData{
			Address: address,
			Port:    port,
			Mode:    EncryptionMode,
		},
	})
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to select protocol")
		s.teardown(err)
	}
}

func discover(pc net.PacketConn, remote net.Addr, ssrc uint32) (string, uint16, error) {
	_ = pc.SetDeadline(time.Now().Add(discoveryTimeout))
	defer pc.SetDeadline(time.Time{}) //nolint:errcheck

	_, err := pc.WriteTo(DiscoveryPacket(ssrc), remote)
	if err != nil {
		return "", 0, err
	}

	reply := make([]byte, DiscoveryPacketSize)

	n, _, err := pc.ReadFrom(reply)
	if err != nil {
		return "", 0, err
	}

	return ParseDiscoveryReply(reply[:n])
}

func (s *Session) keepalive(pc net.PacketConn, remote net.Addr) {
	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()

	var k keepalive

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			current := s.udp == pc
			s.mu.Unlock()

			if !current {
				return
			}

			_, _ = pc.WriteTo(k.Next(), remote)
		}
	}
}

func (s *Session) receive(pc net.PacketConn) {
	buf := make([]byte, udpBufferSize)

	for {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}

		if n == KeepalivePacketSize {
			continue
		}

		s.handlePacket(buf[:n])
	}
}

// handlePacket opens, decodes and routes a received voice packet. Failures
// are dropped silently.
func (s *Session) handlePacket(packet []byte) {
	if !s.Ready() {
		return
	}

	s.mu.Lock()
	key := s.secretKey
	s.mu.Unlock()

	header, opus, err := OpenPacket(packet, &key)
	if err != nil {
		PacketMetrics.Dropped.Inc()

		return
	}

	PacketMetrics.Received.Inc()

	s.streamsMu.Lock()

	userID := s.users[header.SSRC]

	stream, ok := s.streams[header.SSRC]
	decoder := s.decoders[header.SSRC]

	if !ok {
		stream = s.mixed
		decoder = s.mixedDecoder
	}

	s.streamsMu.Unlock()

	data, err := decoder.Decode(opus)
	if err != nil {
		PacketMetrics.Dropped.Inc()

		return
	}

	stream.Push(data)

	s.emit(IncomingEvent{UserID: userID, SSRC: header.SSRC, Data: data})
}

// sendFrame seals and sends a single opus frame. Send failures are ignored.
func (s *Session) sendFrame(opus []byte) {
	s.mu.Lock()
	pc, remote, key, ssrc := s.udp, s.remote, s.secretKey, s.ssrc
	s.mu.Unlock()

	if pc == nil {
		return
	}

	s.sendMu.Lock()
	s.sequence = NextSequence(s.sequence)
	s.timestamp = NextTimestamp(s.timestamp)
	header := Header{Sequence: s.sequence, Timestamp: s.timestamp, SSRC: ssrc}
	s.sendMu.Unlock()

	_, err := pc.WriteTo(SealPacket(header, opus, &key), remote)
	if err == nil {
		PacketMetrics.Sent.Inc()
	}
}

func (s *Session) speaking(speaking bool) error {
	s.mu.Lock()
	conn, ssrc := s.conn, s.ssrc
	s.mu.Unlock()

	if conn == nil {
		return ErrNotReady
	}

	var flag discord.SpeakingFlag
	if speaking {
		flag = 1
	}

	return s.send(conn, discord.VoiceOpSpeaking, discord.Speaking{
		Speaking: flag,
		Delay:    0,
		SSRC:     ssrc,
	})
}

func (s *Session) send(conn Conn, op discord.VoiceOp, data interface{}) error {
	b, err := crustjson.Marshal(discord.VoiceSentPayload{Op: op, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal voice payload: %w", err)
	}

	s.Logger.Trace().Msg("<<< " + gotils_strconv.B2S(b))

	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()

	err = conn.Write(ctx, websocket.MessageText, b)
	if err != nil {
		return fmt.Errorf("failed to write voice payload: %w", err)
	}

	return nil
}

// teardown releases every resource of the session exactly once.
func (s *Session) teardown(cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		conn, pc, audio, channelID := s.conn, s.udp, s.audio, s.channelID
		s.conn, s.udp, s.audio = nil, nil, nil
		s.mu.Unlock()

		s.emit(DisconnectEvent{ChannelID: channelID, Err: cause})
		s.detach()

		if audio != nil {
			_ = audio.Close()
		}

		s.streamsMu.Lock()
		for _, stream := range s.streams {
			_ = stream.Close()
		}

		s.streams = make(map[uint32]*MemberStream)
		s.decoders = make(map[uint32]Decoder)
		s.streamsMu.Unlock()

		_ = s.mixed.Close()

		s.cancel()

		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}

		if pc != nil {
			_ = pc.Close()
		}

		if s.config.OnClose != nil {
			s.config.OnClose(s)
		}

		close(s.done)
	})
}

func endpointHost(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "wss://")
	endpoint = strings.TrimSuffix(endpoint, "/")

	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}

	return endpoint
}
