package crust

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/WelcomerTeam/Crust/discord"
	"github.com/WelcomerTeam/Crust/pkg/limiter"
	"github.com/WelcomerTeam/Crust/state"
	"github.com/WelcomerTeam/Crust/voice"
	csmap "github.com/mhmtszr/concurrent-swiss-map"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// VERSION follows semantic versioning.
const VERSION = "0.3.0"

const (
	DefaultLargeThreshold   = 250
	DefaultReadyTimeout     = 3500 * time.Millisecond
	DefaultHeartbeatTimeout = 15 * time.Second

	// Gateway allows 120 payloads a minute, heartbeats are not counted.
	gatewaySendLimit = 110
)

type (
	Conn            = voice.Conn
	Dialer          = voice.Dialer
	WebsocketDialer = voice.WebsocketDialer
)

// VoiceOptions configures the voice sessions created by the client.
type VoiceOptions struct {
	Dialer        voice.Dialer
	ListenPacket  func(network, address string) (net.PacketConn, error)
	Decoder       voice.DecoderFactory
	MaxStreamSize int
	Audio         voice.AudioConfig
}

// Options configures a Client.
type Options struct {
	// Name identifies the client in logs and metrics.
	Name string

	// Shard is the [index, count] pair. An invalid pair disables sharding.
	Shard []int32

	// MessageCacheLimit is the number of messages kept per channel. Use
	// state.MessageCacheUnbounded to never evict and 0 to disable the cache.
	MessageCacheLimit int

	Intents        int32
	LargeThreshold int32
	Presence       *discord.UpdateStatus

	// GatewayURL skips gateway discovery when set.
	GatewayURL string

	ReadyTimeout     time.Duration
	HeartbeatTimeout time.Duration

	ConnectThrottle *limiter.ConnectThrottle
	Dialer          Dialer
	REST            RESTInterface

	Voice VoiceOptions

	Logger zerolog.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Name:              "crust",
		MessageCacheLimit: state.DefaultMessageCacheLimit,
		LargeThreshold:    DefaultLargeThreshold,
		ReadyTimeout:      DefaultReadyTimeout,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		Logger:            zerolog.Nop(),
	}
}

// Client is a single gateway session together with the state it mirrors.
type Client struct {
	Logger zerolog.Logger

	State    *state.Store
	Messages *state.MessageCache

	options Options
	token   string
	shard   *[2]int32

	rest        RESTInterface
	dialer      Dialer
	throttle    *limiter.ConnectThrottle
	wsRatelimit *limiter.DurationLimiter

	handlersMu sync.RWMutex
	handlers   []EventHandler

	status    *atomic.Int32
	ready     *atomic.Bool
	bot       *atomic.Bool
	manual    *atomic.Bool
	inviteURL *atomic.String

	sessionID         *atomic.String
	resumeGatewayURL  *atomic.String
	sequence          *atomic.Int64
	lastHeartbeatSent *atomic.Time

	pings pingWindow

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc

	connMu sync.RWMutex
	conn   *gatewayConn

	tasks chan func()

	// Only touched from the dispatch goroutine.
	readyPending bool
	readyTimer   *time.Timer

	voiceSessions *csmap.CsMap[discord.Snowflake, *voice.Session]
}

// NewClient creates a client. Bot tokens must carry the "Bot " prefix.
func NewClient(token string, options Options) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	defaults := DefaultOptions()

	if options.Name == "" {
		options.Name = defaults.Name
	}

	if options.LargeThreshold == 0 {
		options.LargeThreshold = defaults.LargeThreshold
	}

	if options.ReadyTimeout <= 0 {
		options.ReadyTimeout = defaults.ReadyTimeout
	}

	if options.HeartbeatTimeout <= 0 {
		options.HeartbeatTimeout = defaults.HeartbeatTimeout
	}

	if options.ConnectThrottle == nil {
		options.ConnectThrottle = limiter.NewConnectThrottle(limiter.DefaultConnectSpacing)
	}

	if options.Dialer == nil {
		options.Dialer = WebsocketDialer{}
	}

	logger := options.Logger.With().Str("client", options.Name).Logger()

	if options.REST == nil {
		options.REST = NewBaseInterface(token, logger)
	}

	client := &Client{
		Logger: logger,

		State:    state.NewStore(),
		Messages: state.NewMessageCache(options.MessageCacheLimit),

		options: options,
		token:   token,
		shard:   validateShard(options.Shard),

		rest:        options.REST,
		dialer:      options.Dialer,
		throttle:    options.ConnectThrottle,
		wsRatelimit: limiter.NewDurationLimiter(gatewaySendLimit, time.Minute),

		status:    atomic.NewInt32(int32(GatewayStatusDisconnected)),
		ready:     atomic.NewBool(false),
		bot:       atomic.NewBool(false),
		manual:    atomic.NewBool(false),
		inviteURL: atomic.NewString(""),

		sessionID:         atomic.NewString(""),
		resumeGatewayURL:  atomic.NewString(""),
		sequence:          atomic.NewInt64(0),
		lastHeartbeatSent: atomic.NewTime(time.Time{}),

		tasks: make(chan func(), 16),

		voiceSessions: csmap.Create(
			csmap.WithSize[discord.Snowflake, *voice.Session](4),
		),
	}

	if options.Shard != nil && client.shard == nil {
		logger.Warn().Interface("shard", options.Shard).Msg("Invalid shard pair, sharding disabled")
	}

	return client, nil
}

// validateShard returns the shard pair when it satisfies
// 0 <= index < count and count > 1.
func validateShard(shard []int32) *[2]int32 {
	if len(shard) != 2 {
		return nil
	}

	index, count := shard[0], shard[1]

	if index < 0 || count <= 1 || index >= count {
		return nil
	}

	return &[2]int32{index, count}
}

// identifyToken is the token without the REST authorization prefix.
func (c *Client) identifyToken() string {
	return strings.TrimPrefix(c.token, "Bot ")
}

// AddHandler registers a handler for every client event.
func (c *Client) AddHandler(handler EventHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.handlers = append(c.handlers, handler)
}

func (c *Client) emit(event Event) {
	c.handlersMu.RLock()
	handlers := c.handlers
	c.handlersMu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (c *Client) Status() GatewayStatus {
	return GatewayStatus(c.status.Load())
}

func (c *Client) setStatus(status GatewayStatus) {
	previous := GatewayStatus(c.status.Swap(int32(status)))
	if previous == status {
		return
	}

	UpdateGatewayStatus(c.options.Name, status)

	c.Logger.Debug().Str("status", status.String()).Msg("Gateway status updated")
}

// IsReady reports whether READY has been processed on the current session.
func (c *Client) IsReady() bool {
	return c.ready.Load()
}

// IsBot reports whether the client is logged in as a bot account.
func (c *Client) IsBot() bool {
	return c.bot.Load()
}

// SessionID returns the current gateway session id.
func (c *Client) SessionID() string {
	return c.sessionID.Load()
}

// Ping returns the average heartbeat round trip over the last samples, or
// zero when none were recorded.
func (c *Client) Ping() time.Duration {
	return c.pings.average()
}

// InviteURL returns the url used to add the bot to a server.
func (c *Client) InviteURL() (string, error) {
	if !c.bot.Load() {
		return "", ErrNotBot
	}

	return c.inviteURL.Load(), nil
}

// runTask schedules fn on the dispatch goroutine.
func (c *Client) runTask(ctx context.Context, fn func()) {
	select {
	case c.tasks <- fn:
	case <-ctx.Done():
	}
}

func (c *Client) updateStateMetrics() {
	UpdateStateMetrics(c.State.Counts(), c.Messages.Len())
}

// pingWindow keeps the most recent heartbeat round trips, newest first.
type pingWindow struct {
	mu      sync.Mutex
	samples []time.Duration
}

const pingWindowSize = 10

func (w *pingWindow) add(rtt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples = append([]time.Duration{rtt}, w.samples...)

	if len(w.samples) > pingWindowSize {
		w.samples = w.samples[:pingWindowSize]
	}
}

func (w *pingWindow) average() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.samples) == 0 {
		return 0
	}

	var total time.Duration

	for _, sample := range w.samples {
		total += sample
	}

	return total / time.Duration(len(w.samples))
}

func (w *pingWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples = nil
}
