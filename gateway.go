package crust

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
	"github.com/WelcomerTeam/czlib"
	gotils_strconv "github.com/savsgio/gotils/strconv"
	"nhooyr.io/websocket"
)

const (
	GatewayVersion = "10"

	MessageChannelBuffer = 64

	helloTimeout       = 20 * time.Second
	reconnectCloseCode = websocket.StatusCode(4000)
)

// gatewayConn is a single websocket connection to the gateway. A new one
// is created for every reconnect.
type gatewayConn struct {
	conn Conn

	// lifetime is cancelled by Disconnect and outlives reconnects.
	lifetime context.Context

	ctx    context.Context
	cancel context.CancelFunc

	messageCh chan discord.GatewayPayload
	errorCh   chan error

	watchdogMu sync.Mutex
	watchdog   *time.Timer
}

// fail hands err to the listener. Only the first error is kept.
func (gc *gatewayConn) fail(err error) {
	select {
	case gc.errorCh <- err:
	default:
	}
}

func (gc *gatewayConn) armWatchdog(timeout time.Duration, expired func()) {
	gc.watchdogMu.Lock()
	defer gc.watchdogMu.Unlock()

	if gc.watchdog != nil {
		return
	}

	gc.watchdog = time.AfterFunc(timeout, expired)
}

func (gc *gatewayConn) stopWatchdog() {
	gc.watchdogMu.Lock()
	defer gc.watchdogMu.Unlock()

	if gc.watchdog != nil {
		gc.watchdog.Stop()
		gc.watchdog = nil
	}
}

// reconnectRequest is raised locally when the connection should be
// replaced without the gateway having closed it.
type reconnectRequest struct {
	reason string
	resume bool
	cause  error
}

func (r *reconnectRequest) Error() string {
	return r.reason
}

func (r *reconnectRequest) Unwrap() error {
	return r.cause
}

// Connect opens the gateway session. It returns once the client has
// identified or resumed; READY arrives later as a ReadyEvent.
func (c *Client) Connect(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.Status() != GatewayStatusDisconnected {
		return ErrAlreadyConnected
	}

	c.manual.Store(false)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	err := c.open(ctx, c.ctx)
	if err != nil {
		c.cancel()
		c.setStatus(GatewayStatusDisconnected)

		return err
	}

	return nil
}

// Disconnect closes the gateway session and every voice session. No
// reconnect is attempted.
func (c *Client) Disconnect() error {
	c.lifecycleMu.Lock()

	if c.Status() == GatewayStatusDisconnected && c.currentConn() == nil {
		c.lifecycleMu.Unlock()

		return ErrNotConnected
	}

	c.manual.Store(true)

	if c.cancel != nil {
		c.cancel()
	}

	c.lifecycleMu.Unlock()

	c.connMu.Lock()
	gc := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if gc != nil {
		c.closeConn(gc, websocket.StatusNormalClosure, "")
	}

	c.closeVoiceSessions()

	c.ready.Store(false)
	c.sessionID.Store("")
	c.resumeGatewayURL.Store("")
	c.sequence.Store(0)
	c.pings.reset()

	c.setStatus(GatewayStatusDisconnected)

	c.emit(DisconnectEvent{Reason: "Client disconnected", Code: int(websocket.StatusNormalClosure)})

	return nil
}

// SendEvent sends a payload on the current gateway connection.
func (c *Client) SendEvent(ctx context.Context, op discord.GatewayOp, data interface{}) error {
	gc := c.currentConn()
	if gc == nil {
		return ErrNotConnected
	}

	return c.sendEvent(ctx, gc, op, data)
}

func (c *Client) currentConn() *gatewayConn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()

	return c.conn
}

// open dials the gateway, waits for HELLO and identifies or resumes.
func (c *Client) open(ctx context.Context, lifetime context.Context) error {
	c.setStatus(GatewayStatusConnecting)

	err := c.throttle.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for connect throttle: %w", err)
	}

	resume := c.sessionID.Load() != "" && c.sequence.Load() != 0

	gatewayURL, err := c.gatewayURL(ctx, resume)
	if err != nil {
		return fmt.Errorf("failed to get gateway: %w", err)
	}

	gatewayURL += "?v=" + GatewayVersion + "&encoding=json"

	c.Logger.Debug().Str("url", gatewayURL).Bool("resume", resume).Msg("Connecting to gateway")

	conn, err := c.dialer.Dial(ctx, gatewayURL)
	if err != nil {
		return fmt.Errorf("failed to connect to gateway: %w", err)
	}

	gc := c.feedWebsocket(lifetime, conn)

	hello, err := c.readHello(ctx, gc)
	if err != nil {
		c.closeConn(gc, websocket.StatusNormalClosure, "")

		return err
	}

	c.connMu.Lock()
	c.conn = gc
	c.connMu.Unlock()

	go c.heartbeat(gc, time.Duration(hello.HeartbeatInterval)*time.Millisecond)

	if resume {
		err = c.resume(ctx, gc)
	} else {
		err = c.identify(ctx, gc)
	}

	if err == nil && lifetime.Err() != nil {
		err = lifetime.Err()
	}

	if err != nil {
		c.dropConn(gc, websocket.StatusNormalClosure, "")

		return err
	}

	c.setStatus(GatewayStatusConnected)

	go c.listen(gc)

	return nil
}

func (c *Client) gatewayURL(ctx context.Context, resume bool) (string, error) {
	if resume {
		if url := c.resumeGatewayURL.Load(); url != "" {
			return url, nil
		}
	}

	if c.options.GatewayURL != "" {
		return c.options.GatewayURL, nil
	}

	var gateway discord.Gateway

	err := c.rest.Fetch(ctx, http.MethodGet, discord.EndpointGateway, nil, &gateway)
	if err != nil {
		return "", err
	}

	return gateway.URL, nil
}

func (c *Client) readHello(ctx context.Context, gc *gatewayConn) (*discord.Hello, error) {
	timer := time.NewTimer(helloTimeout)
	defer timer.Stop()

	select {
	case msg := <-gc.messageCh:
		if msg.Op != discord.GatewayOpHello {
			return nil, fmt.Errorf("expected hello, received op %d", msg.Op)
		}

		var hello discord.Hello

		err := crustjson.Unmarshal(msg.Data, &hello)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal hello: %w", err)
		}

		if hello.HeartbeatInterval <= 0 {
			return nil, ErrInvalidHeartbeatInterval
		}

		return &hello, nil
	case err := <-gc.errorCh:
		return nil, fmt.Errorf("failed to read hello: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("failed to read hello: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) identify(ctx context.Context, gc *gatewayConn) error {
	c.setStatus(GatewayStatusIdentifying)

	c.Logger.Debug().Msg("Sending identify")

	return c.sendEvent(ctx, gc, discord.GatewayOpIdentify, discord.Identify{
		Properties: &discord.IdentifyProperties{
			OS:      runtime.GOOS,
			Browser: "Crust " + VERSION,
			Device:  "Crust " + VERSION,
		},
		Presence:       c.options.Presence,
		Shard:          c.shard,
		Token:          c.identifyToken(),
		LargeThreshold: c.options.LargeThreshold,
		Intents:        c.options.Intents,
		Compress:       true,
	})
}

func (c *Client) resume(ctx context.Context, gc *gatewayConn) error {
	c.setStatus(GatewayStatusResuming)

	c.Logger.Debug().Int64("sequence", c.sequence.Load()).Msg("Sending resume")

	return c.sendEvent(ctx, gc, discord.GatewayOpResume, discord.Resume{
		Shard:     c.shard,
		Token:     c.identifyToken(),
		SessionID: c.sessionID.Load(),
		Sequence:  c.sequence.Load(),
	})
}

// feedWebsocket reads from the connection in the background and hands
// decoded payloads to messageCh. The read error ends up in errorCh.
func (c *Client) feedWebsocket(lifetime context.Context, conn Conn) *gatewayConn {
	ctx, cancel := context.WithCancel(lifetime)

	gc := &gatewayConn{
		conn:      conn,
		lifetime:  lifetime,
		ctx:       ctx,
		cancel:    cancel,
		messageCh: make(chan discord.GatewayPayload, MessageChannelBuffer),
		errorCh:   make(chan error, 1),
	}

	go func() {
		for {
			messageType, data, err := conn.Read(ctx)

			select {
			case <-ctx.Done():
				return
			default:
			}

			if err != nil {
				gc.fail(err)

				return
			}

			if messageType == websocket.MessageBinary {
				data, err = czlib.Decompress(data)
				if err != nil {
					gc.fail(fmt.Errorf("failed to decompress data: %w", err))

					return
				}
			}

			c.Logger.Trace().Msg(">>> " + gotils_strconv.B2S(data))

			var msg discord.GatewayPayload

			err = crustjson.Unmarshal(data, &msg)
			if err != nil {
				c.Logger.Error().Err(err).Msg("Failed to unmarshal message")

				continue
			}

			select {
			case gc.messageCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return gc
}

// listen is the dispatch goroutine of a connection. Every state mutation
// happens here.
func (c *Client) listen(gc *gatewayConn) {
	for {
		select {
		case <-gc.ctx.Done():
			return
		case msg := <-gc.messageCh:
			c.onEvent(gc, msg)
		case fn := <-c.tasks:
			fn()
		case err := <-gc.errorCh:
			// Payloads read before the failure are still delivered.
			for drained := false; !drained; {
				select {
				case msg := <-gc.messageCh:
					c.onEvent(gc, msg)
				default:
					drained = true
				}
			}

			c.handleClose(gc, err)

			return
		}
	}
}

func (c *Client) onEvent(gc *gatewayConn, msg discord.GatewayPayload) {
	err := c.handleGatewayPayload(gc, msg)

	switch {
	case err == nil:
	case errors.Is(err, ErrNoGatewayHandler):
		c.Logger.Debug().Int("op", int(msg.Op)).Msg("No gateway handler found")
	default:
		c.Logger.Error().Err(err).Int("op", int(msg.Op)).Str("type", msg.Type).Msg("Failed to handle event")
	}
}

func (c *Client) handleGatewayPayload(gc *gatewayConn, msg discord.GatewayPayload) error {
	handler, ok := gatewayHandlers[msg.Op]
	if !ok {
		return fmt.Errorf("%w: op %d", ErrNoGatewayHandler, msg.Op)
	}

	return handler(c, gc, msg)
}

// handleClose decides between reconnecting and ending the session once a
// connection has failed.
func (c *Client) handleClose(gc *gatewayConn, err error) {
	var request *reconnectRequest

	requested := errors.As(err, &request)
	code := closeCode(err)

	if requested {
		closeStatus := websocket.StatusNormalClosure
		if request.resume {
			closeStatus = reconnectCloseCode
		}

		c.dropConn(gc, closeStatus, request.reason)
	} else {
		c.dropConn(gc, websocket.StatusNormalClosure, "")
	}

	if c.manual.Load() || gc.lifetime.Err() != nil {
		return
	}

	if requested || code == discord.CloseGoingAway || code == discord.CloseAbnormalClosure {
		c.Logger.Warn().Err(err).Int("code", code).Msg("Gateway connection lost, reconnecting")

		c.reconnect(gc.lifetime, requested && request.resume)

		return
	}

	c.Logger.Error().Err(err).Int("code", code).Msg("Gateway closed the connection")

	c.ready.Store(false)
	c.sessionID.Store("")
	c.resumeGatewayURL.Store("")
	c.sequence.Store(0)

	c.setStatus(GatewayStatusDisconnected)

	c.emit(DisconnectEvent{Reason: discord.CloseReason(code), Code: code})
}

// reconnect makes a single attempt at replacing the connection.
func (c *Client) reconnect(lifetime context.Context, resume bool) {
	if !resume {
		c.ready.Store(false)
		c.sessionID.Store("")
		c.resumeGatewayURL.Store("")
		c.sequence.Store(0)
	}

	c.setStatus(GatewayStatusReconnecting)

	RecordReconnect(c.options.Name)

	err := c.open(lifetime, lifetime)
	if err == nil {
		return
	}

	if c.manual.Load() || lifetime.Err() != nil {
		return
	}

	c.Logger.Error().Err(err).Msg("Failed to reconnect")

	c.ready.Store(false)
	c.setStatus(GatewayStatusDisconnected)

	c.emit(DisconnectEvent{Reason: err.Error(), Code: 0})
}

// requestReconnect replaces the connection from the dispatch goroutine.
func (c *Client) requestReconnect(gc *gatewayConn, reason string, resume bool) {
	gc.fail(&reconnectRequest{reason: reason, resume: resume})
}

// dropConn closes gc and forgets it when it is still the current connection.
func (c *Client) dropConn(gc *gatewayConn, code websocket.StatusCode, reason string) {
	c.connMu.Lock()
	if c.conn == gc {
		c.conn = nil
	}
	c.connMu.Unlock()

	c.closeConn(gc, code, reason)
}

func (c *Client) closeConn(gc *gatewayConn, code websocket.StatusCode, reason string) {
	gc.stopWatchdog()

	err := gc.conn.Close(code, reason)
	if err != nil {
		c.Logger.Debug().Err(err).Msg("Encountered error closing websocket")
	}

	gc.cancel()
}

// closeCode extracts the websocket close code. A connection that dropped
// without a close frame is reported as an abnormal closure.
func closeCode(err error) int {
	status := websocket.CloseStatus(err)
	if status == -1 {
		return discord.CloseAbnormalClosure
	}

	return int(status)
}

func (c *Client) heartbeat(gc *gatewayConn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-gc.ctx.Done():
			return
		case <-ticker.C:
			err := c.sendHeartbeat(gc)
			if err != nil {
				if gc.ctx.Err() != nil {
					return
				}

				c.Logger.Warn().Err(err).Msg("Failed to send heartbeat")
			}
		}
	}
}

// sendHeartbeat sends the last sequence and arms the acknowledgement
// watchdog unless it is already running.
func (c *Client) sendHeartbeat(gc *gatewayConn) error {
	gc.armWatchdog(c.options.HeartbeatTimeout, func() {
		c.Logger.Warn().Msg("No heartbeat received")

		gc.fail(&reconnectRequest{reason: "No heartbeat received", cause: ErrNoHeartbeat})
	})

	var sequence interface{}
	if seq := c.sequence.Load(); seq != 0 {
		sequence = seq
	}

	c.lastHeartbeatSent.Store(time.Now())

	return c.sendEvent(gc.ctx, gc, discord.GatewayOpHeartbeat, sequence)
}

// sendEvent writes a payload to gc. Everything but heartbeats goes
// through the gateway ratelimit.
func (c *Client) sendEvent(ctx context.Context, gc *gatewayConn, op discord.GatewayOp, data interface{}) error {
	res, err := crustjson.Marshal(discord.SentPayload{
		Op:   op,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if op != discord.GatewayOpHeartbeat {
		err = c.wsRatelimit.Lock(ctx)
		if err != nil {
			return err
		}
	}

	c.Logger.Trace().Msg("<<< " + gotils_strconv.B2S(res))

	err = gc.conn.Write(ctx, websocket.MessageText, res)
	if err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	return nil
}
