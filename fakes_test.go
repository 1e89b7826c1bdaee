package crust

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
	"github.com/WelcomerTeam/Crust/pkg/limiter"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

const testTimeout = 2 * time.Second

type sentPayload struct {
	Op   discord.GatewayOp   `json:"op"`
	Data jsoniter.RawMessage `json:"d"`
}

// fakeConn is a scripted gateway connection.
type fakeConn struct {
	incoming chan []byte
	written  chan sentPayload

	closeOnce sync.Once
	closed    chan struct{}

	mu        sync.Mutex
	readErr   error
	closeCode websocket.StatusCode
	frames    [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 64),
		written:  make(chan sentPayload, 64),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data := <-f.incoming:
		return websocket.MessageText, data, nil
	case <-f.closed:
		f.mu.Lock()
		defer f.mu.Unlock()

		return 0, nil, f.readErr
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	var payload sentPayload

	err := crustjson.Unmarshal(p, &payload)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.frames = append(f.frames, append([]byte(nil), p...))
	f.mu.Unlock()

	f.written <- payload

	return nil
}

func (f *fakeConn) Close(code websocket.StatusCode, _ string) error {
	f.mu.Lock()
	if f.readErr == nil {
		f.closeCode = code
		f.readErr = errors.New("use of closed connection")
	}
	f.mu.Unlock()

	f.closeOnce.Do(func() { close(f.closed) })

	return nil
}

// drop simulates the server ending the connection with err.
func (f *fakeConn) drop(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()

	f.closeOnce.Do(func() { close(f.closed) })
}

func (f *fakeConn) closedWith() websocket.StatusCode {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closeCode
}

// lastFrame returns the raw bytes of the last payload written.
func (f *fakeConn) lastFrame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.frames) == 0 {
		return nil
	}

	return f.frames[len(f.frames)-1]
}

func (f *fakeConn) push(t *testing.T, op discord.GatewayOp, eventType string, sequence int64, data interface{}) {
	t.Helper()

	raw, err := crustjson.Marshal(data)
	require.NoError(t, err)

	payload, err := crustjson.Marshal(discord.GatewayPayload{
		Op:       op,
		Type:     eventType,
		Sequence: sequence,
		Data:     raw,
	})
	require.NoError(t, err)

	f.incoming <- payload
}

func (f *fakeConn) dispatch(t *testing.T, eventType string, sequence int64, data interface{}) {
	t.Helper()

	f.push(t, discord.GatewayOpDispatch, eventType, sequence, data)
}

// next returns the next payload written that is not a heartbeat.
func (f *fakeConn) next(t *testing.T) sentPayload {
	t.Helper()

	timeout := time.After(testTimeout)

	for {
		select {
		case payload := <-f.written:
			if payload.Op == discord.GatewayOpHeartbeat {
				continue
			}

			return payload
		case <-timeout:
			t.Fatal("timed out waiting for payload")

			return sentPayload{}
		}
	}
}

// fakeDialer hands out a new fakeConn, already carrying HELLO, per dial.
type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns chan *fakeConn
	fail  error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, url)

	if d.fail != nil {
		return nil, d.fail
	}

	conn := newFakeConn()
	conn.incoming <- []byte(`{"op":10,"d":{"heartbeat_interval":45000}}`)

	d.conns <- conn

	return conn, nil
}

func (d *fakeDialer) setFail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fail = err
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.urls)
}

func (d *fakeDialer) nextConn(t *testing.T) *fakeConn {
	t.Helper()

	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for dial")

		return nil
	}
}

type restCall struct {
	Method string
	Path   string
	Body   interface{}
}

// fakeREST answers requests from a table keyed by path.
type fakeREST struct {
	mu        sync.Mutex
	calls     []restCall
	responses map[string]interface{}
}

func newFakeREST() *fakeREST {
	return &fakeREST{
		responses: map[string]interface{}{
			discord.EndpointGateway: discord.Gateway{URL: "wss://gateway.test"},
		},
	}
}

func (r *fakeREST) Fetch(_ context.Context, method, path string, body, out interface{}) error {
	r.mu.Lock()
	r.calls = append(r.calls, restCall{method, path, body})
	response, ok := r.responses[path]
	r.mu.Unlock()

	if !ok {
		return discord.ErrUnauthorized
	}

	if out == nil {
		return nil
	}

	raw, err := crustjson.Marshal(response)
	if err != nil {
		return err
	}

	return crustjson.Unmarshal(raw, out)
}

func (r *fakeREST) called(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, call := range r.calls {
		if call.Path == path {
			return true
		}
	}

	return false
}

// eventRecorder collects emitted client events.
type eventRecorder struct {
	events chan Event
}

func newEventRecorder(c *Client) *eventRecorder {
	recorder := &eventRecorder{events: make(chan Event, 256)}

	c.AddHandler(func(event Event) {
		recorder.events <- event
	})

	return recorder
}

// wait returns the next event of the given type, skipping others.
func (r *eventRecorder) wait(t *testing.T, eventType discord.EventType) Event {
	t.Helper()

	timeout := time.After(testTimeout)

	for {
		select {
		case event := <-r.events:
			if event.Type() == eventType {
				return event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", eventType)

			return nil
		}
	}
}

// none asserts no event of the given type arrives within d.
func (r *eventRecorder) none(t *testing.T, eventType discord.EventType, d time.Duration) {
	t.Helper()

	timeout := time.After(d)

	for {
		select {
		case event := <-r.events:
			if event.Type() == eventType {
				t.Fatalf("unexpected %s event: %+v", eventType, event)
			}
		case <-timeout:
			return
		}
	}
}

func newTestClient(t *testing.T, token string) (*Client, *fakeDialer, *fakeREST) {
	t.Helper()

	dialer := newFakeDialer()
	rest := newFakeREST()

	options := DefaultOptions()
	options.Name = t.Name()
	options.Shard = []int32{0, 2}
	options.Dialer = dialer
	options.REST = rest
	options.ConnectThrottle = limiter.NewConnectThrottle(0)
	options.ReadyTimeout = 200 * time.Millisecond

	client, err := NewClient(token, options)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Disconnect()
	})

	return client, dialer, rest
}

// attachConn installs a connection without going through the handshake.
func attachConn(c *Client) *fakeConn {
	conn := newFakeConn()

	ctx, cancel := context.WithCancel(context.Background())

	c.connMu.Lock()
	c.conn = &gatewayConn{
		conn:      conn,
		lifetime:  ctx,
		ctx:       ctx,
		cancel:    cancel,
		messageCh: make(chan discord.GatewayPayload, MessageChannelBuffer),
		errorCh:   make(chan error, 1),
	}
	c.connMu.Unlock()

	return conn
}

func payloadFor(t *testing.T, eventType string, data interface{}) discord.GatewayPayload {
	t.Helper()

	raw, err := crustjson.Marshal(data)
	require.NoError(t, err)

	return discord.GatewayPayload{Op: discord.GatewayOpDispatch, Type: eventType, Data: raw}
}
