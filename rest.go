package crust

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
	"github.com/rs/zerolog"
	gotils_strconv "github.com/savsgio/gotils/strconv"
)

// RESTInterface performs requests against the HTTP API. Paths are relative
// to the versioned API root. body is marshalled to JSON when not nil and
// the response is unmarshalled into out when out is not nil.
type RESTInterface interface {
	Fetch(ctx context.Context, method, path string, body, out interface{}) error
}

// BaseInterface is the default RESTInterface. It does not handle rate
// limiting.
type BaseInterface struct {
	Logger zerolog.Logger

	HTTP       *http.Client
	Token      string
	APIVersion string
	URLHost    string
	URLScheme  string
	UserAgent  string
}

func NewBaseInterface(token string, logger zerolog.Logger) *BaseInterface {
	return NewInterface(&http.Client{
		Timeout: 20 * time.Second,
	}, token, discord.EndpointDiscord, discord.APIVersion, discord.UserAgent, logger)
}

func NewInterface(httpClient *http.Client, token, endpoint, version, userAgent string, logger zerolog.Logger) *BaseInterface {
	u, _ := url.Parse(endpoint)

	return &BaseInterface{
		Logger:     logger,
		HTTP:       httpClient,
		Token:      token,
		APIVersion: version,
		URLHost:    u.Host,
		URLScheme:  u.Scheme,
		UserAgent:  userAgent,
	}
}

func (bi *BaseInterface) Fetch(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte

	if body != nil {
		var err error

		payload, err = crustjson.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}

	req.URL.Host = bi.URLHost
	req.URL.Scheme = bi.URLScheme

	if bi.APIVersion != "" && !strings.HasPrefix(req.URL.Path, "/api") {
		req.URL.Path = "/api/" + bi.APIVersion + req.URL.Path
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if bi.Token != "" {
		req.Header.Set("Authorization", bi.Token)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", bi.UserAgent)

	resp, err := bi.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to do request: %w", err)
	}

	defer resp.Body.Close()

	response, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	bi.Logger.Trace().
		Str("method", method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Msg(gotils_strconv.B2S(response))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusCreated:
	case http.StatusNoContent:
	case http.StatusUnauthorized:
		return discord.ErrUnauthorized
	default:
		return discord.NewRestError(req, resp, response)
	}

	if out != nil && len(response) > 0 {
		err = crustjson.Unmarshal(response, out)
		if err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// NewProxyClient creates an HTTP client that redirects all requests through a specified host.
// This is useful when using a proxy such as twilight or nirn.
func NewProxyClient(client http.Client, host url.URL) *http.Client {
	if client.Transport == nil {
		client.Transport = http.DefaultTransport
	}

	client.Transport = &proxyTransport{
		host:      host,
		transport: client.Transport,
	}

	return &client
}

type proxyTransport struct {
	host      url.URL
	transport http.RoundTripper
}

func (t *proxyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	proxyReq := req.Clone(req.Context())

	proxyReq.URL.Host = t.host.Host
	proxyReq.URL.Scheme = t.host.Scheme
	proxyReq.Host = t.host.Host

	resp, err := t.transport.RoundTrip(proxyReq)
	if err != nil {
		return nil, fmt.Errorf("failed to round trip: %w", err)
	}

	return resp, nil
}
