package main

import (
	crust "github.com/WelcomerTeam/Crust"
	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// StatusResponse is served at /status.
type StatusResponse struct {
	Status         string `json:"status"`
	Ready          bool   `json:"ready"`
	SessionID      string `json:"session_id"`
	PingMS         int64  `json:"ping_ms"`
	Servers        int    `json:"servers"`
	Channels       int    `json:"channels"`
	Users          int    `json:"users"`
	Members        int    `json:"members"`
	DirectMessages int    `json:"direct_messages"`
	CachedMessages int    `json:"cached_messages"`
	VoiceSessions  int    `json:"voice_sessions"`
}

type statusServer struct {
	client *crust.Client
	router *router.Router
}

func newStatusServer(client *crust.Client) *statusServer {
	s := &statusServer{
		client: client,
		router: router.New(),
	}

	s.router.GET("/status", s.handleStatus)
	s.router.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	return s
}

func (s *statusServer) Handler() fasthttp.RequestHandler {
	return s.router.Handler
}

func (s *statusServer) status() StatusResponse {
	counts := s.client.State.Counts()

	return StatusResponse{
		Status:         s.client.Status().String(),
		Ready:          s.client.IsReady(),
		SessionID:      s.client.SessionID(),
		PingMS:         s.client.Ping().Milliseconds(),
		Servers:        counts.Servers,
		Channels:       counts.Channels,
		Users:          counts.Users,
		Members:        counts.Members,
		DirectMessages: counts.DirectMessages,
		CachedMessages: s.client.Messages.Len(),
		VoiceSessions:  s.client.VoiceSessionCount(),
	}
}

func (s *statusServer) handleStatus(ctx *fasthttp.RequestCtx) {
	res, err := crustjson.Marshal(s.status())
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)

		return
	}

	ctx.SetContentType("application/json;charset=UTF-8")
	ctx.SetBody(res)
}
