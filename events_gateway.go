package crust

import (
	"time"

	"github.com/WelcomerTeam/Crust/discord"
)

type GatewayHandler func(c *Client, gc *gatewayConn, msg discord.GatewayPayload) error

var gatewayHandlers = make(map[discord.GatewayOp]GatewayHandler)

func registerGatewayEvent(op discord.GatewayOp, handler GatewayHandler) {
	gatewayHandlers[op] = handler
}

func gatewayOpDispatch(c *Client, gc *gatewayConn, msg discord.GatewayPayload) error {
	if msg.Sequence != 0 {
		c.sequence.Store(msg.Sequence)
	}

	return c.onDispatch(gc, msg)
}

func gatewayOpHeartbeat(c *Client, gc *gatewayConn, _ discord.GatewayPayload) error {
	return c.sendHeartbeat(gc)
}

func gatewayOpReconnect(c *Client, gc *gatewayConn, _ discord.GatewayPayload) error {
	c.Logger.Debug().Msg("Gateway requested a reconnect")

	c.requestReconnect(gc, "Reconnect requested", true)

	return nil
}

func gatewayOpInvalidSession(c *Client, gc *gatewayConn, _ discord.GatewayPayload) error {
	c.Logger.Warn().Msg("Received invalid session")

	c.sessionID.Store("")
	c.resumeGatewayURL.Store("")
	c.sequence.Store(0)

	c.requestReconnect(gc, "Invalid session", false)

	return nil
}

func gatewayOpHello(c *Client, _ *gatewayConn, _ discord.GatewayPayload) error {
	c.Logger.Debug().Msg("Received unexpected hello")

	return nil
}

func gatewayOpHeartbeatACK(c *Client, gc *gatewayConn, _ discord.GatewayPayload) error {
	gc.stopWatchdog()

	sent := c.lastHeartbeatSent.Load()
	if sent.IsZero() {
		return nil
	}

	c.pings.add(time.Since(sent))

	UpdateGatewayLatency(c.options.Name, c.Ping().Seconds())

	c.Logger.Trace().Dur("ping", c.Ping()).Msg("Received heartbeat ACK")

	return nil
}

func init() {
	registerGatewayEvent(discord.GatewayOpDispatch, gatewayOpDispatch)
	registerGatewayEvent(discord.GatewayOpHeartbeat, gatewayOpHeartbeat)
	registerGatewayEvent(discord.GatewayOpReconnect, gatewayOpReconnect)
	registerGatewayEvent(discord.GatewayOpInvalidSession, gatewayOpInvalidSession)
	registerGatewayEvent(discord.GatewayOpHello, gatewayOpHello)
	registerGatewayEvent(discord.GatewayOpHeartbeatACK, gatewayOpHeartbeatACK)
}
