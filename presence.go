package crust

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/WelcomerTeam/Crust/discord"
)

// SetPresence updates the status and game shown for the client. Idle
// clients are reported as away since now.
func (c *Client) SetPresence(ctx context.Context, status discord.Status, game *discord.Activity) error {
	update := discord.UpdateStatus{
		Status:     string(status),
		Activities: []*discord.Activity{},
	}

	if status == discord.StatusIdle {
		update.Since = time.Now().UnixMilli()
		update.AFK = true
	}

	if game != nil {
		update.Activities = append(update.Activities, game)
	}

	return c.SendEvent(ctx, discord.GatewayOpStatusUpdate, update)
}

// ResolveID returns the channel a message to id should be sent to. User
// ids resolve to their direct message channel, which is opened when it
// does not exist yet. Any other id is returned unchanged.
func (c *Client) ResolveID(ctx context.Context, id discord.Snowflake) (discord.Snowflake, error) {
	if channelID, ok := c.State.DirectMessageFor(id); ok {
		return channelID, nil
	}

	if _, ok := c.State.User(id); !ok {
		return id, nil
	}

	var channel discord.Channel

	err := c.rest.Fetch(ctx, http.MethodPost, discord.EndpointUserChannels, struct {
		RecipientID discord.Snowflake `json:"recipient_id"`
	}{id}, &channel)
	if err != nil {
		return 0, fmt.Errorf("failed to open direct message: %w", err)
	}

	c.runTask(ctx, func() {
		c.State.AddDirectMessage(&channel)
	})

	return channel.ID, nil
}
