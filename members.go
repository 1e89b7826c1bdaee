package crust

import (
	"context"
	"fmt"

	"github.com/WelcomerTeam/Crust/discord"
)

// memberRequestBatch is the number of servers per member request.
const memberRequestBatch = 50

// GetAllUsers requests the members of every server that is missing some.
// An AllUsersEvent follows once they have all arrived. When nothing is
// missing the event is emitted right away and ErrNoUsersToCollect returned.
func (c *Client) GetAllUsers(ctx context.Context) error {
	bot := c.IsBot()

	serverIDs := c.State.IncompleteServers(bot)
	if len(serverIDs) == 0 {
		c.emit(AllUsersEvent{})

		return ErrNoUsersToCollect
	}

	c.Logger.Debug().Int("servers", len(serverIDs)).Msg("Requesting server members")

	if !bot {
		err := c.SendEvent(ctx, discord.GatewayOpGuildSync, serverIDs)
		if err != nil {
			return fmt.Errorf("failed to sync servers: %w", err)
		}
	}

	for start := 0; start < len(serverIDs); start += memberRequestBatch {
		end := start + memberRequestBatch
		if end > len(serverIDs) {
			end = len(serverIDs)
		}

		err := c.SendEvent(ctx, discord.GatewayOpRequestGuildMembers, discord.RequestGuildMembers{
			GuildIDs: serverIDs[start:end],
			Query:    "",
			Limit:    0,
		})
		if err != nil {
			return fmt.Errorf("failed to request server members: %w", err)
		}
	}

	return nil
}
