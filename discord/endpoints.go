package discord

const (
	APIVersion      = "v10"
	EndpointDiscord = "https://discord.com/api"
	EndpointCDN     = "https://cdn.discordapp.com"
	EndpointInvite  = "https://discord.com/oauth2/authorize"

	EndpointGateway      = "/gateway"
	EndpointOAuthApp     = "/oauth2/applications/@me"
	EndpointUserSettings = "/users/@me/settings"
	EndpointUserChannels = "/users/@me/channels"

	UserAgent = "DiscordBot (github.com/WelcomerTeam/Crust)"
)

// EndpointUser returns the path of a user.
func EndpointUser(userID Snowflake) string {
	return "/users/" + userID.String()
}

// InviteURL returns the authorization url used to add a bot to a server.
func InviteURL(applicationID Snowflake) string {
	return EndpointInvite + "?client_id=" + applicationID.String() + "&scope=bot"
}
