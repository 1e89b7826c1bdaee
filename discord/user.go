package discord

import "strings"

// user.go represents all structures for a discord user.

// User represents a user on discord.
type User struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
	GlobalName    string    `json:"global_name,omitempty"`
	Avatar        string    `json:"avatar"`
	Bot           bool      `json:"bot"`
	Verified      bool      `json:"verified,omitempty"`
	Email         string    `json:"email,omitempty"`
}

// AvatarURL returns the CDN url of the user's avatar or an empty string
// when the user has none.
func (u *User) AvatarURL() string {
	return AvatarURL(u.ID, u.Avatar)
}

// AvatarURL builds the CDN url for an avatar hash. Animated hashes are
// prefixed with a_ and served as gif.
func AvatarURL(userID Snowflake, hash string) string {
	if hash == "" {
		return ""
	}

	extension := ".webp"
	if strings.Contains(hash, "a_") {
		extension = ".gif"
	}

	return EndpointCDN + "/avatars/" + userID.String() + "/" + hash + extension
}

// Application is the oauth application owning a bot account.
type Application struct {
	ID          Snowflake `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       *User     `json:"owner,omitempty"`
	BotPublic   bool      `json:"bot_public"`
}
