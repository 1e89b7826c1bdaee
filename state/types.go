package state

import (
	"github.com/WelcomerTeam/Crust/discord"
)

// Server is the local mirror of a guild. Channels are not owned by the
// server: channelIDs indexes the store's flat channel map.
type Server struct {
	ID          discord.Snowflake
	Name        string
	Icon        string
	OwnerID     discord.Snowflake
	Region      string
	JoinedAt    discord.Timestamp
	Large       bool
	Unavailable bool
	MemberCount int32

	Members map[discord.Snowflake]*Member
	Roles   map[discord.Snowflake]*Role
	Emojis  map[discord.Snowflake]*Emoji

	channelIDs map[discord.Snowflake]struct{}
}

// ChannelIDs returns the ids of the channels belonging to the server.
func (s *Server) ChannelIDs() []discord.Snowflake {
	ids := make([]discord.Snowflake, 0, len(s.channelIDs))

	for id := range s.channelIDs {
		ids = append(ids, id)
	}

	return ids
}

func (s *Server) clone() *Server {
	c := *s

	if s.Members != nil {
		c.Members = make(map[discord.Snowflake]*Member, len(s.Members))

		for id, member := range s.Members {
			c.Members[id] = member.clone()
		}
	}

	if s.Roles != nil {
		c.Roles = make(map[discord.Snowflake]*Role, len(s.Roles))

		for id, role := range s.Roles {
			r := *role
			c.Roles[id] = &r
		}
	}

	if s.Emojis != nil {
		c.Emojis = make(map[discord.Snowflake]*Emoji, len(s.Emojis))

		for id, emoji := range s.Emojis {
			c.Emojis[id] = emoji.clone()
		}
	}

	if s.channelIDs != nil {
		c.channelIDs = make(map[discord.Snowflake]struct{}, len(s.channelIDs))

		for id := range s.channelIDs {
			c.channelIDs[id] = struct{}{}
		}
	}

	return &c
}

// Overwrite is the allow and deny pair of a permission override.
type Overwrite struct {
	Allow discord.Permissions
	Deny  discord.Permissions
}

// ChannelPermissions holds the permission overrides of a channel.
type ChannelPermissions struct {
	ByUser map[discord.Snowflake]Overwrite
	ByRole map[discord.Snowflake]Overwrite
}

// VoiceState is a user's presence in a voice channel.
type VoiceState struct {
	UserID    discord.Snowflake
	ChannelID discord.Snowflake
	SessionID string
	Deaf      bool
	Mute      bool
	SelfDeaf  bool
	SelfMute  bool
}

// Channel is the local mirror of a server channel.
type Channel struct {
	ID            discord.Snowflake
	ServerID      discord.Snowflake
	Type          discord.ChannelType
	Name          string
	Topic         string
	Position      int32
	NSFW          bool
	Bitrate       int32
	UserLimit     int32
	ParentID      discord.Snowflake
	LastMessageID discord.Snowflake

	// Members is the voice occupancy of the channel.
	Members     map[discord.Snowflake]*VoiceState
	Permissions ChannelPermissions
}

func (c *Channel) clone() *Channel {
	n := *c

	n.Members = make(map[discord.Snowflake]*VoiceState, len(c.Members))

	for id, voiceState := range c.Members {
		v := *voiceState
		n.Members[id] = &v
	}

	n.Permissions = ChannelPermissions{
		ByUser: make(map[discord.Snowflake]Overwrite, len(c.Permissions.ByUser)),
		ByRole: make(map[discord.Snowflake]Overwrite, len(c.Permissions.ByRole)),
	}

	for id, overwrite := range c.Permissions.ByUser {
		n.Permissions.ByUser[id] = overwrite
	}

	for id, overwrite := range c.Permissions.ByRole {
		n.Permissions.ByRole[id] = overwrite
	}

	return &n
}

// DMChannel is a private channel with a single recipient.
type DMChannel struct {
	ID            discord.Snowflake
	RecipientID   discord.Snowflake
	Type          discord.ChannelType
	LastMessageID discord.Snowflake
}

// User is a discord user. Users may exist without belonging to a server.
type User struct {
	ID            discord.Snowflake
	Username      string
	Discriminator string
	Avatar        string
	Bot           bool
	Game          *discord.Activity
}

// AvatarURL returns the CDN url of the user's avatar.
func (u *User) AvatarURL() string {
	return discord.AvatarURL(u.ID, u.Avatar)
}

// CreationTime returns when the account was created.
func (u *User) CreationTime() int64 {
	return u.ID.Time().UnixMilli()
}

func (u *User) clone() *User {
	c := *u

	if u.Game != nil {
		g := *u.Game
		c.Game = &g
	}

	return &c
}

// Member is a user's membership of a server. Identity fields are read from
// the referenced User through the accessor methods.
type Member struct {
	ID             discord.Snowflake
	ServerID       discord.Snowflake
	Nick           string
	Roles          []discord.Snowflake
	JoinedAt       discord.Timestamp
	Color          discord.Color
	Status         discord.Status
	VoiceChannelID discord.Snowflake
	Deaf           bool
	Mute           bool

	store *Store
}

func (m *Member) clone() *Member {
	c := *m
	c.Roles = append([]discord.Snowflake(nil), m.Roles...)

	return &c
}

// User returns a snapshot of the referenced user.
func (m *Member) User() *User {
	if m.store == nil {
		return nil
	}

	user, _ := m.store.User(m.ID)

	return user
}

func (m *Member) Username() string {
	if user := m.User(); user != nil {
		return user.Username
	}

	return ""
}

func (m *Member) Discriminator() string {
	if user := m.User(); user != nil {
		return user.Discriminator
	}

	return ""
}

func (m *Member) Avatar() string {
	if user := m.User(); user != nil {
		return user.Avatar
	}

	return ""
}

func (m *Member) Bot() bool {
	if user := m.User(); user != nil {
		return user.Bot
	}

	return false
}

func (m *Member) Game() *discord.Activity {
	if user := m.User(); user != nil {
		return user.Game
	}

	return nil
}

// HasRole reports whether the member holds the role.
func (m *Member) HasRole(roleID discord.Snowflake) bool {
	for _, id := range m.Roles {
		if id == roleID {
			return true
		}
	}

	return false
}

// Role is a server role.
type Role struct {
	ID          discord.Snowflake
	Name        string
	Color       discord.Color
	Hoist       bool
	Position    int32
	Permissions discord.Permissions
	Managed     bool
	Mentionable bool
}

// Emoji is a custom server emoji.
type Emoji struct {
	ID            discord.Snowflake
	Name          string
	Roles         []discord.Snowflake
	RequireColons bool
	Managed       bool
	Animated      bool
}

func (e *Emoji) clone() *Emoji {
	c := *e
	c.Roles = append([]discord.Snowflake(nil), e.Roles...)

	return &c
}

// displayColor returns the colour of the highest positioned coloured role.
// The first role seen at a given position wins ties.
func displayColor(roles map[discord.Snowflake]*Role, roleIDs []discord.Snowflake) discord.Color {
	best := int32(-1)
	color := discord.ColorDefault

	for _, roleID := range roleIDs {
		role, ok := roles[roleID]
		if !ok {
			continue
		}

		if role.Position > best && role.Color != discord.ColorDefault {
			best = role.Position
			color = role.Color
		}
	}

	return color
}
