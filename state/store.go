package state

import (
	"sync"

	"github.com/WelcomerTeam/Crust/discord"
)

// Store is the in-memory mirror of the entity graph. It is written by the
// gateway dispatch loop and may be read from any goroutine. Every getter
// returns a snapshot.
type Store struct {
	mu sync.RWMutex

	self     *User
	settings discord.UserSettings

	servers  map[discord.Snowflake]*Server
	channels map[discord.Snowflake]*Channel
	users    map[discord.Snowflake]*User

	directMessages map[discord.Snowflake]*DMChannel
	userDMs        map[discord.Snowflake]discord.Snowflake
}

func NewStore() *Store {
	return &Store{
		settings:       make(discord.UserSettings),
		servers:        make(map[discord.Snowflake]*Server),
		channels:       make(map[discord.Snowflake]*Channel),
		users:          make(map[discord.Snowflake]*User),
		directMessages: make(map[discord.Snowflake]*DMChannel),
		userDMs:        make(map[discord.Snowflake]discord.Snowflake),
	}
}

// Counts summarises the size of the store.
type Counts struct {
	Servers        int
	Channels       int
	Users          int
	Members        int
	DirectMessages int
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := Counts{
		Servers:        len(s.servers),
		Channels:       len(s.channels),
		Users:          len(s.users),
		DirectMessages: len(s.directMessages),
	}

	for _, server := range s.servers {
		counts.Members += len(server.Members)
	}

	return counts
}

// Reset removes every entity.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.self = nil
	s.settings = make(discord.UserSettings)
	s.servers = make(map[discord.Snowflake]*Server)
	s.channels = make(map[discord.Snowflake]*Channel)
	s.users = make(map[discord.Snowflake]*User)
	s.directMessages = make(map[discord.Snowflake]*DMChannel)
	s.userDMs = make(map[discord.Snowflake]discord.Snowflake)
}

// Lookups.

func (s *Store) Self() (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.self == nil {
		return nil, false
	}

	return s.self.clone(), true
}

func (s *Store) Settings() discord.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := make(discord.UserSettings, len(s.settings))

	for key, value := range s.settings {
		settings[key] = value
	}

	return settings
}

func (s *Store) Server(serverID discord.Snowflake) (*Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.servers[serverID]
	if !ok {
		return nil, false
	}

	return server.clone(), true
}

func (s *Store) ServerIDs() []discord.Snowflake {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]discord.Snowflake, 0, len(s.servers))

	for id := range s.servers {
		ids = append(ids, id)
	}

	return ids
}

// Channel returns a server channel.
func (s *Store) Channel(channelID discord.Snowflake) (*Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel, ok := s.channels[channelID]
	if !ok {
		return nil, false
	}

	return channel.clone(), true
}

// ServerChannel returns a channel through the server's view.
func (s *Store) ServerChannel(serverID, channelID discord.Snowflake) (*Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel := s.serverChannel(serverID, channelID)
	if channel == nil {
		return nil, false
	}

	return channel.clone(), true
}

func (s *Store) ServerChannels(serverID discord.Snowflake) []*Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.servers[serverID]
	if !ok {
		return nil
	}

	channels := make([]*Channel, 0, len(server.channelIDs))

	for id := range server.channelIDs {
		if channel, ok := s.channels[id]; ok {
			channels = append(channels, channel.clone())
		}
	}

	return channels
}

func (s *Store) serverChannel(serverID, channelID discord.Snowflake) *Channel {
	server, ok := s.servers[serverID]
	if !ok {
		return nil
	}

	if _, ok := server.channelIDs[channelID]; !ok {
		return nil
	}

	return s.channels[channelID]
}

func (s *Store) Member(serverID, userID discord.Snowflake) (*Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.servers[serverID]
	if !ok {
		return nil, false
	}

	member, ok := server.Members[userID]
	if !ok {
		return nil, false
	}

	return member.clone(), true
}

func (s *Store) Role(serverID, roleID discord.Snowflake) (*Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.servers[serverID]
	if !ok {
		return nil, false
	}

	role, ok := server.Roles[roleID]
	if !ok {
		return nil, false
	}

	r := *role

	return &r, true
}

func (s *Store) User(userID discord.Snowflake) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, false
	}

	return user.clone(), true
}

func (s *Store) DirectMessage(channelID discord.Snowflake) (*DMChannel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dm, ok := s.directMessages[channelID]
	if !ok {
		return nil, false
	}

	d := *dm

	return &d, true
}

// DirectMessageFor returns the DM channel id used to reach a user.
func (s *Store) DirectMessageFor(userID discord.Snowflake) (discord.Snowflake, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channelID, ok := s.userDMs[userID]

	return channelID, ok
}

// PendingServers returns the number of servers still waiting for their
// full snapshot.
func (s *Store) PendingServers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := 0

	for _, server := range s.servers {
		if server.Unavailable {
			pending++
		}
	}

	return pending
}

// AllMembersCollected reports whether every server holds as many members
// as its member count hint.
func (s *Store) AllMembersCollected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, server := range s.servers {
		if server.Members == nil {
			continue
		}

		if int(server.MemberCount) != len(server.Members) {
			return false
		}
	}

	return true
}

// IncompleteServers returns the servers with missing members. Bot accounts
// only receive offline members for large servers.
func (s *Store) IncompleteServers(bot bool) []discord.Snowflake {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]discord.Snowflake, 0)

	for id, server := range s.servers {
		if server.Members == nil || int(server.MemberCount) == len(server.Members) {
			continue
		}

		if bot && !server.Large {
			continue
		}

		ids = append(ids, id)
	}

	return ids
}

// Mutations.

// LoadReady replaces the store contents with the READY snapshot.
func (s *Store) LoadReady(ready *discord.Ready) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.servers = make(map[discord.Snowflake]*Server)
	s.channels = make(map[discord.Snowflake]*Channel)
	s.directMessages = make(map[discord.Snowflake]*DMChannel)
	s.userDMs = make(map[discord.Snowflake]discord.Snowflake)

	s.self = DiscordToStateUser(&ready.User)
	s.users[s.self.ID] = s.self.clone()

	if ready.UserSettings != nil {
		s.settings = ready.UserSettings
	}

	for _, guild := range ready.Guilds {
		s.createServer(guild)
	}

	for _, channel := range ready.PrivateChannels {
		s.createDM(channel)
	}

	for _, presence := range ready.Presences {
		s.updatePresence(presence)
	}
}

// UpdateSelf patches the client user and returns its previous value.
func (s *Store) UpdateSelf(user *discord.User) (before *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.self != nil {
		before = s.self.clone()
	}

	s.self = DiscordToStateUser(user)
	s.patchUser(user)

	return before
}

// UpdateSettings merges the settings keys.
func (s *Store) UpdateSettings(settings discord.UserSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range settings {
		s.settings[key] = value
	}
}

// CreateServer stores a full server snapshot, replacing any previous one.
func (s *Store) CreateServer(guild *discord.Guild) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createServer(guild).clone()
}

func (s *Store) createServer(guild *discord.Guild) *Server {
	if previous, ok := s.servers[guild.ID]; ok {
		for id := range previous.channelIDs {
			delete(s.channels, id)
		}
	}

	server := &Server{
		ID:          guild.ID,
		Name:        guild.Name,
		Icon:        guild.Icon,
		OwnerID:     guild.OwnerID,
		Region:      guild.Region,
		JoinedAt:    guild.JoinedAt,
		Large:       guild.Large,
		Unavailable: guild.Unavailable,
		MemberCount: guild.MemberCount,
		channelIDs:  make(map[discord.Snowflake]struct{}),
	}

	s.servers[guild.ID] = server

	if guild.Unavailable {
		return server
	}

	server.Members = make(map[discord.Snowflake]*Member, len(guild.Members))
	server.Roles = make(map[discord.Snowflake]*Role, len(guild.Roles))
	server.Emojis = make(map[discord.Snowflake]*Emoji, len(guild.Emojis))

	for _, role := range guild.Roles {
		server.Roles[role.ID] = DiscordToStateRole(role)
	}

	for _, emoji := range guild.Emojis {
		server.Emojis[emoji.ID] = DiscordToStateEmoji(emoji)
	}

	for _, channel := range guild.Channels {
		channel.GuildID = guild.ID
		s.createServerChannel(channel)
	}

	for _, member := range guild.Members {
		s.addMember(server, member)
	}

	for _, presence := range guild.Presences {
		presence.GuildID = guild.ID
		s.updatePresence(presence)
	}

	for _, voiceState := range guild.VoiceStates {
		voiceState.GuildID = guild.ID
		s.updateVoiceState(voiceState)
	}

	return server
}

// UpdateServer merges the changed server fields. Roles are replaced,
// emojis are left untouched.
func (s *Store) UpdateServer(guild *discord.Guild) (before, after *Server, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[guild.ID]
	if !ok {
		return nil, nil, false
	}

	before = server.clone()

	server.Name = guild.Name
	server.Icon = guild.Icon
	server.OwnerID = guild.OwnerID
	server.Region = guild.Region
	server.Unavailable = guild.Unavailable

	if guild.MemberCount != 0 {
		server.MemberCount = guild.MemberCount
	}

	if guild.Roles != nil {
		server.Roles = make(map[discord.Snowflake]*Role, len(guild.Roles))

		for _, role := range guild.Roles {
			server.Roles[role.ID] = DiscordToStateRole(role)
		}

		for _, member := range server.Members {
			member.Color = displayColor(server.Roles, member.Roles)
		}
	}

	return before, server.clone(), true
}

// DeleteServer removes a server and its channels.
func (s *Store) DeleteServer(serverID discord.Snowflake) (before *Server, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[serverID]
	if !ok {
		return nil, false
	}

	for id := range server.channelIDs {
		delete(s.channels, id)
	}

	delete(s.servers, serverID)

	return server.clone(), true
}

// AddMember adds a member and increments the member count hint.
func (s *Store) AddMember(member *discord.GuildMember) (*Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[member.GuildID]
	if !ok || member.User == nil || server.Members == nil {
		return nil, false
	}

	server.MemberCount++

	return s.addMember(server, member).clone(), true
}

func (s *Store) addMember(server *Server, guildMember *discord.GuildMember) *Member {
	if guildMember.User == nil {
		return nil
	}

	s.patchUser(guildMember.User)

	member, ok := server.Members[guildMember.User.ID]
	if !ok {
		member = &Member{
			ID:       guildMember.User.ID,
			ServerID: server.ID,
			Status:   discord.StatusOffline,
			store:    s,
		}

		server.Members[member.ID] = member
	}

	member.Nick = guildMember.Nick
	member.Roles = append([]discord.Snowflake(nil), guildMember.Roles...)
	member.JoinedAt = guildMember.JoinedAt
	member.Deaf = guildMember.Deaf
	member.Mute = guildMember.Mute
	member.Color = displayColor(server.Roles, member.Roles)

	return member
}

// UpdateMember applies a member update and recomputes its colour.
func (s *Store) UpdateMember(update *discord.GuildMemberUpdate) (before, after *Member, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[update.GuildID]
	if !ok || update.User == nil || server.Members == nil {
		return nil, nil, false
	}

	s.patchUser(update.User)

	member, ok := server.Members[update.User.ID]
	if !ok {
		return nil, nil, false
	}

	before = member.clone()

	member.Nick = update.Nick
	member.Roles = append([]discord.Snowflake(nil), update.Roles...)
	member.Color = displayColor(server.Roles, member.Roles)

	return before, member.clone(), true
}

// RemoveMember removes a member and decrements the member count hint.
// Removing the client user itself is ignored.
func (s *Store) RemoveMember(serverID, userID discord.Snowflake) (before *Member, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.self != nil && s.self.ID == userID {
		return nil, false
	}

	server, ok := s.servers[serverID]
	if !ok {
		return nil, false
	}

	member, ok := server.Members[userID]
	if ok {
		before = member.clone()

		delete(server.Members, userID)
	}

	if server.MemberCount > 0 {
		server.MemberCount--
	}

	return before, true
}

func (s *Store) CreateRole(serverID discord.Snowflake, role *discord.Role) (*Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[serverID]
	if !ok || server.Roles == nil {
		return nil, false
	}

	stateRole := DiscordToStateRole(role)
	server.Roles[role.ID] = stateRole

	r := *stateRole

	return &r, true
}

// UpdateRole replaces a role and recolours every member holding it.
func (s *Store) UpdateRole(serverID discord.Snowflake, role *discord.Role) (before, after *Role, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[serverID]
	if !ok || server.Roles == nil {
		return nil, nil, false
	}

	if previous, exists := server.Roles[role.ID]; exists {
		b := *previous
		before = &b
	}

	stateRole := DiscordToStateRole(role)
	server.Roles[role.ID] = stateRole

	s.recolorHolders(server, role.ID)

	a := *stateRole

	return before, &a, true
}

// DeleteRole removes a role from the server and from its holders.
func (s *Store) DeleteRole(serverID, roleID discord.Snowflake) (before *Role, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[serverID]
	if !ok || server.Roles == nil {
		return nil, false
	}

	if previous, exists := server.Roles[roleID]; exists {
		b := *previous
		before = &b
	}

	delete(server.Roles, roleID)

	for _, member := range server.Members {
		if !member.HasRole(roleID) {
			continue
		}

		roles := member.Roles[:0]

		for _, id := range member.Roles {
			if id != roleID {
				roles = append(roles, id)
			}
		}

		member.Roles = roles
		member.Color = displayColor(server.Roles, member.Roles)
	}

	return before, true
}

func (s *Store) recolorHolders(server *Server, roleID discord.Snowflake) {
	for _, member := range server.Members {
		if member.HasRole(roleID) {
			member.Color = displayColor(server.Roles, member.Roles)
		}
	}
}

// CreateChannel stores a channel. Private channels go to the DM table.
func (s *Store) CreateChannel(channel *discord.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel.Type.IsPrivate() {
		s.createDM(channel)

		return
	}

	s.createServerChannel(channel)
}

func (s *Store) createServerChannel(channel *discord.Channel) *Channel {
	server, ok := s.servers[channel.GuildID]
	if !ok {
		return nil
	}

	stateChannel := DiscordToStateChannel(channel)

	if previous, ok := s.channels[channel.ID]; ok {
		stateChannel.Members = previous.Members
	}

	s.channels[channel.ID] = stateChannel
	server.channelIDs[channel.ID] = struct{}{}

	return stateChannel
}

func (s *Store) createDM(channel *discord.Channel) *DMChannel {
	dm := DiscordToStateDMChannel(channel)
	s.directMessages[dm.ID] = dm

	for _, recipient := range channel.Recipients {
		s.patchUser(recipient)
	}

	if dm.RecipientID != 0 {
		s.userDMs[dm.RecipientID] = dm.ID
	}

	return dm
}

// AddDirectMessage records a DM channel created through REST.
func (s *Store) AddDirectMessage(channel *discord.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.createDM(channel)
}

// UpdateChannel merges the changed channel fields in place so the server
// view keeps resolving to the same channel.
func (s *Store) UpdateChannel(channel *discord.Channel) (before, after *Channel, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.channels[channel.ID]
	if !ok {
		return nil, nil, false
	}

	before = existing.clone()

	existing.Type = channel.Type
	existing.Name = channel.Name
	existing.Topic = channel.Topic
	existing.Position = channel.Position
	existing.NSFW = channel.NSFW
	existing.Bitrate = channel.Bitrate
	existing.UserLimit = channel.UserLimit
	existing.ParentID = channel.ParentID

	if channel.PermissionOverwrites != nil {
		existing.Permissions = overwritesToPermissions(channel.PermissionOverwrites)
	}

	return before, existing.clone(), true
}

// DeleteChannel removes a server channel or a DM channel.
func (s *Store) DeleteChannel(channel *discord.Channel) (before *Channel, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel.Type.IsPrivate() {
		dm, exists := s.directMessages[channel.ID]
		if exists {
			delete(s.directMessages, channel.ID)

			if s.userDMs[dm.RecipientID] == channel.ID {
				delete(s.userDMs, dm.RecipientID)
			}
		}

		return nil, exists
	}

	existing, ok := s.channels[channel.ID]
	if !ok {
		return nil, false
	}

	delete(s.channels, channel.ID)

	if server, exists := s.servers[existing.ServerID]; exists {
		delete(server.channelIDs, channel.ID)
	}

	return existing, true
}

// UpdateEmojis replaces the emojis of a server.
func (s *Store) UpdateEmojis(update *discord.GuildEmojisUpdate) (before []*Emoji, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[update.GuildID]
	if !ok {
		return nil, false
	}

	before = make([]*Emoji, 0, len(server.Emojis))

	for _, emoji := range server.Emojis {
		before = append(before, emoji)
	}

	server.Emojis = make(map[discord.Snowflake]*Emoji, len(update.Emojis))

	for _, emoji := range update.Emojis {
		server.Emojis[emoji.ID] = DiscordToStateEmoji(emoji)
	}

	return before, true
}

// UpdatePresence applies a presence update. Presences without a server
// are ignored.
func (s *Store) UpdatePresence(presence *discord.Presence) (before, after *User, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if presence.GuildID == 0 || presence.User == nil {
		return nil, nil, false
	}

	if user, exists := s.users[presence.User.ID]; exists {
		before = user.clone()
	}

	user := s.updatePresence(presence)

	return before, user.clone(), true
}

func (s *Store) updatePresence(presence *discord.Presence) *User {
	if presence.User == nil {
		return nil
	}

	user := s.patchUser(presence.User)
	user.Game = presence.CurrentGame()

	server, ok := s.servers[presence.GuildID]
	if !ok || server.Members == nil {
		return user
	}

	member, ok := server.Members[user.ID]
	if !ok {
		return user
	}

	if presence.Status != "" {
		member.Status = presence.Status
	}

	if presence.Nick != "" {
		member.Nick = presence.Nick
	}

	if presence.Roles != nil {
		member.Roles = append([]discord.Snowflake(nil), presence.Roles...)
		member.Color = displayColor(server.Roles, member.Roles)
	}

	return user
}

// patchUser creates the user on first sight and copies the non-empty
// identity fields.
func (s *Store) patchUser(partial *discord.User) *User {
	user, ok := s.users[partial.ID]
	if !ok {
		user = &User{ID: partial.ID}
		s.users[partial.ID] = user
	}

	if partial.Username != "" {
		user.Username = partial.Username
		user.Bot = partial.Bot
	}

	if partial.Discriminator != "" {
		user.Discriminator = partial.Discriminator
	}

	if partial.Avatar != "" {
		user.Avatar = partial.Avatar
	}

	if s.self != nil && s.self.ID == user.ID && partial.Username != "" {
		game := s.self.Game
		s.self = user.clone()
		s.self.Game = game
	}

	return user
}

// UpdateVoiceState moves a user between voice channels and returns the
// channel the user previously occupied.
func (s *Store) UpdateVoiceState(voiceState *discord.VoiceState) (previousChannelID discord.Snowflake) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateVoiceState(voiceState)
}

func (s *Store) updateVoiceState(voiceState *discord.VoiceState) (previousChannelID discord.Snowflake) {
	server, ok := s.servers[voiceState.GuildID]
	if !ok {
		return 0
	}

	for id := range server.channelIDs {
		channel, ok := s.channels[id]
		if !ok {
			continue
		}

		if _, ok := channel.Members[voiceState.UserID]; ok {
			previousChannelID = channel.ID

			delete(channel.Members, voiceState.UserID)
		}
	}

	if voiceState.ChannelID != 0 {
		if channel := s.serverChannel(server.ID, voiceState.ChannelID); channel != nil {
			channel.Members[voiceState.UserID] = DiscordToStateVoiceState(voiceState)
		}
	}

	if server.Members != nil {
		if member, ok := server.Members[voiceState.UserID]; ok {
			member.VoiceChannelID = voiceState.ChannelID
			member.Deaf = voiceState.Deaf
			member.Mute = voiceState.Mute
		}
	}

	return previousChannelID
}

// AddMemberChunk adds the members that are not known yet.
func (s *Store) AddMemberChunk(chunk *discord.GuildMembersChunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[chunk.GuildID]
	if !ok || server.Members == nil {
		return false
	}

	for _, member := range chunk.Members {
		if member.User == nil {
			continue
		}

		if _, exists := server.Members[member.User.ID]; exists {
			continue
		}

		s.addMember(server, member)
	}

	for _, presence := range chunk.Presences {
		presence.GuildID = chunk.GuildID
		s.updatePresence(presence)
	}

	return true
}

// SyncServer applies a guild sync snapshot.
func (s *Store) SyncServer(sync *discord.GuildSync) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[sync.ID]
	if !ok || server.Members == nil {
		return false
	}

	server.Large = sync.Large

	for _, member := range sync.Members {
		s.addMember(server, member)
	}

	for _, presence := range sync.Presences {
		presence.GuildID = sync.ID
		s.updatePresence(presence)
	}

	return true
}
