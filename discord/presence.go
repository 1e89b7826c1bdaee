package discord

// Status is the online status of a user.
type Status string

const (
	StatusOnline    Status = "online"
	StatusIdle      Status = "idle"
	StatusDND       Status = "dnd"
	StatusInvisible Status = "invisible"
	StatusOffline   Status = "offline"
)

// ActivityType represents the type of an activity.
type ActivityType uint8

const (
	ActivityTypeGame ActivityType = iota
	ActivityTypeStreaming
	ActivityTypeListening
	ActivityTypeWatching
	ActivityTypeCustom
	ActivityTypeCompeting
)

// Activity is the game a user is playing.
type Activity struct {
	Name string       `json:"name"`
	Type ActivityType `json:"type"`
	URL  string       `json:"url,omitempty"`
}

// Presence is a user's presence within a guild.
type Presence struct {
	User       *User       `json:"user"`
	GuildID    Snowflake   `json:"guild_id,omitempty"`
	Status     Status      `json:"status"`
	Game       *Activity   `json:"game,omitempty"`
	Activities []*Activity `json:"activities,omitempty"`
	Nick       string      `json:"nick,omitempty"`
	Roles      []Snowflake `json:"roles,omitempty"`
}

// CurrentGame returns the legacy game field or the first activity.
func (p *Presence) CurrentGame() *Activity {
	if p.Game != nil {
		return p.Game
	}

	if len(p.Activities) > 0 {
		return p.Activities[0]
	}

	return nil
}
