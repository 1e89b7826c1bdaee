package state

import (
	"sync"

	"github.com/WelcomerTeam/Crust/crustjson"
	"github.com/WelcomerTeam/Crust/discord"
	jsoniter "github.com/json-iterator/go"
)

const (
	// DefaultMessageCacheLimit is the number of messages kept per channel.
	DefaultMessageCacheLimit = 50

	// MessageCacheUnbounded disables eviction.
	MessageCacheUnbounded = -1
)

type channelMessages struct {
	order    []discord.Snowflake
	messages map[discord.Snowflake]*discord.Message
}

// MessageCache keeps the most recent messages of each channel in insertion
// order. When a channel is full the oldest inserted message is evicted.
type MessageCache struct {
	mu       sync.Mutex
	limit    int
	channels map[discord.Snowflake]*channelMessages
}

// NewMessageCache creates a cache holding limit messages per channel. A
// limit of -1 never evicts and 0 caches nothing.
func NewMessageCache(limit int) *MessageCache {
	return &MessageCache{
		limit:    limit,
		channels: make(map[discord.Snowflake]*channelMessages),
	}
}

func (c *MessageCache) Limit() int {
	return c.limit
}

// Put stores a message snapshot. Replacing a cached message keeps its
// position.
func (c *MessageCache) Put(message *discord.Message) {
	if c.limit == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(cloneMessage(message))
}

func (c *MessageCache) put(message *discord.Message) {
	channel, ok := c.channels[message.ChannelID]
	if !ok {
		channel = &channelMessages{
			messages: make(map[discord.Snowflake]*discord.Message),
		}

		c.channels[message.ChannelID] = channel
	}

	if _, exists := channel.messages[message.ID]; exists {
		channel.messages[message.ID] = message

		return
	}

	if c.limit > 0 && len(channel.order)+1 > c.limit {
		oldest := channel.order[0]
		channel.order = channel.order[1:]

		delete(channel.messages, oldest)
	}

	channel.order = append(channel.order, message.ID)
	channel.messages[message.ID] = message
}

// Get returns a copy of a cached message.
func (c *MessageCache) Get(channelID, messageID discord.Snowflake) (*discord.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel, ok := c.channels[channelID]
	if !ok {
		return nil, false
	}

	message, ok := channel.messages[messageID]
	if !ok {
		return nil, false
	}

	return cloneMessage(message), true
}

// Update applies a partial message update on top of the cached snapshot.
// It returns the snapshot prior to the update, or nil when the message was
// not cached, and the resulting message.
func (c *MessageCache) Update(channelID, messageID discord.Snowflake, data jsoniter.RawMessage) (before, after *discord.Message, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	after = &discord.Message{}

	if channel, ok := c.channels[channelID]; ok {
		if cached, ok := channel.messages[messageID]; ok {
			before = cloneMessage(cached)
			after = cloneMessage(cached)
		}
	}

	err = crustjson.Unmarshal(data, after)
	if err != nil {
		return nil, nil, err
	}

	after.ID = messageID
	after.ChannelID = channelID

	if c.limit != 0 {
		c.put(cloneMessage(after))
	}

	return before, after, nil
}

// Delete removes a message and returns it when it was cached.
func (c *MessageCache) Delete(channelID, messageID discord.Snowflake) (*discord.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel, ok := c.channels[channelID]
	if !ok {
		return nil, false
	}

	message, ok := channel.messages[messageID]
	if !ok {
		return nil, false
	}

	delete(channel.messages, messageID)

	for i, id := range channel.order {
		if id == messageID {
			channel.order = append(channel.order[:i], channel.order[i+1:]...)

			break
		}
	}

	if len(channel.messages) == 0 {
		delete(c.channels, channelID)
	}

	return message, true
}

// Channel returns the cached message ids of a channel, oldest first.
func (c *MessageCache) Channel(channelID discord.Snowflake) []discord.Snowflake {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel, ok := c.channels[channelID]
	if !ok {
		return nil
	}

	return append([]discord.Snowflake(nil), channel.order...)
}

// Len returns the number of cached messages across all channels.
func (c *MessageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0

	for _, channel := range c.channels {
		total += len(channel.messages)
	}

	return total
}

func cloneMessage(message *discord.Message) *discord.Message {
	c := *message

	if message.Author != nil {
		author := *message.Author
		c.Author = &author
	}

	if message.Mentions != nil {
		c.Mentions = make([]*discord.User, len(message.Mentions))

		for i, user := range message.Mentions {
			u := *user
			c.Mentions[i] = &u
		}
	}

	c.MentionRoles = append([]discord.Snowflake(nil), message.MentionRoles...)
	c.Attachments = append([]jsoniter.RawMessage(nil), message.Attachments...)
	c.Embeds = append([]jsoniter.RawMessage(nil), message.Embeds...)

	return &c
}
