package state_test

import (
	"testing"

	"github.com/WelcomerTeam/Crust/discord"
	"github.com/WelcomerTeam/Crust/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(channelID, id discord.Snowflake, content string) *discord.Message {
	return &discord.Message{ID: id, ChannelID: channelID, Content: content}
}

func TestMessageCacheEvictsOldest(t *testing.T) {
	t.Parallel()

	cache := state.NewMessageCache(3)

	for id := discord.Snowflake(1); id <= 3; id++ {
		cache.Put(message(10, id, "hello"))
	}

	assert.Equal(t, []discord.Snowflake{1, 2, 3}, cache.Channel(10))

	cache.Put(message(10, 4, "hello"))

	assert.Equal(t, []discord.Snowflake{2, 3, 4}, cache.Channel(10))

	_, ok := cache.Get(10, 1)
	assert.False(t, ok)

	// Other channels have their own capacity.
	cache.Put(message(11, 1, "other"))
	assert.Equal(t, 4, cache.Len())
}

func TestMessageCacheInsertionOrder(t *testing.T) {
	t.Parallel()

	cache := state.NewMessageCache(2)

	// Eviction follows insertion, not id order.
	cache.Put(message(10, 50, "a"))
	cache.Put(message(10, 20, "b"))
	cache.Put(message(10, 30, "c"))

	assert.Equal(t, []discord.Snowflake{20, 30}, cache.Channel(10))

	// Replacing keeps the position.
	cache.Put(message(10, 20, "b2"))
	cache.Put(message(10, 40, "d"))

	assert.Equal(t, []discord.Snowflake{30, 40}, cache.Channel(10))
}

func TestMessageCacheUnbounded(t *testing.T) {
	t.Parallel()

	cache := state.NewMessageCache(state.MessageCacheUnbounded)

	for id := discord.Snowflake(1); id <= 500; id++ {
		cache.Put(message(10, id, "hello"))
	}

	assert.Equal(t, 500, cache.Len())

	_, ok := cache.Get(10, 1)
	assert.True(t, ok)
}

func TestMessageCacheDisabled(t *testing.T) {
	t.Parallel()

	cache := state.NewMessageCache(0)
	cache.Put(message(10, 1, "hello"))

	assert.Equal(t, 0, cache.Len())
}

func TestMessageCacheUpdate(t *testing.T) {
	t.Parallel()

	cache := state.NewMessageCache(state.DefaultMessageCacheLimit)
	cache.Put(&discord.Message{ID: 1, ChannelID: 10, Content: "original", Author: &discord.User{ID: 5}})

	before, after, err := cache.Update(10, 1, []byte(`{"id":"1","channel_id":"10","content":"edited"}`))
	require.NoError(t, err)
	require.NotNil(t, before)

	assert.Equal(t, "original", before.Content)
	assert.Equal(t, "edited", after.Content)
	require.NotNil(t, after.Author)
	assert.Equal(t, discord.Snowflake(5), after.Author.ID)

	cached, ok := cache.Get(10, 1)
	require.True(t, ok)
	assert.Equal(t, "edited", cached.Content)

	before, after, err = cache.Update(10, 2, []byte(`{"id":"2","channel_id":"10","embeds":[]}`))
	require.NoError(t, err)
	assert.Nil(t, before)
	assert.Equal(t, discord.Snowflake(2), after.ID)
}

func TestMessageCacheDelete(t *testing.T) {
	t.Parallel()

	cache := state.NewMessageCache(2)
	cache.Put(message(10, 1, "a"))
	cache.Put(message(10, 2, "b"))

	deleted, ok := cache.Delete(10, 1)
	require.True(t, ok)
	assert.Equal(t, "a", deleted.Content)

	cache.Put(message(10, 3, "c"))
	assert.Equal(t, []discord.Snowflake{2, 3}, cache.Channel(10))

	_, ok = cache.Delete(10, 1)
	assert.False(t, ok)
}

func TestMessageCacheReturnsCopies(t *testing.T) {
	t.Parallel()

	cache := state.NewMessageCache(2)
	original := message(10, 1, "a")
	cache.Put(original)

	original.Content = "mutated"

	cached, _ := cache.Get(10, 1)
	assert.Equal(t, "a", cached.Content)
}
