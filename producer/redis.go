package producer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

func init() {
	register("redis", func() Producer { return &RedisProducer{} })
}

type RedisProducer struct {
	redisClient *redis.Client

	channel string
}

func (p *RedisProducer) String() string {
	return "redis"
}

func (p *RedisProducer) Channel() string {
	return p.channel
}

func (p *RedisProducer) Connect(ctx context.Context, _ string, args map[string]interface{}) error {
	address, ok := getString(args, "Address")
	if !ok {
		return fmt.Errorf("redis connect: %w: Address", ErrMissingArgument)
	}

	channel, ok := getString(args, "Channel")
	if !ok {
		return fmt.Errorf("redis connect: %w: Channel", ErrMissingArgument)
	}

	p.channel = channel

	password, _ := getString(args, "Password")

	var db int

	if value, ok := getString(args, "DB"); ok {
		var err error

		db, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("redis connect db atoi: %w", err)
		}
	}

	p.redisClient = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	err := p.redisClient.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("redis connect ping: %w", err)
	}

	return nil
}

func (p *RedisProducer) Publish(ctx context.Context, _ string, data []byte) error {
	if p.redisClient == nil {
		return ErrNotConnected
	}

	return p.redisClient.Publish(ctx, p.channel, data).Err()
}

func (p *RedisProducer) Close() error {
	if p.redisClient == nil {
		return nil
	}

	return p.redisClient.Close()
}
