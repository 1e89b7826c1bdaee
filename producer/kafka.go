package producer

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

func init() {
	register("kafka", func() Producer { return &KafkaProducer{} })
}

type KafkaProducer struct {
	KafkaClient *kafka.Writer

	channel string
}

func parseKafkaBalancer(balancer string) kafka.Balancer {
	switch balancer {
	case "crc32":
		return &kafka.CRC32Balancer{}
	case "hash":
		return &kafka.Hash{}
	case "murmur2":
		return &kafka.Murmur2Balancer{}
	case "roundrobin":
		return &kafka.RoundRobin{}
	case "leastbytes":
		return &kafka.LeastBytes{}
	default:
		return nil
	}
}

func (p *KafkaProducer) String() string {
	return "kafka"
}

func (p *KafkaProducer) Channel() string {
	return p.channel
}

func (p *KafkaProducer) Connect(_ context.Context, clientName string, args map[string]interface{}) error {
	address, ok := getString(args, "Address")
	if !ok {
		return fmt.Errorf("kafka connect: %w: Address", ErrMissingArgument)
	}

	channel, ok := getString(args, "Channel")
	if !ok {
		return fmt.Errorf("kafka connect: %w: Channel", ErrMissingArgument)
	}

	p.channel = channel

	balancer, _ := getString(args, "Balancer")

	p.KafkaClient = &kafka.Writer{
		Addr:     kafka.TCP(address),
		Topic:    channel,
		Balancer: parseKafkaBalancer(balancer),
		Async:    getBool(args, "Async"),
		Transport: &kafka.Transport{
			ClientID: clientName,
		},
	}

	return nil
}

// Publish keys messages by event type so a type keeps its ordering within
// a partition.
func (p *KafkaProducer) Publish(ctx context.Context, eventType string, data []byte) error {
	if p.KafkaClient == nil {
		return ErrNotConnected
	}

	return p.KafkaClient.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: data,
	})
}

func (p *KafkaProducer) Close() error {
	if p.KafkaClient == nil {
		return nil
	}

	return p.KafkaClient.Close()
}
