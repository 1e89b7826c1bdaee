package producer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func init() {
	register("jetstream", func() Producer { return &JetStreamProducer{} })
}

// JetStreamProducer publishes to the subject <channel>.<event type> of a
// stream named after the channel.
type JetStreamProducer struct {
	NatsClient      *nats.Conn          `json:"-"`
	JetStreamClient jetstream.JetStream `json:"-"`
	JetStreamStream jetstream.Stream    `json:"-"`

	channel string
}

func (p *JetStreamProducer) String() string {
	return "jetstream"
}

func (p *JetStreamProducer) Channel() string {
	return p.channel
}

func (p *JetStreamProducer) Connect(ctx context.Context, clientName string, args map[string]interface{}) error {
	address, ok := getString(args, "Address")
	if !ok {
		return fmt.Errorf("jetstream connect: %w: Address", ErrMissingArgument)
	}

	channel, ok := getString(args, "Channel")
	if !ok {
		return fmt.Errorf("jetstream connect: %w: Channel", ErrMissingArgument)
	}

	p.channel = channel

	var err error

	p.NatsClient, err = nats.Connect(address, nats.Name(clientName))
	if err != nil {
		return fmt.Errorf("jetstream connect nats: %w", err)
	}

	p.JetStreamClient, err = jetstream.New(p.NatsClient)
	if err != nil {
		return fmt.Errorf("jetstream new: %w", err)
	}

	retention := jetstream.WorkQueuePolicy
	if getBool(args, "UseInterestPolicy") {
		retention = jetstream.InterestPolicy
	}

	p.JetStreamStream, err = p.JetStreamClient.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:              p.channel,
		Subjects:          []string{p.channel + ".*"},
		Retention:         retention,
		Discard:           jetstream.DiscardOld,
		MaxAge:            5 * time.Minute,
		Storage:           jetstream.MemoryStorage,
		MaxMsgsPerSubject: 1_000_000,
		MaxMsgSize:        math.MaxInt32,
		NoAck:             false,
	})
	if err != nil {
		return fmt.Errorf("jetstream create stream: %w", err)
	}

	return nil
}

func (p *JetStreamProducer) Publish(ctx context.Context, eventType string, data []byte) error {
	if p.JetStreamClient == nil {
		return ErrNotConnected
	}

	_, err := p.JetStreamClient.Publish(ctx, p.channel+"."+eventType, data)

	return err
}

func (p *JetStreamProducer) Close() error {
	if p.NatsClient != nil {
		p.NatsClient.Close()
	}

	return nil
}
