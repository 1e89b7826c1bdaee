package producer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/stan.go"
)

func init() {
	register("stan", func() Producer { return &StanProducer{} })
}

type StanProducer struct {
	NatsClient *nats.Conn `json:"-"`
	StanClient stan.Conn  `json:"-"`

	async bool

	channel string
	cluster string
}

func (p *StanProducer) String() string {
	return "stan"
}

func (p *StanProducer) Channel() string {
	return p.channel
}

func (p *StanProducer) Cluster() string {
	return p.cluster
}

func (p *StanProducer) Connect(_ context.Context, clientName string, args map[string]interface{}) error {
	address, ok := getString(args, "Address")
	if !ok {
		return fmt.Errorf("stan connect: %w: Address", ErrMissingArgument)
	}

	cluster, ok := getString(args, "Cluster")
	if !ok {
		return fmt.Errorf("stan connect: %w: Cluster", ErrMissingArgument)
	}

	channel, ok := getString(args, "Channel")
	if !ok {
		return fmt.Errorf("stan connect: %w: Channel", ErrMissingArgument)
	}

	p.cluster = cluster
	p.channel = channel
	p.async = getBool(args, "Async")

	useNatsConnection := true

	if value, ok := getString(args, "UseNATSConnection"); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			useNatsConnection = parsed
		}
	}

	var option stan.Option

	if useNatsConnection {
		var err error

		p.NatsClient, err = nats.Connect(address)
		if err != nil {
			return fmt.Errorf("stan connect nats: %w", err)
		}

		option = stan.NatsConn(p.NatsClient)
	} else {
		option = stan.NatsURL(address)
	}

	var err error

	p.StanClient, err = stan.Connect(cluster, clientName, option)
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}

	return nil
}

func (p *StanProducer) Publish(_ context.Context, _ string, data []byte) error {
	if p.StanClient == nil {
		return ErrNotConnected
	}

	if p.async {
		_, err := p.StanClient.PublishAsync(p.channel, data, nil)

		return err
	}

	return p.StanClient.Publish(p.channel, data)
}

func (p *StanProducer) Close() error {
	if p.StanClient != nil {
		err := p.StanClient.Close()
		if err != nil {
			return fmt.Errorf("stan close: %w", err)
		}
	}

	if p.NatsClient != nil {
		p.NatsClient.Close()
	}

	return nil
}
