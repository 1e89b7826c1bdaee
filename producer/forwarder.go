package producer

import (
	"context"
	"fmt"
	"time"

	crust "github.com/WelcomerTeam/Crust"
	"github.com/WelcomerTeam/Crust/crustjson"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

const (
	DefaultQueueSize      = 1024
	DefaultPublishTimeout = 5 * time.Second
)

// Envelope is the message published for every forwarded event.
type Envelope struct {
	Type      string              `json:"type"`
	Client    string              `json:"client"`
	Data      jsoniter.RawMessage `json:"data"`
	Timestamp int64               `json:"timestamp"`
}

type ForwarderOptions struct {
	// Client is included in every envelope.
	Client string

	// Blacklist lists event types that are not forwarded.
	Blacklist []string

	QueueSize      int
	PublishTimeout time.Duration
}

// Forwarder publishes client events to a Producer. Handle never blocks the
// dispatch goroutine: events are queued and published by Run.
type Forwarder struct {
	Logger zerolog.Logger

	producer  Producer
	options   ForwarderOptions
	blacklist map[string]struct{}

	queue chan Envelope

	now func() time.Time
}

func NewForwarder(logger zerolog.Logger, producer Producer, options ForwarderOptions) *Forwarder {
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultQueueSize
	}

	if options.PublishTimeout <= 0 {
		options.PublishTimeout = DefaultPublishTimeout
	}

	blacklist := make(map[string]struct{}, len(options.Blacklist))
	for _, eventType := range options.Blacklist {
		blacklist[eventType] = struct{}{}
	}

	return &Forwarder{
		Logger: logger.With().Str("producer", producer.String()).Logger(),

		producer:  producer,
		options:   options,
		blacklist: blacklist,

		queue: make(chan Envelope, options.QueueSize),

		now: time.Now,
	}
}

// EventName returns the name an event is forwarded under.
func EventName(event crust.Event) string {
	if dispatch, ok := event.(crust.DispatchEvent); ok {
		return dispatch.Name
	}

	return event.Type().String()
}

// Handle is a crust.EventHandler.
func (f *Forwarder) Handle(event crust.Event) {
	name := EventName(event)

	if _, blacklisted := f.blacklist[name]; blacklisted {
		return
	}

	envelope, err := f.envelope(name, event)
	if err != nil {
		f.Logger.Warn().Err(err).Str("type", name).Msg("Failed to encode event")

		return
	}

	select {
	case f.queue <- envelope:
	default:
		forwarderMetrics.Dropped.WithLabelValues(f.producer.String()).Inc()

		f.Logger.Warn().Str("type", name).Msg("Forwarding queue is full, dropping event")
	}
}

func (f *Forwarder) envelope(name string, event crust.Event) (Envelope, error) {
	var data interface{} = event

	// Unknown dispatches are forwarded with their original payload.
	if dispatch, ok := event.(crust.DispatchEvent); ok {
		data = dispatch.Data
	}

	raw, err := crustjson.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return Envelope{
		Type:      name,
		Client:    f.options.Client,
		Data:      raw,
		Timestamp: f.now().UnixMilli(),
	}, nil
}

// Run publishes queued events until ctx is done.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope := <-f.queue:
			f.publish(ctx, envelope)
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, envelope Envelope) {
	payload, err := crustjson.Marshal(envelope)
	if err != nil {
		f.Logger.Error().Err(err).Msg("Failed to marshal envelope")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, f.options.PublishTimeout)
	defer cancel()

	err = f.producer.Publish(ctx, envelope.Type, payload)
	if err != nil {
		forwarderMetrics.Failed.WithLabelValues(f.producer.String(), envelope.Type).Inc()

		f.Logger.Error().Err(err).Str("type", envelope.Type).Msg("Failed to publish event")

		return
	}

	forwarderMetrics.Published.WithLabelValues(f.producer.String(), envelope.Type).Inc()
}
