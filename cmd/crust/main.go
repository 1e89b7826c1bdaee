package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	crust "github.com/WelcomerTeam/Crust"
	"github.com/WelcomerTeam/Crust/producer"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/valyala/fasthttp"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("crust", pflag.ContinueOnError)

	configPath := flags.String("config", "crust.yaml", "path of the YAML configuration")
	envPath := flags.String("env", ".env", "file of environment variables loaded before the configuration")
	logLevel := flags.String("log-level", "", "overrides logging.level")
	httpAddress := flags.String("http", "", "overrides http.address")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", *envPath, err)
	}

	config, err := crust.NewConfigProviderFromPath(*configPath).GetConfig(context.Background())
	if err != nil {
		return err
	}

	if *logLevel != "" {
		config.Logging.Level = *logLevel
	}

	if *httpAddress != "" {
		config.HTTP.Address = *httpAddress
	}

	logger, err := newLogger(config.Logging)
	if err != nil {
		return err
	}

	options := config.ClientOptions()
	options.Logger = logger

	client, err := crust.NewClient(config.Token, options)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mq producer.Producer

	if config.Producer.Type != "" {
		mq, err = setupProducer(ctx, logger, client, options.Name, config.Producer)
		if err != nil {
			return err
		}

		defer mq.Close()
	}

	if config.HTTP.Address != "" {
		server := newStatusServer(client)

		go func() {
			logger.Info().Str("address", config.HTTP.Address).Msg("Serving http")

			if err := fasthttp.ListenAndServe(config.HTTP.Address, server.Handler()); err != nil {
				logger.Error().Err(err).Str("address", config.HTTP.Address).Msg("Failed to serve http")
			}
		}()
	}

	client.AddHandler(func(event crust.Event) {
		if disconnect, ok := event.(crust.DisconnectEvent); ok {
			logger.Warn().Int("code", disconnect.Code).Str("reason", disconnect.Reason).Msg("Gateway disconnected")
		}
	})

	err = client.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	logger.Info().Msg("Shutting down")

	if err := client.Disconnect(); err != nil && !errors.Is(err, crust.ErrNotConnected) {
		logger.Warn().Err(err).Msg("Failed to disconnect")
	}

	return nil
}

func newLogger(config crust.LoggingConfiguration) (zerolog.Logger, error) {
	level := zerolog.InfoLevel

	if config.Level != "" {
		parsed, err := zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}

		level = parsed
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Stamp},
	}

	if config.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger(), nil
}

func setupProducer(ctx context.Context, logger zerolog.Logger, client *crust.Client, name string, config crust.ProducerConfiguration) (producer.Producer, error) {
	mq, err := producer.NewProducer(config.Type)
	if err != nil {
		return nil, err
	}

	args := make(map[string]interface{}, len(config.Configuration)+1)
	for k, v := range config.Configuration {
		args[k] = v
	}

	if producer.GetEntry(args, "Channel") == nil {
		args["Channel"] = config.Channel
	}

	err = mq.Connect(ctx, name, args)
	if err != nil {
		return nil, fmt.Errorf("failed to connect producer %s: %w", mq, err)
	}

	forwarder := producer.NewForwarder(logger, mq, producer.ForwarderOptions{
		Client:    name,
		Blacklist: config.Blacklist,
	})

	client.AddHandler(forwarder.Handle)

	go forwarder.Run(ctx)

	logger.Info().Str("producer", mq.String()).Str("channel", mq.Channel()).Msg("Forwarding events")

	return mq, nil
}
