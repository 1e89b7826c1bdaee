package crust

import (
	"context"
	"fmt"
	"os"

	"github.com/WelcomerTeam/Crust/discord"
	"github.com/WelcomerTeam/Crust/voice"
	"gopkg.in/yaml.v3"
)

const PermissionWrite = 0o600

type Configuration struct {
	Name  string  `json:"name" yaml:"name"`
	Token string  `json:"token" yaml:"token"`
	Shard []int32 `json:"shard" yaml:"shard"`

	// MessageCacheLimit defaults to 50 messages per channel when unset.
	MessageCacheLimit *int `json:"message_cache_limit" yaml:"message_cache_limit"`

	GatewayURL     string `json:"gateway_url" yaml:"gateway_url"`
	Intents        int32  `json:"intents" yaml:"intents"`
	LargeThreshold int32  `json:"large_threshold" yaml:"large_threshold"`

	Presence PresenceConfiguration `json:"presence" yaml:"presence"`
	Voice    VoiceConfiguration    `json:"voice" yaml:"voice"`
	Producer ProducerConfiguration `json:"producer" yaml:"producer"`
	HTTP     HTTPConfiguration     `json:"http" yaml:"http"`
	Logging  LoggingConfiguration  `json:"logging" yaml:"logging"`
}

type PresenceConfiguration struct {
	Status string `json:"status" yaml:"status"`
	Game   string `json:"game" yaml:"game"`
}

type VoiceConfiguration struct {
	Encoders      []string            `json:"encoders" yaml:"encoders"`
	Stereo        bool                `json:"stereo" yaml:"stereo"`
	MaxStreamSize int                 `json:"max_stream_size" yaml:"max_stream_size"`
	Restart       voice.RestartPolicy `json:"restart" yaml:"restart"`
}

type ProducerConfiguration struct {
	// Type is one of jetstream, stan, kafka or redis. Empty disables forwarding.
	Type          string                 `json:"type" yaml:"type"`
	Channel       string                 `json:"channel" yaml:"channel"`
	Configuration map[string]interface{} `json:"configuration" yaml:"configuration"`

	// Blacklist lists event types that are not forwarded.
	Blacklist []string `json:"blacklist" yaml:"blacklist"`
}

type HTTPConfiguration struct {
	Address string `json:"address" yaml:"address"`
}

type LoggingConfiguration struct {
	Level string `json:"level" yaml:"level"`

	// File enables writing to a rotated log file next to the console.
	File       string `json:"file" yaml:"file"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAge     int    `json:"max_age" yaml:"max_age"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// ClientOptions converts the configuration into client options on top of
// DefaultOptions.
func (config *Configuration) ClientOptions() Options {
	options := DefaultOptions()

	if config.Name != "" {
		options.Name = config.Name
	}

	options.Shard = config.Shard

	if config.MessageCacheLimit != nil {
		options.MessageCacheLimit = *config.MessageCacheLimit
	}

	options.GatewayURL = config.GatewayURL
	options.Intents = config.Intents

	if config.LargeThreshold != 0 {
		options.LargeThreshold = config.LargeThreshold
	}

	if config.Presence.Status != "" || config.Presence.Game != "" {
		status := config.Presence.Status
		if status == "" {
			status = string(discord.StatusOnline)
		}

		presence := &discord.UpdateStatus{
			Status:     status,
			Activities: []*discord.Activity{},
		}

		if config.Presence.Game != "" {
			presence.Activities = append(presence.Activities, &discord.Activity{
				Name: config.Presence.Game,
				Type: discord.ActivityTypeGame,
			})
		}

		options.Presence = presence
	}

	options.Voice = VoiceOptions{
		MaxStreamSize: config.Voice.MaxStreamSize,
		Audio: voice.AudioConfig{
			Encoders: config.Voice.Encoders,
			Stereo:   config.Voice.Stereo,
			Restart:  config.Voice.Restart,
		},
	}

	return options
}

type ConfigProvider interface {
	GetConfig(ctx context.Context) (*Configuration, error)
	SaveConfig(ctx context.Context, config *Configuration) error
}

// ConfigProviderFromPath reads and writes a YAML file. Environment
// variables in the file are expanded when reading.
type ConfigProviderFromPath struct {
	path string
}

func NewConfigProviderFromPath(path string) ConfigProviderFromPath {
	return ConfigProviderFromPath{path}
}

func (c ConfigProviderFromPath) GetConfig(_ context.Context) (*Configuration, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Configuration

	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	if config.Token == "" {
		return nil, fmt.Errorf("config file %s: %w", c.path, ErrMissingToken)
	}

	return &config, nil
}

func (c ConfigProviderFromPath) SaveConfig(_ context.Context, config *Configuration) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(c.path, data, PermissionWrite)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
