package producer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Producer publishes forwarded events to a message queue.
type Producer interface {
	String() string
	Channel() string

	Connect(ctx context.Context, clientName string, args map[string]interface{}) error

	// Publish sends data for the given event type.
	Publish(ctx context.Context, eventType string, data []byte) error
	Close() error
}

var producers = map[string]func() Producer{}

func register(kind string, constructor func() Producer) {
	producers[kind] = constructor
}

// Producers lists the available producer kinds.
func Producers() []string {
	kinds := make([]string, 0, len(producers))

	for kind := range producers {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}

func NewProducer(kind string) (Producer, error) {
	constructor, ok := producers[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProducer, kind)
	}

	return constructor(), nil
}

// GetEntry returns the first value whose key matches, ignoring case.
func GetEntry(m map[string]interface{}, key string) interface{} {
	key = strings.ToLower(key)

	for k, v := range m {
		if strings.ToLower(k) == key {
			return v
		}
	}

	return nil
}

// getString accepts any scalar so YAML numbers can be used for string
// settings such as a redis database.
func getString(m map[string]interface{}, key string) (string, bool) {
	switch value := GetEntry(m, key).(type) {
	case nil:
		return "", false
	case string:
		return value, true
	default:
		return fmt.Sprint(value), true
	}
}

func getBool(m map[string]interface{}, key string) bool {
	switch value := GetEntry(m, key).(type) {
	case bool:
		return value
	case string:
		b, _ := strconv.ParseBool(value)

		return b
	default:
		return false
	}
}
