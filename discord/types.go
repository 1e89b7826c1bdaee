package discord

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	gotils_strconv "github.com/savsgio/gotils/strconv"
)

const (
	// DiscordCreation is the discord epoch in milliseconds.
	DiscordCreation = 1420070400000
)

var null = []byte("null")

// Snowflake is a 64-bit identifier that also encodes its creation time.
type Snowflake uint64

func (s Snowflake) IsNil() bool {
	return s == 0
}

func toSnowflake(b []byte, s *Snowflake) error {
	if len(b) == 0 || bytes.Equal(b, null) {
		*s = 0

		return nil
	}

	if b[0] == '"' && len(b) >= 2 {
		b = b[1 : len(b)-1]
	}

	if len(b) == 0 {
		*s = 0

		return nil
	}

	i, err := strconv.ParseUint(gotils_strconv.B2S(b), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to unmarshal json: %w", err)
	}

	*s = Snowflake(i)

	return nil
}

func (s *Snowflake) UnmarshalJSON(b []byte) error {
	return toSnowflake(b, s)
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 22)

	buf = append(buf, '"')
	buf = strconv.AppendUint(buf, uint64(s), 10)
	buf = append(buf, '"')

	return buf, nil
}

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Time returns the creation time of the Snowflake.
func (s Snowflake) Time() time.Time {
	msec := int64(s>>22) + DiscordCreation

	return time.UnixMilli(msec)
}

// ParseSnowflake parses a decimal id.
func ParseSnowflake(str string) (Snowflake, error) {
	i, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", str, err)
	}

	return Snowflake(i), nil
}

// Int64 accepts both string and number forms.
type Int64 int64

func (in *Int64) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, null) {
		*in = 0

		return nil
	}

	if b[0] == '"' && len(b) >= 2 {
		b = b[1 : len(b)-1]
	}

	i, err := strconv.ParseInt(gotils_strconv.B2S(b), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to unmarshal json: %w", err)
	}

	*in = Int64(i)

	return nil
}

func (in Int64) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 22)

	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, int64(in), 10)
	buf = append(buf, '"')

	return buf, nil
}

func (in Int64) String() string {
	return strconv.FormatInt(int64(in), 10)
}

// Timestamp is an ISO8601 timestamp kept in its wire form.
type Timestamp string

func (t Timestamp) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, string(t))
}
