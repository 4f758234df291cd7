package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=4000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret      string        `env:"JWT_SECRET,required=true"`
	TokenDuration  time.Duration `env:"AUTH_TOKEN_DURATION,default=168h"`

	StudyDuration time.Duration `env:"STUDY_DURATION,default=25m"`
	BreakDuration time.Duration `env:"BREAK_DURATION,default=5m"`
	TotalSessions int           `env:"TOTAL_SESSIONS,default=4"`
	TickInterval  time.Duration `env:"TICK_INTERVAL,default=1s"`

	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	MailboxSize          int           `env:"MAILBOX_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=5s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	PersistRetries       int           `env:"PERSIST_RETRIES,default=1"`

	MaxMessageBytes int64         `env:"MAX_MESSAGE_BYTES,default=4096"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout     time.Duration `env:"PONG_TIMEOUT,default=60s"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
