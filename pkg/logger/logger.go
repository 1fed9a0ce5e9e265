package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "voice-agent"

type Config struct {
	Level        string `default:"info"`
	PrettyFormat bool   `split_words:"true" default:"false"`
}

var DefaultConfig = &Config{Level: "info"}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// Init configures the process logger. Unknown level strings fall back to
// info rather than failing startup.
func Init(opts ...Config) {
	conf := safe(opts...)

	var w io.Writer = os.Stdout
	if conf.PrettyFormat {
		w = zerolog.NewConsoleWriter()
	}

	log.Logger = zerolog.New(w).
		Level(parseLevel(conf.Level)).
		With().
		Timestamp().
		Str("service", serviceName).
		Caller().
		Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
