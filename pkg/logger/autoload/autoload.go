// Package autoload initializes the process logger from the LOG_* environment
// on import.
package autoload

import (
	configx "github.com/bankabc/voice-agent/pkg/config"
	logx "github.com/bankabc/voice-agent/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
