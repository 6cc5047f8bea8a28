package app

import (
	"io"
	"os"

	"delivery-simulator/internal/config"
	"delivery-simulator/internal/logx"
)

var logOutput io.Writer = os.Stdout

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg *config.Config) (logx.Logger, error) {
	return logx.New(cfg.Log.Level, cfg.Log.Format, logOutput)
}
