// Package logging builds the process-wide structured logger.
//
// The logger is constructed once at startup and passed explicitly to every
// component; there is no package-level logger state.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger that writes Info and above to stdout and, when
// logPath is non-empty, Debug and above to the given file. The returned
// function flushes buffered entries and must be called before exit.
func New(logPath string) (*zap.Logger, func(), error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.TimeKey = "" // console output stays close to the terminal
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)

	cores := []zapcore.Core{console}

	var closeFile func()
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.Lock(f),
			zapcore.DebugLevel,
		))
		closeFile = func() { f.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...))
	cleanup := func() {
		_ = logger.Sync()
		if closeFile != nil {
			closeFile()
		}
	}
	return logger, cleanup, nil
}
