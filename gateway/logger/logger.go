package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pushchain/ecu-vault/gateway/config"
)

// New creates a new zerolog logger with the specified configuration.
// Supports console/json format, level filtering, and optional sampling.
func New(logLevel int, logFormat string, logSampler bool) zerolog.Logger {
	return newWithWriter(stdoutWriter(logFormat), logLevel, logSampler)
}

// Init builds the node logger from cfg. When a log file is configured, output is
// duplicated into a size-rotated JSON file.
func Init(cfg config.Config) zerolog.Logger {
	writer := stdoutWriter(cfg.LogFormat)
	if cfg.LogFile != "" {
		writer = zerolog.MultiLevelWriter(writer, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		})
	}
	return newWithWriter(writer, cfg.LogLevel, cfg.LogSampler)
}

func stdoutWriter(logFormat string) io.Writer {
	if logFormat == "json" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
}

func newWithWriter(writer io.Writer, logLevel int, logSampler bool) zerolog.Logger {
	logger := zerolog.New(writer).
		Level(zerolog.Level(logLevel)).
		With().
		Timestamp().
		Logger()

	if logSampler {
		logger = logger.Sample(&zerolog.BasicSampler{N: 5})
	}
	return logger
}
