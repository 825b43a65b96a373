// Package logging builds the server's zap logger: console output by default,
// or a size-rotated JSON log file when one is configured.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/XR-stb/GMatch/internal/config"
)

// NewLogger creates a logger at the given numeric level (0=DEBUG .. 3=ERROR)
// writing to file, or to stdout when file is empty.
func NewLogger(level int, file string) *zap.Logger {
	zapLevel := toZapLevel(level)

	if file == "" {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			zapLevel,
		)
		return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		zapLevel,
	)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

func toZapLevel(level int) zapcore.Level {
	switch level {
	case config.LogLevelDebug:
		return zapcore.DebugLevel
	case config.LogLevelInfo:
		return zapcore.InfoLevel
	case config.LogLevelWarn:
		return zapcore.WarnLevel
	case config.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
