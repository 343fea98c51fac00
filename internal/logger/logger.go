// Package logger builds the zap logger shared by the server and the CLI tools.
package logger

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jengzang/dispatch-backend-go/internal/config"
)

// Build creates a logger that writes info-and-below to stdout and errors to
// stderr. The returned level can be changed at runtime.
func Build(cfg config.LoggerConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, level, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return level.Enabled(lvl) && lvl < zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lowPriority),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), highPriority),
	)

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return zap.New(core, opts...), level, nil
}

// WatchLevel re-applies logger.level whenever the config file changes
func WatchLevel(v *viper.Viper, level zap.AtomicLevel, log *zap.Logger) {
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(in fsnotify.Event) {
		if in.Op&fsnotify.Create != 0 {
			return
		}
		SetLevel(level, v.GetString("logger.level"), log)
	})
	v.WatchConfig()
}

// SetLevel changes the logger level, ignoring unparsable values
func SetLevel(level zap.AtomicLevel, value string, log *zap.Logger) {
	l, err := zapcore.ParseLevel(value)
	if err != nil {
		log.Error("Couldn't parse level", zap.String("value", value), zap.Error(err))
		return
	}
	level.SetLevel(l)
	log.Info("Atomic level updated", zap.String("value", value))
}
