package observability

import (
	"os"
	"strings"

	"github.com/railzwaylabs/ratebook/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. JSON is used unless LOG_FORMAT=console.
// When LOG_FILE is set, entries are also written to a size-rotated file.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(cfg.Observability.LogLevel)))); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Observability.LogFormat, "console") {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if path := strings.TrimSpace(cfg.Observability.LogFile); path != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.Observability.LogMaxSizeMB,
			MaxBackups: cfg.Observability.LogMaxBackups,
			MaxAge:     cfg.Observability.LogMaxAgeDays,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller()).With(
		zap.String("service", cfg.AppName),
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Environment),
	), nil
}
