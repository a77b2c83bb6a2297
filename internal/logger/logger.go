// Package logger はzapのロガーを設定から組み立てる。
package logger

import (
	"fmt"
	"strings"

	"stockledger/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New は LOG_LEVEL / LOG_ENCODING に従ってロガーを作る。
// json は本番向け（ISO8601のtimestamp）、console は開発向け（色付きレベル）。
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Encoding) {
	case "", "json":
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("LOG_ENCODING must be json or console")
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
