// Package logger provides the process-wide logger for the sync server.
package logger

import (
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// unstructuredLogs reports whether logs should use the human-readable console
// encoder instead of structured JSON output.
func unstructuredLogs() bool {
	v, ok := os.LookupEnv("TRH_UNSTRUCTURED_LOGS")
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// debugEnabled reports whether debug-level logging was requested, either via
// the --debug flag bound into viper or the TRH_DEBUG environment variable.
func debugEnabled() bool {
	if viper.GetBool("debug") {
		return true
	}
	v, ok := os.LookupEnv("TRH_DEBUG")
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// Initialize creates the process-wide logger. Output is structured JSON by
// default; TRH_UNSTRUCTURED_LOGS=true switches to a console encoder and
// TRH_DEBUG=true lowers the level to debug.
func Initialize() {
	level := zapcore.InfoLevel
	if debugEnabled() {
		level = zapcore.DebugLevel
	}

	var encoder zapcore.Encoder
	if unstructuredLogs() {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	log = zap.New(core).Sugar()
}

// ensure returns the logger, initializing it with defaults if a call arrives
// before Initialize.
func ensure() *zap.SugaredLogger {
	if log == nil {
		Initialize()
	}
	return log
}

// Debug logs a message at debug level.
func Debug(args ...any) { ensure().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { ensure().Debugf(format, args...) }

// Info logs a message at info level.
func Info(args ...any) { ensure().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { ensure().Infof(format, args...) }

// Warn logs a message at warn level.
func Warn(args ...any) { ensure().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { ensure().Warnf(format, args...) }

// Error logs a message at error level.
func Error(args ...any) { ensure().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { ensure().Errorf(format, args...) }

// Fatalf logs a formatted message at fatal level and exits.
func Fatalf(format string, args ...any) { ensure().Fatalf(format, args...) }
