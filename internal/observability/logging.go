/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the process-wide logger built by NewLogger.
type LogOptions struct {
	// Verbose switches to development (console) encoding and debug level.
	Verbose bool
	// TraceFilePath, if set, adds a rotating file sink receiving every
	// log record at trace (debug) level regardless of Verbose, for
	// subcommands that mutate state.
	TraceFilePath string
}

// NewLogger builds the process-wide *zap.SugaredLogger. JSON encoding to
// stderr at warn+ in production mode; console encoding at debug+ in
// verbose mode. Built once at startup and threaded explicitly through
// every component constructor rather than retrieved from a package-level
// global.
func NewLogger(opts LogOptions) (*zap.SugaredLogger, func(), error) {
	level := zapcore.WarnLevel
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if opts.Verbose {
		level = zapcore.DebugLevel
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}

	var closers []func()
	if opts.TraceFilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.TraceFilePath,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), zapcore.DebugLevel))
		closers = append(closers, func() { _ = rotator.Close() })
	}

	logger := zap.New(zapcore.NewTee(cores...))
	cleanup := func() {
		_ = logger.Sync()
		for _, c := range closers {
			c()
		}
	}
	return logger.Sugar(), cleanup, nil
}
