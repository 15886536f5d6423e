// Copyright 2025 The AWP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides context-scoped structured logging for the runtime,
// built on log/slog. A logger attached to a context travels with the request
// through handlers, executors and background deliveries.
package log

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// AttachLogger returns a context carrying the provided logger.
func AttachLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger attached to the context, or slog.Default
// when none is attached.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// With returns a context whose attached logger carries the additional attributes.
func With(ctx context.Context, args ...any) context.Context {
	return AttachLogger(ctx, LoggerFrom(ctx).With(args...))
}

// Debug logs at debug level using the context's logger.
func Debug(ctx context.Context, msg string, args ...any) {
	LoggerFrom(ctx).DebugContext(ctx, msg, args...)
}

// Info logs at info level using the context's logger.
func Info(ctx context.Context, msg string, args ...any) {
	LoggerFrom(ctx).InfoContext(ctx, msg, args...)
}

// Warn logs at warn level using the context's logger.
func Warn(ctx context.Context, msg string, args ...any) {
	LoggerFrom(ctx).WarnContext(ctx, msg, args...)
}

// Error logs an error with a message using the context's logger.
func Error(ctx context.Context, msg string, err error, args ...any) {
	args = append([]any{slog.Any("error", err)}, args...)
	LoggerFrom(ctx).ErrorContext(ctx, msg, args...)
}
