package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	slogmulti "github.com/samber/slog-multi"
)

type RelayLogger struct {
	*slog.Logger
}

var relayLogger *RelayLogger

// enableStackTrace controls whether RelayLogger.Error and friends attach
// a formatted stack trace to the log record.
var enableStackTrace bool

// InitLogger initializes the global logger.
// The output is a comma-separated list of "stdout" and "stderr"; when more
// than one output is given, records are fanned out to every handler.
func InitLogger(logLevel, format, output string) error {
	writers := make([]io.Writer, 0, 2)
	for _, out := range strings.Split(output, ",") {
		switch out {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			return errors.Newf("invalid log output: %s", out)
		}
	}
	return initLogger(logLevel, format, writers, true)
}

// InitLoggerWithWriter initializes the global logger with a single writer.
// It is mainly used by tests.
func InitLoggerWithWriter(logLevel, format string, writer io.Writer, stackTrace bool) error {
	return initLogger(logLevel, format, []io.Writer{writer}, stackTrace)
}

func initLogger(logLevel, format string, writers []io.Writer, stackTrace bool) error {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return errors.Wrapf(err, "invalid log level: %s", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	}

	handlers := make([]slog.Handler, 0, len(writers))
	for _, writer := range writers {
		switch format {
		case "text":
			handlers = append(handlers, slog.NewTextHandler(writer, handlerOpts))
		case "json":
			handlers = append(handlers, slog.NewJSONHandler(writer, handlerOpts))
		default:
			return errors.Newf("invalid log format: %s", format)
		}
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = slogmulti.Fanout(handlers...)
	}

	enableStackTrace = stackTrace
	relayLogger = &RelayLogger{
		slog.New(handler),
	}
	return nil
}

func GetLogger() *RelayLogger {
	return relayLogger
}

// log emits a record whose source location points to the frame `depth`
// levels above the caller of this method.
func (rl *RelayLogger) log(level slog.Level, depth int, msg string, args ...any) {
	rl.logContext(context.Background(), level, depth+1, msg, args...)
}

func (rl *RelayLogger) logContext(ctx context.Context, level slog.Level, depth int, msg string, args ...any) {
	if !rl.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip runtime.Callers, logContext, log and `depth` extra frames
	runtime.Callers(2+depth, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = rl.Handler().Handle(ctx, r)
}

func (rl *RelayLogger) Error(msg string, err error, args ...any) {
	args = append(args, errAttrs(err)...)
	rl.log(slog.LevelError, 1, msg, args...)
}

func (rl *RelayLogger) ErrorContext(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, errAttrs(err)...)
	rl.logContext(ctx, slog.LevelError, 1, msg, args...)
}

func (rl *RelayLogger) Fatal(msg string, err error, args ...any) {
	args = append(args, errAttrs(err)...)
	rl.log(slog.LevelError, 1, msg, args...)
	panic(msg)
}

func errAttrs(err error) []any {
	if !enableStackTrace {
		return []any{"error", err.Error()}
	}
	withStack := errors.WithStackDepth(err, 2)
	return []any{"error", err.Error(), "stack", fmt.Sprintf("%+v", withStack)}
}

// TimeTrack logs the time elapsed since `start`.
// Use it like: `defer logger.TimeTrack(time.Now(), "name")`
func (rl *RelayLogger) TimeTrack(start time.Time, name string, args ...any) {
	args = append(args, "name", name, "elapsed", time.Since(start).Nanoseconds())
	rl.log(slog.LevelInfo, 1, "time track", args...)
}

func (rl *RelayLogger) TimeTrackContext(ctx context.Context, start time.Time, name string, args ...any) {
	args = append(args, "name", name, "elapsed", time.Since(start).Nanoseconds())
	rl.logContext(ctx, slog.LevelInfo, 1, "time track", args...)
}

func (rl *RelayLogger) WithChain(chainID string) *RelayLogger {
	return &RelayLogger{
		rl.With("chain id", chainID),
	}
}

func (rl *RelayLogger) WithChainPair(srcChainID, dstChainID string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"source chain id", srcChainID,
			"destination chain id", dstChainID,
		),
	}
}

func (rl *RelayLogger) WithClient(chainID, clientID string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"chain id", chainID,
			"client id", clientID,
		),
	}
}

func (rl *RelayLogger) WithModule(moduleName string) *RelayLogger {
	return &RelayLogger{
		rl.With("module", moduleName),
	}
}
