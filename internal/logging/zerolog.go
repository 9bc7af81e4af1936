package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arloliu/streamgrid/types"
	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to types.Logger.
//
// Key-value pairs are attached as fields; a non-string key is formatted with %v and
// a trailing key without value is logged under "!BADKEY", matching slog.
type ZerologLogger struct {
	logger zerolog.Logger
}

var _ types.Logger = (*ZerologLogger)(nil)

// NewZerolog wraps an existing zerolog logger.
func NewZerolog(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// NewZerologConsole builds a human-readable console logger writing to w.
//
// Parameters:
//   - w: Destination, typically os.Stderr
//   - level: Minimum level
//   - noColor: Disable ANSI colors
func NewZerologConsole(w io.Writer, level zerolog.Level, noColor bool) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	writer := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: noColor}

	return NewZerolog(zerolog.New(writer).Level(level).With().Timestamp().Logger())
}

// NewZerologJSON builds a JSON logger writing to w.
func NewZerologJSON(w io.Writer, level zerolog.Level) *ZerologLogger {
	return NewZerolog(zerolog.New(w).Level(level).With().Timestamp().Logger())
}

// Debug logs at debug level.
func (l *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	withFields(l.logger.Debug(), keysAndValues).Msg(msg)
}

// Info logs at info level.
func (l *ZerologLogger) Info(msg string, keysAndValues ...any) {
	withFields(l.logger.Info(), keysAndValues).Msg(msg)
}

// Warn logs at warn level.
func (l *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	withFields(l.logger.Warn(), keysAndValues).Msg(msg)
}

// Error logs at error level.
func (l *ZerologLogger) Error(msg string, keysAndValues ...any) {
	withFields(l.logger.Error(), keysAndValues).Msg(msg)
}

// Fatal logs at fatal level and exits the process.
func (l *ZerologLogger) Fatal(msg string, keysAndValues ...any) {
	withFields(l.logger.Fatal(), keysAndValues).Msg(msg)
}

func withFields(ev *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 >= len(keysAndValues) {
			ev = ev.Interface("!BADKEY", keysAndValues[i])
			break
		}

		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Stringer(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}

	return ev
}
