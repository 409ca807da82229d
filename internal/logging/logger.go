// Package logging builds the zerolog loggers shared by the command line
// and the browser window.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// TimeFormat is the console timestamp layout.
const TimeFormat = "15:04:05"

// New returns a console logger writing to w, or stderr when w is nil.
// Debug events are dropped unless debug is set.
func New(w io.Writer, debug bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: TimeFormat,
		NoColor:    !isTerminal(w),
	}).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
